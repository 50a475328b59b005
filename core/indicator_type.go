package core

import (
	"fmt"
	"net"
	"net/mail"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// =============================================================================
// Indicator Types
// =============================================================================

// IndicatorType names the kind of observable an indicator records
type IndicatorType string

const (
	IndicatorTypeIPv4       IndicatorType = "IPv4 Address"
	IndicatorTypeIPv6       IndicatorType = "IPv6 Address"
	IndicatorTypeIPv4Subnet IndicatorType = "IPv4 Subnet"
	IndicatorTypeDomain     IndicatorType = "Domain"
	IndicatorTypeURI        IndicatorType = "URI"
	IndicatorTypeMD5        IndicatorType = "MD5"
	IndicatorTypeSHA1       IndicatorType = "SHA1"
	IndicatorTypeSHA256     IndicatorType = "SHA256"
	IndicatorTypeEmail      IndicatorType = "Email Address"
	IndicatorTypeFilename   IndicatorType = "File Name"
	IndicatorTypeRegKey     IndicatorType = "Registry Key"
	IndicatorTypeCVE        IndicatorType = "CVE"
	IndicatorTypeJA3        IndicatorType = "JA3"
	IndicatorTypeUserAgent  IndicatorType = "User Agent"
	IndicatorTypeMutex      IndicatorType = "Mutex"
	IndicatorTypePort       IndicatorType = "Port"
	IndicatorTypeHTTPMethod IndicatorType = "HTTP Request Method"
	IndicatorTypeString     IndicatorType = "String"
	IndicatorTypeFile       IndicatorType = "File"
)

// Datatype describes how an indicator type's value is entered
type Datatype string

const (
	DatatypeString Datatype = "string"
	DatatypeEnum   Datatype = "enum"
	DatatypeBigInt Datatype = "bigint"
	DatatypeFile   Datatype = "file"
)

// IndicatorTypeInfo is one entry of the indicator type catalogue
type IndicatorTypeInfo struct {
	Name          IndicatorType `json:"name" yaml:"name"`
	Datatype      Datatype      `json:"datatype" yaml:"datatype"`
	DatatypeValue []string      `json:"datatype_value,omitempty" yaml:"datatype_value,omitempty"`
	Active        bool          `json:"active" yaml:"active"`
}

// IndicatorTypes is the catalogue of known indicator types
var IndicatorTypes = []IndicatorTypeInfo{
	{Name: IndicatorTypeIPv4, Datatype: DatatypeString, Active: true},
	{Name: IndicatorTypeIPv6, Datatype: DatatypeString, Active: true},
	{Name: IndicatorTypeIPv4Subnet, Datatype: DatatypeString, Active: true},
	{Name: IndicatorTypeDomain, Datatype: DatatypeString, Active: true},
	{Name: IndicatorTypeURI, Datatype: DatatypeString, Active: true},
	{Name: IndicatorTypeMD5, Datatype: DatatypeString, Active: true},
	{Name: IndicatorTypeSHA1, Datatype: DatatypeString, Active: true},
	{Name: IndicatorTypeSHA256, Datatype: DatatypeString, Active: true},
	{Name: IndicatorTypeEmail, Datatype: DatatypeString, Active: true},
	{Name: IndicatorTypeFilename, Datatype: DatatypeString, Active: true},
	{Name: IndicatorTypeRegKey, Datatype: DatatypeString, Active: true},
	{Name: IndicatorTypeCVE, Datatype: DatatypeString, Active: true},
	{Name: IndicatorTypeJA3, Datatype: DatatypeString, Active: true},
	{Name: IndicatorTypeUserAgent, Datatype: DatatypeString, Active: true},
	{Name: IndicatorTypeMutex, Datatype: DatatypeString, Active: false},
	{Name: IndicatorTypePort, Datatype: DatatypeBigInt, Active: true},
	{Name: IndicatorTypeHTTPMethod, Datatype: DatatypeEnum, DatatypeValue: []string{
		"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS", "PATCH", "CONNECT", "TRACE",
	}, Active: true},
	{Name: IndicatorTypeString, Datatype: DatatypeString, Active: true},
	{Name: IndicatorTypeFile, Datatype: DatatypeFile, Active: true},
}

// LookupIndicatorType returns the catalogue entry for a type name
func LookupIndicatorType(t IndicatorType) (IndicatorTypeInfo, bool) {
	for _, info := range IndicatorTypes {
		if info.Name == t {
			return info, true
		}
	}
	return IndicatorTypeInfo{}, false
}

// IsValid checks if the indicator type is in the catalogue
func (t IndicatorType) IsValid() bool {
	_, ok := LookupIndicatorType(t)
	return ok
}

// IsIP reports whether the type holds a single IP address
func (t IndicatorType) IsIP() bool {
	return t == IndicatorTypeIPv4 || t == IndicatorTypeIPv6
}

// TypeChoice is a select option for the upload form. The datatype travels
// with the option so the page can switch the value widget.
type TypeChoice struct {
	Value         string   `json:"value"`
	Label         string   `json:"label"`
	Datatype      Datatype `json:"datatype"`
	DatatypeValue string   `json:"datatype_value"`
}

// IndicatorTypeChoices builds the choice list for the single-indicator upload
// form. Inactive types are included; file-backed types are not, since a
// single form value cannot carry a file.
func IndicatorTypeChoices() []TypeChoice {
	choices := make([]TypeChoice, 0, len(IndicatorTypes))
	for _, info := range IndicatorTypes {
		if info.Datatype == DatatypeFile {
			continue
		}
		choices = append(choices, TypeChoice{
			Value:         string(info.Name),
			Label:         string(info.Name),
			Datatype:      info.Datatype,
			DatatypeValue: strings.Join(info.DatatypeValue, ","),
		})
	}
	sort.Slice(choices, func(i, j int) bool { return choices[i].Value < choices[j].Value })
	return choices
}

// =============================================================================
// Value Validation
// =============================================================================

var (
	domainPattern   = regexp.MustCompile(`^(?:[a-z0-9_](?:[a-z0-9_-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)
	md5Pattern      = regexp.MustCompile(`^[a-fA-F0-9]{32}$`)
	sha1Pattern     = regexp.MustCompile(`^[a-fA-F0-9]{40}$`)
	sha256Pattern   = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)
	cvePattern      = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)
	filenamePattern = regexp.MustCompile(`^[^<>:"/\\|?*\x00-\x1f]+$`)
)

// MaxIndicatorValueLength caps the size of any indicator value
const MaxIndicatorValueLength = 4096

var registryHives = []string{"HKEY_", "HKLM\\", "HKCU\\", "HKU\\", "HKCR\\", "HKCC\\"}

// ValidateIndicatorValue validates a value against its indicator type
func ValidateIndicatorValue(t IndicatorType, value string) error {
	normalized := strings.TrimSpace(value)
	if normalized == "" {
		return fmt.Errorf("indicator value cannot be empty")
	}
	if len(normalized) > MaxIndicatorValueLength {
		return fmt.Errorf("indicator value exceeds maximum length of %d characters", MaxIndicatorValueLength)
	}

	info, ok := LookupIndicatorType(t)
	if !ok {
		return fmt.Errorf("unknown indicator type: %s", t)
	}

	switch t {
	case IndicatorTypeIPv4:
		ip := net.ParseIP(normalized)
		if ip == nil || ip.To4() == nil || strings.Contains(normalized, ":") {
			return fmt.Errorf("invalid IPv4 address")
		}
	case IndicatorTypeIPv6:
		ip := net.ParseIP(normalized)
		if ip == nil || !strings.Contains(normalized, ":") {
			return fmt.Errorf("invalid IPv6 address")
		}
	case IndicatorTypeIPv4Subnet:
		ip, _, err := net.ParseCIDR(normalized)
		if err != nil || ip.To4() == nil {
			return fmt.Errorf("invalid IPv4 subnet")
		}
	case IndicatorTypeDomain:
		if !domainPattern.MatchString(strings.ToLower(normalized)) {
			return fmt.Errorf("invalid domain format")
		}
	case IndicatorTypeURI:
		parsed, err := url.ParseRequestURI(normalized)
		if err != nil {
			return fmt.Errorf("invalid URI: %w", err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("URI must include a scheme and host")
		}
	case IndicatorTypeMD5:
		if !md5Pattern.MatchString(normalized) {
			return fmt.Errorf("invalid MD5 (must be 32 hex characters)")
		}
	case IndicatorTypeSHA1:
		if !sha1Pattern.MatchString(normalized) {
			return fmt.Errorf("invalid SHA1 (must be 40 hex characters)")
		}
	case IndicatorTypeSHA256:
		if !sha256Pattern.MatchString(normalized) {
			return fmt.Errorf("invalid SHA256 (must be 64 hex characters)")
		}
	case IndicatorTypeJA3:
		if !md5Pattern.MatchString(normalized) {
			return fmt.Errorf("invalid JA3 fingerprint (must be 32 hex characters)")
		}
	case IndicatorTypeEmail:
		if _, err := mail.ParseAddress(normalized); err != nil {
			return fmt.Errorf("invalid email address: %w", err)
		}
	case IndicatorTypeFilename:
		if !filenamePattern.MatchString(normalized) {
			return fmt.Errorf("invalid file name")
		}
	case IndicatorTypeRegKey:
		upper := strings.ToUpper(normalized)
		valid := false
		for _, hive := range registryHives {
			if strings.HasPrefix(upper, hive) {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid registry key (must start with a valid hive)")
		}
	case IndicatorTypeCVE:
		if !cvePattern.MatchString(strings.ToUpper(normalized)) {
			return fmt.Errorf("invalid CVE (must be CVE-YYYY-NNNN)")
		}
	}

	switch info.Datatype {
	case DatatypeBigInt:
		n, err := strconv.ParseInt(normalized, 10, 64)
		if err != nil {
			return fmt.Errorf("value must be an integer")
		}
		if t == IndicatorTypePort && (n < 0 || n > 65535) {
			return fmt.Errorf("port must be between 0 and 65535")
		}
	case DatatypeEnum:
		upper := strings.ToUpper(normalized)
		found := false
		for _, allowed := range info.DatatypeValue {
			if upper == allowed {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("value must be one of: %s", strings.Join(info.DatatypeValue, ", "))
		}
	}

	return nil
}

// NormalizeIndicatorValue normalizes a value for consistent storage
func NormalizeIndicatorValue(t IndicatorType, value string) string {
	normalized := strings.TrimSpace(value)

	switch t {
	case IndicatorTypeIPv4, IndicatorTypeIPv6, IndicatorTypeIPv4Subnet, IndicatorTypeDomain:
		return strings.ToLower(normalized)
	case IndicatorTypeMD5, IndicatorTypeSHA1, IndicatorTypeSHA256, IndicatorTypeJA3:
		return strings.ToLower(normalized)
	case IndicatorTypeURI:
		if parsed, err := url.Parse(normalized); err == nil {
			parsed.Scheme = strings.ToLower(parsed.Scheme)
			parsed.Host = strings.ToLower(parsed.Host)
			return parsed.String()
		}
		return normalized
	case IndicatorTypeEmail:
		if at := strings.LastIndex(normalized, "@"); at > 0 {
			return normalized[:at] + strings.ToLower(normalized[at:])
		}
		return normalized
	case IndicatorTypeCVE, IndicatorTypeHTTPMethod:
		return strings.ToUpper(normalized)
	default:
		return normalized
	}
}

// DetectIPType returns the indicator type for an IP string, or "" when the
// value is not an address
func DetectIPType(value string) IndicatorType {
	value = strings.TrimSpace(value)
	ip := net.ParseIP(value)
	if ip == nil {
		return ""
	}
	if strings.Contains(value, ":") {
		return IndicatorTypeIPv6
	}
	return IndicatorTypeIPv4
}
