package core

import (
	"strings"
	"testing"
)

// =============================================================================
// Indicator Type Catalogue Tests
// =============================================================================

func TestIndicatorType_IsValid(t *testing.T) {
	tests := []struct {
		indType IndicatorType
		valid   bool
	}{
		{IndicatorTypeIPv4, true},
		{IndicatorTypeDomain, true},
		{IndicatorTypeMD5, true},
		{IndicatorTypeMutex, true},
		{IndicatorTypeFile, true},
		{"invalid", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(string(tc.indType), func(t *testing.T) {
			if tc.indType.IsValid() != tc.valid {
				t.Errorf("IndicatorType(%s).IsValid() = %v, want %v", tc.indType, tc.indType.IsValid(), tc.valid)
			}
		})
	}
}

func TestIndicatorTypeChoices_ExcludesFileTypes(t *testing.T) {
	choices := IndicatorTypeChoices()
	if len(choices) == 0 {
		t.Fatal("expected choices")
	}

	for i, c := range choices {
		if c.Value == string(IndicatorTypeFile) {
			t.Errorf("file-backed type %q must not be offered", c.Value)
		}
		if i > 0 && choices[i-1].Value > c.Value {
			t.Errorf("choices not sorted: %q before %q", choices[i-1].Value, c.Value)
		}
	}

	var method *TypeChoice
	for i := range choices {
		if choices[i].Value == string(IndicatorTypeHTTPMethod) {
			method = &choices[i]
		}
	}
	if method == nil {
		t.Fatal("expected HTTP Request Method choice")
	}
	if method.Datatype != DatatypeEnum || !strings.Contains(method.DatatypeValue, "POST") {
		t.Errorf("unexpected enum choice: %+v", method)
	}

	// Inactive types remain selectable
	found := false
	for _, c := range choices {
		if c.Value == string(IndicatorTypeMutex) {
			found = true
		}
	}
	if !found {
		t.Error("expected inactive Mutex type in choices")
	}
}

// =============================================================================
// Value Validation Tests
// =============================================================================

func TestValidateIndicatorValue(t *testing.T) {
	tests := []struct {
		name        string
		indType     IndicatorType
		value       string
		expectError bool
	}{
		{"ipv4", IndicatorTypeIPv4, "192.168.1.1", false},
		{"ipv4 rejects v6", IndicatorTypeIPv4, "2001:db8::1", true},
		{"ipv4 out of range", IndicatorTypeIPv4, "192.168.1.256", true},
		{"ipv6", IndicatorTypeIPv6, "2001:db8::1", false},
		{"ipv6 rejects v4", IndicatorTypeIPv6, "10.0.0.1", true},
		{"subnet", IndicatorTypeIPv4Subnet, "10.0.0.0/8", false},
		{"subnet missing mask", IndicatorTypeIPv4Subnet, "10.0.0.0", true},
		{"domain", IndicatorTypeDomain, "Example.COM", false},
		{"domain no tld", IndicatorTypeDomain, "localhost", true},
		{"uri", IndicatorTypeURI, "http://evil.example.com/a?b=c", false},
		{"uri no scheme", IndicatorTypeURI, "evil.example.com/a", true},
		{"md5", IndicatorTypeMD5, "d41d8cd98f00b204e9800998ecf8427e", false},
		{"md5 short", IndicatorTypeMD5, "d41d8cd98f00b204", true},
		{"sha1", IndicatorTypeSHA1, "da39a3ee5e6b4b0d3255bfef95601890afd80709", false},
		{"sha256", IndicatorTypeSHA256, strings.Repeat("a", 64), false},
		{"email", IndicatorTypeEmail, "bad@example.com", false},
		{"email invalid", IndicatorTypeEmail, "not-an-email", true},
		{"filename", IndicatorTypeFilename, "evil.exe", false},
		{"filename with slash", IndicatorTypeFilename, "a/b.exe", true},
		{"regkey", IndicatorTypeRegKey, `HKLM\Software\Run`, false},
		{"regkey bad hive", IndicatorTypeRegKey, `SOFTWARE\Run`, true},
		{"cve", IndicatorTypeCVE, "cve-2021-44228", false},
		{"cve bad", IndicatorTypeCVE, "CVE-21-1", true},
		{"port", IndicatorTypePort, "443", false},
		{"port out of range", IndicatorTypePort, "70000", true},
		{"port not integer", IndicatorTypePort, "https", true},
		{"http method", IndicatorTypeHTTPMethod, "post", false},
		{"http method unknown", IndicatorTypeHTTPMethod, "FETCH", true},
		{"string", IndicatorTypeString, "anything goes", false},
		{"empty", IndicatorTypeString, "   ", true},
		{"too long", IndicatorTypeString, strings.Repeat("x", MaxIndicatorValueLength+1), true},
		{"unknown type", "Bogus", "value", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateIndicatorValue(tc.indType, tc.value)
			if tc.expectError && err == nil {
				t.Errorf("ValidateIndicatorValue(%s, %q) expected error", tc.indType, tc.value)
			}
			if !tc.expectError && err != nil {
				t.Errorf("ValidateIndicatorValue(%s, %q) unexpected error: %v", tc.indType, tc.value, err)
			}
		})
	}
}

func TestNormalizeIndicatorValue(t *testing.T) {
	tests := []struct {
		indType  IndicatorType
		value    string
		expected string
	}{
		{IndicatorTypeDomain, " Evil.Example.COM ", "evil.example.com"},
		{IndicatorTypeMD5, "D41D8CD98F00B204E9800998ECF8427E", "d41d8cd98f00b204e9800998ecf8427e"},
		{IndicatorTypeURI, "HTTP://Evil.Example.com/Path", "http://evil.example.com/Path"},
		{IndicatorTypeEmail, "User@EXAMPLE.com", "User@example.com"},
		{IndicatorTypeCVE, "cve-2021-44228", "CVE-2021-44228"},
		{IndicatorTypeString, " Keep Case ", "Keep Case"},
	}

	for _, tc := range tests {
		t.Run(string(tc.indType), func(t *testing.T) {
			if got := NormalizeIndicatorValue(tc.indType, tc.value); got != tc.expected {
				t.Errorf("NormalizeIndicatorValue(%s, %q) = %q, want %q", tc.indType, tc.value, got, tc.expected)
			}
		})
	}
}

func TestDetectIPType(t *testing.T) {
	if got := DetectIPType("10.1.1.1"); got != IndicatorTypeIPv4 {
		t.Errorf("expected IPv4, got %q", got)
	}
	if got := DetectIPType("::1"); got != IndicatorTypeIPv6 {
		t.Errorf("expected IPv6, got %q", got)
	}
	if got := DetectIPType("example.com"); got != "" {
		t.Errorf("expected empty type, got %q", got)
	}
}
