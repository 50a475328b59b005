// Package cmd provides the indicators command-line interface.
package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/0x3a/crits/api"
	"github.com/0x3a/crits/bootstrap"
	"github.com/0x3a/crits/config"
	"github.com/0x3a/crits/core"
	"github.com/0x3a/crits/service"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags for indicators commands
var (
	configFile string
	noColor    bool
	quiet      bool
)

const (
	maxImportFileSize = service.MaxUploadBytes
	defaultTimeout    = 5 * time.Minute
	defaultAnalyst    = "cli"
)

// Import and export formats
const (
	formatCSV  = "csv"
	formatJSON = "json"
	formatYAML = "yaml"
)

// validateFilePath rejects paths that contain ".." or resolve outside the
// working directory
func validateFilePath(filename string) error {
	decoded, err := url.QueryUnescape(filename)
	if err != nil {
		decoded = filename
	}
	if strings.Contains(decoded, "..") || strings.Contains(filename, "..") {
		return fmt.Errorf("path traversal detected: '..' not allowed in file path")
	}

	absPath, err := filepath.Abs(filepath.Clean(decoded))
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	if absPath != workDir && !strings.HasPrefix(absPath, workDir+string(filepath.Separator)) {
		return fmt.Errorf("path escapes current directory")
	}
	return nil
}

// NewIndicatorsCmd creates the root indicators command with all subcommands
func NewIndicatorsCmd() *cobra.Command {
	indicatorsCmd := &cobra.Command{
		Use:   "indicators",
		Short: "Manage indicators from the command line",
		Long: `Import, export and administer indicators without going through the web pages.

Imports run through the same validation and merge logic as the upload form.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	indicatorsCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: search ./config.yaml)")
	indicatorsCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	indicatorsCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")

	indicatorsCmd.AddCommand(newImportCmd())
	indicatorsCmd.AddCommand(newExportCmd())
	indicatorsCmd.AddCommand(newTokenCmd())

	return indicatorsCmd
}

// newImportCmd creates the 'import' subcommand
func newImportCmd() *cobra.Command {
	var (
		req          service.BulkRequest
		analyst      string
		format       string
		showProgress bool
		outputJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import indicators from a CSV or JSON file",
		Long: `Import indicators from a CSV file with the upload header row, or from a JSON
list of indicator objects. Existing indicators are merged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			if err := validateFilePath(filename); err != nil {
				return fmt.Errorf("invalid file path: %w", err)
			}
			if strings.TrimSpace(req.Source) == "" {
				return fmt.Errorf("--source is required")
			}
			if format == "" {
				format = formatFromExtension(filename)
			}
			if format != formatCSV && format != formatJSON {
				return fmt.Errorf("unsupported import format %q: use csv or json", format)
			}

			fileInfo, err := os.Stat(filename)
			if err != nil {
				return fmt.Errorf("failed to stat file: %w", err)
			}
			if fileInfo.Size() > maxImportFileSize {
				return fmt.Errorf("file too large: maximum size is %d bytes, got %d bytes",
					maxImportFileSize, fileInfo.Size())
			}
			data, err := os.ReadFile(filename)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}

			var records []importRecord
			if format == formatJSON {
				if records, err = parseImportJSON(data); err != nil {
					return err
				}
			}

			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			svc, cleanup, err := initService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if !quiet && !outputJSON {
				infoColor.Fprintf(cmd.ErrOrStderr(), "Importing %s\n", filename)
			}
			var s *spinner.Spinner
			if showProgress && !quiet && !outputJSON {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
				s.Suffix = " Importing indicators..."
				s.Start()
			}

			req.AddDomain = true
			var result service.BulkResult
			if format == formatJSON {
				result = importRecords(ctx, svc, records, req, analyst)
			} else {
				req.Mode = service.ModeFile
				result = svc.HandleCSV(ctx, bytes.NewReader(data), req, analyst)
			}

			if s != nil {
				s.Stop()
			}

			if outputJSON {
				return outputAsJSON(cmd.OutOrStdout(), result)
			}
			renderBulkResult(cmd.OutOrStdout(), result)
			if !result.Success {
				return fmt.Errorf("import failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Source, "source", "", "Source credited for every indicator (required)")
	cmd.Flags().StringVar(&req.Method, "method", "", "Source method")
	cmd.Flags().StringVar(&req.Reference, "reference", "", "Source reference")
	cmd.Flags().StringVar(&analyst, "analyst", defaultAnalyst, "Analyst recorded on the indicators")
	cmd.Flags().StringVar(&format, "format", "", "Input format: csv or json (default: from extension)")
	cmd.Flags().BoolVar(&showProgress, "progress", true, "Show progress indicator")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output the result as JSON")

	return cmd
}

// newExportCmd creates the 'export' subcommand
func newExportCmd() *cobra.Command {
	var (
		indType string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export indicators",
		Long:  "Export indicators as CSV, JSON or YAML. If no file is specified, output to stdout.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatCSV && format != formatJSON && format != formatYAML {
				return fmt.Errorf("unsupported export format %q: use csv, json or yaml", format)
			}
			if indType != "" && !core.IndicatorType(indType).IsValid() {
				return fmt.Errorf("unknown indicator type %q", indType)
			}

			out := cmd.OutOrStdout()
			var file *os.File
			if len(args) > 0 {
				if err := validateFilePath(args[0]); err != nil {
					return fmt.Errorf("invalid file path: %w", err)
				}
				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("failed to create file: %w", err)
				}
				defer f.Close()
				file, out = f, f
			}

			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			svc, cleanup, err := initService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			filters := &core.IndicatorFilters{Type: core.IndicatorType(indType)}
			count, err := writeExport(ctx, svc, out, filters, format)
			if err != nil {
				return err
			}

			if file != nil {
				if err := file.Close(); err != nil {
					return fmt.Errorf("failed to write file: %w", err)
				}
				if !quiet {
					successColor.Fprintf(cmd.ErrOrStderr(), "✓ Exported %d indicators to %s\n", count, file.Name())
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&indType, "type", "", "Only export indicators of this type")
	cmd.Flags().StringVar(&format, "format", formatCSV, "Output format: csv, json or yaml")

	return cmd
}

// newTokenCmd creates the 'token' subcommand
func newTokenCmd() *cobra.Command {
	var (
		username string
		roles    []string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token",
		Long:  "Mint a signed token for the indicator pages, valid for the configured auth.jwt_expiry.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			token, err := api.GenerateToken(cfg, username, roles)
			if err != nil {
				return fmt.Errorf("failed to mint token: %w", err)
			}
			if !quiet {
				infoColor.Fprintf(cmd.ErrOrStderr(), "Token for %s (roles: %s), expires in %s\n",
					username, strings.Join(roles, ", "), cfg.Auth.JWTExpiry)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "user", "", "Username the token authenticates (required)")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role granted by the token (repeatable)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// formatFromExtension picks an import format from the file name
func formatFromExtension(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return formatJSON
	default:
		return formatCSV
	}
}

// loadConfig loads the configuration named by --config
func loadConfig() (*config.Config, error) {
	viper.Reset()
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// initService opens the configured storage and returns a service over it.
// The cleanup function closes storage and flushes the logger.
func initService(ctx context.Context) (*service.IndicatorService, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if quiet {
		logger = zap.NewNop()
	}
	sugar := logger.Sugar()

	if err := bootstrap.EnsureDataDirectories(cfg, sugar); err != nil {
		return nil, nil, err
	}
	components, err := bootstrap.InitStorage(ctx, cfg, sugar)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := components.Close(); err != nil {
			sugar.Warnf("Failed to close storage during cleanup: %v", err)
		}
		if err := logger.Sync(); err != nil {
			sugar.Debugf("Failed to sync logger during cleanup: %v", err)
		}
	}
	return service.NewIndicatorService(components.Store, sugar), cleanup, nil
}

// outputAsJSON writes data as indented JSON
func outputAsJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// outputAsYAML writes data as YAML
func outputAsYAML(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}
