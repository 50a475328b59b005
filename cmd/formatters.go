package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/0x3a/crits/service"
)

// maxListedFailures caps the failure lines printed after an import
const maxListedFailures = 20

// printSection prints a section header
func printSection(w io.Writer, title string) {
	fmt.Fprintln(w)
	headerColor.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
}

// printField prints a labeled field
func printField(w io.Writer, label string, value interface{}) {
	fmt.Fprintf(w, "%-12s %v\n", label+":", value)
}

// renderBulkResult prints an import summary followed by its failures
func renderBulkResult(w io.Writer, result service.BulkResult) {
	printSection(w, "Import Result")
	printField(w, "Processed", result.Processed)
	printField(w, "New", successColor.Sprint(result.New))
	printField(w, "Updated", infoColor.Sprint(result.Updated))
	if result.Failed > 0 {
		printField(w, "Failed", errorColor.Sprint(result.Failed))
	} else {
		printField(w, "Failed", result.Failed)
	}

	fmt.Fprintln(w)
	if result.Success {
		successColor.Fprintf(w, "✓ %s\n", result.Message)
	} else {
		errorColor.Fprintf(w, "✗ %s\n", result.Message)
	}

	if len(result.Failures) == 0 {
		return
	}
	printSection(w, "Failures")
	for i, failure := range result.Failures {
		if i == maxListedFailures {
			warningColor.Fprintf(w, "  ... and %d more\n", len(result.Failures)-maxListedFailures)
			break
		}
		fmt.Fprintf(w, "  - %s\n", failure)
	}
}
