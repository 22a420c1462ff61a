// SPDX-FileCopyrightText: 2025 The Karei Authors
// SPDX-License-Identifier: EUPL-1.2

// Package cli provides output adapters for CLI operations.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/janderssonse/applist/internal/domain"
	"github.com/mattn/go-runewidth"
)

var (
	// ErrUnsupportedFormat is returned when an unsupported output format is requested.
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// MaxNameWidth is the widest app name printed in text tables.
const MaxNameWidth = 40

// barWidth is the width of the longest bar in a text summary.
const barWidth = 30

// OutputAdapter implements domain.OutputPort for CLI output.
type OutputAdapter struct {
	writer io.Writer
	format OutputFormat
	quiet  bool
}

var _ domain.OutputPort = (*OutputAdapter)(nil)

// OutputFormat represents the output format type.
type OutputFormat int

const (
	// TextFormat outputs human-readable text.
	TextFormat OutputFormat = iota
	// JSONFormat outputs machine-readable JSON.
	JSONFormat
)

// NewOutputAdapter creates a new output adapter writing to stdout.
func NewOutputAdapter(format OutputFormat, quiet bool) *OutputAdapter {
	return NewOutputAdapterWithWriter(os.Stdout, format, quiet)
}

// NewOutputAdapterWithWriter creates a new output adapter with a custom writer for testing.
func NewOutputAdapterWithWriter(writer io.Writer, format OutputFormat, quiet bool) *OutputAdapter {
	return &OutputAdapter{
		writer: writer,
		format: format,
		quiet:  quiet,
	}
}

// Success outputs a success message with optional structured data.
func (o *OutputAdapter) Success(message string, data interface{}) error {
	if o.quiet && data == nil {
		return nil
	}

	if o.format == JSONFormat && data != nil {
		return o.outputJSON(data)
	}

	if message != "" && !o.quiet {
		_, _ = fmt.Fprintln(o.writer, message)
	}

	return nil
}

// Error outputs an error message.
func (o *OutputAdapter) Error(message string) error {
	if o.quiet {
		return nil
	}

	if o.format == JSONFormat {
		return o.outputJSON(map[string]string{"error": message})
	}

	_, _ = fmt.Fprintf(o.writer, "Error: %s\n", message)

	return nil
}

// Info outputs an informational message.
func (o *OutputAdapter) Info(message string) error {
	if o.quiet {
		return nil
	}

	if o.format == JSONFormat {
		return o.outputJSON(map[string]string{"info": message})
	}

	_, _ = fmt.Fprintln(o.writer, message)

	return nil
}

// Progress outputs progress information for long-running operations.
func (o *OutputAdapter) Progress(message string) error {
	if o.quiet || o.format == JSONFormat {
		return nil
	}

	_, _ = fmt.Fprintf(o.writer, "\r%s", message)

	return nil
}

// Table outputs tabular data.
func (o *OutputAdapter) Table(headers []string, rows [][]string) error {
	if o.quiet {
		return nil
	}

	if o.format == JSONFormat {
		return o.outputJSON(map[string]interface{}{
			"headers": headers,
			"rows":    rows,
		})
	}

	w := tabwriter.NewWriter(o.writer, 0, 0, 2, ' ', 0)

	defer func() { _ = w.Flush() }()

	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))

	separators := make([]string, len(headers))
	for i := range headers {
		separators[i] = strings.Repeat("-", runewidth.StringWidth(headers[i]))
	}

	_, _ = fmt.Fprintln(w, strings.Join(separators, "\t"))

	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	return nil
}

// Apps outputs a list result. Quiet text output prints package names only.
func (o *OutputAdapter) Apps(result domain.ListResult) error {
	if o.format == JSONFormat {
		return o.outputJSON(result)
	}

	if o.quiet {
		for _, row := range result.Apps {
			_, _ = fmt.Fprintln(o.writer, row.PackageName)
		}

		return nil
	}

	title := result.Field
	if field, err := domain.ParseField(result.Field); err == nil {
		title = field.Title()
	}

	rows := make([][]string, 0, len(result.Apps))
	for _, row := range result.Apps {
		rows = append(rows, []string{TruncateName(row.Name), row.PackageName, row.Value})
	}

	if err := o.Table([]string{"Name", "Package", title}, rows); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(o.writer, "\n%d apps in %s\n", result.Total, result.Duration)

	return nil
}

// Summary outputs a summary result as a bar chart.
func (o *OutputAdapter) Summary(result domain.SummaryResult) error {
	if o.format == JSONFormat {
		return o.outputJSON(result)
	}

	if o.quiet {
		return nil
	}

	if len(result.Buckets) == 0 {
		_, _ = fmt.Fprintf(o.writer, "No summary for %s\n", result.Field)
		return nil
	}

	largest := 0
	for _, b := range result.Buckets {
		largest = max(largest, b.Count)
	}

	w := tabwriter.NewWriter(o.writer, 0, 0, 2, ' ', 0)

	for _, b := range result.Buckets {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", b.Label, b.Count, Bar(b.Count, largest, barWidth))
	}

	_ = w.Flush()

	_, _ = fmt.Fprintf(o.writer, "\n%d apps\n", result.Total)

	return nil
}

// Devices outputs the adb-visible devices.
func (o *OutputAdapter) Devices(devices []domain.DeviceInfo) error {
	if o.format == JSONFormat {
		return o.outputJSON(devices)
	}

	if len(devices) == 0 {
		return o.Info("No devices attached")
	}

	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []string{d.Serial, d.State, d.Model, d.Device})
	}

	return o.Table([]string{"Serial", "State", "Model", "Device"}, rows)
}

// IsQuiet returns true if output should be suppressed.
func (o *OutputAdapter) IsQuiet() bool {
	return o.quiet
}

func (o *OutputAdapter) outputJSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(data)
}

// TruncateName truncates name to MaxNameWidth display cells.
func TruncateName(name string) string {
	return runewidth.Truncate(name, MaxNameWidth, "…")
}

// Bar renders count relative to largest as a bar of at most width cells.
func Bar(count, largest, width int) string {
	if largest <= 0 || count <= 0 {
		return ""
	}

	n := max(count*width/largest, 1)

	return strings.Repeat("█", n)
}

// ParseOutputFormat parses a string into an OutputFormat.
func ParseOutputFormat(format string) (OutputFormat, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return TextFormat, nil
	case "json":
		return JSONFormat, nil
	default:
		return TextFormat, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// OutputFromContext creates an OutputAdapter from CLI context flags.
func OutputFromContext(jsonFlag, quietFlag bool) *OutputAdapter {
	format := TextFormat
	if jsonFlag {
		format = JSONFormat
	}

	return NewOutputAdapter(format, quietFlag)
}
