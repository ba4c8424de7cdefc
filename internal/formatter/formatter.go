// Package formatter renders query results, schemas and history for the terminal.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/executor"
	"github.com/kyleking/askdb/internal/storage"
	"github.com/kyleking/askdb/internal/types"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable    OutputFormat = "table"
	FormatCSV      OutputFormat = "csv"
	FormatJSON     OutputFormat = "json"
	FormatMarkdown OutputFormat = "markdown"
)

// Formats lists the accepted output formats
var Formats = []OutputFormat{FormatTable, FormatCSV, FormatJSON, FormatMarkdown}

// ParseFormat accepts a format name; "md" is an alias for markdown
func ParseFormat(name string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "table":
		return FormatTable, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", errors.Newf(errors.ErrTypeValidation, "unknown output format %q", name).
			WithSuggestion("Use one of: table, csv, json, markdown")
	}
}

// Formatter handles result output formatting
type Formatter struct {
	now func() time.Time
}

// NewFormatter creates a new formatter instance
func NewFormatter() *Formatter {
	return &Formatter{now: time.Now}
}

// FormatResult writes result to w in format
func (f *Formatter) FormatResult(w io.Writer, result *executor.Result, format OutputFormat) error {
	switch format {
	case FormatCSV:
		return f.formatCSV(w, result)
	case FormatJSON:
		return f.formatJSON(w, result)
	case FormatMarkdown:
		return f.formatMarkdown(w, result)
	default:
		return f.formatTable(w, result)
	}
}

func (f *Formatter) formatTable(w io.Writer, result *executor.Result) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(result.Columns))
	for i, name := range result.ColumnNames() {
		header[i] = name
	}

	t.AppendHeader(header)

	for _, values := range result.Rows {
		row := make(table.Row, len(values))
		for i, v := range values {
			row[i] = FormatValue(v)
		}

		t.AppendRow(row)
	}

	t.Render()

	_, err := fmt.Fprintf(w, "(%s)\n", rowCount(result.Len()))

	return err
}

func (f *Formatter) formatCSV(w io.Writer, result *executor.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(result.ColumnNames()); err != nil {
		return err
	}

	for _, values := range result.Rows {
		record := make([]string, len(values))
		for i, v := range values {
			if v != nil {
				record[i] = FormatValue(v)
			}
		}

		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// orderedRow marshals as a JSON object keeping column order
type orderedRow struct {
	names  []string
	values []any
}

func (r orderedRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(jsonValue(r.values[i]))
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func jsonValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return formatTime(t)
	}

	return v
}

func (f *Formatter) formatJSON(w io.Writer, result *executor.Result) error {
	names := result.ColumnNames()
	rows := make([]orderedRow, len(result.Rows))

	for i, values := range result.Rows {
		rows[i] = orderedRow{names: names, values: values}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(rows)
}

func (f *Formatter) formatMarkdown(w io.Writer, result *executor.Result) error {
	var b strings.Builder

	names := result.ColumnNames()
	cells := make([]string, len(names))

	for i, name := range names {
		cells[i] = escapeMarkdown(name)
	}

	fmt.Fprintf(&b, "| %s |\n", strings.Join(cells, " | "))

	for i := range cells {
		cells[i] = "---"
	}

	fmt.Fprintf(&b, "| %s |\n", strings.Join(cells, " | "))

	for _, values := range result.Rows {
		for i, v := range values {
			cells[i] = escapeMarkdown(FormatValue(v))
		}

		fmt.Fprintf(&b, "| %s |\n", strings.Join(cells, " | "))
	}

	fmt.Fprintf(&b, "\n_%s_\n", rowCount(result.Len()))

	_, err := io.WriteString(w, b.String())

	return err
}

// FormatSchema writes one table per section with its columns
func (f *Formatter) FormatSchema(w io.Writer, schema types.Schema) error {
	if len(schema.Tables) == 0 {
		_, err := fmt.Fprintln(w, "No tables found")
		return err
	}

	for i, tbl := range schema.Tables {
		if i > 0 {
			fmt.Fprintln(w)
		}

		fmt.Fprintf(w, "Table: %s\n", tbl.Name)

		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Column", "Type"})

		for _, col := range tbl.Columns {
			colType := col.Type
			if colType == "" {
				colType = "-"
			}

			t.AppendRow(table.Row{col.Name, colType})
		}

		t.Render()
	}

	return nil
}

// FormatSchemaJSON writes the schema as indented JSON
func (f *Formatter) FormatSchemaJSON(w io.Writer, schema types.Schema) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(schema)
}

// FormatHistory writes history entries newest first
func (f *Formatter) FormatHistory(w io.Writer, entries []storage.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No questions asked yet")
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"When", "Question", "Source", "Status", "Rows"})

	for _, e := range entries {
		t.AppendRow(table.Row{
			f.humanizeAge(e.CreatedAt),
			truncate(e.Question, 60),
			e.Source,
			string(e.Status),
			e.RowCount,
		})
	}

	t.Render()

	return nil
}

// FormatHistoryStats writes the status breakdown of the history store
func (f *Formatter) FormatHistoryStats(w io.Writer, stats *storage.Stats) error {
	fmt.Fprintf(w, "Questions: %d\n", stats.TotalEntries)

	for _, status := range []storage.Status{storage.StatusOK, storage.StatusRejected, storage.StatusFailed} {
		fmt.Fprintf(w, "  %-9s %d\n", status, stats.ByStatus[status])
	}

	fmt.Fprintf(w, "Last asked: %s\n", f.humanizeAge(stats.LastAskedAt))
	_, err := fmt.Fprintf(w, "Database size: %.2f MB\n", stats.DatabaseSizeMB)

	return err
}

// FormatValue renders a single cell; nil becomes NULL
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return formatTime(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatTime drops the clock for date-only values
func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}

	return t.Format(time.RFC3339)
}

func rowCount(n int) string {
	if n == 1 {
		return "1 row"
	}

	return fmt.Sprintf("%d rows", n)
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n-3] + "..."
}

// humanizeAge converts a time to a human-readable age string
func (f *Formatter) humanizeAge(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	duration := f.now().Sub(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		return plural(int(duration.Minutes()), "minute") + " ago"
	case duration < 24*time.Hour:
		return plural(int(duration.Hours()), "hour") + " ago"
	}

	days := int(duration.Hours() / 24)

	switch {
	case days < 30:
		return plural(days, "day") + " ago"
	case days < 365:
		return plural(days/30, "month") + " ago"
	default:
		return plural(days/365, "year") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}

	return fmt.Sprintf("%d %ss", n, unit)
}
