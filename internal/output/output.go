package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
)

// Formatter renders command output as aligned text or JSON.
type Formatter struct {
	Writer   io.Writer
	JSONMode bool
}

// New creates a new Formatter with the specified writer and JSON mode.
func New(w io.Writer, jsonMode bool) *Formatter {
	return &Formatter{
		Writer:   w,
		JSONMode: jsonMode,
	}
}

// Field is one labelled value of a Detail view.
type Field struct {
	Label string
	Value string
}

// Table outputs rows under headers, or a JSON array of objects keyed by
// header in JSON mode.
func (f *Formatter) Table(headers []string, rows [][]string) error {
	if f.JSONMode {
		return f.tableAsJSON(headers, rows)
	}
	return f.tableAsText(headers, rows)
}

func (f *Formatter) tableAsText(headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(tw, strings.Join(headers, "\t")); err != nil {
		return err
	}

	separators := make([]string, len(headers))
	for i, h := range headers {
		separators[i] = strings.Repeat("-", len(h))
	}
	if _, err := fmt.Fprintln(tw, strings.Join(separators, "\t")); err != nil {
		return err
	}

	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func (f *Formatter) tableAsJSON(headers []string, rows [][]string) error {
	result := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(row) {
				obj[header] = row[i]
			} else {
				obj[header] = ""
			}
		}
		result = append(result, obj)
	}
	return f.Print(result)
}

// Detail prints label/value pairs one per line, or a JSON object in JSON
// mode. Empty values are skipped in text mode.
func (f *Formatter) Detail(fields []Field) error {
	if f.JSONMode {
		obj := make(map[string]string, len(fields))
		for _, field := range fields {
			obj[field.Label] = field.Value
		}
		return f.Print(obj)
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	for _, field := range fields {
		if field.Value == "" {
			continue
		}
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", field.Label, field.Value); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Empty reports that there is nothing to show: msg in text mode, an empty
// JSON array otherwise.
func (f *Formatter) Empty(msg string) error {
	if f.JSONMode {
		return f.Print([]any{})
	}
	_, err := fmt.Fprintln(f.Writer, msg)
	return err
}

// Print outputs data as indented JSON, or with %v in text mode.
func (f *Formatter) Print(data any) error {
	if f.JSONMode {
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	}

	_, err := fmt.Fprintf(f.Writer, "%v\n", data)
	return err
}

// Money formats d as a dollar amount with two decimals.
func Money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// OptionalMoney formats d, or returns "-" when d is zero.
func OptionalMoney(d decimal.Decimal) string {
	if d.IsZero() {
		return "-"
	}
	return Money(d)
}

// Percent formats d, already in percent units, with two decimals.
func Percent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}
