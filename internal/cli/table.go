package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Table renders rows of adapter state (subscriptions, discovered services)
// under fixed headers. Cells keep their Go type so JSON output stays typed
// and numeric columns line up on the right in text output.
type Table struct {
	out     *Output
	meta    Meta
	headers []string
	rows    [][]any
	caption string
}

// AddRow appends a row. Missing trailing cells render empty in text and are
// omitted from JSON objects; extra cells are ignored.
func (t *Table) AddRow(cells ...any) *Table {
	if len(cells) > len(t.headers) {
		cells = cells[:len(t.headers)]
	}
	t.rows = append(t.rows, cells)
	return t
}

// ForAdapter tags the table with the adapter that produced it.
func (t *Table) ForAdapter(name string) *Table {
	t.meta = t.meta.WithAdapter(name)
	return t
}

// Caption sets a line printed under the text and markdown tables.
func (t *Table) Caption(format string, args ...any) *Table {
	t.caption = fmt.Sprintf(format, args...)
	return t
}

// Len returns the number of rows added so far.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render outputs the table in the configured format.
func (t *Table) Render() error {
	return t.out.Render(t)
}

// Meta returns the table metadata.
func (t *Table) Meta() Meta {
	return t.meta
}

// RenderText writes a boxed table, or just the caption when there are no
// rows.
func (t *Table) RenderText(w io.Writer) error {
	if len(t.rows) == 0 {
		if t.caption == "" {
			return nil
		}
		_, err := fmt.Fprintln(w, t.caption)
		return err
	}
	tw := t.writer()
	tw.SetStyle(table.StyleLight)
	_, err := io.WriteString(w, tw.Render()+"\n")
	return err
}

// RenderJSON returns one object per row keyed by the snake_cased headers.
func (t *Table) RenderJSON() any {
	result := make([]map[string]any, 0, len(t.rows))
	for _, row := range t.rows {
		obj := make(map[string]any, len(row))
		for i, cell := range row {
			obj[toJSONKey(t.headers[i])] = normalize(cell)
		}
		result = append(result, obj)
	}
	return result
}

// RenderMarkdown writes a pipe table followed by the caption in italics.
func (t *Table) RenderMarkdown(w io.Writer) error {
	tw := t.writer()
	tw.SetCaption("")
	if _, err := io.WriteString(w, tw.RenderMarkdown()+"\n"); err != nil {
		return err
	}
	if t.caption != "" {
		_, err := fmt.Fprintf(w, "\n_%s_\n", t.caption)
		return err
	}
	return nil
}

func (t *Table) writer() table.Writer {
	tw := table.NewWriter()

	header := make(table.Row, len(t.headers))
	for i, h := range t.headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range t.rows {
		r := make(table.Row, len(t.headers))
		for i := range r {
			if i < len(row) {
				r[i] = cellText(row[i])
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(t.headers))
	for i := range t.headers {
		if t.numeric(i) {
			configs = append(configs, table.ColumnConfig{Number: i + 1, Align: text.AlignRight})
		}
	}
	tw.SetColumnConfigs(configs)

	if t.caption != "" {
		tw.SetCaption(t.caption)
	}
	return tw
}

// numeric reports whether every present cell in column i is a number.
func (t *Table) numeric(i int) bool {
	seen := false
	for _, row := range t.rows {
		if i >= len(row) {
			continue
		}
		switch normalize(row[i]).(type) {
		case int64, float64:
			seen = true
		default:
			return false
		}
	}
	return seen
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(x, ", ")
	default:
		return fmt.Sprint(x)
	}
}

// toJSONKey converts a header to a JSON key (lowercase, underscores).
func toJSONKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", "_"))
}
