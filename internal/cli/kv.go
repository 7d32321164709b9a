package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// KV renders key-value pairs using go-pretty table.
// Created via Output.KV().
type KV struct {
	out   *Output
	meta  Meta
	pairs []kvPair
}

type kvPair struct {
	key   string
	value any
}

// Set adds a key-value pair. Value can be any type.
func (k *KV) Set(key string, value any) *KV {
	k.pairs = append(k.pairs, kvPair{key: key, value: value})
	return k
}

// ForAdapter tags the pairs with the adapter that produced them.
func (k *KV) ForAdapter(name string) *KV {
	k.meta = k.meta.WithAdapter(name)
	return k
}

// Render outputs the key-value pairs in the configured format.
func (k *KV) Render() error {
	return k.out.Render(k)
}

// Meta returns the metadata.
func (k *KV) Meta() Meta {
	return k.meta
}

// RenderText writes aligned key: value pairs using go-pretty.
func (k *KV) RenderText(w io.Writer) error {
	if len(k.pairs) == 0 {
		return nil
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.SeparateHeader = false

	for _, p := range k.pairs {
		tw.AppendRow(table.Row{p.key + ":", fmt.Sprintf("%v", p.value)})
	}

	_, err := io.WriteString(w, tw.Render()+"\n")
	return err
}

// RenderJSON returns the data as an object.
func (k *KV) RenderJSON() any {
	result := make(map[string]any, len(k.pairs))
	for _, p := range k.pairs {
		result[toJSONKey(p.key)] = p.value
	}
	return result
}

// RenderMarkdown writes key-value pairs as a definition-style list.
func (k *KV) RenderMarkdown(w io.Writer) error {
	for _, p := range k.pairs {
		value := formatMarkdownValue(p.value)
		if _, err := fmt.Fprintf(w, "**%s:** %s\n\n", p.key, value); err != nil {
			return err
		}
	}
	return nil
}

// formatMarkdownValue formats a value for markdown output.
func formatMarkdownValue(v any) string {
	s := fmt.Sprintf("%v", v)

	// Service names, topics and URLs read better as code.
	if looksLikeName(s) {
		return "`" + s + "`"
	}

	return strings.ReplaceAll(s, "|", "\\|")
}

// looksLikeName reports whether s is a dotted mDNS name, a slash-separated
// topic or a URL.
func looksLikeName(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\n`") {
		return false
	}
	switch {
	case strings.Contains(s, "://"):
		return true
	case strings.HasPrefix(s, "_") && strings.Contains(s, "."):
		return true
	case strings.HasSuffix(s, ".local.") || strings.HasSuffix(s, ".local"):
		return true
	case strings.Count(s, "/") >= 1 && !strings.HasPrefix(s, "/"):
		return true
	}
	return false
}
