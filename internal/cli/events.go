package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gezibash/netbridge/internal/filter"
)

// Event is one adapter callback as seen by the host: a discovered service,
// an inbound frame, a published message, a bot update or a notice.
type Event struct {
	Time    time.Time
	Adapter string
	Kind    string
	// Attrs use filter key names where one applies (service, name, host,
	// port, topic, text, size, chat) so expressions can select on them.
	Attrs map[string]any
}

// NewEvent builds an event from alternating key/value pairs. A trailing key
// without a value is dropped.
func NewEvent(adapter, kind string, kv ...any) Event {
	attrs := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			k = fmt.Sprint(kv[i])
		}
		attrs[k] = normalize(kv[i+1])
	}
	return Event{Time: time.Now(), Adapter: adapter, Kind: kind, Attrs: attrs}
}

// normalize widens integers to int64 so CEL comparisons against literals
// type-check the same way for every adapter.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n) //nolint:gosec // sizes and ids fit
	case time.Duration:
		return n.String()
	case fmt.Stringer:
		return n.String()
	}
	return v
}

// Fields returns the attributes plus adapter and kind, the activation a
// filter is evaluated against.
func (e Event) Fields() map[string]any {
	out := make(map[string]any, len(e.Attrs)+2)
	maps.Copy(out, e.Attrs)
	out["adapter"] = e.Adapter
	out["kind"] = e.Kind
	return out
}

// Line renders the event as a single text line:
//
//	15:04:05.000 bot text chat=42 text="hello"
func (e Event) Line() string {
	var b strings.Builder
	b.WriteString(e.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(e.Adapter)
	b.WriteByte(' ')
	b.WriteString(e.Kind)
	for _, k := range slices.Sorted(maps.Keys(e.Attrs)) {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(formatAttr(e.Attrs[k]))
	}
	return b.String()
}

func formatAttr(v any) string {
	switch x := v.(type) {
	case string:
		if x == "" || strings.ContainsAny(x, " \t\n\"=") {
			return strconv.Quote(x)
		}
		return x
	case []byte:
		return fmt.Sprintf("%dB", len(x))
	case []string:
		return strings.Join(x, ",")
	}
	return fmt.Sprint(v)
}

// Stream renders events as they arrive. Text output is one line per event,
// JSON output is newline-delimited objects and markdown output is a bullet
// list. Events rejected by the filter are counted but not rendered.
type Stream struct {
	out     *Output
	filter  *filter.Filter
	emit    func(Event)
	dropped int
}

// Stream creates an event stream on this output. A nil filter passes every
// event.
func (o *Output) Stream(f *filter.Filter) *Stream {
	s := &Stream{out: o, filter: f}
	s.emit = s.write
	return s
}

// To redirects accepted events to fn instead of the output, for instance to
// a terminal UI.
func (s *Stream) To(fn func(Event)) *Stream {
	if fn != nil {
		s.emit = fn
	}
	return s
}

// Emit filters and renders ev, reporting whether it was accepted.
func (s *Stream) Emit(ev Event) bool {
	if !s.filter.Match(ev.Fields()) {
		s.dropped++
		return false
	}
	s.emit(ev)
	return true
}

// Dropped returns how many events the filter rejected.
func (s *Stream) Dropped() int {
	return s.dropped
}

func (s *Stream) write(ev Event) {
	s.out.mu.Lock()
	defer s.out.mu.Unlock()
	_ = writeEvent(s.out.w, s.out.format, ev)
}

func writeEvent(w io.Writer, format Format, ev Event) error {
	switch format {
	case FormatJSON:
		obj := make(map[string]any, len(ev.Attrs)+3)
		for k, v := range ev.Attrs {
			obj[toJSONKey(k)] = v
		}
		obj["time"] = ev.Time.UTC().Format(time.RFC3339Nano)
		obj["adapter"] = ev.Adapter
		obj["kind"] = ev.Kind
		return json.NewEncoder(w).Encode(obj)
	case FormatMarkdown:
		var b strings.Builder
		fmt.Fprintf(&b, "- `%s` **%s/%s**", ev.Time.Format("15:04:05.000"), ev.Adapter, ev.Kind)
		for i, k := range slices.Sorted(maps.Keys(ev.Attrs)) {
			sep := ", "
			if i == 0 {
				sep = " "
			}
			fmt.Fprintf(&b, "%s%s: %s", sep, k, formatMarkdownValue(formatAttr(ev.Attrs[k])))
		}
		b.WriteByte('\n')
		_, err := io.WriteString(w, b.String())
		return err
	default:
		_, err := io.WriteString(w, ev.Line()+"\n")
		return err
	}
}
