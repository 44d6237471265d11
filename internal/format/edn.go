package format

import (
	"io"
	"sort"
	"strconv"
	"strings"
)

// WriteEDN writes the EDN subset our payloads need: maps (keys as keywords),
// vectors, strings, numbers, booleans and nil.
func WriteEDN(w io.Writer, v any, pretty bool) error {
	x, err := generic(v)
	if err != nil {
		return err
	}
	var sb strings.Builder
	e := ednWriter{sb: &sb, pretty: pretty}
	e.value(x, 0)
	sb.WriteByte('\n')
	_, err = io.WriteString(w, sb.String())
	return err
}

type ednWriter struct {
	sb     *strings.Builder
	pretty bool
}

func (e ednWriter) value(v any, depth int) {
	switch t := v.(type) {
	case nil:
		e.sb.WriteString("nil")
	case bool:
		e.sb.WriteString(strconv.FormatBool(t))
	case string:
		e.sb.WriteString(strconv.Quote(t))
	case float64:
		if float64(int64(t)) == t {
			e.sb.WriteString(strconv.FormatInt(int64(t), 10))
			return
		}
		e.sb.WriteString(strconv.FormatFloat(t, 'f', -1, 64))
	case []any:
		e.seq('[', ']', len(t), depth, func(i int) { e.value(t[i], depth+1) })
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e.seq('{', '}', len(keys), depth, func(i int) {
			e.sb.WriteString(keyword(keys[i]))
			e.sb.WriteByte(' ')
			e.value(t[keys[i]], depth+1)
		})
	default:
		e.sb.WriteString(strconv.Quote(Cell(t)))
	}
}

// seq writes n elements between open and end, one per line when pretty.
func (e ednWriter) seq(open, end byte, n, depth int, elem func(i int)) {
	e.sb.WriteByte(open)
	for i := 0; i < n; i++ {
		switch {
		case e.pretty:
			e.sb.WriteByte('\n')
			e.sb.WriteString(strings.Repeat("  ", depth+1))
		case i > 0:
			e.sb.WriteByte(' ')
		}
		elem(i)
	}
	if e.pretty && n > 0 {
		e.sb.WriteByte('\n')
		e.sb.WriteString(strings.Repeat("  ", depth))
	}
	e.sb.WriteByte(end)
}

// keyword turns a JSON key into an EDN keyword (":userId", ":_hints").
func keyword(k string) string {
	k = strings.Join(strings.Fields(k), "-")
	if k == "" {
		return `:_`
	}
	return ":" + k
}
