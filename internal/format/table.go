package format

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// WriteTable renders the "data" value of an output envelope: a list of objects
// becomes one row per object, a single object becomes field/value rows.
// pretty adds borders around every cell.
func WriteTable(w io.Writer, v any, pretty bool) error {
	x, err := generic(v)
	if err != nil {
		return err
	}
	if env, ok := x.(map[string]any); ok {
		if data, ok := env["data"]; ok {
			x = data
		}
	}

	var headers []string
	var rows [][]string
	switch t := x.(type) {
	case []any:
		headers, rows = listRows(t)
	case map[string]any:
		headers = []string{"field", "value"}
		for _, k := range sortedKeys(t) {
			rows = append(rows, []string{k, Cell(t[k])})
		}
	default:
		_, err := fmt.Fprintln(w, Cell(t))
		return err
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(no rows)")
		return err
	}

	tbl := table.New().
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			return s
		})
	if pretty {
		tbl = tbl.Border(lipgloss.RoundedBorder())
	} else {
		tbl = tbl.Border(lipgloss.HiddenBorder()).
			BorderTop(false).
			BorderBottom(false).
			BorderLeft(false).
			BorderRight(false).
			BorderColumn(false)
	}
	_, err = fmt.Fprintln(w, tbl.Render())
	return err
}

// listRows collects the union of top-level keys, "id" first.
func listRows(xs []any) ([]string, [][]string) {
	seen := map[string]bool{}
	var cols []string
	for _, it := range xs {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		for k := range m {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Slice(cols, func(i, j int) bool {
		if cols[i] == "id" || cols[j] == "id" {
			return cols[i] == "id"
		}
		return cols[i] < cols[j]
	})

	if len(cols) == 0 {
		rows := make([][]string, 0, len(xs))
		for _, it := range xs {
			rows = append(rows, []string{Cell(it)})
		}
		return []string{"value"}, rows
	}

	rows := make([][]string, 0, len(xs))
	for _, it := range xs {
		m, _ := it.(map[string]any)
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = Cell(m[c])
		}
		rows = append(rows, row)
	}
	return cols, rows
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Cell renders a decoded JSON value as single-line text.
func Cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if float64(int64(t)) == t {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
