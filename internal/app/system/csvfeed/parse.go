// Package csvfeed turns published spreadsheet CSV exports into typed,
// cached feeds. Parse handles the loose CSV that spreadsheet tools emit;
// Feed adds fetching, a TTL cache, single-flight refresh and a fallback.
package csvfeed

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

// Row is one parsed record keyed by header. Values are string, int (for
// numeric columns) or []string (for list columns).
type Row map[string]any

// Options controls header handling and per-column coercion.
type Options struct {
	LowercaseHeaders bool
	NumericColumns   []string
	ListColumns      []string
	ListSeparator    string // default ";"
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse reads CSV text. The first record is the header. Quoted fields may
// contain commas, records may be ragged (missing trailing cells are left
// out of the row), and rows whose values are all empty or zero are dropped.
// Input with fewer than two records yields an empty result.
func Parse(r io.Reader, opts Options) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Row{}, nil
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		h = strings.TrimSpace(unquote(h))
		if opts.LowercaseHeaders {
			h = strings.ToLower(h)
		}
		headers[i] = h
	}

	numeric := toSet(opts.NumericColumns)
	lists := toSet(opts.ListColumns)
	sep := opts.ListSeparator
	if sep == "" {
		sep = ";"
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, len(headers))
		for i, h := range headers {
			if h == "" || i >= len(rec) {
				continue
			}
			v := strings.TrimSpace(unquote(strings.TrimSpace(rec[i])))
			switch {
			case numeric[h]:
				n, err := strconv.Atoi(v)
				if err != nil {
					n = 0
				}
				row[h] = n
			case lists[h]:
				row[h] = splitList(v, sep)
			default:
				row[h] = v
			}
		}
		if !isBlank(row) {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func splitList(v, sep string) []string {
	out := []string{}
	if v == "" {
		return out
	}
	for _, item := range strings.Split(v, sep) {
		if item = strings.TrimSpace(unquote(strings.TrimSpace(item))); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// unquote strips one leading and one trailing double quote.
func unquote(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}

func isBlank(row Row) bool {
	for _, v := range row {
		switch t := v.(type) {
		case string:
			if t != "" {
				return false
			}
		case int:
			if t != 0 {
				return false
			}
		case []string:
			if len(t) > 0 {
				return false
			}
		}
	}
	return true
}

func toSet(xs []string) map[string]bool {
	m := make(map[string]bool, len(xs))
	for _, x := range xs {
		m[x] = true
	}
	return m
}

// String returns the string value of key, or "".
func (r Row) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Int returns the int value of key, or 0.
func (r Row) Int(key string) int {
	n, _ := r[key].(int)
	return n
}

// List returns the list value of key. The result is never nil.
func (r Row) List(key string) []string {
	if l, ok := r[key].([]string); ok {
		return l
	}
	return []string{}
}
