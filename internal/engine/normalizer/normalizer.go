package normalizer

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/crimson-sun/ucrf/internal/model"
)

// synonyms maps normalized source column names to canonical ones.
var synonyms = map[string]string{
	"manufacturer": model.ColMake,
}

// Normalize merges raw source tables into a single canonical table.
//
// Column names are trimmed, lower-cased and mapped through the synonym
// table per source. Rows are concatenated in source order and then
// deduplicated on the identity triple (make, model, year): the last
// occurrence wins and keeps its position. Rows missing any part of the
// identity are kept as-is and never deduplicated.
func Normalize(tables ...model.Table) model.Table {
	if len(tables) == 0 {
		return model.Table{}
	}

	lower := cases.Lower(language.Und)
	var (
		columns []string
		seen    = make(map[string]bool)
		rows    []model.Row
	)
	for _, t := range tables {
		header := headerOf(t)
		rename := make(map[string]string, len(header))
		for _, c := range header {
			name := lower.String(strings.TrimSpace(c))
			if canonical, ok := synonyms[name]; ok {
				name = canonical
			}
			rename[c] = name
			if !seen[name] {
				seen[name] = true
				columns = append(columns, name)
			}
		}
		for _, r := range t.Rows {
			out := make(model.Row, len(r))
			// Header order decides collisions: the later raw column wins.
			for _, c := range header {
				if v, ok := r[c]; ok {
					out[rename[c]] = v
				}
			}
			rows = append(rows, out)
		}
	}

	return model.Table{Columns: columns, Rows: dedupLast(rows)}
}

// headerOf returns the table's declared columns followed by any row keys
// the header does not list, sorted.
func headerOf(t model.Table) []string {
	header := t.ColumnNames()
	listed := make(map[string]bool, len(header))
	for _, c := range header {
		listed[c] = true
	}
	var extra []string
	for _, r := range t.Rows {
		for k := range r {
			if !listed[k] {
				listed[k] = true
				extra = append(extra, k)
			}
		}
	}
	if len(extra) == 0 {
		return header
	}
	sort.Strings(extra)
	return append(append([]string(nil), header...), extra...)
}

// identity is the dedup key of a canonical row.
type identity struct {
	make, model, year any
}

// dedupLast drops every keyed row that has a later duplicate.
func dedupLast(rows []model.Row) []model.Row {
	last := make(map[identity]int, len(rows))
	keys := make([]*identity, len(rows))
	for i, r := range rows {
		k, ok := identityOf(r)
		if !ok {
			continue
		}
		keys[i] = &k
		last[k] = i
	}

	out := make([]model.Row, 0, len(last))
	for i, r := range rows {
		if keys[i] != nil && last[*keys[i]] != i {
			continue
		}
		out = append(out, r)
	}
	return out
}

func identityOf(r model.Row) (identity, bool) {
	mk, ok1 := keyPart(r[model.ColMake])
	md, ok2 := keyPart(r[model.ColModel])
	yr, ok3 := keyPart(r[model.ColYear])
	if !ok1 || !ok2 || !ok3 {
		return identity{}, false
	}
	return identity{make: mk, model: md, year: yr}, true
}

// keyPart makes a scalar usable as a map key. Integral floats compare
// equal to ints so 2020 and 2020.0 are the same year.
func keyPart(v any) (any, bool) {
	if model.IsMissing(v) {
		return nil, false
	}
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<63 {
			return int64(x), true
		}
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case string, int64, bool:
		return x, true
	}
	return model.Text(v), true
}
