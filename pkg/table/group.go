package table

import "fmt"

// CountSpec describes one count column of a grouped aggregation. When Column
// is empty the count is unconditional (group size); otherwise only rows whose
// rendered value in Column equals Equals are counted.
type CountSpec struct {
	Name   string
	Column string
	Equals string
}

// GroupCount groups the table by the rendered values of groupColumn and
// computes one int count column per spec. Groups appear in first-occurrence
// order; rows with a null group key are dropped.
func GroupCount(t *Table, groupColumn string, specs []CountSpec) (*Table, error) {
	groupCol := t.Column(groupColumn)
	if groupCol == nil {
		return nil, fmt.Errorf("group column %q not found", groupColumn)
	}

	condCols := make([]*Column, len(specs))
	for i, spec := range specs {
		if spec.Column == "" {
			continue
		}
		col := t.Column(spec.Column)
		if col == nil {
			return nil, fmt.Errorf("count column %q not found", spec.Column)
		}
		condCols[i] = col
	}

	var keys []string
	counts := make(map[string][]int64)
	for i := 0; i < groupCol.Len(); i++ {
		if groupCol.IsNull(i) {
			continue
		}
		k := groupCol.Render(i)
		row, seen := counts[k]
		if !seen {
			row = make([]int64, len(specs))
			counts[k] = row
			keys = append(keys, k)
		}
		for s, spec := range specs {
			if condCols[s] == nil {
				row[s]++
				continue
			}
			if !condCols[s].IsNull(i) && condCols[s].Render(i) == spec.Equals {
				row[s]++
			}
		}
	}

	cols := make([]*Column, 0, len(specs)+1)
	cols = append(cols, NewStringColumn(groupColumn, keys))
	for s, spec := range specs {
		values := make([]int64, len(keys))
		for i, k := range keys {
			values[i] = counts[k][s]
		}
		cols = append(cols, NewIntColumn(spec.Name, values))
	}
	return New(cols...)
}
