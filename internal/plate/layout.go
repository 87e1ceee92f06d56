// Package plate maps multi-well plate selections to stage coordinates and
// samples spaced acquisition points inside each selected well.
package plate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/joaomamede/lowCostHCA/internal/geometry"
	"github.com/joaomamede/lowCostHCA/internal/pointlist"
)

// MaxRows bounds plate layouts to single-letter row labels.
const MaxRows = 26

// Layout is the well grid of a plate.
type Layout struct {
	Rows int `json:"rows" yaml:"rows"`
	Cols int `json:"cols" yaml:"cols"`
}

// Standard96 is the 8x12 plate.
var Standard96 = Layout{Rows: 8, Cols: 12}

// Well is one well position. Index is 1-based row-major.
type Well struct {
	Index int `json:"index"`
	Row   int `json:"row"` // 0-based
	Col   int `json:"col"` // 1-based
}

// ID returns the well label, e.g. "B7".
func (w Well) ID() string {
	return geometry.RowLabel(w.Row) + strconv.Itoa(w.Col)
}

// Validate checks the layout dimensions.
func (l Layout) Validate() error {
	if l.Rows < 1 || l.Rows > MaxRows {
		return pointlist.Validationf("plate rows must be in [1, %d], got %d", MaxRows, l.Rows)
	}
	if l.Cols < 1 {
		return pointlist.Validationf("plate columns must be positive, got %d", l.Cols)
	}
	return nil
}

// Wells returns the number of wells on the plate.
func (l Layout) Wells() int { return l.Rows * l.Cols }

// Well resolves a 1-based well index.
func (l Layout) Well(index int) (Well, error) {
	if index < 1 || index > l.Wells() {
		return Well{}, pointlist.Validationf("well index %d outside plate (1..%d)", index, l.Wells())
	}
	return Well{
		Index: index,
		Row:   (index - 1) / l.Cols,
		Col:   (index-1)%l.Cols + 1,
	}, nil
}

// WellID maps a 1-based index to its label: 1 -> A1, 13 -> B1 on a 96 plate.
func (l Layout) WellID(index int) (string, error) {
	w, err := l.Well(index)
	if err != nil {
		return "", err
	}
	return w.ID(), nil
}

// ParseWellID resolves a label such as "H12". Lower-case row letters are accepted.
func (l Layout) ParseWellID(id string) (Well, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	split := strings.IndexFunc(id, func(r rune) bool { return r >= '0' && r <= '9' })
	if split <= 0 {
		return Well{}, pointlist.Validationf("invalid well id %q", id)
	}
	row := geometry.RowIndex(id[:split])
	col, err := strconv.Atoi(id[split:])
	if row < 0 || err != nil {
		return Well{}, pointlist.Validationf("invalid well id %q", id)
	}
	if row >= l.Rows || col < 1 || col > l.Cols {
		return Well{}, pointlist.Validationf("well %s outside %dx%d plate", id, l.Rows, l.Cols)
	}
	return Well{Index: row*l.Cols + col, Row: row, Col: col}, nil
}

// ParseSelection resolves selection items into well indices. Each item is a
// well ID ("A1"), a 1-based index ("13") or a rectangular range ("A1:B3").
// Duplicates are dropped; order is not significant.
func (l Layout) ParseSelection(items []string) ([]int, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[int]bool)
	var out []int
	add := func(i int) {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}

	for _, raw := range items {
		for _, item := range strings.Split(raw, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}

			if from, to, ok := strings.Cut(item, ":"); ok {
				a, err := l.ParseWellID(from)
				if err != nil {
					return nil, err
				}
				b, err := l.ParseWellID(to)
				if err != nil {
					return nil, err
				}
				for _, w := range l.Range(a, b) {
					add(w.Index)
				}
				continue
			}

			if n, err := strconv.Atoi(item); err == nil {
				if _, err := l.Well(n); err != nil {
					return nil, err
				}
				add(n)
				continue
			}

			w, err := l.ParseWellID(item)
			if err != nil {
				return nil, err
			}
			add(w.Index)
		}
	}
	return out, nil
}

// Range returns every well in the rectangle spanned by a and b, in row-major order.
func (l Layout) Range(a, b Well) []Well {
	r0, r1 := minMax(a.Row, b.Row)
	c0, c1 := minMax(a.Col, b.Col)
	var out []Well
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			out = append(out, Well{Index: r*l.Cols + c, Row: r, Col: c})
		}
	}
	return out
}

// SnakeOrder orders selected wells along the plate scan path: rows top to
// bottom, columns ascending on even rows and descending on odd rows.
// Duplicate indices collapse to one visit.
func (l Layout) SnakeOrder(indices []int) ([]Well, error) {
	byRow := make(map[int][]Well)
	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if seen[idx] {
			continue
		}
		seen[idx] = true
		w, err := l.Well(idx)
		if err != nil {
			return nil, err
		}
		byRow[w.Row] = append(byRow[w.Row], w)
	}

	out := make([]Well, 0, len(seen))
	for row := 0; row < l.Rows; row++ {
		wells := byRow[row]
		if len(wells) == 0 {
			continue
		}
		if row%2 == 0 {
			sort.Slice(wells, func(i, j int) bool { return wells[i].Col < wells[j].Col })
		} else {
			sort.Slice(wells, func(i, j int) bool { return wells[i].Col > wells[j].Col })
		}
		out = append(out, wells...)
	}
	return out, nil
}

// Summary renders a visiting order the way the selection panel shows it.
func Summary(wells []Well) string {
	ids := make([]string, len(wells))
	for i, w := range wells {
		ids[i] = w.ID()
	}
	return fmt.Sprintf("Selected Wells: %s", strings.Join(ids, ", "))
}

func minMax(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}
