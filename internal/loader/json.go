package loader

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/KaramelBytes/edaloom-cli/internal/dataset"
	"github.com/tidwall/gjson"
)

type jsonLoader struct{}

func (jsonLoader) Format() string { return "json" }

func (jsonLoader) Extensions() []string { return []string{".json"} }

// Load accepts an array of records ([{"a":1}, ...]) or a column mapping
// ({"a": [1, 2]} or {"a": {"0": 1, "1": 2}}). Column order follows the
// first appearance of each key.
func (jsonLoader) Load(data []byte, _ Options) (*dataset.Dataset, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON document")
	}
	root := gjson.ParseBytes(data)
	switch {
	case root.IsArray():
		return loadRecords(root)
	case root.IsObject():
		return loadColumns(root)
	default:
		return nil, fmt.Errorf("expected an array of records or an object of columns, got %s", root.Type)
	}
}

type jsonTable struct {
	names []string
	index map[string]int
	cells [][]gjson.Result
}

func newJSONTable() *jsonTable { return &jsonTable{index: map[string]int{}} }

func (t *jsonTable) column(name string) int {
	if j, ok := t.index[name]; ok {
		return j
	}
	t.index[name] = len(t.names)
	t.names = append(t.names, name)
	return len(t.names) - 1
}

func (t *jsonTable) set(row, col int, v gjson.Result) {
	for len(t.cells) <= row {
		t.cells = append(t.cells, nil)
	}
	for len(t.cells[row]) <= col {
		t.cells[row] = append(t.cells[row], gjson.Result{})
	}
	t.cells[row][col] = v
}

func loadRecords(root gjson.Result) (*dataset.Dataset, error) {
	t := newJSONTable()
	var err error
	n := 0
	root.ForEach(func(_, rec gjson.Result) bool {
		if !rec.IsObject() {
			err = fmt.Errorf("record %d is not an object", n)
			return false
		}
		t.set(n, 0, gjson.Result{})
		rec.ForEach(func(k, v gjson.Result) bool {
			t.set(n, t.column(k.String()), v)
			return true
		})
		n++
		return true
	})
	if err != nil {
		return nil, err
	}
	return t.build(), nil
}

func loadColumns(root gjson.Result) (*dataset.Dataset, error) {
	t := newJSONTable()
	var err error
	root.ForEach(func(k, col gjson.Result) bool {
		j := t.column(k.String())
		switch {
		case col.IsArray():
			i := 0
			col.ForEach(func(_, v gjson.Result) bool {
				t.set(i, j, v)
				i++
				return true
			})
		case col.IsObject():
			// index keys are row labels; order rows by numeric label when possible
			type labeled struct {
				key string
				v   gjson.Result
			}
			var cells []labeled
			col.ForEach(func(ik, v gjson.Result) bool {
				cells = append(cells, labeled{ik.String(), v})
				return true
			})
			sort.SliceStable(cells, func(a, b int) bool {
				x, errA := strconv.Atoi(cells[a].key)
				y, errB := strconv.Atoi(cells[b].key)
				if errA != nil || errB != nil {
					return false
				}
				return x < y
			})
			for i, c := range cells {
				t.set(i, j, c.v)
			}
		default:
			err = fmt.Errorf("column %q is neither an array nor an object", k.String())
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return t.build(), nil
}

// build types the collected cells. A column is numeric when every
// non-null cell is a JSON number.
func (t *jsonTable) build() *dataset.Dataset {
	width := len(t.names)
	cols := make([]dataset.Column, width)
	for j, name := range t.names {
		typ := dataset.Numeric
		for _, row := range t.cells {
			if j >= len(row) {
				continue
			}
			v := row[j]
			if v.Type == gjson.Null {
				continue
			}
			if v.Type != gjson.Number {
				typ = dataset.Categorical
				break
			}
		}
		cols[j] = dataset.Column{Name: name, Type: typ}
	}
	rows := make([]dataset.Row, 0, len(t.cells))
	for _, cells := range t.cells {
		row := make(dataset.Row, width)
		for j := 0; j < width; j++ {
			if j >= len(cells) {
				row[j] = dataset.Null()
				continue
			}
			row[j] = jsonValue(cells[j], cols[j].Type)
		}
		rows = append(rows, row)
	}
	return &dataset.Dataset{Columns: cols, Rows: rows}
}

func jsonValue(v gjson.Result, typ dataset.ColumnType) dataset.Value {
	switch v.Type {
	case gjson.Null:
		return dataset.Null()
	case gjson.Number:
		if typ == dataset.Numeric {
			return dataset.Number(v.Num)
		}
		return dataset.Text(v.Raw)
	case gjson.True:
		return dataset.Text("true")
	case gjson.False:
		return dataset.Text("false")
	case gjson.String:
		return dataset.Text(v.Str)
	default:
		return dataset.Text(v.Raw)
	}
}
