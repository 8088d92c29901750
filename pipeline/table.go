package pipeline

import (
	"strings"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

// Fixed column names.
const (
	ColumnProductID = "Product ID"
	ColumnTitle     = "Title"
	ColumnPrice     = "Price"
	ColumnBrand     = "Brand"
	ColumnCategory  = "Category"
)

// FeatureValueSeparator joins the values of a multi-valued feature cell.
const FeatureValueSeparator = " | "

// FixedColumns lead every table, in this order.
var FixedColumns = []string{ColumnProductID, ColumnTitle, ColumnPrice, ColumnBrand}

// Row maps column names to cell values. A missing key is a null cell.
type Row map[string]string

// Table is an ordered set of columns and rows.
type Table struct {
	Columns []string
	Rows    []Row
}

// Cell returns the value at row i, column name.
func (t *Table) Cell(i int, name string) (string, bool) {
	if i < 0 || i >= len(t.Rows) {
		return "", false
	}
	value, ok := t.Rows[i][name]
	return value, ok
}

// Batch is the table of one category.
type Batch struct {
	Label string
	Table *Table
}

// BuildBatchTable lays out records as rows: the fixed columns followed by
// every feature name seen in the batch, in first-seen order.
func BuildBatchTable(records []*models.ProductRecord) *Table {
	columns := newColumnSet(FixedColumns...)
	rows := make([]Row, 0, len(records))

	for _, record := range records {
		row := Row{ColumnTitle: record.Title}
		setOptional(row, ColumnProductID, record.ProductID)
		setOptional(row, ColumnPrice, record.Price)
		setOptional(row, ColumnBrand, record.Brand)

		for _, feature := range record.Features {
			name := FeatureColumn(feature.Name)
			columns.add(name)
			row[name] = strings.Join(feature.Values, FeatureValueSeparator)
		}
		rows = append(rows, row)
	}

	return &Table{Columns: columns.names, Rows: rows}
}

// Concat stacks batch tables in order. The result holds the union of all
// columns, fixed columns first and the category column last; every row
// carries the label of its batch.
func Concat(batches []Batch) *Table {
	columns := newColumnSet(FixedColumns...)
	total := 0
	for _, batch := range batches {
		for _, name := range batch.Table.Columns {
			columns.add(name)
		}
		total += len(batch.Table.Rows)
	}
	columns.add(ColumnCategory)

	rows := make([]Row, 0, total)
	for _, batch := range batches {
		for _, src := range batch.Table.Rows {
			row := make(Row, len(src)+1)
			for k, v := range src {
				row[k] = v
			}
			row[ColumnCategory] = batch.Label
			rows = append(rows, row)
		}
	}

	return &Table{Columns: columns.names, Rows: rows}
}

// FeatureColumn returns the column name for a feature, renaming features that
// clash with a fixed column.
func FeatureColumn(name string) string {
	if name == ColumnCategory {
		return name + " (feature)"
	}
	for _, fixed := range FixedColumns {
		if name == fixed {
			return name + " (feature)"
		}
	}
	return name
}

func setOptional(row Row, column string, value *string) {
	if value != nil {
		row[column] = *value
	}
}

type columnSet struct {
	names []string
	seen  map[string]struct{}
}

func newColumnSet(names ...string) *columnSet {
	cs := &columnSet{seen: make(map[string]struct{})}
	for _, name := range names {
		cs.add(name)
	}
	return cs
}

func (cs *columnSet) add(name string) {
	if _, ok := cs.seen[name]; ok {
		return
	}
	cs.seen[name] = struct{}{}
	cs.names = append(cs.names, name)
}
