package postgres

import (
	"fmt"
	"reflect"

	"github.com/Masterminds/squirrel"
)

// Table maps a record type to its table.
//
// Columns come from `db` tags in declaration order. Embedded structs
// (entity.BaseEntity, entity.Versioned) are flattened; fields tagged `db:"-"`
// (loaded relations such as Document.Entries) are not columns.
type Table[T any] struct {
	Name    string
	Columns []string
	paths   [][]int
}

// NewTable builds the mapping for T. It panics when T has no columns,
// so a broken entity fails at package initialization.
func NewTable[T any](name string) *Table[T] {
	t := &Table[T]{Name: name}
	collectColumns(reflect.TypeFor[T](), nil, t)
	if len(t.Columns) == 0 {
		panic(fmt.Sprintf("postgres: %s has no db columns", reflect.TypeFor[T]()))
	}
	return t
}

func collectColumns[T any](rt reflect.Type, prefix []int, t *Table[T]) {
	for i := range rt.NumField() {
		field := rt.Field(i)
		path := append(append([]int(nil), prefix...), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collectColumns(field.Type, path, t)
			continue
		}
		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" || !field.IsExported() {
			continue
		}
		t.Columns = append(t.Columns, tag)
		t.paths = append(t.paths, path)
	}
}

// Row returns the values of v in Columns order.
func (t *Table[T]) Row(v *T) []any {
	rv := reflect.ValueOf(v).Elem()
	row := make([]any, len(t.paths))
	for i, path := range t.paths {
		row[i] = rv.FieldByIndex(path).Interface()
	}
	return row
}

// Rows returns one Row per element of vs.
func (t *Table[T]) Rows(vs []T) [][]any {
	rows := make([][]any, len(vs))
	for i := range vs {
		rows[i] = t.Row(&vs[i])
	}
	return rows
}

// Select starts a query over every column of the table.
func (t *Table[T]) Select() squirrel.SelectBuilder {
	return Builder().Select(t.Columns...).From(t.Name)
}

// InsertOne builds an INSERT of v.
func (t *Table[T]) InsertOne(v *T) squirrel.InsertBuilder {
	return Builder().Insert(t.Name).Columns(t.Columns...).Values(t.Row(v)...)
}
