package sheetssql

import (
	"fmt"
	"reflect"
)

// dataStart is the sheet row number of the first data row
const dataStart = 3

// GetModels reads every data row of the table named after T. Columns are
// matched by header, so a tab with columns in another order still decodes.
func GetModels[T any](db *DB) ([]T, error) {
	c, err := codecFor(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}

	values, err := db.client.GetValues(db.spreadsheetID, c.table.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get table %s: %w", c.table.Name, err)
	}
	if len(values) < dataStart {
		return []T{}, nil
	}

	headers := values[0]
	out := make([]T, 0, len(values)-(dataStart-1))
	for i, row := range values[dataStart-1:] {
		m, err := decode[T](c, headers, row)
		if err != nil {
			return nil, fmt.Errorf("table %s row %d: %w", c.table.Name, i+dataStart, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// InsertModel appends one row to the table named after T
func InsertModel[T any](db *DB, m T) error {
	return InsertModels(db, []T{m})
}

// InsertModels appends rows to the table named after T
func InsertModels[T any](db *DB, models []T) error {
	if len(models) == 0 {
		return nil
	}
	table, rows, err := encodeAll(models)
	if err != nil {
		return err
	}
	return db.InsertRows(table, rows)
}

// ReplaceModels overwrites a table's data rows with models, in order
func ReplaceModels[T any](db *DB, models []T) error {
	table, rows, err := encodeAll(models)
	if err != nil {
		return err
	}
	return db.ReplaceRows(table, rows)
}

// encodeAll renders models as rows, failing before any write when a value does
// not fit its column type
func encodeAll[T any](models []T) (string, [][]interface{}, error) {
	c, err := codecFor(reflect.TypeFor[T]())
	if err != nil {
		return "", nil, err
	}
	rows := make([][]interface{}, 0, len(models))
	for i := range models {
		row, err := c.encode(reflect.ValueOf(&models[i]).Elem())
		if err != nil {
			return "", nil, fmt.Errorf("table %s: %w", c.table.Name, err)
		}
		rows = append(rows, row)
	}
	return c.table.Name, rows, nil
}
