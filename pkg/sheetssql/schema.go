package sheetssql

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// SchemaFromModels derives one table per row struct. Every field needs an
// `ssql_header` column name and an `ssql_type` column type.
func SchemaFromModels(models ...interface{}) (*Schema, error) {
	schema := &Schema{Tables: make([]TableSchema, 0, len(models))}
	for _, m := range models {
		c, err := codecFor(reflect.TypeOf(m))
		if err != nil {
			return nil, err
		}
		schema.Tables = append(schema.Tables, c.table)
	}
	return schema, nil
}

// TableName is the snake_case struct name, which is the tab title
func TableName(t reflect.Type) string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return toSnakeCase(t.Name())
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// ensureSchema creates missing tabs and brings existing ones up to date
func (db *DB) ensureSchema() error {
	existing, err := db.client.ListSheets(db.spreadsheetID)
	if err != nil {
		return fmt.Errorf("failed to get existing sheets: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	for _, table := range db.schema.Tables {
		if !present[table.Name] {
			if err := db.createTable(table); err != nil {
				return fmt.Errorf("failed to create table %s: %w", table.Name, err)
			}
			continue
		}
		if err := db.migrateTable(table); err != nil {
			return fmt.Errorf("table %s schema mismatch: %w", table.Name, err)
		}
	}
	return nil
}

// migrateTable checks a tab's header and type rows against table. A tab whose
// columns are a leading run of the table's gains the missing trailing columns;
// any other difference is an error.
func (db *DB) migrateTable(table TableSchema) error {
	values, err := db.client.GetValues(db.spreadsheetID, fmt.Sprintf("%s!A1:ZZ2", table.Name))
	if err != nil {
		return fmt.Errorf("failed to read table headers: %w", err)
	}
	if len(values) < 2 {
		return fmt.Errorf("table missing header or type row")
	}
	headers, types := values[0], values[1]

	if len(headers) > len(table.Columns) {
		return fmt.Errorf("expected %d columns, found %d", len(table.Columns), len(headers))
	}
	for i, header := range headers {
		col := table.Columns[i]
		if cellText(header) != col.Name {
			return fmt.Errorf("column %d: expected header '%s', got '%v'", i, col.Name, header)
		}
		if i >= len(types) {
			return fmt.Errorf("missing type for column %s", col.Name)
		}
		if cellText(types[i]) != col.Type {
			return fmt.Errorf("column %d (%s): expected type '%s', got '%v'", i, col.Name, col.Type, types[i])
		}
	}

	if len(headers) == len(table.Columns) {
		return nil
	}
	if err := db.client.UpdateValues(db.spreadsheetID, fmt.Sprintf("%s!A1", table.Name), headerRows(table)); err != nil {
		return fmt.Errorf("failed to add columns: %w", err)
	}
	return nil
}

func (db *DB) createTable(table TableSchema) error {
	if _, err := db.client.CreateSheet(db.spreadsheetID, table.Name); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := db.client.AppendRows(db.spreadsheetID, table.Name, headerRows(table)); err != nil {
		return fmt.Errorf("failed to write headers and types: %w", err)
	}
	return nil
}

// headerRows are the column-name and column-type rows heading a tab
func headerRows(table TableSchema) [][]interface{} {
	names := make([]interface{}, len(table.Columns))
	types := make([]interface{}, len(table.Columns))
	for i, col := range table.Columns {
		names[i] = col.Name
		types[i] = col.Type
	}
	return [][]interface{}{names, types}
}
