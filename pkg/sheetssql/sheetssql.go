// Package sheetssql treats a Google spreadsheet as a small table store: each
// tab is a table whose first row holds column names and second row column types
package sheetssql

import (
	"fmt"
	"sync"
)

// SheetsClient defines the spreadsheet operations the store needs
type SheetsClient interface {
	GetValues(spreadsheetID, sheetRange string) ([][]interface{}, error)
	AppendRows(spreadsheetID, sheetRange string, values [][]interface{}) error
	UpdateValues(spreadsheetID, sheetRange string, values [][]interface{}) error
	ClearValues(spreadsheetID, sheetRange string) error
	CreateSheet(spreadsheetID, sheetTitle string) (int64, error)
	ListSheets(spreadsheetID string) ([]string, error)
}

// Column defines a column with name and type
type Column struct {
	Name string
	Type string // e.g., "text", "date", "int", "bool", "uuid", "datetime"
}

// TableSchema defines the structure of a table
type TableSchema struct {
	Name    string
	Columns []Column
}

// Schema defines the database schema
type Schema struct {
	Tables []TableSchema
}

// DB represents a connection to a Google Sheets "database".
// Sheets has no transactions, so writes to one spreadsheet are serialised in process.
type DB struct {
	client        SheetsClient
	spreadsheetID string
	schema        *Schema
	mu            sync.Mutex
}

// NewDB creates a new Sheets SQL database connection and ensures schema exists
func NewDB(client SheetsClient, spreadsheetID string, schema *Schema) (*DB, error) {
	db := &DB{
		client:        client,
		spreadsheetID: spreadsheetID,
		schema:        schema,
	}

	if err := db.ensureSchema(); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return db, nil
}

// SpreadsheetID returns the database spreadsheet ID
func (db *DB) SpreadsheetID() string {
	return db.spreadsheetID
}

// Lock holds the write lock for a read-modify-write cycle
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the write lock
func (db *DB) Unlock() {
	db.mu.Unlock()
}

// InsertRows appends rows to the specified table
func (db *DB) InsertRows(tableName string, rows [][]interface{}) error {
	return db.client.AppendRows(db.spreadsheetID, tableName, rows)
}

// ReplaceRows overwrites every data row of a table, keeping the header and type rows
func (db *DB) ReplaceRows(tableName string, rows [][]interface{}) error {
	if err := db.client.ClearValues(db.spreadsheetID, fmt.Sprintf("%s!A3:ZZ", tableName)); err != nil {
		return fmt.Errorf("failed to clear table %s: %w", tableName, err)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := db.client.UpdateValues(db.spreadsheetID, fmt.Sprintf("%s!A3", tableName), rows); err != nil {
		return fmt.Errorf("failed to write table %s: %w", tableName, err)
	}
	return nil
}
