package sheetssql

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	headerTag = "ssql_header"
	typeTag   = "ssql_type"

	dateLayout     = "2006-01-02"
	datetimeLayout = time.RFC3339
)

// cellCheckers validate the text of a non-empty cell for each column type
var cellCheckers = map[string]func(string) error{
	"text":  func(string) error { return nil },
	"int":   func(s string) error { _, err := strconv.ParseInt(s, 10, 64); return err },
	"float": func(s string) error { _, err := strconv.ParseFloat(s, 64); return err },
	"bool":  func(s string) error { _, err := strconv.ParseBool(s); return err },
	"date":  func(s string) error { _, err := time.Parse(dateLayout, s); return err },
	"datetime": func(s string) error {
		_, err := time.Parse(datetimeLayout, s)
		return err
	},
	"uuid": func(s string) error { _, err := uuid.Parse(s); return err },
}

// kindDecoders set a field from non-empty cell text
var kindDecoders = map[reflect.Kind]func(reflect.Value, string) error{
	reflect.String: func(v reflect.Value, s string) error {
		v.SetString(s)
		return nil
	},
	reflect.Int: decodeInt, reflect.Int8: decodeInt, reflect.Int16: decodeInt,
	reflect.Int32: decodeInt, reflect.Int64: decodeInt,
	reflect.Uint: decodeUint, reflect.Uint8: decodeUint, reflect.Uint16: decodeUint,
	reflect.Uint32: decodeUint, reflect.Uint64: decodeUint,
	reflect.Float32: decodeFloat, reflect.Float64: decodeFloat,
	reflect.Bool: func(v reflect.Value, s string) error {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("failed to parse bool: %w", err)
		}
		v.SetBool(b)
		return nil
	},
}

func decodeInt(v reflect.Value, s string) error {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse int: %w", err)
	}
	v.SetInt(n)
	return nil
}

func decodeFloat(v reflect.Value, s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("failed to parse float: %w", err)
	}
	v.SetFloat(f)
	return nil
}

func decodeUint(v reflect.Value, s string) error {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse uint: %w", err)
	}
	v.SetUint(n)
	return nil
}

// codec maps one row struct type onto its table
type codec struct {
	table  TableSchema
	fields []int
	kinds  []reflect.Kind
}

var codecs sync.Map // reflect.Type -> *codec

// codecFor returns the cached codec for t, building it on first use
func codecFor(t reflect.Type) (*codec, error) {
	if t == nil {
		return nil, fmt.Errorf("model must be a struct, got nil")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if c, ok := codecs.Load(t); ok {
		return c.(*codec), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a struct, got %s", t.Kind())
	}

	c := &codec{table: TableSchema{Name: TableName(t)}}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		header := field.Tag.Get(headerTag)
		if header == "" {
			return nil, fmt.Errorf("field %s.%s missing '%s' tag", t.Name(), field.Name, headerTag)
		}
		colType := field.Tag.Get(typeTag)
		if colType == "" {
			return nil, fmt.Errorf("field %s.%s missing '%s' tag", t.Name(), field.Name, typeTag)
		}
		if _, ok := cellCheckers[colType]; !ok {
			return nil, fmt.Errorf("field %s.%s has unknown column type %q", t.Name(), field.Name, colType)
		}
		if _, ok := kindDecoders[field.Type.Kind()]; !ok {
			return nil, fmt.Errorf("field %s.%s has unsupported kind %s", t.Name(), field.Name, field.Type.Kind())
		}

		c.table.Columns = append(c.table.Columns, Column{Name: header, Type: colType})
		c.fields = append(c.fields, i)
		c.kinds = append(c.kinds, field.Type.Kind())
	}
	if len(c.fields) == 0 {
		return nil, fmt.Errorf("struct %s has no fields", t.Name())
	}

	actual, _ := codecs.LoadOrStore(t, c)
	return actual.(*codec), nil
}

// cellText renders a cell as the sheets API formats it; fakes may hand back raw values
func cellText(cell interface{}) string {
	if s, ok := cell.(string); ok {
		return s
	}
	return fmt.Sprint(cell)
}

// setField decodes cell into the field behind column col. Empty cells leave the zero value.
func (c *codec) setField(row reflect.Value, col int, cell interface{}) error {
	if cell == nil {
		return nil
	}
	text := cellText(cell)
	if text == "" {
		return nil
	}
	column := c.table.Columns[col]
	if err := cellCheckers[column.Type](text); err != nil {
		return fmt.Errorf("invalid %s value %q: %w", column.Type, text, err)
	}
	return kindDecoders[c.kinds[col]](row.Field(c.fields[col]), text)
}

// decode builds a T from one data row laid out by headers
func decode[T any](c *codec, headers []interface{}, row []interface{}) (T, error) {
	var out T
	v := reflect.ValueOf(&out).Elem()
	for i, header := range headers {
		if i >= len(row) {
			break
		}
		col := c.column(cellText(header))
		if col < 0 {
			continue
		}
		if err := c.setField(v, col, row[i]); err != nil {
			return out, fmt.Errorf("column %s: %w", c.table.Columns[col].Name, err)
		}
	}
	return out, nil
}

func (c *codec) column(name string) int {
	for i, col := range c.table.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// encode renders v as a row in column order, checking typed text columns
func (c *codec) encode(v reflect.Value) ([]interface{}, error) {
	row := make([]interface{}, len(c.fields))
	for col, idx := range c.fields {
		field := v.Field(idx)
		if field.Kind() == reflect.String && field.String() != "" {
			column := c.table.Columns[col]
			if err := cellCheckers[column.Type](field.String()); err != nil {
				return nil, fmt.Errorf("column %s: invalid %s value %q: %w", column.Name, column.Type, field.String(), err)
			}
		}
		row[col] = field.Interface()
	}
	return row, nil
}
