package sheetssql

import (
	"fmt"
	"strings"
)

// fakeClient keeps tabs in memory. Ranges are "<tab>", "<tab>!A1:ZZ2", "<tab>!A3:ZZ", "<tab>!A1" or "<tab>!A3".
type fakeClient struct {
	tabs    map[string][][]interface{}
	order   []string
	appends int
}

func newFakeClient() *fakeClient {
	return &fakeClient{tabs: make(map[string][][]interface{})}
}

func splitRange(r string) (string, string) {
	tab, cells, _ := strings.Cut(r, "!")
	return tab, cells
}

func (f *fakeClient) GetValues(spreadsheetID, sheetRange string) ([][]interface{}, error) {
	tab, cells := splitRange(sheetRange)
	rows, ok := f.tabs[tab]
	if !ok {
		return nil, fmt.Errorf("no tab %s", tab)
	}
	if cells == "A1:ZZ2" && len(rows) > 2 {
		rows = rows[:2]
	}
	return rows, nil
}

func (f *fakeClient) AppendRows(spreadsheetID, sheetRange string, values [][]interface{}) error {
	tab, _ := splitRange(sheetRange)
	f.tabs[tab] = append(f.tabs[tab], values...)
	f.appends++
	return nil
}

func (f *fakeClient) UpdateValues(spreadsheetID, sheetRange string, values [][]interface{}) error {
	tab, cells := splitRange(sheetRange)
	switch cells {
	case "A1":
		rows := f.tabs[tab]
		for i, row := range values {
			if i < len(rows) {
				rows[i] = row
			} else {
				rows = append(rows, row)
			}
		}
		f.tabs[tab] = rows
	case "A3":
		f.tabs[tab] = append(f.tabs[tab][:2], values...)
	default:
		return fmt.Errorf("unsupported range %s", sheetRange)
	}
	return nil
}

func (f *fakeClient) ClearValues(spreadsheetID, sheetRange string) error {
	tab, cells := splitRange(sheetRange)
	if cells != "A3:ZZ" {
		return fmt.Errorf("unsupported range %s", sheetRange)
	}
	if len(f.tabs[tab]) > 2 {
		f.tabs[tab] = f.tabs[tab][:2]
	}
	return nil
}

func (f *fakeClient) CreateSheet(spreadsheetID, sheetTitle string) (int64, error) {
	if _, ok := f.tabs[sheetTitle]; ok {
		return 0, fmt.Errorf("tab %s exists", sheetTitle)
	}
	f.tabs[sheetTitle] = [][]interface{}{}
	f.order = append(f.order, sheetTitle)
	return int64(len(f.order)), nil
}

func (f *fakeClient) ListSheets(spreadsheetID string) ([]string, error) {
	return append([]string(nil), f.order...), nil
}
