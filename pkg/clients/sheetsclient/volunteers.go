package sheetsclient

import (
	"fmt"
	"strings"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

// Expected column names in volunteers sheet
var volunteerFields = []string{
	"Unique ID",
	"First name",
	"Last name",
	"Status",
	"Email",
}

// Optional column holding legacy names, separated by commas or semicolons
const aliasesField = "Aliases"

// ListVolunteers retrieves and parses volunteers from a tab of the volunteer spreadsheet
func (c *Client) ListVolunteers(spreadsheetID, tab string) ([]model.Volunteer, error) {
	values, err := c.GetValues(spreadsheetID, tab)
	if err != nil {
		return nil, fmt.Errorf("failed to get volunteer data: %w", err)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("spreadsheet is empty")
	}

	volunteers, err := parseVolunteers(values)
	if err != nil {
		return nil, fmt.Errorf("failed to parse volunteers: %w", err)
	}

	// Compute display names for all volunteers (ensures uniqueness across entire list)
	ComputeDisplayNames(volunteers)

	return volunteers, nil
}

// ComputeDisplayNames calculates display names for a list of volunteers based on uniqueness:
// - If first name is unique: use first name only
// - If first name + first letter of surname is unique: use "FirstName L."
// - Otherwise: use full name "FirstName LastName"
func ComputeDisplayNames(volunteers []model.Volunteer) {
	// Count occurrences of each first name
	firstNameCounts := make(map[string]int)
	for _, v := range volunteers {
		firstNameCounts[v.FirstName]++
	}

	// Count occurrences of each "FirstName L." format
	firstNameInitialCounts := make(map[string]int)
	for _, v := range volunteers {
		if v.LastName != "" {
			key := v.FirstName + " " + string(v.LastName[0]) + "."
			firstNameInitialCounts[key]++
		}
	}

	// Assign display names
	for i := range volunteers {
		v := &volunteers[i]

		// Try first name only
		if firstNameCounts[v.FirstName] == 1 {
			v.DisplayName = v.FirstName
			continue
		}

		// Try first name + initial
		if v.LastName != "" {
			initialKey := v.FirstName + " " + string(v.LastName[0]) + "."
			if firstNameInitialCounts[initialKey] == 1 {
				v.DisplayName = initialKey
				continue
			}
		}

		// Fall back to full name
		v.DisplayName = v.FirstName + " " + v.LastName
	}
}

// parseVolunteers converts raw spreadsheet data into Volunteer structs
func parseVolunteers(raw [][]interface{}) ([]model.Volunteer, error) {
	if len(raw) < 1 {
		return nil, fmt.Errorf("no header row found")
	}

	fieldIndexes := make(map[string]int)
	headerRow := raw[0]

	for _, field := range volunteerFields {
		index := findColumn(headerRow, field)
		if index == -1 {
			return nil, fmt.Errorf("missing required field in header: %s", field)
		}
		fieldIndexes[field] = index
	}
	if index := findColumn(headerRow, aliasesField); index != -1 {
		fieldIndexes[aliasesField] = index
	}

	// Helper to get field value from row
	getField := func(field string, row []interface{}) string {
		index, ok := fieldIndexes[field]
		if !ok {
			return ""
		}
		if index >= len(row) {
			return ""
		}
		if str, ok := row[index].(string); ok {
			return str
		}
		return ""
	}

	// Parse data rows
	volunteers := make([]model.Volunteer, 0, len(raw)-1)
	for i := 1; i < len(raw); i++ {
		row := raw[i]

		firstName := getField("First name", row)
		// Skip empty rows (rows with no first name)
		if firstName == "" {
			continue
		}

		id := strings.TrimSpace(getField("Unique ID", row))
		if id == "" {
			return nil, fmt.Errorf("missing unique ID for volunteer in row %d", i+1)
		}

		volunteer := model.Volunteer{
			ID:        id,
			FirstName: firstName,
			LastName:  getField("Last name", row),
			Status:    getField("Status", row),
			Email:     strings.TrimSpace(getField("Email", row)),
			Aliases:   splitAliases(getField(aliasesField, row)),
		}

		volunteers = append(volunteers, volunteer)
	}

	return volunteers, nil
}

func findColumn(headerRow []interface{}, field string) int {
	for i, cell := range headerRow {
		if cellStr, ok := cell.(string); ok && strings.TrimSpace(cellStr) == field {
			return i
		}
	}
	return -1
}

func splitAliases(cell string) []string {
	var aliases []string
	for _, part := range strings.FieldsFunc(cell, func(r rune) bool { return r == ',' || r == ';' }) {
		if alias := strings.TrimSpace(part); alias != "" {
			aliases = append(aliases, alias)
		}
	}
	return aliases
}
