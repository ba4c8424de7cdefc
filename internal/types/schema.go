package types

import (
	"fmt"
	"strings"
)

// Schema is an ordered snapshot of the dataset's user tables
type Schema struct {
	Tables []Table `json:"tables"`
}

// Table represents a database table and its declared columns
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Column represents a database column as declared in the table DDL
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Lookup returns the table named name, matched case-insensitively
func (s Schema) Lookup(name string) (Table, bool) {
	for _, t := range s.Tables {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}

	return Table{}, false
}

// TableNames returns table names in schema order
func (s Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}

	return names
}

// Summary renders one "- table: col (type), col (type)" line per table
func (s Schema) Summary() string {
	lines := make([]string, 0, len(s.Tables))

	for _, t := range s.Tables {
		cols := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			cols = append(cols, fmt.Sprintf("%s (%s)", c.Name, c.Type))
		}

		lines = append(lines, fmt.Sprintf("- %s: %s", t.Name, strings.Join(cols, ", ")))
	}

	return strings.Join(lines, "\n")
}
