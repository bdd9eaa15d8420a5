package querybuilder

import (
	"fmt"
	"strings"
)

type columnDef struct {
	name    string
	sqlType string
}

type CreateTableBuilder struct {
	table   string
	columns []columnDef
}

func CreateTable(table string) *CreateTableBuilder {
	return &CreateTableBuilder{table: table}
}

func (b *CreateTableBuilder) Column(name, sqlType string) *CreateTableBuilder {
	b.columns = append(b.columns, columnDef{name: name, sqlType: sqlType})
	return b
}

func (b *CreateTableBuilder) ToSQL() (string, error) {
	if strings.TrimSpace(b.table) == "" {
		return "", fmt.Errorf("create table name is required")
	}
	if len(b.columns) == 0 {
		return "", fmt.Errorf("create table columns are required")
	}

	var buf strings.Builder
	buf.WriteString("CREATE TABLE ")
	buf.WriteString(b.table)
	buf.WriteString(" (")
	for i, col := range b.columns {
		if strings.TrimSpace(col.name) == "" || strings.TrimSpace(col.sqlType) == "" {
			return "", fmt.Errorf("create table column %d needs a name and a type", i)
		}
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(col.name)
		buf.WriteString(" ")
		buf.WriteString(col.sqlType)
	}
	buf.WriteString(")")
	return buf.String(), nil
}

func DropTableIfExists(table string) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", fmt.Errorf("drop table name is required")
	}
	return "DROP TABLE IF EXISTS " + table, nil
}

// RenameTableIfExists renames table within its schema; newName must be
// unqualified.
func RenameTableIfExists(table, newName string) (string, error) {
	if strings.TrimSpace(table) == "" || strings.TrimSpace(newName) == "" {
		return "", fmt.Errorf("rename table needs a source and a target")
	}
	return "ALTER TABLE IF EXISTS " + table + " RENAME TO " + newName, nil
}

func CreateSchemaIfNotExists(schema string) (string, error) {
	if strings.TrimSpace(schema) == "" {
		return "", fmt.Errorf("schema name is required")
	}
	return "CREATE SCHEMA IF NOT EXISTS " + schema, nil
}
