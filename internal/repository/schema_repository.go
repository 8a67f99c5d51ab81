package repository

import (
	"context"
	"database/sql"
)

// SchemaRepo backs the admin schema explorer.  It reads table, column
// and foreign-key metadata for the current database from
// information_schema with parameterized queries only.
type SchemaRepo struct {
	db *sql.DB
}

// NewSchemaRepo returns a new SchemaRepo bound to the given database.
func NewSchemaRepo(db *sql.DB) *SchemaRepo { return &SchemaRepo{db: db} }

// SchemaColumn describes one column of a table.
type SchemaColumn struct {
	Name       string  `json:"name"`
	DataType   string  `json:"data_type"`
	ColumnType string  `json:"column_type"`
	Nullable   bool    `json:"nullable"`
	Key        string  `json:"key,omitempty"`
	Default    *string `json:"default,omitempty"`
}

// SchemaForeignKey describes one referential constraint.
type SchemaForeignKey struct {
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
	Constraint       string `json:"constraint"`
}

// SchemaTable is one table with its columns and outgoing foreign keys.
type SchemaTable struct {
	Name        string             `json:"name"`
	RowEstimate int64              `json:"row_estimate"`
	Columns     []SchemaColumn     `json:"columns"`
	ForeignKeys []SchemaForeignKey `json:"foreign_keys"`
}

// Explore assembles the full schema of the current database.  Column
// and key lookups are grouped in memory to keep it at three queries
// regardless of table count.
func (r *SchemaRepo) Explore(ctx context.Context) ([]SchemaTable, error) {
	const tablesQ = `SELECT table_name, COALESCE(table_rows, 0)
	                 FROM information_schema.tables
	                 WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
	                 ORDER BY table_name`
	rows, err := r.db.QueryContext(ctx, tablesQ)
	if err != nil {
		return nil, err
	}
	tables := make([]SchemaTable, 0)
	index := make(map[string]int)
	for rows.Next() {
		var t SchemaTable
		if err := rows.Scan(&t.Name, &t.RowEstimate); err != nil {
			rows.Close()
			return nil, err
		}
		t.Columns = []SchemaColumn{}
		t.ForeignKeys = []SchemaForeignKey{}
		index[t.Name] = len(tables)
		tables = append(tables, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	const columnsQ = `SELECT table_name, column_name, data_type, column_type, is_nullable, column_key, column_default
	                  FROM information_schema.columns
	                  WHERE table_schema = DATABASE()
	                  ORDER BY table_name, ordinal_position`
	crows, err := r.db.QueryContext(ctx, columnsQ)
	if err != nil {
		return nil, err
	}
	for crows.Next() {
		var (
			table    string
			c        SchemaColumn
			nullable string
			def      sql.NullString
		)
		if err := crows.Scan(&table, &c.Name, &c.DataType, &c.ColumnType, &nullable, &c.Key, &def); err != nil {
			crows.Close()
			return nil, err
		}
		c.Nullable = nullable == "YES"
		if def.Valid {
			d := def.String
			c.Default = &d
		}
		if i, ok := index[table]; ok {
			tables[i].Columns = append(tables[i].Columns, c)
		}
	}
	if err := crows.Close(); err != nil {
		return nil, err
	}

	const fksQ = `SELECT table_name, column_name, referenced_table_name, referenced_column_name, constraint_name
	              FROM information_schema.key_column_usage
	              WHERE table_schema = DATABASE() AND referenced_table_name IS NOT NULL
	              ORDER BY table_name, constraint_name`
	krows, err := r.db.QueryContext(ctx, fksQ)
	if err != nil {
		return nil, err
	}
	defer krows.Close()
	for krows.Next() {
		var (
			table string
			fk    SchemaForeignKey
		)
		if err := krows.Scan(&table, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn, &fk.Constraint); err != nil {
			return nil, err
		}
		if i, ok := index[table]; ok {
			tables[i].ForeignKeys = append(tables[i].ForeignKeys, fk)
		}
	}
	return tables, krows.Err()
}
