package pg

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/lib/pq"

	"junction/internal/catalog"
	"junction/internal/dsl"
	"junction/internal/mapping"
	"junction/internal/naming"
)

// ErrDuplicateColumn: две колонки таблицы получили одно имя
// (например, связь сущности с самой собой).
var ErrDuplicateColumn = errors.New("duplicate column")

type OnDeletePolicy string

const (
	OnDeleteRestrict OnDeletePolicy = "RESTRICT"
	OnDeleteSetNull  OnDeletePolicy = "SET NULL"
	OnDeleteCascade  OnDeletePolicy = "CASCADE"
)

// Ключи карты DDL; ApplyDDL исполняет их по порядку сортировки.
const (
	KeyTables      = "000_schemas_and_tables"
	KeyMappings    = "100_mapping_tables"
	KeyForeignKeys = "200_foreign_keys"
)

func sqlIdent(s string) string { return pq.QuoteIdentifier(strings.ToLower(s)) }

// maxIdentLen: NAMEDATALEN-1, длиннее Postgres молча обрезает.
const maxIdentLen = 63

// objectName: имя constraint/индекса; длинное обрезается и получает хэш полного имени.
func objectName(parts ...string) string {
	name := strings.ToLower(strings.Join(parts, "_"))
	if len(name) <= maxIdentLen {
		return name
	}
	sum := sha1.Sum([]byte(name))
	suffix := hex.EncodeToString(sum[:4])
	return name[:maxIdentLen-len(suffix)-1] + "_" + suffix
}

func qualified(schema, table string) string { return sqlIdent(schema) + "." + sqlIdent(table) }

func mapType(f dsl.Field) (string, error) {
	switch strings.ToLower(f.Type) {
	case "string":
		return "text", nil
	case "int":
		return "bigint", nil
	case "float":
		return "double precision", nil
	case "money":
		return "numeric(18,2)", nil
	case "bool":
		return "boolean", nil
	case "date":
		return "date", nil
	case "datetime":
		return "timestamp with time zone", nil
	case dsl.TypeEnum:
		// пока как text; можно генерить enum types отдельно
		return "text", nil
	case dsl.TypeRef:
		return "text", nil // id целевой записи
	case dsl.TypeArray:
		return "jsonb", nil
	default:
		return "", fmt.Errorf("unknown type: %s", f.Type)
	}
}

func onDeletePolicy(f dsl.Field) OnDeletePolicy {
	switch strings.ToLower(strings.TrimSpace(f.Options["on_delete"])) {
	case "set_null":
		return OnDeleteSetNull
	case "cascade":
		return OnDeleteCascade
	default:
		return OnDeleteRestrict
	}
}

type fkStmt struct {
	table, name string
	cols        []string
	refTable    string
	refCols     []string
	onDelete    OnDeletePolicy
}

func (fk fkStmt) sql(schema string) string {
	quote := func(cols []string) string {
		out := make([]string, len(cols))
		for i, c := range cols {
			out[i] = sqlIdent(c)
		}
		return strings.Join(out, ", ")
	}
	return fmt.Sprintf("alter table %s add constraint %s foreign key (%s) references %s(%s) on delete %s;\n",
		qualified(schema, fk.table), sqlIdent(fk.name), quote(fk.cols),
		qualified(schema, fk.refTable), quote(fk.refCols), fk.onDelete)
}

// GenerateDDL возвращает карту ключ -> SQL: таблицы сущностей, таблицы связей, внешние ключи.
func GenerateDDL(c *catalog.Catalog, schema string) (map[string]string, error) {
	out := make(map[string]string, 3)
	var fks []fkStmt

	// --- Phase A: schema + entity tables + unique ---
	var tables strings.Builder
	fmt.Fprintf(&tables, "create schema if not exists %s;\n", sqlIdent(schema))

	for _, name := range c.Registry.Names() {
		def, _ := c.Registry.Resolve(name)
		e := def.Entity
		tbl := naming.TableName(name)

		// системные колонки
		cols := []string{`"id" text not null`}
		seen := map[string]struct{}{"id": {}, "version": {}, "created_at": {}, "updated_at": {}}
		pk := []string{"id"}
		if def.IsVersionAware() {
			cols = append(cols, `"version_id" text not null`)
			seen["version_id"] = struct{}{}
			pk = append(pk, "version_id")
		}
		cols = append(cols,
			`"version" bigint not null`,
			`"created_at" timestamp with time zone not null`,
			`"updated_at" timestamp with time zone not null`,
		)

		// пользовательские поля; many[...] живут в таблицах связей
		for _, f := range e.Fields {
			if f.Type == dsl.TypeMany {
				continue
			}
			nameLower := strings.ToLower(f.Name)
			if _, exists := seen[nameLower]; exists {
				return nil, fmt.Errorf("%s: field %q: %w", name, f.Name, ErrDuplicateColumn)
			}
			seen[nameLower] = struct{}{}

			typ, err := mapType(f)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", name, f.Name, err)
			}
			null := "null"
			if _, ok := f.Options["required"]; ok {
				null = "not null"
			}
			dflt := ""
			if dv, ok := f.Options["default"]; ok && strings.TrimSpace(dv) != "" {
				dflt = " default " + pq.QuoteLiteral(dv)
			}
			cols = append(cols, fmt.Sprintf("%s %s %s%s", sqlIdent(f.Name), typ, null, dflt))

			if f.Type == dsl.TypeRef && f.RefTarget != "" {
				target, err := c.Registry.Resolve(f.RefTarget)
				if err != nil {
					return nil, fmt.Errorf("%s.%s: %w", name, f.Name, err)
				}
				// у версионированной цели id не уникален: одиночной FK на неё нет
				if target.IsVersionAware() {
					log.Printf("DDL: %s.%s references versioned %q, foreign key skipped", name, f.Name, target.Name)
					continue
				}
				fks = append(fks, fkStmt{
					table:    tbl,
					name:     objectName(name, f.Name, "fk"),
					cols:     []string{f.Name},
					refTable: naming.TableName(target.Name),
					refCols:  []string{"id"},
					onDelete: onDeletePolicy(f),
				})
			}
		}
		cols = append(cols, fmt.Sprintf("primary key (%s)", quoteAll(pk)))

		fmt.Fprintf(&tables, "create table if not exists %s (\n  %s\n);\n",
			qualified(schema, tbl), strings.Join(cols, ",\n  "))

		for _, f := range e.Fields {
			if _, ok := f.Options["unique"]; ok {
				fmt.Fprintf(&tables, "create unique index if not exists %s on %s(%s);\n",
					sqlIdent(objectName(name, f.Name, "uq")), qualified(schema, tbl), sqlIdent(f.Name))
			}
		}
		for _, set := range e.Constraints.Unique {
			if len(set) == 0 {
				continue
			}
			fmt.Fprintf(&tables, "create unique index if not exists %s on %s(%s);\n",
				sqlIdent(objectName(name, strings.Join(set, "_"), "uq")), qualified(schema, tbl), quoteAll(set))
		}
	}
	out[KeyTables] = tables.String()

	// --- Phase B: mapping tables ---
	var mappings strings.Builder
	for _, s := range c.Mappings {
		sqlText, mfks, err := mappingDDL(s, schema)
		if err != nil {
			return nil, err
		}
		mappings.WriteString(sqlText)
		fks = append(fks, mfks...)
	}
	if mappings.Len() > 0 {
		out[KeyMappings] = mappings.String()
	}

	// --- Phase C: foreign keys (после создания всех таблиц) ---
	var fkSb strings.Builder
	for _, fk := range fks {
		fkSb.WriteString(fk.sql(schema))
	}
	if fkSb.Len() > 0 {
		out[KeyForeignKeys] = fkSb.String()
	}
	return out, nil
}

func quoteAll(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = sqlIdent(c)
	}
	return strings.Join(out, ", ")
}

// ColumnName: физическая колонка поля связи; у ассоциаций колонки нет.
func ColumnName(f mapping.FieldSpec) (string, bool) {
	switch f.Kind {
	case mapping.ForeignKey:
		return f.StorageName, true
	case mapping.VersionReference:
		return naming.VersionColumn(f.Scope), true
	}
	return "", false
}

// MappingDDL: create table для одной схемы связи без внешних ключей.
func MappingDDL(s *mapping.Schema, schema string) (string, error) {
	sqlText, _, err := mappingDDL(s, schema)
	return sqlText, err
}

func mappingDDL(s *mapping.Schema, schema string) (string, []fkStmt, error) {
	tbl := naming.MappingTableName(s.Name().String())

	var cols []string
	seen := map[string]struct{}{}
	versionCol := map[string]string{} // scope -> колонка версии
	for _, f := range s.Fields() {
		col, ok := ColumnName(f)
		if !ok {
			continue
		}
		if _, dup := seen[col]; dup {
			return "", nil, fmt.Errorf("mapping %s: column %q: %w", s.Name(), col, ErrDuplicateColumn)
		}
		seen[col] = struct{}{}
		if f.Kind == mapping.VersionReference {
			versionCol[f.Scope] = col
		}
		null := "null"
		if f.IsRequired() {
			null = "not null"
		}
		cols = append(cols, fmt.Sprintf("%s text %s", sqlIdent(col), null))
	}

	var pk []string
	for _, f := range s.PrimaryKey() {
		col, _ := ColumnName(f)
		pk = append(pk, col)
	}
	cols = append(cols, fmt.Sprintf("primary key (%s)", quoteAll(pk)))

	var fks []fkStmt
	for _, f := range s.ForeignKeys() {
		fk := fkStmt{
			table:    tbl,
			name:     objectName(tbl, f.Scope, "fk"),
			cols:     []string{f.StorageName},
			refTable: naming.TableName(f.Target.Entity),
			refCols:  []string{f.Target.Field},
			onDelete: OnDeleteCascade,
		}
		if vc, ok := versionCol[f.Scope]; ok {
			fk.cols = append(fk.cols, vc)
			fk.refCols = append(fk.refCols, mapping.VersionField)
		}
		fks = append(fks, fk)
	}

	sqlText := fmt.Sprintf("create table if not exists %s (\n  %s\n);\n",
		qualified(schema, tbl), strings.Join(cols, ",\n  "))
	return sqlText, fks, nil
}

// SortedKeys: ключи карты DDL в порядке исполнения.
func SortedKeys(ddl map[string]string) []string {
	keys := make([]string, 0, len(ddl))
	for k := range ddl {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
