package naming

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-openapi/inflect"
)

// ErrInvalidIdentifier: имя сущности не соответствует соглашению
// "строчные токены через - или _".
var ErrInvalidIdentifier = errors.New("invalid identifier")

// InvalidIdentifierError несёт само имя, чтобы его можно было показать пользователю.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q: expected lowercase tokens separated by '-' or '_'", e.Name)
}

func (e *InvalidIdentifierError) Is(err error) bool { return err == ErrInvalidIdentifier }

var identRe = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

// Validate проверяет имя сущности до любых преобразований.
func Validate(name string) error {
	if !identRe.MatchString(name) {
		return &InvalidIdentifierError{Name: name}
	}
	return nil
}

// ToLogicalCase: "sales-channel" -> "salesChannel", "product" -> "product".
// Дефис приводим к подчёркиванию, дальше работает инфлектор.
func ToLogicalCase(name string) (string, error) {
	if err := Validate(name); err != nil {
		return "", err
	}
	return inflect.CamelizeDownFirst(strings.ReplaceAll(name, "-", "_")), nil
}

// ForeignKeyColumn: имя колонки внешнего ключа: "<entity>_id".
func ForeignKeyColumn(entity string) string { return entity + "_id" }

// VersionColumn: колонка версии для version-aware стороны: "<entity>_version_id".
func VersionColumn(entity string) string { return entity + "_version_id" }

var reserved = map[string]struct{}{
	"user": {}, "select": {}, "table": {}, "insert": {}, "update": {}, "delete": {},
	"where": {}, "join": {}, "group": {}, "order": {}, "limit": {}, "offset": {},
	"primary": {}, "foreign": {}, "key": {}, "constraint": {}, "default": {},
	"from": {}, "into": {}, "values": {}, "unique": {}, "index": {}, "create": {},
	"drop": {}, "alter": {}, "schema": {}, "grant": {}, "revoke": {},
}

// IsReserved сообщает, совпадает ли имя с ключевым словом SQL.
func IsReserved(s string) bool { _, ok := reserved[strings.ToLower(s)]; return ok }

// TableName: таблица динамической сущности: множественное число
// с защитой keyword'ов префиксом "e_".
func TableName(entity string) string {
	t := strings.ToLower(inflect.Pluralize(entity))
	if IsReserved(t) {
		t = "e_" + t
	}
	return t
}

// MappingTableName: таблица связи берётся из канонического имени как есть,
// плюрализация к ней не применяется.
func MappingTableName(identity string) string {
	t := strings.ToLower(identity)
	if IsReserved(t) {
		t = "e_" + t
	}
	return t
}
