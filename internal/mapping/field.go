package mapping

import (
	"fmt"
	"strings"
)

// Flag: структурные флаги поля.
type Flag uint8

const (
	Required Flag = 1 << iota
	PrimaryKey
)

// Has: выставлены ли все биты x.
func (f Flag) Has(x Flag) bool { return f&x == x }

func (f Flag) String() string {
	var parts []string
	if f.Has(Required) {
		parts = append(parts, "required")
	}
	if f.Has(PrimaryKey) {
		parts = append(parts, "primary_key")
	}
	return strings.Join(parts, "|")
}

// FieldKind: семантический тип поля таблицы связи.
type FieldKind int

const (
	Unknown FieldKind = iota
	ForeignKey
	Association      // many-to-one проекция для чтения, не колонка
	VersionReference // ссылка на линейку версий version-aware сущности
)

func (k FieldKind) String() string {
	switch k {
	case ForeignKey:
		return "foreign_key"
	case Association:
		return "association"
	case VersionReference:
		return "version_reference"
	}
	return "unknown"
}

// MarshalText нужен, чтобы вид поля в JSON был читаемой строкой.
func (k FieldKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *FieldKind) UnmarshalText(b []byte) error {
	for _, v := range []FieldKind{ForeignKey, Association, VersionReference} {
		if v.String() == string(b) {
			*k = v
			return nil
		}
	}
	return fmt.Errorf("unknown field kind %q", b)
}

// Target: на что указывает поле: сущность и её поле.
type Target struct {
	Entity string `json:"entity"`
	Field  string `json:"field"`
}

// FieldSpec: одно поле схемы связи.
//
// У ссылки на версию StorageName пуст: имя колонки выводит слой хранения
// по соглашениям владельца.
type FieldSpec struct {
	StorageName string    `json:"storageName,omitempty"`
	LogicalName string    `json:"logicalName,omitempty"`
	Kind        FieldKind `json:"kind"`
	Target      Target    `json:"target"`
	Scope       string    `json:"scope"` // сторона связи, к которой относится поле
	Autoload    bool      `json:"autoload,omitempty"`
	Flags       Flag      `json:"flags"`
}

func (f FieldSpec) IsPrimaryKey() bool { return f.Flags.Has(PrimaryKey) }

func (f FieldSpec) IsRequired() bool { return f.Flags.Has(Required) }

func (f Flag) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Flag) UnmarshalText(b []byte) error {
	var out Flag
	for _, part := range strings.Split(string(b), "|") {
		switch part {
		case "":
		case "required":
			out |= Required
		case "primary_key":
			out |= PrimaryKey
		default:
			return fmt.Errorf("unknown flag %q", part)
		}
	}
	*f = out
	return nil
}
