// Package mapping строит схему таблицы связи many-to-many между двумя
// динамическими сущностями: каноническое имя, набор полей и составной ключ.
package mapping

import (
	"sort"
	"strings"

	"junction/internal/naming"
)

// Separator соединяет отсортированные имена сущностей в имя связи.
const Separator = "_"

// IDField: поле первичного ключа динамической сущности.
const IDField = "id"

// VersionField: поле линейки версий у version-aware сущности.
const VersionField = "version_id"

// Identity: каноническое имя связи; не зависит от порядка пары.
type Identity string

func (i Identity) String() string { return string(i) }

// DeriveIdentity сортирует имена побайтно и склеивает через "_".
// A == B допускается: получится "a_a".
func DeriveIdentity(source, reference string) Identity {
	parts := []string{source, reference}
	sort.Strings(parts)
	return Identity(strings.Join(parts, Separator))
}

// VersionInfo: то, что генератору нужно знать о сущности.
type VersionInfo interface {
	IsVersionAware() bool
	VersionOwnerName() string
}

// Resolver: источник определений сущностей. Регистр передаётся явно.
type Resolver interface {
	Resolve(name string) (VersionInfo, error)
}

// ResolverFunc позволяет передать функцию как Resolver.
type ResolverFunc func(name string) (VersionInfo, error)

func (f ResolverFunc) Resolve(name string) (VersionInfo, error) { return f(name) }

// Lookup оборачивает поиск с конкретным типом определения,
// например (*registry.Registry).Resolve.
func Lookup[D VersionInfo](fn func(name string) (D, error)) Resolver {
	return ResolverFunc(func(name string) (VersionInfo, error) {
		d, err := fn(name)
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}

// BuildFields собирает поля связи по порядку: два внешних ключа, две
// ассоциации, затем ссылка на версию для каждой version-aware стороны.
//
// Ошибки регистра возвращаются как есть.
func BuildFields(source, reference string, r Resolver) ([]FieldSpec, error) {
	sourceLogical, err := naming.ToLogicalCase(source)
	if err != nil {
		return nil, err
	}
	referenceLogical, err := naming.ToLogicalCase(reference)
	if err != nil {
		return nil, err
	}

	fields := []FieldSpec{
		foreignKey(source, sourceLogical),
		foreignKey(reference, referenceLogical),
		association(reference, referenceLogical),
		association(source, sourceLogical),
	}

	fields, err = appendVersionReference(fields, source, r)
	if err != nil {
		return nil, err
	}
	return appendVersionReference(fields, reference, r)
}

func foreignKey(entity, logical string) FieldSpec {
	return FieldSpec{
		StorageName: naming.ForeignKeyColumn(entity),
		LogicalName: logical + "Id",
		Kind:        ForeignKey,
		Target:      Target{Entity: entity, Field: IDField},
		Scope:       entity,
		Flags:       Required | PrimaryKey,
	}
}

// association: many-to-one проекция по внешнему ключу, без флагов
func association(entity, logical string) FieldSpec {
	return FieldSpec{
		StorageName: naming.ForeignKeyColumn(entity),
		LogicalName: logical,
		Kind:        Association,
		Target:      Target{Entity: entity, Field: IDField},
		Scope:       entity,
	}
}

func appendVersionReference(fields []FieldSpec, entity string, r Resolver) ([]FieldSpec, error) {
	def, err := r.Resolve(entity)
	if err != nil {
		return nil, err
	}
	if !def.IsVersionAware() {
		return fields, nil
	}
	return append(fields, FieldSpec{
		Kind:   VersionReference,
		Target: Target{Entity: def.VersionOwnerName(), Field: VersionField},
		Scope:  entity,
		Flags:  PrimaryKey | Required,
	}), nil
}
