// Package registry хранит определения динамических сущностей и отдаёт их по имени.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"junction/internal/dsl"
)

// ErrUnknownEntity: сущность с таким именем не зарегистрирована.
var ErrUnknownEntity = errors.New("unknown entity")

// UnknownEntityError несёт имя, которое не удалось разрешить.
type UnknownEntityError struct {
	Name string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown entity %q", e.Name)
}

func (e *UnknownEntityError) Is(err error) bool { return err == ErrUnknownEntity }

// IsUnknownEntity: err является UnknownEntityError или оборачивает его.
func IsUnknownEntity(err error) bool {
	if err == nil {
		return false
	}
	var ue *UnknownEntityError
	return errors.As(err, &ue) || errors.Is(err, ErrUnknownEntity)
}

// Definition: то, что регистр знает о динамической сущности.
type Definition struct {
	Name         string
	Module       string
	Versioned    bool
	VersionOwner string
	Entity       *dsl.Entity // исходное описание, может быть nil
}

func (d *Definition) EntityName() string { return d.Name }

func (d *Definition) IsVersionAware() bool { return d.Versioned }

// VersionOwnerName: если владелец версии не задан явно, им является сама сущность.
func (d *Definition) VersionOwnerName() string {
	if d.VersionOwner != "" {
		return d.VersionOwner
	}
	return d.Name
}

// Registry: потокобезопасный справочник name -> Definition.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

func New() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// FromEntities строит регистр из загруженных DSL-сущностей.
func FromEntities(entities map[string]*dsl.Entity) (*Registry, error) {
	r := New()
	names := make([]string, 0, len(entities))
	for n := range entities {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		e := entities[n]
		err := r.Register(&Definition{
			Name:         e.Name,
			Module:       e.Module,
			Versioned:    e.Versioned,
			VersionOwner: e.VersionOwner,
			Entity:       e,
		})
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(d *Definition) error {
	if d == nil || strings.TrimSpace(d.Name) == "" {
		return errors.New("registry: empty entity name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[d.Name]; exists {
		return fmt.Errorf("registry: entity %q already registered", d.Name)
	}
	r.defs[d.Name] = d
	return nil
}

// Resolve возвращает определение или *UnknownEntityError.
func (r *Registry) Resolve(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	if !ok {
		return nil, &UnknownEntityError{Name: name}
	}
	return d, nil
}

func (r *Registry) Has(name string) bool {
	_, err := r.Resolve(name)
	return err == nil
}

// Names: отсортированный список зарегистрированных имён.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.defs))
	for n := range r.defs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}
