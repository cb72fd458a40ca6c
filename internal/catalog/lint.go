package catalog

import (
	"fmt"
	"sort"
	"strings"

	"junction/internal/dsl"
	"junction/internal/mapping"
	"junction/internal/naming"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type Issue struct {
	Entity   string   `json:"entity"`
	Field    string   `json:"field,omitempty"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Lint проверяет базовые противоречия в описаниях сущностей до сборки каталога.
func Lint(entities map[string]*dsl.Entity) []Issue {
	var issues []Issue
	add := func(sev Severity, entity, field, code, msg string) {
		issues = append(issues, Issue{Entity: entity, Field: field, Code: code, Message: msg, Severity: sev})
	}

	names := make([]string, 0, len(entities))
	for n := range entities {
		names = append(names, n)
	}
	sort.Strings(names)

	// каноническое имя связи -> первая объявившая её пара
	type pair struct{ entity, field, source, reference string }
	declared := map[mapping.Identity]pair{}

	for _, name := range names {
		e := entities[name]

		if err := naming.Validate(e.Name); err != nil {
			add(SeverityError, e.Name, "", "invalid_identifier", err.Error())
		}

		// версионирование
		if e.VersionOwner != "" {
			owner, ok := entities[e.VersionOwner]
			switch {
			case !e.Versioned:
				add(SeverityWarning, e.Name, "", "version_owner_ignored",
					"version_owner is set but the entity is not versioned")
			case !ok:
				add(SeverityError, e.Name, "", "version_owner_unknown",
					fmt.Sprintf("version owner %q is not registered", e.VersionOwner))
			case !owner.Versioned:
				add(SeverityError, e.Name, "", "version_owner_not_versioned",
					fmt.Sprintf("version owner %q is not versioned", e.VersionOwner))
			}
		}

		for _, f := range e.Fields {
			// валидность on_delete
			if od := strings.TrimSpace(strings.ToLower(f.Options["on_delete"])); od != "" {
				switch od {
				case "restrict", "set_null", "cascade":
				default:
					add(SeverityError, e.Name, f.Name, "on_delete_unknown",
						fmt.Sprintf("unknown on_delete policy %q (allowed: restrict|set_null|cascade)", od))
				}
			}

			isRef := f.Type == dsl.TypeRef || (f.Type == dsl.TypeArray && f.ElemType == dsl.TypeRef)
			if isRef || f.Type == dsl.TypeMany {
				target := strings.TrimSpace(f.RefTarget)
				switch {
				case target == "":
					add(SeverityError, e.Name, f.Name, "ref_target_empty", "ref field has empty RefTarget")
				case entities[target] == nil:
					add(SeverityError, e.Name, f.Name, "ref_target_unknown",
						fmt.Sprintf("target entity %q is not registered", target))
				}
			}

			// required ref + set_null: конфликт
			if f.Type == dsl.TypeRef {
				req := strings.EqualFold(f.Options["required"], "true")
				od := strings.TrimSpace(strings.ToLower(f.Options["on_delete"]))
				if req && od == "set_null" {
					add(SeverityError, e.Name, f.Name, "required_conflicts_on_delete",
						"required ref cannot have on_delete=set_null; use restrict (or make field optional)")
				}
			}

			if f.Type == dsl.TypeMany && f.RefTarget != "" {
				id := mapping.DeriveIdentity(e.Name, f.RefTarget)
				prev, ok := declared[id]
				switch {
				case !ok:
					declared[id] = pair{entity: e.Name, field: f.Name, source: e.Name, reference: f.RefTarget}
				case !samePair(prev.source, prev.reference, e.Name, f.RefTarget):
					add(SeverityError, e.Name, f.Name, "mapping_identity_collision",
						fmt.Sprintf("mapping %q for {%s, %s} collides with {%s, %s} declared by %s.%s",
							id, e.Name, f.RefTarget, prev.source, prev.reference, prev.entity, prev.field))
				}
			}

			// связь сущности с самой собой допустима, но обе колонки ключа получат одно имя
			if f.Type == dsl.TypeMany && f.RefTarget == e.Name {
				add(SeverityWarning, e.Name, f.Name, "self_mapping",
					"many-to-many to itself yields duplicate key columns and cannot be materialized")
			}
		}
	}
	return issues
}

func samePair(a1, b1, a2, b2 string) bool {
	return (a1 == a2 && b1 == b2) || (a1 == b2 && b1 == a2)
}

// Blocking возвращает только ошибки, без предупреждений.
func Blocking(issues []Issue) []Issue {
	var out []Issue
	for _, it := range issues {
		if it.Severity == SeverityError {
			out = append(out, it)
		}
	}
	return out
}
