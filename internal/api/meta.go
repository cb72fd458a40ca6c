package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"junction/internal/dsl"
	"junction/internal/mapping"
)

// ===== META HANDLERS =====

type metaEntityListItem struct {
	Module       string `json:"module"`
	Entity       string `json:"entity"`
	Versioned    bool   `json:"versioned"`
	VersionOwner string `json:"versionOwner,omitempty"`
}

func MetaListHandler(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		cat := state.Catalog()
		names := cat.Registry.Names()
		out := make([]metaEntityListItem, 0, len(names))
		for _, name := range names {
			def, err := cat.Registry.Resolve(name)
			if err != nil {
				continue
			}
			item := metaEntityListItem{Module: def.Module, Entity: def.Name, Versioned: def.IsVersionAware()}
			if def.IsVersionAware() {
				item.VersionOwner = def.VersionOwnerName()
			}
			out = append(out, item)
		}
		c.JSON(http.StatusOK, gin.H{"revision": cat.Revision, "entities": out})
	}
}

type metaField struct {
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	ElemType string            `json:"elemType,omitempty"`
	Ref      string            `json:"ref,omitempty"`
	Enum     []string          `json:"enum,omitempty"`
	Options  map[string]string `json:"options,omitempty"`
}

type metaEntity struct {
	metaEntityListItem
	Fields      []metaField    `json:"fields"`
	Constraints map[string]any `json:"constraints,omitempty"` // {"unique":[["code"],["base","quote","date"]]}
	Mappings    []string       `json:"mappings,omitempty"`    // объявленные связи, где участвует сущность
}

func toMetaField(f dsl.Field) metaField {
	opts := map[string]string{}
	for k, v := range f.Options {
		opts[k] = v
	}
	return metaField{
		Name:     f.Name,
		Type:     strings.ToLower(f.Type),
		ElemType: f.ElemType,
		Ref:      f.RefTarget,
		Enum:     append([]string(nil), f.Enum...),
		Options:  opts,
	}
}

func MetaEntityHandler(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		cat := state.Catalog()
		def, err := cat.Registry.Resolve(c.Param("entity"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found", "details": err.Error()})
			return
		}

		out := metaEntity{
			metaEntityListItem: metaEntityListItem{Module: def.Module, Entity: def.Name, Versioned: def.IsVersionAware()},
			Fields:             []metaField{},
		}
		if def.IsVersionAware() {
			out.VersionOwner = def.VersionOwnerName()
		}
		if e := def.Entity; e != nil {
			for _, f := range e.Fields {
				out.Fields = append(out.Fields, toMetaField(f))
			}
			if len(e.Constraints.Unique) > 0 {
				uniq := make([][]string, 0, len(e.Constraints.Unique))
				for _, set := range e.Constraints.Unique {
					uniq = append(uniq, append([]string(nil), set...))
				}
				out.Constraints = map[string]any{"unique": uniq}
			}
		}
		for _, s := range cat.Mappings {
			if involves(s, def.Name) {
				out.Mappings = append(out.Mappings, s.Name().String())
			}
		}
		c.JSON(http.StatusOK, out)
	}
}

func involves(s *mapping.Schema, entity string) bool {
	return s.Source() == entity || s.Reference() == entity
}
