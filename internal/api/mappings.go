package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"junction/internal/mapping"
	"junction/internal/naming"
	"junction/internal/pg"
	"junction/internal/registry"
)

type mappingView struct {
	Name       string              `json:"name"`
	Source     string              `json:"source"`
	Reference  string              `json:"reference"`
	Declared   bool                `json:"declared"`
	Fields     []mapping.FieldSpec `json:"fields"`
	PrimaryKey []string            `json:"primaryKey"` // физические колонки ключа
}

func toMappingView(s *mapping.Schema, declared bool) mappingView {
	v := mappingView{
		Name:      s.Name().String(),
		Source:    s.Source(),
		Reference: s.Reference(),
		Declared:  declared,
		Fields:    s.Fields(),
	}
	for _, f := range s.PrimaryKey() {
		if col, ok := pg.ColumnName(f); ok {
			v.PrimaryKey = append(v.PrimaryKey, col)
		}
	}
	return v
}

// GET /api/mappings
func MappingListHandler(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		cat := state.Catalog()
		out := make([]mappingView, 0, len(cat.Mappings))
		for _, s := range cat.Mappings {
			out = append(out, toMappingView(s, true))
		}
		c.JSON(http.StatusOK, gin.H{"revision": cat.Revision, "mappings": out})
	}
}

// GET /api/mappings/:source/:reference: схема для произвольной пары, в том числе необъявленной
func MappingHandler(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		cat := state.Catalog()
		s, err := cat.Mapping(c.Param("source"), c.Param("reference"))
		switch {
		case err == nil:
		case errors.Is(err, naming.ErrInvalidIdentifier):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entity name", "details": err.Error()})
			return
		case registry.IsUnknownEntity(err):
			c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found", "details": err.Error()})
			return
		case errors.Is(err, mapping.ErrIdentityCollision):
			c.JSON(http.StatusConflict, gin.H{"error": "Mapping name collision", "details": err.Error()})
			return
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		_, declared := cat.Declared(s.Name())
		c.JSON(http.StatusOK, toMappingView(s, declared))
	}
}

// GET /api/ddl[?format=sql]
func DDLHandler(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		cat := state.Catalog()
		ddl, err := pg.GenerateDDL(cat, state.PGSchema)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "DDL generation failed", "details": err.Error()})
			return
		}
		if strings.EqualFold(c.Query("format"), "sql") {
			var sb strings.Builder
			for _, k := range pg.SortedKeys(ddl) {
				sb.WriteString("-- " + k + "\n")
				sb.WriteString(ddl[k])
			}
			c.String(http.StatusOK, sb.String())
			return
		}
		c.JSON(http.StatusOK, gin.H{"revision": cat.Revision, "schema": state.PGSchema, "ddl": ddl})
	}
}
