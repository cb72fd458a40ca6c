package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"junction/internal/catalog"
	"junction/internal/dsl"
)

type reloadReq struct {
	DSLRoot string `json:"dsl_root"` // директория с *.dsl и манифестами плагинов
}

func AdminReloadHandler(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reloadReq
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}

		dslRoot := strings.TrimSpace(req.DSLRoot)
		if dslRoot == "" {
			dslRoot = state.DSLRoot
		}

		// 1) читаем новые схемы
		entities, err := dsl.LoadAllEntities(dslRoot)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "DSL load error", "details": err.Error()})
			return
		}

		// 2) линтер: блокируют только ошибки
		issues := catalog.Lint(entities)
		if blocking := catalog.Blocking(issues); len(blocking) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "schema has blocking issues",
				"issues":  blocking,
				"hint":    "fix DSL and retry",
				"dslRoot": dslRoot,
			})
			return
		}

		// 3) собираем каталог и атомарно подменяем
		next, err := catalog.Build(entities)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "catalog build error", "details": err.Error()})
			return
		}
		state.swap(next)
		log.Printf("catalog reloaded: revision=%s entities=%d mappings=%d", next.Revision, next.Registry.Len(), len(next.Mappings))

		c.JSON(http.StatusOK, gin.H{
			"ok":       true,
			"revision": next.Revision,
			"dslRoot":  dslRoot,
			"entities": next.Registry.Len(),
			"mappings": len(next.Mappings),
			"warnings": issues,
		})
	}
}
