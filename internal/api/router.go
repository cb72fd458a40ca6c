// api/router.go
package api

import (
	"github.com/gin-gonic/gin"
)

func NewRouter(state *State) *gin.Engine {
	r := gin.Default()

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/meta", MetaListHandler(state))
		apiGroup.GET("/meta/:entity", MetaEntityHandler(state))

		apiGroup.GET("/mappings", MappingListHandler(state))
		apiGroup.GET("/mappings/:source/:reference", MappingHandler(state))

		apiGroup.GET("/ddl", DDLHandler(state))

		apiGroup.POST("/admin/reload", AdminReloadHandler(state))
	}
	return r
}

func RunServer(addr string, state *State) error {
	return NewRouter(state).Run(addr)
}
