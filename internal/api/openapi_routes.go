package api

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

const defaultOpenAPIFile = "docs/api/openapi.yaml"

// registerOpenAPIRoutes 提供 /openapi 与 /docs/redoc
func (r *Router) registerOpenAPIRoutes() {
	r.engine.GET("/openapi", r.serveOpenAPI)
	r.engine.GET("/openapi.yaml", r.serveOpenAPI)
	r.engine.GET("/docs/redoc", serveRedoc)
}

func (r *Router) serveOpenAPI(c *gin.Context) {
	if _, err := os.Stat(r.openAPIFile); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "missing",
			"message": "接口文档不存在: " + r.openAPIFile,
		})
		return
	}
	c.Header("Content-Type", "application/yaml; charset=utf-8")
	c.File(r.openAPIFile)
}

func serveRedoc(c *gin.Context) {
	// 优先使用本地 redoc 资源，离线可用；否则回退到 CDN
	script := "https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"
	if _, err := os.Stat("static/vendors/redoc/redoc.standalone.js"); err == nil {
		script = "/static/vendors/redoc/redoc.standalone.js"
	}

	html := `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Bingo Game API - Redoc</title>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc spec-url="/openapi"></redoc>
    <script src="` + script + `"></script>
  </body>
</html>`

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
