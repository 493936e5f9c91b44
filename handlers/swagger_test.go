package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestSwaggerEndpoints(t *testing.T) {
	g := gin.New()
	RegisterSwagger(g)

	req := httptest.NewRequest("GET", "/swagger/index.html", nil)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), "swagger-ui")

	req2 := httptest.NewRequest("GET", "/swagger/doc.json", nil)
	w2 := httptest.NewRecorder()
	g.ServeHTTP(w2, req2)
	require.Equal(t, 200, w2.Code)
	require.Contains(t, w2.Body.String(), "openapi")
	require.Contains(t, w2.Body.String(), "/api/blogs/toggle/{id}")
	require.Contains(t, w2.Body.String(), "/api/verify/confirm")
}

func loadDoc(t *testing.T) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(OpenAPIDocument())
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	return doc
}

func TestOpenAPIDocumentIsValid(t *testing.T) {
	doc := loadDoc(t)
	require.Equal(t, "3.0.3", doc.OpenAPI)
	require.NotNil(t, doc.Components.Schemas["BlogPost"])
}

var ginParam = regexp.MustCompile(`:([A-Za-z]+)`)

// Every registered route must be described, and nothing undocumented may be served.
func TestOpenAPIDocumentCoversRoutes(t *testing.T) {
	doc := loadDoc(t)
	g, _ := newTestServer(t)
	g.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, rt := range g.Routes() {
		if rt.Path == "/swagger/index.html" || rt.Path == "/swagger/doc.json" {
			continue
		}
		path := ginParam.ReplaceAllString(rt.Path, "{$1}")
		item := doc.Paths.Value(path)
		require.NotNil(t, item, "route %s %s is not documented", rt.Method, path)
		require.NotNil(t, item.GetOperation(rt.Method), "operation %s %s is not documented", rt.Method, path)
	}

	// contact messages are append-only
	require.Nil(t, doc.Paths.Value("/api/contact/{id}").Put)
	require.Nil(t, doc.Paths.Value("/api/products/toggle/{id}"))
}
