package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threespace/site-backend/internal/models"
	"github.com/threespace/site-backend/internal/resource/service"
	"github.com/threespace/site-backend/internal/storage"
	"github.com/threespace/site-backend/internal/upload"
)

type envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Data       json.RawMessage     `json:"data"`
	Pagination *service.Pagination `json:"pagination"`
	Code       string              `json:"code"`
	Errors     []struct {
		Field  string `json:"field"`
		Reason string `json:"reason"`
	} `json:"errors"`
}

type fixture struct {
	engine *gin.Engine
	dir    string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	store, err := storage.NewDiskStore(dir)
	require.NoError(t, err)
	up := upload.New(store, "/uploads", 1<<20)

	g := gin.New()
	api := g.Group("/api")
	Register(api, "/blogs", service.NewMemory[models.BlogPost](models.BlogResource, up), opts)
	Register(api, "/products", service.NewMemory[models.Product](models.ProductResource, up), opts)
	Register(api, "/contact", service.NewMemory[models.ContactMessage](models.ContactResource, up), opts)
	return &fixture{engine: g, dir: dir}
}

func (f *fixture) do(t *testing.T, method, path, contentType string, body []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (f *fixture) json(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	return f.do(t, method, path, "application/json", []byte(body))
}

const blogBody = `{"title":"Hello","author":"Ada","readingTime":3,"content":"<p>hi</p><script>x()</script>","date":"May 2024"}`

func TestBlogLifecycle(t *testing.T) {
	f := newFixture(t, Options{})

	w, env := f.json(t, http.MethodPost, "/api/blogs", blogBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)
	assert.Equal(t, "Blog post created successfully", env.Message)
	var created models.BlogPost
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.True(t, created.IsActive)
	assert.Equal(t, "May 2024", created.DisplayDate)
	assert.NotContains(t, created.Content, "script")
	assert.NotEmpty(t, created.PostedDate)
	id := created.ID.Hex()

	w, env = f.json(t, http.MethodGet, "/api/blogs", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(1), env.Pagination.TotalItems)

	w, env = f.json(t, http.MethodPut, "/api/blogs/toggle/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	var toggled models.BlogPost
	require.NoError(t, json.Unmarshal(env.Data, &toggled))
	assert.False(t, toggled.IsActive)

	_, env = f.json(t, http.MethodGet, "/api/blogs", "")
	assert.JSONEq(t, `[]`, string(env.Data))
	_, env = f.json(t, http.MethodGet, "/api/blogs/all", "")
	assert.Equal(t, int64(1), env.Pagination.TotalItems)

	w, env = f.json(t, http.MethodPut, "/api/blogs/"+id, `{"title":"Renamed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.BlogPost
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "Ada", updated.Author)

	w, env = f.json(t, http.MethodDelete, "/api/blogs/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"`+id+`","label":"Renamed"}`, string(env.Data))

	w, env = f.json(t, http.MethodGet, "/api/blogs/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Code)
	assert.False(t, env.Success)
}

func TestValidationErrorsListEveryField(t *testing.T) {
	f := newFixture(t, Options{})
	w, env := f.json(t, http.MethodPost, "/api/blogs", `{"title":"","readingTime":0}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
	assert.Equal(t, "Validation failed", env.Message)
	reasons := map[string]string{}
	for _, e := range env.Errors {
		reasons[e.Field] = e.Reason
	}
	assert.Equal(t, "Title is required", reasons["title"])
	assert.Equal(t, "Author is required", reasons["author"])
	assert.Equal(t, "Reading time must be at least 1 minute", reasons["readingTime"])
}

func TestMalformedIDAndBody(t *testing.T) {
	f := newFixture(t, Options{})

	w, env := f.json(t, http.MethodGet, "/api/blogs/not-an-id", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MALFORMED_ID", env.Code)

	w, env = f.json(t, http.MethodPost, "/api/blogs", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
}

func TestPaginationQuery(t *testing.T) {
	f := newFixture(t, Options{Paging: service.Paging{DefaultSize: 2, MaxSize: 3}})
	for i := 0; i < 5; i++ {
		w, _ := f.json(t, http.MethodPost, "/api/contact", `{"name":"n","email":"n@example.com","message":"hi"}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	_, env := f.json(t, http.MethodGet, "/api/contact", "")
	assert.Equal(t, service.Pagination{Page: 1, PageSize: 2, TotalItems: 5, TotalPages: 3}, *env.Pagination)

	_, env = f.json(t, http.MethodGet, "/api/contact?page=2&pageSize=50", "")
	assert.Equal(t, service.Pagination{Page: 2, PageSize: 3, TotalItems: 5, TotalPages: 2}, *env.Pagination)

	_, env = f.json(t, http.MethodGet, "/api/contact?page=9&limit=2", "")
	assert.JSONEq(t, `[]`, string(env.Data))

	w, env := f.json(t, http.MethodGet, "/api/contact?page=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
}

func TestSearchQuery(t *testing.T) {
	f := newFixture(t, Options{})
	_, _ = f.json(t, http.MethodPost, "/api/blogs", blogBody)
	_, _ = f.json(t, http.MethodPost, "/api/blogs", `{"title":"Kubernetes tips","author":"Lin","readingTime":5}`)

	_, env := f.json(t, http.MethodGet, "/api/blogs?q=kubernetes", "")
	assert.Equal(t, int64(1), env.Pagination.TotalItems)
}

func TestContactHasNoUpdateOrToggle(t *testing.T) {
	f := newFixture(t, Options{})
	w, env := f.json(t, http.MethodPost, "/api/contact", `{"name":"<b>Bo</b>","email":"bo@example.com","message":"Hello"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var msg models.ContactMessage
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	assert.Equal(t, "Bo", msg.Name)

	w, _ = f.json(t, http.MethodPut, "/api/contact/"+msg.ID.Hex(), `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = f.json(t, http.MethodPut, "/api/contact/toggle/"+msg.ID.Hex(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = f.json(t, http.MethodPut, "/api/products/toggle/"+msg.ID.Hex(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, content []byte) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return mw.FormDataContentType(), buf.Bytes()
}

func TestProductMultipartUpload(t *testing.T) {
	f := newFixture(t, Options{})
	ct, body := multipartBody(t, map[string]string{
		"name": "Widget", "description": "A widget", "price": "9.5", "isNew": "on", "tags": "a, b",
	}, "image", "Photo.PNG", []byte("png-bytes"))

	w, env := f.do(t, http.MethodPost, "/api/products", ct, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p models.Product
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, 9.5, p.Price)
	assert.True(t, p.IsNew)
	assert.Equal(t, []string{"a", "b"}, p.Tags)
	require.True(t, strings.HasPrefix(p.ImagePath, "/uploads/"), p.ImagePath)
	assert.True(t, strings.HasSuffix(p.ImagePath, ".png"))

	stored, err := os.ReadFile(filepath.Join(f.dir, strings.TrimPrefix(p.ImagePath, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(stored))

	// invalid submission stores nothing
	ct, body = multipartBody(t, map[string]string{"name": "No price"}, "image", "x.png", []byte("x"))
	w, _ = f.do(t, http.MethodPost, "/api/products", ct, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBodyLimit(t *testing.T) {
	f := newFixture(t, Options{MaxBodyBytes: 64})
	w, env := f.json(t, http.MethodPost, "/api/contact",
		`{"name":"n","email":"n@example.com","message":"`+strings.Repeat("x", 200)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", env.Code)
}

func TestFormValues(t *testing.T) {
	out := formValues(map[string][]string{
		"title":   {"t"},
		"tags[]":  {"a"},
		"repeats": {"x", "y"},
	})
	assert.Equal(t, "t", out["title"])
	assert.Equal(t, []any{"a"}, out["tags"])
	assert.Equal(t, []any{"x", "y"}, out["repeats"])
}
