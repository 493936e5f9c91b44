package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/threespace/site-backend/internal/storage"
	"github.com/threespace/site-backend/internal/upload"
	"github.com/threespace/site-backend/pkg/response"
)

// RegisterUploads serves stored files under the uploader's public prefix,
// e.g. GET /uploads/1714550400000-123456789.png.
func RegisterUploads(r gin.IRoutes, up *upload.Uploader) {
	r.GET(up.Prefix()+"/:name", func(c *gin.Context) {
		name := c.Param("name")
		if !storage.ValidKey(name) {
			response.Fail(c, http.StatusNotFound, "NOT_FOUND", "File not found")
			return
		}
		rc, info, err := up.Open(c.Request.Context(), name)
		if err != nil {
			if errors.Is(err, storage.ErrBlobNotFound) || errors.Is(err, storage.ErrInvalidKey) {
				response.Fail(c, http.StatusNotFound, "NOT_FOUND", "File not found")
				return
			}
			response.Error(c, err)
			return
		}
		defer rc.Close()
		c.Header("Cache-Control", "public, max-age=86400")
		if !info.ModTime.IsZero() {
			c.Header("Last-Modified", info.ModTime.UTC().Format(http.TimeFormat))
		}
		c.DataFromReader(http.StatusOK, info.Size, info.ContentType, rc, nil)
	})
}
