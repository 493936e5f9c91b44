// Package handler exposes a resource service over HTTP with gin. Every
// resource gets the same route set; update and toggle are registered only
// when the descriptor allows them.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/threespace/site-backend/internal/resource/service"
	"github.com/threespace/site-backend/internal/schema"
	"github.com/threespace/site-backend/internal/upload"
	"github.com/threespace/site-backend/pkg/response"
)

// Options tunes request handling.
type Options struct {
	Paging service.Paging
	// MaxBodyBytes caps the request body; zero means no cap.
	MaxBodyBytes int64
}

// Handler serves one resource.
type Handler[T any] struct {
	svc  *service.Service[T]
	opts Options
	noun string
}

func New[T any](svc *service.Service[T], opts Options) *Handler[T] {
	name := svc.Descriptor().Name
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return &Handler[T]{svc: svc, opts: opts, noun: name}
}

// Register mounts the resource routes on rg under base, e.g. "/blogs".
func Register[T any](rg *gin.RouterGroup, base string, svc *service.Service[T], opts Options) *Handler[T] {
	h := New(svc, opts)
	g := rg.Group(base)
	desc := svc.Descriptor()

	g.POST("", h.Create)
	g.GET("", h.ListActive)
	g.GET("/all", h.ListAll)
	g.GET("/:id", h.Get)
	if !desc.AppendOnly {
		g.PUT("/:id", h.Update)
	}
	g.DELETE("/:id", h.Delete)
	if desc.Activatable {
		g.PUT("/toggle/:id", h.Toggle)
	}
	return h
}

func (h *Handler[T]) Create(c *gin.Context) {
	input, file, err := h.bind(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.svc.Create(c.Request.Context(), input, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, h.noun+" created successfully", out)
}

func (h *Handler[T]) ListActive(c *gin.Context) {
	h.list(c, h.svc.ListActive)
}

func (h *Handler[T]) ListAll(c *gin.Context) {
	h.list(c, h.svc.ListAll)
}

func (h *Handler[T]) list(c *gin.Context, fetch func(context.Context, service.PageRequest) (*service.Page[T], error)) {
	size := c.Query("limit")
	if size == "" {
		size = c.Query("pageSize")
	}
	req, err := service.ParsePageRequest(c.Query("page"), size, h.opts.Paging)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.Search = strings.TrimSpace(c.Query("q"))
	page, err := fetch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, h.noun+" list retrieved", page.Items, page.Pagination)
}

func (h *Handler[T]) Get(c *gin.Context) {
	out, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, h.noun+" retrieved", out)
}

func (h *Handler[T]) Update(c *gin.Context) {
	input, file, err := h.bind(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.svc.Update(c.Request.Context(), c.Param("id"), input, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, h.noun+" updated successfully", out)
}

func (h *Handler[T]) Delete(c *gin.Context) {
	out, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, h.noun+" deleted successfully", out)
}

func (h *Handler[T]) Toggle(c *gin.Context) {
	out, err := h.svc.ToggleActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, h.noun+" status updated", out)
}

func (h *Handler[T]) fail(c *gin.Context, err error) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		response.Fail(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body is too large")
		return
	}
	response.Error(c, err)
}

// bind reads the candidate fields from a JSON, urlencoded or multipart body.
// The attached file, if the resource accepts one, is returned separately.
func (h *Handler[T]) bind(c *gin.Context) (map[string]any, *upload.File, error) {
	if h.opts.MaxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxBodyBytes)
	}
	switch c.ContentType() {
	case gin.MIMEMultipartPOSTForm:
		form, err := c.MultipartForm()
		if err != nil {
			return nil, nil, malformed(err, "request body must be valid multipart form data")
		}
		return formValues(form.Value), h.attachment(form), nil
	case gin.MIMEPOSTForm:
		if err := c.Request.ParseForm(); err != nil {
			return nil, nil, malformed(err, "request body must be valid form data")
		}
		return formValues(c.Request.PostForm), nil, nil
	}
	return decodeJSON(c.Request.Body)
}

func (h *Handler[T]) attachment(form *multipart.Form) *upload.File {
	spec := h.svc.Descriptor().Upload
	if spec == nil {
		return nil
	}
	files := form.File[spec.FormField]
	if len(files) == 0 {
		return nil
	}
	fh := files[0]
	return &upload.File{
		Field:       spec.FormField,
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open:        func() (io.ReadCloser, error) { return fh.Open() },
	}
}

func decodeJSON(body io.Reader) (map[string]any, *upload.File, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	var input map[string]any
	if err := dec.Decode(&input); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil, nil
		}
		return nil, nil, malformed(err, "request body must be a JSON object")
	}
	if input == nil {
		input = map[string]any{}
	}
	return input, nil, nil
}

// formValues keeps single values as strings and repeated keys as lists.
func formValues(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))
	for k, vs := range values {
		key := strings.TrimSuffix(k, "[]")
		switch {
		case len(vs) == 1 && key == k:
			out[key] = vs[0]
		default:
			list := make([]any, len(vs))
			for i, v := range vs {
				list[i] = v
			}
			out[key] = list
		}
	}
	return out
}

func malformed(err error, reason string) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return err
	}
	return schema.Invalid("body", reason)
}
