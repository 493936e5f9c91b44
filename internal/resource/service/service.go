// Package service implements the resource pipeline shared by every entity
// kind: validate, store the attached file, persist, and convert to the typed
// model.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/threespace/site-backend/internal/apperr"
	"github.com/threespace/site-backend/internal/resource"
	"github.com/threespace/site-backend/internal/resource/repository"
	"github.com/threespace/site-backend/internal/schema"
	"github.com/threespace/site-backend/internal/upload"
	"github.com/threespace/site-backend/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrUnsupported is returned for operations the descriptor does not enable
// (toggle on non-activatable resources, update on append-only ones).
var ErrUnsupported = errors.New("operation not supported for this resource")

// Hydrator is implemented by models with derived fields computed after load.
type Hydrator interface {
	Hydrate()
}

// Deleted identifies a removed entity.
type Deleted struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Service runs the pipeline for one resource; T is the model struct the
// stored documents decode into.
type Service[T any] struct {
	desc    resource.Descriptor
	repo    repository.Repository
	uploads *upload.Uploader
	now     func() time.Time
}

// New returns a Service. uploads may be nil for resources without files.
func New[T any](desc resource.Descriptor, repo repository.Repository, uploads *upload.Uploader) *Service[T] {
	return &Service[T]{desc: desc, repo: repo, uploads: uploads, now: time.Now}
}

// NewMemory returns a Service backed by the in-memory repository.
func NewMemory[T any](desc resource.Descriptor, uploads *upload.Uploader) *Service[T] {
	return New[T](desc, repository.NewMemoryRepo(desc), uploads)
}

func (s *Service[T]) Descriptor() resource.Descriptor { return s.desc }

func (s *Service[T]) Create(ctx context.Context, input map[string]any, file *upload.File) (out *T, err error) {
	defer s.observe("create", &err)

	fields, err := s.desc.Schema.Validate(input, schema.Create)
	if err != nil {
		return nil, err
	}
	ref, err := s.store(ctx, file)
	if err != nil {
		return nil, err
	}
	if ref != "" {
		fields[s.desc.Upload.DocField] = ref
		fields[resource.FieldUpload] = ref
	}
	if s.desc.Activatable {
		fields[resource.FieldActive] = true
	}
	if s.desc.StampField != "" {
		fields[s.desc.StampField] = s.now().UTC()
	}

	doc, err := s.repo.Insert(ctx, bson.M(fields))
	if err != nil {
		s.discard(ctx, ref)
		return nil, err
	}
	return decode[T](doc)
}

func (s *Service[T]) Get(ctx context.Context, id string) (out *T, err error) {
	defer s.observe("get", &err)
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, err
	}
	doc, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	return decode[T](doc)
}

// ListActive is the public listing. Resources without activation list
// everything.
func (s *Service[T]) ListActive(ctx context.Context, req PageRequest) (*Page[T], error) {
	var equals bson.M
	if s.desc.Activatable {
		equals = bson.M{resource.FieldActive: true}
	}
	return s.list(ctx, "list_active", req, equals)
}

// ListAll is the administrative listing including inactive entries.
func (s *Service[T]) ListAll(ctx context.Context, req PageRequest) (*Page[T], error) {
	return s.list(ctx, "list_all", req, nil)
}

func (s *Service[T]) list(ctx context.Context, op string, req PageRequest, equals bson.M) (out *Page[T], err error) {
	defer s.observe(op, &err)
	if req.Page < 1 || req.PageSize < 1 {
		return nil, schema.Invalid("page", "page and page size must be positive")
	}
	docs, total, err := s.repo.Find(ctx, repository.Query{
		Equals: equals,
		Search: req.Search,
		Skip:   req.Skip(),
		Limit:  int64(req.PageSize),
	})
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := decode[T](d)
		if err != nil {
			return nil, err
		}
		items = append(items, *v)
	}
	return &Page[T]{Items: items, Pagination: NewPagination(req, total)}, nil
}

// Update applies the supplied fields only. A newly attached file replaces
// the previous upload, which is removed once the update is stored. The old
// file is taken from the atomic update itself, so concurrent replacements
// each remove exactly the file they displaced.
func (s *Service[T]) Update(ctx context.Context, id string, input map[string]any, file *upload.File) (out *T, err error) {
	defer s.observe("update", &err)
	if s.desc.AppendOnly {
		return nil, fmt.Errorf("update %s: %w", s.desc.Name, ErrUnsupported)
	}
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, err
	}
	fields, err := s.desc.Schema.Validate(input, schema.Update)
	if err != nil {
		return nil, err
	}

	ref, err := s.store(ctx, file)
	if err != nil {
		return nil, err
	}
	if ref != "" {
		fields[s.desc.Upload.DocField] = ref
		fields[resource.FieldUpload] = ref
	}

	if len(fields) == 0 {
		doc, err := s.repo.FindByID(ctx, oid)
		if err != nil {
			return nil, err
		}
		return decode[T](doc)
	}
	before, after, err := s.repo.UpdateByID(ctx, oid, bson.M(fields))
	if err != nil {
		s.discard(ctx, ref)
		return nil, err
	}
	if old := s.ownedUpload(before); old != "" {
		if now, _ := after[s.desc.Upload.DocField].(string); now != old {
			s.discard(ctx, old)
		}
	}
	return decode[T](after)
}

// Delete removes the entity and its upload. A second delete of the same id
// reports not found.
func (s *Service[T]) Delete(ctx context.Context, id string) (out *Deleted, err error) {
	defer s.observe("delete", &err)
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, err
	}
	doc, err := s.repo.DeleteByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	s.discard(ctx, s.ownedUpload(doc))
	label, _ := doc[s.desc.LabelField].(string)
	return &Deleted{ID: oid.Hex(), Label: label}, nil
}

// ToggleActive flips isActive; applying it twice restores the original state.
func (s *Service[T]) ToggleActive(ctx context.Context, id string) (out *T, err error) {
	defer s.observe("toggle", &err)
	if !s.desc.Activatable {
		return nil, fmt.Errorf("toggle %s: %w", s.desc.Name, ErrUnsupported)
	}
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, err
	}
	doc, err := s.repo.ToggleByID(ctx, oid, resource.FieldActive)
	if err != nil {
		return nil, err
	}
	return decode[T](doc)
}

// Count returns the number of stored entities, optionally active ones only.
func (s *Service[T]) Count(ctx context.Context, activeOnly bool) (int64, error) {
	var equals bson.M
	if activeOnly && s.desc.Activatable {
		equals = bson.M{resource.FieldActive: true}
	}
	return s.repo.Count(ctx, equals)
}

func (s *Service[T]) store(ctx context.Context, file *upload.File) (string, error) {
	if file == nil || s.desc.Upload == nil {
		return "", nil
	}
	if s.uploads == nil {
		return "", apperr.Upload(errors.New("uploads are not configured"))
	}
	return s.uploads.Save(ctx, file)
}

// ownedUpload is the file doc's own upload stored, provided doc still
// points at it. References copied from other entities are never owned.
func (s *Service[T]) ownedUpload(doc bson.M) string {
	if s.desc.Upload == nil || doc == nil {
		return ""
	}
	owned, _ := doc[resource.FieldUpload].(string)
	current, _ := doc[s.desc.Upload.DocField].(string)
	if owned == "" || owned != current {
		return ""
	}
	return owned
}

func (s *Service[T]) discard(ctx context.Context, ref string) {
	if ref == "" || s.uploads == nil {
		return
	}
	s.uploads.Discard(context.WithoutCancel(ctx), ref)
}

func (s *Service[T]) observe(op string, err *error) {
	metrics.ResourceOperations.WithLabelValues(s.desc.Name, op, outcome(*err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrMalformedID):
		return "invalid"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	}
	return "error"
}

func decode[T any](doc bson.M) (*T, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var v T
	if err := bson.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if h, ok := any(&v).(Hydrator); ok {
		h.Hydrate()
	}
	return &v, nil
}
