// Package resource describes one managed entity kind (blog posts, careers,
// products, contact messages) so a single repository/service/handler stack
// can serve all of them.
package resource

import "github.com/threespace/site-backend/internal/schema"

// Fields maintained by the pipeline itself. Clients cannot set them.
const (
	FieldID        = "_id"
	FieldActive    = "isActive"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	// FieldUpload holds the reference of the file this entity's own upload
	// stored. Only that file is ever removed on its behalf.
	FieldUpload = "uploadRef"
)

// UploadSpec names the multipart file field and the document attribute that
// receives the stored file's reference path.
type UploadSpec struct {
	FormField string
	DocField  string
}

// Descriptor is the per-resource configuration of the generic pipeline.
type Descriptor struct {
	// Name is the singular noun used in messages and metric labels.
	Name       string
	Collection string
	Schema     *schema.Schema

	// Activatable resources start active and expose toggle; their public
	// listing only returns active entries.
	Activatable bool
	// AppendOnly resources have no update operation.
	AppendOnly bool
	Upload     *UploadSpec

	// StampField, when set, is written once at creation and never again.
	StampField string
	// SortField orders listings newest first.
	SortField string
	// LabelField identifies a deleted entity in the confirmation payload.
	LabelField string
	// TextFields are covered by free-text search.
	TextFields []string
}

// SortKey returns the listing sort attribute, defaulting to createdAt.
func (d Descriptor) SortKey() string {
	if d.SortField == "" {
		return FieldCreatedAt
	}
	return d.SortField
}
