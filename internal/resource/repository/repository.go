// Package repository persists resource documents. Documents travel as bson.M
// keyed by canonical field names so one implementation serves every
// resource; typed conversion happens in the service layer.
package repository

import (
	"context"
	"fmt"

	"github.com/threespace/site-backend/internal/apperr"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Query selects a page of documents.
type Query struct {
	// Equals matches documents whose fields equal every given value.
	Equals bson.M
	// Search is free text matched against the descriptor's text fields.
	Search string
	Skip   int64
	// Limit of zero means no limit.
	Limit int64
}

// Repository is the storage contract for one resource collection.
// Implementations return apperr.ErrNotFound for missing ids and wrap store
// failures with apperr.ErrPersistence.
type Repository interface {
	Insert(ctx context.Context, doc bson.M) (bson.M, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (bson.M, error)
	// Find returns the requested page, newest first, and the total number
	// of matching documents.
	Find(ctx context.Context, q Query) ([]bson.M, int64, error)
	// UpdateByID sets fields in one atomic step and returns the document as
	// it was before and after the write.
	UpdateByID(ctx context.Context, id primitive.ObjectID, set bson.M) (before, after bson.M, err error)
	DeleteByID(ctx context.Context, id primitive.ObjectID) (bson.M, error)
	// ToggleByID flips a boolean field in a single atomic step and returns
	// the document in its new state.
	ToggleByID(ctx context.Context, id primitive.ObjectID, field string) (bson.M, error)
	Count(ctx context.Context, equals bson.M) (int64, error)
}

// ParseID validates the textual form of a document id.
func ParseID(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", apperr.ErrMalformedID, s)
	}
	return id, nil
}
