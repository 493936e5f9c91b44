package models

import (
	"time"

	"github.com/threespace/site-backend/internal/resource"
	"github.com/threespace/site-backend/internal/schema"
	"github.com/threespace/site-backend/internal/security"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BlogPost is a published article. Collection: blogs
type BlogPost struct {
	ID          primitive.ObjectID `json:"id" bson:"_id"`
	Title       string             `json:"title" bson:"title"`
	Subtitle    string             `json:"subtitle,omitempty" bson:"subtitle,omitempty"`
	Excerpt     string             `json:"excerpt,omitempty" bson:"excerpt,omitempty"`
	Content     string             `json:"content,omitempty" bson:"content,omitempty"`
	Author      string             `json:"author" bson:"author"`
	ReadingTime int                `json:"readingTime" bson:"readingTime"`
	Category    string             `json:"category,omitempty" bson:"category,omitempty"`
	Image       string             `json:"image,omitempty" bson:"image,omitempty"`
	DisplayDate string             `json:"displayDate,omitempty" bson:"displayDate,omitempty"`
	IsActive    bool               `json:"isActive" bson:"isActive"`
	PostedAt    time.Time          `json:"postedAt" bson:"postedAt"`
	PostedDate  string             `json:"postedDate" bson:"-"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (b *BlogPost) Hydrate() { b.PostedDate = postedDate(b.PostedAt) }

var blogSchema = schema.New(
	schema.Field{Name: "title", Kind: schema.String, Required: true, RequiredMessage: "Title is required",
		MaxLen: 150, MaxLenMessage: "Title cannot exceed 150 characters", Transform: trim},
	schema.Field{Name: "subtitle", Kind: schema.String, MaxLen: 250, MaxLenMessage: "Subtitle cannot exceed 250 characters", Transform: trim},
	schema.Field{Name: "excerpt", Kind: schema.String, MaxLen: 300, MaxLenMessage: "Excerpt cannot exceed 300 characters", Transform: trim},
	schema.Field{Name: "content", Kind: schema.String, Transform: security.SanitizeHTML},
	schema.Field{Name: "author", Kind: schema.String, Required: true, RequiredMessage: "Author is required", Transform: trim},
	schema.Field{Name: "readingTime", Kind: schema.Int, Required: true, RequiredMessage: "Estimated reading time is required",
		Min: schema.MinValue(1), MinMessage: "Reading time must be at least 1 minute"},
	schema.Field{Name: "category", Kind: schema.String, Transform: trim},
	schema.Field{Name: "image", Kind: schema.String, Transform: trim},
	schema.Field{Name: "displayDate", Aliases: []string{"date"}, Kind: schema.String, Transform: trim},
)

// BlogResource drives /api/blogs.
var BlogResource = resource.Descriptor{
	Name:        "blog post",
	Collection:  "blogs",
	Schema:      blogSchema,
	Activatable: true,
	Upload:      &resource.UploadSpec{FormField: "image", DocField: "image"},
	StampField:  "postedAt",
	SortField:   "postedAt",
	LabelField:  "title",
	TextFields:  []string{"title", "excerpt", "content", "author", "subtitle", "category"},
}
