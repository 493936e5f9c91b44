package models

import (
	"time"

	"github.com/threespace/site-backend/internal/resource"
	"github.com/threespace/site-backend/internal/schema"
	"github.com/threespace/site-backend/internal/security"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContactMessage is a contact form submission. Collection: contacts
type ContactMessage struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email"`
	Message   string             `json:"message,omitempty" bson:"message,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

var contactSchema = schema.New(
	schema.Field{Name: "name", Kind: schema.String, Required: true, RequiredMessage: "Name is required", Transform: security.StripTags},
	schema.Field{Name: "email", Kind: schema.String, Required: true, RequiredMessage: "Email is required", Email: true, Transform: trim},
	schema.Field{Name: "message", Kind: schema.String, MaxLen: 500, MaxLenMessage: "Message is too long", Transform: security.StripTags},
)

// ContactResource drives /api/contact. Messages are never edited.
var ContactResource = resource.Descriptor{
	Name:       "contact message",
	Collection: "contacts",
	Schema:     contactSchema,
	AppendOnly: true,
	LabelField: "name",
}

// All lists every resource descriptor, for index management and tooling.
func All() []resource.Descriptor {
	return []resource.Descriptor{BlogResource, CareerResource, ProductResource, ContactResource}
}
