package models

import (
	"time"

	"github.com/threespace/site-backend/internal/resource"
	"github.com/threespace/site-backend/internal/schema"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a catalogue entry. Collection: products
type Product struct {
	ID          primitive.ObjectID `json:"id" bson:"_id"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	Price       float64            `json:"price" bson:"price"`
	// OldPrice is the previous, struck-through price.
	OldPrice  *float64  `json:"oldPrice,omitempty" bson:"oldPrice,omitempty"`
	IsNew     bool      `json:"isNew" bson:"isNew"`
	Tags      []string  `json:"tags" bson:"tags"`
	ImagePath string    `json:"imagePath,omitempty" bson:"imagePath,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Hydrate keeps tags a JSON array even for documents stored without them.
func (p *Product) Hydrate() {
	if p.Tags == nil {
		p.Tags = []string{}
	}
}

var productSchema = schema.New(
	schema.Field{Name: "name", Kind: schema.String, Required: true, Transform: trim},
	schema.Field{Name: "description", Kind: schema.String, Required: true},
	schema.Field{Name: "price", Kind: schema.Number, Required: true, Min: schema.MinValue(0)},
	schema.Field{Name: "oldPrice", Kind: schema.Number, Min: schema.MinValue(0)},
	schema.Field{Name: "isNew", Kind: schema.Bool, Default: false},
	schema.Field{Name: "tags", Kind: schema.StringList, SplitComma: true, Default: []string{}, Transform: trim},
	schema.Field{Name: "imagePath", Kind: schema.String, Transform: trim},
)

// ProductResource drives /api/products.
var ProductResource = resource.Descriptor{
	Name:       "product",
	Collection: "products",
	Schema:     productSchema,
	Upload:     &resource.UploadSpec{FormField: "image", DocField: "imagePath"},
	LabelField: "name",
}
