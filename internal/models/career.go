package models

import (
	"time"

	"github.com/threespace/site-backend/internal/resource"
	"github.com/threespace/site-backend/internal/schema"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Closed value sets for career postings.
var (
	CareerFields    = []string{"Engineering", "Software", "Production", "Operations"}
	WorkTypes       = []string{"Remote", "Office", "Hybrid"}
	EmploymentTypes = []string{"Full Time", "Part Time", "Contract"}
)

// CareerPosting is an open position. Collection: careers
type CareerPosting struct {
	ID               primitive.ObjectID `json:"id" bson:"_id"`
	JobTitle         string             `json:"jobTitle" bson:"jobTitle"`
	Field            string             `json:"field" bson:"field"`
	WorkType         string             `json:"workType" bson:"workType"`
	EmploymentType   string             `json:"employmentType" bson:"employmentType"`
	Description      string             `json:"description" bson:"description"`
	Responsibilities []string           `json:"responsibilities" bson:"responsibilities"`
	Requirements     []string           `json:"requirements" bson:"requirements"`
	IsActive         bool               `json:"isActive" bson:"isActive"`
	PostedAt         time.Time          `json:"postedAt" bson:"postedAt"`
	PostedDate       string             `json:"postedDate" bson:"-"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (c *CareerPosting) Hydrate() { c.PostedDate = postedDate(c.PostedAt) }

var careerSchema = schema.New(
	schema.Field{Name: "jobTitle", Aliases: []string{"JobTitle"}, Kind: schema.String, Required: true,
		RequiredMessage: "Job title is required", MaxLen: 100, MaxLenMessage: "Job title cannot exceed 100 characters", Transform: trim},
	schema.Field{Name: "field", Aliases: []string{"Field"}, Kind: schema.String, Required: true,
		RequiredMessage: "Field is required", Enum: CareerFields, EnumNoun: "field"},
	schema.Field{Name: "workType", Kind: schema.String, Required: true,
		RequiredMessage: "Work type is required", Enum: WorkTypes, EnumNoun: "work type"},
	schema.Field{Name: "employmentType", Kind: schema.String, Required: true,
		RequiredMessage: "Employment type is required", Enum: EmploymentTypes, EnumNoun: "employment type"},
	schema.Field{Name: "description", Kind: schema.String, Required: true, RequiredMessage: "Description is required",
		MaxLen: 2000, MaxLenMessage: "Description cannot exceed 2000 characters"},
	schema.Field{Name: "responsibilities", Kind: schema.StringList, Required: true, MinItems: 1,
		RequiredMessage: "At least one responsibility is required", MinItemsMessage: "At least one responsibility is required", Transform: trim},
	schema.Field{Name: "requirements", Kind: schema.StringList, Required: true, MinItems: 1,
		RequiredMessage: "At least one requirement is required", MinItemsMessage: "At least one requirement is required", Transform: trim},
)

// CareerResource drives /api/careers.
var CareerResource = resource.Descriptor{
	Name:        "career posting",
	Collection:  "careers",
	Schema:      careerSchema,
	Activatable: true,
	StampField:  "postedAt",
	SortField:   "postedAt",
	LabelField:  "jobTitle",
	TextFields:  []string{"jobTitle", "description", "responsibilities", "requirements"},
}
