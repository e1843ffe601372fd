package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Resource is a master-data record: city, procedure, authority, exam type,
// forensic service, requesting unit, occurrence classification or location.
// Each kind only fills the optional fields that apply to it.
type Resource struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Acronym     string             `json:"acronym,omitempty" bson:"acronym,omitempty"`
	State       string             `json:"state,omitempty" bson:"state,omitempty"`
	Group       string             `json:"group,omitempty" bson:"group,omitempty"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Address     string             `json:"address,omitempty" bson:"address,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Reference returns the record as an occurrence reference
func (r Resource) Reference() *Reference {
	return &Reference{ID: r.ID.Hex(), Name: r.Name, State: r.State}
}

// ResourceRequest is the body of master-data create and update requests
type ResourceRequest struct {
	Name        *string `json:"name,omitempty"`
	Acronym     *string `json:"acronym,omitempty"`
	State       *string `json:"state,omitempty"`
	Group       *string `json:"group,omitempty"`
	Description *string `json:"description,omitempty"`
	Address     *string `json:"address,omitempty"`
}
