package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Occurrence statuses. ABERTA is the implicit default of a new occurrence.
const (
	StatusOpen      = "ABERTA"
	StatusConcluded = "CONCLUIDA"
	StatusCancelled = "CANCELADA"
)

// IsValidOccurrenceStatus reports whether s is one of the occurrence statuses
func IsValidOccurrenceStatus(s string) bool {
	return s == StatusOpen || s == StatusConcluded || s == StatusCancelled
}

// Reference is the {id, name} pointer an occurrence keeps to master data
type Reference struct {
	ID    string `json:"id" bson:"id"`
	Name  string `json:"name" bson:"name"`
	State string `json:"state,omitempty" bson:"state,omitempty"`
}

// UserReference points to a user from an occurrence
type UserReference struct {
	ID    string `json:"id" bson:"id"`
	Name  string `json:"name" bson:"name"`
	Email string `json:"email,omitempty" bson:"email,omitempty"`
}

// GeneralOccurrence holds the structure for the generalOccurrences collection in mongo
type GeneralOccurrence struct {
	ID                       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CaseNumber               *string            `json:"caseNumber" bson:"caseNumber"`
	History                  string             `json:"history" bson:"history"`
	ProcedureNumber          *string            `json:"procedureNumber" bson:"procedureNumber"`
	AdditionalFields         map[string]string  `json:"additionalFields,omitempty" bson:"additionalFields,omitempty"`
	Procedure                *Reference         `json:"procedure" bson:"procedure"`
	City                     *Reference         `json:"city" bson:"city"`
	RequestingUnit           *Reference         `json:"requestingUnit" bson:"requestingUnit"`
	RequestingAuthority      *Reference         `json:"requestingAuthority" bson:"requestingAuthority"`
	ResponsibleExpert        *UserReference     `json:"responsibleExpert" bson:"responsibleExpert"`
	ForensicService          *Reference         `json:"forensicService" bson:"forensicService"`
	OccurrenceClassification *Reference         `json:"occurrenceClassification" bson:"occurrenceClassification"`
	ExamTypes                []Reference        `json:"examTypes" bson:"examTypes"`
	OccurrenceDate           time.Time          `json:"occurrenceDate" bson:"occurrenceDate"`
	Status                   string             `json:"status" bson:"status"`
	StatusChangeObservations *string            `json:"statusChangeObservations,omitempty" bson:"statusChangeObservations,omitempty"`
	CreatedBy                *UserReference     `json:"createdBy" bson:"createdBy"`
	IsLocked                 bool               `json:"isLocked" bson:"isLocked"`
	CreatedAt                time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt                time.Time          `json:"updatedAt" bson:"updatedAt"`
	DeletedAt                *time.Time         `json:"-" bson:"deletedAt,omitempty"`
}

// IsPool reports whether no responsible expert has been assigned yet
func (o GeneralOccurrence) IsPool() bool {
	return o.ResponsibleExpert == nil || o.ResponsibleExpert.ID == ""
}

// ResponsibleExpertID returns the assigned expert id, or "" for pool cases
func (o GeneralOccurrence) ResponsibleExpertID() string {
	if o.IsPool() {
		return ""
	}
	return o.ResponsibleExpert.ID
}

// OccurrencePayload is the body of create and update requests. Only ids of the
// referenced documents travel; the API resolves them to references.
type OccurrencePayload struct {
	ProcedureID                *string           `json:"procedureId"`
	ProcedureNumber            *string           `json:"procedureNumber"`
	OccurrenceDate             *time.Time        `json:"occurrenceDate,omitempty"`
	History                    string            `json:"history"`
	CityID                     string            `json:"cityId"`
	RequestingAuthorityID      *string           `json:"requestingAuthorityId"`
	RequestingUnitID           *string           `json:"requestingUnitId"`
	ResponsibleExpertID        *string           `json:"responsibleExpertId"`
	ForensicServiceID          string            `json:"forensicServiceId"`
	OccurrenceClassificationID string            `json:"occurrenceClassificationId"`
	ExamTypeIDs                []string          `json:"examTypeIds"`
	AdditionalFields           map[string]string `json:"additionalFields,omitempty"`
	Status                     string            `json:"status,omitempty"`
	StatusChangeObservations   *string           `json:"statusChangeObservations,omitempty"`
	IsLocked                   *bool             `json:"isLocked,omitempty"`
}

// OccurrenceStats is returned by the stats summary endpoint
type OccurrenceStats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"byStatus"`
	Pool     int64            `json:"pool"`
	Assigned int64            `json:"assigned"`
}
