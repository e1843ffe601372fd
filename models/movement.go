package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PerformedBy identifies who recorded a movement
type PerformedBy struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
	Role string `json:"role" bson:"role"`
}

// OccurrenceMovement holds the structure for the occurrenceMovements collection
// in mongo. Movements are never updated except for the deadline flags.
type OccurrenceMovement struct {
	ID                     primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	OccurrenceID           string                 `json:"occurrenceId" bson:"occurrenceId"`
	Description            string                 `json:"description" bson:"description"`
	Deadline               *time.Time             `json:"deadline" bson:"deadline"`
	OriginalDeadline       *time.Time             `json:"originalDeadline" bson:"originalDeadline"`
	IsOverdue              bool                   `json:"isOverdue" bson:"isOverdue"`
	IsNearDeadline         bool                   `json:"isNearDeadline" bson:"isNearDeadline"`
	WasExtended            bool                   `json:"wasExtended" bson:"wasExtended"`
	ExtensionJustification *string                `json:"extensionJustification" bson:"extensionJustification"`
	PerformedBy            PerformedBy            `json:"performedBy" bson:"performedBy"`
	PerformedAt            time.Time              `json:"performedAt" bson:"performedAt"`
	IsSystemGenerated      bool                   `json:"isSystemGenerated" bson:"isSystemGenerated"`
	AdditionalData         map[string]interface{} `json:"additionalData" bson:"additionalData,omitempty"`
}

// CreateMovementRequest is the body of POST /occurrence-movements
type CreateMovementRequest struct {
	OccurrenceID   string                 `json:"occurrenceId"`
	Description    string                 `json:"description"`
	AdditionalData map[string]interface{} `json:"additionalData,omitempty"`
}

// ExtendDeadlineRequest is the body of POST /occurrence-movements/extend-deadline/{id}
type ExtendDeadlineRequest struct {
	ExtensionDays int    `json:"extensionDays"`
	Justification string `json:"justification"`
}

// DeadlineStatus is one row of the deadline-status listing
type DeadlineStatus struct {
	ID                string         `json:"id"`
	CaseNumber        *string        `json:"caseNumber"`
	ForensicService   *Reference     `json:"forensicService"`
	ResponsibleExpert *UserReference `json:"responsibleExpert"`
	Status            string         `json:"status"`
	Deadline          *time.Time     `json:"deadline"`
	OriginalDeadline  *time.Time     `json:"originalDeadline"`
	IsOverdue         bool           `json:"isOverdue"`
	IsNearDeadline    bool           `json:"isNearDeadline"`
	WasExtended       bool           `json:"wasExtended"`
}

// RefreshFlagsResponse is returned by POST /occurrence-movements/update-deadline-flags
type RefreshFlagsResponse struct {
	Message string `json:"message"`
	Updated int    `json:"updated"`
	Expired int    `json:"expired"`
}
