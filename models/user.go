package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User account statuses
const (
	UserPending  = "pending"
	UserActive   = "active"
	UserInactive = "inactive"
	UserRejected = "rejected"
)

// User holds the structure for the users collection in mongo
type User struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name               string             `json:"name" bson:"name"`
	Email              string             `json:"email" bson:"email"`
	CPF                string             `json:"cpf" bson:"cpf"`
	Phone              string             `json:"phone" bson:"phone"`
	Institution        string             `json:"institution" bson:"institution"`
	Role               string             `json:"role" bson:"role"`
	Status             string             `json:"status" bson:"status"`
	Password           string             `json:"-" bson:"password"`
	ForensicServiceIDs []string           `json:"forensicServiceIds,omitempty" bson:"forensicServiceIds"`
	CreatedAt          time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Reference returns the user as an occurrence reference
func (u User) Reference() *UserReference {
	return &UserReference{ID: u.ID.Hex(), Name: u.Name, Email: u.Email}
}

// RegisterRequest is the body of POST /users
type RegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	CPF         string `json:"cpf"`
	Phone       string `json:"phone"`
	Institution string `json:"institution"`
	Password    string `json:"password"`
}

// UpdateUserRequest is the body of PATCH /users/{id}; nil fields are left alone
type UpdateUserRequest struct {
	Name        *string `json:"name,omitempty"`
	Email       *string `json:"email,omitempty"`
	CPF         *string `json:"cpf,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Institution *string `json:"institution,omitempty"`
	Role        *string `json:"role,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// ApproveUserRequest is the body of PATCH /users/{id}/approve
type ApproveUserRequest struct {
	Role string `json:"role"`
}

// LinkForensicServicesRequest is the body of POST /users/{id}/forensic-services
type LinkForensicServicesRequest struct {
	ForensicServiceIDs []string `json:"forensicServiceIds"`
}

// UserForensicServices lists the forensic services a user handles
type UserForensicServices struct {
	UserID           string     `json:"userId"`
	ForensicServices []Resource `json:"forensicServices"`
}
