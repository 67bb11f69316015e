package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is a generated website owned by a user
type Project struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	UserID            uuid.UUID  `json:"user_id" db:"user_id"`
	Name              string     `json:"name" db:"name"`
	Description       *string    `json:"description,omitempty" db:"description"`
	Prompt            string     `json:"prompt" db:"prompt"`
	IsPublic          bool       `json:"is_public" db:"is_public"`
	RemixCount        int        `json:"remix_count" db:"remix_count"`
	OriginalProjectID *uuid.UUID `json:"original_project_id,omitempty" db:"original_project_id"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// ProjectFile is one stored file of a project. Its shape is exactly
// what the generation reducer produced at completion.
type ProjectFile struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProjectID uuid.UUID `json:"project_id" db:"project_id"`
	Name      string    `json:"name" db:"name"`
	Content   string    `json:"content" db:"content"`
	Language  string    `json:"language" db:"language"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DomainStatus is the lifecycle of a project domain
type DomainStatus string

const (
	DomainActive    DomainStatus = "active"
	DomainVerifying DomainStatus = "verifying"
	DomainFailed    DomainStatus = "failed"
)

// ProjectDomain is a subdomain or custom domain attached to a project.
// Custom domains start out verifying and carry a token the owner
// publishes as a _verify TXT record.
type ProjectDomain struct {
	ID                uuid.UUID    `json:"id" db:"id"`
	ProjectID         uuid.UUID    `json:"project_id" db:"project_id"`
	Domain            string       `json:"domain" db:"domain"`
	IsFree            bool         `json:"is_free" db:"is_free"`
	Status            DomainStatus `json:"status" db:"status"`
	VerificationToken *string      `json:"verification_token,omitempty" db:"verification_token"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
}
