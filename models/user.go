package models

import "time"

const (
	RoleAdmin = "admin"
	RoleAgent = "agent"

	UserStatusPending = "pending"
	UserStatusActive  = "active"
)

// User is an agent or admin profile.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Role             string     `json:"role"`
	Status           string     `json:"status"`
	TrialActivatedAt *time.Time `json:"trialActivatedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	ID    string
	Email string
}
