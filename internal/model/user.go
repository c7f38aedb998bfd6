package model

import "time"

// Roles recognised by the backend.
const (
	RoleAdmin   = "admin"
	RoleTrainee = "trainee"
)

// User is a simulation platform account. Registration and email
// verification of users are the domain events that produce notifications.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Role      string    `json:"role" db:"role"`
	Verified  bool      `json:"verified" db:"verified"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
