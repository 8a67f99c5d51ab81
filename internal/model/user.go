package model

import "time"

// Roles assigned to application users.  Residents post and collect
// waste listings; admins additionally manage the waste-type catalog,
// user accounts and the reporting endpoints.
const (
	RoleResident = "RESIDENT"
	RoleAdmin    = "ADMIN"
)

// User represents an application user record as stored in the
// `users` table.  Each field corresponds to a column in the
// database.  The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – RESIDENT or ADMIN.
//  IsVerified   – whether the email address was confirmed via OTP.
//  IsActive     – whether the account is active; admins can deactivate.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsVerified   bool      // users.is_verified
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
