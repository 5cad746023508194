package model

import "time"

// User represents an application account as stored in the `users`
// table. Each field corresponds to a column in the database. The
// json tags are omitted here because these structs are primarily
// used internally by the repository layer; handlers define separate
// response types with appropriate JSON tags.
//
// Roles are plain strings: "user" files complaints, "admin" handles
// complaints on the routes assigned to them, and "head" manages
// districts, routes, buses and admin assignments.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name shown in notifications and emails.
//  Email        – unique email address (stored lower-cased).
//  PasswordHash – bcrypt hashed password.
//  Role         – one of "user", "admin", "head".
//  Phone        – optional contact number.
//  IsActive     – whether the account is active; inactive accounts
//                 cannot log in or receive assignments.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	Phone        *string   // users.phone (nullable)
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Role name constants used across handlers and middleware. They match
// the values stored in users.role and carried in the JWT "role" claim.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	RoleHead  = "head"
)
