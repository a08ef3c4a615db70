package model

import "time"

// Role values stored in the users.role enum.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an application user record as stored in the
// `users` table.  Each field corresponds to a column in the
// database.  JSON tags are omitted here because these structs are
// primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Name         – display name.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	Phone        – contact phone number.
//	Role         – either "user" or "admin".
//	IsActive     – whether the account is active.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password
	Phone        string    // users.phone
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
