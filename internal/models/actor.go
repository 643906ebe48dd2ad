package models

import "github.com/google/uuid"

// ActorRole identifies which party is driving an operation
type ActorRole string

const (
	RoleCustomer ActorRole = "CUSTOMER"
	RoleSeller   ActorRole = "SELLER"
	RoleAdmin    ActorRole = "ADMIN"
	RoleSupport  ActorRole = "SUPPORT"
)

// Actor is the authenticated party behind a request. It is threaded
// explicitly into every service call so the core stays testable without a
// UI session; ownership is re-validated at the point of commit, never
// trusted from the client.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role ActorRole `json:"role"`
}

// IsAdmin reports whether the actor holds admin privileges
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ValidRole reports whether the role is one of the known actor roles
func ValidRole(role ActorRole) bool {
	switch role {
	case RoleCustomer, RoleSeller, RoleAdmin, RoleSupport:
		return true
	}
	return false
}
