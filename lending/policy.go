package lending

import (
	"context"

	"github.com/google/uuid"
)

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Role is the caller's role as supplied by the authorization gate.
type Role string

// Credential is the opaque request credential handed to the authorization
// gate, e.g. a bearer token. This core never inspects it.
type Credential string

// Caller is the authenticated identity behind an operation.
type Caller struct {
	UserID uuid.UUID
	Role   Role
}

// IsAdmin reports whether the caller holds the administrator role.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// AuthorizationGate supplies the caller's identity and role for a credential.
// It is an external collaborator, consumed before every operation.
// Implementations must fail with an error for unknown or invalid credentials.
type AuthorizationGate interface {
	Authenticate(ctx context.Context, credential Credential) (Caller, error)
}

// Policy predicates: every Forbidden decision is one of these small pure
// functions over (caller, resource), composed at the service entry points.

func mayAdminister(caller Caller) error {
	if !caller.IsAdmin() {
		return ErrForbidden
	}

	return nil
}

func mayReadTransaction(caller Caller, transaction Transaction) error {
	if caller.IsAdmin() {
		return nil
	}

	if transaction.UserID == caller.UserID {
		return nil
	}

	return ErrForbidden
}
