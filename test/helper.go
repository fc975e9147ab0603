// Package test provides shared fixtures for the lending test suites.
package test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-lending-go/lending"
	"github.com/AntonStoeckl/library-lending-go/lending/memoryengine"
)

var ErrUnknownCredential = errors.New("unknown credential")

// GivenUniqueID returns a fresh v7 UUID for test data.
func GivenUniqueID(t testing.TB) uuid.UUID {
	id, err := uuid.NewV7()
	assert.NoError(t, err, "error in arranging test data")

	return id
}

// GivenBook stores a book with the given availability and returns it.
func GivenBook(t testing.TB, store *memoryengine.Store, isActive bool, totalCopies int, availableCopies int) lending.Book {
	book := lending.Book{
		ID:              GivenUniqueID(t),
		ISBN:            "978-1-098-10013-1",
		Title:           "Learning Domain-Driven Design",
		IsActive:        isActive,
		TotalCopies:     totalCopies,
		AvailableCopies: availableCopies,
	}

	err := store.SaveBook(context.Background(), book)
	assert.NoError(t, err, "error in arranging test data")

	return book
}

// GivenActiveBook stores an active book with all copies available.
func GivenActiveBook(t testing.TB, store *memoryengine.Store, totalCopies int) lending.Book {
	return GivenBook(t, store, true, totalCopies, totalCopies)
}

// StaticGate is an AuthorizationGate backed by a fixed credential table.
type StaticGate struct {
	callers map[lending.Credential]lending.Caller
}

// NewStaticGate creates an empty StaticGate.
func NewStaticGate() *StaticGate {
	return &StaticGate{callers: make(map[lending.Credential]lending.Caller)}
}

// Grant maps a credential to a caller.
func (g *StaticGate) Grant(credential lending.Credential, caller lending.Caller) {
	g.callers[credential] = caller
}

// GrantUser registers a fresh user caller under the credential and returns it.
func (g *StaticGate) GrantUser(t testing.TB, credential lending.Credential) lending.Caller {
	caller := lending.Caller{UserID: GivenUniqueID(t), Role: lending.RoleUser}
	g.Grant(credential, caller)

	return caller
}

// GrantAdmin registers a fresh admin caller under the credential and returns it.
func (g *StaticGate) GrantAdmin(t testing.TB, credential lending.Credential) lending.Caller {
	caller := lending.Caller{UserID: GivenUniqueID(t), Role: lending.RoleAdmin}
	g.Grant(credential, caller)

	return caller
}

// Authenticate implements lending.AuthorizationGate.
func (g *StaticGate) Authenticate(_ context.Context, credential lending.Credential) (lending.Caller, error) {
	caller, exists := g.callers[credential]
	if !exists {
		return lending.Caller{}, ErrUnknownCredential
	}

	return caller, nil
}

var _ lending.AuthorizationGate = (*StaticGate)(nil)
