// Package main runs the borrowing workflow end to end against the in-memory
// engine: request, approval, return, and completion, with structured logging
// and Prometheus metrics wired in.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AntonStoeckl/library-lending-go/lending"
	"github.com/AntonStoeckl/library-lending-go/lending/memoryengine"
	"github.com/AntonStoeckl/library-lending-go/lending/oteladapters"
	"github.com/AntonStoeckl/library-lending-go/lending/promadapters"
)

const (
	memberCredential = lending.Credential("member-token")
	adminCredential  = lending.Credential("admin-token")

	fixtureBookID = "0198c0e8-8f5e-7000-8000-000000000001"
)

const booksFixture = `[
	{
		"id": "` + fixtureBookID + `",
		"isbn": "978-1-098-10013-1",
		"title": "Learning Domain-Driven Design",
		"isActive": true,
		"totalCopies": 2,
		"availableCopies": 2
	}
]`

// tableGate is a minimal AuthorizationGate backed by a fixed credential table.
type tableGate map[lending.Credential]lending.Caller

func (g tableGate) Authenticate(_ context.Context, credential lending.Credential) (lending.Caller, error) {
	caller, exists := g[credential]
	if !exists {
		return lending.Caller{}, fmt.Errorf("unknown credential %q", credential)
	}

	return caller, nil
}

func main() {
	ctx := context.Background()

	store := memoryengine.NewStore()
	if err := store.LoadBooksJSON([]byte(booksFixture)); err != nil {
		log.Fatalf("Failed to load books fixture: %v", err)
	}

	ledger, err := lending.NewInventoryLedger(store)
	if err != nil {
		log.Fatalf("Failed to create inventory ledger: %v", err)
	}

	gate := tableGate{
		memberCredential: lending.Caller{UserID: uuid.New(), Role: lending.RoleUser},
		adminCredential:  lending.Caller{UserID: uuid.New(), Role: lending.RoleAdmin},
	}

	logger := oteladapters.NewSlogBridgeLoggerWithHandler(
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	metrics := promadapters.NewMetricsCollector(prometheus.DefaultRegisterer)

	service, err := lending.NewLendingService(
		gate,
		store,
		ledger,
		lending.WithServiceContextualLogger(logger),
		lending.WithServiceMetricsCollector(metrics),
	)
	if err != nil {
		log.Fatalf("Failed to create lending service: %v", err)
	}

	book, err := store.GetBook(ctx, uuid.MustParse(fixtureBookID))
	if err != nil {
		log.Fatalf("Failed to load seeded book: %v", err)
	}

	issue, err := service.RequestBook(ctx, memberCredential, book.ID)
	if err != nil {
		log.Fatalf("Failed to request book: %v", err)
	}
	fmt.Printf("requested %q, record %s is %s\n", book.Title, issue.ID, issue.Status)

	if _, err = service.SetStatus(ctx, adminCredential, issue.ID, lending.StatusApproved); err != nil {
		log.Fatalf("Failed to approve issue: %v", err)
	}
	fmt.Println("issue approved, one copy left the shelf")

	returnRecord, err := service.ReturnBook(ctx, memberCredential, book.ID)
	if err != nil {
		log.Fatalf("Failed to file return: %v", err)
	}

	if _, err = service.SetStatus(ctx, adminCredential, returnRecord.ID, lending.StatusApproved); err != nil {
		log.Fatalf("Failed to approve return: %v", err)
	}

	if _, err = service.CompleteReturn(ctx, adminCredential, returnRecord.ID); err != nil {
		log.Fatalf("Failed to complete return: %v", err)
	}
	fmt.Println("return completed, the copy is back on the shelf")

	dump, err := store.DumpTransactionsJSON()
	if err != nil {
		log.Fatalf("Failed to dump transaction records: %v", err)
	}
	fmt.Printf("transaction records:\n%s\n", dump)
}
