// Package app wires repositories into the treasury services.
package app

import (
	"treasury/internal/core/numerator"
	"treasury/internal/core/security"
	"treasury/internal/core/tx"
	"treasury/internal/domain"
	"treasury/internal/domain/accounts"
	"treasury/internal/domain/checkbooks"
	"treasury/internal/domain/checks"
	"treasury/internal/domain/ledger"
	"treasury/internal/domain/treasury"
	"treasury/internal/infrastructure/storage/memory"
)

// Repositories is one complete storage backend.
type Repositories struct {
	TxManager  tx.Manager
	Accounts   accounts.Repository
	Ledger     ledger.Repository
	Checks     checks.Repository
	Checkbooks checkbooks.Repository
	Numerator  numerator.Generator
	Events     domain.EventPublisher
	Audit      domain.AuditLog
}

// Options tune business rules.
type Options struct {
	PostingPolicy security.PostingPolicy // Optional, defaults to OpenPolicy
	ClearPolicy   checks.ClearPolicy     // Optional, defaults to AllowAll
}

// Services are the treasury core operations.
type Services struct {
	Accounts   *accounts.Directory
	Ledger     *ledger.Service
	Checkbooks *checkbooks.Allocator
	Checks     *checks.Service
	Composer   *treasury.Composer
	Audit      domain.AuditReader
}

// NewServices wires the services over repos.
func NewServices(repos Repositories, opts Options) *Services {
	if repos.Audit == nil {
		repos.Audit = domain.NopAuditRecorder{}
	}
	directory := accounts.NewDirectory(repos.Accounts, repos.TxManager, repos.Numerator)

	ledgerSvc := ledger.NewService(ledger.Config{
		Repo:      repos.Ledger,
		TxManager: repos.TxManager,
		Numerator: repos.Numerator,
		Policy:    opts.PostingPolicy,
		Events:    repos.Events,
		Audit:     repos.Audit,
	})

	allocator := checkbooks.NewAllocator(repos.Checkbooks, directory, repos.TxManager, repos.Events)

	checkSvc := checks.NewService(checks.Config{
		Repo:       repos.Checks,
		Accounts:   directory,
		Checkbooks: allocator,
		Ledger:     ledgerSvc,
		TxManager:  repos.TxManager,
		Policy:     opts.ClearPolicy,
		Events:     repos.Events,
		Audit:      repos.Audit,
	})
	ledgerSvc.AddReversalGuard(checkSvc.GuardReversal)

	composer := treasury.NewComposer(treasury.Config{
		Accounts:  directory,
		Allocator: allocator,
		Checks:    checkSvc,
		Ledger:    ledgerSvc,
		TxManager: repos.TxManager,
		Events:    repos.Events,
	})

	return &Services{
		Accounts:   directory,
		Ledger:     ledgerSvc,
		Checkbooks: allocator,
		Checks:     checkSvc,
		Composer:   composer,
		Audit:      repos.Audit,
	}
}

// MemoryRepositories backs every repository with one in-memory store.
func MemoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		TxManager:  store,
		Accounts:   memory.NewAccountRepo(store),
		Ledger:     memory.NewLedgerRepo(store),
		Checks:     memory.NewCheckRepo(store),
		Checkbooks: memory.NewCheckbookRepo(store),
		Numerator:  memory.NewNumerator(store),
		Events:     memory.NewOutbox(store),
		Audit:      memory.NewAudit(store),
	}
}
