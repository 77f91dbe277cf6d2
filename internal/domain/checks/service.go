// Package checks implements the check lifecycle state machine.
//
// Every status change is one atomic unit: the row lock on the check, the
// balanced ledger document of the transition, the optimistic status update
// and the history row either all commit or none do.
package checks

import (
	"context"
	"fmt"
	"time"

	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/core/tx"
	"treasury/internal/core/types"
	"treasury/internal/domain"
	"treasury/internal/domain/ledger"
	"treasury/pkg/logger"
)

// AccountDirectory is the subset of the account directory used by transitions.
type AccountDirectory interface {
	Get(ctx context.Context, accountID id.ID) (*entity.Account, error)
	Resolve(ctx context.Context, ref entity.AccountRef) (*entity.Account, error)
	SystemAccount(ctx context.Context, which entity.SystemAccount) (id.ID, error)
	MarkDishonored(ctx context.Context, accountID id.ID) error
}

// CheckbookReader loads the checkbook an issued check was drawn from.
type CheckbookReader interface {
	Get(ctx context.Context, checkbookID id.ID) (*entity.Checkbook, error)
}

// LedgerAppender appends balanced documents.
type LedgerAppender interface {
	AppendDocument(ctx context.Context, draft ledger.Draft) (*entity.Document, error)
}

// Service is the check state machine.
type Service struct {
	repo       Repository
	accounts   AccountDirectory
	checkbooks CheckbookReader
	ledger     LedgerAppender
	txManager  tx.Manager
	policy     ClearPolicy
	events     domain.EventPublisher
	audit      domain.AuditRecorder
}

// Config wires the check service.
type Config struct {
	Repo       Repository
	Accounts   AccountDirectory
	Checkbooks CheckbookReader
	Ledger     LedgerAppender
	TxManager  tx.Manager
	Policy     ClearPolicy           // Optional, defaults to AllowAll
	Events     domain.EventPublisher // Optional
	Audit      domain.AuditRecorder  // Optional
}

// NewService creates the check service.
func NewService(cfg Config) *Service {
	s := &Service{
		repo:       cfg.Repo,
		accounts:   cfg.Accounts,
		checkbooks: cfg.Checkbooks,
		ledger:     cfg.Ledger,
		txManager:  cfg.TxManager,
		policy:     cfg.Policy,
		events:     cfg.Events,
		audit:      cfg.Audit,
	}
	if s.policy == nil {
		s.policy = AllowAll{}
	}
	if s.events == nil {
		s.events = domain.NopPublisher{}
	}
	if s.audit == nil {
		s.audit = domain.NopAuditRecorder{}
	}
	return s
}

// OperationRequest asks for one lifecycle operation on a check.
type OperationRequest struct {
	CheckID     id.ID
	Operation   entity.CheckOperation
	Date        time.Time
	Target      *entity.AccountRef
	Description string
}

// Result is the outcome of a performed operation.
type Result struct {
	Check      *entity.Check
	Status     entity.CheckStatus
	DocumentID id.ID
	DocumentNo string
}

// Plan is a validated transition whose ledger entries are built but not posted.
type Plan struct {
	Check   *entity.Check
	Rule    Rule
	Target  *entity.Account
	Entries []entity.Entry
}

// Perform applies an operation: validates it against the transition table,
// posts the matching balanced document and persists the new status.
func (s *Service) Perform(ctx context.Context, req OperationRequest) (*Result, error) {
	if req.Date.IsZero() {
		return nil, apperror.NewValidation("operation date is required").WithDetail("field", "date")
	}

	var result *Result
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		plan, err := s.Plan(ctx, req)
		if err != nil {
			return err
		}

		description := req.Description
		if description == "" {
			description = fmt.Sprintf("Check %s: %s", plan.Check.ChequeNo, req.Operation)
		}

		doc, err := s.ledger.AppendDocument(ctx, ledger.Draft{
			Date:        req.Date,
			Description: description,
			Kind:        entity.DocumentKindCheckOperation,
			Entries:     plan.Entries,
		})
		if err != nil {
			return err
		}

		updated, err := s.Apply(ctx, plan, doc.ID, req.Date)
		if err != nil {
			return err
		}

		result = &Result{
			Check:      updated,
			Status:     updated.Status,
			DocumentID: doc.ID,
			DocumentNo: doc.Number,
		}
		return nil
	})
	if err != nil {
		if apperror.IsRetryable(err) {
			logger.Warn(ctx, "check operation lost a race",
				"check_id", req.CheckID,
				"operation", req.Operation,
				"error", err,
			)
		}
		return nil, err
	}

	return result, nil
}

// Plan locks the check, validates the transition and builds its ledger entries.
// Must run inside a transaction; the caller posts Entries and then calls Apply.
func (s *Service) Plan(ctx context.Context, req OperationRequest) (*Plan, error) {
	if !req.Operation.Valid() {
		return nil, apperror.NewValidation("unknown check operation").WithDetail("operation", req.Operation)
	}

	chk, err := s.repo.GetForUpdate(ctx, req.CheckID)
	if err != nil {
		return nil, err
	}

	rule, ok := Lookup(chk.Direction, chk.Status, req.Operation)
	if !ok {
		return nil, ErrIllegalTransition.Clone().
			WithDetail("check_id", chk.ID.String()).
			WithDetail("direction", chk.Direction).
			WithDetail("status", chk.Status).
			WithDetail("operation", req.Operation)
	}

	target, err := s.resolveTarget(ctx, rule, req.Target)
	if err != nil {
		return nil, err
	}
	if rule.Operation == entity.OpReturn && target.ID != chk.OwnerAccountID {
		return nil, ErrInvalidTarget.Clone().
			WithDetail("operation", rule.Operation).
			WithDetail("reason", "a check is returned to its counterparty").
			WithDetail("owner_account_id", chk.OwnerAccountID.String())
	}

	if rule.From == entity.CheckPending && rule.To == entity.CheckCleared {
		if err := s.checkDirectClear(ctx, chk, target, req.Date); err != nil {
			return nil, err
		}
	}

	entries, err := s.entriesFor(ctx, chk, rule, target)
	if err != nil {
		return nil, err
	}

	return &Plan{Check: chk, Rule: rule, Target: target, Entries: entries}, nil
}

// Apply persists the planned status change linked to docID.
// The update re-verifies the status read by Plan.
func (s *Service) Apply(ctx context.Context, plan *Plan, docID id.ID, date time.Time) (*entity.Check, error) {
	updated := *plan.Check
	updated.Status = plan.Rule.To
	switch plan.Rule.Operation {
	case entity.OpDeposit:
		bankID := plan.Target.ID
		updated.DepositBankID = &bankID
	case entity.OpSpend:
		// The payee now holds the check.
		updated.OwnerAccountID = plan.Target.ID
	}
	now := time.Now().UTC()
	updated.Touch(now)

	if err := s.repo.UpdateStatus(ctx, &updated, plan.Check.Status); err != nil {
		return nil, err
	}

	movement := &entity.CheckMovement{
		ID:         id.New(),
		CheckID:    updated.ID,
		Operation:  plan.Rule.Operation,
		FromStatus: plan.Rule.From,
		ToStatus:   plan.Rule.To,
		DocumentID: docID,
		Date:       types.DateOf(date),
		CreatedAt:  now,
	}
	if plan.Target != nil {
		targetID := plan.Target.ID
		movement.TargetAccountID = &targetID
	}
	if err := s.repo.CreateMovement(ctx, movement); err != nil {
		return nil, fmt.Errorf("create movement: %w", err)
	}

	if plan.Rule.Operation == entity.OpBounce {
		if err := s.accounts.MarkDishonored(ctx, updated.OwnerAccountID); err != nil {
			return nil, fmt.Errorf("mark dishonored: %w", err)
		}
	}

	if err := s.events.Publish(ctx, domain.Event{
		AggregateType: "check",
		AggregateID:   updated.ID.String(),
		EventType:     domain.EventCheckTransitioned,
		Payload: map[string]any{
			"operation":  plan.Rule.Operation,
			"from":       plan.Rule.From,
			"to":         plan.Rule.To,
			"documentId": docID.String(),
		},
	}); err != nil {
		return nil, fmt.Errorf("publish event: %w", err)
	}
	if err := s.audit.Record(ctx, "check", updated.ID.String(), string(plan.Rule.Operation), movement); err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}

	logger.Info(ctx, "check transitioned",
		"check_id", updated.ID,
		"operation", plan.Rule.Operation,
		"from", plan.Rule.From,
		"to", plan.Rule.To,
		"document_id", docID,
	)

	return &updated, nil
}

// Register persists a newly composed check recorded by sourceDocID.
func (s *Service) Register(ctx context.Context, chk *entity.Check, sourceDocID id.ID) error {
	chk.SourceDocumentID = sourceDocID
	if err := s.repo.Create(ctx, chk); err != nil {
		return err
	}
	return s.audit.Record(ctx, "check", chk.ID.String(), "create", chk)
}

// Get returns a check.
func (s *Service) Get(ctx context.Context, checkID id.ID) (*entity.Check, error) {
	return s.repo.GetByID(ctx, checkID)
}

// List returns checks.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[entity.Check], error) {
	return s.repo.List(ctx, filter)
}

// History returns the status movements of a check, oldest first.
func (s *Service) History(ctx context.Context, checkID id.ID) ([]entity.CheckMovement, error) {
	if _, err := s.repo.GetByID(ctx, checkID); err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, checkID)
}

// GuardReversal refuses reversal of documents that recorded check effects;
// those are undone through check operations instead.
func (s *Service) GuardReversal(ctx context.Context, docID id.ID) error {
	linked, err := s.repo.ReferencesDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("check document references: %w", err)
	}
	if linked {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule,
			"document records check movements and cannot be reversed directly").
			WithDetail("document_id", docID.String())
	}
	return nil
}

func (s *Service) resolveTarget(ctx context.Context, rule Rule, ref *entity.AccountRef) (*entity.Account, error) {
	hasTarget := ref != nil && !ref.IsZero()

	switch rule.Target {
	case TargetNone:
		if hasTarget {
			return nil, ErrInvalidTarget.Clone().
				WithDetail("operation", rule.Operation).
				WithDetail("reason", "operation takes no target")
		}
		return nil, nil
	case TargetRequired:
		if !hasTarget {
			return nil, ErrMissingTarget.Clone().WithDetail("operation", rule.Operation)
		}
	case TargetOptional:
		if !hasTarget {
			return nil, nil
		}
	}

	target, err := s.accounts.Resolve(ctx, *ref)
	if err != nil {
		return nil, err
	}
	if !rule.acceptsKind(target.Kind) {
		return nil, ErrInvalidTarget.Clone().
			WithDetail("operation", rule.Operation).
			WithDetail("kind", target.Kind).
			WithDetail("accepted", rule.TargetKinds)
	}
	return target, nil
}

func (s *Service) checkDirectClear(ctx context.Context, chk *entity.Check, target *entity.Account, date time.Time) error {
	req := ClearRequest{
		Direction: chk.Direction,
		Amount:    chk.Amount,
		HasTarget: target != nil,
		DaysToDue: int64(chk.DueDate.Sub(types.DateOf(date)).Hours() / 24),
	}
	if target != nil {
		req.TargetKind = target.Kind
	}

	allowed, err := s.policy.AllowDirectClear(ctx, req)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrIllegalTransition.Clone().
			WithDetail("check_id", chk.ID.String()).
			WithDetail("status", chk.Status).
			WithDetail("operation", entity.OpClear).
			WithDetail("policy", "direct clear denied")
	}
	return nil
}
