// Package ledger implements the double-entry ledger engine: balanced
// documents of immutable entries and per-account running balances.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"treasury/internal/core/apperror"
	appctx "treasury/internal/core/context"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/core/numerator"
	"treasury/internal/core/security"
	"treasury/internal/core/tx"
	"treasury/internal/core/types"
	"treasury/internal/domain"
	"treasury/pkg/logger"
)

// ReversalGuard vetoes reversing a document that other records depend on.
type ReversalGuard func(ctx context.Context, docID id.ID) error

// Service is the ledger engine.
type Service struct {
	repo      Repository
	txManager tx.Manager
	numerator numerator.Generator
	policy    security.PostingPolicy
	events    domain.EventPublisher
	audit     domain.AuditRecorder
	guards    []ReversalGuard
}

// Config wires the ledger service.
type Config struct {
	Repo      Repository
	TxManager tx.Manager
	Numerator numerator.Generator
	Policy    security.PostingPolicy // Optional, defaults to OpenPolicy
	Events    domain.EventPublisher  // Optional
	Audit     domain.AuditRecorder   // Optional
}

// NewService creates the ledger engine.
func NewService(cfg Config) *Service {
	s := &Service{
		repo:      cfg.Repo,
		txManager: cfg.TxManager,
		numerator: cfg.Numerator,
		policy:    cfg.Policy,
		events:    cfg.Events,
		audit:     cfg.Audit,
	}
	if s.policy == nil {
		s.policy = security.OpenPolicy{}
	}
	if s.events == nil {
		s.events = domain.NopPublisher{}
	}
	if s.audit == nil {
		s.audit = domain.NopAuditRecorder{}
	}
	return s
}

// AddReversalGuard registers a check run before any reversal.
func (s *Service) AddReversalGuard(g ReversalGuard) {
	s.guards = append(s.guards, g)
}

// backdateWarner is implemented by policies that flag old postings without rejecting them.
type backdateWarner interface {
	IsBackdatedWarning(docDate time.Time) bool
}

// Draft is an unpersisted ledger document.
type Draft struct {
	Date        time.Time
	Description string
	ManualNo    string
	Kind        entity.DocumentKind
	ReversalOf  *id.ID
	Entries     []entity.Entry
}

// AppendDocument validates and persists one balanced document atomically.
// Joins the caller's transaction when ctx carries one.
func (s *Service) AppendDocument(ctx context.Context, draft Draft) (*entity.Document, error) {
	total, err := ValidateEntries(draft.Entries)
	if err != nil {
		return nil, err
	}
	if draft.Date.IsZero() {
		return nil, apperror.NewValidation("document date is required").WithDetail("field", "date")
	}
	date := types.DateOf(draft.Date)
	if err := s.policy.CanPost(ctx, date); err != nil {
		return nil, err
	}
	if w, ok := s.policy.(backdateWarner); ok && w.IsBackdatedWarning(date) {
		logger.Warn(ctx, "backdated document", "date", date.Format(time.DateOnly), "kind", draft.Kind)
	}

	kind := draft.Kind
	if kind == "" {
		kind = entity.DocumentKindManual
	}

	doc := &entity.Document{
		BaseEntity:  entity.NewBaseEntity(),
		Date:        date,
		Description: draft.Description,
		Kind:        kind,
		TotalAmount: total,
		ReversalOf:  draft.ReversalOf,
		CreatedBy:   appctx.GetUserID(ctx),
	}
	if draft.ManualNo != "" {
		manualNo := draft.ManualNo
		doc.ManualNo = &manualNo
	}

	doc.Entries = make([]entity.Entry, len(draft.Entries))
	for i, e := range draft.Entries {
		e.ID = id.New()
		e.DocumentID = doc.ID
		e.LineNo = i + 1
		doc.Entries[i] = e
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(kind.NumberPrefix()), nil, date)
		if err != nil {
			return fmt.Errorf("generate document number: %w", err)
		}
		doc.Number = number

		if err := s.repo.CreateDocument(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.CreateEntries(ctx, doc.Entries); err != nil {
			return fmt.Errorf("create entries: %w", err)
		}

		if err := s.events.Publish(ctx, domain.Event{
			AggregateType: "document",
			AggregateID:   doc.ID.String(),
			EventType:     domain.EventDocumentPosted,
			Payload: map[string]any{
				"number":      doc.Number,
				"date":        doc.Date.Format(time.DateOnly),
				"kind":        doc.Kind,
				"totalAmount": doc.TotalAmount,
				"entries":     len(doc.Entries),
			},
		}); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}

		return s.audit.Record(ctx, "document", doc.ID.String(), "post", doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "posted ledger document",
		"document_id", doc.ID,
		"number", doc.Number,
		"kind", doc.Kind,
		"total", doc.TotalAmount,
	)

	return doc, nil
}

// GetDocument returns a document with its entries.
func (s *Service) GetDocument(ctx context.Context, docID id.ID) (*entity.Document, error) {
	doc, err := s.repo.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.GetEntries(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get entries: %w", err)
	}
	doc.Entries = entries
	return doc, nil
}

// ListDocuments returns document headers.
func (s *Service) ListDocuments(ctx context.Context, filter DocumentFilter) (domain.ListResult[entity.Document], error) {
	return s.repo.ListDocuments(ctx, filter)
}

// ReverseDocument appends the offsetting document of docID.
// A document can be reversed at most once.
func (s *Service) ReverseDocument(ctx context.Context, docID id.ID, date time.Time, description string) (*entity.Document, error) {
	var reversal *entity.Document

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		orig, err := s.GetDocument(ctx, docID)
		if err != nil {
			return err
		}

		_, err = s.repo.FindReversal(ctx, docID)
		switch {
		case err == nil:
			return ErrAlreadyReversed.Clone().WithDetail("document_id", docID.String())
		case !apperror.IsNotFound(err):
			return fmt.Errorf("find reversal: %w", err)
		}

		for _, guard := range s.guards {
			if err := guard(ctx, docID); err != nil {
				return err
			}
		}

		entries := make([]entity.Entry, len(orig.Entries))
		for i, e := range orig.Entries {
			entries[i] = e.Mirror()
		}
		if date.IsZero() {
			date = orig.Date
		}
		if description == "" {
			description = "Reversal of " + orig.Number
		}

		reversal, err = s.AppendDocument(ctx, Draft{
			Date:        date,
			Description: description,
			Kind:        entity.DocumentKindReversal,
			ReversalOf:  &orig.ID,
			Entries:     entries,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return reversal, nil
}

// LedgerLine is an entry with the account balance after it.
type LedgerLine struct {
	entity.PostedEntry
	RunningBalance types.MinorUnits `json:"runningBalance"`
}

var errStopIteration = errors.New("ledger: iteration stopped")

// AccountLedger returns the entries of accountID inside period with running balances.
// The sequence is ordered by (document date, document id, entry id); each call
// re-reads the store, so it can be ranged over any number of times.
// When period has a start, the balance opens with everything dated before it.
func (s *Service) AccountLedger(ctx context.Context, accountID id.ID, period Period) iter.Seq2[LedgerLine, error] {
	return func(yield func(LedgerLine, error) bool) {
		opening, err := s.openingBalance(ctx, accountID, period)
		if err != nil {
			yield(LedgerLine{}, err)
			return
		}
		s.ledgerFrom(ctx, accountID, period, opening)(yield)
	}
}

func (s *Service) openingBalance(ctx context.Context, accountID id.ID, period Period) (types.MinorUnits, error) {
	if period.From == nil {
		return 0, nil
	}
	opening, err := s.repo.AccountTotals(ctx, accountID, period.From)
	if err != nil {
		return 0, fmt.Errorf("opening balance: %w", err)
	}
	return opening.Balance(), nil
}

// ledgerFrom streams the period's entries with balances running from opening.
func (s *Service) ledgerFrom(ctx context.Context, accountID id.ID, period Period, opening types.MinorUnits) iter.Seq2[LedgerLine, error] {
	return func(yield func(LedgerLine, error) bool) {
		balance := opening
		err := s.repo.StreamAccountEntries(ctx, accountID, period, func(pe entity.PostedEntry) error {
			next, ok := balance.Add(pe.Net())
			if !ok {
				return ErrBalanceOverflow.Clone().
					WithDetail("account_id", accountID.String()).
					WithDetail("entry_id", pe.ID.String())
			}
			balance = next
			if !yield(LedgerLine{PostedEntry: pe, RunningBalance: balance}, nil) {
				return errStopIteration
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopIteration) {
			yield(LedgerLine{}, err)
		}
	}
}

// Statement is a materialized account ledger for a period.
type Statement struct {
	AccountID      id.ID            `json:"accountId"`
	OpeningBalance types.MinorUnits `json:"openingBalance"`
	Turnover       Totals           `json:"turnover"`
	ClosingBalance types.MinorUnits `json:"closingBalance"`
	Lines          []LedgerLine     `json:"lines"`
}

// AccountStatement collects AccountLedger into a statement.
// The opening balance is read once, so Opening + Turnover always equals Closing.
func (s *Service) AccountStatement(ctx context.Context, accountID id.ID, period Period) (*Statement, error) {
	opening, err := s.openingBalance(ctx, accountID, period)
	if err != nil {
		return nil, err
	}
	st := &Statement{
		AccountID:      accountID,
		OpeningBalance: opening,
		ClosingBalance: opening,
		Lines:          []LedgerLine{},
	}

	for line, err := range s.ledgerFrom(ctx, accountID, period, opening) {
		if err != nil {
			return nil, err
		}
		if !st.Turnover.Accumulate(line.Debit, line.Credit) {
			return nil, ErrBalanceOverflow.Clone().WithDetail("account_id", accountID.String())
		}
		st.Lines = append(st.Lines, line)
		st.ClosingBalance = line.RunningBalance
	}

	return st, nil
}

// Summary aggregates all entries of one account.
type Summary struct {
	AccountID   id.ID            `json:"accountId"`
	TotalDebit  types.MinorUnits `json:"totalDebit"`
	TotalCredit types.MinorUnits `json:"totalCredit"`
	Balance     types.MinorUnits `json:"balance"`
}

// AccountSummary returns total debit, total credit and balance of accountID.
func (s *Service) AccountSummary(ctx context.Context, accountID id.ID) (Summary, error) {
	totals, err := s.repo.AccountTotals(ctx, accountID, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("account totals: %w", err)
	}
	return Summary{
		AccountID:   accountID,
		TotalDebit:  totals.Debit,
		TotalCredit: totals.Credit,
		Balance:     totals.Balance(),
	}, nil
}
