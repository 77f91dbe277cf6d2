// Package treasury turns a user-entered receive/pay operation into one
// balanced ledger document plus its check side effects, atomically.
package treasury

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/core/tx"
	"treasury/internal/core/types"
	"treasury/internal/domain"
	"treasury/internal/domain/accounts"
	"treasury/internal/domain/checkbooks"
	"treasury/internal/domain/checks"
	"treasury/internal/domain/ledger"
	"treasury/pkg/logger"
)

// ErrNoLines is returned for an operation without payment lines.
var ErrNoLines = apperror.New(apperror.CodeNoLines, http.StatusBadRequest,
	"operation must contain at least one line")

// ErrUnresolvedAccount is the account directory's resolution failure.
var ErrUnresolvedAccount = accounts.ErrUnresolvedAccount

// AccountDirectory resolves counterparties and line targets.
type AccountDirectory interface {
	Resolve(ctx context.Context, ref entity.AccountRef) (*entity.Account, error)
	Get(ctx context.Context, accountID id.ID) (*entity.Account, error)
	SystemAccount(ctx context.Context, which entity.SystemAccount) (id.ID, error)
}

// SerialAllocator hands out checkbook serials.
type SerialAllocator interface {
	Allocate(ctx context.Context, checkbookID id.ID, serial int64) (*entity.Checkbook, error)
	CloseIfExhausted(ctx context.Context, checkbookID id.ID) (bool, error)
}

// CheckMachine is the check state machine surface used while composing.
type CheckMachine interface {
	Plan(ctx context.Context, req checks.OperationRequest) (*checks.Plan, error)
	Apply(ctx context.Context, plan *checks.Plan, docID id.ID, date time.Time) (*entity.Check, error)
	Register(ctx context.Context, chk *entity.Check, sourceDocID id.ID) error
}

// LedgerAppender appends balanced documents.
type LedgerAppender interface {
	AppendDocument(ctx context.Context, draft ledger.Draft) (*entity.Document, error)
}

// Composer is the transaction composer.
type Composer struct {
	accounts  AccountDirectory
	allocator SerialAllocator
	checks    CheckMachine
	ledger    LedgerAppender
	txManager tx.Manager
	events    domain.EventPublisher
}

// Config wires the composer.
type Config struct {
	Accounts  AccountDirectory
	Allocator SerialAllocator
	Checks    CheckMachine
	Ledger    LedgerAppender
	TxManager tx.Manager
	Events    domain.EventPublisher // Optional
}

// NewComposer creates the transaction composer.
func NewComposer(cfg Config) *Composer {
	c := &Composer{
		accounts:  cfg.Accounts,
		allocator: cfg.Allocator,
		checks:    cfg.Checks,
		ledger:    cfg.Ledger,
		txManager: cfg.TxManager,
		events:    cfg.Events,
	}
	if c.events == nil {
		c.events = domain.NopPublisher{}
	}
	return c
}

// composition accumulates the effects of all lines inside the transaction.
type composition struct {
	entries    []entity.Entry
	newChecks  []*entity.Check
	spends     []*checks.Plan
	checkbooks []id.ID
}

// Compose validates and commits one receive/pay operation.
// Any error leaves no trace: document, checks, serials and transitions
// are written in a single transaction.
func (c *Composer) Compose(ctx context.Context, header Header, lines []Line) (*Result, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	if err := validate(header, lines); err != nil {
		return nil, err
	}

	var result *Result
	err := c.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		counterparty, err := c.accounts.Resolve(ctx, header.Counterparty)
		if err != nil {
			return err
		}
		if counterparty.Kind == entity.AccountKindSystem {
			return ErrUnresolvedAccount.Clone().
				WithDetail("reason", "control accounts are posted by the engine only").
				WithDetail("account_id", counterparty.ID.String())
		}

		comp := &composition{}
		for i, line := range lines {
			if err := c.addLine(ctx, comp, header, counterparty, line); err != nil {
				return annotateLine(err, i)
			}
		}

		kind := entity.DocumentKindReceive
		if header.Direction == DirectionPay {
			kind = entity.DocumentKindPay
		}
		doc, err := c.ledger.AppendDocument(ctx, ledger.Draft{
			Date:        header.Date,
			Description: header.Description,
			ManualNo:    header.ManualNo,
			Kind:        kind,
			Entries:     comp.entries,
		})
		if err != nil {
			return err
		}

		result = &Result{DocumentID: doc.ID, DocumentNo: doc.Number, Total: doc.TotalAmount}

		for _, chk := range comp.newChecks {
			if err := c.checks.Register(ctx, chk, doc.ID); err != nil {
				return err
			}
			result.CheckIDs = append(result.CheckIDs, chk.ID)
		}
		for _, plan := range comp.spends {
			if _, err := c.checks.Apply(ctx, plan, doc.ID, header.Date); err != nil {
				return err
			}
			result.CheckIDs = append(result.CheckIDs, plan.Check.ID)
		}
		for _, cbID := range comp.checkbooks {
			if _, err := c.allocator.CloseIfExhausted(ctx, cbID); err != nil {
				return err
			}
		}

		return c.events.Publish(ctx, domain.Event{
			AggregateType: "document",
			AggregateID:   doc.ID.String(),
			EventType:     domain.EventTransactionComposed,
			Payload: map[string]any{
				"direction":    header.Direction,
				"counterparty": counterparty.ID.String(),
				"lines":        len(lines),
				"checks":       len(result.CheckIDs),
			},
		})
	})
	if err != nil {
		if apperror.IsRetryable(err) {
			logger.Warn(ctx, "compose lost a race", "direction", header.Direction, "error", err)
		}
		return nil, err
	}

	logger.Info(ctx, "composed treasury operation",
		"document_id", result.DocumentID,
		"document_no", result.DocumentNo,
		"direction", header.Direction,
		"lines", len(lines),
		"total", result.Total,
	)

	return result, nil
}

func (c *Composer) addLine(ctx context.Context, comp *composition, header Header, counterparty *entity.Account, line Line) error {
	if line.Method != MethodCheck {
		target, err := c.accounts.Resolve(ctx, line.Target)
		if err != nil {
			return err
		}
		if want := targetKind(line.Method); target.Kind != want {
			return ErrUnresolvedAccount.Clone().
				WithDetail("reason", "target kind does not match payment method").
				WithDetail("method", line.Method).
				WithDetail("expected", want).
				WithDetail("kind", target.Kind)
		}
		comp.entries = append(comp.entries, legs(header.Direction, counterparty.ID, target.ID, line.Amount, lineMemo(line))...)
		return nil
	}

	switch line.CheckMode {
	case CheckModeReceived:
		chk, err := checks.NewReceivedCheck(*line.Received, counterparty.ID)
		if err != nil {
			return err
		}
		onHand, err := c.accounts.SystemAccount(ctx, entity.SystemChecksOnHand)
		if err != nil {
			return err
		}
		memo := checkMemo(line, chk)
		comp.entries = append(comp.entries,
			entity.Debit(onHand, chk.Amount, memo),
			entity.Credit(counterparty.ID, chk.Amount, memo),
		)
		comp.newChecks = append(comp.newChecks, chk)

	case CheckModeOwnCheckbook:
		in := *line.Issued
		cb, err := c.allocator.Allocate(ctx, in.CheckbookID, in.Serial)
		if err != nil {
			return err
		}
		bank, err := c.accounts.Get(ctx, cb.BankAccountID)
		if err != nil {
			return err
		}
		chk, err := checks.NewIssuedCheck(in, cb, bank.Title, counterparty.ID)
		if err != nil {
			return err
		}
		payable, err := c.accounts.SystemAccount(ctx, entity.SystemChecksPayable)
		if err != nil {
			return err
		}
		memo := checkMemo(line, chk)
		comp.entries = append(comp.entries,
			entity.Debit(counterparty.ID, chk.Amount, memo),
			entity.Credit(payable, chk.Amount, memo),
		)
		comp.newChecks = append(comp.newChecks, chk)
		comp.checkbooks = appendUnique(comp.checkbooks, cb.ID)

	case CheckModeSpend:
		ref := entity.RefByID(counterparty.ID)
		plan, err := c.checks.Plan(ctx, checks.OperationRequest{
			CheckID:   line.CheckID,
			Operation: entity.OpSpend,
			Date:      header.Date,
			Target:    &ref,
		})
		if err != nil {
			return err
		}
		if plan.Check.Direction != entity.CheckReceived {
			return checks.ErrIllegalTransition.Clone().
				WithDetail("check_id", line.CheckID.String()).
				WithDetail("reason", "only received checks can be spent")
		}
		comp.entries = append(comp.entries, plan.Entries...)
		comp.spends = append(comp.spends, plan)
	}

	return nil
}

// legs returns the counterparty leg and the offsetting target leg of one line.
func legs(dir Direction, counterpartyID, targetID id.ID, amount types.MinorUnits, memo string) []entity.Entry {
	if dir == DirectionReceive {
		return []entity.Entry{
			entity.Debit(targetID, amount, memo),
			entity.Credit(counterpartyID, amount, memo),
		}
	}
	return []entity.Entry{
		entity.Debit(counterpartyID, amount, memo),
		entity.Credit(targetID, amount, memo),
	}
}

func targetKind(m Method) entity.AccountKind {
	switch m {
	case MethodCash:
		return entity.AccountKindCash
	case MethodPOS:
		return entity.AccountKindPOS
	default:
		return entity.AccountKindBank
	}
}

func lineMemo(line Line) string {
	if line.Description != "" {
		return line.Description
	}
	return string(line.Method)
}

func checkMemo(line Line, chk *entity.Check) string {
	if line.Description != "" {
		return line.Description
	}
	return fmt.Sprintf("Check %s due %s", chk.ChequeNo, chk.DueDate.Format(time.DateOnly))
}

func appendUnique(ids []id.ID, v id.ID) []id.ID {
	for _, existing := range ids {
		if existing == v {
			return ids
		}
	}
	return append(ids, v)
}

// annotateLine attaches the failing line number to domain errors.
func annotateLine(err error, index int) error {
	appErr, ok := apperror.AsAppError(err)
	if !ok {
		return err
	}
	return appErr.Clone().WithDetail("line", index+1)
}

// checkKey identifies a checkbook serial within one request.
type checkKey struct {
	checkbook id.ID
	serial    int64
}

// validate rejects malformed requests before any store access.
func validate(header Header, lines []Line) error {
	if header.Direction != DirectionReceive && header.Direction != DirectionPay {
		return apperror.NewValidation("direction must be receive or pay").WithDetail("direction", header.Direction)
	}
	if header.Date.IsZero() {
		return apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	if header.Counterparty.IsZero() {
		return ErrUnresolvedAccount.Clone().WithDetail("field", "counterparty")
	}

	serials := make(map[checkKey]int, len(lines))
	spent := make(map[id.ID]int, len(lines))

	for i, line := range lines {
		n := i + 1
		switch line.Method {
		case MethodCash, MethodPOS, MethodTransfer:
			if !line.Amount.IsPositive() {
				return apperror.NewValidation("amount must be positive").WithDetail("line", n).WithDetail("amount", line.Amount)
			}
			if line.Target.IsZero() {
				return ErrUnresolvedAccount.Clone().WithDetail("line", n).WithDetail("field", "target")
			}
		case MethodCheck:
			if err := validateCheckLine(header.Direction, line, n); err != nil {
				return err
			}
			switch line.CheckMode {
			case CheckModeOwnCheckbook:
				key := checkKey{line.Issued.CheckbookID, line.Issued.Serial}
				if prev, dup := serials[key]; dup {
					return checkbooks.ErrSerialAlreadyUsed.Clone().
						WithDetail("line", n).
						WithDetail("serial", key.serial).
						WithDetail("duplicate_of_line", prev)
				}
				serials[key] = n
			case CheckModeSpend:
				if prev, dup := spent[line.CheckID]; dup {
					return apperror.NewValidation("check is spent twice in one operation").
						WithDetail("line", n).
						WithDetail("duplicate_of_line", prev)
				}
				spent[line.CheckID] = n
			}
		default:
			return apperror.NewValidation("unknown payment method").WithDetail("line", n).WithDetail("method", line.Method)
		}
	}
	return nil
}

func validateCheckLine(dir Direction, line Line, n int) error {
	switch line.CheckMode {
	case CheckModeReceived:
		if dir != DirectionReceive {
			return apperror.NewValidation("received checks are only accepted when receiving").WithDetail("line", n)
		}
		if line.Received == nil {
			return apperror.NewValidation("received check details are required").WithDetail("line", n)
		}
	case CheckModeOwnCheckbook:
		if dir != DirectionPay {
			return apperror.NewValidation("own checks are only written when paying").WithDetail("line", n)
		}
		if line.Issued == nil || id.IsNil(line.Issued.CheckbookID) {
			return apperror.NewValidation("checkbook and serial are required").WithDetail("line", n)
		}
	case CheckModeSpend:
		if dir != DirectionPay {
			return apperror.NewValidation("checks are only spent when paying").WithDetail("line", n)
		}
		if id.IsNil(line.CheckID) {
			return apperror.NewValidation("check to spend is required").WithDetail("line", n)
		}
	default:
		return apperror.NewValidation("unknown check mode").WithDetail("line", n).WithDetail("mode", line.CheckMode)
	}
	return nil
}
