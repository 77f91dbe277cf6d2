// Package accounts resolves directory entities (people, banks, cash boxes,
// POS terminals) to ledger accounts and owns the engine's control accounts.
package accounts

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/core/numerator"
	"treasury/internal/core/tx"
	"treasury/internal/domain"
	"treasury/pkg/logger"
)

// ErrUnresolvedAccount is returned when a reference does not lead to an active account.
var ErrUnresolvedAccount = apperror.New(apperror.CodeUnresolvedAccount, http.StatusBadRequest,
	"account could not be resolved")

var codeConfig = numerator.Config{Prefix: "ACC", PadWidth: 5, ResetPeriod: numerator.ResetNever}

var codeOptions = &numerator.Options{Strategy: numerator.StrategyCached, RangeSize: 20}

// Directory resolves account references and provisions accounts lazily.
type Directory struct {
	repo      Repository
	txManager tx.Manager
	numerator numerator.Generator
}

// NewDirectory creates the account directory.
func NewDirectory(repo Repository, txManager tx.Manager, gen numerator.Generator) *Directory {
	return &Directory{
		repo:      repo,
		txManager: txManager,
		numerator: gen,
	}
}

// Resolve returns the active account a reference points to.
// An account is provisioned on first use when the reference names its
// directory entity (kind, refId and title).
func (d *Directory) Resolve(ctx context.Context, ref entity.AccountRef) (*entity.Account, error) {
	if ref.IsZero() {
		return nil, ErrUnresolvedAccount.Clone().WithDetail("reason", "empty reference")
	}

	if !id.IsNil(ref.AccountID) {
		account, err := d.repo.GetByID(ctx, ref.AccountID)
		if err != nil {
			return nil, d.unresolved(err, ref)
		}
		return d.checkActive(account)
	}

	if !ref.Kind.Valid() || ref.Kind == entity.AccountKindSystem {
		return nil, ErrUnresolvedAccount.Clone().
			WithDetail("reason", "invalid account kind").
			WithDetail("kind", ref.Kind)
	}

	account, err := d.repo.GetByRef(ctx, ref.Kind, ref.RefID)
	switch {
	case err == nil:
		return d.checkActive(account)
	case !apperror.IsNotFound(err):
		return nil, fmt.Errorf("get account by ref: %w", err)
	case ref.Title == "":
		return nil, d.unresolved(err, ref)
	}

	return d.provision(ctx, ref.Kind, ref.RefID, ref.Title)
}

// Get returns an account regardless of its active flag.
func (d *Directory) Get(ctx context.Context, accountID id.ID) (*entity.Account, error) {
	return d.repo.GetByID(ctx, accountID)
}

// SystemAccount returns the id of a control account, provisioning it on first use.
func (d *Directory) SystemAccount(ctx context.Context, which entity.SystemAccount) (id.ID, error) {
	account, err := d.repo.GetByRef(ctx, entity.AccountKindSystem, string(which))
	if err == nil {
		return account.ID, nil
	}
	if !apperror.IsNotFound(err) {
		return id.Nil(), fmt.Errorf("get system account %s: %w", which, err)
	}

	account, err = d.provision(ctx, entity.AccountKindSystem, string(which), which.Title())
	if err != nil {
		return id.Nil(), err
	}
	return account.ID, nil
}

// SetActive toggles the only mutable attribute of an account.
func (d *Directory) SetActive(ctx context.Context, accountID id.ID, active bool) error {
	account, err := d.repo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Kind == entity.AccountKindSystem && !active {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "control accounts cannot be deactivated").
			WithDetail("account_id", accountID.String())
	}
	if err := d.repo.SetActive(ctx, accountID, active); err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	logger.Info(ctx, "account activity changed", "account_id", accountID, "active", active)
	return nil
}

// MarkDishonored flags an account as owner of a bounced check.
func (d *Directory) MarkDishonored(ctx context.Context, accountID id.ID) error {
	return d.repo.MarkDishonored(ctx, accountID)
}

// List returns accounts.
func (d *Directory) List(ctx context.Context, filter ListFilter) (domain.ListResult[entity.Account], error) {
	return d.repo.List(ctx, filter)
}

func (d *Directory) provision(ctx context.Context, kind entity.AccountKind, refID, title string) (*entity.Account, error) {
	var account *entity.Account

	err := d.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		code, err := d.numerator.GetNextNumber(ctx, codeConfig, codeOptions, time.Now())
		if err != nil {
			return fmt.Errorf("generate account code: %w", err)
		}

		candidate := entity.NewAccount(kind, refID, title)
		candidate.Code = code

		created, err := d.repo.Create(ctx, candidate)
		if err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		if created {
			account = candidate
			logger.Info(ctx, "provisioned account",
				"account_id", candidate.ID,
				"kind", kind,
				"ref_id", refID,
			)
			return nil
		}

		// Lost the race to a concurrent provisioning of the same entity.
		account, err = d.repo.GetByRef(ctx, kind, refID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return d.checkActive(account)
}

func (d *Directory) checkActive(account *entity.Account) (*entity.Account, error) {
	if !account.Active {
		return nil, ErrUnresolvedAccount.Clone().
			WithDetail("reason", "account is inactive").
			WithDetail("account_id", account.ID.String())
	}
	return account, nil
}

func (d *Directory) unresolved(err error, ref entity.AccountRef) error {
	if !apperror.IsNotFound(err) {
		return fmt.Errorf("resolve account: %w", err)
	}
	e := ErrUnresolvedAccount.Clone().WithCause(err)
	if !id.IsNil(ref.AccountID) {
		e.WithDetail("account_id", ref.AccountID.String())
	} else {
		e.WithDetail("kind", ref.Kind).WithDetail("ref_id", ref.RefID)
	}
	return e
}
