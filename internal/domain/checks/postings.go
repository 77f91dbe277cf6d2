package checks

import (
	"context"
	"fmt"

	"treasury/internal/core/entity"
	"treasury/internal/core/id"
)

// entriesFor builds the balanced ledger legs of a transition.
//
//	received  pending   deposit  Dr checks in collection  Cr checks on hand
//	received  pending   spend    Dr target                Cr checks on hand
//	received  pending   clear    Dr target or cash        Cr checks on hand
//	received  pending   return   Dr target                Cr checks on hand
//	received  deposited clear    Dr deposit bank          Cr checks in collection
//	received  deposited bounce   Dr dishonored checks     Cr checks in collection
//	received  deposited return   Dr target                Cr checks in collection
//	issued    pending   clear    Dr checks payable        Cr checkbook bank
//	issued    pending   return   Dr checks payable        Cr target
func (s *Service) entriesFor(ctx context.Context, chk *entity.Check, rule Rule, target *entity.Account) ([]entity.Entry, error) {
	var debit, credit id.ID
	var err error

	sys := func(which entity.SystemAccount) id.ID {
		if err != nil {
			return id.Nil()
		}
		var accountID id.ID
		accountID, err = s.accounts.SystemAccount(ctx, which)
		return accountID
	}

	switch chk.Direction {
	case entity.CheckReceived:
		switch {
		case rule.From == entity.CheckPending && rule.Operation == entity.OpDeposit:
			debit, credit = sys(entity.SystemChecksInCollection), sys(entity.SystemChecksOnHand)
		case rule.From == entity.CheckPending && rule.Operation == entity.OpClear:
			if target != nil {
				debit = target.ID
			} else {
				debit = sys(entity.SystemCashOnHand)
			}
			credit = sys(entity.SystemChecksOnHand)
		case rule.From == entity.CheckPending:
			// spend, return
			debit, credit = target.ID, sys(entity.SystemChecksOnHand)
		case rule.Operation == entity.OpClear:
			if chk.DepositBankID == nil {
				return nil, fmt.Errorf("deposited check %s has no deposit bank", chk.ID)
			}
			debit, credit = *chk.DepositBankID, sys(entity.SystemChecksInCollection)
		case rule.Operation == entity.OpBounce:
			debit, credit = sys(entity.SystemDishonoredChecks), sys(entity.SystemChecksInCollection)
		case rule.Operation == entity.OpReturn:
			debit, credit = target.ID, sys(entity.SystemChecksInCollection)
		default:
			return nil, fmt.Errorf("no ledger effect for %s %s from %s", chk.Direction, rule.Operation, rule.From)
		}
	case entity.CheckIssued:
		switch rule.Operation {
		case entity.OpClear:
			bankID, bankErr := s.drawingBank(ctx, chk)
			if bankErr != nil {
				return nil, bankErr
			}
			debit, credit = sys(entity.SystemChecksPayable), bankID
		case entity.OpReturn:
			debit, credit = sys(entity.SystemChecksPayable), target.ID
		default:
			return nil, fmt.Errorf("no ledger effect for %s %s from %s", chk.Direction, rule.Operation, rule.From)
		}
	default:
		return nil, fmt.Errorf("unknown check direction %q", chk.Direction)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve control account: %w", err)
	}

	memo := fmt.Sprintf("Check %s %s", chk.ChequeNo, rule.Operation)
	return []entity.Entry{
		entity.Debit(debit, chk.Amount, memo),
		entity.Credit(credit, chk.Amount, memo),
	}, nil
}

func (s *Service) drawingBank(ctx context.Context, chk *entity.Check) (id.ID, error) {
	if chk.CheckbookID == nil {
		return id.Nil(), fmt.Errorf("issued check %s has no checkbook", chk.ID)
	}
	cb, err := s.checkbooks.Get(ctx, *chk.CheckbookID)
	if err != nil {
		return id.Nil(), fmt.Errorf("get checkbook: %w", err)
	}
	return cb.BankAccountID, nil
}
