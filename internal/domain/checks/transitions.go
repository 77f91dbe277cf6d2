package checks

import (
	"slices"

	"treasury/internal/core/entity"
)

// TargetRule says whether an operation takes a target account.
type TargetRule int

const (
	TargetNone TargetRule = iota
	TargetOptional
	TargetRequired
)

// Rule is one row of the check transition table.
type Rule struct {
	Direction entity.CheckDirection
	From      entity.CheckStatus
	Operation entity.CheckOperation
	To        entity.CheckStatus
	Target    TargetRule
	// TargetKinds lists the account kinds accepted as target
	TargetKinds []entity.AccountKind
}

var (
	personTarget   = []entity.AccountKind{entity.AccountKindPerson}
	bankTarget     = []entity.AccountKind{entity.AccountKindBank}
	cashingTargets = []entity.AccountKind{entity.AccountKindCash, entity.AccountKindBank, entity.AccountKindPOS}
)

// Lookup returns the table row for applying op to a check in status from.
// Terminal statuses have no rows; issued checks are never deposited,
// bounced or spent by us.
func Lookup(direction entity.CheckDirection, from entity.CheckStatus, op entity.CheckOperation) (Rule, bool) {
	switch direction {
	case entity.CheckReceived:
		return lookupReceived(from, op)
	case entity.CheckIssued:
		return lookupIssued(from, op)
	}
	return Rule{}, false
}

func lookupReceived(from entity.CheckStatus, op entity.CheckOperation) (Rule, bool) {
	r := Rule{Direction: entity.CheckReceived, From: from, Operation: op}

	switch from {
	case entity.CheckPending:
		switch op {
		case entity.OpDeposit:
			r.To, r.Target, r.TargetKinds = entity.CheckDeposited, TargetRequired, bankTarget
		case entity.OpSpend:
			r.To, r.Target, r.TargetKinds = entity.CheckSpent, TargetRequired, personTarget
		case entity.OpClear:
			r.To, r.Target, r.TargetKinds = entity.CheckCleared, TargetOptional, cashingTargets
		case entity.OpReturn:
			r.To, r.Target, r.TargetKinds = entity.CheckReturned, TargetRequired, personTarget
		case entity.OpBounce:
			return Rule{}, false
		default:
			return Rule{}, false
		}
	case entity.CheckDeposited:
		switch op {
		case entity.OpClear:
			r.To = entity.CheckCleared
		case entity.OpBounce:
			r.To = entity.CheckBounced
		case entity.OpReturn:
			r.To, r.Target, r.TargetKinds = entity.CheckReturned, TargetRequired, personTarget
		case entity.OpDeposit, entity.OpSpend:
			return Rule{}, false
		default:
			return Rule{}, false
		}
	case entity.CheckCleared, entity.CheckBounced, entity.CheckSpent, entity.CheckReturned:
		return Rule{}, false
	default:
		return Rule{}, false
	}

	return r, true
}

func lookupIssued(from entity.CheckStatus, op entity.CheckOperation) (Rule, bool) {
	r := Rule{Direction: entity.CheckIssued, From: from, Operation: op}

	switch from {
	case entity.CheckPending:
		switch op {
		case entity.OpClear:
			r.To = entity.CheckCleared
		case entity.OpReturn:
			r.To, r.Target, r.TargetKinds = entity.CheckReturned, TargetRequired, personTarget
		case entity.OpDeposit, entity.OpSpend, entity.OpBounce:
			return Rule{}, false
		default:
			return Rule{}, false
		}
	case entity.CheckDeposited, entity.CheckCleared, entity.CheckBounced, entity.CheckSpent, entity.CheckReturned:
		return Rule{}, false
	default:
		return Rule{}, false
	}

	return r, true
}

// Rules enumerates the whole transition table.
func Rules() []Rule {
	var rules []Rule
	for _, dir := range []entity.CheckDirection{entity.CheckReceived, entity.CheckIssued} {
		for _, from := range entity.CheckStatuses {
			for _, op := range entity.CheckOperations {
				if r, ok := Lookup(dir, from, op); ok {
					rules = append(rules, r)
				}
			}
		}
	}
	return rules
}

// acceptsKind reports whether kind is a valid target kind for r.
func (r Rule) acceptsKind(kind entity.AccountKind) bool {
	return slices.Contains(r.TargetKinds, kind)
}
