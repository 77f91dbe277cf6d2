// Package security holds posting rules that guard the ledger against
// writes into closed accounting periods.
package security

import (
	"context"
	"time"

	"treasury/internal/core/apperror"
)

// PostingPolicy defines rules for appending ledger documents.
type PostingPolicy interface {
	// CanPost checks if a document dated docDate may be appended
	CanPost(ctx context.Context, docDate time.Time) error

	// GetClosedPeriod returns the date until which period is closed
	GetClosedPeriod(ctx context.Context) time.Time
}

// StrictPolicy forbids any posting into the closed period.
type StrictPolicy struct {
	closedUntil time.Time
}

// NewStrictPolicy creates policy that forbids postings dated before closedUntil.
func NewStrictPolicy(closedUntil time.Time) *StrictPolicy {
	return &StrictPolicy{closedUntil: closedUntil}
}

func (p *StrictPolicy) CanPost(ctx context.Context, docDate time.Time) error {
	if docDate.Before(p.closedUntil) {
		return apperror.NewPeriodClosed(p.closedUntil.Format("2006-01-02")).
			WithDetail("document_date", docDate.Format("2006-01-02"))
	}
	return nil
}

func (p *StrictPolicy) GetClosedPeriod(ctx context.Context) time.Time {
	return p.closedUntil
}

// FlexiblePolicy allows backdated postings but reports them for warning.
type FlexiblePolicy struct {
	warningThreshold time.Duration // Warn if older than this
	closedUntil      time.Time     // Hard limit
}

// NewFlexiblePolicy creates policy with soft warnings.
func NewFlexiblePolicy(warningThreshold time.Duration, closedUntil time.Time) *FlexiblePolicy {
	return &FlexiblePolicy{
		warningThreshold: warningThreshold,
		closedUntil:      closedUntil,
	}
}

func (p *FlexiblePolicy) CanPost(ctx context.Context, docDate time.Time) error {
	if !p.closedUntil.IsZero() && docDate.Before(p.closedUntil) {
		return apperror.NewPeriodClosed(p.closedUntil.Format("2006-01-02"))
	}
	return nil
}

func (p *FlexiblePolicy) GetClosedPeriod(ctx context.Context) time.Time {
	return p.closedUntil
}

// IsBackdatedWarning checks if a posting deserves a warning.
func (p *FlexiblePolicy) IsBackdatedWarning(docDate time.Time) bool {
	if p.warningThreshold == 0 {
		return false
	}
	return time.Since(docDate) > p.warningThreshold
}

// OpenPolicy allows all postings (development and tests).
type OpenPolicy struct{}

func (OpenPolicy) CanPost(ctx context.Context, docDate time.Time) error { return nil }
func (OpenPolicy) GetClosedPeriod(ctx context.Context) time.Time        { return time.Time{} }
