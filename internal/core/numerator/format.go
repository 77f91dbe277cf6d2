package numerator

import (
	"fmt"
	"time"
)

// Key returns the sequence key for cfg in the period containing t.
func Key(cfg Config, t time.Time) string {
	switch cfg.ResetPeriod {
	case ResetMonthly:
		return fmt.Sprintf("%s_%s", cfg.Prefix, t.Format("2006_01"))
	case ResetYearly:
		return fmt.Sprintf("%s_%s", cfg.Prefix, t.Format("2006"))
	default:
		return cfg.Prefix
	}
}

// Format renders the final number string.
func Format(cfg Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}

	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}
