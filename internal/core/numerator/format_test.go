package numerator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	at := time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "RCV_2026", Key(DefaultConfig("RCV"), at))
	assert.Equal(t, "RCV_2026_05", Key(Config{Prefix: "RCV", ResetPeriod: ResetMonthly}, at))
	assert.Equal(t, "ACC", Key(Config{Prefix: "ACC", ResetPeriod: ResetNever}, at))
}

func TestFormat(t *testing.T) {
	at := time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "PAY-2026-00042", Format(DefaultConfig("PAY"), at, 42))
	assert.Equal(t, "ACC-007", Format(Config{Prefix: "ACC", PadWidth: 3}, at, 7))
}
