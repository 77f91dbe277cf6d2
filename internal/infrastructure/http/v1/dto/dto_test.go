package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/types"
	"treasury/internal/domain/treasury"
)

func assertValidation(t *testing.T, err error) {
	t.Helper()
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "want *AppError, got %v", err)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestMoney(t *testing.T) {
	rial := Money{Scale: 0}
	cents := Money{Scale: 2}

	v, err := rial.ToMinor("amount", decimal.RequireFromString("125000"))
	require.NoError(t, err)
	assert.Equal(t, types.MinorUnits(125000), v)

	v, err = cents.ToMinor("amount", decimal.RequireFromString("12.34"))
	require.NoError(t, err)
	assert.Equal(t, types.MinorUnits(1234), v)
	assert.Equal(t, "12.34", cents.Format(v))

	_, err = rial.ToMinor("amount", decimal.RequireFromString("0.5"))
	assertValidation(t, err)

	_, err = cents.ToMinor("amount", decimal.RequireFromString("-1"))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "amount", appErr.Details["field"])
}

func TestDate_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: `"2026-06-01"`, want: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
		{in: `"2026-06-01T23:30:00+03:30"`, want: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
		{in: `""`},
		{in: `"01/06/2026"`, wantErr: true},
		{in: `20260601`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Date
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(d.Time), "got %s", d.Time)
		})
	}

	out, err := json.Marshal(Date{Time: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-06-01"`, string(out))
}

func TestValidSayadi(t *testing.T) {
	assert.True(t, ValidSayadi("9876543210123456"))
	assert.False(t, ValidSayadi("987654321012345"))
	assert.False(t, ValidSayadi("98765432101234567"))
	assert.False(t, ValidSayadi("98765432101234ab"))
	assert.False(t, ValidSayadi(""))
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2026-01-01", "")
	require.NoError(t, err)
	require.NotNil(t, p.From)
	assert.Nil(t, p.To)

	_, err = ParsePeriod("2026-02-01", "2026-01-01")
	assert.Error(t, err)

	_, err = ParsePeriod("yesterday", "")
	assertValidation(t, err)
}

func TestComposeRequest_ToDomain(t *testing.T) {
	req := ComposeRequest{
		Direction:    "receive",
		Counterparty: AccountRefRequest{Kind: "person", RefID: "cust-a", Title: "Customer A"},
		Date:         Date{Time: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
		Lines: []ComposeLine{
			{Method: "pos", Amount: decimal.NewFromInt(900), Target: &AccountRefRequest{Kind: "pos", RefID: "pos-1"}},
			{
				Method:    "check",
				Amount:    decimal.NewFromInt(2500),
				CheckMode: "received",
				Received: &ReceivedCheckFields{
					ChequeNo:             "1",
					NationalTrackingCode: "9876543210123456",
					BankName:             "Mellat",
					DueDate:              Date{Time: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)},
				},
			},
		},
	}

	header, lines, err := req.ToDomain(Money{})
	require.NoError(t, err)
	assert.Equal(t, treasury.DirectionReceive, header.Direction)
	assert.Equal(t, entity.AccountKindPerson, header.Counterparty.Kind)
	require.Len(t, lines, 2)

	assert.Equal(t, treasury.MethodPOS, lines[0].Method)
	assert.Equal(t, "pos-1", lines[0].Target.RefID)
	assert.Nil(t, lines[0].Received)

	require.NotNil(t, lines[1].Received)
	assert.Equal(t, types.MinorUnits(2500), lines[1].Received.Amount)
	assert.Equal(t, treasury.CheckModeReceived, lines[1].CheckMode)

	req.Lines[0].CheckID = "0190a6f2-8d35-7c3c-9c8e-1f2a3b4c5d6e"
	_, _, err = req.ToDomain(Money{})
	assertValidation(t, err)
}

func TestCreateDocumentRequest_ToDraft(t *testing.T) {
	req := CreateDocumentRequest{
		Date: Date{Time: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
		Entries: []DocumentEntryInput{
			{AccountID: "0190a6f2-8d35-7c3c-9c8e-1f2a3b4c5d6e", Debit: decimal.RequireFromString("10.50")},
			{AccountID: "0190a6f2-8d35-7c3c-9c8e-1f2a3b4c5d6f", Credit: decimal.RequireFromString("10.50")},
		},
	}

	draft, err := req.ToDraft(Money{Scale: 2})
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentKindManual, draft.Kind)
	require.Len(t, draft.Entries, 2)
	assert.Equal(t, types.MinorUnits(1050), draft.Entries[0].Debit)
	assert.Equal(t, types.MinorUnits(1050), draft.Entries[1].Credit)

	req.Entries[1].AccountID = "nope"
	_, err = req.ToDraft(Money{Scale: 2})
	require.Error(t, err)
}
