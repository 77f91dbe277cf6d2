package treasury_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treasury/internal/app"
	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/core/types"
	"treasury/internal/domain"
	"treasury/internal/domain/checkbooks"
	"treasury/internal/domain/checks"
	"treasury/internal/domain/ledger"
	"treasury/internal/domain/treasury"
	"treasury/internal/infrastructure/storage/memory"
)

var today = time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

var (
	customerA = entity.AccountRef{Kind: entity.AccountKindPerson, RefID: "cust-a", Title: "Customer A"}
	supplierB = entity.AccountRef{Kind: entity.AccountKindPerson, RefID: "sup-b", Title: "Supplier B"}
	cashBox1  = entity.AccountRef{Kind: entity.AccountKindCash, RefID: "box-1", Title: "Cash Box 1"}
	posTerm   = entity.AccountRef{Kind: entity.AccountKindPOS, RefID: "pos-1", Title: "POS 1"}
	mainBank  = entity.AccountRef{Kind: entity.AccountKindBank, RefID: "bank-1", Title: "Main Bank"}
)

func newServices(t *testing.T) (*app.Services, *memory.Store) {
	t.Helper()
	store := memory.New()
	return app.NewServices(app.MemoryRepositories(store), app.Options{}), store
}

func resolve(t *testing.T, svc *app.Services, ref entity.AccountRef) id.ID {
	t.Helper()
	acc, err := svc.Accounts.Resolve(context.Background(), ref)
	require.NoError(t, err)
	return acc.ID
}

func balance(t *testing.T, svc *app.Services, accountID id.ID) types.MinorUnits {
	t.Helper()
	sum, err := svc.Ledger.AccountSummary(context.Background(), accountID)
	require.NoError(t, err)
	return sum.Balance
}

func documentCount(t *testing.T, svc *app.Services) int64 {
	t.Helper()
	res, err := svc.Ledger.ListDocuments(context.Background(), ledger.DocumentFilter{ListFilter: domain.DefaultListFilter()})
	require.NoError(t, err)
	return res.TotalCount
}

func receivedCheck(no string, amount types.MinorUnits) treasury.Line {
	return treasury.Line{
		Method:    treasury.MethodCheck,
		Amount:    amount,
		CheckMode: treasury.CheckModeReceived,
		Received: &checks.ReceivedInput{
			ChequeNo:             no,
			NationalTrackingCode: "9876543210123456",
			BankName:             "Saderat",
			DueDate:              today.AddDate(0, 1, 0),
			Amount:               amount,
		},
	}
}

func TestCompose_CashReceipt(t *testing.T) {
	svc, store := newServices(t)
	ctx := context.Background()

	res, err := svc.Composer.Compose(ctx, treasury.Header{
		Direction:    treasury.DirectionReceive,
		Counterparty: customerA,
		Date:         today,
		Description:  "invoice 42",
	}, []treasury.Line{
		{Method: treasury.MethodCash, Amount: 1000, Target: cashBox1},
	})
	require.NoError(t, err)

	assert.Equal(t, "RCV-2026-00001", res.DocumentNo)
	assert.Equal(t, types.MinorUnits(1000), res.Total)
	assert.Empty(t, res.CheckIDs)

	doc, err := svc.Ledger.GetDocument(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentKindReceive, doc.Kind)
	assert.Equal(t, "invoice 42", doc.Description)
	require.Len(t, doc.Entries, 2)

	cash := resolve(t, svc, cashBox1)
	customer := resolve(t, svc, customerA)

	assert.Equal(t, cash, doc.Entries[0].AccountID)
	assert.Equal(t, types.MinorUnits(1000), doc.Entries[0].Debit)
	assert.Equal(t, customer, doc.Entries[1].AccountID)
	assert.Equal(t, types.MinorUnits(1000), doc.Entries[1].Credit)

	assert.Equal(t, types.MinorUnits(1000), balance(t, svc, cash))
	assert.Equal(t, types.MinorUnits(-1000), balance(t, svc, customer))

	events := store.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, domain.EventTransactionComposed, events[len(events)-1].EventType)
}

func TestCompose_MixedPayment(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()

	res, err := svc.Composer.Compose(ctx, treasury.Header{
		Direction:    treasury.DirectionPay,
		Counterparty: supplierB,
		Date:         today,
	}, []treasury.Line{
		{Method: treasury.MethodCash, Amount: 300, Target: cashBox1},
		{Method: treasury.MethodPOS, Amount: 200, Target: posTerm},
		{Method: treasury.MethodTransfer, Amount: 500, Target: mainBank},
	})
	require.NoError(t, err)
	assert.Equal(t, "PAY-2026-00001", res.DocumentNo)
	assert.Equal(t, types.MinorUnits(1000), res.Total)

	assert.Equal(t, types.MinorUnits(1000), balance(t, svc, resolve(t, svc, supplierB)))
	assert.Equal(t, types.MinorUnits(-300), balance(t, svc, resolve(t, svc, cashBox1)))
	assert.Equal(t, types.MinorUnits(-200), balance(t, svc, resolve(t, svc, posTerm)))
	assert.Equal(t, types.MinorUnits(-500), balance(t, svc, resolve(t, svc, mainBank)))
}

func TestCompose_Rejections(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()
	header := treasury.Header{Direction: treasury.DirectionReceive, Counterparty: customerA, Date: today}
	onHand, err := svc.Accounts.SystemAccount(ctx, entity.SystemChecksOnHand)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   treasury.Header
		lines    []treasury.Line
		wantErr  error
		wantCode string
	}{
		{
			name:    "no lines",
			header:  header,
			wantErr: treasury.ErrNoLines,
		},
		{
			name:    "unknown counterparty",
			header:  treasury.Header{Direction: treasury.DirectionReceive, Counterparty: entity.AccountRef{Kind: entity.AccountKindPerson, RefID: "ghost"}, Date: today},
			lines:   []treasury.Line{{Method: treasury.MethodCash, Amount: 10, Target: cashBox1}},
			wantErr: treasury.ErrUnresolvedAccount,
		},
		{
			name:    "missing counterparty",
			header:  treasury.Header{Direction: treasury.DirectionReceive, Date: today},
			lines:   []treasury.Line{{Method: treasury.MethodCash, Amount: 10, Target: cashBox1}},
			wantErr: treasury.ErrUnresolvedAccount,
		},
		{
			name:    "control account as counterparty",
			header:  treasury.Header{Direction: treasury.DirectionPay, Counterparty: entity.RefByID(onHand), Date: today},
			lines:   []treasury.Line{{Method: treasury.MethodCash, Amount: 500, Target: cashBox1}},
			wantErr: treasury.ErrUnresolvedAccount,
		},
		{
			name:    "cash line into bank",
			header:  header,
			lines:   []treasury.Line{{Method: treasury.MethodCash, Amount: 10, Target: mainBank}},
			wantErr: treasury.ErrUnresolvedAccount,
		},
		{
			name:    "unknown target",
			header:  header,
			lines:   []treasury.Line{{Method: treasury.MethodTransfer, Amount: 10, Target: entity.AccountRef{Kind: entity.AccountKindBank, RefID: "nope"}}},
			wantErr: treasury.ErrUnresolvedAccount,
		},
		{
			name:     "zero amount",
			header:   header,
			lines:    []treasury.Line{{Method: treasury.MethodCash, Amount: 0, Target: cashBox1}},
			wantCode: apperror.CodeValidation,
		},
		{
			name:     "received check on payment",
			header:   treasury.Header{Direction: treasury.DirectionPay, Counterparty: supplierB, Date: today},
			lines:    []treasury.Line{receivedCheck("1", 10)},
			wantCode: apperror.CodeValidation,
		},
		{
			name:     "unknown direction",
			header:   treasury.Header{Direction: "swap", Counterparty: customerA, Date: today},
			lines:    []treasury.Line{{Method: treasury.MethodCash, Amount: 10, Target: cashBox1}},
			wantCode: apperror.CodeValidation,
		},
		{
			name:     "missing date",
			header:   treasury.Header{Direction: treasury.DirectionReceive, Counterparty: customerA},
			lines:    []treasury.Line{{Method: treasury.MethodCash, Amount: 10, Target: cashBox1}},
			wantCode: apperror.CodeValidation,
		},
		{
			name:     "incomplete received check",
			header:   header,
			lines:    []treasury.Line{{Method: treasury.MethodCheck, Amount: 10, CheckMode: treasury.CheckModeReceived, Received: &checks.ReceivedInput{Amount: 10}}},
			wantCode: apperror.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Composer.Compose(ctx, tt.header, tt.lines)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantCode != "" {
				appErr, ok := apperror.AsAppError(err)
				require.True(t, ok, "%v", err)
				assert.Equal(t, tt.wantCode, appErr.Code)
			}
		})
	}

	assert.Zero(t, documentCount(t, svc))
	assert.Zero(t, balance(t, svc, onHand))
}

func TestCompose_InactiveCounterparty(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()

	customer := resolve(t, svc, customerA)
	require.NoError(t, svc.Accounts.SetActive(ctx, customer, false))

	_, err := svc.Composer.Compose(ctx, treasury.Header{
		Direction:    treasury.DirectionReceive,
		Counterparty: customerA,
		Date:         today,
	}, []treasury.Line{{Method: treasury.MethodCash, Amount: 10, Target: cashBox1}})
	assert.ErrorIs(t, err, treasury.ErrUnresolvedAccount)
}

func TestCompose_ReceivedCheckThenSpend(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()

	received, err := svc.Composer.Compose(ctx, treasury.Header{
		Direction:    treasury.DirectionReceive,
		Counterparty: customerA,
		Date:         today,
	}, []treasury.Line{
		receivedCheck("5501", 700),
		{Method: treasury.MethodCash, Amount: 300, Target: cashBox1},
	})
	require.NoError(t, err)
	assert.Equal(t, types.MinorUnits(1000), received.Total)
	require.Len(t, received.CheckIDs, 1)
	checkID := received.CheckIDs[0]

	chk, err := svc.Checks.Get(ctx, checkID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckReceived, chk.Direction)
	assert.Equal(t, entity.CheckPending, chk.Status)
	assert.Equal(t, resolve(t, svc, customerA), chk.OwnerAccountID)
	assert.Equal(t, received.DocumentID, chk.SourceDocumentID)

	onHand, err := svc.Accounts.SystemAccount(ctx, entity.SystemChecksOnHand)
	require.NoError(t, err)
	assert.Equal(t, types.MinorUnits(700), balance(t, svc, onHand))

	paid, err := svc.Composer.Compose(ctx, treasury.Header{
		Direction:    treasury.DirectionPay,
		Counterparty: supplierB,
		Date:         today.AddDate(0, 0, 2),
	}, []treasury.Line{
		{Method: treasury.MethodCheck, Amount: 700, CheckMode: treasury.CheckModeSpend, CheckID: checkID},
	})
	require.NoError(t, err)
	assert.Equal(t, []id.ID{checkID}, paid.CheckIDs)

	chk, err = svc.Checks.Get(ctx, checkID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckSpent, chk.Status)
	assert.Equal(t, resolve(t, svc, supplierB), chk.OwnerAccountID)

	assert.Zero(t, balance(t, svc, onHand))
	assert.Equal(t, types.MinorUnits(700), balance(t, svc, resolve(t, svc, supplierB)))

	history, err := svc.Checks.History(ctx, checkID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, paid.DocumentID, history[0].DocumentID)
	assert.Equal(t, entity.OpSpend, history[0].Operation)
}

func TestCompose_FailedLineRollsBackEverything(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()

	received, err := svc.Composer.Compose(ctx, treasury.Header{
		Direction:    treasury.DirectionReceive,
		Counterparty: customerA,
		Date:         today,
	}, []treasury.Line{receivedCheck("8001", 400)})
	require.NoError(t, err)
	checkID := received.CheckIDs[0]

	_, err = svc.Composer.Compose(ctx, treasury.Header{
		Direction:    treasury.DirectionPay,
		Counterparty: supplierB,
		Date:         today,
	}, []treasury.Line{
		{Method: treasury.MethodCheck, Amount: 400, CheckMode: treasury.CheckModeSpend, CheckID: checkID},
		{Method: treasury.MethodCash, Amount: 50, Target: entity.AccountRef{Kind: entity.AccountKindCash, RefID: "unknown-box"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, treasury.ErrUnresolvedAccount)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 2, appErr.Details["line"])

	chk, err := svc.Checks.Get(ctx, checkID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckPending, chk.Status)

	history, err := svc.Checks.History(ctx, checkID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.EqualValues(t, 1, documentCount(t, svc))
}

func TestCompose_SpendTwice(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()

	received, err := svc.Composer.Compose(ctx, treasury.Header{
		Direction:    treasury.DirectionReceive,
		Counterparty: customerA,
		Date:         today,
	}, []treasury.Line{receivedCheck("8002", 400)})
	require.NoError(t, err)
	checkID := received.CheckIDs[0]

	spend := []treasury.Line{{Method: treasury.MethodCheck, Amount: 400, CheckMode: treasury.CheckModeSpend, CheckID: checkID}}
	header := treasury.Header{Direction: treasury.DirectionPay, Counterparty: supplierB, Date: today}

	_, err = svc.Composer.Compose(ctx, header, append(spend, spend...))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	_, err = svc.Composer.Compose(ctx, header, spend)
	require.NoError(t, err)

	_, err = svc.Composer.Compose(ctx, header, spend)
	assert.ErrorIs(t, err, checks.ErrIllegalTransition)
}

func TestCompose_OwnCheckbook(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()

	bank := resolve(t, svc, mainBank)
	cb, err := svc.Checkbooks.Register(ctx, bank, "Series 1", 7001, 7010)
	require.NoError(t, err)

	own := func(serial int64, amount types.MinorUnits) treasury.Line {
		return treasury.Line{
			Method:    treasury.MethodCheck,
			Amount:    amount,
			CheckMode: treasury.CheckModeOwnCheckbook,
			Issued: &checks.IssuedInput{
				CheckbookID: cb.ID,
				Serial:      serial,
				DueDate:     today.AddDate(0, 0, 45),
				Amount:      amount,
			},
		}
	}
	header := treasury.Header{Direction: treasury.DirectionPay, Counterparty: supplierB, Date: today}

	res, err := svc.Composer.Compose(ctx, header, []treasury.Line{own(7001, 250), own(7002, 750)})
	require.NoError(t, err)
	require.Len(t, res.CheckIDs, 2)
	assert.Equal(t, types.MinorUnits(1000), res.Total)

	chk, err := svc.Checks.Get(ctx, res.CheckIDs[1])
	require.NoError(t, err)
	assert.Equal(t, entity.CheckIssued, chk.Direction)
	assert.Equal(t, "7002", chk.ChequeNo)
	assert.Equal(t, "Main Bank", chk.BankName)
	require.NotNil(t, chk.Serial)
	assert.Equal(t, int64(7002), *chk.Serial)
	assert.Nil(t, chk.NationalTrackingCode)

	payable, err := svc.Accounts.SystemAccount(ctx, entity.SystemChecksPayable)
	require.NoError(t, err)
	assert.Equal(t, types.MinorUnits(-1000), balance(t, svc, payable))

	_, err = svc.Composer.Compose(ctx, header, []treasury.Line{own(7003, 1), own(7003, 1)})
	assert.ErrorIs(t, err, checkbooks.ErrSerialAlreadyUsed)

	_, err = svc.Composer.Compose(ctx, header, []treasury.Line{own(7001, 1)})
	assert.ErrorIs(t, err, checkbooks.ErrSerialAlreadyUsed)

	_, err = svc.Composer.Compose(ctx, header, []treasury.Line{own(7011, 1)})
	assert.ErrorIs(t, err, checkbooks.ErrSerialOutOfRange)

	free, err := svc.Checkbooks.AvailableSerials(ctx, cb.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{7003, 7004, 7005, 7006, 7007, 7008, 7009, 7010}, free)
}

func TestCompose_ConcurrentIssuanceOfOneSerial(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()

	bank := resolve(t, svc, mainBank)
	resolve(t, svc, supplierB)
	cb, err := svc.Checkbooks.Register(ctx, bank, "Series 2", 1, 50)
	require.NoError(t, err)

	const writers = 8
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Composer.Compose(ctx, treasury.Header{
				Direction:    treasury.DirectionPay,
				Counterparty: supplierB,
				Date:         today,
			}, []treasury.Line{{
				Method:    treasury.MethodCheck,
				Amount:    10,
				CheckMode: treasury.CheckModeOwnCheckbook,
				Issued:    &checks.IssuedInput{CheckbookID: cb.ID, Serial: 17, DueDate: today, Amount: 10},
			}})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, checkbooks.ErrSerialAlreadyUsed)
		assert.True(t, apperror.IsRetryable(err))
	}
	assert.Equal(t, 1, succeeded)
	assert.EqualValues(t, 1, documentCount(t, svc))
}
