package checks_test

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
	"treasury/internal/domain/checks"
	"treasury/internal/domain/ledger"
	"treasury/internal/domain/treasury"
	"treasury/internal/infrastructure/storage/memory"
)

var opDate = time.Date(2026, time.April, 10, 0, 0, 0, 0, time.UTC)

type fixture struct {
	t        *testing.T
	store    *memory.Store
	svc      *app.Services
	customer id.ID
	supplier id.ID
	bank     id.ID
	cash     id.ID
}

func newFixture(t *testing.T, opts app.Options) *fixture {
	t.Helper()

	store := memory.New()
	f := &fixture{t: t, store: store, svc: app.NewServices(app.MemoryRepositories(store), opts)}
	f.customer = f.account(entity.AccountKindPerson, "customer-a", "Customer A")
	f.supplier = f.account(entity.AccountKindPerson, "supplier-b", "Supplier B")
	f.bank = f.account(entity.AccountKindBank, "bank-1", "Main Bank")
	f.cash = f.account(entity.AccountKindCash, "box-1", "Cash Box 1")
	return f
}

func (f *fixture) account(kind entity.AccountKind, refID, title string) id.ID {
	f.t.Helper()
	acc, err := f.svc.Accounts.Resolve(context.Background(), entity.AccountRef{Kind: kind, RefID: refID, Title: title})
	require.NoError(f.t, err)
	return acc.ID
}

func (f *fixture) system(which entity.SystemAccount) id.ID {
	f.t.Helper()
	accountID, err := f.svc.Accounts.SystemAccount(context.Background(), which)
	require.NoError(f.t, err)
	return accountID
}

func (f *fixture) balance(accountID id.ID) types.MinorUnits {
	f.t.Helper()
	sum, err := f.svc.Ledger.AccountSummary(context.Background(), accountID)
	require.NoError(f.t, err)
	return sum.Balance
}

func (f *fixture) receiveCheck(amount types.MinorUnits) id.ID {
	f.t.Helper()
	res, err := f.svc.Composer.Compose(context.Background(), treasury.Header{
		Direction:    treasury.DirectionReceive,
		Counterparty: entity.RefByID(f.customer),
		Date:         opDate,
	}, []treasury.Line{{
		Method:    treasury.MethodCheck,
		Amount:    amount,
		CheckMode: treasury.CheckModeReceived,
		Received: &checks.ReceivedInput{
			ChequeNo:             "778812",
			NationalTrackingCode: "1234567890123456",
			BankName:             "Melli",
			DueDate:              opDate.AddDate(0, 0, 30),
			Amount:               amount,
		},
	}})
	require.NoError(f.t, err)
	require.Len(f.t, res.CheckIDs, 1)
	return res.CheckIDs[0]
}

func (f *fixture) issueCheck(amount types.MinorUnits, serial int64) id.ID {
	f.t.Helper()
	ctx := context.Background()

	cb, err := f.svc.Checkbooks.Register(ctx, f.bank, "Main", 500, 510)
	require.NoError(f.t, err)

	res, err := f.svc.Composer.Compose(ctx, treasury.Header{
		Direction:    treasury.DirectionPay,
		Counterparty: entity.RefByID(f.supplier),
		Date:         opDate,
	}, []treasury.Line{{
		Method:    treasury.MethodCheck,
		Amount:    amount,
		CheckMode: treasury.CheckModeOwnCheckbook,
		Issued: &checks.IssuedInput{
			CheckbookID: cb.ID,
			Serial:      serial,
			DueDate:     opDate.AddDate(0, 1, 0),
			Amount:      amount,
		},
	}})
	require.NoError(f.t, err)
	require.Len(f.t, res.CheckIDs, 1)
	return res.CheckIDs[0]
}

func (f *fixture) perform(checkID id.ID, op entity.CheckOperation, target *entity.AccountRef) (*checks.Result, error) {
	return f.svc.Checks.Perform(context.Background(), checks.OperationRequest{
		CheckID:   checkID,
		Operation: op,
		Date:      opDate.AddDate(0, 0, 1),
		Target:    target,
	})
}

func ref(accountID id.ID) *entity.AccountRef {
	r := entity.RefByID(accountID)
	return &r
}

func TestPerform_DepositThenClear(t *testing.T) {
	f := newFixture(t, app.Options{})
	checkID := f.receiveCheck(1000)

	onHand := f.system(entity.SystemChecksOnHand)
	inCollection := f.system(entity.SystemChecksInCollection)
	assert.Equal(t, types.MinorUnits(1000), f.balance(onHand))

	res, err := f.perform(checkID, entity.OpDeposit, ref(f.bank))
	require.NoError(t, err)
	assert.Equal(t, entity.CheckDeposited, res.Status)
	require.NotNil(t, res.Check.DepositBankID)
	assert.Equal(t, f.bank, *res.Check.DepositBankID)
	assert.NotEmpty(t, res.DocumentNo)

	assert.Zero(t, f.balance(onHand))
	assert.Equal(t, types.MinorUnits(1000), f.balance(inCollection))

	res, err = f.perform(checkID, entity.OpClear, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckCleared, res.Status)

	assert.Zero(t, f.balance(inCollection))
	assert.Equal(t, types.MinorUnits(1000), f.balance(f.bank))

	doc, err := f.svc.Ledger.GetDocument(context.Background(), res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentKindCheckOperation, doc.Kind)
	assert.Equal(t, types.MinorUnits(1000), doc.TotalAmount)

	history, err := f.svc.Checks.History(context.Background(), checkID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entity.OpDeposit, history[0].Operation)
	require.NotNil(t, history[0].TargetAccountID)
	assert.Equal(t, f.bank, *history[0].TargetAccountID)
	assert.Equal(t, entity.CheckDeposited, history[1].FromStatus)
	assert.Equal(t, entity.CheckCleared, history[1].ToStatus)
	assert.Equal(t, res.DocumentID, history[1].DocumentID)
}

func TestPerform_IllegalTransitionChangesNothing(t *testing.T) {
	f := newFixture(t, app.Options{})
	checkID := f.receiveCheck(1000)

	_, err := f.perform(checkID, entity.OpDeposit, ref(f.bank))
	require.NoError(t, err)
	_, err = f.perform(checkID, entity.OpClear, nil)
	require.NoError(t, err)

	before, err := f.svc.Ledger.ListDocuments(context.Background(), ledger.DocumentFilter{ListFilter: domain.DefaultListFilter()})
	require.NoError(t, err)

	for _, op := range entity.CheckOperations {
		_, err = f.perform(checkID, op, nil)
		assert.ErrorIs(t, err, checks.ErrIllegalTransition, "operation %s on cleared check", op)
	}

	chk, err := f.svc.Checks.Get(context.Background(), checkID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckCleared, chk.Status)

	after, err := f.svc.Ledger.ListDocuments(context.Background(), ledger.DocumentFilter{ListFilter: domain.DefaultListFilter()})
	require.NoError(t, err)
	assert.Equal(t, before.TotalCount, after.TotalCount)
}

func TestPerform_BounceFromPendingIsIllegal(t *testing.T) {
	f := newFixture(t, app.Options{})
	checkID := f.receiveCheck(250)

	_, err := f.perform(checkID, entity.OpBounce, nil)
	assert.ErrorIs(t, err, checks.ErrIllegalTransition)

	chk, err := f.svc.Checks.Get(context.Background(), checkID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckPending, chk.Status)
}

func TestPerform_TargetValidation(t *testing.T) {
	f := newFixture(t, app.Options{})
	checkID := f.receiveCheck(500)

	_, err := f.perform(checkID, entity.OpDeposit, nil)
	assert.ErrorIs(t, err, checks.ErrMissingTarget)

	_, err = f.perform(checkID, entity.OpDeposit, ref(f.cash))
	assert.ErrorIs(t, err, checks.ErrInvalidTarget)

	_, err = f.perform(checkID, entity.OpSpend, ref(f.bank))
	assert.ErrorIs(t, err, checks.ErrInvalidTarget)

	_, err = f.perform(checkID, entity.OpReturn, nil)
	assert.ErrorIs(t, err, checks.ErrMissingTarget)

	_, err = f.perform(checkID, entity.OpReturn, ref(f.supplier))
	assert.ErrorIs(t, err, checks.ErrInvalidTarget, "return goes back to the payer")

	_, err = f.perform(checkID, entity.OpDeposit, ref(id.New()))
	assert.ErrorIs(t, err, treasury.ErrUnresolvedAccount)

	_, err = f.perform(checkID, entity.OpDeposit, ref(f.bank))
	require.NoError(t, err)

	_, err = f.perform(checkID, entity.OpBounce, ref(f.bank))
	assert.ErrorIs(t, err, checks.ErrInvalidTarget, "bounce takes no target")

	chk, err := f.svc.Checks.Get(context.Background(), checkID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckDeposited, chk.Status)
}

func TestPerform_BounceMarksOwnerDishonored(t *testing.T) {
	f := newFixture(t, app.Options{})
	checkID := f.receiveCheck(1200)

	_, err := f.perform(checkID, entity.OpDeposit, ref(f.bank))
	require.NoError(t, err)

	res, err := f.perform(checkID, entity.OpBounce, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckBounced, res.Status)

	owner, err := f.svc.Accounts.Get(context.Background(), f.customer)
	require.NoError(t, err)
	assert.True(t, owner.HasDishonored)

	assert.Equal(t, types.MinorUnits(1200), f.balance(f.system(entity.SystemDishonoredChecks)))
	assert.Zero(t, f.balance(f.system(entity.SystemChecksInCollection)))
}

func TestPerform_DirectClearWithoutTargetGoesToCash(t *testing.T) {
	f := newFixture(t, app.Options{})
	checkID := f.receiveCheck(300)

	res, err := f.perform(checkID, entity.OpClear, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckCleared, res.Status)
	assert.Equal(t, types.MinorUnits(300), f.balance(f.system(entity.SystemCashOnHand)))

	other := f.receiveCheck(200)
	_, err = f.perform(other, entity.OpClear, ref(f.cash))
	require.NoError(t, err)
	assert.Equal(t, types.MinorUnits(200), f.balance(f.cash))
}

func TestPerform_SpendAndReturn(t *testing.T) {
	f := newFixture(t, app.Options{})

	spent := f.receiveCheck(400)
	res, err := f.perform(spent, entity.OpSpend, ref(f.supplier))
	require.NoError(t, err)
	assert.Equal(t, entity.CheckSpent, res.Status)
	assert.Equal(t, types.MinorUnits(400), f.balance(f.supplier))

	chk, err := f.svc.Checks.Get(context.Background(), spent)
	require.NoError(t, err)
	assert.Equal(t, f.supplier, chk.OwnerAccountID, "the payee holds a spent check")

	returned := f.receiveCheck(150)
	_, err = f.perform(returned, entity.OpDeposit, ref(f.bank))
	require.NoError(t, err)
	res, err = f.perform(returned, entity.OpReturn, ref(f.customer))
	require.NoError(t, err)
	assert.Equal(t, entity.CheckReturned, res.Status)
	assert.Zero(t, f.balance(f.system(entity.SystemChecksInCollection)))
}

func TestPerform_IssuedCheck(t *testing.T) {
	f := newFixture(t, app.Options{})
	payable := f.system(entity.SystemChecksPayable)

	checkID := f.issueCheck(900, 501)
	assert.Equal(t, types.MinorUnits(-900), f.balance(payable))

	for _, op := range []entity.CheckOperation{entity.OpDeposit, entity.OpSpend, entity.OpBounce} {
		_, err := f.perform(checkID, op, ref(f.bank))
		assert.ErrorIs(t, err, checks.ErrIllegalTransition, "issued %s", op)
	}

	res, err := f.perform(checkID, entity.OpClear, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckCleared, res.Status)
	assert.Zero(t, f.balance(payable))
	assert.Equal(t, types.MinorUnits(-900), f.balance(f.bank))
}

func TestPerform_IssuedReturn(t *testing.T) {
	f := newFixture(t, app.Options{})
	checkID := f.issueCheck(90, 502)

	res, err := f.perform(checkID, entity.OpReturn, ref(f.supplier))
	require.NoError(t, err)
	assert.Equal(t, entity.CheckReturned, res.Status)
	assert.Zero(t, f.balance(f.supplier))
	assert.Zero(t, f.balance(f.system(entity.SystemChecksPayable)))
}

func TestPerform_DirectClearPolicy(t *testing.T) {
	policy, err := checks.NewCELClearPolicy(`direction == "received"`)
	require.NoError(t, err)
	f := newFixture(t, app.Options{ClearPolicy: policy})

	issued := f.issueCheck(100, 503)
	_, err = f.perform(issued, entity.OpClear, nil)
	assert.ErrorIs(t, err, checks.ErrIllegalTransition)

	received := f.receiveCheck(100)
	_, err = f.perform(received, entity.OpClear, nil)
	assert.NoError(t, err)
}

func TestPerform_ValidatesRequest(t *testing.T) {
	f := newFixture(t, app.Options{})
	checkID := f.receiveCheck(100)

	_, err := f.svc.Checks.Perform(context.Background(), checks.OperationRequest{
		CheckID:   checkID,
		Operation: entity.OpClear,
	})
	assert.Error(t, err, "date is required")

	_, err = f.perform(checkID, "cash", nil)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	_, err = f.perform(id.New(), entity.OpClear, nil)
	assert.True(t, apperror.IsNotFound(err))
}

func TestPerform_ConcurrentOperationsOnOneCheck(t *testing.T) {
	f := newFixture(t, app.Options{})
	checkID := f.receiveCheck(1000)

	const attempts = 6
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.perform(checkID, entity.OpDeposit, ref(f.bank))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, checks.ErrIllegalTransition)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, types.MinorUnits(1000), f.balance(f.system(entity.SystemChecksInCollection)))
}

func TestCheckRepo_UpdateStatusDetectsStaleStatus(t *testing.T) {
	f := newFixture(t, app.Options{})
	checkID := f.receiveCheck(100)
	repo := memory.NewCheckRepo(f.store)
	ctx := context.Background()

	chk, err := repo.GetByID(ctx, checkID)
	require.NoError(t, err)

	_, err = f.perform(checkID, entity.OpDeposit, ref(f.bank))
	require.NoError(t, err)

	stale := *chk
	stale.Status = entity.CheckCleared
	err = repo.UpdateStatus(ctx, &stale, entity.CheckPending)
	assert.ErrorIs(t, err, checks.ErrStaleStatus)
	assert.True(t, apperror.IsRetryable(err))

	current, err := repo.GetByID(ctx, checkID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckDeposited, current.Status)
}

func TestList(t *testing.T) {
	f := newFixture(t, app.Options{})
	first := f.receiveCheck(100)
	f.receiveCheck(200)
	f.issueCheck(300, 504)

	_, err := f.perform(first, entity.OpDeposit, ref(f.bank))
	require.NoError(t, err)

	received := entity.CheckReceived
	res, err := f.svc.Checks.List(context.Background(), checks.ListFilter{
		ListFilter: domain.DefaultListFilter(),
		Direction:  &received,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.TotalCount)

	deposited := entity.CheckDeposited
	res, err = f.svc.Checks.List(context.Background(), checks.ListFilter{
		ListFilter: domain.DefaultListFilter(),
		Status:     &deposited,
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, first, res.Items[0].ID)
}

func TestGuardReversal(t *testing.T) {
	f := newFixture(t, app.Options{})
	checkID := f.receiveCheck(100)

	chk, err := f.svc.Checks.Get(context.Background(), checkID)
	require.NoError(t, err)

	_, err = f.svc.Ledger.ReverseDocument(context.Background(), chk.SourceDocumentID, time.Time{}, "")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
}
