package checkbooks_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"treasury/internal/app"
	"treasury/internal/core/apperror"
	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/core/types"
	"treasury/internal/domain"
	"treasury/internal/domain/checkbooks"
	"treasury/internal/domain/checks"
	"treasury/internal/domain/treasury"
	"treasury/internal/infrastructure/storage/memory"
)

var payDate = time.Date(2026, time.May, 4, 0, 0, 0, 0, time.UTC)

type fixture struct {
	t        *testing.T
	store    *memory.Store
	svc      *app.Services
	bank     id.ID
	supplier id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{t: t, store: store, svc: app.NewServices(app.MemoryRepositories(store), app.Options{})}

	ctx := context.Background()
	bank, err := f.svc.Accounts.Resolve(ctx, entity.AccountRef{Kind: entity.AccountKindBank, RefID: "bank-1", Title: "Main Bank"})
	require.NoError(t, err)
	supplier, err := f.svc.Accounts.Resolve(ctx, entity.AccountRef{Kind: entity.AccountKindPerson, RefID: "sup", Title: "Supplier"})
	require.NoError(t, err)
	f.bank, f.supplier = bank.ID, supplier.ID
	return f
}

func (f *fixture) issue(cbID id.ID, serial int64) (*treasury.Result, error) {
	return f.svc.Composer.Compose(context.Background(), treasury.Header{
		Direction:    treasury.DirectionPay,
		Counterparty: entity.RefByID(f.supplier),
		Date:         payDate,
	}, []treasury.Line{{
		Method:    treasury.MethodCheck,
		Amount:    100,
		CheckMode: treasury.CheckModeOwnCheckbook,
		Issued: &checks.IssuedInput{
			CheckbookID: cbID,
			Serial:      serial,
			DueDate:     payDate.AddDate(0, 0, 14),
			Amount:      100,
		},
	}})
}

func TestAllocator_SerialUniqueness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cb, err := f.svc.Checkbooks.Register(ctx, f.bank, "Series A", 100, 102)
	require.NoError(t, err)

	for _, serial := range []int64{100, 101, 102} {
		_, err := f.issue(cb.ID, serial)
		require.NoError(t, err, "serial %d", serial)
	}

	_, err = f.issue(cb.ID, 101)
	assert.ErrorIs(t, err, checkbooks.ErrSerialAlreadyUsed)
	assert.True(t, apperror.IsRetryable(err))

	_, err = f.issue(cb.ID, 103)
	assert.ErrorIs(t, err, checkbooks.ErrSerialOutOfRange)

	_, err = f.issue(cb.ID, 99)
	assert.ErrorIs(t, err, checkbooks.ErrSerialOutOfRange)

	free, err := f.svc.Checkbooks.AvailableSerials(ctx, cb.ID)
	require.NoError(t, err)
	assert.Empty(t, free)

	stored, err := f.svc.Checkbooks.Get(ctx, cb.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckbookExhausted, stored.Status)

	var exhausted int
	for _, e := range f.store.Events() {
		if e.EventType == domain.EventCheckbookExhausted {
			exhausted++
		}
	}
	assert.Equal(t, 1, exhausted)
}

func TestAllocator_AvailableSerials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cb, err := f.svc.Checkbooks.Register(ctx, f.bank, "Series B", 10, 15)
	require.NoError(t, err)

	_, err = f.issue(cb.ID, 12)
	require.NoError(t, err)
	_, err = f.issue(cb.ID, 10)
	require.NoError(t, err)

	free, err := f.svc.Checkbooks.AvailableSerials(ctx, cb.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 13, 14, 15}, free)

	_, err = f.svc.Checkbooks.AvailableSerials(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestAllocator_FailedIssuanceKeepsSerialFree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cb, err := f.svc.Checkbooks.Register(ctx, f.bank, "Series C", 1, 3)
	require.NoError(t, err)

	_, err = f.svc.Composer.Compose(ctx, treasury.Header{
		Direction:    treasury.DirectionPay,
		Counterparty: entity.RefByID(f.supplier),
		Date:         payDate,
	}, []treasury.Line{
		{
			Method:    treasury.MethodCheck,
			Amount:    100,
			CheckMode: treasury.CheckModeOwnCheckbook,
			Issued:    &checks.IssuedInput{CheckbookID: cb.ID, Serial: 2, DueDate: payDate, Amount: 100},
		},
		{
			Method: treasury.MethodCash,
			Amount: 50,
			Target: entity.AccountRef{Kind: entity.AccountKindCash, RefID: "missing"},
		},
	})
	assert.ErrorIs(t, err, treasury.ErrUnresolvedAccount)

	free, err := f.svc.Checkbooks.AvailableSerials(ctx, cb.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, free)
}

func TestAllocator_StoreRejectsDuplicateSerial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cb, err := f.svc.Checkbooks.Register(ctx, f.bank, "Series D", 1, 5)
	require.NoError(t, err)

	in := checks.IssuedInput{CheckbookID: cb.ID, Serial: 4, DueDate: payDate, Amount: types.MinorUnits(10)}
	first, err := checks.NewIssuedCheck(in, cb, "Main Bank", f.supplier)
	require.NoError(t, err)
	second, err := checks.NewIssuedCheck(in, cb, "Main Bank", f.supplier)
	require.NoError(t, err)

	// Both writers passed the allocation pre-check; only the store can tell them apart.
	repo := memory.NewCheckRepo(f.store)
	require.NoError(t, repo.Create(ctx, first))
	err = repo.Create(ctx, second)
	assert.ErrorIs(t, err, checkbooks.ErrSerialAlreadyUsed)
}

func TestAllocator_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Checkbooks.Register(ctx, f.bank, "bad", 10, 9)
	assert.Error(t, err)

	_, err = f.svc.Checkbooks.Register(ctx, f.bank, "bad", 0, 9)
	assert.Error(t, err)

	_, err = f.svc.Checkbooks.Register(ctx, f.supplier, "not a bank", 1, 9)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	cb, err := f.svc.Checkbooks.Register(ctx, f.bank, "ok", 1, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), cb.Size())

	list, err := f.svc.Checkbooks.List(ctx, &f.bank)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, cb.ID, list[0].ID)
}

func TestAllocator_Cancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cb, err := f.svc.Checkbooks.Register(ctx, f.bank, "Series E", 1, 5)
	require.NoError(t, err)
	require.NoError(t, f.svc.Checkbooks.Cancel(ctx, cb.ID))

	_, err = f.issue(cb.ID, 1)
	assert.ErrorIs(t, err, checkbooks.ErrCheckbookInactive)

	err = f.svc.Checkbooks.Cancel(ctx, cb.ID)
	assert.ErrorIs(t, err, checkbooks.ErrCheckbookInactive)
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, cb *entity.Checkbook) error {
	return m.Called(ctx, cb).Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, checkbookID id.ID) (*entity.Checkbook, error) {
	args := m.Called(ctx, checkbookID)
	cb, _ := args.Get(0).(*entity.Checkbook)
	return cb, args.Error(1)
}

func (m *mockRepo) List(ctx context.Context, bankAccountID *id.ID) ([]entity.Checkbook, error) {
	args := m.Called(ctx, bankAccountID)
	list, _ := args.Get(0).([]entity.Checkbook)
	return list, args.Error(1)
}

func (m *mockRepo) SetStatus(ctx context.Context, checkbookID id.ID, status entity.CheckbookStatus) error {
	return m.Called(ctx, checkbookID, status).Error(0)
}

func (m *mockRepo) UsedSerials(ctx context.Context, checkbookID id.ID) ([]int64, error) {
	args := m.Called(ctx, checkbookID)
	used, _ := args.Get(0).([]int64)
	return used, args.Error(1)
}

func (m *mockRepo) IsSerialUsed(ctx context.Context, checkbookID id.ID, serial int64) (bool, error) {
	args := m.Called(ctx, checkbookID, serial)
	return args.Bool(0), args.Error(1)
}

func TestAllocator_AllocateChecksRangeBeforeStore(t *testing.T) {
	repo := new(mockRepo)
	alloc := checkbooks.NewAllocator(repo, nil, nil, nil)

	cb := &entity.Checkbook{BaseEntity: entity.NewBaseEntity(), SerialStart: 100, SerialEnd: 102, Status: entity.CheckbookActive}
	repo.On("GetByID", mock.Anything, cb.ID).Return(cb, nil)
	repo.On("IsSerialUsed", mock.Anything, cb.ID, int64(101)).Return(true, nil)
	repo.On("IsSerialUsed", mock.Anything, cb.ID, int64(102)).Return(false, nil)

	_, err := alloc.Allocate(context.Background(), cb.ID, 103)
	assert.ErrorIs(t, err, checkbooks.ErrSerialOutOfRange)

	_, err = alloc.Allocate(context.Background(), cb.ID, 101)
	assert.ErrorIs(t, err, checkbooks.ErrSerialAlreadyUsed)

	got, err := alloc.Allocate(context.Background(), cb.ID, 102)
	require.NoError(t, err)
	assert.Equal(t, cb.ID, got.ID)

	repo.AssertNotCalled(t, "IsSerialUsed", mock.Anything, cb.ID, int64(103))
	repo.AssertExpectations(t)
}

func TestAllocator_CloseIfExhausted(t *testing.T) {
	repo := new(mockRepo)
	alloc := checkbooks.NewAllocator(repo, nil, nil, nil)

	cb := &entity.Checkbook{BaseEntity: entity.NewBaseEntity(), SerialStart: 1, SerialEnd: 2, Status: entity.CheckbookActive}
	repo.On("GetByID", mock.Anything, cb.ID).Return(cb, nil)
	repo.On("UsedSerials", mock.Anything, cb.ID).Return([]int64{1}, nil).Once()

	closed, err := alloc.CloseIfExhausted(context.Background(), cb.ID)
	require.NoError(t, err)
	assert.False(t, closed)

	repo.On("UsedSerials", mock.Anything, cb.ID).Return([]int64{1, 2}, nil).Once()
	repo.On("SetStatus", mock.Anything, cb.ID, entity.CheckbookExhausted).Return(nil).Once()

	closed, err = alloc.CloseIfExhausted(context.Background(), cb.ID)
	require.NoError(t, err)
	assert.True(t, closed)
	repo.AssertExpectations(t)
}
