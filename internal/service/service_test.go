package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"marketplace-api/internal/model"
	"marketplace-api/internal/repository"
	"marketplace-api/internal/service"
	"marketplace-api/internal/testutil"
)

var t0 = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db       *gorm.DB
	f        *testutil.Fixtures
	now      time.Time
	subRepo  repository.SubscriptionRepository
	payments repository.PaymentRepository

	subscriptions service.SubscriptionService
	entitlements  service.EntitlementService
	products      service.ProductService
	settlements   service.PaymentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(t, testutil.NewDB(t))
}

// raceBackends open databases whose connections really overlap. Only PostgreSQL takes
// the row locks; SQLite serializes whole write transactions.
var raceBackends = map[string]func(testing.TB) *gorm.DB{
	"sqlite":   testutil.NewSharedDB,
	"postgres": testutil.NewPostgresDB,
}

func newTestEnvOn(t *testing.T, db *gorm.DB) *testEnv {
	t.Helper()

	e := &testEnv{db: db, f: testutil.Seed(t, db), now: t0}
	clock := service.WithClock(func() time.Time { return e.now })

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	e.subRepo = repository.NewSubscriptionRepository(db)
	e.payments = repository.NewPaymentRepository(db)

	e.subscriptions = service.NewSubscriptionService(
		db,
		userRepo,
		repository.NewPackageRepository(db),
		repository.NewVendorTypeRepository(db),
		e.subRepo,
		e.payments,
		clock,
	)
	e.entitlements = service.NewEntitlementService(userRepo, e.subRepo, productRepo, clock)
	e.products = service.NewProductService(db, userRepo, e.subRepo, productRepo, clock)
	e.settlements = service.NewPaymentService(db, e.subRepo, e.payments, repository.NewPaymentEventRepository(db), clock)

	return e
}

func (e *testEnv) reload(t *testing.T, id uint) *model.Subscription {
	t.Helper()
	sub, err := e.subRepo.FindByID(context.Background(), nil, id, false)
	require.NoError(t, err)
	return sub
}

// assign gives the fixture vendor an admin-assigned, paid Starter subscription.
func (e *testEnv) assign(t *testing.T, params service.SubscribeParams) *service.SubscribeResult {
	t.Helper()
	if params.VendorID == 0 {
		params.VendorID = e.f.Vendor.ID
	}
	if params.PackageID == 0 {
		params.PackageID = e.f.Starter.ID
	}
	if params.Months == 0 && params.Days == 0 {
		params.Months = 1
	}
	params.Flow = service.FlowAdmin

	res, err := e.subscriptions.Subscribe(context.Background(), params)
	require.NoError(t, err)
	return res
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, money(want).Equal(got), "want %s, got %s", want, got.StringFixed(2))
}
