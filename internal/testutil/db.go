// Package testutil provides test databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"marketplace-api/internal/client"
	"marketplace-api/internal/config"
	"marketplace-api/internal/model"
)

// NewDB opens a migrated in-memory SQLite database. A single connection keeps the
// memory database alive and serializes transactions the way row locks do on MySQL/Postgres.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := client.InitDBClient(config.Database{
		Driver:       "sqlite",
		URL:          ":memory:",
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(db) })

	require.NoError(t, client.Migrate(db))

	return db
}

// NewSharedDB opens a file-backed SQLite database with a pool of connections, so
// transactions from different goroutines really overlap. SQLite has no row locks; write
// transactions begin IMMEDIATE and serialize on the database lock instead.
func NewSharedDB(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "marketplace.db")
	return open(t, config.Database{
		Driver:       "sqlite",
		URL:          "file:" + path + "?_txlock=immediate&_busy_timeout=10000&_journal_mode=WAL",
		MaxIdleConns: 8,
		MaxOpenConns: 8,
	})
}

// NewPostgresDB opens a fresh schema in the database named by TEST_DATABASE_URL and
// skips the test when it is unset. Row locks are real here.
func NewPostgresDB(t testing.TB) *gorm.DB {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL test")
	}

	admin, err := client.InitDBClient(config.Database{Driver: "postgres", URL: dbURL, MaxIdleConns: 1, MaxOpenConns: 1})
	if err != nil {
		t.Skipf("connect to test database: %v", err)
	}
	t.Cleanup(func() { _ = client.Close(admin) })

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	require.NoError(t, admin.Exec("CREATE SCHEMA "+schema).Error)
	t.Cleanup(func() { _ = admin.Exec("DROP SCHEMA " + schema + " CASCADE").Error })

	return open(t, config.Database{
		Driver:          "postgres",
		URL:             withSearchPath(t, dbURL, schema),
		MaxIdleConns:    8,
		MaxOpenConns:    8,
		ConnMaxLifetime: time.Minute,
	})
}

func open(t testing.TB, cfg config.Database) *gorm.DB {
	t.Helper()

	db, err := client.InitDBClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(db) })

	require.NoError(t, client.Migrate(db))
	return db
}

func withSearchPath(t testing.TB, dsn, schema string) string {
	t.Helper()

	if !strings.Contains(dsn, "://") {
		return fmt.Sprintf("%s search_path=%s", dsn, schema)
	}

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}

type Fixtures struct {
	Admin      *model.User
	Vendor     *model.User
	Customer   *model.User
	Monthly    *model.VendorType
	Biweekly   *model.VendorType
	Starter    *model.Package // monthly, 100/month, 5 slots
	Pro        *model.Package // monthly, 250/month, 20 slots
	RealEstate *model.Package // biweekly, 95 per 14 days, 10 slots
}

func Seed(t testing.TB, db *gorm.DB) *Fixtures {
	t.Helper()

	f := &Fixtures{
		Admin:    &model.User{Name: "Admin", Email: "admin@example.com", RoleID: model.RoleAdmin},
		Vendor:   &model.User{Name: "Vendor", Email: "vendor@example.com", RoleID: model.RoleVendor},
		Customer: &model.User{Name: "Customer", Email: "customer@example.com", RoleID: model.RoleCustomer},
		Monthly:  &model.VendorType{Name: "standard", BillingCycle: model.BillingMonthly},
		Biweekly: &model.VendorType{Name: "real_estate", BillingCycle: model.BillingBiweekly},
	}

	for _, v := range []interface{}{f.Admin, f.Vendor, f.Customer, f.Monthly, f.Biweekly} {
		require.NoError(t, db.Create(v).Error)
	}

	f.Starter = &model.Package{Name: "Starter", VendorTypeID: f.Monthly.ID, Price: decimal.NewFromInt(100), BiweeklyPrice: decimal.Zero, MaxProducts: 5, IsActive: true}
	f.Pro = &model.Package{Name: "Pro", VendorTypeID: f.Monthly.ID, Price: decimal.NewFromInt(250), BiweeklyPrice: decimal.Zero, MaxProducts: 20, IsActive: true}
	f.RealEstate = &model.Package{Name: "Real estate", VendorTypeID: f.Biweekly.ID, Price: decimal.NewFromInt(180), BiweeklyPrice: decimal.NewFromInt(95), MaxProducts: 10, IsActive: true}

	for _, p := range []*model.Package{f.Starter, f.Pro, f.RealEstate} {
		require.NoError(t, db.Create(p).Error)
	}

	return f
}

// NewVendor inserts another vendor user with the given role.
func NewVendor(t testing.TB, db *gorm.DB, email string, role model.Role) *model.User {
	t.Helper()

	u := &model.User{Name: email, Email: email, RoleID: role}
	require.NoError(t, db.Create(u).Error)
	return u
}
