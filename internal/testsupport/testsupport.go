package testsupport

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"utmlens/internal/config"
	"utmlens/internal/store"
	"utmlens/internal/timeframe"
)

func init() {
	// Packages that pull in testsupport run against the test environment
	// unless the caller chose one explicitly.
	if os.Getenv("UTMLENS_ENV") == "" {
		os.Setenv("UTMLENS_ENV", config.Test)
	}
}

// testDBCache caches test databases by test name so repeated calls within
// one (sub)test share a database.
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

var _ cartridge.DBManager = (*TestDBManager)(nil)

// SetupTestDB creates a migrated in-memory database. It uses a named
// in-memory database with cache=shared so that several connections see the
// same data, and caches it by the full test name, so every subtest starts
// from an empty database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()

	testDBCacheMu.Lock()
	if db, exists := testDBCache[testName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(testName)
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")

	if err := db.AutoMigrate(store.Models()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[testName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, testName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager using cartridge's testsupport
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	cfg := config.GetConfig()

	// SAFETY CHECK: Ensure we're in test environment
	if cfg.Environment != config.Test {
		t.Fatalf("CRITICAL: Tests must run in test environment! Current: %s. Set UTMLENS_ENV=test", cfg.Environment)
	}

	db := SetupTestDB(t)
	return NewTestDBManager(db), GetLogger()
}

// SetupTestStore returns a store over a fresh database with the default
// rules and mappings seeded.
func SetupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s := store.New(SetupTestDB(t), GetLogger())
	require.NoError(t, s.SeedDefaults(t.Context()))
	return s
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// FixedClock returns a clock stopped at the given UTC hour.
func FixedClock(year int, month time.Month, day, hour int) *timeframe.FixedTimeProvider {
	return &timeframe.FixedTimeProvider{At: time.Date(year, month, day, hour, 0, 0, 0, time.UTC)}
}

// NewTestServer builds a cartridge server over db without mounting routes.
func NewTestServer(t *testing.T, db *gorm.DB) *cartridge.Server {
	t.Helper()

	appConfig := config.GetConfig()
	appConfig.Environment = config.Test

	dir := t.TempDir()
	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = NewTestDBManager(db)
	cfg.StaticDirectory = dir
	cfg.StaticPrefix = appConfig.PublicAssetsUrlPrefix
	cfg.TemplatesDirectory = dir
	// API clients send no Sec-Fetch-Site header
	cfg.EnableSecFetchSite = false

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)
	return srv
}

// CreateMinimalTestApp creates a test Fiber app with the routes mounted by
// mount.
func CreateMinimalTestApp(t *testing.T, db *gorm.DB, mount func(*cartridge.Server)) *fiber.App {
	t.Helper()

	srv := NewTestServer(t, db)
	mount(srv)
	return srv.App()
}
