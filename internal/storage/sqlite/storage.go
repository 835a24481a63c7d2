package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/meng-clb/paste/internal/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Storage implements the clip and presence stores over SQLite.
// It also owns the live-query machinery: every mutation wakes the
// watchers of the affected user, which requery and emit a fresh snapshot.
type Storage struct {
	db *sql.DB

	// now выдаёт «серверное» время создания записей; подменяется в тестах
	now func() time.Time

	mu            sync.Mutex
	clipSignals   map[string]map[chan struct{}]struct{}
	deviceSignals map[string]map[chan struct{}]struct{}
}

// Compile-time checks
var (
	_ storage.ClipStore     = (*Storage)(nil)
	_ storage.PresenceStore = (*Storage)(nil)
)

// New creates a new SQLite storage instance.
// dbPath is the path to the SQLite database file.
// Use ":memory:" for in-memory database (useful for testing).
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite с WAL mode поддерживает несколько читателей, но одного писателя
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Storage{
		db:            db,
		now:           time.Now,
		clipSignals:   make(map[string]map[chan struct{}]struct{}),
		deviceSignals: make(map[string]map[chan struct{}]struct{}),
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// runMigrations выполняет миграции из embedded FS
func (s *Storage) runMigrations() error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	goose.SetBaseFS(embedMigrations)

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}

	return nil
}

// DB returns the underlying database connection for testing purposes
func (s *Storage) DB() *sql.DB {
	return s.db
}

// registerSignal добавляет канал пробуждения для watcher-а данного пользователя
func registerSignal(mu *sync.Mutex, signals map[string]map[chan struct{}]struct{}, userID string) chan struct{} {
	sig := make(chan struct{}, 1)
	mu.Lock()
	defer mu.Unlock()
	set, ok := signals[userID]
	if !ok {
		set = make(map[chan struct{}]struct{})
		signals[userID] = set
	}
	set[sig] = struct{}{}
	return sig
}

// unregisterSignal отключает канал; дальнейшие мутации его не будят
func unregisterSignal(mu *sync.Mutex, signals map[string]map[chan struct{}]struct{}, userID string, sig chan struct{}) {
	mu.Lock()
	defer mu.Unlock()
	if set, ok := signals[userID]; ok {
		delete(set, sig)
		if len(set) == 0 {
			delete(signals, userID)
		}
	}
}

// notify будит всех watcher-ов пользователя; отправка неблокирующая,
// повторные сигналы схлопываются в один
func notify(mu *sync.Mutex, signals map[string]map[chan struct{}]struct{}, userID string) {
	mu.Lock()
	defer mu.Unlock()
	for sig := range signals[userID] {
		select {
		case sig <- struct{}{}:
		default:
		}
	}
}
