package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection with pooling
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool manages database connection pooling
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool creates a new database connection pool
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"max_lifetime_seconds": cp.maxLifetime.Seconds(),
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
	}
}

// NewDB creates a new database connection with optimized pooling
func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "alignator.db")

	// Connection parameters in the go-sqlite3 driver's DSN form.
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pool := NewConnectionPool(db, 25, 5, 5*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized with connection pooling",
		"path", dbPath,
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns,
		"max_lifetime", pool.maxLifetime)

	return database, nil
}

// migrate creates the necessary tables
func (db *DB) migrate() error {
	queries := []string{
		// Members table. A member row is scoped to a congressional
		// session: the same bioguide id can appear in several sessions.
		`CREATE TABLE IF NOT EXISTS members (
			id TEXT NOT NULL,
			session INTEGER NOT NULL,
			chamber TEXT NOT NULL,
			name TEXT NOT NULL,
			party TEXT NOT NULL,
			state TEXT NOT NULL,
			district TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (id, session)
		)`,

		// Bills table
		`CREATE TABLE IF NOT EXISTS bills (
			id TEXT PRIMARY KEY,
			session INTEGER NOT NULL,
			bill_type TEXT NOT NULL,
			bill_number INTEGER NOT NULL,
			title TEXT,
			sponsor_id TEXT,
			summary TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		// Full bill texts, stored separately from the bill metadata
		// because they are large and only the analyzer reads them.
		`CREATE TABLE IF NOT EXISTS bill_texts (
			bill_id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (bill_id) REFERENCES bills(id)
		)`,

		// Individual member positions on recorded votes
		`CREATE TABLE IF NOT EXISTS member_votes (
			vote_id TEXT NOT NULL,
			member_id TEXT NOT NULL,
			position TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (vote_id, member_id)
		)`,

		// Analysis results are append-only. Every run inserts a new row;
		// readers take the newest row per member and session.
		`CREATE TABLE IF NOT EXISTS alignment_analysis (
			id TEXT PRIMARY KEY,
			member_id TEXT NOT NULL,
			session INTEGER NOT NULL,
			alignment_score REAL NOT NULL,
			ideology TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Indexes for performance
		`CREATE INDEX IF NOT EXISTS idx_members_session ON members(session)`,
		`CREATE INDEX IF NOT EXISTS idx_bills_sponsor ON bills(sponsor_id, session)`,
		`CREATE INDEX IF NOT EXISTS idx_member_votes_member ON member_votes(member_id)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_member ON alignment_analysis(member_id, session, created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements initializes frequently used prepared statements
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"insert_member": `INSERT INTO members (id, session, chamber, name, party, state, district, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id, session) DO UPDATE SET
			chamber = excluded.chamber,
			name = excluded.name,
			party = excluded.party,
			state = excluded.state,
			district = excluded.district,
			updated_at = excluded.updated_at`,

		"insert_bill": `INSERT INTO bills (id, session, bill_type, bill_number, title, sponsor_id, summary, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			sponsor_id = excluded.sponsor_id,
			summary = excluded.summary,
			updated_at = excluded.updated_at`,

		"insert_bill_text": `INSERT INTO bill_texts (bill_id, text, created_at)
			VALUES (?, ?, ?) ON CONFLICT(bill_id) DO UPDATE SET
			text = excluded.text`,

		"insert_member_vote": `INSERT INTO member_votes (vote_id, member_id, position, created_at)
			VALUES (?, ?, ?, ?) ON CONFLICT(vote_id, member_id) DO UPDATE SET
			position = excluded.position`,

		"insert_analysis": `INSERT INTO alignment_analysis (id, member_id, session, alignment_score, ideology, payload, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,

		"get_bill_text": `SELECT text FROM bill_texts WHERE bill_id = ?`,

		"get_latest_analysis": `SELECT payload FROM alignment_analysis
			WHERE member_id = ? AND session = ?
			ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt

		slog.Debug("Prepared statement initialized", "name", name)
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the database connection and prepared statements
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}

	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
