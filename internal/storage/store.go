package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vesal/haggler/internal/agent"
	"github.com/vesal/haggler/internal/market"
)

// StoredSession is a persisted negotiation session. The pipeline itself is
// stateless; this registry maps a session id to the caller-owned history so
// a driver can resume conversations between runs.
type StoredSession struct {
	ID        string
	Context   string
	Goal      string
	Budget    float64
	Turns     []agent.Turn
	Ended     bool
	UpdatedAt time.Time
}

// StoredSearch is a persisted search and its listing results.
type StoredSearch struct {
	ID        int64
	Query     string
	CreatedAt time.Time
	Listings  []market.Listing
}

// SessionStore defines the persistence interface for the driver layer.
type SessionStore interface {
	GetSession(id string) (*StoredSession, error)
	SaveSession(session *StoredSession) error
	DeleteSession(id string) error
	ListSessions() ([]StoredSession, error)

	// Saved searches with their listing results
	SaveSearch(query string, listings []market.Listing) (int64, error)
	GetSearch(id int64) (*StoredSearch, error)
	LatestSearch() (*StoredSearch, error)

	// Completion cache (llm.CompletionCache)
	GetCompletion(key string) (string, bool, error)
	SetCompletion(key, model, response string) error

	// Encrypted credential storage
	SetCredential(name, value string) error
	GetCredential(name string) (string, error)

	Close() error
}

// SQLiteStore implements SessionStore using SQLite with encrypted
// credentials.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey []byte
}

// NewSQLiteStore creates a new SQLite-based store. The encryptionKey is
// used for credential values only.
func NewSQLiteStore(dbPath string, encryptionKey []byte) (*SQLiteStore, error) {
	// WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set file permissions (only works on creation)
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		// Ignore error if file doesn't exist yet
	}

	store := &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			context TEXT NOT NULL,
			goal TEXT NOT NULL,
			budget REAL NOT NULL,
			turns TEXT NOT NULL,
			ended INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS searches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			listings TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS completion_cache (
			key TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			response TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			name TEXT PRIMARY KEY,
			encrypted_value TEXT NOT NULL
		)`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// GetSession retrieves a session by id. Returns nil when not found.
func (s *SQLiteStore) GetSession(id string) (*StoredSession, error) {
	var session StoredSession
	var turnsJSON string
	err := s.db.QueryRow(
		"SELECT id, context, goal, budget, turns, ended, updated_at FROM sessions WHERE id = ?", id,
	).Scan(&session.ID, &session.Context, &session.Goal, &session.Budget, &turnsJSON, &session.Ended, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if err := json.Unmarshal([]byte(turnsJSON), &session.Turns); err != nil {
		return nil, fmt.Errorf("failed to decode session turns: %w", err)
	}
	return &session, nil
}

// SaveSession inserts or updates a session.
func (s *SQLiteStore) SaveSession(session *StoredSession) error {
	turnsJSON, err := json.Marshal(session.Turns)
	if err != nil {
		return fmt.Errorf("failed to encode session turns: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO sessions (id, context, goal, budget, turns, ended, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			context = excluded.context,
			goal = excluded.goal,
			budget = excluded.budget,
			turns = excluded.turns,
			ended = excluded.ended,
			updated_at = excluded.updated_at`,
		session.ID, session.Context, session.Goal, session.Budget, string(turnsJSON), session.Ended, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// DeleteSession removes a session.
func (s *SQLiteStore) DeleteSession(id string) error {
	if _, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListSessions returns all sessions, most recently updated first.
func (s *SQLiteStore) ListSessions() ([]StoredSession, error) {
	rows, err := s.db.Query("SELECT id, context, goal, budget, turns, ended, updated_at FROM sessions ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []StoredSession
	for rows.Next() {
		var session StoredSession
		var turnsJSON string
		if err := rows.Scan(&session.ID, &session.Context, &session.Goal, &session.Budget, &turnsJSON, &session.Ended, &session.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if err := json.Unmarshal([]byte(turnsJSON), &session.Turns); err != nil {
			return nil, fmt.Errorf("failed to decode session turns: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// SaveSearch persists a search query and its listing results, returning the
// search id.
func (s *SQLiteStore) SaveSearch(query string, listings []market.Listing) (int64, error) {
	listingsJSON, err := json.Marshal(listings)
	if err != nil {
		return 0, fmt.Errorf("failed to encode listings: %w", err)
	}
	res, err := s.db.Exec("INSERT INTO searches (query, listings) VALUES (?, ?)", query, string(listingsJSON))
	if err != nil {
		return 0, fmt.Errorf("failed to save search: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) scanSearch(row *sql.Row) (*StoredSearch, error) {
	var search StoredSearch
	var listingsJSON string
	err := row.Scan(&search.ID, &search.Query, &listingsJSON, &search.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get search: %w", err)
	}
	if err := json.Unmarshal([]byte(listingsJSON), &search.Listings); err != nil {
		return nil, fmt.Errorf("failed to decode search listings: %w", err)
	}
	return &search, nil
}

// GetSearch retrieves a saved search by id. Returns nil when not found.
func (s *SQLiteStore) GetSearch(id int64) (*StoredSearch, error) {
	row := s.db.QueryRow("SELECT id, query, listings, created_at FROM searches WHERE id = ?", id)
	return s.scanSearch(row)
}

// LatestSearch retrieves the most recent saved search. Returns nil when the
// table is empty.
func (s *SQLiteStore) LatestSearch() (*StoredSearch, error) {
	row := s.db.QueryRow("SELECT id, query, listings, created_at FROM searches ORDER BY id DESC LIMIT 1")
	return s.scanSearch(row)
}

// GetCompletion retrieves a cached completion by key.
func (s *SQLiteStore) GetCompletion(key string) (string, bool, error) {
	var response string
	err := s.db.QueryRow("SELECT response FROM completion_cache WHERE key = ?", key).Scan(&response)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cached completion: %w", err)
	}
	return response, true, nil
}

// SetCompletion stores a completion under the given key.
func (s *SQLiteStore) SetCompletion(key, model, response string) error {
	_, err := s.db.Exec(`
		INSERT INTO completion_cache (key, model, response) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET model = excluded.model, response = excluded.response`,
		key, model, response,
	)
	if err != nil {
		return fmt.Errorf("failed to cache completion: %w", err)
	}
	return nil
}

// SetCredential stores a credential value encrypted with the store key.
func (s *SQLiteStore) SetCredential(name, value string) error {
	encrypted, err := Encrypt([]byte(value), s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO credentials (name, encrypted_value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET encrypted_value = excluded.encrypted_value`,
		name, encrypted,
	)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// GetCredential retrieves and decrypts a credential. Returns an empty
// string when not found.
func (s *SQLiteStore) GetCredential(name string) (string, error) {
	var encrypted string
	err := s.db.QueryRow("SELECT encrypted_value FROM credentials WHERE name = ?", name).Scan(&encrypted)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get credential: %w", err)
	}
	plaintext, err := Decrypt(encrypted, s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}
	return string(plaintext), nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ SessionStore = (*SQLiteStore)(nil)
