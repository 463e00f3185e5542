package ledger

import (
	"database/sql"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Ledger is the detection record store plus its transactional outbox.
type Ledger struct {
	DB *sql.DB
}

// New opens the ledger database and verifies the connection.
func New(dsn string) (*Ledger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		return nil, err
	}

	return &Ledger{DB: db}, nil
}

// Init creates the required tables if they don't exist. The captured_at
// column is text on purpose: rows written by older deployments may
// carry timestamps the current layout cannot parse, and aggregation
// skips those instead of failing.
func (l *Ledger) Init() error {
	createTables := `
	CREATE TABLE IF NOT EXISTS detections (
		id TEXT PRIMARY KEY,
		captured_at TEXT NOT NULL,
		result BOOLEAN NOT NULL,
		labels TEXT NOT NULL,
		photo_link TEXT NOT NULL DEFAULT '',
		deterrent_fired BOOLEAN NOT NULL DEFAULT FALSE,
		video_link TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		processed_at TIMESTAMP,
		FOREIGN KEY (event_id) REFERENCES detections(id)
	);
	`

	_, err := l.DB.Exec(createTables)
	return err
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.DB.Close()
}
