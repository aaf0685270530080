package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// openDB opens the state database with WAL mode and a busy timeout so a
// credit watch and a generation in another process can share the file.
// A single connection serializes writes from this process.
func openDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping state db: %w", err)
	}
	return db, nil
}
