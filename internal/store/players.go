// ABOUTME: Persistence for known players.
// ABOUTME: Saved on server save and shutdown, loaded at startup.

package store

import (
	"fmt"
	"strconv"

	"github.com/2389/rokcore/internal/players"
)

// SavePlayers upserts every record in one transaction
func (s *Store) SavePlayers(records []players.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO players (id, name, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(strconv.FormatUint(rec.ID, 10), rec.Name); err != nil {
			return fmt.Errorf("failed to save player %d: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// LoadPlayers returns every saved player ordered by id
func (s *Store) LoadPlayers() ([]players.Record, error) {
	rows, err := s.db.Query("SELECT id, name FROM players ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []players.Record
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		parsed, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("stored player id %q is not numeric: %w", id, err)
		}
		records = append(records, players.Record{ID: parsed, Name: name})
	}
	return records, rows.Err()
}
