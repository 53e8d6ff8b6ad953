// ABOUTME: Command invocation and override audit storage.
// ABOUTME: Implements the chat registry's Recorder and the queries behind the admin API.

package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/2389/rokcore/internal/command"
)

// InvocationRecord is a stored command invocation
type InvocationRecord struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Plugin    string        `json:"plugin"`
	Command   string        `json:"command"`
	CallerID  string        `json:"caller_id"`
	Args      []string      `json:"args"`
	Duration  time.Duration `json:"duration"`
	Fault     string        `json:"fault,omitempty"`
}

// InvocationQuery filters ListInvocations
type InvocationQuery struct {
	Plugin        string
	CommandPrefix string
	Limit         int
}

// OverrideRecord is a stored ownership change
type OverrideRecord struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	Plugin    string    `json:"plugin"`
	Previous  string    `json:"previous"`
	Kind      string    `json:"kind"`
}

const defaultQueryLimit = 50

// RecordInvocation stores inv under a new uuid
func (s *Store) RecordInvocation(inv command.Invocation) error {
	args := inv.Args
	if args == nil {
		args = []string{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to encode args: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO command_invocations (id, plugin_name, command, caller_id, args, duration_us, fault)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), inv.Plugin, inv.Command, inv.CallerID, string(encoded), inv.Duration.Microseconds(), inv.Fault)
	return err
}

// RecordOverride stores an ownership change
func (s *Store) RecordOverride(o command.Override) error {
	_, err := s.db.Exec(`
		INSERT INTO command_overrides (command, plugin_name, previous_owner, kind)
		VALUES (?, ?, ?, ?)
	`, o.Command, o.Plugin, o.Previous, string(o.Kind))
	return err
}

// ListInvocations returns the newest invocations first
func (s *Store) ListInvocations(q InvocationQuery) ([]*InvocationRecord, error) {
	query := `SELECT id, timestamp, plugin_name, command, caller_id, args, duration_us, fault
	          FROM command_invocations WHERE 1=1`
	args := []any{}

	if q.Plugin != "" {
		query += " AND plugin_name = ?"
		args = append(args, q.Plugin)
	}
	if q.CommandPrefix != "" {
		query += ` AND command LIKE ? ESCAPE '\'`
		args = append(args, likePrefix(q.CommandPrefix))
	}
	if q.Limit <= 0 {
		q.Limit = defaultQueryLimit
	}
	query += " ORDER BY timestamp DESC, rowid DESC LIMIT ?"
	args = append(args, q.Limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*InvocationRecord
	for rows.Next() {
		rec := &InvocationRecord{}
		var timestamp, encoded string
		var micros int64
		if err := rows.Scan(&rec.ID, &timestamp, &rec.Plugin, &rec.Command, &rec.CallerID, &encoded, &micros, &rec.Fault); err != nil {
			return nil, err
		}
		rec.Timestamp = parseTimestamp(timestamp)
		rec.Duration = time.Duration(micros) * time.Microsecond
		if err := json.Unmarshal([]byte(encoded), &rec.Args); err != nil {
			return nil, fmt.Errorf("invocation %s has malformed args: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountInvocations returns how many invocations plugin has run; "" counts all
func (s *Store) CountInvocations(plugin string) (int, error) {
	var count int
	var err error
	if plugin == "" {
		err = s.db.QueryRow("SELECT COUNT(*) FROM command_invocations").Scan(&count)
	} else {
		err = s.db.QueryRow("SELECT COUNT(*) FROM command_invocations WHERE plugin_name = ?", plugin).Scan(&count)
	}
	return count, err
}

// ListOverrides returns ownership changes for name, oldest first; "" lists all
func (s *Store) ListOverrides(name string) ([]*OverrideRecord, error) {
	query := "SELECT id, timestamp, command, plugin_name, previous_owner, kind FROM command_overrides"
	args := []any{}
	if name != "" {
		query += " WHERE command = ?"
		args = append(args, command.Normalize(name))
	}
	query += " ORDER BY id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*OverrideRecord
	for rows.Next() {
		rec := &OverrideRecord{}
		var timestamp string
		if err := rows.Scan(&rec.ID, &timestamp, &rec.Command, &rec.Plugin, &rec.Previous, &rec.Kind); err != nil {
			return nil, err
		}
		rec.Timestamp = parseTimestamp(timestamp)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func parseTimestamp(value string) time.Time {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	t, _ := time.Parse(timestampLayout, value)
	return t
}
