// ABOUTME: Tests for SQLite store initialization and persistence.
// ABOUTME: Uses a temporary database per test.

package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/2389/rokcore/internal/command"
	"github.com/2389/rokcore/internal/players"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "rokcore.db"), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore_CreatesTables(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"schema_migrations", "command_invocations", "command_overrides", "players"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	version, err := s.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("SchemaVersion() = %d, want %d", version, CurrentSchemaVersion)
	}
}

func TestNewStore_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rokcore.db")
	s, err := New(path, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.SavePlayers([]players.Record{{ID: 76561198000000001, Name: "Alice"}}); err != nil {
		t.Fatalf("SavePlayers() error = %v", err)
	}
	s.Close()

	s, err = New(path, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	var applied int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatal(err)
	}
	if applied != len(migrations) {
		t.Errorf("applied migrations = %d, want %d", applied, len(migrations))
	}
	records, err := s.LoadPlayers()
	if err != nil {
		t.Fatalf("LoadPlayers() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("LoadPlayers() returned %d records, want 1", len(records))
	}
}

func TestRecordAndListInvocations(t *testing.T) {
	s := newTestStore(t)

	invocations := []command.Invocation{
		{Plugin: "Essentials", Command: "home", CallerID: "76561198000000001", Args: []string{"base"}, Duration: 3 * time.Millisecond},
		{Plugin: "Essentials", Command: "sethome", CallerID: "76561198000000001"},
		{Plugin: "Assistant", Command: "ask", CallerID: "9999999999", Args: []string{"hello world"}, Fault: "boom"},
	}
	for _, inv := range invocations {
		if err := s.RecordInvocation(inv); err != nil {
			t.Fatalf("RecordInvocation() error = %v", err)
		}
	}

	all, err := s.ListInvocations(InvocationQuery{})
	if err != nil {
		t.Fatalf("ListInvocations() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d invocations, want 3", len(all))
	}
	if all[0].Command != "ask" {
		t.Errorf("newest invocation = %q, want ask", all[0].Command)
	}
	if all[0].Fault != "boom" || all[0].Args[0] != "hello world" {
		t.Errorf("unexpected record %+v", all[0])
	}
	if all[2].Duration != 3*time.Millisecond {
		t.Errorf("Duration = %v, want 3ms", all[2].Duration)
	}
	if len(all[1].Args) != 0 {
		t.Errorf("nil args should load as empty, got %v", all[1].Args)
	}
	if all[0].ID == "" || all[0].ID == all[1].ID {
		t.Errorf("invocation ids should be unique: %q %q", all[0].ID, all[1].ID)
	}

	essentials, err := s.ListInvocations(InvocationQuery{Plugin: "Essentials", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(essentials) != 1 || essentials[0].Plugin != "Essentials" {
		t.Errorf("plugin filter returned %+v", essentials)
	}

	homes, err := s.ListInvocations(InvocationQuery{CommandPrefix: "home"})
	if err != nil {
		t.Fatal(err)
	}
	if len(homes) != 1 {
		t.Errorf("prefix filter returned %d records, want 1", len(homes))
	}

	count, err := s.CountInvocations("Essentials")
	if err != nil || count != 2 {
		t.Errorf("CountInvocations() = %d, %v; want 2", count, err)
	}
}

func TestRecordAndListOverrides(t *testing.T) {
	s := newTestStore(t)

	overrides := []command.Override{
		{Command: "kill", Plugin: "Essentials", Previous: command.NativeGameName, Kind: command.OverrideReplacedNative},
		{Command: "kill", Plugin: command.NativeGameName, Previous: "Essentials", Kind: command.OverrideRestored},
		{Command: "version", Plugin: "Alpha", Kind: command.OverrideRejected},
	}
	for _, o := range overrides {
		if err := s.RecordOverride(o); err != nil {
			t.Fatalf("RecordOverride() error = %v", err)
		}
	}

	kills, err := s.ListOverrides("KILL")
	if err != nil {
		t.Fatalf("ListOverrides() error = %v", err)
	}
	if len(kills) != 2 {
		t.Fatalf("got %d overrides, want 2", len(kills))
	}
	if kills[0].Kind != string(command.OverrideReplacedNative) || kills[1].Kind != string(command.OverrideRestored) {
		t.Errorf("overrides out of order: %+v", kills)
	}

	all, err := s.ListOverrides("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("got %d overrides, want 3", len(all))
	}
}

func TestSavePlayersUpserts(t *testing.T) {
	s := newTestStore(t)

	if err := s.SavePlayers([]players.Record{{ID: 76561198000000002, Name: "Bob"}, {ID: 76561198000000001, Name: "Alice"}}); err != nil {
		t.Fatalf("SavePlayers() error = %v", err)
	}
	if err := s.SavePlayers([]players.Record{{ID: 76561198000000002, Name: "Robert"}}); err != nil {
		t.Fatalf("SavePlayers() error = %v", err)
	}

	records, err := s.LoadPlayers()
	if err != nil {
		t.Fatalf("LoadPlayers() error = %v", err)
	}
	want := []players.Record{{ID: 76561198000000001, Name: "Alice"}, {ID: 76561198000000002, Name: "Robert"}}
	if len(records) != len(want) {
		t.Fatalf("LoadPlayers() = %+v, want %+v", records, want)
	}
	for i := range want {
		if records[i] != want[i] {
			t.Errorf("records[%d] = %+v, want %+v", i, records[i], want[i])
		}
	}
}
