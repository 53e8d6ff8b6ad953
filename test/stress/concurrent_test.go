// ABOUTME: Stress tests for concurrent host access.
// ABOUTME: Races plugin load/unload cycles against player commands and checks ownership settles back to native.

package stress

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/2389/rokcore/internal/host"
	"github.com/2389/rokcore/internal/logging"
	"github.com/2389/rokcore/internal/store"
	_ "github.com/2389/rokcore/plugins/essentials" // Register essentials plugin
)

func newHost(t *testing.T, s *store.Store) *host.Host {
	t.Helper()
	opts := host.Options{Logger: logging.NewDisabledLogger()}
	if s != nil {
		opts.Store = s
	}
	h, err := host.New(opts)
	if err != nil {
		t.Fatalf("host.New() error = %v", err)
	}
	h.Initialize()
	return h
}

// TestConcurrentLoadUnloadWithCommands cycles the essentials plugin while
// players hammer the command it overrides.
func TestConcurrentLoadUnloadWithCommands(t *testing.T) {
	h := newHost(t, nil)

	numPlayers := 10
	commandsPerPlayer := 100
	cycles := 50

	var replies int64
	for i := 0; i < numPlayers; i++ {
		id := uint64(76561198000000000 + i)
		if _, err := h.Connect(id, fmt.Sprintf("Player%d", i), "127.0.0.1", func(string) {
			atomic.AddInt64(&replies, 1)
		}); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < numPlayers; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			for j := 0; j < commandsPerPlayer; j++ {
				h.ChatMessage(id, "/kill")
			}
		}(uint64(76561198000000000 + i))
	}

	var loadErrors int32
	wg.Add(1)
	go func() {
		defer wg.Done()
		for c := 0; c < cycles; c++ {
			if _, err := h.LoadPlugin("essentials"); err != nil {
				atomic.AddInt32(&loadErrors, 1)
			}
			if err := h.UnloadPlugin("essentials"); err != nil {
				atomic.AddInt32(&loadErrors, 1)
			}
		}
	}()

	wg.Wait()

	if loadErrors > 0 {
		t.Errorf("Expected 0 load/unload errors, got %d", loadErrors)
	}
	if got := atomic.LoadInt64(&replies); got != int64(numPlayers*commandsPerPlayer) {
		t.Errorf("Expected %d replies, got %d", numPlayers*commandsPerPlayer, got)
	}

	// Every cycle ended with an unload, so the engine owns kill again
	snap := h.Commands()
	for _, c := range snap.Chat {
		if c.Name == "kill" {
			t.Errorf("kill still registered as a chat command by %s", c.Owner)
		}
	}
	found := false
	for _, name := range snap.Native {
		if name == "kill" {
			found = true
		}
	}
	if !found {
		t.Error("native kill command was not restored")
	}
}

// TestConcurrentConsoleAndAdminReads mixes console lines with read-only snapshots
func TestConcurrentConsoleAndAdminReads(t *testing.T) {
	h := newHost(t, nil)

	var wg sync.WaitGroup
	var emptyOutputs int32
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if h.Console("o.version") == "" {
					atomic.AddInt32(&emptyOutputs, 1)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = h.Commands()
				_ = h.LoadedPlugins()
			}
		}()
	}
	wg.Wait()

	if emptyOutputs > 0 {
		t.Errorf("Expected every console call to produce output, %d were empty", emptyOutputs)
	}
}

// TestConcurrentInvocationRecording checks the store keeps every invocation
// when players run commands from many goroutines.
func TestConcurrentInvocationRecording(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "stress.db"), nil)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	h := newHost(t, s)
	if _, err := h.LoadPlugin("essentials"); err != nil {
		t.Fatalf("LoadPlugin() error = %v", err)
	}

	numPlayers := 8
	perPlayer := 25
	for i := 0; i < numPlayers; i++ {
		if _, err := h.Connect(uint64(76561198000000100+i), fmt.Sprintf("Player%d", i), "127.0.0.1", nil); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < numPlayers; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			for j := 0; j < perPlayer; j++ {
				h.ChatMessage(id, fmt.Sprintf("/sethome h%d", j))
			}
		}(uint64(76561198000000100 + i))
	}
	wg.Wait()

	count, err := s.CountInvocations("Essentials")
	if err != nil {
		t.Fatalf("CountInvocations() error = %v", err)
	}
	if count != numPlayers*perPlayer {
		t.Errorf("Expected %d invocations, got %d", numPlayers*perPlayer, count)
	}
}
