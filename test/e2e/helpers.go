// ABOUTME: Test helpers for end-to-end testing.
// ABOUTME: Starts a full host with a database and admin API, and connects scripted players.

package e2e_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/2389/rokcore/internal/admin"
	"github.com/2389/rokcore/internal/host"
	"github.com/2389/rokcore/internal/logging"
	"github.com/2389/rokcore/internal/store"
	_ "github.com/2389/rokcore/plugins/essentials" // Register essentials plugin
)

// TestServer wraps a running host, its store and the admin API
type TestServer struct {
	Server *httptest.Server
	Host   *host.Host
	Store  *store.Store
}

// StartTestServer creates a host backed by a fresh database and serves the admin API
func StartTestServer(t *testing.T) *TestServer {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "e2e.db"), nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	h, err := host.New(host.Options{
		Restricted: []string{"shutdown"},
		Logger:     logging.NewDisabledLogger(),
		Store:      s,
	})
	if err != nil {
		s.Close()
		t.Fatalf("failed to create host: %v", err)
	}
	h.Initialize()

	srv := httptest.NewServer(admin.NewHandlers(h, s, nil).Router())
	t.Cleanup(func() {
		srv.Close()
		h.Shutdown()
		s.Close()
	})

	return &TestServer{Server: srv, Host: h, Store: s}
}

// Client is a connected player whose replies are captured
type Client struct {
	ID   uint64
	Name string

	mu      sync.Mutex
	replies []string
}

// Connect joins a player to the host
func (ts *TestServer) Connect(t *testing.T, id uint64, name string) *Client {
	t.Helper()
	c := &Client{ID: id, Name: name}
	if _, err := ts.Host.Connect(id, name, "127.0.0.1", c.receive); err != nil {
		t.Fatalf("failed to connect %s: %v", name, err)
	}
	return c
}

func (c *Client) receive(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, msg)
}

// Say runs a chat line as this player and returns the replies it produced
func (c *Client) Say(ts *TestServer, line string) []string {
	c.mu.Lock()
	start := len(c.replies)
	c.mu.Unlock()

	ts.Host.ChatMessage(c.ID, line)

	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.replies[start:]...)
}

// Last returns the most recent reply, or "" when none arrived
func (c *Client) Last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.replies) == 0 {
		return ""
	}
	return c.replies[len(c.replies)-1]
}

// Count returns how many replies the player has received
func (c *Client) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.replies)
}

// Post sends a JSON body (or none) and decodes the JSON response into out
func (ts *TestServer) Post(t *testing.T, path string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	resp, err := http.Post(ts.Server.URL+path, "application/json", reader)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	decode(t, resp, out)
	return resp.StatusCode
}

// Get fetches path and decodes the JSON response into out
func (ts *TestServer) Get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(ts.Server.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	decode(t, resp, out)
	return resp.StatusCode
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	if out == nil {
		return
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("failed to decode %s: %v", data, err)
	}
}

// AssertReply fails unless got contains want
func AssertReply(t *testing.T, got []string, want string) {
	t.Helper()
	for _, r := range got {
		if r == want {
			return
		}
	}
	t.Errorf("replies %s do not contain %q", fmt.Sprint(got), want)
}
