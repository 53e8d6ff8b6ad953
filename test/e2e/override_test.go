// ABOUTME: End-to-end tests for command ownership across the full stack.
// ABOUTME: Drives players, the admin API and the database through override and restore cycles.

package e2e_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/rokcore/internal/command"
	"github.com/2389/rokcore/internal/host"
	"github.com/2389/rokcore/internal/store"
)

const (
	aliceID = 76561198000000001
	bobID   = 76561198000000002
)

func TestE2E_OverrideAndRestoreNativeCommand(t *testing.T) {
	ts := StartTestServer(t)
	alice := ts.Connect(t, aliceID, "Alice")
	bob := ts.Connect(t, bobID, "Bob")

	// Native kill before any plugin
	AssertReply(t, alice.Say(ts, "/kill"), "You have been slain.")

	var loaded map[string]string
	status := ts.Post(t, "/plugins/essentials/load", nil, &loaded)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Essentials", loaded["loaded"])

	AssertReply(t, alice.Say(ts, "/kill Bob"), "Killed Bob.")
	assert.Equal(t, "You have been slain by Alice.", bob.Last())

	var snap host.CommandSnapshot
	ts.Get(t, "/commands", &snap)
	var kill *host.CommandInfo
	for i := range snap.Chat {
		if snap.Chat[i].Name == "kill" {
			kill = &snap.Chat[i]
		}
	}
	require.NotNil(t, kill, "kill should be a chat command")
	assert.Equal(t, "Essentials", kill.Owner)
	assert.True(t, kill.Restores)

	status = ts.Post(t, "/plugins/essentials/unload", nil, nil)
	require.Equal(t, http.StatusOK, status)

	// Restored engine command ignores the target
	bobReplies := bob.Count()
	AssertReply(t, alice.Say(ts, "/kill Bob"), "You have been slain.")
	assert.Equal(t, bobReplies, bob.Count(), "native kill should not reach Bob")

	overrides, err := ts.Store.ListOverrides("kill")
	require.NoError(t, err)
	kinds := make([]string, len(overrides))
	for i, o := range overrides {
		kinds[i] = o.Kind
	}
	assert.Equal(t, []string{string(command.OverrideReplacedNative), string(command.OverrideRestored)}, kinds)
}

func TestE2E_InvocationHistory(t *testing.T) {
	ts := StartTestServer(t)
	ts.Post(t, "/plugins/essentials/load", nil, nil)
	alice := ts.Connect(t, aliceID, "Alice")

	AssertReply(t, alice.Say(ts, "/sethome castle"), "Home 'castle' set.")
	AssertReply(t, alice.Say(ts, "/home castle"), "Teleporting to home 'castle'.")
	AssertReply(t, alice.Say(ts, "/home cave"), "You have no home named 'cave'. Your homes: castle")

	var body struct {
		Invocations []store.InvocationRecord `json:"invocations"`
	}
	status := ts.Get(t, "/invocations?plugin=Essentials&command=home&limit=10", &body)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Invocations, 2)
	assert.Equal(t, []string{"cave"}, body.Invocations[0].Args)
	assert.Equal(t, "76561198000000001", body.Invocations[0].CallerID)

	status = ts.Get(t, "/invocations?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestE2E_ConsoleOverHTTPAndWebsocket(t *testing.T) {
	ts := StartTestServer(t)

	var resp struct {
		Output string `json:"output"`
	}
	status := ts.Post(t, "/console", map[string]string{"line": "o.load essentials"}, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Loaded plugin Essentials", resp.Output)

	url := "ws" + strings.TrimPrefix(ts.Server.URL, "http") + "/console/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("o.plugins")))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"Essentials"`)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("o.unload essentials")))
	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "Unloaded plugin essentials", string(msg))

	var plugins struct {
		Loaded []host.PluginInfo `json:"loaded"`
	}
	ts.Get(t, "/plugins/", &plugins)
	for _, p := range plugins.Loaded {
		assert.NotEqual(t, "Essentials", p.Name)
	}
}

func TestE2E_PlayersCannotManagePlugins(t *testing.T) {
	ts := StartTestServer(t)
	alice := ts.Connect(t, aliceID, "Alice")

	AssertReply(t, alice.Say(ts, "/o.load essentials"), "You don't have permission to use this command")

	var plugins struct {
		Loaded []host.PluginInfo `json:"loaded"`
	}
	ts.Get(t, "/plugins/", &plugins)
	for _, p := range plugins.Loaded {
		assert.NotEqual(t, "Essentials", p.Name)
	}
}

func TestE2E_CorePluginCannotBeUnloaded(t *testing.T) {
	ts := StartTestServer(t)

	var errResp map[string]any
	status := ts.Post(t, "/plugins/"+strings.ReplaceAll(host.CorePluginName, " ", "%20")+"/unload", nil, &errResp)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "core_plugin", errResp["code"])

	status = ts.Post(t, "/plugins/nope/load", nil, &errResp)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestE2E_PlayersPersistAcrossRestart(t *testing.T) {
	ts := StartTestServer(t)
	ts.Connect(t, aliceID, "Alice")
	require.NoError(t, ts.Host.Save())

	records, err := ts.Store.LoadPlayers()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Alice", records[0].Name)
}
