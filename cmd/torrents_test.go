package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/trctl/transmission"
)

// fakeDaemon answers RPC calls after enforcing the session handshake.
type fakeDaemon struct {
	mu      sync.Mutex
	methods []string
	args    []map[string]any
}

func (d *fakeDaemon) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(transmission.SessionIDHeader) != "abc" {
		w.Header().Set(transmission.SessionIDHeader, "abc")
		w.WriteHeader(http.StatusConflict)
		return
	}

	var req struct {
		Method    string         `json:"method"`
		Arguments map[string]any `json:"arguments"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	d.mu.Lock()
	d.methods = append(d.methods, req.Method)
	d.args = append(d.args, req.Arguments)
	d.mu.Unlock()

	args := map[string]any{}
	switch req.Method {
	case transmission.MethodTorrentGet:
		torrents := []any{
			map[string]any{"id": 1, "name": "debian.iso", "percentDone": 1, "totalSize": 658505728},
			map[string]any{"id": 2, "name": "arch.iso", "percentDone": 0.25, "totalSize": 1181116006},
		}
		if _, ok := req.Arguments["ids"]; ok {
			torrents = torrents[:1]
		}
		args["torrents"] = torrents
	case transmission.MethodTorrentAdd:
		args["torrent-added"] = map[string]any{"id": 3, "name": "fedora.iso"}
	}

	_ = json.NewEncoder(w).Encode(map[string]any{"result": "success", "arguments": args})
}

func runCLI(t *testing.T, daemon http.Handler, args ...string) (string, error) {
	t.Helper()

	server := httptest.NewServer(daemon)
	t.Cleanup(server.Close)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "transmission:\n  url: " + server.URL + "/transmission/rpc\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// Flags are package globals; reset them between runs
	filterExpr, preset, jsonOutput, location, deleteData, noConfirm = "", "", false, "", false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--config", path))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestListCommand(t *testing.T) {
	daemon := &fakeDaemon{}

	out, err := runCLI(t, daemon, "list", "--filter", "percentDone < 1", "--json")
	require.NoError(t, err)

	var torrents []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &torrents))
	require.Len(t, torrents, 1)
	assert.Equal(t, "arch.iso", torrents[0]["name"])
	assert.Equal(t, []string{transmission.MethodTorrentGet}, daemon.methods)
}

func TestListCommandTable(t *testing.T) {
	out, err := runCLI(t, &fakeDaemon{}, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 torrent(s)")
	assert.Contains(t, out, "debian.iso")
	assert.Contains(t, out, "659 MB")
	assert.Contains(t, out, "25.0%")
}

func TestGetCommand(t *testing.T) {
	daemon := &fakeDaemon{}

	out, err := runCLI(t, daemon, "get", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "name: debian.iso")
	assert.Contains(t, out, "id: 1")
	assert.Equal(t, []any{float64(1)}, daemon.args[0]["ids"])
}

func TestMoveCommand(t *testing.T) {
	daemon := &fakeDaemon{}

	_, err := runCLI(t, daemon, "move", "--location", "/data/done", "1", "abcdef")
	require.NoError(t, err)
	require.Equal(t, []string{transmission.MethodTorrentSetLocation}, daemon.methods)
	assert.Equal(t, map[string]any{
		"ids":      []any{float64(1), "abcdef"},
		"location": "/data/done",
		"move":     true,
	}, daemon.args[0])
}

func TestAddCommand(t *testing.T) {
	out, err := runCLI(t, &fakeDaemon{}, "add", "magnet:?xt=urn:btih:abc")
	require.NoError(t, err)
	assert.Contains(t, out, "Added fedora.iso (ID: 3)")
}

func TestRemoveCommand(t *testing.T) {
	daemon := &fakeDaemon{}

	_, err := runCLI(t, daemon, "remove", "1", "--delete-data", "--no-confirm")
	require.NoError(t, err)
	require.Equal(t, []string{transmission.MethodTorrentGet, transmission.MethodTorrentRemove}, daemon.methods)
	assert.Equal(t, true, daemon.args[1]["delete-local-data"])
}

func TestRemoveCommandCancelled(t *testing.T) {
	daemon := &fakeDaemon{}

	rootCmd.SetIn(strings.NewReader("n\n"))
	defer rootCmd.SetIn(nil)

	out, err := runCLI(t, daemon, "remove", "1", "--delete-data")
	require.NoError(t, err)
	assert.Contains(t, out, "DELETE its data?")
	assert.Equal(t, []string{transmission.MethodTorrentGet}, daemon.methods)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestFormatHelpers(t *testing.T) {
	torrent := transmission.Torrent{
		"id":           json.Number("4"),
		"percentDone":  json.Number("0.5"),
		"rateDownload": json.Number("2048"),
	}

	assert.Equal(t, "4", formatInt(torrent, "id"))
	assert.Equal(t, "50.0%", formatPercent(torrent))
	assert.Equal(t, "2.0 kB/s", formatBytes(torrent, "rateDownload", "/s"))
	assert.Equal(t, "-", formatBytes(torrent, "totalSize", ""))
	assert.Equal(t, "-", formatAdded(torrent))
}
