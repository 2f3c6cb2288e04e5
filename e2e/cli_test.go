package e2e_test

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/partyroom/internal/api/response"
	"github.com/mcoot/partyroom/internal/factory"
	"github.com/mcoot/partyroom/internal/model"
)

// cliRunner runs the partyctl binary as one player, with its own token file
type cliRunner struct {
	binaryPath string
	serverURL  string
	tokenFile  string
}

// buildCLI compiles partyctl once per test
func buildCLI(t *testing.T) string {
	t.Helper()

	projectRoot := findProjectRoot(t)
	binaryPath := filepath.Join(t.TempDir(), "partyctl")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/partyctl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))
	return binaryPath
}

func newCLIRunner(t *testing.T, binaryPath, serverURL string) *cliRunner {
	t.Helper()

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
		tokenFile:  filepath.Join(t.TempDir(), "token"),
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// runJSON runs a command that must succeed and decodes its output into v
func (r *cliRunner) runJSON(t *testing.T, v any, args ...string) {
	t.Helper()

	output, err := r.run(args...)
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), v), "output: %s", output)
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	app, err := factory.New(factory.Config{})
	require.NoError(t, err)

	server := httptest.NewServer(app.Router(""))
	t.Cleanup(func() {
		server.Close()
		_ = app.Close()
	})
	return server
}

// Tests

func TestCLI(t *testing.T) {
	server := startTestServer(t)
	binary := buildCLI(t)

	t.Run("health", func(t *testing.T) {
		cli := newCLIRunner(t, binary, server.URL)

		var resp struct {
			Status string `json:"status"`
		}
		cli.runJSON(t, &resp, "health")
		assert.Equal(t, "ok", resp.Status)
	})

	t.Run("player", func(t *testing.T) {
		cli := newCLIRunner(t, binary, server.URL)

		var auth response.AuthResponse
		cli.runJSON(t, &auth, "player", "guest", "--name", "Alice")
		assert.Equal(t, "Alice", auth.Player.DisplayName)
		assert.True(t, auth.Player.IsGuest)
		assert.NotEmpty(t, auth.Token)

		// The token was saved to the token file
		var me response.Player
		cli.runJSON(t, &me, "player", "me")
		assert.Equal(t, auth.Player.ID, me.ID)
	})

	t.Run("room", func(t *testing.T) {
		cli := newCLIRunner(t, binary, server.URL)
		cli.runJSON(t, &response.AuthResponse{}, "player", "guest", "--name", "Host")

		var room response.Room
		cli.runJSON(t, &room, "room", "create", "--id", "cli-room", "--game", "eratz-ir", "--max-players", "4")
		assert.Equal(t, "cli-room", room.ID)
		assert.Equal(t, 4, room.MaxPlayers)
		assert.Len(t, room.Participants, 1)

		var list response.RoomList
		cli.runJSON(t, &list, "room", "list")
		assert.NotEmpty(t, list.Rooms)

		qrFile := filepath.Join(t.TempDir(), "invite.png")
		output, err := cli.run("room", "qr", "cli-room", "--file", qrFile)
		require.NoError(t, err, "output: %s", output)
		png, err := os.ReadFile(qrFile)
		require.NoError(t, err)
		assert.Equal(t, "\x89PNG", string(png[:4]))

		output, err = cli.run("room", "delete", "cli-room")
		require.NoError(t, err, "output: %s", output)

		_, err = cli.run("room", "get", "cli-room")
		assert.Error(t, err)
	})

	t.Run("war", func(t *testing.T) {
		alice := newCLIRunner(t, binary, server.URL)
		bob := newCLIRunner(t, binary, server.URL)
		alice.runJSON(t, &response.AuthResponse{}, "player", "guest", "--name", "Alice")
		bob.runJSON(t, &response.AuthResponse{}, "player", "guest", "--name", "Bob")

		alice.runJSON(t, &model.Snapshot{}, "session", "join", "war-table")
		bob.runJSON(t, &model.Snapshot{}, "session", "join", "war-table")

		var snapshot model.Snapshot
		alice.runJSON(t, &snapshot, "war", "start", "war-table")
		require.NotNil(t, snapshot.War)
		assert.Equal(t, model.CardGameOngoing, snapshot.War.Status)

		alice.runJSON(t, &snapshot, "war", "play", "war-table")
		assert.Len(t, snapshot.War.Pile, 1)

		bob.runJSON(t, &snapshot, "war", "play", "war-table")
		require.NotNil(t, snapshot.Outcome)

		alice.runJSON(t, &snapshot, "war", "end", "war-table")
		assert.Nil(t, snapshot.War)
	})

	t.Run("word", func(t *testing.T) {
		alice := newCLIRunner(t, binary, server.URL)
		bob := newCLIRunner(t, binary, server.URL)
		alice.runJSON(t, &response.AuthResponse{}, "player", "guest", "--name", "Alice")
		bob.runJSON(t, &response.AuthResponse{}, "player", "guest", "--name", "Bob")

		alice.runJSON(t, &model.Snapshot{}, "session", "join", "word-table")
		bob.runJSON(t, &model.Snapshot{}, "session", "join", "word-table")

		var snapshot model.Snapshot
		alice.runJSON(t, &snapshot, "word", "start", "word-table")
		assert.Equal(t, model.WordGameInProgress, snapshot.Word.Status)

		alice.runJSON(t, &snapshot, "word", "round", "word-table", "--category", "city")
		require.NotNil(t, snapshot.Word.Letter)
		letter := *snapshot.Word.Letter

		alice.runJSON(t, &snapshot, "word", "answer", "word-table", "--answer", "city="+letter+"x")
		assert.Equal(t, model.WordGamePlayingRound, snapshot.Word.Status)

		bob.runJSON(t, &snapshot, "word", "finish", "word-table")
		assert.Equal(t, model.WordGameEnded, snapshot.Word.Status)
		assert.Equal(t, 1, snapshot.Word.Scores[snapshot.Word.Leader])

		var history response.History
		bob.runJSON(t, &history, "session", "history", "word-table")
		assert.Len(t, history.Rounds, 1)
	})

	t.Run("errors", func(t *testing.T) {
		cli := newCLIRunner(t, binary, server.URL)

		output, err := cli.run("player", "me")
		assert.Error(t, err)
		assert.Contains(t, output, "UNAUTHORIZED")

		cli.runJSON(t, &response.AuthResponse{}, "player", "guest", "--name", "Loner")
		output, err = cli.run("war", "play", "nowhere")
		assert.Error(t, err)
		assert.Contains(t, output, "NOT_MEMBER")
	})
}
