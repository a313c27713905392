package e2e_test

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/wsgate/internal/api"
	"github.com/mcoot/wsgate/internal/factory"
	"github.com/mcoot/wsgate/internal/services/auth"
)

const adminToken = "e2e-admin-token"

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	projectRoot := findProjectRoot(t)

	binaryPath := filepath.Join(t.TempDir(), "wsctl")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/wsctl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
	}
}

func (r *cliRunner) command(args ...string) *exec.Cmd {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token", adminToken,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Env = append(os.Environ(), "WSCTL_SERVER=", "WSCTL_TOKEN=")
	return cmd
}

func (r *cliRunner) run(args ...string) (string, error) {
	output, err := r.command(args...).CombinedOutput()
	return string(output), err
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

// startTestServer runs the full gateway on a loopback port
func startTestServer(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	authCfg := auth.DefaultConfig()
	authCfg.BcryptCost = 4
	app, err := factory.New(factory.Config{AuthConfig: authCfg, Logger: logger})
	require.NoError(t, err)

	handler := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		Router:      app.Router,
		Hub:         app.Hub,
		AuthService: app.AuthService,
		AdminToken:  adminToken,
	})

	serverCfg := api.DefaultServerConfig()
	serverCfg.ShutdownTimeout = 5 * time.Second
	server := api.NewServer(handler, serverCfg, logger)
	server.OnShutdown(app.Close)

	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()
	t.Cleanup(func() {
		_ = server.Shutdown(context.Background())
	})

	serverURL := "http://" + listener.Addr().String()
	waitForServer(t, serverURL+"/api/v1/health")
	return serverURL
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready")
}

type packet struct {
	Component string          `json:"component"`
	Action    string          `json:"action"`
	Data      json.RawMessage `json:"data"`
}

func TestCLI_HealthCheck(t *testing.T) {
	cli := newCLIRunner(t, startTestServer(t))

	output, err := cli.run("health")
	require.NoError(t, err, output)

	var resp struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_LoginAndPush(t *testing.T) {
	cli := newCLIRunner(t, startTestServer(t))

	output, err := cli.run("account", "create", "--username", "carol", "--password", "password123")
	require.NoError(t, err, output)

	// A listening client that logs in and waits for one pushed packet
	listen := cli.command("listen", "--username", "carol", "--password", "password123", "--count", "5")
	stdout, err := listen.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, listen.Start())
	t.Cleanup(func() { _ = listen.Process.Kill() })

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	next := func() packet {
		t.Helper()
		select {
		case line, ok := <-lines:
			require.True(t, ok, "listen exited early")
			var p packet
			require.NoError(t, json.Unmarshal([]byte(line), &p))
			return p
		case <-time.After(10 * time.Second):
			t.Fatal("timed out waiting for packet")
			return packet{}
		}
	}

	assert.Equal(t, "connection/connected", pathOf(next()))
	assert.Equal(t, "auth/login", pathOf(next()))
	assert.Equal(t, "profile/get", pathOf(next()))
	assert.Equal(t, "clientconfig/get", pathOf(next()))

	output, err = cli.run("users")
	require.NoError(t, err, output)
	var users []struct {
		ID      string   `json:"id"`
		Name    string   `json:"name"`
		Clients []string `json:"clients"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "carol", users[0].Name)
	assert.Len(t, users[0].Clients, 1)

	output, err = cli.run("send", "user", users[0].ID,
		"--component", "news", "--action", "post", "--data", `{"headline":"hello"}`)
	require.NoError(t, err, output)

	pushed := next()
	assert.Equal(t, "news/post", pathOf(pushed))
	assert.JSONEq(t, `{"headline":"hello"}`, string(pushed.Data))

	// listen exits after its fifth packet
	for range lines {
	}
	require.NoError(t, listen.Wait())
}

func pathOf(p packet) string {
	return p.Component + "/" + p.Action
}
