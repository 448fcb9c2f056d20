//go:build smoke

package smoke

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/codr1/leaguehub/internal/testutil"
)

func buildServer(t *testing.T, tempDir string) string {
	t.Helper()
	repoRoot := findRepoRoot(t)

	binPath := filepath.Join(tempDir, "leaguehub-server")
	buildCmd := exec.Command("go", "build", "-o", binPath, "./cmd/server")
	buildCmd.Dir = repoRoot
	buildOutput, err := buildCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build server: %v\n%s", err, buildOutput)
	}
	return binPath
}

func writeConfig(t *testing.T, tempDir string, port int) string {
	t.Helper()
	configPath := filepath.Join(tempDir, "config.yaml")
	configBody := fmt.Sprintf(`app:
  name: "leaguehub"
  environment: "development"
  port: %d
  base_url: "http://localhost:%d"

database:
  driver: "sqlite"
  filename: "%s"

features:
  enable_metrics: true
  enable_debug: true
`, port, port, filepath.ToSlash(filepath.Join(tempDir, "db", "smoke.db")))

	if err := os.WriteFile(configPath, []byte(configBody), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath
}

func serverEnv() []string {
	return append(os.Environ(), "CLERK_SECRET_KEY=", "STRIPE_SECRET_KEY=", "AWS_ACCESS_KEY_ID=", "AWS_SECRET_ACCESS_KEY=")
}

func TestServerStartup(t *testing.T) {
	tempDir := t.TempDir()
	binPath := buildServer(t, tempDir)
	port := reservePort(t)
	configPath := writeConfig(t, tempDir, port)

	cmd := exec.Command(binPath, "-config", configPath)
	cmd.Dir = tempDir
	cmd.Env = serverEnv()
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}

	waitDone := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = cmd.Wait()
		close(waitDone)
	}()

	t.Cleanup(func() {
		if cmd.Process == nil {
			return
		}
		_ = cmd.Process.Signal(os.Interrupt)
		select {
		case <-waitDone:
			return
		case <-time.After(5 * time.Second):
		}
		_ = cmd.Process.Kill()
		select {
		case <-waitDone:
		case <-time.After(5 * time.Second):
			t.Logf("server process did not exit after kill")
		}
	})

	healthURL := fmt.Sprintf("http://localhost:%d/health", port)
	client := &http.Client{Timeout: 500 * time.Millisecond}
	deadline := time.Now().Add(10 * time.Second)

	for {
		select {
		case <-waitDone:
			t.Fatalf("server exited before health check: %v\nstdout:\n%s\nstderr:\n%s", waitErr, stdout.String(), stderr.String())
		default:
		}

		resp, err := client.Get(healthURL)
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}

		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for health check\nstdout:\n%s\nstderr:\n%s", stdout.String(), stderr.String())
		}

		time.Sleep(100 * time.Millisecond)
	}

	base := fmt.Sprintf("http://localhost:%d", port)

	resp, err := client.Get(base + "/api/v1/leagues?sport=Volleyball")
	if err != nil {
		t.Fatalf("list leagues: %v", err)
	}
	var listing struct {
		Total         int  `json:"total"`
		FiltersActive bool `json:"filtersActive"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode leagues: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !listing.FiltersActive || listing.Total == 0 {
		t.Fatalf("unexpected league listing: status %d, %+v", resp.StatusCode, listing)
	}

	resp, err = client.Post(base+"/api/v1/functions/send-invite", "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatalf("send invite: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer token, got %d", resp.StatusCode)
	}

	resp, err = client.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected metrics endpoint, got %d", resp.StatusCode)
	}

	select {
	case <-waitDone:
		t.Fatalf("server exited unexpectedly: %v\nstdout:\n%s\nstderr:\n%s", waitErr, stdout.String(), stderr.String())
	default:
	}
}

func TestServerClosesAppWhenListenFails(t *testing.T) {
	tempDir := t.TempDir()
	binPath := buildServer(t, tempDir)

	occupied, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to occupy port: %v", err)
	}
	defer occupied.Close()
	configPath := writeConfig(t, tempDir, occupied.Addr().(*net.TCPAddr).Port)

	cmd := exec.Command(binPath, "-config", configPath)
	cmd.Dir = tempDir
	cmd.Env = serverEnv()
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	select {
	case err := <-waitDone:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
			t.Fatalf("expected exit code 1, got %v\nstderr:\n%s", err, stderr.String())
		}
	case <-time.After(10 * time.Second):
		_ = cmd.Process.Kill()
		t.Fatalf("server did not exit on listen failure\nstderr:\n%s", stderr.String())
	}

	out := stderr.String()
	closed := strings.Index(out, "Application closed")
	terminated := strings.Index(out, "Server terminated with error")
	if closed == -1 || terminated == -1 || closed > terminated {
		t.Fatalf("expected the app to close before the error exit\nstderr:\n%s", out)
	}
}

func reservePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}

func findRepoRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	t.Fatal("failed to locate repo root with go.mod")
	return ""
}

func TestMigrationsApplied(t *testing.T) {
	db := testutil.NewTestDB(t)

	expectedTables := []string{
		"users",
		"teams",
		"team_members",
		"league_matches",
		"payments",
		"team_invites",
		"products",
	}

	for _, table := range expectedTables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name = ?",
			table,
		).Scan(&name)
		if err == sql.ErrNoRows {
			t.Fatalf("missing expected table %q after migrations", table)
		}
		if err != nil {
			t.Fatalf("query table %q existence: %v", table, err)
		}
	}

	var index string
	if err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name = 'idx_team_invites_one_pending'",
	).Scan(&index); err != nil {
		t.Fatalf("expected unique pending invite index: %v", err)
	}
}

func TestForeignKeyIntegrity(t *testing.T) {
	db := testutil.NewTestDB(t)

	var foreignKeysEnabled int
	if err := db.QueryRow("PRAGMA foreign_keys;").Scan(&foreignKeysEnabled); err != nil {
		t.Fatalf("query foreign_keys pragma: %v", err)
	}
	if foreignKeysEnabled != 1 {
		t.Fatalf("expected foreign_keys pragma enabled, got %d", foreignKeysEnabled)
	}

	_, err := db.Exec(
		`INSERT INTO teams (league_id, name, captain_id) VALUES (1, 'Orphans', 9999)`,
	)
	if err == nil {
		t.Fatal("expected foreign key constraint failure for invalid captain_id")
	}
}
