package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestRun_ServesAndShutsDown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	port := freePort(t)
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("CONTEXTIQ_SERVER_PORT", strconv.Itoa(port))
	t.Setenv("CONTEXTIQ_STORE_PATH", filepath.Join(dir, "context.db"))
	t.Setenv("CONTEXTIQ_SECRETS_GITLEAKS", "false")
	t.Setenv("CONTEXTIQ_SWEEP_ENABLED", "true")
	t.Setenv("CONTEXTIQ_SWEEP_SCHEDULE", "@every 1h")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, options{})
	}()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	body := strings.NewReader(`{"decision_text":"use postgres for storage"}`)
	resp, err := http.Post(base+"/api/v1/owners/alice/decisions", "application/json", body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(base + "/api/v1/owners/alice/decisions")
	require.NoError(t, err)
	var listed struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	assert.Equal(t, 1, listed.Count)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}
	assert.FileExists(t, filepath.Join(dir, "context.db"))
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CONTEXTIQ_SERVER_PORT", "70000")

	err := run(context.Background(), options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Version:    dev")
	assert.Contains(t, out.String(), "Commit:")
}

func TestToolsCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		contains []string
		absent   []string
	}{
		{
			name:     "all",
			args:     []string{"tools"},
			contains: []string{"manage_user_decision", "validate_action", "recommend_next_steps"},
		},
		{
			name:     "search",
			args:     []string{"tools", "--search", "validate_action"},
			contains: []string{"validate_action"},
			absent:   []string{"manage_contextual_todo"},
		},
		{
			name:     "no match",
			args:     []string{"tools", "--search", "zzz-nothing"},
			contains: []string{"no matching tools"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := newRootCmd()
			cmd.SetOut(&out)
			cmd.SetArgs(tt.args)
			require.NoError(t, cmd.Execute())
			for _, s := range tt.contains {
				assert.Contains(t, out.String(), s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out.String(), s)
			}
		})
	}
}

func TestToolsCommand_JSON(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"tools", "--json"})
	require.NoError(t, cmd.Execute())

	var tools []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &tools))
	assert.Len(t, tools, 12)
}
