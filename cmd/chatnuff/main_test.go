package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "log:\n  level: error\narchive:\n  backend: sqlite\n  capacity: 3\n  sqlite:\n    path: " +
		filepath.Join(dir, "archive.db") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStoreReplayTranscript(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "store", "--config", cfg, "--chat", "-100", "--message-id", "1",
		"--first-name", "Ann", "--last-name", "Lee", "who did it?")
	require.NoError(t, err)
	require.Equal(t, "1\n", out)

	out, err = run(t, "store", "--config", cfg, "--chat", "-100", "--message-id", "2",
		"--first-name", "Bo", "--spoiler", "4:6", "the butler did it")
	require.NoError(t, err)
	require.Equal(t, "2\n", out)

	out, err = run(t, "replay", "--config", cfg, "--chat", "-100")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasSuffix(lines[0], "Ann Lee: who did it?"), lines[0])
	require.True(t, strings.HasSuffix(lines[1], "Bo: the ^butler^ did it"), lines[1])

	out, err = run(t, "transcript", "--config", cfg, "--chat", "-100")
	require.NoError(t, err)
	require.Equal(t, "Ann Lee: who did it?;Bo: the ^butler^ did it\n", out)

	out, err = run(t, "exists", "--config", cfg, "--chat", "-100")
	require.NoError(t, err)
	require.Equal(t, "true\n", out)

	out, err = run(t, "exists", "--config", cfg, "--chat", "5")
	require.NoError(t, err)
	require.Equal(t, "false\n", out)

	out, err = run(t, "status", "--config", cfg)
	require.NoError(t, err)
	require.Contains(t, out, "ping: ok")
	require.Contains(t, out, "capacity: 3")
}

func TestStoreHonorsCapacity(t *testing.T) {
	cfg := writeConfig(t)
	var out string
	var err error
	for i := 0; i < 5; i++ {
		out, err = run(t, "store", "--config", cfg, "--chat", "7", "--first-name", "Ann", "hi")
		require.NoError(t, err)
	}
	require.Equal(t, "3\n", out)
}

func TestWrapUnwrap(t *testing.T) {
	out, err := run(t, "wrap", "-r", "7:6", "I have apples, and I have bananas, yay")
	require.NoError(t, err)
	require.Equal(t, "I have ^apples^, and I have bananas, yay\n", out)

	out, err = run(t, "unwrap", "This is a ^spoiler^ text example.")
	require.NoError(t, err)
	require.JSONEq(t, `{"text":"This is a spoiler text example.","spoilers":[{"start":10,"length":7}]}`, out)

	_, err = run(t, "wrap", "-r", "5", "text")
	require.Error(t, err)

	_, err = run(t, "wrap", "-r", "2:10", "text")
	require.Error(t, err)

	_, err = run(t, "wrap", "-r", "1:9223372036854775807", "text")
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	cfg := writeConfig(t)

	_, err := run(t, "store", "--config", cfg, "--chat", "9", "--message-id", "1",
		"--first-name", "Bo", "--spoiler", "4:6", "the butler did it")
	require.NoError(t, err)

	script := filepath.Join(t.TempDir(), "gen.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$CHATNUFF_SUMMARY_STYLE: $(cat)\"\n"), 0o700))

	out, err := run(t, "summarize", "--config", cfg, "--chat", "9", "--generator", "sh "+script)
	require.NoError(t, err)
	require.JSONEq(t, `{"text":"paragraph: Bo: the butler did it","spoilers":[{"start":19,"length":6}]}`, out)

	_, err = run(t, "summarize", "--config", cfg, "--chat", "404", "--generator", "sh "+script)
	require.Error(t, err)

	_, err = run(t, "summarize", "--config", cfg, "--chat", "9", "--style", "haiku", "--generator", "sh "+script)
	require.Error(t, err)
}
