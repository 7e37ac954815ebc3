//go:build integration
// +build integration

package main

import (
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func binaryPath(t *testing.T) string {
	t.Helper()
	binaryName := "imgtagger"
	if runtime.GOOS == "windows" {
		binaryName = "imgtagger.exe"
	}
	if _, err := os.Stat(binaryName); os.IsNotExist(err) {
		t.Skip("Binary not found, skipping CLI integration test. Run 'go build' first.")
	}
	return "./" + binaryName
}

// TestIntegration_CLIHelp tests that the CLI help is working
func TestIntegration_CLIHelp(t *testing.T) {
	cmd := exec.Command(binaryPath(t), "--help")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Logf("Help command output: %s", string(output))
	}

	outputStr := string(output)
	expectedStrings := []string{
		"imgtagger",
		"run",
		"key",
		"models",
		"--chunk-size",
		"--model",
		"--output",
	}
	for _, expected := range expectedStrings {
		if !strings.Contains(outputStr, expected) {
			t.Errorf("Help output missing expected string: %s", expected)
		}
	}
}

// TestIntegration_CLIVersion tests the version flag
func TestIntegration_CLIVersion(t *testing.T) {
	cmd := exec.Command(binaryPath(t), "--version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Version command failed: %v\nOutput: %s", err, string(output))
	}
	if !strings.Contains(string(output), "imgtagger") {
		t.Error("Version output should contain 'imgtagger'")
	}
	t.Logf("Version output: %s", string(output))
}

// TestIntegration_HeadlessRun captions a folder against a mock Gemini server
func TestIntegration_HeadlessRun(t *testing.T) {
	bin := binaryPath(t)
	srv, calls := geminiServer(t, http.StatusOK)

	src := t.TempDir()
	writePNG(t, filepath.Join(src, "one.png"))
	writePNG(t, filepath.Join(src, "two.png"))
	out := t.TempDir()

	cmd := exec.Command(bin, "run", src, "-o", out, "--env-file", filepath.Join(t.TempDir(), "none"))
	cmd.Env = append(os.Environ(),
		"IMGTAGGER_BASE_URL="+srv.URL,
		"IMGTAGGER_CREDENTIALS_FILE="+filepath.Join(t.TempDir(), "credentials"),
		"IMGTAGGER_CHUNK_DELAY=0s",
		"GEMINI_API_KEY=test-key",
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("run failed: %v\nOutput: %s", err, string(output))
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 API calls, got %d", got)
	}
	for _, name := range []string{"one.txt", "two.txt"} {
		data, err := os.ReadFile(filepath.Join(out, name))
		if err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
		if string(data) != "a small red dot" {
			t.Errorf("%s = %q", name, string(data))
		}
	}
}
