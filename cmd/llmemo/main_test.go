package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/llmemo/pkg/cache/memory"
	"github.com/pario-ai/llmemo/pkg/client"
	"github.com/pario-ai/llmemo/pkg/config"
	"github.com/pario-ai/llmemo/pkg/models"
	"github.com/pario-ai/llmemo/pkg/ollama"
)

func fakeOllama(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.Write([]byte(`{"models":[
				{"name":"smollm2:135m","size":270898672},
				{"name":"codellama:7b-code-q4_K_M","size":3825910662}
			]}`))
		case "/api/generate":
			calls.Add(1)
			var req models.GenerateRequest
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(models.GenerateResponse{Response: "echo: " + req.Prompt, Done: true})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAskCommand(t *testing.T) {
	var calls atomic.Int32
	upstream := fakeOllama(t, &calls)

	out, err := run(t, "", "ask", "--endpoint", upstream.URL, "--log-level", "error", "what", "is", "go?")
	require.NoError(t, err)
	assert.Contains(t, out, "echo: what is go?")
	assert.Contains(t, out, "took")
	assert.Equal(t, int32(1), calls.Load())
}

func TestAskCommandWithContext(t *testing.T) {
	var calls atomic.Int32
	upstream := fakeOllama(t, &calls)

	out, err := run(t, "", "ask", "--endpoint", upstream.URL, "--log-level", "error",
		"--context", "Answer in one word.", "what is go?")
	require.NoError(t, err)
	assert.Contains(t, out, "echo: Answer in one word.")
	assert.Contains(t, out, "what is go?")
}

func TestStatusCommand(t *testing.T) {
	var calls atomic.Int32
	upstream := fakeOllama(t, &calls)

	out, err := run(t, "", "status", "--endpoint", upstream.URL, "-m", "phi3:mini")
	require.NoError(t, err)
	assert.Contains(t, out, "phi3:mini")
	assert.Contains(t, out, upstream.URL)
	assert.Contains(t, out, "reachable")
	assert.NotContains(t, out, "unreachable")
}

func TestModelsCommand(t *testing.T) {
	var calls atomic.Int32
	upstream := fakeOllama(t, &calls)

	out, err := run(t, "", "models", "--endpoint", upstream.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "smollm2:135m")
	assert.Contains(t, out, "3.8 GB")
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "largest") {
			assert.Contains(t, line, "codellama")
		}
	}
}

func TestBatchCommand(t *testing.T) {
	var calls atomic.Int32
	upstream := fakeOllama(t, &calls)

	out, err := run(t, "first\n\nsecond\nfirst\n", "batch", "--endpoint", upstream.URL, "--variant", "fast")
	require.NoError(t, err)
	assert.Contains(t, out, "echo: first")
	assert.Contains(t, out, "echo: second")

	_, err = run(t, "", "batch", "--endpoint", upstream.URL)
	assert.Error(t, err)
	_, err = run(t, "q\n", "batch", "--endpoint", upstream.URL, "--variant", "slow")
	assert.Error(t, err)
}

func TestHistoryCommands(t *testing.T) {
	var calls atomic.Int32
	upstream := fakeOllama(t, &calls)

	cfgPath := filepath.Join(t.TempDir(), "llmemo.yaml")
	dbPath := filepath.Join(t.TempDir(), "history.db")
	require.NoError(t, writeFile(cfgPath, "endpoint: "+upstream.URL+"\nhistory:\n  enabled: true\n  db_path: "+dbPath+"\n  keep: 2\nlog:\n  level: error\n"))

	for _, q := range []string{"one", "two", "three"} {
		_, err := run(t, "", "ask", "-c", cfgPath, q)
		require.NoError(t, err)
	}

	// history.keep bounds the journal as asks are recorded
	out, err := run(t, "", "history", "list", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "two")
	assert.Contains(t, out, "three")
	assert.Contains(t, out, "2 of 2 asks shown.")

	out, err = run(t, "", "history", "prune", "--keep", "1", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Pruned 1 asks")
}

func TestInvalidConfigFlag(t *testing.T) {
	_, err := run(t, "", "status", "--endpoint", "not a url")
	assert.Error(t, err)
}

func newShellClient(t *testing.T, upstream string) *client.Client {
	t.Helper()
	cfg := config.Default()
	cfg.Endpoint = upstream
	backend, err := ollama.New(upstream, nil)
	require.NoError(t, err)
	store := memory.New(memory.Options{MaxEntries: 2})
	t.Cleanup(func() { store.Close() })
	c, err := client.New(cfg, backend, store, client.Deps{})
	require.NoError(t, err)
	return c
}

func TestShellSharesCache(t *testing.T) {
	var calls atomic.Int32
	upstream := fakeOllama(t, &calls)
	c := newShellClient(t, upstream.URL)

	script := strings.Join([]string{
		"what is a map?",
		"fast what is a map?",
		"nocache what is a map?",
		"ask b",
		"ask c",
		"stats",
		"optimize",
		"model phi3:mini",
		"model",
		"status",
		"clear",
		"fast",
		"help",
		"quit",
		"ask never reached",
	}, "\n")

	var out bytes.Buffer
	require.NoError(t, runShell(context.Background(), c, strings.NewReader(script), &out))
	text := out.String()

	assert.Equal(t, int32(4), calls.Load(), "fast reuses the cached normal answer")
	assert.Contains(t, text, "cache hit")
	assert.Contains(t, text, "Entries:")
	assert.Contains(t, text, "Removed 0 expired and 2 least-used entries; 1 remain.")
	assert.Contains(t, text, "Model set to phi3:mini")
	assert.Contains(t, text, "Removed 1 cached responses.")
	assert.Contains(t, text, "error: question is required")
	assert.Contains(t, text, "Commands:")
	assert.NotContains(t, text, "never reached")
}

func TestShellEOF(t *testing.T) {
	var calls atomic.Int32
	c := newShellClient(t, fakeOllama(t, &calls).URL)
	var out bytes.Buffer
	require.NoError(t, runShell(context.Background(), c, strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "llmemo shell")
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\nb", 10))
	assert.Equal(t, "€€€€€€€...", truncate(strings.Repeat("€", 20), 10))
}
