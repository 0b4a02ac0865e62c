package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/llmemo/pkg/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, nil)
	require.NoError(t, err)
	return c
}

func TestGenerate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req models.GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "codellama:7b", req.Model)
		assert.Equal(t, "what is a goroutine?", req.Prompt)
		assert.False(t, req.Stream)
		assert.Equal(t, 0.1, req.Options.Temperature)
		assert.Equal(t, 20, req.Options.NumPredict)

		json.NewEncoder(w).Encode(models.GenerateResponse{Model: req.Model, Response: "a lightweight thread", Done: true})
	})

	out, err := c.Generate(context.Background(), models.GenerateRequest{
		Model:   "codellama:7b",
		Prompt:  "what is a goroutine?",
		Stream:  true,
		Options: models.GenerateOptions{Temperature: 0.1, NumPredict: 20},
	})
	require.NoError(t, err)
	assert.Equal(t, "a lightweight thread", out)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "model not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error":"model 'nope' not found"}`))
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrModelNotFound)
				assert.ErrorContains(t, err, "model 'nope' not found")
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, http.StatusInternalServerError, se.Code)
				assert.Equal(t, "boom", se.Body)
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidResponse)
			},
		},
		{
			name: "error field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"error":"out of memory"}`))
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidResponse)
				assert.ErrorContains(t, err, "out of memory")
			},
		},
		{
			name: "empty text",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"response":"  \n","done":true}`))
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyResponse)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Generate(context.Background(), models.GenerateRequest{Model: "m", Prompt: "p"})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestGenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Generate(ctx, models.GenerateRequest{Model: "m", Prompt: "p"})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	c, err := New(endpoint, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestModelsAndLargest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[
			{"name":"smollm2:135m","size":270898672},
			{"name":"codellama:7b-code-q4_K_M","size":3825910662},
			{"name":"phi3:mini","size":2176178913}
		]}`))
	})

	ms, err := c.Models(context.Background())
	require.NoError(t, err)
	require.Len(t, ms, 3)
	require.NoError(t, c.Ping(context.Background()))

	best, ok := Largest(ms)
	require.True(t, ok)
	assert.Equal(t, "codellama:7b-code-q4_K_M", best.Name)

	_, ok = Largest(nil)
	assert.False(t, ok)
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	for _, ep := range []string{"", "localhost", "://bad"} {
		_, err := New(ep, nil)
		assert.Error(t, err, ep)
	}

	c, err := New("http://localhost:11434/", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434", c.Endpoint())
}

func TestErrorMessageKeepsRunesWhole(t *testing.T) {
	msg := errorMessage([]byte(strings.Repeat("€", 200)))
	assert.True(t, utf8.ValidString(msg))
	assert.LessOrEqual(t, len(msg), maxErrorBody)
	assert.Equal(t, strings.Repeat("€", 170), msg)

	assert.Equal(t, "model not found", errorMessage([]byte(`{"error":"model not found"}`)))
}
