package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/farcasturd-backend/internal/retry"
)

var fastPolicy = retry.Policy{MaxAttempts: 2, InitialDelay: time.Millisecond, Multiplier: 2}

func newClient(t *testing.T, h http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(Options{APIKey: "sk-test", BaseURL: srv.URL, Policy: fastPolicy, HTTP: srv.Client()}), &calls
}

func writeError(w http.ResponseWriter, status int, code, typ string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"message": "nope", "code": code, "type": typ},
	})
}

func TestGenerate_Success(t *testing.T) {
	png := []byte("\x89PNG fake")
	c, calls := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req generateRequest
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &req))
		assert.Equal(t, "dall-e-3", req.Model)
		assert.Equal(t, "1024x1024", req.Size)
		assert.Equal(t, "standard", req.Quality)
		assert.Equal(t, "b64_json", req.ResponseFormat)
		assert.Equal(t, 1, req.N)
		assert.Equal(t, "a turd", req.Prompt)
		_, _ = io.WriteString(w, `{"data":[{"b64_json":"`+base64.StdEncoding.EncodeToString(png)+`"}]}`)
	})

	out, err := c.Generate(context.Background(), "a turd")
	require.NoError(t, err)
	assert.Equal(t, png, out)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestGenerate_RetriesTransientThenSucceeds(t *testing.T) {
	var n int32
	c, calls := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) == 1 {
			writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "requests")
			return
		}
		_, _ = io.WriteString(w, `{"data":[{"b64_json":"aGk="}]}`)
	})

	out, err := c.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), out)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestGenerate_FatalClassesNotRetried(t *testing.T) {
	cases := []struct {
		name   string
		status int
		code   string
		typ    string
		want   Class
	}{
		{"quota", http.StatusTooManyRequests, "insufficient_quota", "insufficient_quota", ClassQuota},
		{"bad key", http.StatusUnauthorized, "invalid_api_key", "invalid_request_error", ClassCredentials},
		{"content", http.StatusBadRequest, "content_policy_violation", "invalid_request_error", ClassRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, calls := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeError(w, tc.status, tc.code, tc.typ)
			})
			_, err := c.Generate(context.Background(), "p")
			require.Error(t, err)
			assert.Equal(t, tc.want, ClassOf(err))
			assert.EqualValues(t, 1, atomic.LoadInt32(calls))

			var ge *Error
			require.True(t, errors.As(err, &ge))
			assert.Equal(t, tc.status, ge.Status)
		})
	}
}

func TestGenerate_ServerErrorsExhaustAttempts(t *testing.T) {
	c, calls := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Equal(t, ClassRetryable, ClassOf(err))
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestGenerate_MissingImageData(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[]}`)
	})
	_, err := c.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b64_json")
}

func TestGenerate_NoAPIKey(t *testing.T) {
	c := New(Options{})
	_, err := c.Generate(context.Background(), "p")
	assert.Equal(t, ClassCredentials, ClassOf(err))
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "quota", ClassQuota.String())
	assert.Equal(t, "unknown", Class(99).String())
	assert.True(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(&Error{Class: ClassRejected}))
}
