// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"prosody/internal/config"
	"prosody/internal/metrics"
	"prosody/internal/wav"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const analysisDoc = `{
	"reference": {"time": [0, 1, 2], "pitch": [100, null, 120], "formants": [[500, 1500, 2500], [], null], "intensity": [60, 61, 62]},
	"user": {"time": [0, 1], "pitch": [80, 90], "formants": [[], []], "intensity": [50, null], "vowels": ["a", null]}
}`

func newTestClient(t *testing.T, h http.Handler) (*Client, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.NewConfig().Analysis
	cfg.BaseURL = srv.URL
	cfg.Timeout = 5 * time.Second
	m := metrics.New(prometheus.NewRegistry())
	return NewClient(cfg, m), m
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func TestListSamples(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/samples", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"files": ["a.wav", "b.wav"]}`)
	}))

	files, err := c.ListSamples(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.wav", "b.wav"}, files)
}

func TestFetchSample(t *testing.T) {
	audio := wav.Encode([][]float32{{0, 0.5, -0.5}}, 16000)
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/samples/my sample.wav" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", wav.MIMEType)
		w.Write(audio.Data)
	}))

	data, err := c.FetchSample(context.Background(), "my sample.wav")
	require.NoError(t, err)
	assert.Equal(t, audio.Data, data)

	_, err = c.FetchSample(context.Background(), "missing.wav")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestAnalyzeReferenceOnly(t *testing.T) {
	c, m := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/analyze", r.URL.Path)
		assert.Equal(t, "a.wav", r.FormValue("sample"))
		_, _, err := r.FormFile("recording")
		assert.Error(t, err, "no recording expected")
		writeJSON(w, http.StatusOK, `{"reference": {"time": [0], "pitch": [null], "formants": [[]], "intensity": [40]}}`)
	}))

	a, err := c.Analyze(context.Background(), "a.wav", nil)
	require.NoError(t, err)
	require.NotNil(t, a.Reference)
	assert.Nil(t, a.User)
	assert.False(t, a.Reference.Pitch[0].Valid)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisRequests.WithLabelValues("reference")))
}

func TestAnalyzeWithRecording(t *testing.T) {
	rec := wav.Encode([][]float32{{0.1, 0.2}, {0.3}}, 48000)

	c, m := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "b.wav", r.FormValue("sample"))

		f, hdr, err := r.FormFile("recording")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, rec.Data, body)
		assert.Equal(t, wav.MIMEType, hdr.Header.Get("Content-Type"))

		writeJSON(w, http.StatusOK, analysisDoc)
	}))

	a, err := c.Analyze(context.Background(), "b.wav", &rec)
	require.NoError(t, err)
	require.NotNil(t, a.User)
	assert.Equal(t, []float64{0, 1}, a.User.Time)
	v, ok := a.User.VowelAt(0)
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisRequests.WithLabelValues("recording")))
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"collaborator message", http.StatusNotFound, `{"error": "sample not found"}`, "sample not found"},
		{"message verbatim", http.StatusInternalServerError, `{"error": "Sound: file too short (0.01 s)"}`, "Sound: file too short (0.01 s)"},
		{"no message", http.StatusBadGateway, `<html>bad gateway</html>`, "Bad Gateway"},
		{"empty message", http.StatusBadRequest, `{"error": ""}`, "Bad Request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, m := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))

			_, err := c.Analyze(context.Background(), "a.wav", nil)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, err.Error())
			assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisFailures.WithLabelValues("reference")))
		})
	}
}

func TestAnalyzeMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `nope`},
		{"length mismatch", `{"user": {"time": [0, 1], "pitch": [1], "formants": [[], []], "intensity": [1, 2]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, tt.body)
			}))
			_, err := c.Analyze(context.Background(), "a.wav", nil)
			require.Error(t, err)
			var apiErr *APIError
			assert.False(t, errors.As(err, &apiErr))
		})
	}
}

func TestAnalyzeTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	cfg := config.NewConfig().Analysis
	cfg.BaseURL = srv.URL
	srv.Close()

	c := NewClient(cfg, nil)
	_, err := c.Analyze(context.Background(), "a.wav", nil)
	assert.Error(t, err)
}

func TestAnalyzeContextCancelled(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Analyze(ctx, "a.wav", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAPIErrorJSON(t *testing.T) {
	// The collaborator's error body round-trips through errorBody.
	var b errorBody
	require.NoError(t, json.Unmarshal([]byte(`{"error": "missing sample"}`), &b))
	assert.Equal(t, "missing sample", (&APIError{Message: b.Error}).Error())
}
