// SPDX-License-Identifier: MIT

// Package analysis talks to the external analysis collaborator: it lists
// reference samples, fetches their audio, and posts a sample name plus an
// optional recording for pitch, formant and intensity analysis.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"prosody/internal/config"
	applog "prosody/internal/log"
	"prosody/internal/metrics"
	"prosody/internal/series"
	"prosody/internal/wav"

	"github.com/go-resty/resty/v2"
)

// APIError is a non-success response. Message is the collaborator's error
// text, verbatim when it supplied one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

type errorBody struct {
	Error string `json:"error"`
}

type samplesBody struct {
	Files []string `json:"files"`
}

// Client is the collaborator client. It is safe for concurrent use.
type Client struct {
	http    *resty.Client
	cfg     config.AnalysisConfig
	metrics *metrics.Metrics
}

// NewClient creates a client for cfg. m may be nil.
func NewClient(cfg config.AnalysisConfig, m *metrics.Metrics) *Client {
	h := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: h, cfg: cfg, metrics: m}
}

// ListSamples returns the names of the available reference samples.
func (c *Client) ListSamples(ctx context.Context) ([]string, error) {
	resp, err := c.http.R().SetContext(ctx).Get(c.cfg.SamplesPath)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}

	var body samplesBody
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode sample list: %w", err)
	}
	return body.Files, nil
}

// FetchSample downloads the reference audio for name.
func (c *Client) FetchSample(ctx context.Context, name string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", wav.MIMEType).
		Get(c.cfg.SampleFilesPath + "/" + url.PathEscape(name))
	if err != nil {
		return nil, fmt.Errorf("fetch sample %q: %w", name, err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return resp.Body(), nil
}

// Analyze requests the analysis of sample and, when recording is not nil,
// of the recording as well.
func (c *Client) Analyze(ctx context.Context, sample string, recording *wav.EncodedAudio) (*series.Analysis, error) {
	kind := "reference"
	req := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"sample": sample})
	if recording != nil {
		kind = "recording"
		req.SetMultipartField("recording", "recording.wav", recording.MIMEType, bytes.NewReader(recording.Data))
	}

	start := time.Now()
	a, err := c.analyze(req)
	c.metrics.RecordAnalysis(kind, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	applog.Debugf("Analysis: %s of %q took %s", kind, sample, time.Since(start).Round(time.Millisecond))
	return a, nil
}

func (c *Client) analyze(req *resty.Request) (*series.Analysis, error) {
	resp, err := req.Post(c.cfg.AnalyzePath)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return series.Parse(resp.Body())
}

func apiError(resp *resty.Response) *APIError {
	e := &APIError{StatusCode: resp.StatusCode()}

	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		e.Message = body.Error
		return e
	}
	if text := http.StatusText(e.StatusCode); text != "" {
		e.Message = text
	} else {
		e.Message = resp.Status()
	}
	return e
}
