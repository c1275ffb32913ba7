// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"prosody/internal/config"
	"prosody/internal/wav"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsDefaults(t *testing.T) {
	opts, err := ParseArgs(nil)
	require.NoError(t, err)
	require.NotNil(t, opts)

	assert.Empty(t, opts.Command)
	assert.False(t, opts.Headless)
	assert.Equal(t, config.NewConfig(), opts.Config)
}

func TestParseArgsFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prosody.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audio:\n  sample_rate: 44100\n  input_device: 3\ncontrols:\n  pitch_multiplier: 1.2\n"), 0o644))

	opts, err := ParseArgs([]string{"--config", path, "--device", "1", "--offset", "0.25", "--no-viewer", "--udp", "127.0.0.1:9999", "--headless", "-v"})
	require.NoError(t, err)

	cfg := opts.Config
	assert.Equal(t, 1, cfg.Audio.InputDevice)
	assert.Equal(t, 44100.0, cfg.Audio.SampleRate, "file value kept when flag unset")
	assert.Equal(t, 1.2, cfg.Controls.PitchMultiplier)
	assert.Equal(t, 0.25, cfg.Controls.TimeOffset)
	assert.False(t, cfg.Viewer.Enabled)
	assert.True(t, cfg.Transport.UDPEnabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Transport.UDPTargetAddress)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, opts.Headless)
}

func TestParseArgsSubcommands(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		command string
	}{
		{"list", []string{"list"}, CommandList},
		{"samples", []string{"samples", "--analysis-url", "http://127.0.0.1:9000"}, CommandSamples},
		{"render", []string{"render", "a.json", "--out", "charts", "--cursor", "0.5"}, CommandRender},
		{"encode", []string{"encode", "in.raw", "out.wav", "--rate", "16000"}, CommandEncode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseArgs(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.command, opts.Command)
		})
	}

	opts, err := ParseArgs([]string{"render", "a.json", "--out", "charts", "--cursor", "0.5", "--pitch", "1.5"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json"}, opts.Args)
	assert.Equal(t, "charts", opts.OutDir)
	assert.Equal(t, 0.5, opts.Cursor)
	assert.Equal(t, 1.5, opts.Config.Controls.PitchMultiplier)
}

func TestParseArgsErrors(t *testing.T) {
	tests := [][]string{
		{"--pitch", "0"},
		{"--sample-rate", "100"},
		{"render"},
		{"encode", "only-one"},
		{"--config", "missing.yaml"},
	}
	for _, args := range tests {
		_, err := ParseArgs(args)
		assert.Error(t, err, "%v", args)
	}
}

const analysisDoc = `{
	"reference": {"time": [0, 1], "pitch": [100, 120], "formants": [[500, 1500, 2500], [520, 1520, 2520]], "intensity": [60, 64]},
	"user": {"time": [0, 1], "pitch": [80, 90], "formants": [[400, 1400, 2400], [410, 1410, 2410]], "intensity": [55, 57]}
}`

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "analysis.json")
	require.NoError(t, os.WriteFile(in, []byte(analysisDoc), 0o644))
	out := filepath.Join(dir, "charts")

	opts, err := ParseArgs([]string{"render", in, "--out", out, "--cursor", "0.5"})
	require.NoError(t, err)

	var stdout bytes.Buffer
	require.NoError(t, Execute(context.Background(), opts, &stdout))

	for _, name := range []string{"pitch", "formants", "intensity"} {
		data, err := os.ReadFile(filepath.Join(out, name+".png"))
		require.NoError(t, err, name)
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), name)
		assert.Contains(t, stdout.String(), name+".png")
	}
}

func TestRenderCommandRejectsMalformedAnalysis(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "analysis.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"user": {"time": [0, 1], "pitch": [1]}}`), 0o644))

	opts, err := ParseArgs([]string{"render", in, "--out", dir})
	require.NoError(t, err)
	assert.Error(t, Execute(context.Background(), opts, &bytes.Buffer{}))
}

func TestEncodeCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.raw")
	out := filepath.Join(dir, "out.wav")

	samples := []float32{0, 0.5, -0.5, 1}
	raw := make([]byte, 0, len(samples)*4)
	for _, s := range samples {
		raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(s))
	}
	require.NoError(t, os.WriteFile(in, raw, 0o644))

	opts, err := ParseArgs([]string{"encode", in, out, "--rate", "16000"})
	require.NoError(t, err)
	var stdout bytes.Buffer
	require.NoError(t, Execute(context.Background(), opts, &stdout))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Len(t, data, wav.HeaderSize+len(samples)*2)
	assert.Equal(t, wav.Encode([][]float32{samples}, 16000).Data, data)

	pcm, err := wav.DecodeBytes(data)
	require.NoError(t, err)
	assert.Equal(t, 16000, pcm.SampleRate)
	assert.Len(t, pcm.Samples, len(samples))
	assert.Contains(t, stdout.String(), "4 samples")
}

func TestEncodeCommandRejectsTruncatedInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.raw")
	require.NoError(t, os.WriteFile(in, []byte{1, 2, 3}, 0o644))

	opts, err := ParseArgs([]string{"encode", in, filepath.Join(dir, "out.wav")})
	require.NoError(t, err)
	assert.ErrorContains(t, Execute(context.Background(), opts, &bytes.Buffer{}), "multiple of 4")
}

func TestExecuteUnknownCommand(t *testing.T) {
	err := Execute(context.Background(), &Options{Command: "bogus", Config: config.NewConfig()}, &bytes.Buffer{})
	assert.Error(t, err)
}
