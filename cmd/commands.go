// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"prosody/internal/analysis"
	"prosody/internal/capture"
	applog "prosody/internal/log"
	"prosody/internal/render"
	"prosody/internal/series"
	"prosody/internal/wav"
)

// Execute runs a one-off command. Output goes to w.
func Execute(ctx context.Context, opts *Options, w io.Writer) error {
	switch opts.Command {
	case CommandList:
		return listDevices(w)
	case CommandSamples:
		return listSamples(ctx, opts, w)
	case CommandRender:
		return renderCharts(opts, w)
	case CommandEncode:
		return encodeRaw(opts, w)
	default:
		return fmt.Errorf("unknown command %q", opts.Command)
	}
}

func listDevices(w io.Writer) error {
	if err := capture.Initialize(); err != nil {
		return err
	}
	defer capture.Terminate()
	return capture.ListDevices(w)
}

func listSamples(ctx context.Context, opts *Options, w io.Writer) error {
	client := analysis.NewClient(opts.Config.Analysis, nil)
	samples, err := client.ListSamples(ctx)
	if err != nil {
		return err
	}
	for _, s := range samples {
		fmt.Fprintln(w, s)
	}
	return nil
}

// renderCharts draws the charts of a saved collaborator response with the
// configured controls.
func renderCharts(opts *Options, w io.Writer) error {
	data, err := os.ReadFile(opts.Args[0])
	if err != nil {
		return fmt.Errorf("read analysis: %w", err)
	}
	a, err := series.Parse(data)
	if err != nil {
		return err
	}

	c := opts.Config.Controls
	charts := series.Build(a, series.Controls{
		TimeOffset:      c.TimeOffset,
		PitchMultiplier: c.PitchMultiplier,
		IntensityOffset: c.IntensityOffset,
	}.Normalized())

	cursor := render.NoCursor
	if opts.Cursor >= 0 {
		cursor = render.At(opts.Cursor)
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return err
	}

	r := render.New(render.LayoutFromConfig(opts.Config.Render))
	for _, chart := range render.Charts {
		path := filepath.Join(opts.OutDir, chart.String()+".png")
		if err := writeChart(path, r, chart, charts, cursor); err != nil {
			return err
		}
		fmt.Fprintln(w, path)
	}
	return nil
}

func writeChart(path string, r *render.Renderer, chart render.Chart, charts series.Charts, cursor render.Cursor) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return r.WritePNG(f, chart, charts, cursor)
}

// encodeRaw converts float32 little-endian samples to a WAV file.
func encodeRaw(opts *Options, w io.Writer) error {
	raw, err := os.ReadFile(opts.Args[0])
	if err != nil {
		return fmt.Errorf("read samples: %w", err)
	}
	if len(raw)%4 != 0 {
		return fmt.Errorf("%s: length %d is not a multiple of 4 bytes", opts.Args[0], len(raw))
	}
	if opts.EncodeRate <= 0 || opts.EncodeRate > math.MaxUint32 {
		return fmt.Errorf("invalid sample rate %.0f", opts.EncodeRate)
	}

	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	encoded := wav.Encode([][]float32{samples}, uint32(opts.EncodeRate))
	if err := os.WriteFile(opts.Args[1], encoded.Data, 0o644); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	applog.Debugf("Encode: %d samples at %.0f Hz", len(samples), opts.EncodeRate)
	fmt.Fprintf(w, "%s: %d samples, %d bytes\n", opts.Args[1], len(samples), encoded.Len())
	return nil
}
