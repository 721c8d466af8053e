package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"gfxcore/internal/config"
	"gfxcore/internal/graphics/headless"
	"gfxcore/internal/graphics/renderer"
)

func TestRunAndWriteOverlay(t *testing.T) {
	opts := options{frames: 4, width: 320, height: 240, diagnostics: true}
	s := config.Default()
	s.Render.ShowDiagnostics = true

	dev := headless.NewDevice(opts.width, opts.height)
	ctx, err := renderer.NewDrawingContext(dev, nil, s, nil)
	require.NoError(t, err)
	defer ctx.Close()

	lines, err := run(ctx, dev, opts, ctx.Logger())
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	assert.Equal(t, 4, ctx.CurrentFrame())

	var buf bytes.Buffer
	require.NoError(t, writeOverlay(&buf, lines))
	img, err := bmp.Decode(&buf)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
	assert.Positive(t, img.Bounds().Dy())
}

func TestDumpBindsCleanups(t *testing.T) {
	dir := t.TempDir()
	var cleanups []func()
	bind := func(f func()) { cleanups = append(cleanups, f) }

	opts := options{out: filepath.Join(dir, "frame.bmp"), frames: 2, width: 160, height: 120}
	require.NoError(t, dump(opts, bind))
	assert.Len(t, cleanups, 2, "context and output file")
	for _, f := range cleanups {
		f()
	}

	data, err := os.ReadFile(opts.out)
	require.NoError(t, err)
	_, err = bmp.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestDumpErrorStillBindsContext(t *testing.T) {
	var cleanups []func()
	bind := func(f func()) { cleanups = append(cleanups, f) }

	opts := options{out: filepath.Join(t.TempDir(), "missing", "frame.bmp"), frames: 1, width: 64, height: 64}
	err := dump(opts, bind)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output")
	require.Len(t, cleanups, 1, "context close is registered before the failure")
	cleanups[0]()
}

func TestDumpBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("render = ["), 0o644))

	var cleanups []func()
	err := dump(options{configPath: path, out: "unused.bmp", frames: 1, width: 64, height: 64},
		func(f func()) { cleanups = append(cleanups, f) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings")
	assert.Empty(t, cleanups)
}
