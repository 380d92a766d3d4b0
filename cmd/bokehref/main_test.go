package main

import (
	"os"
	"path/filepath"
	"testing"

	"bokeh-gl/config"
	"bokeh-gl/dof"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendFlag(t *testing.T) {
	var b backend
	for in, want := range map[string]backend{
		"sw": backendSw, "software": backendSw,
		"GL": backendGl, "opengl": backendGl,
		"cl": backendCl, "opencl": backendCl,
	} {
		require.NoError(t, b.Set(in), in)
		assert.Equal(t, want, b)
	}
	assert.Error(t, b.Set("vulkan"))
}

func TestViewSpaceInputsMatchScene(t *testing.T) {
	const w, h = 64, 36
	gb, view := renderGBuffer(w, h)
	world := dof.Frame{Color: gb.Color, Position: gb.Position.Clone(), View: view}

	dir := t.TempDir()
	toViewSpace(gb.Position, view)
	require.NoError(t, writeFloatImage(filepath.Join(dir, "color.f32"), gb.Color, 0))
	require.NoError(t, writeFloatImage(filepath.Join(dir, "position.f32"), gb.Position, 0))

	cfg = config.DefaultConfig()
	fromFiles, err := loadFrame(renderArgs{}, []string{filepath.Join(dir, "color.f32"), filepath.Join(dir, "position.f32")})
	require.NoError(t, err)

	p := dof.DefaultParams()
	want, err := dof.NewSoftware(w, h).Draw(world, p)
	require.NoError(t, err)
	sw := dof.NewSoftware(w, h)
	got, err := sw.Draw(fromFiles, p)
	require.NoError(t, err)

	assert.InDeltaSlice(t, want.Pix, got.Pix, 1e-2)
}

func TestWriteResult(t *testing.T) {
	cfg = config.DefaultConfig()
	gb, _ := renderGBuffer(8, 8)
	dir := t.TempDir()

	for _, name := range []string{"out.png", "sub/out.f32"} {
		path := filepath.Join(dir, name)
		require.NoError(t, writeResult(path, gb.Color))
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())
	}

	img, err := readFloatImage(filepath.Join(dir, "sub/out.f32"))
	require.NoError(t, err)
	assert.Equal(t, gb.Color.Pix, img.Pix)
}
