package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertwitch/taskvfs/internal/graphics"
	"github.com/desertwitch/taskvfs/internal/native"
	"github.com/desertwitch/taskvfs/internal/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunFileDemo tests the file demo against a native root.
func TestRunFileDemo(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	handler := native.NewHandler(root, &native.OS{}, &native.Unix{}, nil)

	require.NoError(t, runFileDemo(vfs.Drivers{handler}, handler))
	require.NoError(t, runFileDemo(vfs.Drivers{handler}, handler))
	assert.Zero(t, handler.OpenCount())

	content, err := os.ReadFile(filepath.Join(root, "demo", "greeting.txt"))
	require.NoError(t, err)
	assert.Equal(t, 64, strings.Count(string(content), "hello from task 1\n"))
}

// TestBrush tests the clipping of brush strokes to the screen.
func TestBrush(t *testing.T) {
	t.Parallel()

	resolution := graphics.NewPoint(10, 10)

	t.Run("Success_Inside", func(t *testing.T) {
		t.Parallel()

		record, err := brush(graphics.NewPoint(5, 5), resolution, 7)
		require.NoError(t, err)

		data, err := graphics.DecodeScreenWriteData(record)
		require.NoError(t, err)
		assert.Equal(t, graphics.NewArea(graphics.NewPoint(4, 4), graphics.NewPoint(6, 6)), data.Area)
		assert.Len(t, data.Pixels, 9)
	})

	t.Run("Success_Corner", func(t *testing.T) {
		t.Parallel()

		record, err := brush(graphics.NewPoint(0, 9), resolution, 7)
		require.NoError(t, err)

		data, err := graphics.DecodeScreenWriteData(record)
		require.NoError(t, err)
		assert.Equal(t, graphics.NewArea(graphics.NewPoint(0, 8), graphics.NewPoint(1, 9)), data.Area)
	})

	t.Run("Fail_Outside", func(t *testing.T) {
		t.Parallel()

		_, err := brush(graphics.NewPoint(20, 20), resolution, 7)
		require.ErrorIs(t, err, graphics.ErrInvalidArea)
	})
}
