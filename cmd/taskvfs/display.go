package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/desertwitch/taskvfs/internal/configuration"
	"github.com/desertwitch/taskvfs/internal/device"
	"github.com/desertwitch/taskvfs/internal/graphics"
	"github.com/desertwitch/taskvfs/internal/terminal"
	"github.com/desertwitch/taskvfs/internal/vfs"
	"github.com/desertwitch/taskvfs/internal/vpath"
)

const (
	paintTask     vfs.TaskID = 3
	paintInterval            = 16 * time.Millisecond
	brushRadius              = 1
)

//nolint:gochecknoglobals
var (
	screenPath  = vpath.MustNew("/screen")
	pointerPath = vpath.MustNew("/pointer")

	palette = []graphics.Color{
		graphics.NewColor(0xF2, 0x5F, 0x5C),
		graphics.NewColor(0xFF, 0xE0, 0x66),
		graphics.NewColor(0x24, 0x7B, 0xA0),
		graphics.NewColor(0x70, 0xC1, 0xB3),
	}
)

// runDisplay mounts a terminal backed screen and pointer and runs a paint
// task on them until the terminal quits.
func runDisplay(ctx context.Context, cancel context.CancelFunc, settings *configuration.Settings, policy vfs.SecurityPolicy, drivers vfs.Drivers) error {
	term := terminal.New(ctx, settings.ScreenWidth, settings.ScreenHeight)

	// A quit event ends the process through the regular shutdown path, so
	// the terminal is restored before exiting.
	exit := func(code int) {
		ExitCode = code
		cancel()
	}

	devices := device.NewDriver(policy)
	if err := devices.Attach(screenPath, device.NewScreen(term, settings.ScreenWidth*settings.ScreenHeight)); err != nil {
		return fmt.Errorf("(main) %w", err)
	}
	if err := devices.Attach(pointerPath, device.NewPointer(terminal.WindowID, term, exit)); err != nil {
		return fmt.Errorf("(main) %w", err)
	}

	drivers = append(drivers, devices)

	setupLogging(term.LogWriter)
	defer setupLogging(os.Stdout)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if err := drivers.CloseAll(paintTask); err != nil {
				slog.Warn("Failed to release the devices of the paint task.", "err", err)
			}
		}()

		for !term.Ready.Load() {
			if term.Failed.Load() || ctx.Err() != nil {
				return
			}
			time.Sleep(time.Millisecond)
		}

		if err := paint(ctx, devices); err != nil {
			slog.Error("Paint task failed.", "err", err)
		}
	}()

	err := term.Launch()
	cancel()
	wg.Wait()

	if err != nil {
		return fmt.Errorf("(main) %w", err)
	}

	return nil
}

// paint draws a square brush wherever the pointer is pressed.
func paint(ctx context.Context, driver vfs.Driver) error {
	screen, err := driver.Open(paintTask, screenPath, vfs.NewFlags(vfs.ReadWrite))
	if err != nil {
		return fmt.Errorf("(main) %w", err)
	}

	pointer, err := driver.Open(paintTask, pointerPath, vfs.NewFlags(vfs.ReadOnly))
	if err != nil {
		return fmt.Errorf("(main) %w", err)
	}

	resolutionBuffer := make([]byte, graphics.ScreenReadDataSize)
	if _, err := driver.Read(paintTask, screen, resolutionBuffer); err != nil {
		return fmt.Errorf("(main) %w", err)
	}

	resolution, err := graphics.DecodeScreenReadData(resolutionBuffer)
	if err != nil {
		return fmt.Errorf("(main) %w", err)
	}

	slog.Info("Screen attached, draw with the left mouse button.",
		"resolution", resolution.Resolution.String(),
	)

	ticker := time.NewTicker(paintInterval)
	defer ticker.Stop()

	pointerBuffer := make([]byte, graphics.PointerDataSize)
	strokes := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if _, err := driver.Read(paintTask, pointer, pointerBuffer); err != nil {
			return fmt.Errorf("(main) %w", err)
		}

		state, err := graphics.DecodePointerData(pointerBuffer)
		if err != nil {
			return fmt.Errorf("(main) %w", err)
		}

		if state.Touch != graphics.Pressed {
			continue
		}

		record, err := brush(state.Point, resolution.Resolution, palette[strokes%len(palette)])
		if err != nil {
			continue
		}

		if _, err := driver.Write(paintTask, screen, record); err != nil {
			return fmt.Errorf("(main) %w", err)
		}
		strokes++
	}
}

// brush returns a screen write record for a square around center, clipped
// to the resolution.
func brush(center, resolution graphics.Point, c graphics.Color) ([]byte, error) {
	area := graphics.NewArea(
		graphics.NewPoint(max(center.X-brushRadius, 0), max(center.Y-brushRadius, 0)),
		graphics.NewPoint(min(center.X+brushRadius, resolution.X-1), min(center.Y+brushRadius, resolution.Y-1)),
	)

	pixels := make([]graphics.Color, max(area.PixelCount(), 0))
	for i := range pixels {
		pixels[i] = c
	}

	return graphics.ScreenWriteData{Area: area, Pixels: pixels}.Encode()
}
