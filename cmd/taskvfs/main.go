package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/desertwitch/taskvfs/internal/configuration"
	"github.com/desertwitch/taskvfs/internal/native"
	"github.com/desertwitch/taskvfs/internal/permissions"
	"github.com/desertwitch/taskvfs/internal/vfs"
	"github.com/lmittmann/tint"
)

const (
	stackTraceBufMax = 1 << 24
)

//nolint:gochecknoglobals
var (
	ExitCode = 0
	Version  string

	configFile   = flag.String("config", "", "read settings from this dotenv file")
	debugEnabled = flag.Bool("debug", false, "enable debug logging")
	displayMode  = flag.Bool("display", false, "attach screen and pointer devices drawn in the terminal")
)

func setupLogging(w io.Writer) {
	level := slog.LevelInfo
	if debugEnabled != nil && *debugEnabled {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	))
}

func setupSignalHandlers(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChan
		cancel()
	}()

	sigChan2 := make(chan os.Signal, 1)
	signal.Notify(sigChan2, syscall.SIGUSR1)
	go func() {
		for range sigChan2 {
			buf := make([]byte, stackTraceBufMax)
			stacklen := runtime.Stack(buf, true)
			os.Stderr.Write(buf[:stacklen])
		}
	}()
}

func newPolicy(settings *configuration.Settings) (vfs.SecurityPolicy, error) {
	if settings.PermissionsFile == "" {
		return vfs.AllowAll{}, nil
	}

	return permissions.Open(settings.PermissionsFile)
}

func main() {
	defer func() {
		os.Exit(ExitCode)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flag.Parse()
	setupLogging(os.Stdout)
	setupSignalHandlers(cancel)

	var files []string
	if *configFile != "" {
		files = append(files, *configFile)
	}

	configHandler := configuration.NewHandler(&configuration.GodotenvProvider{}, &configuration.Environment{})

	settings, err := configHandler.Load(files...)
	if err != nil {
		slog.Error("Failed to load the configuration.",
			"err", err,
		)
		ExitCode = 1

		return
	}

	policy, err := newPolicy(settings)
	if err != nil {
		slog.Error("Failed to open the permissions file.",
			"path", settings.PermissionsFile,
			"err", err,
		)
		ExitCode = 1

		return
	}

	nativeHandler, err := native.New(settings.VirtualRootPath, policy)
	if err != nil {
		slog.Error("Failed to establish the native file system.",
			"err", err,
		)
		ExitCode = 1

		return
	}

	slog.Info("Native file system ready.",
		"version", Version,
		"root", nativeHandler.Root(),
	)

	drivers := vfs.Drivers{nativeHandler}

	if err := runFileDemo(drivers, nativeHandler); err != nil {
		slog.Error("File demo failed.",
			"err", err,
		)
		ExitCode = 1

		return
	}

	if *displayMode {
		if err := runDisplay(ctx, cancel, settings, policy, drivers); err != nil {
			slog.Error("Display failed.",
				"err", err,
			)
			ExitCode = 1
		}
	}
}
