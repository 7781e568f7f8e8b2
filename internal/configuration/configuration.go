// Package configuration reads the settings of the file system from an
// optional dotenv style file, overridden by the process environment.
package configuration

import (
	"fmt"
	"os"
	"strconv"
)

const (
	KeyVirtualRootPath = "TASKVFS_VIRTUAL_ROOT_PATH"
	KeyScreenWidth     = "TASKVFS_SCREEN_WIDTH"
	KeyScreenHeight    = "TASKVFS_SCREEN_HEIGHT"
	KeyPermissionsFile = "TASKVFS_PERMISSIONS_FILE"

	DefaultScreenWidth  = 64
	DefaultScreenHeight = 32
)

//nolint:gochecknoglobals
var keys = []string{
	KeyVirtualRootPath,
	KeyScreenWidth,
	KeyScreenHeight,
	KeyPermissionsFile,
}

type genericConfigProvider interface {
	Read(filenames ...string) (envMap map[string]string, err error)
}

type environmentProvider interface {
	LookupEnv(key string) (string, bool)
}

// Environment is the [environmentProvider] passing through to package [os].
type Environment struct{}

func (*Environment) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Settings is the principal structure holding the configuration.
type Settings struct {
	// VirtualRootPath is the host directory the native root is created in.
	// Empty means the working directory.
	VirtualRootPath string

	ScreenWidth  int
	ScreenHeight int

	// PermissionsFile is where owners and permissions are persisted.
	// Empty keeps them in memory.
	PermissionsFile string
}

// Handler is the principal implementation of the configuration reader.
type Handler struct {
	GenericHandler genericConfigProvider
	Environment    environmentProvider
}

// NewHandler returns a pointer to a new configuration [Handler].
func NewHandler(genericHandler genericConfigProvider, environment environmentProvider) *Handler {
	return &Handler{
		GenericHandler: genericHandler,
		Environment:    environment,
	}
}

func (c *Handler) ReadGeneric(filenames ...string) (map[string]string, error) {
	return c.GenericHandler.Read(filenames...)
}

func (c *Handler) MapKeyToString(envMap map[string]string, key string) string {
	if value, exists := envMap[key]; exists {
		return value
	}

	return ""
}

func (c *Handler) MapKeyToInt(envMap map[string]string, key string) int {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return -1
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}

	return intValue
}

// Load reads the given configuration files, if any, and overlays the
// process environment on top of them.
func (c *Handler) Load(filenames ...string) (*Settings, error) {
	envMap := make(map[string]string)

	if len(filenames) > 0 {
		fileMap, err := c.ReadGeneric(filenames...)
		if err != nil {
			return nil, fmt.Errorf("(config) failed to read: %w", err)
		}
		for key, value := range fileMap {
			envMap[key] = value
		}
	}

	for _, key := range keys {
		if value, ok := c.Environment.LookupEnv(key); ok {
			envMap[key] = value
		}
	}

	settings := &Settings{
		VirtualRootPath: c.MapKeyToString(envMap, KeyVirtualRootPath),
		ScreenWidth:     DefaultScreenWidth,
		ScreenHeight:    DefaultScreenHeight,
		PermissionsFile: c.MapKeyToString(envMap, KeyPermissionsFile),
	}

	for key, target := range map[string]*int{
		KeyScreenWidth:  &settings.ScreenWidth,
		KeyScreenHeight: &settings.ScreenHeight,
	} {
		if c.MapKeyToString(envMap, key) == "" {
			continue
		}

		value := c.MapKeyToInt(envMap, key)
		if value <= 0 || value > maxScreenDimension {
			return nil, fmt.Errorf("(config) %s=%q: %w", key, c.MapKeyToString(envMap, key), ErrInvalidValue)
		}
		*target = value
	}

	return settings, nil
}
