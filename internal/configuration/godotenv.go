package configuration

import (
	"fmt"

	"github.com/joho/godotenv"
)

// GodotenvProvider reads dotenv style files with [godotenv].
type GodotenvProvider struct{}

// Read merges the given files into one map (map[key]value). Later files do
// not override keys set by earlier ones.
func (*GodotenvProvider) Read(filenames ...string) (map[string]string, error) {
	data, err := godotenv.Read(filenames...)
	if err != nil {
		return data, fmt.Errorf("(config-godotenv) %w", err)
	}

	return data, nil
}
