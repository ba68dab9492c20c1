// Package dotenv applies KEY=VALUE pairs from local env files to the
// process environment. Variables already set in the environment win.
package dotenv

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Load reads each named file in order and sets any variables that are not
// already present in the environment. Missing files are skipped.
func Load(paths ...string) error {
	for _, path := range paths {
		if err := loadFile(path); err != nil {
			return err
		}
	}
	return nil
}

func loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read env file %q: %w", path, err)
	}

	for _, line := range strings.Split(string(raw), "\n") {
		key, val, ok := parseLine(line)
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf("set env %q from %q: %w", key, path, err)
		}
	}
	return nil
}

func parseLine(line string) (key, val string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")

	key, val, found := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" {
		return "", "", false
	}

	return key, unquote(strings.TrimSpace(val)), true
}

func unquote(val string) string {
	if len(val) < 2 {
		return val
	}
	first, last := val[0], val[len(val)-1]
	if first == last && (first == '"' || first == '\'') {
		return val[1 : len(val)-1]
	}
	return val
}
