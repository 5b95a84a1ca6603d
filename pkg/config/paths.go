package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigDir returns the per-user configuration directory,
// $XDG_CONFIG_HOME/viewtext or ~/.config/viewtext.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "viewtext")
}

// ResolvePath finds a configuration file given on the command line. It
// checks, in order: the path as given, the path with a .toml extension, the
// path under ConfigDir, and that path with a .toml extension.
func ResolvePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty config path")
	}
	if fileExists(name) {
		return filepath.Abs(name)
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("could not find config file %q", name)
	}
	noExt := filepath.Ext(name) == ""
	if noExt && fileExists(name+".toml") {
		return filepath.Abs(name + ".toml")
	}

	dir := ConfigDir()
	candidate := filepath.Join(dir, name)
	if fileExists(candidate) {
		return candidate, nil
	}
	if noExt && fileExists(candidate+".toml") {
		return candidate + ".toml", nil
	}
	return "", fmt.Errorf("could not find config file %q; checked current directory and %s", name, dir)
}

// ResolvePaths resolves every name, defaulting to DefaultFile.
func ResolvePaths(names []string) ([]string, error) {
	if len(names) == 0 {
		names = []string{DefaultFile}
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		p, err := ResolvePath(n)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
