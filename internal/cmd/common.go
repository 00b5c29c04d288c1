package cmd

import (
	"os"
	"path/filepath"
)

// resolveConfigPath returns the config path based on flags and project
// discovery. Priority:
//  1. explicit --config
//  2. project-local configs (in order):
//     ./.dbnav.yml, ./.dbnav/config.yml, ./dbnav.yml
//  3. fallback to ~/.dbnav/config.yml
func resolveConfigPath(cfg string) (string, error) {
	if cfg != "" {
		return cfg, nil
	}

	if wd, err := os.Getwd(); err == nil {
		candidates := []string{
			".dbnav.yml",
			filepath.Join(".dbnav", "config.yml"),
			"dbnav.yml",
		}
		for _, rel := range candidates {
			p := filepath.Join(wd, rel)
			if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
				return p, nil
			}
		}
	}

	return globalConfigPath()
}

func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".dbnav", "config.yml"), nil
}
