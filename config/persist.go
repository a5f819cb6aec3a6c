package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/openroad/roadcall/errors"
)

// Save validates cfg and writes it to configPath as TOML, rotating backups
// (.back1-.back3) first. An invalid configuration is never written.
func Save(cfg *Config, configPath string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to back up config")
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
			return errors.Wrapf(err, "failed to create config directory %s", dir)
		}
	}

	// Write to a temp file and rename for an atomic replace
	tmp := configPath + ".tmp"
	if err := os.WriteFile(tmp, data, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", tmp)
	}
	if err := os.Rename(tmp, configPath); err != nil {
		return errors.Wrapf(err, "failed to replace %s", configPath)
	}

	return nil
}

// createBackup creates rotating backups (.back1, .back2, .back3) before
// modifying the config file.
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to backup
	}

	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	// Rotate: .back3 -> delete, .back2 -> .back3, .back1 -> .back2, current -> .back1
	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete oldest backup")
	}
	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read current config")
	}
	if err := os.WriteFile(back1, data, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write .back1")
	}

	return nil
}

// isBackupFile checks if the file is one of our rotating backups.
func isBackupFile(path string) bool {
	base := filepath.Base(path)
	return base == "roadcall.toml.back1" ||
		base == "roadcall.toml.back2" ||
		base == "roadcall.toml.back3" ||
		base == "roadcall.toml.tmp"
}
