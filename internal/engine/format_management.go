package engine

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gcbaptista/go-corpus-engine/config"
	"github.com/gcbaptista/go-corpus-engine/internal/errors"
)

const userFormatsDir = "formats"

// AddUserFormat validates an uploaded format file and registers it as "user:identifier",
// where the identifier is the file name without its format extensions. The file is kept
// under the data directory so the format survives a restart.
func (e *Engine) AddUserFormat(user, fileName string, data []byte) (string, error) {
	if !config.ValidFormatFileName(fileName) {
		return "", errors.NewValidationError("fileName",
			fmt.Sprintf("'%s' is not a valid format file name (expected name.blf.yaml, name.blf.json, name.yaml or name.json)", fileName))
	}
	format, err := config.LoadFormat(bytes.NewReader(data), config.EncodingForFile(fileName))
	if err != nil {
		return "", err
	}
	format.Name = config.FormatIdentifier(fileName)

	name, err := e.formats.RegisterUserFormat(user, format)
	if err != nil {
		return "", err
	}
	if !e.settings.InMemory {
		path := filepath.Join(e.settings.DataDir, userFormatsDir, user, fileName)
		if err := os.MkdirAll(filepath.Dir(path), dataDirPerm); err != nil {
			return "", fmt.Errorf("failed to create format directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return "", fmt.Errorf("failed to store format %s: %w", name, err)
		}
	}
	e.logger.Info("Registered user format", "format", name)
	return name, nil
}

// DeleteUserFormat unregisters a user format and removes its stored file
func (e *Engine) DeleteUserFormat(user, identifier string) error {
	name := UserFormatName(user, identifier)
	if err := e.formats.RemoveFormat(name); err != nil {
		return err
	}
	if e.settings.InMemory {
		return nil
	}
	dir := filepath.Join(e.settings.DataDir, userFormatsDir, user)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if config.FormatIdentifier(entry.Name()) == identifier {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				return fmt.Errorf("failed to remove stored format %s: %w", name, err)
			}
		}
	}
	return nil
}

// loadUserFormats registers the user formats stored under the data directory
func (e *Engine) loadUserFormats() {
	root := filepath.Join(e.settings.DataDir, userFormatsDir)
	users, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			e.logger.Warn("Failed to read user formats", "dir", root, "error", err)
		}
		return
	}
	for _, user := range users {
		if !user.IsDir() {
			continue
		}
		dir := filepath.Join(root, user.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			e.logger.Warn("Failed to read user formats", "dir", dir, "error", err)
			continue
		}
		for _, file := range files {
			if !config.ValidFormatFileName(file.Name()) {
				continue
			}
			path := filepath.Join(dir, file.Name())
			format, err := config.LoadFormatFile(path)
			if err != nil {
				e.logger.Warn("Skipping invalid user format", "path", path, "error", err)
				continue
			}
			format.Name = config.FormatIdentifier(file.Name())
			if _, err := e.formats.RegisterUserFormat(user.Name(), format); err != nil {
				e.logger.Warn("Skipping user format", "path", path, "error", err)
			}
		}
	}
}
