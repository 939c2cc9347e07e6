package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	TokenFileName = "data_token"

	keyringService = "runweight"
	keyringUser    = "data_token"
	fileMode       = 0600
)

var ErrTokenNotFound = errors.New("access token not found")

// SaveToken stores the data-source access token in the OS keychain. When the
// keychain is unavailable the token is written to a file in dir.
func SaveToken(dir, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is required")
	}

	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return saveTokenFile(dir, token)
	}

	removeTokenFile(dir)
	return nil
}

// GetToken returns the stored token, preferring the keychain. A token found
// only in the file is migrated to the keychain when possible.
func GetToken(dir string) (string, error) {
	token, err := keyring.Get(keyringService, keyringUser)
	if err == nil && token != "" {
		return token, nil
	}

	token, err = getTokenFile(dir)
	if err != nil {
		return "", err
	}

	if err := keyring.Set(keyringService, keyringUser, token); err == nil {
		slog.Info("migrated token from file to OS keychain")
		removeTokenFile(dir)
	}

	return token, nil
}

// DeleteToken removes the token from the keychain and the file fallback.
func DeleteToken(dir string) error {
	err := keyring.Delete(keyringService, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		slog.Warn("error deleting token from keychain", "error", err)
	}
	removeTokenFile(dir)
	return nil
}

func tokenPath(dir string) string {
	return filepath.Join(dir, TokenFileName)
}

func saveTokenFile(dir, token string) error {
	if dir == "" {
		return errors.New("token directory required")
	}
	if err := os.WriteFile(tokenPath(dir), []byte(token), fileMode); err != nil {
		return fmt.Errorf("error writing token file: %w", err)
	}
	return nil
}

func getTokenFile(dir string) (string, error) {
	if dir == "" {
		return "", ErrTokenNotFound
	}
	b, err := os.ReadFile(tokenPath(dir))
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error reading token file: %w", err)
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", ErrTokenNotFound
	}
	return token, nil
}

func removeTokenFile(dir string) {
	if dir == "" {
		return
	}
	if err := os.Remove(tokenPath(dir)); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Debug("error removing token file", "error", err)
	}
}
