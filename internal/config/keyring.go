package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "prhelper"

	// KeyringGitHubTokenItem is the key for GitHub token
	KeyringGitHubTokenItem = "github-token"
)

// KeyringManager handles secure credential storage in OS keychain
type KeyringManager struct {
	logger *logrus.Entry
}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager(logger *logrus.Logger) *KeyringManager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &KeyringManager{
		logger: logger.WithField("component", "keyring"),
	}
}

// SaveGitHubToken stores the GitHub token in the OS keychain:
// - macOS: Keychain Access.app → "prhelper" → "github-token"
// - Windows: Credential Manager → "prhelper"
// - Linux: Secret Service (requires libsecret)
func (km *KeyringManager) SaveGitHubToken(token string) error {
	if token == "" {
		return fmt.Errorf("github token cannot be empty")
	}

	if err := keyring.Set(KeyringService, KeyringGitHubTokenItem, token); err != nil {
		km.logger.WithError(err).Error("Failed to save GitHub token to keychain")
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}

	km.logger.WithField("service", KeyringService).Info("GitHub token saved to keychain")
	return nil
}

// GetGitHubToken retrieves the GitHub token, "" when none is stored
func (km *KeyringManager) GetGitHubToken() (string, error) {
	token, err := keyring.Get(KeyringService, KeyringGitHubTokenItem)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}
	return token, nil
}

// DeleteGitHubToken removes GitHub token from OS keychain
func (km *KeyringManager) DeleteGitHubToken() error {
	err := keyring.Delete(KeyringService, KeyringGitHubTokenItem)
	if err == keyring.ErrNotFound {
		// Already deleted, not an error
		return nil
	}
	if err != nil {
		km.logger.WithError(err).Error("Failed to delete GitHub token from keychain")
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}

	km.logger.Info("GitHub token deleted from keychain")
	return nil
}

// IsAvailable checks if OS keychain is available.
// Returns false on headless systems (CI/CD) without a secret service.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "test-availability")
	if err == nil || err == keyring.ErrNotFound {
		return true
	}
	km.logger.WithError(err).Debug("Keychain not available")
	return false
}

// MaskToken masks a token for display: "ghp_abc...wxyz"
func MaskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", token[:7], token[len(token)-4:])
}
