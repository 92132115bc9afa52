package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rohankatakam/prhelper/internal/errors"
	"golang.org/x/term"
)

// TokenSource names where a GitHub token came from
type TokenSource string

const (
	SourceNone     TokenSource = "none"
	SourceEnv      TokenSource = "env"
	SourceFile     TokenSource = "file"
	SourceKeychain TokenSource = "keychain"
)

// Environment variables checked for a token, highest priority first
var tokenEnvVars = []string{"GITHUB_ACCESS_TOKEN", "GITHUB_TOKEN", "GH_TOKEN"}

// CredentialManager handles credential retrieval with priority chain
// Priority: Environment Variables → Token File → Keychain
type CredentialManager struct {
	keyring   *KeyringManager
	tokenFile string
	getenv    func(string) string
}

// NewCredentialManager creates a credential manager reading tokenFile as
// the file fallback and km (may be nil) as the last resort
func NewCredentialManager(tokenFile string, km *KeyringManager) *CredentialManager {
	return &CredentialManager{
		keyring:   km,
		tokenFile: tokenFile,
		getenv:    os.Getenv,
	}
}

// GetGitHubToken retrieves the GitHub token using priority chain.
// No token anywhere yields a low severity config warning; callers go on
// unauthenticated.
func (cm *CredentialManager) GetGitHubToken() (string, TokenSource, error) {
	// 1. Environment variable (highest priority)
	for _, name := range tokenEnvVars {
		if token := strings.TrimSpace(cm.getenv(name)); token != "" {
			return token, SourceEnv, nil
		}
	}

	// 2. Token file
	if cm.tokenFile != "" {
		data, err := os.ReadFile(cm.tokenFile)
		switch {
		case err == nil:
			if token := strings.TrimSpace(string(data)); token != "" {
				return token, SourceFile, nil
			}
		case !os.IsNotExist(err):
			return "", SourceNone, errors.FileSystemErrorf(err, "failed to read token file %s", cm.tokenFile)
		}
	}

	// 3. Keychain
	if cm.keyring != nil && cm.keyring.IsAvailable() {
		if token, err := cm.keyring.GetGitHubToken(); err == nil && token != "" {
			return token, SourceKeychain, nil
		}
	}

	return "", SourceNone, errors.ConfigWarning(fmt.Sprintf(
		"no GitHub access token found, set GITHUB_ACCESS_TOKEN or create %s; requests are unauthenticated and heavily rate limited",
		cm.tokenFile))
}

// HasCredentials checks if a token is configured anywhere
func (cm *CredentialManager) HasCredentials() bool {
	token, _, err := cm.GetGitHubToken()
	return err == nil && token != ""
}

// PromptToken asks for a token on out and reads it from stdin without echo
func (cm *CredentialManager) PromptToken(out io.Writer) (string, error) {
	fmt.Fprint(out, "GitHub access token: ")
	token, err := readSecurely(out)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	if token == "" {
		return "", errors.ValidationError("token cannot be empty")
	}
	return token, nil
}

// readSecurely reads a password/token from stdin without echoing
func readSecurely(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		bytes, err := term.ReadPassword(fd)
		fmt.Fprintln(out) // New line after password input
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	// Fallback: Read from stdin (piped input)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
