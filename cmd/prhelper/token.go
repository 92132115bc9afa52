package main

import (
	"fmt"

	"github.com/rohankatakam/prhelper/internal/config"
	"github.com/rohankatakam/prhelper/internal/errors"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the GitHub access token stored in the OS keychain",
	Long: `Manage the GitHub access token stored in the OS keychain.

The token is looked up in this order:
  1. GITHUB_ACCESS_TOKEN, GITHUB_TOKEN or GH_TOKEN
  2. the token file (default: github.token)
  3. the OS keychain`,
}

var tokenSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Read a token from the terminal and save it to the keychain",
	Args:  cobra.NoArgs,
	RunE:  runTokenSet,
}

var tokenDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the token from the keychain",
	Args:  cobra.NoArgs,
	RunE:  runTokenDelete,
}

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show where the token comes from, masked",
	Args:  cobra.NoArgs,
	RunE:  runTokenShow,
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenDeleteCmd)
	tokenCmd.AddCommand(tokenShowCmd)
}

func keychain() (*config.KeyringManager, error) {
	km := config.NewKeyringManager(logger.Logger)
	if !km.IsAvailable() {
		return nil, errors.ConfigError("OS keychain is not available, use GITHUB_ACCESS_TOKEN or a token file instead")
	}
	return km, nil
}

func runTokenSet(cmd *cobra.Command, args []string) error {
	km, err := keychain()
	if err != nil {
		return err
	}

	creds := config.NewCredentialManager(cfg.GitHub.TokenFile, km)
	token, err := creds.PromptToken(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if err := km.SaveGitHubToken(token); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved token %s to the keychain\n", config.MaskToken(token))
	return nil
}

func runTokenDelete(cmd *cobra.Command, args []string) error {
	km, err := keychain()
	if err != nil {
		return err
	}
	if err := km.DeleteGitHubToken(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Removed token from the keychain")
	return nil
}

func runTokenShow(cmd *cobra.Command, args []string) error {
	creds := config.NewCredentialManager(cfg.GitHub.TokenFile, config.NewKeyringManager(logger.Logger))
	token, source, err := creds.GetGitHubToken()
	if err != nil && errors.GetSeverity(err) != errors.SeverityLow {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Source: %s\nToken:  %s\n", source, config.MaskToken(token))
	return nil
}
