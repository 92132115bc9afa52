package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rohankatakam/prhelper/internal/errors"
)

var (
	knownBackends = []string{"json", "bolt", "sqlite"}
	knownFormats  = []string{"text", "json", "yaml"}
	knownLevels   = []string{"trace", "debug", "info", "warn", "warning", "error"}
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range vr.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err)
	}
	return sb.String()
}

// Err returns the result as a validation error, or nil when valid
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return errors.ValidationError(strings.TrimSpace(vr.Error()))
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	c.validateProject(result)
	c.validateGitHub(result)
	c.validateCache(result)
	c.validateRanking(result)
	c.validateOutput(result)

	return result
}

func (c *Config) validateProject(result *ValidationResult) {
	if strings.TrimSpace(c.ProjectID) == "" {
		result.AddError("project_id must not be empty")
		return
	}
	if strings.ContainsAny(c.ProjectID, `/\`) {
		result.AddError("project_id %q must not contain path separators", c.ProjectID)
	}
}

func (c *Config) validateGitHub(result *ValidationResult) {
	if c.GitHub.APIURL != "" {
		if u, err := url.Parse(c.GitHub.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
			result.AddError("github.api_url %q is not an absolute URL", c.GitHub.APIURL)
		}
	}
	if c.GitHub.PullsURL == "" {
		result.AddError("github.pulls_url is required")
	} else if u, err := url.Parse(c.GitHub.PullsURL); err != nil || u.Scheme == "" || u.Host == "" {
		result.AddError("github.pulls_url %q is not an absolute URL", c.GitHub.PullsURL)
	}

	if c.GitHub.PerPage < 1 || c.GitHub.PerPage > 100 {
		result.AddError("github.per_page must be between 1 and 100 (got %d)", c.GitHub.PerPage)
	}
	if c.GitHub.RateLimit <= 0 {
		result.AddError("github.rate_limit must be positive (got %g)", c.GitHub.RateLimit)
	}
	if c.GitHub.RetryAttempts == 0 {
		result.AddWarning("github.retry_attempts is 0, using 1 attempt")
	}
	if c.GitHub.Timeout < 0 {
		result.AddError("github.timeout must be >= 0")
	}
	if c.GitHub.Proxy != "" {
		if u, err := url.Parse(c.GitHub.Proxy); err != nil || u.Host == "" {
			result.AddError("github.proxy %q is not a valid URL", c.GitHub.Proxy)
		}
	}
}

func (c *Config) validateCache(result *ValidationResult) {
	if c.Cache.TTL < 0 {
		result.AddError("cache.ttl must be >= 0 (got %s)", c.Cache.TTL)
	}
	if !contains(knownBackends, c.Cache.Backend) {
		result.AddError("cache.backend %q is not one of %s", c.Cache.Backend, strings.Join(knownBackends, ", "))
	}
	if c.Cache.Directory == "" {
		result.AddWarning("cache.directory is empty, using the working directory")
	}
}

func (c *Config) validateRanking(result *ValidationResult) {
	if c.Ranking.MaxFileConflicts < 0 {
		result.AddError("ranking.max_file_conflicts must be >= 0 (got %d)", c.Ranking.MaxFileConflicts)
	}
	if c.Ranking.Workers < 1 {
		result.AddError("ranking.workers must be >= 1 (got %d)", c.Ranking.Workers)
	}
}

func (c *Config) validateOutput(result *ValidationResult) {
	if !contains(knownFormats, c.Output.Format) {
		result.AddError("output.format %q is not one of %s", c.Output.Format, strings.Join(knownFormats, ", "))
	}
	if c.Log.Level != "" && !contains(knownLevels, strings.ToLower(c.Log.Level)) {
		result.AddError("log.level %q is not a known level", c.Log.Level)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
