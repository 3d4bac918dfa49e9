// Package config loads the deployer configuration.
//
// The configuration is a single file, its format is chosen by the file
// extension: .toml, .yaml or .yml, and .json or .jsonc (JSON with comments and
// trailing commas).
package config

import (
	"time"
)

// Provider identifies the repository hosting service.
type Provider string

// Supported providers.
const (
	GitHub Provider = "github"
	GitLab Provider = "gitlab"
)

const defaultPollInterval = time.Minute

// Config is the deployer configuration.
type Config struct {
	// Repository is the HTTPS URL of the repository to watch.
	Repository string `toml:"repository" yaml:"repository" json:"repository"`
	Branch     string `toml:"branch" yaml:"branch" json:"branch"`
	Token      string `toml:"token" yaml:"token" json:"token"`
	// TokenFile is read instead of Token if it is set.
	TokenFile string   `toml:"token_file,omitempty" yaml:"token_file,omitempty" json:"token_file,omitempty"`
	Provider  Provider `toml:"provider,omitempty" yaml:"provider,omitempty" json:"provider,omitempty"`
	// APIURL overrides the API endpoint derived from the repository URL.
	APIURL string `toml:"api_url,omitempty" yaml:"api_url,omitempty" json:"api_url,omitempty"`
	// PullDir is where workspaces are cloned.
	PullDir string `toml:"pull_dir" yaml:"pull_dir" json:"pull_dir"`
	// SysSvcDir is the systemd unit directory.
	SysSvcDir    string   `toml:"sys_svc_dir" yaml:"sys_svc_dir" json:"sys_svc_dir"`
	PollInterval Duration `toml:"poll_interval,omitempty" yaml:"poll_interval,omitempty" json:"poll_interval,omitempty"`
	// StrictBuilds skips deploying a service if its build fails.
	StrictBuilds bool      `toml:"strict_builds,omitempty" yaml:"strict_builds,omitempty" json:"strict_builds,omitempty"`
	Services     []Service `toml:"services" yaml:"services" json:"services"`
}

// Service is a deployable unit built from the repository.
type Service struct {
	Name         string `toml:"name" yaml:"name" json:"name"`
	UnitFilename string `toml:"svc_filename" yaml:"svc_filename" json:"svc_filename"`
	// DeployDir is the directory that the artifact is moved into, as
	// DeployDir/Name.
	DeployDir string `toml:"build_dir" yaml:"build_dir" json:"build_dir"`
	// SourceSubdir is the directory within the repository to build, if the
	// project isn't at the root.
	SourceSubdir  string   `toml:"custom_dir,omitempty" yaml:"custom_dir,omitempty" json:"custom_dir,omitempty"`
	UnitFileLines []string `toml:"svc_file_contents" yaml:"svc_file_contents" json:"svc_file_contents"`
	// When is an optional CEL expression, the service is only deployed if it
	// evaluates to true for the polled commit.
	When string `toml:"when,omitempty" yaml:"when,omitempty" json:"when,omitempty"`
}

// GetPollInterval returns the configured delay between polls.
func (c Config) GetPollInterval() time.Duration {
	if c.PollInterval.Duration == 0 {
		return defaultPollInterval
	}
	return c.PollInterval.Duration
}

// GetProvider returns the configured provider, defaulting to GitHub.
func (c Config) GetProvider() Provider {
	if c.Provider == "" {
		return GitHub
	}
	return c.Provider
}

// Default returns an example configuration, with placeholders that must be
// replaced.
func Default() Config {
	return Config{
		Repository: "https://github.com/your-repository/link",
		Branch:     "main",
		Token:      "YOUR-GITHUB-TOKEN-HERE",
		PullDir:    "/var/www",
		SysSvcDir:  "/lib/systemd/system",
		Services: []Service{
			{
				Name:          "service-name",
				UnitFilename:  "service-filename.service",
				DeployDir:     "/var/www/my_service",
				UnitFileLines: []string{"[Unit]", "Description=Your desc"},
			},
		},
	}
}
