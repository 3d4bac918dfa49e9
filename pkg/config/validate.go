package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bigkevmcd/host-deployer/pkg/cel"
)

// Validate checks that the configuration is complete and consistent.
func (c Config) Validate() error {
	var errs []error
	required := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", field))
		}
	}
	required("repository", c.Repository)
	required("branch", c.Branch)
	required("pull_dir", c.PullDir)
	required("sys_svc_dir", c.SysSvcDir)
	if c.Token == "" && c.TokenFile == "" {
		errs = append(errs, errors.New("one of token or token_file is required"))
	}
	switch c.Provider {
	case "", GitHub, GitLab:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	if c.PollInterval.Duration != 0 && c.PollInterval.Duration < time.Second {
		errs = append(errs, fmt.Errorf("poll_interval %s is less than 1s", c.PollInterval))
	}
	if len(c.Services) == 0 {
		errs = append(errs, errors.New("at least one service is required"))
	}

	names := map[string]bool{}
	units := map[string]bool{}
	for i, svc := range c.Services {
		field := func(name string) string {
			return fmt.Sprintf("services[%d].%s", i, name)
		}
		required(field("name"), svc.Name)
		required(field("svc_filename"), svc.UnitFilename)
		required(field("build_dir"), svc.DeployDir)
		if svc.Name != "" && !isFilename(svc.Name) {
			errs = append(errs, fmt.Errorf("%s %q must be a single file name", field("name"), svc.Name))
		}
		if svc.UnitFilename != "" && !isFilename(svc.UnitFilename) {
			errs = append(errs, fmt.Errorf("%s %q must be a single file name", field("svc_filename"), svc.UnitFilename))
		}
		if svc.SourceSubdir != "" && !filepath.IsLocal(svc.SourceSubdir) {
			errs = append(errs, fmt.Errorf("%s %q must be a relative path within the repository", field("custom_dir"), svc.SourceSubdir))
		}
		if svc.When != "" {
			if err := cel.Check(svc.When); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", field("when"), err))
			}
		}
		if names[svc.Name] {
			errs = append(errs, fmt.Errorf("%s %q is not unique", field("name"), svc.Name))
		}
		if units[svc.UnitFilename] {
			errs = append(errs, fmt.Errorf("%s %q is not unique", field("svc_filename"), svc.UnitFilename))
		}
		names[svc.Name] = true
		units[svc.UnitFilename] = true
	}
	return errors.Join(errs...)
}

// isFilename returns true if name is a single path element that names a file
// within its parent, "." and ".." name the parent or its parent.
func isFilename(name string) bool {
	return name != "." && name != ".." && !strings.ContainsRune(name, filepath.Separator)
}
