package build

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/modfile"
)

// Kind identifies a supported toolchain.
type Kind string

// Supported toolchains.
const (
	Rust   Kind = "rust"
	Go     Kind = "go"
	Gleam  Kind = "gleam"
	NodeJS Kind = "nodejs"
)

// Key files, these identify the toolchain of a project.
const (
	cargoManifest  = "Cargo.toml"
	goManifest     = "go.mod"
	gleamManifest  = "gleam.toml"
	nodejsManifest = "package.json"
	rustReleaseDir = "target/release"
	gleamShipment  = "build/erlang-shipment"
	// gleamEntrypoint starts an exported shipment.
	gleamEntrypoint = "entrypoint.sh"
)

var goVersionSuffix = regexp.MustCompile(`^v[0-9]+$`)

// Toolchain describes how to build one kind of project.
type Toolchain struct {
	Kind     Kind
	Manifest string
	// Command is run in the manifest's directory, projects with no Command
	// are deployed as they are.
	Command []string
	// Artifact returns the path to deploy and the declared binary name, given
	// the path of the manifest.
	//
	// The returned artifact path is always usable, an error reports that the
	// manifest could not be read and the default location was used.
	Artifact func(manifest string) (string, string, error)
}

var toolchains = []Toolchain{
	{
		Kind:     Rust,
		Manifest: cargoManifest,
		Command:  []string{"cargo", "build", "--release"},
		Artifact: rustArtifact,
	},
	{
		Kind:     Go,
		Manifest: goManifest,
		Command:  []string{"go", "build", "."},
		Artifact: goArtifact,
	},
	{
		Kind:     Gleam,
		Manifest: gleamManifest,
		Command:  []string{"gleam", "export", "erlang-shipment"},
		Artifact: gleamArtifact,
	},
	{
		Kind:     NodeJS,
		Manifest: nodejsManifest,
		Artifact: nodejsArtifact,
	},
}

func toolchainForFile(name string) (Toolchain, bool) {
	for _, tc := range toolchains {
		if tc.Manifest == name {
			return tc, true
		}
	}
	return Toolchain{}, false
}

func toolchainForKind(k Kind) (Toolchain, bool) {
	for _, tc := range toolchains {
		if tc.Kind == k {
			return tc, true
		}
	}
	return Toolchain{}, false
}

type tomlPackage struct {
	Name string `toml:"name"`
}

func rustArtifact(manifest string) (string, string, error) {
	artifact := filepath.Join(filepath.Dir(manifest), rustReleaseDir)
	var cargo struct {
		Package tomlPackage `toml:"package"`
	}
	if _, err := toml.DecodeFile(manifest, &cargo); err != nil {
		return artifact, "", fmt.Errorf("failed to parse %s: %w", manifest, err)
	}
	return artifact, cargo.Package.Name, nil
}

// The binary from "go build ." is named after the last element of the module
// path that isn't a major version suffix, and is written alongside go.mod.
func goArtifact(manifest string) (string, string, error) {
	dir := filepath.Dir(manifest)
	data, err := os.ReadFile(manifest)
	if err != nil {
		return dir, "", err
	}
	module := modfile.ModulePath(data)
	if module == "" {
		return dir, "", nil
	}
	binary := path.Base(module)
	if goVersionSuffix.MatchString(binary) && path.Dir(module) != "." {
		binary = path.Base(path.Dir(module))
	}
	return filepath.Join(dir, binary), binary, nil
}

func gleamArtifact(manifest string) (string, string, error) {
	artifact := filepath.Join(filepath.Dir(manifest), gleamShipment)
	var gleam tomlPackage
	if _, err := toml.DecodeFile(manifest, &gleam); err != nil {
		return artifact, "", fmt.Errorf("failed to parse %s: %w", manifest, err)
	}
	return artifact, gleam.Name, nil
}

func nodejsArtifact(manifest string) (string, string, error) {
	dir := filepath.Dir(manifest)
	data, err := os.ReadFile(manifest)
	if err != nil {
		return dir, "", err
	}
	var pkg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return dir, "", fmt.Errorf("failed to parse %s: %w", manifest, err)
	}
	return dir, pkg.Name, nil
}
