package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// File is a parsed configuration file holding one or more named datastores.
type File struct {
	Datastores map[string]*Datastore `yaml:"datastores"`
}

// env holds environment overrides for config discovery.
// HANDYDB_CONFIG points at an explicit config file.
type env struct {
	Config string `envconfig:"CONFIG"`
}

// Parse parses YAML config bytes. Datastores are not resolved yet; that
// happens per-datastore in Datastore so one bad entry does not poison the
// others.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if f.Datastores == nil {
		f.Datastores = map[string]*Datastore{}
	}
	for name, ds := range f.Datastores {
		ds.Name = name
	}
	return &f, nil
}

// Load reads and parses a YAML config file from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Discover returns the path of the config file to use, checking in order:
//
//  1. $HANDYDB_CONFIG
//  2. ./handydb.yml
//  3. $HOME/.handydb.yml
//
// Returns ErrNotFound if none exists.
func Discover() (string, error) {
	var e env
	if err := envconfig.Process("handydb", &e); err != nil {
		return "", fmt.Errorf("config: environment: %w", err)
	}

	candidates := make([]string, 0, 3)
	if e.Config != "" {
		candidates = append(candidates, e.Config)
	}
	candidates = append(candidates, "handydb.yml")
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".handydb.yml"))
	}

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", ErrNotFound
}

// Datastore returns the named datastore, resolved and ready for use.
func (f *File) Datastore(name string) (*Datastore, error) {
	ds, ok := f.Datastores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDatastore, name)
	}
	if err := ds.Resolve(); err != nil {
		return nil, err
	}
	return ds, nil
}
