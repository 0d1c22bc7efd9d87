// Package config loads and resolves datastore configuration: one primary
// endpoint plus zero or more named reader endpoints per datastore, with
// connection/statement caching flags. Resolved values are treated as
// read-only by the rest of the module.
package config

import (
	"errors"
	"fmt"
	"sort"
)

// RandomReader is the sentinel value for DefaultReader that requests a
// uniformly random reader per query.
const RandomReader = "__random__"

var (
	ErrUnknownDatastore = errors.New("config: unknown datastore")
	ErrNoPrimary        = errors.New("config: datastore has no primary")
	ErrBadEndpoint      = errors.New("config: malformed endpoint")
	ErrNotFound         = errors.New("config: no config file found")
)

// ValidDrivers is the list of supported database drivers.
var ValidDrivers = []string{"mysql", "postgres", "sqlite"}

// Server describes one physical database endpoint.
type Server struct {
	Driver   string   `yaml:"driver"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Database string   `yaml:"database"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password"`
	Schemas  []string `yaml:"schemas"`
}

// Datastore is a resolved datastore: a primary endpoint, named readers, and
// behavior flags. Build one with File.Datastore or fill it in directly for
// inline configuration, then call Resolve before use.
type Datastore struct {
	Name    string            `yaml:"-"`
	Primary Server            `yaml:"primary"`
	Readers map[string]Server `yaml:"readers"`

	// ReaderOrder is the stable iteration order over Readers, filled in by
	// Resolve. Random reader selection indexes into it.
	ReaderOrder []string `yaml:"-"`

	// DefaultReader names the reader used for reads when the caller does not
	// pick one. RandomReader requests a random choice per query.
	DefaultReader string `yaml:"default_reader"`

	CacheConnection bool `yaml:"cache_connection"`
	CacheStatements bool `yaml:"cache_statements"`
	AutoCommit      *bool `yaml:"auto_commit"`
}

// AutoCommitOn reports the resolved autocommit setting. Unset means on.
func (d *Datastore) AutoCommitOn() bool {
	return d.AutoCommit == nil || *d.AutoCommit
}

// Reader returns the named reader endpoint.
func (d *Datastore) Reader(name string) (Server, bool) {
	s, ok := d.Readers[name]
	return s, ok
}

// Resolve validates the datastore and applies defaulting: readers inherit
// the primary's driver, host, port, credentials, and schema list for any
// field they leave unset. It must be called once before the datastore is
// handed to the rest of the module.
func (d *Datastore) Resolve() error {
	if err := checkServer(d.Primary, d.Name+"/primary"); err != nil {
		return err
	}
	names := make([]string, 0, len(d.Readers))
	for name := range d.Readers {
		names = append(names, name)
	}
	sort.Strings(names)
	d.ReaderOrder = names

	for _, name := range names {
		r := d.Readers[name]
		inherit(&r, d.Primary)
		if err := checkServer(r, d.Name+"/"+name); err != nil {
			return err
		}
		d.Readers[name] = r
	}

	if d.DefaultReader != "" && d.DefaultReader != RandomReader {
		if _, ok := d.Readers[d.DefaultReader]; !ok {
			return fmt.Errorf("%w: %s: default_reader %q is not a configured reader",
				ErrBadEndpoint, d.Name, d.DefaultReader)
		}
	}
	return nil
}

// inherit fills unset reader fields from the primary endpoint.
func inherit(r *Server, primary Server) {
	if r.Driver == "" {
		r.Driver = primary.Driver
	}
	if r.Host == "" {
		r.Host = primary.Host
	}
	if r.Port == 0 {
		r.Port = primary.Port
	}
	if r.Database == "" {
		r.Database = primary.Database
	}
	if r.User == "" {
		r.User = primary.User
	}
	if r.Password == "" {
		r.Password = primary.Password
	}
	if len(r.Schemas) == 0 {
		r.Schemas = append([]string(nil), primary.Schemas...)
	}
}

func checkServer(s Server, label string) error {
	if s.Driver == "" {
		return fmt.Errorf("%w: %s: driver is required", ErrBadEndpoint, label)
	}
	for _, d := range ValidDrivers {
		if s.Driver == d {
			return nil
		}
	}
	return fmt.Errorf("%w: %s: unknown driver %q (supported: mysql, postgres, sqlite)",
		ErrBadEndpoint, label, s.Driver)
}
