// Package route selects which physical endpoint of a datastore serves a
// query. Writes always land on the primary; reads prefer an explicitly
// requested reader, then the configured default, then a random reader, and
// fall back to the primary when no readers exist.
package route

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/handydb/handydb/config"
)

// PrimaryName labels the primary endpoint in selection results and
// connection caching.
const PrimaryName = "primary"

var ErrUnknownServer = errors.New("route: unknown server")

// Select picks the endpoint for one query. explicit is the caller-requested
// server name ("" for none) and applies only to reads; a write always pins
// the primary regardless of it. An explicit name that is not a configured
// reader is a configuration error.
func Select(explicit string, write bool, ds *config.Datastore) (string, config.Server, error) {
	if write {
		return PrimaryName, ds.Primary, nil
	}

	if explicit != "" {
		if explicit == PrimaryName {
			return PrimaryName, ds.Primary, nil
		}
		srv, ok := ds.Reader(explicit)
		if !ok {
			return "", config.Server{}, fmt.Errorf("%w: %q on datastore %q", ErrUnknownServer, explicit, ds.Name)
		}
		return explicit, srv, nil
	}

	if len(ds.ReaderOrder) == 0 {
		return PrimaryName, ds.Primary, nil
	}

	if ds.DefaultReader != "" && ds.DefaultReader != config.RandomReader {
		srv, ok := ds.Reader(ds.DefaultReader)
		if !ok {
			return "", config.Server{}, fmt.Errorf("%w: default reader %q on datastore %q",
				ErrUnknownServer, ds.DefaultReader, ds.Name)
		}
		return ds.DefaultReader, srv, nil
	}

	name := ds.ReaderOrder[rand.IntN(len(ds.ReaderOrder))]
	srv, _ := ds.Reader(name)
	return name, srv, nil
}
