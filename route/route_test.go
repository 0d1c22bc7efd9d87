package route

import (
	"errors"
	"testing"

	"github.com/handydb/handydb/config"
)

func testDatastore(t *testing.T, defaultReader string, readers ...string) *config.Datastore {
	t.Helper()
	ds := &config.Datastore{
		Name:          "test",
		Primary:       config.Server{Driver: "sqlite", Database: "primary.db"},
		Readers:       map[string]config.Server{},
		DefaultReader: defaultReader,
	}
	for _, name := range readers {
		ds.Readers[name] = config.Server{Database: name + ".db"}
	}
	if err := ds.Resolve(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return ds
}

func TestSelectWriteAlwaysPrimary(t *testing.T) {
	ds := testDatastore(t, "", "r1", "r2")

	for i := 0; i < 50; i++ {
		name, srv, err := Select("", true, ds)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if name != PrimaryName || srv.Database != "primary.db" {
			t.Fatalf("write routed to %q, want primary", name)
		}
	}
}

func TestSelectExplicitReader(t *testing.T) {
	ds := testDatastore(t, "", "r1", "r2")

	name, srv, err := Select("r2", false, ds)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if name != "r2" || srv.Database != "r2.db" {
		t.Errorf("got %q (%s), want r2", name, srv.Database)
	}
}

func TestSelectExplicitPrimary(t *testing.T) {
	ds := testDatastore(t, "", "r1")

	name, _, err := Select(PrimaryName, false, ds)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if name != PrimaryName {
		t.Errorf("got %q, want primary", name)
	}
}

func TestSelectUnknownServer(t *testing.T) {
	ds := testDatastore(t, "", "r1")

	_, _, err := Select("nope", false, ds)
	if !errors.Is(err, ErrUnknownServer) {
		t.Fatalf("Select() error = %v, want ErrUnknownServer", err)
	}
}

func TestSelectDefaultReader(t *testing.T) {
	ds := testDatastore(t, "r1", "r1", "r2")

	for i := 0; i < 20; i++ {
		name, _, err := Select("", false, ds)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if name != "r1" {
			t.Fatalf("got %q, want default reader r1", name)
		}
	}
}

func TestSelectNoReadersFallsBackToPrimary(t *testing.T) {
	ds := testDatastore(t, "")

	name, _, err := Select("", false, ds)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if name != PrimaryName {
		t.Errorf("got %q, want primary", name)
	}
}

func TestSelectRandomReaderUniformity(t *testing.T) {
	// Both the empty default and the __random__ sentinel pick uniformly.
	for _, defaultReader := range []string{"", config.RandomReader} {
		ds := testDatastore(t, defaultReader, "r1", "r2")

		const trials = 4000
		counts := map[string]int{}
		for i := 0; i < trials; i++ {
			name, _, err := Select("", false, ds)
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			counts[name]++
		}

		if counts[PrimaryName] != 0 {
			t.Fatalf("read routed to primary %d times with readers configured", counts[PrimaryName])
		}
		// Each reader should land near trials/2; a 40/60 split over 4000
		// trials is far outside random variation for a fair coin.
		for _, r := range []string{"r1", "r2"} {
			if counts[r] < trials*2/5 || counts[r] > trials*3/5 {
				t.Errorf("reader %s selected %d/%d times, outside [40%%, 60%%]", r, counts[r], trials)
			}
		}
	}
}
