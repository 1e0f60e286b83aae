package geocode

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/school-tracker/internal/model"
)

var (
	spaceRe = regexp.MustCompile(`\s+`)
	// "(lat, lng)" as written by WriteEntries, or "[lng, lat]" as the API returns it.
	coordRe = regexp.MustCompile(`^(?:\(\s*([-+0-9.eE]+)\s*,\s*([-+0-9.eE]+)\s*\)|\[\s*([-+0-9.eE]+)\s*,\s*([-+0-9.eE]+)\s*\])$`)
)

// NormalizeQuery returns the cache key for a query: NFC form with runs of
// whitespace collapsed to one space.
func NormalizeQuery(q string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(norm.NFC.String(q)), " ")
}

// Entry is a resolved query.
type Entry struct {
	Address string
	Coord   model.Coord
}

// Cache maps normalised queries to resolved entries. Entries are never
// invalidated; delete the file to force fresh lookups.
type Cache struct {
	path    string
	entries map[string]Entry
}

// LoadCache reads the cache file at path. A missing file yields an empty cache.
func LoadCache(path string) (*Cache, error) {
	c := &Cache{path: path, entries: make(map[string]Entry)}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: open cache %s", path)
	}
	defer f.Close() //nolint:errcheck

	entries, err := ReadEntries(f)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: load cache %s", path)
	}
	c.entries = entries
	return c, nil
}

// Path returns the file the cache flushes to.
func (c *Cache) Path() string { return c.path }

// Len returns the number of entries.
func (c *Cache) Len() int { return len(c.entries) }

// Get returns the entry stored for key.
func (c *Cache) Get(key string) (Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// Put stores an entry for key.
func (c *Cache) Put(key string, e Entry) {
	c.entries[key] = e
}

// Keys returns all keys in sorted order.
func (c *Cache) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flush writes all entries to the cache file, sorted by key. The file is
// replaced atomically so an interrupted flush keeps the previous contents.
func (c *Cache) Flush() error {
	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "geocode: create cache temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	w := bufio.NewWriter(tmp)
	if err := WriteEntries(w, c.entries); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "geocode: write cache")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "geocode: close cache temp file")
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return eris.Wrapf(err, "geocode: replace cache %s", c.path)
	}
	return nil
}

// ReadEntries parses repeated query/address/coordinate line triples,
// stopping at a blank query line or end of input.
func ReadEntries(r io.Reader) (map[string]Entry, error) {
	entries := make(map[string]Entry)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return strings.TrimSpace(sc.Text()), true
	}

	for {
		query, ok := next()
		if !ok || query == "" {
			break
		}
		address, ok := next()
		if !ok {
			return nil, eris.Errorf("geocode: cache entry %q has no address", query)
		}
		raw, ok := next()
		if !ok {
			return nil, eris.Errorf("geocode: cache entry %q has no coordinates", query)
		}
		coord, err := parseCoord(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "geocode: cache entry %q", query)
		}
		entries[query] = Entry{Address: address, Coord: coord}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "geocode: read cache")
	}

	return entries, nil
}

// WriteEntries writes entries sorted by key, one line triple each.
func WriteEntries(w io.Writer, entries map[string]Entry) error {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		e := entries[k]
		if _, err := io.WriteString(w, k+"\n"+e.Address+"\n"+e.Coord.String()+"\n"); err != nil {
			return eris.Wrap(err, "geocode: write cache entry")
		}
	}
	return nil
}

func parseCoord(s string) (model.Coord, error) {
	m := coordRe.FindStringSubmatch(s)
	if m == nil {
		return model.Coord{}, eris.Errorf("malformed coordinates %q", s)
	}
	latS, lngS := m[1], m[2]
	if latS == "" {
		latS, lngS = m[4], m[3]
	}
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil {
		return model.Coord{}, eris.Wrapf(err, "latitude %q", latS)
	}
	lng, err := strconv.ParseFloat(lngS, 64)
	if err != nil {
		return model.Coord{}, eris.Wrapf(err, "longitude %q", lngS)
	}
	return model.Coord{Lat: lat, Lng: lng}, nil
}
