// Package geoip maps client addresses to ISO country codes so the i18n
// middleware can pick French for francophone visitors.
package geoip

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

var ErrUnavailable = errors.New("geoip: no database loaded")

const maxCached = 4096

type countryReader interface {
	Country(ip []byte) (string, error)
	Close() error
}

// mmdb adapts a GeoIP2 reader to countryReader.
type mmdb struct{ r *geoip2.Reader }

func (m mmdb) Country(ip []byte) (string, error) {
	rec, err := m.r.Country(ip)
	if err != nil || rec == nil {
		return "", err
	}
	return rec.Country.IsoCode, nil
}

func (m mmdb) Close() error { return m.r.Close() }

// Resolver looks up countries and remembers recent answers. The zero value
// and a nil *Resolver both report ErrUnavailable.
type Resolver struct {
	db countryReader

	mu    sync.Mutex
	cache map[netip.Addr]string
}

// NewResolver opens the MaxMind database at path. An empty path disables
// lookups and returns a nil resolver.
func NewResolver(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open %s: %w", path, err)
	}
	return newResolver(mmdb{r: reader}), nil
}

func newResolver(db countryReader) *Resolver {
	return &Resolver{db: db, cache: make(map[netip.Addr]string)}
}

// CountryCode returns the upper-case ISO code for ip. Private and loopback
// addresses resolve to "" without touching the database.
func (r *Resolver) CountryCode(ip string) (string, error) {
	if r == nil || r.db == nil {
		return "", ErrUnavailable
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	addr = addr.Unmap()
	if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
		return "", nil
	}

	r.mu.Lock()
	code, ok := r.cache[addr]
	r.mu.Unlock()
	if ok {
		return code, nil
	}

	code, err = r.db.Country(addr.AsSlice())
	if err != nil {
		return "", fmt.Errorf("geoip: lookup %s: %w", addr, err)
	}
	code = strings.ToUpper(code)

	r.mu.Lock()
	if len(r.cache) >= maxCached {
		clear(r.cache)
	}
	r.cache[addr] = code
	r.mu.Unlock()
	return code, nil
}

// Lookup returns CountryCode for use by the i18n middleware, or nil when
// lookups are disabled.
func (r *Resolver) Lookup() func(ip string) (string, error) {
	if r == nil {
		return nil
	}
	return r.CountryCode
}

func (r *Resolver) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
