package weather

import (
	"context"
	"time"
)

// Key identifies a stored record. Member is an ensemble-member slot;
// this system only ever uses member 0, but the key shape matches the
// engine's pull interface.
type Key struct {
	Ordinal int64
	Member  int
}

// Cache is an on-demand store of weather records keyed by simulation
// day. Gaps are filled lazily through the oracle, at most once per
// distinct day. A cache belongs to exactly one session; no locking.
type Cache struct {
	lat, lon float64
	oracle   *Oracle
	store    map[Key]Record
}

// NewCache seeds the store with one record (the day before sowing, so
// the engine has a lookback value at time zero).
func NewCache(oracle *Oracle, lat, lon float64, seed Record) *Cache {
	c := &Cache{
		lat:    lat,
		lon:    lon,
		oracle: oracle,
		store:  make(map[Key]Record),
	}
	c.put(seed)
	return c
}

func (c *Cache) put(r Record) {
	c.store[Key{Ordinal: dayOrdinal(r.Day), Member: 0}] = r
}

// Ensure guarantees a record for day exists in the store.
func (c *Cache) Ensure(ctx context.Context, day time.Time) {
	k := Key{Ordinal: dayOrdinal(day), Member: 0}
	if _, ok := c.store[k]; ok {
		return
	}
	c.store[k] = c.oracle.Fetch(ctx, c.lat, c.lon, day)
}

// Resolve returns the record for day, fetching it first if needed.
// The orchestrator calls this before asking the engine for a day's
// rates, which is the ordering point that guarantees weather exists
// before driving variables are computed.
func (c *Cache) Resolve(ctx context.Context, day time.Time) Record {
	c.Ensure(ctx, day)
	return c.store[Key{Ordinal: dayOrdinal(day), Member: 0}]
}

// Stored reports the record for day without triggering a fetch.
func (c *Cache) Stored(day time.Time) (Record, bool) {
	r, ok := c.store[Key{Ordinal: dayOrdinal(day), Member: 0}]
	return r, ok
}

// Len reports how many distinct days are stored.
func (c *Cache) Len() int { return len(c.store) }
