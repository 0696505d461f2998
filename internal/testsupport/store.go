package testsupport

import (
	"net"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"bespoke/internal/sources"
)

// Record is one source seeded into the test store.
type Record struct {
	Key    string
	Fields map[string]string
}

// WithRedis starts an in-process Redis server, points the config at it, and
// seeds the source list (under the config's list key) with records in order.
func WithRedis(records ...Record) ConfigOption {
	return func(b *configBuilder) {
		mr := StartRedis(b.t)
		host, portText, err := net.SplitHostPort(mr.Addr())
		if err != nil {
			b.t.Fatalf("split redis addr: %v", err)
		}
		port, err := strconv.Atoi(portText)
		if err != nil {
			b.t.Fatalf("parse redis port: %v", err)
		}
		b.cfg.Store.Host = host
		b.cfg.Store.Port = port
		SeedRedis(b.t, mr, sources.ListKey(b.cfg.Store.SourcesTemplate, host, port), records...)
	}
}

// StartRedis runs a miniredis server for the duration of the test.
func StartRedis(t testing.TB) *miniredis.Miniredis {
	t.Helper()
	return miniredis.RunT(t)
}

// SeedRedis appends records to listKey and stores each record's fields.
func SeedRedis(t testing.TB, mr *miniredis.Miniredis, listKey string, records ...Record) {
	t.Helper()
	for _, rec := range records {
		if _, err := mr.RPush(listKey, rec.Key); err != nil {
			t.Fatalf("rpush %s: %v", rec.Key, err)
		}
		for name, value := range rec.Fields {
			mr.HSet(rec.Key, name, value)
		}
	}
}
