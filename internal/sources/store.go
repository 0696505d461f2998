package sources

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"bespoke/internal/config"
	"bespoke/internal/services"
)

// Store is read-only access to the ordered source list and per-source fields.
type Store interface {
	// List returns every source key in store order.
	List(ctx context.Context) ([]string, error)
	// Fields returns the field map for key. Unknown keys yield an empty map.
	Fields(ctx context.Context, key string) (map[string]string, error)
	Close() error
}

// Pinger is implemented by stores that can verify connectivity up front.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ListKey expands the {host} and {port} placeholders in template.
func ListKey(template, host string, port int) string {
	replacer := strings.NewReplacer("{host}", host, "{port}", strconv.Itoa(port))
	return replacer.Replace(template)
}

// Open returns the store selected by cfg.Store.Backend.
func Open(cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "store", "open", "config unavailable", nil)
	}
	switch cfg.Store.Backend {
	case config.BackendRedis, "":
		return NewRedisStore(RedisOptions{
			Addr:     cfg.StoreAddr(),
			Password: cfg.Store.Password,
			DB:       cfg.Store.DB,
			ListKey:  ListKey(cfg.Store.SourcesTemplate, cfg.Store.Host, cfg.Store.Port),
		}), nil
	case config.BackendSnapshot:
		store, err := OpenSnapshot(cfg.Store.SnapshotPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, services.Wrap(
			services.ErrConfiguration,
			"store",
			"open",
			fmt.Sprintf("unsupported backend %q", cfg.Store.Backend),
			nil,
		)
	}
}
