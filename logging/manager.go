// Package logging provides a zap-backed logger manager.
//
// Deriving a named logger is cheap but not free, and call sites tend to ask
// for the same handful of names over and over. Manager memoizes the derived
// *zap.SugaredLogger per name in a bounded MRU cache; loggers that fall out
// of the working set are evicted least-recently-used first and flushed via
// Sync on the way out.
package logging

import (
	"go.uber.org/zap"

	"github.com/kdris/loci/cache"
)

// Manager hands out named loggers derived from one base logger.
type Manager struct {
	cache *cache.MRU[string, *zap.SugaredLogger]
}

// NewManager builds a Manager over base, keeping at most maxCached derived
// loggers alive. A nil base falls back to zap.NewNop().
func NewManager(base *zap.Logger, maxCached int) (*Manager, error) {
	if base == nil {
		base = zap.NewNop()
	}
	c, err := cache.New(maxCached,
		func(name string, _ any) *zap.SugaredLogger {
			return base.Named(name).Sugar()
		},
		cache.WithRelease(func(l *zap.SugaredLogger) error {
			return l.Sync()
		}),
	)
	if err != nil {
		return nil, err
	}
	return &Manager{cache: c}, nil
}

// Named returns the logger for name, deriving it on first use.
func (m *Manager) Named(name string) *zap.SugaredLogger {
	return m.cache.Get(name, nil)
}

// Flush drops every cached logger and syncs each one, aggregating any sync
// errors into the returned error.
func (m *Manager) Flush() error {
	return m.cache.InvalidateAll(true)
}

// Close implements io.Closer so a Manager registered in a resolver is flushed
// at teardown.
func (m *Manager) Close() error { return m.Flush() }
