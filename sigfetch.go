// Package sigfetch provides cached, connection-pooled access to MST
// measurement signals stored on the MDSplus servers.
//
// A Client routes each shot to the server that holds it, keeps one live
// session per server for the life of the process, and caches results on
// local disk so repeated requests avoid network round-trips:
//
//	c, err := sigfetch.New(sigfetch.Config{})
//	if err != nil { ... }
//	defer c.Close()
//
//	sig, err := c.GetSignal(ctx, 1140101001, "ip")
package sigfetch

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mstlab/sigfetch/internal/cache"
	"github.com/mstlab/sigfetch/internal/config"
	"github.com/mstlab/sigfetch/internal/fetch"
	"github.com/mstlab/sigfetch/internal/pool"
	"github.com/mstlab/sigfetch/internal/shot"
)

// Signal is one measurement: the value array and its independent axis,
// always of equal length.
type Signal = fetch.Signal

// Config configures a Client. The zero value uses the standard MST
// servers and the default cache location under the user's home directory.
type Config struct {
	// CurrentServer holds today's shots. Defaults to the MST day server.
	CurrentServer string

	// ArchiveServer holds shots from previous days.
	ArchiveServer string

	// CacheDir is the result cache root. Defaults to ~/.sigfetch/cache.
	CacheDir string

	// Logger receives structured events. Defaults to a disabled logger.
	Logger *zerolog.Logger
}

// Client is the caller-facing handle. Safe for concurrent use.
type Client struct {
	pool    *pool.Manager
	fetcher *fetch.Fetcher
}

// New creates a Client. No network connection is made until the first
// request needs one.
func New(cfg Config) (*Client, error) {
	if cfg.CurrentServer == "" {
		cfg.CurrentServer = config.DefaultCurrentServer
	}
	if cfg.ArchiveServer == "" {
		cfg.ArchiveServer = config.DefaultArchiveServer
	}
	if cfg.CacheDir == "" {
		dir, err := (&config.Config{}).CacheDir()
		if err != nil {
			return nil, err
		}
		cfg.CacheDir = dir
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	store, err := cache.NewStore(cfg.CacheDir, log)
	if err != nil {
		return nil, err
	}

	p := pool.NewManager(shot.NewRouter(cfg.CurrentServer, cfg.ArchiveServer), pool.DialMDSip)
	return &Client{pool: p, fetcher: fetch.New(p, store)}, nil
}

// Option adjusts one request.
type Option func(*fetch.Query)

// WithTree queries the named tree instead of the default "mst".
func WithTree(tree string) Option {
	return func(q *fetch.Query) { q.Tree = tree }
}

// WithoutCache bypasses the result cache for this request: no read, no
// write, always contacts the network.
func WithoutCache() Option {
	return func(q *fetch.Query) { q.NoCache = true }
}

// GetSignal retrieves a signal's independent axis and value arrays.
func (c *Client) GetSignal(ctx context.Context, shotNum int64, signal string, opts ...Option) (*Signal, error) {
	return c.fetcher.GetSignal(ctx, c.query(shotNum, signal, opts))
}

// GetSignalUnits retrieves the unit string recorded for a signal.
func (c *Client) GetSignalUnits(ctx context.Context, shotNum int64, signal string, opts ...Option) (string, error) {
	return c.fetcher.GetSignalUnits(ctx, c.query(shotNum, signal, opts))
}

// CurrentShot asks the day server for the shot currently in progress.
func (c *Client) CurrentShot(ctx context.Context) (int64, error) {
	return c.fetcher.CurrentShot(ctx)
}

// Close shuts down every live server session. The Client must not be used
// afterwards.
func (c *Client) Close() error {
	return c.pool.Close()
}

func (c *Client) query(shotNum int64, signal string, opts []Option) fetch.Query {
	q := fetch.Query{Shot: shotNum, Signal: signal}
	for _, opt := range opts {
		opt(&q)
	}
	return q
}
