// Package fetch ties the result cache and the connection pool together
// into the caller-facing signal operations.
package fetch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/mstlab/sigfetch/internal/cache"
	"github.com/mstlab/sigfetch/internal/mdsip"
	"github.com/mstlab/sigfetch/internal/pool"
)

// DefaultTree is the tree queried when a request does not name one.
const DefaultTree = "mst"

// Pool is the connection-manager surface the fetcher needs.
// *pool.Manager is the production implementation.
type Pool interface {
	Get(ctx context.Context, shotNum int64, tree string) (pool.Session, error)
	Current(ctx context.Context) (pool.Session, error)
	ResetCurrent()
}

// Query names one signal on one shot, plus the cache policy for the call.
type Query struct {
	Shot    int64
	Signal  string
	Tree    string // empty means DefaultTree
	NoCache bool   // bypass the cache entirely: no read, no write
}

// tree returns the effective tree name.
func (q Query) tree() string {
	if q.Tree == "" {
		return DefaultTree
	}
	return q.Tree
}

// Signal is one measurement: the value array and its independent axis,
// always of equal length.
type Signal struct {
	Axis   []float64
	Values []float64
}

// Fetcher evaluates expressions against the remote servers with a
// read-through disk cache. Safe for concurrent use; identical concurrent
// misses are collapsed into one network call.
type Fetcher struct {
	pool  Pool
	store *cache.Store
	sf    singleflight.Group
}

// New creates a Fetcher over the given pool and cache store.
func New(p Pool, store *cache.Store) *Fetcher {
	return &Fetcher{pool: p, store: store}
}

// Evaluate runs one expression against the server holding the shot,
// reading and writing the cache unless useCache is false. Cache reads that
// fail for any reason fall through to the network; cache write failures
// are fatal (a cache the process cannot write to is a misconfiguration
// worth surfacing, not quietly absorbing).
func (f *Fetcher) Evaluate(ctx context.Context, shotNum int64, tree, expr string, useCache bool) (*mdsip.Result, error) {
	if !useCache {
		return f.fetch(ctx, shotNum, tree, expr)
	}

	var res mdsip.Result
	if err := f.store.Load(tree, shotNum, expr, &res); err == nil {
		zerolog.Ctx(ctx).Debug().Str("tree", tree).Int64("shot", shotNum).Msg("cache hit")
		return &res, nil
	}

	key := f.store.Path(tree, shotNum, expr)
	v, err, _ := f.sf.Do(key, func() (any, error) {
		r, err := f.fetch(ctx, shotNum, tree, expr)
		if err != nil {
			return nil, err
		}
		if err := f.store.Save(tree, shotNum, expr, r); err != nil {
			return nil, err
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*mdsip.Result), nil
}

// fetch is the network-only path.
func (f *Fetcher) fetch(ctx context.Context, shotNum int64, tree, expr string) (*mdsip.Result, error) {
	sess, err := f.pool.Get(ctx, shotNum, tree)
	if err != nil {
		return nil, err
	}
	return sess.Get(expr)
}

// GetSignal retrieves a signal's independent axis and value arrays in one
// round trip. Server-side errors on either sub-expression are substituted
// with the $roprand sentinel instead of failing the whole query; a reply
// that is not a numeric two-plane matrix is a fatal error.
func (f *Fetcher) GetSignal(ctx context.Context, q Query) (*Signal, error) {
	expr := signalExpr(q.Signal)
	res, err := f.Evaluate(ctx, q.Shot, q.tree(), expr, !q.NoCache)
	if err != nil {
		return nil, err
	}

	axis, values, err := res.Planes2()
	if err != nil {
		return nil, fmt.Errorf("signal %s shot %d: %w", q.Signal, q.Shot, err)
	}
	return &Signal{Axis: axis, Values: values}, nil
}

// GetSignalUnits retrieves the unit string recorded for a signal.
func (f *Fetcher) GetSignalUnits(ctx context.Context, q Query) (string, error) {
	expr := unitsExpr(q.Signal)
	res, err := f.Evaluate(ctx, q.Shot, q.tree(), expr, !q.NoCache)
	if err != nil {
		return "", err
	}

	units, err := res.Text()
	if err != nil {
		return "", fmt.Errorf("units of %s shot %d: %w", q.Signal, q.Shot, err)
	}
	return units, nil
}

// CurrentShot asks the current-day server for the shot in progress. A dead
// pooled session is dropped and redialed once before giving up.
func (f *Fetcher) CurrentShot(ctx context.Context) (int64, error) {
	expr := `current_shot("mst")`

	sess, err := f.pool.Current(ctx)
	if err != nil {
		return 0, err
	}

	res, err := sess.Get(expr)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("current-shot session dead, redialing")
		f.pool.ResetCurrent()
		if sess, err = f.pool.Current(ctx); err != nil {
			return 0, err
		}
		if res, err = sess.Get(expr); err != nil {
			return 0, err
		}
	}
	return res.Int64()
}

// signalExpr builds the one-round-trip expression fetching a signal's axis
// and values with server-side error tolerance.
func signalExpr(signal string) string {
	return fmt.Sprintf("[if_error(dim_of(%s), $roprand), if_error(%s, $roprand)]", signal, signal)
}

// unitsExpr builds the expression fetching a signal's unit string.
func unitsExpr(signal string) string {
	return fmt.Sprintf("units(%s)", signal)
}
