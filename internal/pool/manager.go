// Package pool maintains at most one live mdsip session per server address.
//
// Opening and closing sessions can wedge the mdsip worker processes on the
// server, so sessions are dialed lazily, held for the life of the process,
// and retargeted in place when a request wants a different tree or shot
// than the one currently open.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mstlab/sigfetch/internal/mdsip"
	"github.com/mstlab/sigfetch/internal/shot"
)

// Session is a stateful connection to one server, with at most one
// (tree, shot) pair open at a time. *mdsip.Conn is the production
// implementation.
type Session interface {
	OpenTree(tree string, shotNum int64) error
	CloseAllTrees() error
	Get(expr string) (*mdsip.Result, error)
	Close() error
}

// Dialer opens a new session to a server address.
type Dialer func(ctx context.Context, addr string) (Session, error)

// DialMDSip is the production Dialer.
func DialMDSip(ctx context.Context, addr string) (Session, error) {
	return mdsip.Dial(ctx, addr)
}

// record tracks one server's session and which tree/shot it has open.
type record struct {
	sess Session
	tree string
	shot int64
	open bool
}

// Manager routes shots to servers and hands out ready sessions. A session
// returned by Get has the requested tree and shot open; callers must not
// retarget it themselves. All methods are safe for concurrent use, though
// concurrent callers wanting different shots on the same server will
// serialize on tree switches.
type Manager struct {
	router *shot.Router
	dial   Dialer

	mu       sync.Mutex
	sessions map[string]*record
}

// NewManager creates a Manager over the given router and dialer.
func NewManager(router *shot.Router, dial Dialer) *Manager {
	return &Manager{
		router:   router,
		dial:     dial,
		sessions: make(map[string]*record),
	}
}

// Get returns a session to the server holding shotNum, with the given tree
// and shot open. A new session is dialed only on the first use of a server
// address; afterwards the same session is retargeted as needed. Dial and
// open failures propagate; a failed open leaves the session with nothing
// recorded as open.
func (m *Manager) Get(ctx context.Context, shotNum int64, tree string) (Session, error) {
	addr := m.router.Route(shotNum)
	log := zerolog.Ctx(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[addr]
	if !ok {
		sess, err := m.dial(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("connecting to %s: %w", addr, err)
		}
		rec = &record{sess: sess}
		m.sessions[addr] = rec
		log.Debug().Str("server", addr).Msg("new session")
	}

	if !rec.open || rec.tree != tree || rec.shot != shotNum {
		// A session with no open trees reports an error here; harmless.
		if err := rec.sess.CloseAllTrees(); err != nil {
			log.Debug().Err(err).Str("server", addr).Msg("close-all before retarget")
		}
		rec.open = false

		if err := rec.sess.OpenTree(tree, shotNum); err != nil {
			return nil, err
		}
		rec.tree, rec.shot, rec.open = tree, shotNum, true
		log.Debug().Str("server", addr).Str("tree", tree).Int64("shot", shotNum).Msg("tree opened")
	}

	return rec.sess, nil
}

// Current returns a session to the current-day server without touching its
// open-tree state, dialing one if none exists yet.
func (m *Manager) Current(ctx context.Context) (Session, error) {
	addr := m.router.CurrentServer()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[addr]
	if !ok {
		sess, err := m.dial(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("connecting to %s: %w", addr, err)
		}
		rec = &record{sess: sess}
		m.sessions[addr] = rec
	}
	return rec.sess, nil
}

// ResetCurrent drops the current-day server's session so the next call
// dials a fresh one. Used after a session turns out to be dead.
func (m *Manager) ResetCurrent() {
	addr := m.router.CurrentServer()

	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.sessions[addr]; ok {
		_ = rec.sess.Close()
		delete(m.sessions, addr)
	}
}

// Close shuts down every live session. The Manager must not be used after
// Close; this exists for clean shutdown in long-running services.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for addr, rec := range m.sessions {
		if err := rec.sess.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing session to %s: %w", addr, err))
		}
		delete(m.sessions, addr)
	}
	return errors.Join(errs...)
}
