package pool_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstlab/sigfetch/internal/mdsip"
	"github.com/mstlab/sigfetch/internal/pool"
	"github.com/mstlab/sigfetch/internal/shot"
)

// fakeSession records protocol calls instead of touching the network.
type fakeSession struct {
	addr      string
	opens     []string
	closeAll  int
	closeErr  error // returned by CloseAllTrees
	openErr   error // returned by OpenTree
	closed    bool
	getResult *mdsip.Result
	getErr    error
}

func (s *fakeSession) OpenTree(tree string, shotNum int64) error {
	if s.openErr != nil {
		return s.openErr
	}
	s.opens = append(s.opens, tree)
	return nil
}

func (s *fakeSession) CloseAllTrees() error {
	s.closeAll++
	return s.closeErr
}

func (s *fakeSession) Get(string) (*mdsip.Result, error) {
	return s.getResult, s.getErr
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

// fakeDialer hands out one fakeSession per address and counts dials.
type fakeDialer struct {
	dials    map[string]int
	sessions map[string]*fakeSession
	err      error
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		dials:    make(map[string]int),
		sessions: make(map[string]*fakeSession),
	}
}

func (d *fakeDialer) dial(_ context.Context, addr string) (pool.Session, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.dials[addr]++
	if s, ok := d.sessions[addr]; ok {
		return s, nil
	}
	s := &fakeSession{addr: addr, closeErr: errors.New("no open trees")}
	d.sessions[addr] = s
	return s, nil
}

func testRouter() *shot.Router {
	today := time.Date(2014, time.June, 15, 10, 0, 0, 0, time.UTC)
	return shot.NewRouterWithClock("current.test", "archive.test", func() time.Time { return today })
}

func TestGetDialsOncePerServer(t *testing.T) {
	d := newFakeDialer()
	m := pool.NewManager(testRouter(), d.dial)
	ctx := context.Background()

	// Two different archive shots, same server: one dial.
	_, err := m.Get(ctx, 1100502001, "mst")
	require.NoError(t, err)
	_, err = m.Get(ctx, 1110502001, "mst")
	require.NoError(t, err)
	assert.Equal(t, 1, d.dials["archive.test"])

	// A current-day shot dials the other server.
	_, err = m.Get(ctx, 1140615001, "mst")
	require.NoError(t, err)
	assert.Equal(t, 1, d.dials["current.test"])
	assert.Len(t, d.dials, 2)
}

func TestGetRepeatPairIsNoOp(t *testing.T) {
	d := newFakeDialer()
	m := pool.NewManager(testRouter(), d.dial)
	ctx := context.Background()

	s1, err := m.Get(ctx, 1100502001, "mst")
	require.NoError(t, err)
	s2, err := m.Get(ctx, 1100502001, "mst")
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	sess := d.sessions["archive.test"]
	assert.Equal(t, []string{"mst"}, sess.opens, "second identical request must not reopen")
	assert.Equal(t, 1, sess.closeAll)
}

func TestGetSwitchClosesThenOpens(t *testing.T) {
	d := newFakeDialer()
	m := pool.NewManager(testRouter(), d.dial)
	ctx := context.Background()

	_, err := m.Get(ctx, 1100502001, "mst")
	require.NoError(t, err)

	// Different shot on the same server.
	_, err = m.Get(ctx, 1100502002, "mst")
	require.NoError(t, err)

	// Different tree on the same shot.
	_, err = m.Get(ctx, 1100502002, "magnetics")
	require.NoError(t, err)

	sess := d.sessions["archive.test"]
	assert.Equal(t, []string{"mst", "mst", "magnetics"}, sess.opens)
	assert.Equal(t, 3, sess.closeAll)
}

func TestCloseAllErrorIsSwallowed(t *testing.T) {
	d := newFakeDialer()
	m := pool.NewManager(testRouter(), d.dial)

	// The default fakeSession always errors on CloseAllTrees, mimicking a
	// session with nothing open. Get must succeed anyway.
	_, err := m.Get(context.Background(), 1100502001, "mst")
	assert.NoError(t, err)
}

func TestDialFailurePropagates(t *testing.T) {
	d := newFakeDialer()
	d.err = errors.New("connection refused")
	m := pool.NewManager(testRouter(), d.dial)

	_, err := m.Get(context.Background(), 1100502001, "mst")
	assert.ErrorContains(t, err, "connection refused")
}

func TestOpenFailurePropagates(t *testing.T) {
	d := newFakeDialer()
	bad := &fakeSession{openErr: errors.New("tree not found")}
	d.sessions["archive.test"] = bad
	m := pool.NewManager(testRouter(), d.dial)
	ctx := context.Background()

	_, err := m.Get(ctx, 1100502001, "nosuchtree")
	require.ErrorContains(t, err, "tree not found")

	// The failed open left nothing recorded as open, so a retry opens again
	// rather than treating the pair as current.
	bad.openErr = nil
	_, err = m.Get(ctx, 1100502001, "nosuchtree")
	require.NoError(t, err)
	assert.Equal(t, []string{"nosuchtree"}, bad.opens)
}

func TestCurrentLeavesTreeStateAlone(t *testing.T) {
	d := newFakeDialer()
	m := pool.NewManager(testRouter(), d.dial)
	ctx := context.Background()

	s, err := m.Current(ctx)
	require.NoError(t, err)

	sess := d.sessions["current.test"]
	assert.Same(t, s, sess)
	assert.Empty(t, sess.opens)
	assert.Zero(t, sess.closeAll)

	// Reuses the session a later Get dialed, too.
	_, err = m.Get(ctx, 1140615001, "mst")
	require.NoError(t, err)
	s2, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Same(t, s, s2)
	assert.Equal(t, 1, d.dials["current.test"])
}

func TestResetCurrent(t *testing.T) {
	d := newFakeDialer()
	m := pool.NewManager(testRouter(), d.dial)
	ctx := context.Background()

	_, err := m.Current(ctx)
	require.NoError(t, err)
	first := d.sessions["current.test"]

	m.ResetCurrent()
	assert.True(t, first.closed)

	delete(d.sessions, "current.test")
	_, err = m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.dials["current.test"])
}

func TestClose(t *testing.T) {
	d := newFakeDialer()
	m := pool.NewManager(testRouter(), d.dial)
	ctx := context.Background()

	_, err := m.Get(ctx, 1100502001, "mst")
	require.NoError(t, err)
	_, err = m.Get(ctx, 1140615001, "mst")
	require.NoError(t, err)

	require.NoError(t, m.Close())
	for _, s := range d.sessions {
		assert.True(t, s.closed)
	}
}
