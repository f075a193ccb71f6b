package shot

import "time"

// Router selects the server that holds a given shot. Shots taken today are
// still on the day server; everything older has been migrated to the
// archive server. The split point is recomputed on every call so a
// long-running process keeps routing correctly across midnight.
type Router struct {
	current string
	archive string

	// now is the clock used to find today's first shot. Overridable in
	// tests; defaults to time.Now.
	now func() time.Time
}

// NewRouter creates a Router over the two fixed server addresses.
func NewRouter(current, archive string) *Router {
	return &Router{current: current, archive: archive, now: time.Now}
}

// NewRouterWithClock creates a Router with an injected clock.
func NewRouterWithClock(current, archive string, now func() time.Time) *Router {
	return &Router{current: current, archive: archive, now: now}
}

// Route returns the address of the server holding shotNum.
func (r *Router) Route(shotNum int64) string {
	if shotNum >= MinShotForDate(r.now()) {
		return r.current
	}
	return r.archive
}

// CurrentServer returns the address of the current-day server.
func (r *Router) CurrentServer() string {
	return r.current
}

// ArchiveServer returns the address of the archive server.
func (r *Router) ArchiveServer() string {
	return r.archive
}
