package api

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gmsas95/medreminder/internal/entry"
	apperrors "github.com/gmsas95/medreminder/internal/errors"
)

// formSession is an entry screen held open on behalf of an API client. The
// session itself is single-threaded, so every handler takes mu.
type formSession struct {
	mu       sync.Mutex
	id       string
	user     string
	session  *entry.Session
	lastUsed time.Time
}

// sessionRegistry keeps open form sessions and drops those idle longer than
// ttl. Expired sessions are swept when a new one is created.
type sessionRegistry struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	byID map[string]*formSession
}

func newSessionRegistry(ttl time.Duration, now func() time.Time) *sessionRegistry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &sessionRegistry{ttl: ttl, now: now, byID: make(map[string]*formSession)}
}

func (r *sessionRegistry) add(user string, s *entry.Session) *formSession {
	r.sweep()

	fs := &formSession{id: uuid.NewString(), user: user, session: s, lastUsed: r.now()}
	r.mu.Lock()
	r.byID[fs.id] = fs
	r.mu.Unlock()
	return fs
}

// get returns a live session owned by user. Sessions of other users are
// reported as missing.
func (r *sessionRegistry) get(id, user string) (*formSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fs, ok := r.byID[id]
	if !ok || fs.user != user || r.expired(fs) {
		return nil, apperrors.ErrSessionNotFound
	}
	fs.lastUsed = r.now()
	return fs, nil
}

func (r *sessionRegistry) remove(id, user string) (*formSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fs, ok := r.byID[id]
	if !ok || fs.user != user {
		return nil, apperrors.ErrSessionNotFound
	}
	delete(r.byID, id)
	return fs, nil
}

func (r *sessionRegistry) expired(fs *formSession) bool {
	return r.now().Sub(fs.lastUsed) > r.ttl
}

// sweep closes expired sessions and returns how many it dropped.
func (r *sessionRegistry) sweep() int {
	r.mu.Lock()
	var stale []*formSession
	for id, fs := range r.byID {
		if r.expired(fs) {
			stale = append(stale, fs)
			delete(r.byID, id)
		}
	}
	r.mu.Unlock()

	for _, fs := range stale {
		fs.mu.Lock()
		fs.session.Leave()
		fs.mu.Unlock()
	}
	return len(stale)
}

func (r *sessionRegistry) closeAll() {
	r.mu.Lock()
	all := r.byID
	r.byID = make(map[string]*formSession)
	r.mu.Unlock()

	for _, fs := range all {
		fs.mu.Lock()
		fs.session.Leave()
		fs.mu.Unlock()
	}
}

func (r *sessionRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
