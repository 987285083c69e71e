package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/expensetrack/splitdesk/internal/service"
)

// editorSession is one UI client's editor plus the lock that serializes its
// commands. The engine itself is single-threaded by contract; the boundary
// enforces that by never running two commands of one session concurrently.
type editorSession struct {
	mu       sync.Mutex
	editor   *service.Editor
	lastSeen time.Time
}

// registry holds the live editor sessions keyed by opaque session ID.
type registry struct {
	mu       sync.RWMutex
	sessions map[string]*editorSession
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*editorSession)}
}

func (r *registry) add(editor *service.Editor) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = &editorSession{editor: editor, lastSeen: time.Now()}
	r.mu.Unlock()
	return id
}

func (r *registry) get(id string) (*editorSession, bool) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		sess.mu.Lock()
		sess.lastSeen = time.Now()
		sess.mu.Unlock()
	}
	return sess, ok
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// sweep drops sessions idle longer than maxIdle. Called periodically from
// the server's janitor goroutine.
func (r *registry) sweep(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, sess := range r.sessions {
		sess.mu.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(r.sessions, id)
		}
	}
}
