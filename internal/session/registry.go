package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/52poke/vitrine/internal/cep"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is the transient per-visitor state. Persisted selections live in
// the expiring store under keys built by Key, not here.
type Session struct {
	ID     string
	Lookup *cep.Lookup

	mu       sync.Mutex
	cep      string
	lastSeen time.Time
}

// Key namespaces an expiring-store key to this session.
func (s *Session) Key(name string) string {
	return s.ID + ":" + name
}

// Anonymous reports whether the visitor has no session cookie yet. Anonymous
// sessions have no store keys of their own.
func (s *Session) Anonymous() bool {
	return s.ID == ""
}

func (s *Session) CEP() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cep
}

func (s *Session) SetCEP(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cep = code
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type Registry struct {
	cookieName string
	fetcher    cep.Fetcher
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(cookieName string, fetcher cep.Fetcher, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		cookieName: cookieName,
		fetcher:    fetcher,
		logger:     logger,
		now:        time.Now,
		sessions:   map[string]*Session{},
	}
}

// Attach returns the session named by the request cookie, creating and
// registering one and setting the cookie when it is missing or malformed.
// Only requests that store something call it.
func (r *Registry) Attach(w http.ResponseWriter, req *http.Request) *Session {
	id := r.cookieID(req)
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     r.cookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return r.get(id)
}

// Peek returns the session named by the request cookie without registering
// anything. A cookie whose session was pruned yields a detached session
// with the same ID, so its stored selections stay readable. A request
// without a cookie yields an anonymous session.
func (r *Registry) Peek(req *http.Request) *Session {
	id := r.cookieID(req)
	if id == "" {
		return r.detached("")
	}
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return r.detached(id)
	}
	s.touch(r.now())
	return s
}

func (r *Registry) cookieID(req *http.Request) string {
	c, err := req.Cookie(r.cookieName)
	if err != nil {
		return ""
	}
	parsed, err := uuid.Parse(c.Value)
	if err != nil {
		return ""
	}
	return parsed.String()
}

func (r *Registry) detached(id string) *Session {
	return &Session{ID: id, Lookup: cep.NewLookup(r.fetcher, r.logger)}
}

func (r *Registry) get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		s = &Session{ID: id, Lookup: cep.NewLookup(r.fetcher, r.logger.With(zap.String("session", id)))}
		r.sessions[id] = s
	}
	s.touch(r.now())
	return s
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Prune drops sessions idle for longer than idle whose lookup is not in
// flight, and returns how many were removed.
func (r *Registry) Prune(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) && !s.Lookup.Snapshot().Loading {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}
