package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/notification"
	"github.com/example/storefront/internal/session"
)

// Session is one shopper's cart store together with its identity holder and
// toast feed.
type Session struct {
	Holder *session.Holder
	Store  *checkout.Store
	Feed   *notification.Feed
	stop   func()

	lastSeen time.Time // guarded by Sessions.mu
}

// DefaultIdleTimeout is how long an untouched session is kept.
const DefaultIdleTimeout = 30 * time.Minute

// Sessions maps users and anonymous cart cookies to their Session.
type Sessions struct {
	mu        sync.Mutex
	byKey     map[string]*Session
	repo      checkout.Repository
	sub       checkout.Subscriber
	feedLimit int
	opts      []checkout.Option
	now       func() time.Time
}

// NewSessions creates a registry. sub may be nil, in which case histories
// only contain orders placed through this process.
func NewSessions(repo checkout.Repository, sub checkout.Subscriber, opts ...checkout.Option) *Sessions {
	return &Sessions{
		byKey:     make(map[string]*Session),
		repo:      repo,
		sub:       sub,
		feedLimit: notification.DefaultFeedSize,
		opts:      opts,
		now:       time.Now,
	}
}

func userKey(uid string) string     { return "user:" + uid }
func anonymousKey(id string) string { return "anon:" + id }

// ForUser returns the user's session, creating and tracking it on first use.
// The identity is refreshed so profile changes in the token are picked up.
func (s *Sessions) ForUser(id checkout.Identity) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userKey(id.UID)
	if sess, ok := s.byKey[key]; ok {
		sess.Holder.Login(id)
		sess.lastSeen = s.now()
		return sess
	}

	sess := s.newSession(session.NewAuthenticated(id))
	if s.sub != nil {
		sess.stop = sess.Store.Track(s.sub)
	}
	s.byKey[key] = sess
	log.Printf("[API] Session opened for user %s", id.UID)
	return sess
}

// ForAnonymous returns the session of a visitor who has not logged in.
func (s *Sessions) ForAnonymous(cartID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := anonymousKey(cartID)
	if sess, ok := s.byKey[key]; ok {
		sess.lastSeen = s.now()
		return sess
	}
	sess := s.newSession(session.NewHolder())
	s.byKey[key] = sess
	return sess
}

// Anonymous returns the visitor's session only if it already exists.
func (s *Sessions) Anonymous(cartID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byKey[anonymousKey(cartID)]
	if ok {
		sess.lastSeen = s.now()
	}
	return sess, ok
}

// Len reports how many sessions are held.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byKey)
}

// Sweep forgets sessions untouched for longer than idle and stops their
// history subscriptions. It returns how many were evicted.
func (s *Sessions) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	var evicted []*Session
	for key, sess := range s.byKey {
		if sess.lastSeen.Before(cutoff) {
			delete(s.byKey, key)
			evicted = append(evicted, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range evicted {
		if sess.stop != nil {
			sess.stop()
		}
	}
	if len(evicted) > 0 {
		log.Printf("[API] Evicted %d idle sessions", len(evicted))
	}
	return len(evicted)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Sessions) RunSweeper(ctx context.Context, idle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(idle)
		}
	}
}

// Adopt moves an anonymous cart into the user's session, so logging in keeps
// what the visitor already picked.
func (s *Sessions) Adopt(cartID string, id checkout.Identity) {
	s.mu.Lock()
	anon, ok := s.byKey[anonymousKey(cartID)]
	delete(s.byKey, anonymousKey(cartID))
	s.mu.Unlock()
	if !ok {
		return
	}

	target := s.ForUser(id)
	for _, l := range anon.Store.Lines() {
		for i := 0; i < l.Quantity; i++ {
			if err := target.Store.AddLine(l.Product); err != nil {
				log.Printf("[API] Dropped %s while adopting cart %s: %v", l.ProductID(), cartID, err)
				break
			}
		}
	}
}

// Logout clears the user's identity and ends history tracking. The session
// is forgotten, so the next login starts with an empty cart.
func (s *Sessions) Logout(uid string) {
	s.mu.Lock()
	sess, ok := s.byKey[userKey(uid)]
	delete(s.byKey, userKey(uid))
	s.mu.Unlock()
	if !ok {
		return
	}
	sess.Holder.Logout()
	if sess.stop != nil {
		sess.stop()
	}
}

// Close stops every subscription.
func (s *Sessions) Close() {
	s.mu.Lock()
	all := s.byKey
	s.byKey = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range all {
		if sess.stop != nil {
			sess.stop()
		}
	}
}

func (s *Sessions) newSession(holder *session.Holder) *Session {
	feed := notification.NewFeed(s.feedLimit)
	notifier := notification.Multi{notification.LogSink{}, feed}
	return &Session{
		Holder:   holder,
		Store:    checkout.NewStore(holder, s.repo, notifier, s.opts...),
		Feed:     feed,
		lastSeen: s.now(),
	}
}
