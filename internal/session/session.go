// Package session holds the identity of the signed-in user.
package session

import (
	"context"
	"sync"
)

// Session exposes the current user key. An empty key means nobody is
// signed in.
type Session interface {
	Current() string
	// Watch delivers the current key at once and then every change. Only the
	// latest key is kept for a slow reader. The channel closes when ctx is done.
	Watch(ctx context.Context) <-chan string
}

// Holder is an in-process Session whose key is set by the caller.
type Holder struct {
	mu       sync.Mutex
	user     string
	watchers map[chan string]struct{}
}

var _ Session = (*Holder)(nil)

// NewHolder returns a holder signed in as user, or signed out when user is empty.
func NewHolder(user string) *Holder {
	return &Holder{user: user, watchers: make(map[chan string]struct{})}
}

func (h *Holder) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.user
}

// Set switches the session to user. Setting the same key again is a no-op.
func (h *Holder) Set(user string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if user == h.user {
		return
	}
	h.user = user
	for ch := range h.watchers {
		offer(ch, user)
	}
}

// SignOut clears the session.
func (h *Holder) SignOut() { h.Set("") }

func (h *Holder) Watch(ctx context.Context) <-chan string {
	ch := make(chan string, 1)

	h.mu.Lock()
	h.watchers[ch] = struct{}{}
	offer(ch, h.user)
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.watchers, ch)
		close(ch)
		h.mu.Unlock()
	}()
	return ch
}

func offer(ch chan string, user string) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- user:
	default:
	}
}

// Static is a Session that never changes.
type Static string

func (s Static) Current() string { return string(s) }

func (s Static) Watch(ctx context.Context) <-chan string {
	ch := make(chan string, 1)
	ch <- string(s)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

type ctxKey struct{}

// WithUser returns a copy of ctx that names the acting user, overriding the
// process session for calls made with it.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFrom returns the user stored by WithUser.
func UserFrom(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(ctxKey{}).(string)
	return u, ok
}
