// Package auth adapts the external identity provider to a narrow
// "current user or none" contract with an explicit subscription lifecycle.
package auth

import (
	"sync"
	"time"
)

// User is the identity the rest of the gateway keys on.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Expiry      time.Time
}

// Provider yields the current user, if any, and notifies on changes.
// The cancel func returned by Subscribe must be called on teardown.
type Provider interface {
	Current() (User, bool)
	Subscribe(fn func(User, bool)) (cancel func())
}

// StaticProvider holds a fixed identity. Used by tests and by deployments
// that pass a resolved identity in directly.
type StaticProvider struct {
	mu       sync.Mutex
	user     User
	signedIn bool
	subs     map[int]func(User, bool)
	nextID   int
}

// NewStaticProvider returns a provider already signed in as user.
func NewStaticProvider(user User) *StaticProvider {
	return &StaticProvider{
		user:     user,
		signedIn: true,
		subs:     make(map[int]func(User, bool)),
	}
}

// NewSignedOutProvider returns a provider with no current user.
func NewSignedOutProvider() *StaticProvider {
	return &StaticProvider{subs: make(map[int]func(User, bool))}
}

// Current implements Provider.
func (p *StaticProvider) Current() (User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user, p.signedIn
}

// Subscribe implements Provider. The callback fires immediately with the
// current state, then on every SetUser/SignOut.
func (p *StaticProvider) Subscribe(fn func(User, bool)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	user, signedIn := p.user, p.signedIn
	p.mu.Unlock()

	fn(user, signedIn)

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// SetUser switches the provider to a new signed-in identity.
func (p *StaticProvider) SetUser(user User) {
	p.mu.Lock()
	p.user = user
	p.signedIn = true
	subs := p.snapshotSubs()
	p.mu.Unlock()

	for _, fn := range subs {
		fn(user, true)
	}
}

// SignOut clears the current identity.
func (p *StaticProvider) SignOut() {
	p.mu.Lock()
	p.user = User{}
	p.signedIn = false
	subs := p.snapshotSubs()
	p.mu.Unlock()

	for _, fn := range subs {
		fn(User{}, false)
	}
}

func (p *StaticProvider) snapshotSubs() []func(User, bool) {
	subs := make([]func(User, bool), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	return subs
}
