package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"mockly/internal/config"
)

var ErrNoToken = errors.New("no identity token configured")

// TokenProvider resolves the current user from an identity-provider JWT,
// either inline or in a token file refreshed out of band by the provider's
// own tooling. It re-reads the file periodically and signs the user out when
// the token expires or disappears.
type TokenProvider struct {
	cfg config.AuthConfig
	log *zap.Logger

	mu       sync.Mutex
	user     User
	signedIn bool
	rawToken string
	subs     map[int]func(User, bool)
	nextID   int
}

// NewTokenProvider parses the configured token once and starts the refresh
// loop. It does not fail when no token is present; it starts signed out.
func NewTokenProvider(ctx context.Context, cfg config.AuthConfig, log *zap.Logger) *TokenProvider {
	p := &TokenProvider{
		cfg:  cfg,
		log:  log,
		subs: make(map[int]func(User, bool)),
	}
	p.refresh()
	go p.watch(ctx)
	return p
}

// Current implements Provider.
func (p *TokenProvider) Current() (User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user, p.signedIn
}

// Subscribe implements Provider. The callback fires immediately with the
// current state.
func (p *TokenProvider) Subscribe(fn func(User, bool)) func() {
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

func (p *TokenProvider) watch(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh()
		}
	}
}

func (p *TokenProvider) refresh() {
	raw, err := p.loadRaw()
	if err != nil {
		p.setSignedOut(err)
		return
	}

	user, err := ParseIdentityToken(raw, p.cfg.Secret)
	if err != nil {
		p.setSignedOut(err)
		return
	}
	if !user.Expiry.IsZero() && time.Now().After(user.Expiry) {
		p.setSignedOut(fmt.Errorf("identity token expired at %s", user.Expiry.Format(time.RFC3339)))
		return
	}

	p.mu.Lock()
	changed := !p.signedIn || p.rawToken != raw
	p.user = user
	p.signedIn = true
	p.rawToken = raw
	subs := p.snapshotSubs()
	p.mu.Unlock()

	if changed {
		p.log.Info("identity refreshed", zap.String("userId", user.ID))
		for _, fn := range subs {
			fn(user, true)
		}
	}
}

func (p *TokenProvider) setSignedOut(cause error) {
	p.mu.Lock()
	changed := p.signedIn
	p.user = User{}
	p.signedIn = false
	p.rawToken = ""
	subs := p.snapshotSubs()
	p.mu.Unlock()

	if changed {
		p.log.Warn("identity lost", zap.Error(cause))
		for _, fn := range subs {
			fn(User{}, false)
		}
	}
}

func (p *TokenProvider) loadRaw() (string, error) {
	if p.cfg.Token != "" {
		return p.cfg.Token, nil
	}
	if p.cfg.TokenFile == "" {
		return "", ErrNoToken
	}
	data, err := os.ReadFile(p.cfg.TokenFile)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return "", ErrNoToken
	}
	return raw, nil
}

func (p *TokenProvider) snapshotSubs() []func(User, bool) {
	subs := make([]func(User, bool), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	return subs
}

// ParseIdentityToken extracts the user identity from a provider-issued JWT.
// With a secret it verifies an HMAC signature; without one it trusts the
// claims as-is, since the token was obtained over the provider's own channel.
func ParseIdentityToken(raw, secret string) (User, error) {
	claims := jwt.MapClaims{}

	if secret != "" {
		token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil {
			return User{}, fmt.Errorf("verify identity token: %w", err)
		}
		if !token.Valid {
			return User{}, errors.New("identity token invalid")
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return User{}, fmt.Errorf("parse identity token: %w", err)
		}
	}

	user := User{}
	if sub, _ := claims.GetSubject(); sub != "" {
		user.ID = sub
	}
	if user.ID == "" {
		if uid, ok := claims["user_id"].(string); ok {
			user.ID = uid
		}
	}
	if user.ID == "" {
		return User{}, errors.New("identity token has no subject")
	}

	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		user.DisplayName = name
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		user.Expiry = exp.Time
	}

	return user, nil
}
