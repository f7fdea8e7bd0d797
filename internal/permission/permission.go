// Package permission implements C10: resolving a request origin to a
// permission pattern and gating auto-injection. No direct teacher
// analogue exists; closest grounding is internal/httpapi/routes.go's
// adminAuthMiddleware (explicit allow/deny gate over a granted credential),
// generalized here to origin-pattern grants instead of a bearer token.
package permission

import (
	"fmt"
	"net/url"
	"sync"
)

// eligibleSchemes are the only schemes the gate will ever grant, per
// spec.md §4.10.
var eligibleSchemes = map[string]bool{"http": true, "https": true, "file": true}

// ErrIneligibleScheme is returned by OriginPattern for any scheme other than
// http/https/file.
type ErrIneligibleScheme struct{ Scheme string }

func (e *ErrIneligibleScheme) Error() string {
	return fmt.Sprintf("permission: ineligible scheme %q", e.Scheme)
}

// OriginPattern computes scheme://host/* (or file:///* for local files)
// from rawURL.
func OriginPattern(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if !eligibleSchemes[u.Scheme] {
		return "", &ErrIneligibleScheme{Scheme: u.Scheme}
	}
	if u.Scheme == "file" {
		return "file:///*", nil
	}
	return fmt.Sprintf("%s://%s/*", u.Scheme, u.Host), nil
}

// Gate tracks granted origin patterns and whether per-client auto-translate
// is enabled.
type Gate struct {
	mu             sync.RWMutex
	granted        map[string]bool
	autoTranslate  bool
	ensureStart    func(clientID string) error
}

type Option func(*Gate)

// WithEnsureStart wires the callback invoked by EnsureStarted, e.g. to tell
// the channel (C8) to attach a client.
func WithEnsureStart(f func(clientID string) error) Option {
	return func(g *Gate) { g.ensureStart = f }
}

func New(autoTranslate bool, opts ...Option) *Gate {
	g := &Gate{granted: make(map[string]bool), autoTranslate: autoTranslate}
	for _, o := range opts {
		o(g)
	}
	return g
}

// HasPermission reports whether pattern has already been granted.
func (g *Gate) HasPermission(pattern string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.granted[pattern]
}

// RequestPermission grants pattern (the UI-level prompt/consent flow is an
// external collaborator; this just records the outcome).
func (g *Gate) RequestPermission(pattern string, granted bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.granted[pattern] = granted
}

// SetAutoTranslate toggles the auto-inject-on-navigation setting.
func (g *Gate) SetAutoTranslate(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.autoTranslate = enabled
}

// EnsureStarted triggers ensure_started for clientID iff auto_translate is
// true and pattern already has permission. It never prompts during
// navigation, per spec.md §4.10 — a missing grant is a silent no-op, not a
// RequestPermission call.
func (g *Gate) EnsureStarted(clientID, pattern string) (bool, error) {
	g.mu.RLock()
	auto := g.autoTranslate
	granted := g.granted[pattern]
	g.mu.RUnlock()

	if !auto || !granted {
		return false, nil
	}
	if g.ensureStart == nil {
		return true, nil
	}
	return true, g.ensureStart(clientID)
}
