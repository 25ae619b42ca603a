// Package guard gates access to views that require an authenticated session.
package guard

import "github.com/lapmarkt/lapcli/internal/session"

// Verdict is the outcome of a guard check.
type Verdict int

const (
	// Wait means session initialization has not resolved yet; the caller
	// should show a neutral placeholder and must not redirect.
	Wait Verdict = iota
	// Allow means the protected content may render.
	Allow
	// Redirect means the caller must be sent to the entry route; From
	// records where they were headed so login can return them there.
	Redirect
)

// Decision carries the verdict and, for redirects, the routes involved.
type Decision struct {
	Verdict Verdict
	To      string
	From    string
}

// Guard checks the session state before a protected view renders.
type Guard struct {
	sessions *session.Manager
}

// New constructs a Guard over the session manager.
func New(sessions *session.Manager) *Guard {
	return &Guard{sessions: sessions}
}

// Check resolves access to the route. While the manager is still loading it
// returns Wait so callers never flash the unauthenticated view during
// startup.
func (g *Guard) Check(route string) Decision {
	switch g.sessions.State() {
	case session.Uninitialized, session.Loading:
		return Decision{Verdict: Wait}
	}
	if g.sessions.IsAuthenticated() {
		return Decision{Verdict: Allow}
	}
	return Decision{Verdict: Redirect, To: session.RouteEntry, From: route}
}
