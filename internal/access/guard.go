// Package access decides whether a console session may view a route. It
// holds no state and performs no I/O; callers pass the session, the policy
// table, the path, and the current time explicitly.
package access

import (
	"time"

	"github.com/spec-kit/console-access/internal/domain"
)

// Outcome is the result class of an access decision.
type Outcome string

const (
	Allow             Outcome = "ALLOW"
	RedirectSignIn    Outcome = "REDIRECT_SIGNIN"
	RedirectForbidden Outcome = "REDIRECT_FORBIDDEN"
)

// Reason explains an outcome. Denials for policy reasons are normal results,
// not errors.
type Reason string

const (
	ReasonGranted          Reason = "granted"
	ReasonSessionAbsent    Reason = "session_absent"
	ReasonSessionExpired   Reason = "session_expired"
	ReasonNotAuthenticated Reason = "not_authenticated"
	ReasonUnknownRole      Reason = "unknown_role"
	ReasonPolicyMiss       Reason = "policy_miss"
)

// Decision is the guard's verdict for one path.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	// Redirect is the view to navigate to; empty when Outcome is Allow.
	Redirect string `json:"redirect,omitempty"`
	Reason   Reason `json:"reason"`
	// Pattern is the policy entry that granted access.
	Pattern string `json:"pattern,omitempty"`
}

// Allowed reports whether the decision permits rendering.
func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// Guard decides whether a session may view a path. The zero value is not
// useful; build one with NewGuard.
type Guard struct {
	signIn    string
	forbidden string
}

// NewGuard returns a guard that redirects to the given sign-in and forbidden views.
func NewGuard(signInPath, forbiddenPath string) Guard {
	return Guard{signIn: signInPath, forbidden: forbiddenPath}
}

// SignInPath returns the sign-in redirect target.
func (g Guard) SignInPath() string { return g.signIn }

// ForbiddenPath returns the forbidden redirect target.
func (g Guard) ForbiddenPath() string { return g.forbidden }

// Evaluate decides access to path for session s under table at time now. It
// depends only on its arguments and never fails: anything it cannot
// establish resolves to a redirect.
func (g Guard) Evaluate(s *domain.Session, table *PolicyTable, path string, now time.Time) Decision {
	if s == nil {
		return g.signInDecision(ReasonSessionAbsent)
	}
	if reason, ok := sessionState(s, now); !ok {
		return g.signInDecision(reason)
	}

	if !table.Has(s.Role) {
		return g.forbiddenDecision(ReasonUnknownRole)
	}
	if p, ok := table.match(s.Role, path); ok {
		return Decision{Outcome: Allow, Reason: ReasonGranted, Pattern: p.String()}
	}
	return g.forbiddenDecision(ReasonPolicyMiss)
}

func (g Guard) signInDecision(reason Reason) Decision {
	return Decision{Outcome: RedirectSignIn, Redirect: g.signIn, Reason: reason}
}

func (g Guard) forbiddenDecision(reason Reason) Decision {
	return Decision{Outcome: RedirectForbidden, Redirect: g.forbidden, Reason: reason}
}
