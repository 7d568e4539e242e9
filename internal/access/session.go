package access

import (
	"time"

	"github.com/spec-kit/console-access/internal/domain"
)

// IsValid reports whether s may be used for an access decision at now: it
// must be authenticated, carry a token, and expire strictly after now.
func IsValid(s *domain.Session, now time.Time) bool {
	_, ok := sessionState(s, now)
	return ok
}

func sessionState(s *domain.Session, now time.Time) (Reason, bool) {
	switch {
	case s == nil:
		return ReasonSessionAbsent, false
	case !s.Authenticated, s.Token == "", s.ExpiresAt.IsZero():
		return ReasonNotAuthenticated, false
	case !s.ExpiresAt.After(now):
		return ReasonSessionExpired, false
	}
	return "", true
}
