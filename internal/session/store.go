package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/console-access/internal/domain"
)

// ErrAbsent means there is no usable credential for the session id: it was
// never saved, was signed out, has expired, or was superseded by a newer
// sign-in of the same user. Callers treat all of these as "sign in again".
var ErrAbsent = errors.New("session absent")

// Store persists credential records across page reloads.
type Store interface {
	// Save records cred as the user's current session, superseding any
	// earlier one.
	Save(ctx context.Context, cred *domain.Credential) error
	// Load returns the credential or ErrAbsent.
	Load(ctx context.Context, sessionID string) (*domain.Credential, error)
	// Delete removes the credential. Deleting an absent session is not an error.
	Delete(ctx context.Context, sessionID string) error
}

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func validateCredential(cred *domain.Credential, now time.Time) error {
	switch {
	case cred == nil:
		return errors.New("credential is required")
	case cred.SessionID == "":
		return errors.New("credential session id is required")
	case cred.UserID == "":
		return errors.New("credential user id is required")
	case cred.Token == "":
		return errors.New("credential token is required")
	case !cred.ExpiresAt.After(now):
		return fmt.Errorf("credential already expired at %s", cred.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}
