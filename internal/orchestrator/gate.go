package orchestrator

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"listing-generator/internal/session"
)

// authorize returns a valid access token and its subject. An expired token is
// refreshed once. Any other failure signs the user out and requests a redirect,
// leaving the stored draft in place.
func (o *Orchestrator) authorize(ctx context.Context) (string, string, error) {
	token, claims, err := o.currentClaims(ctx)
	if reason, ok := session.ReasonOf(err); ok && reason == session.ReasonExpired {
		o.logger.Info().Msg("access token expired, refreshing")
		token, err = o.deps.Sessions.Refresh(ctx)
		if err != nil {
			err = &session.InvalidatedError{Reason: session.ReasonExpired, Err: err}
		} else {
			claims, err = o.deps.Validator.Validate(token)
		}
	}
	if err != nil {
		return "", "", o.invalidate(ctx, err)
	}

	userID := claims.Subject
	o.mu.Lock()
	switched := o.userID != userID
	o.mu.Unlock()
	if switched {
		if err := o.restore(ctx, userID); err != nil {
			o.logger.Warn().Err(err).Msg("could not restore stored draft")
			o.mu.Lock()
			o.userID = userID
			o.mu.Unlock()
		}
	}
	return token, userID, nil
}

func (o *Orchestrator) currentClaims(ctx context.Context) (string, *session.Claims, error) {
	token, err := o.deps.Sessions.Current(ctx)
	if err != nil {
		return "", nil, &session.InvalidatedError{Reason: session.ReasonMissingSession, Err: err}
	}
	claims, err := o.deps.Validator.Validate(token)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// invalidate signs out and redirects to login. The in-memory and stored draft survive.
func (o *Orchestrator) invalidate(ctx context.Context, cause error) error {
	reason, ok := session.ReasonOf(cause)
	if !ok {
		reason = session.ReasonRejected
		cause = &session.InvalidatedError{Reason: reason, Err: cause}
	}
	o.logger.Warn().Str("reason", string(reason)).Err(cause).Msg("session invalidated, signing out")

	if err := o.deps.Sessions.SignOut(ctx); err != nil {
		o.logger.Warn().Err(err).Msg("sign-out after invalidation failed")
	}
	if o.deps.OnRedirect != nil {
		o.deps.OnRedirect(Redirect{
			Path:     LoginPath,
			ReturnTo: DashboardPath,
			Notice:   SessionExpiredNotice,
		})
	}
	return cause
}

func parseUserID(userID string) (uuid.UUID, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, errors.Join(ErrNoUser, err)
	}
	return id, nil
}
