package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"emberchain/core/audit"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrForbidden    = errors.New("token lacks required role")
)

type Authorizer struct {
	Verifier    *TokenVerifier
	AuditLogger audit.AuditLogger
}

func (a *Authorizer) audit(eventType, entity, result, reason string, meta map[string]string) {
	if a.AuditLogger == nil {
		return
	}
	a.AuditLogger.LogEvent(audit.NewEvent(eventType, entity, result, reason, meta))
}

// Authorize verifies token and checks that it carries role.
func (a *Authorizer) Authorize(token, role string) (*OperatorClaims, error) {
	if token == "" {
		a.audit("TokenVerification", "", audit.ResultFailure, ErrMissingToken.Error(), nil)
		return nil, ErrMissingToken
	}
	claims, err := a.Verifier.VerifyToken(token)
	if err != nil {
		a.audit("TokenVerification", "", audit.ResultFailure, err.Error(), nil)
		return nil, err
	}
	if !claims.HasRole(role) {
		a.audit("Authorization", claims.Subject, audit.ResultFailure, ErrForbidden.Error(), map[string]string{"role": role})
		return nil, ErrForbidden
	}
	a.audit("Authorization", claims.Subject, audit.ResultSuccess, "", map[string]string{"role": role})
	return claims, nil
}

type claimsKey struct{}

// ClaimsFromContext returns the claims stored by Middleware.
func ClaimsFromContext(ctx context.Context) (*OperatorClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*OperatorClaims)
	return c, ok
}

// Middleware rejects requests without a valid bearer token carrying role.
func (a *Authorizer) Middleware(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			claims, err := a.Authorize(strings.TrimSpace(token), role)
			switch {
			case errors.Is(err, ErrForbidden):
				http.Error(w, err.Error(), http.StatusForbidden)
				return
			case err != nil:
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}
