package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/benjamins-shop/storefront-backend/api/responses"
	"github.com/benjamins-shop/storefront-backend/internal/sessions"
	"github.com/benjamins-shop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/benjamins-shop/storefront-backend/pkg/errors"
	"github.com/benjamins-shop/storefront-backend/pkg/logger"
)

// SessionHeader is the canonical session token transport. The same name is
// used inbound and outbound.
const SessionHeader = "X-Guest-Session"

// legacySessionCookie is accepted for clients that predate the header.
const legacySessionCookie = "guest_session"

type credentialExtractor func(r *http.Request) string

// sessionExtractors are tried in order; the first non-empty token wins.
var sessionExtractors = []credentialExtractor{
	func(r *http.Request) string {
		return strings.TrimSpace(r.Header.Get(SessionHeader))
	},
	func(r *http.Request) string {
		cookie, err := r.Cookie(legacySessionCookie)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(cookie.Value)
	},
}

// GuestSession resolves the session every storefront request runs under. A
// missing, unknown or expired token yields a fresh session rather than an
// error; only malformed tokens are rejected. The resolved token is echoed on
// the response header so clients always learn their current identity.
func GuestSession(svc sessions.Service, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			fp := sessions.Fingerprint{
				UserAgent:  r.UserAgent(),
				SourceAddr: clientAddr(r),
			}

			resolved, err := svc.Resolve(r.Context(), token, fp)
			if err != nil {
				// A store outage must not block reads. GET requests continue
				// under an unsaved session so the cart read can degrade to an
				// empty list; mutations surface the 503.
				typed := pkgerrors.As(err)
				if r.Method != http.MethodGet || typed == nil || typed.Code() != pkgerrors.CodeDependency {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
				if logg != nil {
					logg.Warn(r.Context(), "session resolution degraded: "+err.Error())
				}
				resolved = &sessions.Resolved{Session: &models.GuestSession{ID: uuid.New(), Token: token}}
			}

			if resolved.Session.Token != "" {
				w.Header().Set(SessionHeader, resolved.Session.Token)
			}

			ctx := WithSession(r.Context(), resolved)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, resolved.Session.Token)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) string {
	for _, extract := range sessionExtractors {
		if token := extract(r); token != "" {
			return token
		}
	}
	return ""
}

func clientAddr(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
