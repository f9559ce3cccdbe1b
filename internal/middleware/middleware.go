package middleware

import (
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Tosino95/natours/internal/apperror"
	"github.com/Tosino95/natours/internal/utils"
	"golang.org/x/time/rate"
)

// UserResolver looks up the account a verified token refers to. Implemented
// by the users package; kept as an interface so middleware tests need no
// database.
type UserResolver interface {
	FindAuthUserByID(id string) (utils.AuthUser, error)
}

// TokenVerifier checks a bearer credential and returns the embedded user id
// and issue time.
type TokenVerifier interface {
	Verify(token string) (userID string, issuedAt time.Time, err error)
}

// StalenessCheck reports whether a token issued at issuedAt predates the
// user's most recent password change.
type StalenessCheck func(issuedAt time.Time, passwordChangedAt *time.Time) bool

// Guard authenticates requests from a bearer token in the Authorization
// header or the jwt cookie.
type Guard struct {
	Tokens TokenVerifier
	Users  UserResolver
	Stale  StalenessCheck
}

// extractToken finds the bearer credential, preferring the Authorization
// header over the jwt cookie.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie("jwt"); err == nil {
		return cookie.Value
	}
	return ""
}

// authenticate runs the full chain: credential present, cryptographically
// valid, user still exists, password not changed since issuance.
func (g Guard) authenticate(r *http.Request) (utils.AuthUser, *apperror.Error) {
	tok := extractToken(r)
	if tok == "" {
		return utils.AuthUser{}, apperror.Unauthorized("You are not logged in! Please log in to get access.")
	}

	userID, issuedAt, err := g.Tokens.Verify(tok)
	if err != nil {
		return utils.AuthUser{}, apperror.Unauthorized("Invalid token. Please log in again.")
	}

	user, err := g.Users.FindAuthUserByID(userID)
	if err != nil {
		return utils.AuthUser{}, apperror.Unauthorized("The user belonging to this token no longer exists.")
	}

	if g.Stale != nil && g.Stale(issuedAt, user.PasswordChangedAt) {
		return utils.AuthUser{}, apperror.Unauthorized("User recently changed password! Please log in again.")
	}

	return user, nil
}

// Protect denies unauthenticated requests and attaches the resolved user to
// the request context for downstream handlers and role checks.
func (g Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, authErr := g.authenticate(r)
		if authErr != nil {
			apperror.Respond(w, authErr)
			return
		}
		next.ServeHTTP(w, r.WithContext(utils.WithAuthUser(r.Context(), user)))
	})
}

// IsLoggedIn runs the same chain as Protect but never denies: on any failure
// the request simply proceeds without an attached user. Used where anonymous
// and authenticated visitors see different content.
func (g Guard) IsLoggedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, authErr := g.authenticate(r); authErr == nil {
			r = r.WithContext(utils.WithAuthUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// RestrictTo gates an already-authenticated request on role membership. This
// is a post-authentication check: it expects Protect earlier in the chain.
func RestrictTo(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := utils.GetAuthUser(r.Context())
			if !ok {
				apperror.Respond(w, apperror.Unauthorized("You are not logged in! Please log in to get access."))
				return
			}
			if _, ok := allowed[user.Role]; !ok {
				apperror.Respond(w, apperror.Forbidden("You do not have permission to perform this action"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS echoes the origin back only if it is on the allow-list.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin") // important for caches
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods",
					"GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers",
					"Content-Type, Authorization")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit throttles requests per client IP.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		lim, ok := limiters[ip]
		if !ok {
			lim = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[ip] = lim
		}
		return lim
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !limiterFor(ip).Allow() {
				w.Header().Set("Retry-After", "3600")
				http.Error(w, "Too many requests from this IP, please try again in an hour.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs method, path, status and duration for each request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[http] %s %s status=%d duration=%dms",
			r.Method, r.URL.Path, rec.status, time.Since(start).Milliseconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
