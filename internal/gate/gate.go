// Package gate implements the admin passphrase gate.
//
// The gate is a UI visibility toggle, not a security boundary: the passphrase
// is a single static shared string, there is no lockout, no hashing and no rate
// limiting. Anything that needs real protection must not rely on it.
package gate

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const SessionName = "folio-admin"

// Flag names an area unlocked by the passphrase. Each flag is granted and
// revoked on its own.
type Flag string

const (
	Admin   Flag = "isAdminAuthenticated"
	Prompts Flag = "isPromptAuthenticated"
)

// Gate checks the passphrase and keeps unlocked flags in a browser-session
// cookie (MaxAge 0), so closing the browser locks everything again.
type Gate struct {
	passphrase []byte
	store      *sessions.CookieStore
	logger     *zap.Logger
}

// New signs session cookies with a key derived from secret.
func New(passphrase, secret string, secure bool, logger *zap.Logger) *Gate {
	key := sha256.Sum256([]byte(secret))
	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   0,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Gate{
		passphrase: []byte(passphrase),
		store:      store,
		logger:     logger.Named("gate"),
	}
}

// CheckPassphrase reports whether candidate matches the configured passphrase.
func (g *Gate) CheckPassphrase(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), g.passphrase) == 1
}

// IsSessionActive reports whether the request carries an active admin flag.
func (g *Gate) IsSessionActive(r *http.Request) bool { return g.Unlocked(r, Admin) }

// Begin sets the admin flag on the response.
func (g *Gate) Begin(w http.ResponseWriter, r *http.Request) error { return g.Grant(w, r, Admin) }

// End clears the admin flag.
func (g *Gate) End(w http.ResponseWriter, r *http.Request) error { return g.Revoke(w, r, Admin) }

// Unlocked reports whether the request's session carries flag.
func (g *Gate) Unlocked(r *http.Request, flag Flag) bool {
	session, err := g.store.Get(r, SessionName)
	if err != nil {
		return false
	}
	active, _ := session.Values[string(flag)].(bool)
	return active
}

// Grant sets flag on the response, keeping any other flags.
func (g *Gate) Grant(w http.ResponseWriter, r *http.Request, flag Flag) error {
	// A stale or foreign cookie fails to decode; a fresh session replaces it.
	session, _ := g.store.Get(r, SessionName)
	session.Values[string(flag)] = true
	return session.Save(r, w)
}

// Revoke clears flag. The cookie is expired once no flag is left, with the
// store's options so Secure and SameSite still match the original cookie.
func (g *Gate) Revoke(w http.ResponseWriter, r *http.Request, flag Flag) error {
	session, _ := g.store.Get(r, SessionName)
	delete(session.Values, string(flag))
	if len(session.Values) == 0 {
		opts := *g.store.Options
		opts.MaxAge = -1
		session.Options = &opts
	}
	return session.Save(r, w)
}

// Require redirects requests without an admin session to loginPath. HTMX
// requests get an HX-Redirect instead so the whole page navigates.
func (g *Gate) Require(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.IsSessionActive(c.Request) {
			c.Next()
			return
		}
		if c.GetHeader("HX-Request") == "true" {
			c.Header("HX-Redirect", loginPath)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if c.ContentType() == gin.MIMEJSON || c.GetHeader("Accept") == gin.MIMEJSON {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin session required"})
			return
		}
		c.Redirect(http.StatusFound, loginPath)
		c.Abort()
	}
}
