package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// CSRFTokenHeader is the header name for CSRF token
	CSRFTokenHeader = "X-CSRF-Token" // #nosec G101 - not a credential, just a header name
	// CSRFTokenCookie is the cookie name for CSRF token
	CSRFTokenCookie = "csrf_token"
	// CSRFContextKey is the key for storing CSRF token in request context
	CSRFContextKey = "csrf_token"
)

// CSRFStore stores issued tokens until they expire.
type CSRFStore struct {
	ttl    time.Duration
	mu     sync.RWMutex
	tokens map[string]time.Time
}

// NewCSRFStore creates a store whose expired tokens are dropped every hour
// until ctx is done.
func NewCSRFStore(ctx context.Context, ttl time.Duration) *CSRFStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	s := &CSRFStore{ttl: ttl, tokens: make(map[string]time.Time)}
	go s.cleanup(ctx, time.Hour)
	return s
}

// GenerateToken creates a new CSRF token
func (s *CSRFStore) GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)

	s.mu.Lock()
	s.tokens[token] = time.Now().Add(s.ttl)
	s.mu.Unlock()
	return token, nil
}

// ValidateToken checks if a CSRF token is valid
func (s *CSRFStore) ValidateToken(token string) bool {
	s.mu.RLock()
	expires, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(expires) {
		s.mu.Lock()
		delete(s.tokens, token)
		s.mu.Unlock()
		return false
	}
	return true
}

func (s *CSRFStore) cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for token, expires := range s.tokens {
				if now.After(expires) {
					delete(s.tokens, token)
				}
			}
			s.mu.Unlock()
		}
	}
}

// CSRFProtection issues a token cookie on safe requests and requires the
// token in the X-CSRF-Token header (or a _csrf form field) on every other
// request. The form field is only read from urlencoded bodies.
func CSRFProtection(store *CSRFStore, pathPrefix string, secureCookie bool) gin.HandlerFunc {
	cookiePath := pathPrefix + "/"
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			ensureCSRFToken(c, store, cookiePath, secureCookie)
			c.Next()
			return
		}

		token := c.GetHeader(CSRFTokenHeader)
		if token == "" && c.ContentType() == "application/x-www-form-urlencoded" {
			token = c.PostForm("_csrf")
		}
		if token == "" {
			abort(c, http.StatusForbidden, "CSRF token missing")
			return
		}
		if !store.ValidateToken(token) {
			abort(c, http.StatusForbidden, "CSRF token invalid")
			return
		}
		c.Next()
	}
}

func ensureCSRFToken(c *gin.Context, store *CSRFStore, cookiePath string, secureCookie bool) {
	existing, err := c.Cookie(CSRFTokenCookie)
	if err == nil && existing != "" && store.ValidateToken(existing) {
		c.Set(CSRFContextKey, existing)
		return
	}

	token, err := store.GenerateToken()
	if err != nil {
		return
	}
	// readable by the page script, which echoes it in the header
	c.SetCookie(CSRFTokenCookie, token, int(store.ttl.Seconds()), cookiePath, "", secureCookie, false)
	c.Set(CSRFContextKey, token)
}

// GetCSRFToken returns the CSRF token for the current request
func GetCSRFToken(c *gin.Context) string {
	return c.GetString(CSRFContextKey)
}
