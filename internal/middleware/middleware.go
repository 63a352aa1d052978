package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"itemcatalog/internal/auth"
	"itemcatalog/internal/config"
	"itemcatalog/internal/forms"
	"itemcatalog/internal/logger"
	"itemcatalog/internal/session"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	sessionContextKey = "session"
	csrfSessionKey    = "csrf_token"
)

type rateLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet hands out one token bucket per client IP and forgets clients
// that stayed idle longer than idle.
type limiterSet struct {
	mu      sync.Mutex
	clients map[string]*rateLimiter
	every   time.Duration
	burst   int
	idle    time.Duration
}

func newLimiterSet(every time.Duration, burst int, idle time.Duration) *limiterSet {
	return &limiterSet{
		clients: make(map[string]*rateLimiter),
		every:   every,
		burst:   burst,
		idle:    idle,
	}
}

func (ls *limiterSet) allow(ip string) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	now := time.Now()
	client, exists := ls.clients[ip]
	if !exists {
		client = &rateLimiter{limiter: rate.NewLimiter(rate.Every(ls.every), ls.burst)}
		ls.clients[ip] = client
	}
	client.lastSeen = now

	for clientIP, c := range ls.clients {
		if now.Sub(c.lastSeen) > ls.idle {
			delete(ls.clients, clientIP)
		}
	}

	return client.limiter.Allow()
}

func RateLimit(cfg *config.Config) gin.HandlerFunc {
	limiters := newLimiterSet(time.Second/20, 20, 10*time.Minute)

	return func(c *gin.Context) {
		// Skip rate limiting in development mode
		if cfg.IsDevelopment() {
			c.Next()
			return
		}

		if !limiters.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// AuthRateLimit throttles the login endpoints, which call out to the OAuth
// provider on every attempt.
func AuthRateLimit(cfg *config.Config) gin.HandlerFunc {
	limiters := newLimiterSet(time.Minute, 5, 30*time.Minute)

	return func(c *gin.Context) {
		if cfg.IsDevelopment() {
			c.Next()
			return
		}

		if !limiters.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Authentication rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func CORS(allowedOrigins string) gin.HandlerFunc {
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := false
		for _, allowedOrigin := range origins {
			if origin != "" && origin == allowedOrigin {
				allowed = true
				break
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-CSRF-Token, X-Requested-With")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Sessions loads the session of the request and makes it available through
// Session. Handlers persist it explicitly before writing a response.
func Sessions(store session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := store.Load(c.Request)
		if err != nil {
			logger.Error("Failed to load session", "error", err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Set(sessionContextKey, s)
		c.Next()
	}
}

// Session returns the session loaded by Sessions.
func Session(c *gin.Context) *session.Session {
	if v, ok := c.Get(sessionContextKey); ok {
		if s, ok := v.(*session.Session); ok {
			return s
		}
	}
	// no Sessions middleware in the chain
	s := session.New()
	c.Set(sessionContextKey, s)
	return s
}

// CSRFToken returns the anti-forgery token of the session, creating one on
// first use.
func CSRFToken(s *session.Session) string {
	if token := s.Get(csrfSessionKey); token != "" {
		return token
	}
	return RotateCSRFToken(s)
}

// RotateCSRFToken replaces the session token, e.g. after a login.
func RotateCSRFToken(s *session.Session) string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	token := hex.EncodeToString(b)
	s.Set(csrfSessionKey, token)
	return token
}

// CSRF rejects state-changing requests of signed-in users that do not carry
// the session's token in the X-CSRF-Token header or the csrf_token field.
// Anonymous requests pass through; protected handlers redirect them to the
// login page.
func CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		s := Session(c)
		if !auth.IsLoggedIn(s) {
			c.Next()
			return
		}

		token := c.GetHeader("X-CSRF-Token")
		if token == "" {
			token = c.PostForm("csrf_token")
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "CSRF token required"})
			return
		}

		expected := s.Get(csrfSessionKey)
		if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			logger.Warn("Rejected request with invalid CSRF token", "path", c.Request.URL.Path, "ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid CSRF token"})
			return
		}

		c.Next()
	}
}

func SecurityHeaders(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline' https://apis.google.com https://accounts.google.com https://ajax.googleapis.com; frame-src https://accounts.google.com; connect-src 'self' https://accounts.google.com; style-src 'self' 'unsafe-inline'; img-src 'self' data: https://*.googleusercontent.com")

		// HSTS only makes sense behind TLS
		if !cfg.IsDevelopment() {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

func LogRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start).String(),
			"ip", c.ClientIP(),
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("Request failed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("Request rejected", fields...)
		default:
			logger.Info("Request handled", fields...)
		}
	}
}

// TrimSpaces strips surrounding whitespace from every submitted form value.
func TrimSpaces() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost || c.Request.Method == http.MethodPut {
			if err := c.Request.ParseForm(); err == nil {
				forms.TrimValues(c.Request.PostForm)
				forms.TrimValues(c.Request.Form)
			}
		}
		c.Next()
	}
}
