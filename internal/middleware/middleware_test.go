package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"itemcatalog/internal/auth"
	"itemcatalog/internal/config"
	"itemcatalog/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestLimiterSet(t *testing.T) {
	ls := newLimiterSet(time.Hour, 2, time.Hour)

	assert.True(t, ls.allow("10.0.0.1"))
	assert.True(t, ls.allow("10.0.0.1"))
	assert.False(t, ls.allow("10.0.0.1"))

	// buckets are per client
	assert.True(t, ls.allow("10.0.0.2"))
}

func TestLimiterSetForgetsIdleClients(t *testing.T) {
	ls := newLimiterSet(time.Hour, 1, time.Millisecond)

	assert.True(t, ls.allow("10.0.0.1"))
	time.Sleep(5 * time.Millisecond)
	assert.True(t, ls.allow("10.0.0.2"))

	ls.mu.Lock()
	_, kept := ls.clients["10.0.0.1"]
	ls.mu.Unlock()
	assert.False(t, kept)
}

func TestAuthRateLimitSkippedInDevelopment(t *testing.T) {
	r := gin.New()
	r.Use(AuthRateLimit(&config.Config{Environment: "development"}))
	r.POST("/gconnect", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/gconnect", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestAuthRateLimitInProduction(t *testing.T) {
	r := gin.New()
	r.Use(AuthRateLimit(&config.Config{Environment: "production"}))
	r.POST("/gconnect", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := map[int]int{}
	for i := 0; i < 6; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/gconnect", nil))
		codes[rec.Code]++
	}
	assert.Equal(t, 5, codes[http.StatusOK])
	assert.Equal(t, 1, codes[http.StatusTooManyRequests])
}

// csrfRouter serves POST /items/add behind CSRF with a session prepared by
// prepare.
func csrfRouter(prepare func(s *session.Session)) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		s := session.New()
		prepare(s)
		c.Set(sessionContextKey, s)
	})
	r.Use(CSRF())
	r.POST("/items/add", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func postForm(r http.Handler, values url.Values, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/items/add", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCSRF(t *testing.T) {
	var token string
	signedIn := func(s *session.Session) {
		s.Set(auth.KeyUsername, "Alice")
		s.Set(csrfSessionKey, "expected-token")
		token = s.Get(csrfSessionKey)
	}
	r := csrfRouter(signedIn)

	rec := postForm(r, url.Values{"name": {"Dune"}}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = postForm(r, url.Values{"csrf_token": {"wrong"}}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = postForm(r, url.Values{"csrf_token": {"expected-token"}}, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = postForm(r, url.Values{}, map[string]string{"X-CSRF-Token": token})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCSRFLetsAnonymousRequestsThrough(t *testing.T) {
	r := csrfRouter(func(s *session.Session) {})

	rec := postForm(r, url.Values{"name": {"Dune"}}, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCSRFToken(t *testing.T) {
	s := session.New()

	first := CSRFToken(s)
	assert.Len(t, first, 64)
	assert.Equal(t, first, CSRFToken(s))

	rotated := RotateCSRFToken(s)
	assert.NotEqual(t, first, rotated)
	assert.Equal(t, rotated, CSRFToken(s))
}

func TestSessionsLoadsFromStore(t *testing.T) {
	store, err := session.NewCookieStore("secret", time.Hour, false)
	require.NoError(t, err)

	s := session.New()
	s.Set(auth.KeyUsername, "Alice")
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, httptest.NewRequest(http.MethodGet, "/", nil), s))

	r := gin.New()
	r.Use(Sessions(store))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, Session(c).Get(auth.KeyUsername)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	out := httptest.NewRecorder()
	r.ServeHTTP(out, req)

	assert.Equal(t, "Alice", out.Body.String())
}

func TestTrimSpaces(t *testing.T) {
	r := gin.New()
	r.Use(TrimSpaces())
	r.POST("/category_add", func(c *gin.Context) { c.String(http.StatusOK, "[%s]", c.PostForm("name")) })

	req := httptest.NewRequest(http.MethodPost, "/category_add", strings.NewReader("name=+++Books++"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "[Books]", rec.Body.String())
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS("http://localhost:8080, https://catalog.example.com"))
	r.GET("/catalog.json", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/catalog.json", nil)
	req.Header.Set("Origin", "https://catalog.example.com")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "https://catalog.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/catalog.json", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/catalog.json", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(&config.Config{Environment: "production"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "https://accounts.google.com")
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}
