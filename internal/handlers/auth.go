package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"itemcatalog/internal/auth"
	"itemcatalog/internal/logger"
	"itemcatalog/internal/metrics"
	"itemcatalog/internal/middleware"

	"github.com/gin-gonic/gin"
)

// one-time codes are short; anything larger is not a code
const maxCodeSize = 4096

func (a *App) renderLogin(c *gin.Context, status int, state, message string) {
	a.render(c, status, "login.html", gin.H{
		"Title":    "Log in",
		"State":    state,
		"ClientID": a.Provider.ClientID(),
		"Error":    message,
	})
}

func (a *App) handleLoginPage(c *gin.Context) {
	state, err := auth.BeginLogin(middleware.Session(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	a.renderLogin(c, http.StatusOK, state, "")
}

// handleLogin accepts the one-time code as a regular form post, for clients
// that cannot run the sign-in script.
func (a *App) handleLogin(c *gin.Context) {
	s := middleware.Session(c)

	result, err := auth.Connect(c.Request.Context(), a.Provider, s, c.PostForm("state"), c.PostForm("code"))
	if err != nil {
		status, message := a.loginFailure(c, err)

		state := s.Get(auth.KeyState)
		if state == "" {
			if state, err = auth.BeginLogin(s); err != nil {
				a.fail(c, err)
				return
			}
		}
		a.renderLogin(c, status, state, message)
		return
	}

	a.loginSuccess(c, result)
	a.redirect(c, "/")
}

func (a *App) handleGConnect(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCodeSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, "Failed to read the authorization code.")
		return
	}
	code := strings.TrimSpace(string(body))

	result, err := auth.Connect(c.Request.Context(), a.Provider, middleware.Session(c), c.Query("state"), code)
	if err != nil {
		status, message := a.loginFailure(c, err)
		a.saveSession(c)
		c.JSON(status, message)
		return
	}

	if result.AlreadyConnected {
		metrics.RecordLogin("already_connected")
		a.saveSession(c)
		c.JSON(http.StatusOK, "Current user is already connected.")
		return
	}

	a.loginSuccess(c, result)
	a.saveSession(c)
	c.HTML(http.StatusOK, "connected.html", gin.H{"User": result.User})
}

func (a *App) loginFailure(c *gin.Context, err error) (int, string) {
	metrics.RecordLogin("failure")

	var authErr *auth.Error
	if !errors.As(err, &authErr) {
		logger.Error("Login failed", "error", err)
		return http.StatusInternalServerError, "Login failed."
	}

	logger.Warn("Login rejected", "status", authErr.Status, "error", authErr, "ip", c.ClientIP())
	return authErr.Status, authErr.Message
}

func (a *App) loginSuccess(c *gin.Context, result *auth.Result) {
	s := middleware.Session(c)
	if !result.AlreadyConnected {
		metrics.RecordLogin("success")
		s.Renew()
		middleware.RotateCSRFToken(s)
	}
	s.AddFlash("You are now logged in as " + result.User.Username)
}

func (a *App) handleGDisconnect(c *gin.Context) {
	s := middleware.Session(c)
	if auth.Disconnect(c.Request.Context(), a.Provider, s) {
		s.Renew()
	}
	a.redirect(c, "/")
}

func (a *App) handleLogout(c *gin.Context) {
	s := middleware.Session(c)
	if !auth.Disconnect(c.Request.Context(), a.Provider, s) {
		a.redirect(c, "/")
		return
	}

	// nothing from the signed-in session carries over, not even its id
	s.Clear()
	s.Renew()
	a.flashRedirect(c, "You have been logged out.", "/")
}
