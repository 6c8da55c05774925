package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"givegram/internal/models"
	"givegram/internal/services"
)

// HTTPHandler holds the dependencies for the API handlers.
type HTTPHandler struct {
	sessions *services.SessionStore
	selector *services.WinnerSelector
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(sessions *services.SessionStore, selector *services.WinnerSelector) *HTTPHandler {
	return &HTTPHandler{
		sessions: sessions,
		selector: selector,
	}
}

// RegisterRoutes registers all the API routes.
func (h *HTTPHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/healthz", h.Health)

	api := router.Group("/api")
	api.POST("/login", h.Login)
	api.POST("/logout", h.Logout)
	api.POST("/validate-session", h.ValidateSession)
	api.POST("/fetch-comments", h.FetchComments)
	api.POST("/pick-winners", h.PickWinners)
}

func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Detail: detail})
}

// Health reports that the server is up.
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Login exchanges a platform session cookie for a backend session id.
func (h *HTTPHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, "session_cookie is required")
		return
	}

	logger.Infof("Login attempt via session cookie")
	id, username, err := h.sessions.LoginWithCookie(c.Request.Context(), req.SessionCookie)
	if err != nil {
		if errors.Is(err, services.ErrLoginFailed) {
			abort(c, http.StatusUnauthorized, "Invalid or expired session cookie. Make sure you are logged into instagram.com, copy a fresh 'sessionid' cookie value, and try again.")
			return
		}
		logger.Errorf("Login failed: %v", err)
		abort(c, http.StatusBadGateway, "Could not reach Instagram. Please try again.")
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{SessionID: id, Username: username})
}

// Logout removes a session. Unknown ids succeed too.
func (h *HTTPHandler) Logout(c *gin.Context) {
	id := c.Query("session_id")
	if id == "" {
		abort(c, http.StatusUnprocessableEntity, "session_id is required")
		return
	}
	h.sessions.Remove(id)
	c.JSON(http.StatusOK, gin.H{"detail": "Logged out successfully"})
}

// ValidateSession checks a session id without contacting the platform.
func (h *HTTPHandler) ValidateSession(c *gin.Context) {
	var req models.ValidateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, "session_id is required")
		return
	}

	username, err := h.sessions.Validate(req.SessionID)
	if err != nil {
		abort(c, http.StatusUnauthorized, "Session not found or has expired. Please log in again.")
		return
	}
	c.JSON(http.StatusOK, models.ValidateSessionResponse{Username: username})
}

// FetchComments scrapes the commenters of a post.
func (h *HTTPHandler) FetchComments(c *gin.Context) {
	var req models.FetchCommentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, "url and session_id are required")
		return
	}

	logger.Infof("Received fetch-comments request for URL: %s", req.URL)
	resp, err := h.sessions.FetchComments(c.Request.Context(), req.SessionID, req.URL)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, services.ErrSessionNotFound):
		abort(c, http.StatusUnauthorized, "Session not found or has expired. Please log in again.")
	case errors.Is(err, models.ErrInvalidPostURL):
		abort(c, http.StatusBadRequest, "Invalid Instagram post URL. Use the format https://www.instagram.com/p/<shortcode>/")
	case errors.Is(err, services.ErrPostNotFound):
		abort(c, http.StatusNotFound, "Post was not found. It may have been deleted or the URL is incorrect.")
	case errors.Is(err, services.ErrPrivatePost):
		abort(c, http.StatusForbidden, "Post belongs to a private account. Only public posts can be scraped.")
	case errors.Is(err, services.ErrRateLimited):
		abort(c, http.StatusTooManyRequests, "Instagram is rate-limiting requests. Please wait a few minutes and try again.")
	default:
		logger.Errorf("Unexpected scraper error for URL %s: %v", req.URL, err)
		abort(c, http.StatusBadGateway, "Failed to fetch comments. Check your network connection and try again.")
	}
}

// PickWinners draws winners from the submitted commenters.
func (h *HTTPHandler) PickWinners(c *gin.Context) {
	var req models.PickWinnersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, "num_winners and min_comments must be between 1 and 5")
		return
	}

	logger.Infof("Received pick-winners request: %d users, %d winners, min_comments=%d",
		len(req.Users), req.NumWinners, req.MinComments)

	winners, err := h.selector.PickWinners(req.Users, req.NumWinners, req.MinComments)
	if err != nil {
		var ie *services.InsufficientEligibleError
		if errors.As(err, &ie) {
			abort(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		abort(c, http.StatusInternalServerError, "Winner selection failed.")
		return
	}

	logger.Infof("Selected winners: %v", winners)
	c.JSON(http.StatusOK, models.PickWinnersResponse{Winners: winners})
}
