package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmhlko/post-feed/internal/model"
	"github.com/mmhlko/post-feed/internal/service"
)

type AuthHandler struct {
	svc    *service.AuthService
	cookie CookieConfig
}

func NewAuthHandler(svc *service.AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cookie}
}

// Signup godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.SignupRequest true "Profile and credentials"
// @Success 201 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req model.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	pair, err := h.svc.Signup(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	setRefreshCookie(c, h.cookie, pair.RefreshToken)
	c.JSON(http.StatusCreated, model.AuthResponse{AccessToken: pair.AccessToken})
}

// Login godoc
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Email and password"
// @Success 200 {object} model.AuthResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	setRefreshCookie(c, h.cookie, pair.RefreshToken)
	c.JSON(http.StatusOK, model.AuthResponse{AccessToken: pair.AccessToken})
}

// Refresh godoc
// @Summary Refresh access token
// @Description Uses the refreshToken cookie, which is scoped to this path. The cookie is rotated on success.
// @Tags auth
// @Produce json
// @Success 200 {object} model.AuthResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /auth/refresh [get]
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := extractCookie(c.GetHeader("Cookie"), h.cookie.Name)
	claims, err := h.svc.VerifyRefreshToken(token)
	if err != nil {
		clearRefreshCookie(c, h.cookie)
		writeServiceError(c, err)
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), claims.UserID, token)
	if err != nil {
		clearRefreshCookie(c, h.cookie)
		writeServiceError(c, err)
		return
	}

	setRefreshCookie(c, h.cookie, pair.RefreshToken)
	c.JSON(http.StatusOK, model.AuthResponse{AccessToken: pair.AccessToken})
}

// Logout godoc
// @Summary Logout
// @Description Clears the stored refresh token and the refresh cookie.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.OKResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.svc.Logout(c.Request.Context(), user.ID); err != nil {
		writeServiceError(c, err)
		return
	}

	clearRefreshCookie(c, h.cookie)
	c.JSON(http.StatusOK, model.OKResponse{OK: true})
}

// Me godoc
// @Summary Get current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Profile
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	profile, err := h.svc.Me(c.Request.Context(), user.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
