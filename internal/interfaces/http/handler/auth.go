package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hubcrm/backend/internal/infrastructure/auth"
	"github.com/hubcrm/backend/internal/infrastructure/config"
	"github.com/hubcrm/backend/internal/interfaces/http/middleware"
)

// Authenticator checks login credentials
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*config.AuthUser, error)
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,max=128"`
}

// AuthUserResponse represents the signed-in user
type AuthUserResponse struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
}

// MeResponse is the signed-in user with the expiry of the presented token
type MeResponse struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LoginResponse represents the response body for a successful login
type LoginResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresAt   time.Time        `json:"expires_at"`
	User        AuthUserResponse `json:"user"`
}

// LogoutResponse confirms a logout
type LogoutResponse struct {
	Message string `json:"message"`
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authenticator Authenticator
	jwtService    *auth.JWTService
	blacklist     auth.TokenBlacklist
	logger        *zap.Logger
}

// NewAuthHandler creates a new auth handler. blacklist may be nil, in which
// case logout only tells the client to drop its token.
func NewAuthHandler(authenticator Authenticator, jwtService *auth.JWTService, blacklist auth.TokenBlacklist, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		jwtService:    jwtService,
		blacklist:     blacklist,
		logger:        logger,
	}
}

// Login godoc
// @Summary  Exchange username and password for an access token
// @Router   /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authenticator.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Info("Login rejected",
				zap.String("username", req.Username),
				zap.String("client_ip", c.ClientIP()))
			h.Unauthorized(c, "Invalid username or password")
			return
		}
		h.HandleError(c, err)
		return
	}

	token, err := h.jwtService.GenerateAccessToken(user.Username, user.DisplayName)
	if err != nil {
		h.logger.Error("Failed to issue access token", zap.String("username", user.Username), zap.Error(err))
		h.InternalError(c, "Failed to issue access token")
		return
	}

	h.Success(c, LoginResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt,
		User: AuthUserResponse{
			Username:    user.Username,
			DisplayName: user.DisplayName,
		},
	})
}

// Logout godoc
// @Summary  Revoke the current access token
// @Security BearerAuth
// @Router   /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if h.blacklist != nil && claims.ID != "" {
		if err := h.blacklist.Revoke(c.Request.Context(), claims.ID, claims.RemainingTTL()); err != nil {
			h.logger.Error("Failed to revoke token", zap.String("jti", claims.ID), zap.Error(err))
			h.InternalError(c, "Failed to log out")
			return
		}
	}
	h.Success(c, LogoutResponse{Message: "Logged out"})
}

// Me godoc
// @Summary  The signed-in user
// @Security BearerAuth
// @Router   /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	h.Success(c, MeResponse{
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
		ExpiresAt:   claims.ExpiresAtTime(),
	})
}
