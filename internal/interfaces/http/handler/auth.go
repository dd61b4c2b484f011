package handler

import (
	"context"

	"github.com/furniro/storefront/internal/application/identity"
	"github.com/furniro/storefront/internal/interfaces/http/dto"
	"github.com/furniro/storefront/internal/interfaces/http/middleware"
	"github.com/furniro/storefront/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// IdentityService signs shoppers in and out
type IdentityService interface {
	SignIn(ctx context.Context, email, password string) (*identity.SignInResult, error)
	SignOut(ctx context.Context, token string) error
	Session(ctx context.Context, token string) identity.Session
}

// AuthHandler handles authentication requests. Collections never depend on
// the session; it only tells the UI whether someone is signed in.
type AuthHandler struct {
	BaseHandler
	identity IdentityService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc IdentityService) *AuthHandler {
	return &AuthHandler{identity: svc}
}

// Routes returns the auth route group
func (h *AuthHandler) Routes() *router.DomainGroup {
	return router.NewDomainGroup("/auth").
		POST("/sign-in", h.SignIn).
		POST("/sign-out", h.SignOut).
		GET("/session", h.Session)
}

// SignIn godoc
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body dto.SignInRequest true "Credentials"
// @Success      200 {object} dto.Response{data=identity.SignInResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/sign-in [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req dto.SignInRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.identity.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SignOut godoc
// @Summary      Sign out
// @Description  Revokes the bearer token; without a valid token this is a no-op
// @Tags         auth
// @Success      204
// @Router       /auth/sign-out [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	token, _ := middleware.BearerToken(c)
	if err := h.identity.SignOut(c.Request.Context(), token); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Session godoc
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=identity.Session}
// @Router       /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	token, _ := middleware.BearerToken(c)
	h.Success(c, h.identity.Session(c.Request.Context(), token))
}
