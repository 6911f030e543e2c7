package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-core/internal/application"
	"github.com/oksasatya/go-ddd-auth-core/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-auth-core/pkg/apperror"
	"github.com/oksasatya/go-ddd-auth-core/pkg/response"
)

// maxJSONBody bounds request bodies on JSON endpoints.
const maxJSONBody = 64 << 10

type AuthHandler struct {
	Auth   *application.AuthService
	Logger *logrus.Logger
}

func NewAuthHandler(auth *application.AuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Logger: logger}
}

// bindJSON decodes the body into dst; field rules are checked by the services.
func bindJSON(c *gin.Context, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody)
	if err := c.ShouldBindJSON(dst); err != nil {
		msg := "malformed JSON"
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			msg = "request body is required"
		case errors.As(err, &tooLarge):
			msg = "request body too large"
		}
		response.FromError(c, apperror.ErrValidation.WithDetails(map[string]string{"payload": msg}).Wrap(err))
		return false
	}
	return true
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var in application.RegisterInput
	if !bindJSON(c, &in) {
		return
	}
	res, err := h.Auth.Register(c.Request.Context(), in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var in application.LoginInput
	if !bindJSON(c, &in) {
		return
	}
	in.ClientIP = middleware.ClientIP(c)
	in.UserAgent = c.GetHeader("User-Agent")

	res, err := h.Auth.Login(c.Request.Context(), in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh POST /api/auth/refresh {refreshToken}
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// Me GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		response.FromError(c, apperror.ErrNoToken)
		return
	}
	response.Success(c, http.StatusOK, u.Public())
}
