package handlers

import (
	"bufio"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-core/internal/application"
	"github.com/oksasatya/go-ddd-auth-core/internal/domain/entity"
	"github.com/oksasatya/go-ddd-auth-core/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-auth-core/pkg/apperror"
	"github.com/oksasatya/go-ddd-auth-core/pkg/response"
)

const (
	maxAvatarSize = 5 << 20
	avatarField   = "avatar"
)

type UserHandler struct {
	Users  *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(users *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Users: users, Logger: logger}
}

// Get GET /api/users/:id. Anonymous callers do not see the email address.
func (h *UserHandler) Get(c *gin.Context) {
	pub, err := h.Users.GetUser(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, pub)
}

// Update PATCH /api/users/:id {name?, email?}
func (h *UserHandler) Update(c *gin.Context) {
	var in application.UpdateProfileInput
	if !bindJSON(c, &in) {
		return
	}
	pub, err := h.Users.UpdateProfile(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, pub)
}

// ChangePassword PUT /api/users/:id/password {currentPassword, newPassword}
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var in application.ChangePasswordInput
	if !bindJSON(c, &in) {
		return
	}
	if err := h.Users.ChangePassword(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), in); err != nil {
		response.FromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadAvatar PUT /api/users/:id/avatar (multipart, field "avatar")
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarSize+1<<10)
	fh, err := c.FormFile(avatarField)
	if err != nil {
		response.FromError(c, apperror.ErrValidation.
			WithDetails(map[string]string{avatarField: "an image file up to 5MB is required"}).Wrap(err))
		return
	}
	if fh.Size > maxAvatarSize {
		response.FromError(c, apperror.ErrValidation.WithDetails(map[string]string{avatarField: "must be at most 5MB"}))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.FromError(c, err)
		return
	}
	defer func() { _ = f.Close() }()

	// The declared content type is not trusted; sniff the first bytes instead.
	br := bufio.NewReaderSize(f, 512)
	head, _ := br.Peek(512)
	contentType := http.DetectContentType(head)

	pub, err := h.Users.UploadAvatar(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), br, fh.Filename, contentType)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, pub)
}

// Delete DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.Users.DeleteUser(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type searchResponse struct {
	Users []entity.PublicUser `json:"users"`
}

// Search GET /api/users/search?q=&size=
func (h *UserHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	users, err := h.Users.SearchUsers(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, searchResponse{Users: users})
}
