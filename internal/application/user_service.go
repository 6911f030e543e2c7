package application

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-core/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-auth-core/internal/domain/repository"
	"github.com/oksasatya/go-ddd-auth-core/pkg/apperror"
	"github.com/oksasatya/go-ddd-auth-core/pkg/helpers"
	"github.com/oksasatya/go-ddd-auth-core/pkg/mailer"
	"github.com/oksasatya/go-ddd-auth-core/pkg/mailer/templates"
	"github.com/oksasatya/go-ddd-auth-core/pkg/validation"
)

var (
	ErrAvatarsDisabled = apperror.New(apperror.KindUnavailable, "avatars_disabled", "avatar upload is not configured")
	ErrWrongPassword   = apperror.New(apperror.KindValidation, "wrong_password", "current password is incorrect").
				WithDetails(map[string]string{"currentPassword": "is incorrect"})
)

// UserService implements profile operations. Every mutation runs the
// ownership guard against the caller before touching storage.
type UserService struct {
	Repo     repo.UserRepository
	Hasher   *helpers.PasswordHasher
	Guard    OwnershipGuard
	Logger   *logrus.Logger
	Validate *validator.Validate

	// Optional collaborators; nil disables them.
	Avatars AvatarStore
	Index   UserIndexer
	Mail    EmailPublisher
}

func NewUserService(r repo.UserRepository, hasher *helpers.PasswordHasher, guard OwnershipGuard, logger *logrus.Logger) *UserService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &UserService{
		Repo:     r,
		Hasher:   hasher,
		Guard:    guard,
		Logger:   logger,
		Validate: validation.New(),
	}
}

type UpdateProfileInput struct {
	Name  *string `json:"name,omitempty" validate:"omitnil,min=1,max=100"`
	Email *string `json:"email,omitempty" validate:"omitnil,email,max=254"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"max=72"`
	NewPassword     string `json:"newPassword" validate:"required,strongpwd,max=72"`
}

// GetUser returns the public profile of id. The email is only included when
// the viewer is authenticated.
func (s *UserService) GetUser(ctx context.Context, viewer *entity.Identity, id string) (entity.PublicUser, error) {
	u, err := s.find(ctx, id)
	if err != nil {
		return entity.PublicUser{}, err
	}
	pub := u.Public()
	if viewer == nil {
		pub.Email = ""
	}
	return pub, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, caller *entity.Identity, targetID string, in UpdateProfileInput) (entity.PublicUser, error) {
	if err := s.Guard.Authorize(caller, targetID); err != nil {
		return entity.PublicUser{}, err
	}
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		in.Name = &n
	}
	if in.Email != nil {
		e := entity.NormalizeEmail(*in.Email)
		in.Email = &e
	}
	if err := validation.Struct(s.Validate, in); err != nil {
		return entity.PublicUser{}, err
	}

	u, err := s.find(ctx, targetID)
	if err != nil {
		return entity.PublicUser{}, err
	}
	changes := map[string]string{}
	if in.Name != nil && *in.Name != u.Name {
		u.Name = *in.Name
		changes["name"] = u.Name
	}
	if in.Email != nil && *in.Email != u.Email {
		changes["email"] = *in.Email
		u.Email = *in.Email
	}
	if len(changes) == 0 {
		return u.Public(), nil
	}
	if err := s.save(ctx, u); err != nil {
		return entity.PublicUser{}, err
	}
	s.afterChange(ctx, u, changes)
	return u.Public(), nil
}

// ChangePassword replaces the password of targetID. Owners must prove the
// current password; an admin acting on someone else does not.
func (s *UserService) ChangePassword(ctx context.Context, caller *entity.Identity, targetID string, in ChangePasswordInput) error {
	if err := s.Guard.Authorize(caller, targetID); err != nil {
		return err
	}
	self := caller.UserID == targetID
	if self && in.CurrentPassword == "" {
		return apperror.ErrValidation.WithDetails(map[string]string{"currentPassword": "is required"})
	}
	if err := validation.Struct(s.Validate, in); err != nil {
		return err
	}

	u, err := s.find(ctx, targetID)
	if err != nil {
		return err
	}
	if self && !s.Hasher.Verify(in.CurrentPassword, u.PasswordHash) {
		return ErrWrongPassword
	}
	hash, err := s.Hasher.Hash(in.NewPassword)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", targetID).Error("hash password failed")
		return apperror.ErrInternal.Wrap(err)
	}
	u.PasswordHash = hash
	if err := s.save(ctx, u); err != nil {
		return err
	}
	s.Logger.WithFields(logrus.Fields{"user_id": targetID, "by": caller.UserID}).Info("password changed")
	s.afterChange(ctx, u, map[string]string{"password": "changed"})
	return nil
}

func (s *UserService) UploadAvatar(ctx context.Context, caller *entity.Identity, targetID string, r io.Reader, filename, contentType string) (entity.PublicUser, error) {
	if err := s.Guard.Authorize(caller, targetID); err != nil {
		return entity.PublicUser{}, err
	}
	if s.Avatars == nil {
		return entity.PublicUser{}, ErrAvatarsDisabled
	}
	if !strings.HasPrefix(contentType, "image/") {
		return entity.PublicUser{}, apperror.ErrValidation.WithDetails(map[string]string{"avatar": "must be an image"})
	}
	u, err := s.find(ctx, targetID)
	if err != nil {
		return entity.PublicUser{}, err
	}
	url, err := s.Avatars.UploadAvatar(ctx, targetID, filename, contentType, r)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", targetID).Error("avatar upload failed")
		return entity.PublicUser{}, apperror.ErrUnavailable.Wrap(err)
	}
	u.AvatarURL = url
	if err := s.save(ctx, u); err != nil {
		return entity.PublicUser{}, err
	}
	s.reindex(ctx, u)
	return u.Public(), nil
}

// DeleteUser removes the account. Tokens issued to it stop resolving.
func (s *UserService) DeleteUser(ctx context.Context, caller *entity.Identity, targetID string) error {
	if err := s.Guard.Authorize(caller, targetID); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, targetID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return apperror.ErrUserNotFound
		}
		return storageError(s.Logger, "delete", err)
	}
	s.Logger.WithFields(logrus.Fields{"user_id": targetID, "by": caller.UserID}).Info("user deleted")
	if s.Index != nil {
		if err := s.Index.DeleteUser(ctx, targetID); err != nil {
			s.Logger.WithError(err).WithField("user_id", targetID).Warn("es delete failed")
		}
	}
	return nil
}

// SearchUsers performs a full-text search on name and email. It returns an
// empty result when search is not configured.
func (s *UserService) SearchUsers(ctx context.Context, q string, size int) ([]entity.PublicUser, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperror.ErrValidation.WithDetails(map[string]string{"q": "is required"})
	}
	if s.Index == nil {
		return []entity.PublicUser{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	out, err := s.Index.SearchUsers(ctx, q, size)
	if err != nil {
		s.Logger.WithError(err).Warn("es search failed")
		return nil, apperror.ErrUnavailable.Wrap(err)
	}
	return out, nil
}

func (s *UserService) find(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperror.ErrUserNotFound
	}
	if err != nil {
		return nil, storageError(s.Logger, "find_by_id", err)
	}
	return u, nil
}

func (s *UserService) save(ctx context.Context, u *entity.User) error {
	if err := s.Repo.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repo.ErrEmailTaken):
			return apperror.ErrUserExists
		case errors.Is(err, repo.ErrNotFound):
			return apperror.ErrUserNotFound
		}
		return storageError(s.Logger, "update", err)
	}
	return nil
}

func (s *UserService) afterChange(ctx context.Context, u *entity.User, changes map[string]string) {
	s.reindex(ctx, u)
	if s.Mail == nil {
		return
	}
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	job := mailer.EmailJob{
		To:       u.Email,
		Template: templates.ProfileUpdated,
		Data:     templates.NewProfileUpdatedData(u.Name, u.Email, changes),
	}
	if err := s.Mail.PublishJSON(c, job); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("publish email job failed")
	}
}

func (s *UserService) reindex(ctx context.Context, u *entity.User) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexUser(ctx, u); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
	}
}
