package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-ddd-auth-core/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-auth-core/internal/domain/repository"
	"github.com/oksasatya/go-ddd-auth-core/pkg/apperror"
	"github.com/oksasatya/go-ddd-auth-core/pkg/helpers"
	"github.com/oksasatya/go-ddd-auth-core/pkg/mailer"
	"github.com/oksasatya/go-ddd-auth-core/pkg/mailer/templates"
	"github.com/oksasatya/go-ddd-auth-core/pkg/validation"
)

const defaultSideEffectTimeout = 5 * time.Second

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// AuthResult is returned by register, login and refresh. It never carries a
// password hash.
type AuthResult struct {
	User         entity.PublicUser `json:"user"`
	Token        string            `json:"token"`
	RefreshToken string            `json:"refreshToken"`
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,strongpwd,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=72"`

	// Request metadata for the optional login notification.
	ClientIP  string `json:"-"`
	UserAgent string `json:"-"`
}

// AuthService verifies credentials, issues token pairs and resolves access
// tokens to identities. It keeps no state between calls apart from in-flight
// best-effort side effects.
type AuthService struct {
	Repo     repo.UserRepository
	Hasher   *helpers.PasswordHasher
	JWT      *helpers.JWTManager
	Logger   *logrus.Logger
	Validate *validator.Validate

	// Optional collaborators; nil disables them.
	Mail  EmailPublisher
	Index UserIndexer

	NotifyLogin       bool
	SideEffectTimeout time.Duration

	dummyOnce sync.Once
	dummyHash string
	wg        sync.WaitGroup
}

func NewAuthService(r repo.UserRepository, hasher *helpers.PasswordHasher, jwt *helpers.JWTManager, logger *logrus.Logger) *AuthService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AuthService{
		Repo:              r,
		Hasher:            hasher,
		JWT:               jwt,
		Logger:            logger,
		Validate:          validation.New(),
		SideEffectTimeout: defaultSideEffectTimeout,
	}
}

// Register creates a user with the default role and returns its first token pair.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = entity.NormalizeEmail(in.Email)
	if err := validation.Struct(s.Validate, in); err != nil {
		return nil, err
	}

	exists, err := s.Repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, storageError(s.Logger, "exists_by_email", err)
	}
	if exists {
		return nil, apperror.ErrUserExists
	}

	hash, err := s.Hasher.Hash(in.Password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, apperror.ErrValidation.WithDetails(map[string]string{"password": "must be at most 72 bytes long"})
	}
	if err != nil {
		s.Logger.WithError(err).Error("hash password failed")
		return nil, apperror.ErrInternal.Wrap(err)
	}
	u := &entity.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         entity.DefaultRole,
	}
	if err := s.Repo.Insert(ctx, u); err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			return nil, apperror.ErrUserExists
		}
		return nil, storageError(s.Logger, "insert", err)
	}

	res, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	s.Logger.WithField("user_id", u.ID).Info("user registered")

	s.background(ctx, func(c context.Context) {
		s.indexUser(c, u)
		s.sendEmail(c, mailer.EmailJob{
			To:       u.Email,
			Template: templates.Welcome,
			Data:     templates.NewWelcomeData(u.Name, u.Email, templates.WithTime(time.Now())),
		})
	})
	return res, nil
}

// Login exchanges an email and password for a token pair. Unknown email and
// wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = entity.NormalizeEmail(in.Email)
	if err := validation.Struct(s.Validate, in); err != nil {
		return nil, err
	}

	u, err := s.Repo.FindCredentialsByEmail(ctx, in.Email)
	if errors.Is(err, repo.ErrNotFound) {
		// Burn the same bcrypt work as a real comparison.
		s.Hasher.Verify(in.Password, s.dummy())
		return nil, apperror.ErrInvalidCredentials
	}
	if err != nil {
		return nil, storageError(s.Logger, "find_credentials_by_email", err)
	}
	if !s.Hasher.Verify(in.Password, u.PasswordHash) {
		return nil, apperror.ErrInvalidCredentials
	}

	res, err := s.issue(u)
	if err != nil {
		return nil, err
	}

	userID := u.ID
	s.background(ctx, func(c context.Context) {
		if err := s.Repo.UpdateLastAuthenticated(c, userID); err != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("update last login failed")
		}
		if s.NotifyLogin {
			s.sendEmail(c, mailer.EmailJob{
				To:       u.Email,
				Template: templates.LoginNotification,
				Data: templates.NewLoginNotificationData(u.Name, u.Email,
					templates.WithIP(in.ClientIP),
					templates.WithUserAgent(in.UserAgent),
					templates.WithTime(time.Now()),
				),
			})
		}
	})
	return res, nil
}

// Refresh verifies a refresh token and issues a brand-new pair. The presented
// token stays valid until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apperror.ErrValidation.WithDetails(map[string]string{"refreshToken": "is required"})
	}
	p, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.ErrInvalidRefreshToken.Wrap(err)
	}
	u, err := s.Repo.FindByID(ctx, p.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperror.ErrUserNotFound
	}
	if err != nil {
		return nil, storageError(s.Logger, "find_by_id", err)
	}
	return s.issue(u)
}

// Authenticate resolves an access token to the identity of an existing user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*entity.Identity, *entity.User, error) {
	if accessToken == "" {
		return nil, nil, apperror.ErrNoToken
	}
	p, err := s.JWT.ParseAccessToken(accessToken)
	if err != nil {
		return nil, nil, err
	}
	u, err := s.Repo.FindByID(ctx, p.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil, apperror.ErrTokenUserNotFound
	}
	if err != nil {
		return nil, nil, storageError(s.Logger, "find_by_id", err)
	}
	u.PasswordHash = ""
	return &entity.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}, u, nil
}

// Wait blocks until in-flight best-effort side effects have finished.
func (s *AuthService) Wait() { s.wg.Wait() }

func (s *AuthService) issue(u *entity.User) (*AuthResult, error) {
	pair, err := IssueTokens(s.JWT, u)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate tokens failed")
		return nil, apperror.ErrInternal.Wrap(err)
	}
	return &AuthResult{User: u.Public(), Token: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// IssueTokens signs a fresh access and refresh token for u.
func IssueTokens(jwt *helpers.JWTManager, u *entity.User) (TokenPair, error) {
	access, aexp, err := jwt.GenerateAccessToken(u.ID, u.Email)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := jwt.GenerateRefreshToken(u.ID, u.Email)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.Hasher.Hash("dummy-password-for-timing")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// background runs fn detached from the request's cancellation, bounded by
// SideEffectTimeout. Panics and errors never reach the caller.
func (s *AuthService) background(ctx context.Context, fn func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.Logger.WithField("panic", r).Error("auth side effect panicked")
			}
		}()
		c, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.SideEffectTimeout)
		defer cancel()
		fn(c)
	}()
}

func (s *AuthService) indexUser(ctx context.Context, u *entity.User) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexUser(ctx, u); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
	}
}

func (s *AuthService) sendEmail(ctx context.Context, job mailer.EmailJob) {
	if s.Mail == nil {
		return
	}
	if err := s.Mail.PublishJSON(ctx, job); err != nil {
		s.Logger.WithError(err).WithField("template", job.Template).Warn("publish email job failed")
	}
}

// storageError logs a repository failure and replaces it with a generic
// error safe to return to clients.
func storageError(logger *logrus.Logger, op string, err error) error {
	if errors.Is(err, repo.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		logger.WithError(err).WithField("op", op).Warn("user repository unavailable")
		return apperror.ErrUnavailable.Wrap(err)
	}
	logger.WithError(err).WithField("op", op).Error("user repository failed")
	return apperror.ErrInternal.Wrap(err)
}
