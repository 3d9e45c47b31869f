package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkgauth "github.com/deorejayesh9663/UniTrade/pkg/auth"
	"github.com/deorejayesh9663/UniTrade/pkg/config"
	"github.com/deorejayesh9663/UniTrade/pkg/db"
	"github.com/deorejayesh9663/UniTrade/pkg/db/models"
	"github.com/deorejayesh9663/UniTrade/pkg/enums"
	pkgerrors "github.com/deorejayesh9663/UniTrade/pkg/errors"
	"github.com/deorejayesh9663/UniTrade/pkg/security"
	"github.com/google/uuid"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	DefaultDisplayName        = "Student"
)

// Service is the identity collaborator: registration, login and profiles.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Count(ctx context.Context) (int64, error)
}

type ServiceParams struct {
	Repo        userRepository
	JWT         config.JWTConfig
	Password    config.PasswordConfig
	Marketplace config.MarketplaceConfig
	Now         func() time.Time
}

type service struct {
	repo        userRepository
	jwt         config.JWTConfig
	password    config.PasswordConfig
	marketplace config.MarketplaceConfig
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repo,
		jwt:         params.JWT,
		password:    params.Password,
		marketplace: params.Marketplace,
		now:         now,
	}, nil
}

// Register creates a student account. Addresses listed in the admin
// bootstrap list are created as administrators.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if err := security.CheckPolicy(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	hash, err := security.HashPassword(req.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	role := enums.UserRoleStudent
	if s.marketplace.IsAdminEmail(email) {
		role = enums.UserRoleAdmin
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = DefaultDisplayName
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  name,
		College:      strings.TrimSpace(req.College),
		Role:         role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	return s.issue(user, s.now().UTC())
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	valid, err := security.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	user.LastLoginAt = &now

	return s.issue(user, now)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count users")
	}
	return n, nil
}

func (s *service) issue(user *models.User, now time.Time) (*AuthResponse, error) {
	token, err := pkgauth.MintAccessToken(s.jwt, now, PrincipalFor(user))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &AuthResponse{AccessToken: token, User: FromModel(user)}, nil
}

// PrincipalFor converts a stored user into the identity carried by tokens.
func PrincipalFor(user *models.User) pkgauth.Principal {
	return pkgauth.Principal{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		College:     user.College,
		Role:        user.Role,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
