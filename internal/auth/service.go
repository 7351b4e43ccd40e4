package auth

import (
	"context"
	"strings"
	"time"

	"github.com/jinzhu/gorm"
	"golang.org/x/crypto/bcrypt"

	"cafe/internal/access"
	"cafe/internal/apperr"
	"cafe/internal/database"
	"cafe/internal/models"
)

// RoleChecker tells whether a role exists in the active policy.
type RoleChecker interface {
	HasRole(role string) bool
}

// Service owns staff accounts and credential checks.
type Service struct {
	db     *gorm.DB
	tokens *TokenMaker
	roles  RoleChecker
	cost   int
}

type Option func(*Service)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

func NewService(db *gorm.DB, tokens *TokenMaker, roles RoleChecker, opts ...Option) *Service {
	s := &Service{db: db, tokens: tokens, roles: roles, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login checks credentials and issues an access token.
func (s *Service) Login(ctx context.Context, username, password string) (string, time.Time, access.Identity, error) {
	id, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", time.Time{}, access.Identity{}, err
	}

	token, expires, err := s.tokens.Create(id)
	if err != nil {
		return "", time.Time{}, access.Identity{}, apperr.Internal("login", err)
	}
	return token, expires, id, nil
}

// Authenticate resolves a username/password pair to an identity.
func (s *Service) Authenticate(ctx context.Context, username, password string) (access.Identity, error) {
	const op = "authenticate"

	var user models.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if database.IsNotFound(err) {
		return access.Identity{}, apperr.Unauthenticated(op, "invalid username or password")
	}
	if err != nil {
		return access.Identity{}, apperr.Internal(op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return access.Identity{}, apperr.Unauthenticated(op, "invalid username or password")
	}

	return identityOf(user), nil
}

// VerifyToken resolves a bearer token to an identity.
func (s *Service) VerifyToken(token string) (access.Identity, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return access.Identity{}, apperr.Unauthenticated("verify_token", "invalid or expired token")
	}
	return id, nil
}

// CreateUser registers a staff account.
func (s *Service) CreateUser(ctx context.Context, username, password, role string) (*models.User, error) {
	const op = "create_user"

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Validation(op, "username is required")
	}
	if len(password) < 4 {
		return nil, apperr.Validation(op, "password must be at least 4 characters")
	}
	if s.roles != nil && !s.roles.HasRole(role) {
		return nil, apperr.Validation(op, "unknown role "+role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	user := models.User{Username: username, PasswordHash: string(hash), Role: role}
	if err := s.db.Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.Conflict(op, "username already taken")
		}
		return nil, apperr.Internal(op, err)
	}
	return &user, nil
}

// EnsureBootstrapUser creates an admin account when no staff exist yet.
func (s *Service) EnsureBootstrapUser(ctx context.Context, username, password string) (bool, error) {
	var count int
	if err := s.db.Model(&models.User{}).Count(&count).Error; err != nil {
		return false, apperr.Internal("bootstrap_user", err)
	}
	if count > 0 || password == "" {
		return false, nil
	}
	if _, err := s.CreateUser(ctx, username, password, "admin"); err != nil {
		return false, err
	}
	return true, nil
}

func identityOf(u models.User) access.Identity {
	return access.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}
