package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"writeflow/internal/middleware"
	"writeflow/internal/models"
	"writeflow/internal/repository"
	"writeflow/internal/token"
	"writeflow/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor for stored passwords.
const PasswordCost = 10

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(userID uint, username string) (string, error)
}

// TokenRevoker records logged-out tokens until they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

type AuthService struct {
	users   repository.UserRepository
	tokens  TokenIssuer
	revoker TokenRevoker
	now     func() time.Time
	// dummyHash is compared against when the username is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
}

type RegisterInput struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Birthday string `json:"birthday" validate:"required"`
	Gender   string `json:"gender" validate:"required"`
}

func NewAuthService(users repository.UserRepository, tokens TokenIssuer, revoker TokenRevoker) *AuthService {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("writeflow-placeholder"), PasswordCost)
	return &AuthService{
		users:     users,
		tokens:    tokens,
		revoker:   revoker,
		now:       time.Now,
		dummyHash: dummy,
	}
}

func invalidCredentials() *models.AppError {
	return models.NewValidationError("Invalid credentials")
}

// Register creates an account. Email and username must both be unused.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Gender = strings.TrimSpace(in.Gender)

	if err := validation.Struct(in); err != nil {
		return nil, models.NewValidationError("All fields are required")
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	birthday, err := validation.ParseBirthday(in.Birthday, s.now())
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		existing, err = s.users.GetByUsername(ctx, in.Username)
		if err != nil {
			return nil, err
		}
	}
	if existing != nil {
		return nil, models.NewConflictError("User already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), PasswordCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hashed),
		Birthday: birthday,
		Gender:   in.Gender,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, models.NewConflictError("User already exists")
		}
		return nil, models.NewInternalError(err)
	}

	middleware.Logger.InfoContext(ctx, "user registered",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Authenticate checks a username/password pair. Unknown users and wrong
// passwords produce the same error.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalidCredentials()
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, invalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, invalidCredentials()
	}
	return user, nil
}

// IssueToken signs a session token for user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	if s.tokens == nil {
		return "", models.NewInternalError(token.ErrMissingSecret)
	}
	signed, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return signed, nil
}

// Logout revokes the presented token. Without a revocation store the
// token stays valid until it expires, which is logged but not an error.
func (s *AuthService) Logout(ctx context.Context, identity *token.Identity) error {
	if identity == nil {
		return models.NewUnauthorizedError("Unauthorized")
	}
	if s.revoker == nil || identity.TokenID == "" {
		middleware.Logger.WarnContext(ctx, "logout without revocation store; token remains valid until expiry")
		return nil
	}
	if err := s.revoker.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
		middleware.Logger.WarnContext(ctx, "token revocation failed", slog.String("error", err.Error()))
	}
	return nil
}

// CurrentUser loads the account behind identity.
func (s *AuthService) CurrentUser(ctx context.Context, identity *token.Identity) (*models.User, error) {
	if identity == nil {
		return nil, models.NewUnauthorizedError("Unauthorized")
	}
	return s.users.GetByID(ctx, identity.UserID)
}
