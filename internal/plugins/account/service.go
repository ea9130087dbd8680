package account

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/stackhouselabs/taskloop/internal/apperror"
	"github.com/stackhouselabs/taskloop/internal/sanitize"
	"github.com/stackhouselabs/taskloop/internal/session"
)

// argon2id parameters following OWASP recommendations for argon2id:
// memory=64MB, iterations=3, parallelism=4.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // 64 MB in KiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// TodoPurger soft-deletes all of a user's todo items. Implemented by the
// todo plugin; declared here so account deletion can cascade without the
// account package importing todo.
type TodoPurger interface {
	DeleteAllForUser(ctx context.Context, userID int) error
}

// AccountService defines the business logic contract for user accounts.
// Handlers call these methods -- they never touch the repository directly.
type AccountService interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Login(ctx context.Context, input LoginInput) (*User, string, error)
	Logout(ctx context.Context, userID int) error
	Profile(ctx context.Context, userID int) (*User, error)
	UpdateProfile(ctx context.Context, userID int, input UpdateProfileInput) (*User, error)
	DeleteAccount(ctx context.Context, userID int) error
	ResetPassword(ctx context.Context, email, newPassword string) error
}

// accountService implements AccountService with argon2id hashing and
// stateless signed session tokens.
type accountService struct {
	repo   UserRepository
	tokens *session.Service
	todos  TodoPurger
}

// NewAccountService creates an account service with the given dependencies.
func NewAccountService(repo UserRepository, tokens *session.Service, todos TodoPurger) AccountService {
	return &accountService{
		repo:   repo,
		tokens: tokens,
		todos:  todos,
	}
}

// Register creates a new user account. It validates the input, rejects
// duplicate emails, hashes the password with argon2id, and persists the
// user. The stored password never equals the submitted plaintext.
func (s *accountService) Register(ctx context.Context, input RegisterInput) (*User, error) {
	username := sanitize.Text(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if username == "" {
		return nil, apperror.NewValidation("username is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.NewValidation("a valid email address is required")
	}
	if len(input.Password) < 8 {
		return nil, apperror.NewValidation("password must be at least 8 characters")
	}

	// Check for duplicates before doing expensive hashing.
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if exists {
		return nil, apperror.NewConflict("an account with this email already exists")
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	now := time.Now().UTC()
	user := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.PicturePath != "" {
		picture := input.PicturePath
		user.ProfilePicturePath = &picture
	}

	id, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}
	user.ID = id

	slog.Info("user registered",
		slog.Int("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Login authenticates a user by email and password. Unknown emails fail
// with NotFound, a failed hash comparison with Unauthorized. On success it
// stamps last_login and issues a signed session token.
func (s *accountService) Login(ctx context.Context, input LoginInput) (*User, string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, "", appErr
		}
		return nil, "", apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !verifyPassword(input.Password, user.PasswordHash) {
		return nil, "", apperror.NewUnauthorized("invalid credentials")
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", apperror.NewInternal(fmt.Errorf("issuing session token: %w", err))
	}

	// Stamp last_login. Non-critical: a failed stamp should not block login.
	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("failed to update last login",
			slog.Int("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	slog.Info("user logged in",
		slog.Int("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, token, nil
}

// Logout stamps last_logout for the user. The token itself is not revoked
// server-side; it remains cryptographically valid until its natural expiry.
// The handler clears the client cookie.
func (s *accountService) Logout(ctx context.Context, userID int) error {
	if err := s.repo.UpdateLastLogout(ctx, userID); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperror.NewInternal(fmt.Errorf("updating last logout: %w", err))
	}

	slog.Info("user logged out", slog.Int("user_id", userID))
	return nil
}

// Profile returns the user record for the authenticated identity.
func (s *accountService) Profile(ctx context.Context, userID int) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}
	return user, nil
}

// UpdateProfile applies a partial update to the user's profile. A provided
// password is re-hashed; an omitted one leaves the existing hash untouched.
// A new picture path overwrites the old one (the old file is kept on disk).
func (s *accountService) UpdateProfile(ctx context.Context, userID int, input UpdateProfileInput) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if input.Username != nil {
		username := sanitize.Text(*input.Username)
		if username == "" {
			return nil, apperror.NewValidation("username must not be empty")
		}
		user.Username = username
	}

	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, apperror.NewValidation("a valid email address is required")
		}
		if email != user.Email {
			exists, err := s.repo.EmailExists(ctx, email)
			if err != nil {
				return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
			}
			if exists {
				return nil, apperror.NewConflict("an account with this email already exists")
			}
			user.Email = email
		}
	}

	if input.Password != nil {
		if len(*input.Password) < 8 {
			return nil, apperror.NewValidation("password must be at least 8 characters")
		}
		hash, err := hashPassword(*input.Password)
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
		}
		user.PasswordHash = hash
	}

	if input.PicturePath != nil {
		user.ProfilePicturePath = input.PicturePath
	}

	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.NewInternal(fmt.Errorf("updating user: %w", err))
	}

	slog.Info("profile updated", slog.Int("user_id", user.ID))
	return user, nil
}

// DeleteAccount soft-deletes the user's todo items, then hard-deletes the
// user row. The cascade keeps the store free of orphaned items.
func (s *accountService) DeleteAccount(ctx context.Context, userID int) error {
	if err := s.todos.DeleteAllForUser(ctx, userID); err != nil {
		return apperror.NewInternal(fmt.Errorf("removing user's todos: %w", err))
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperror.NewInternal(fmt.Errorf("deleting user: %w", err))
	}

	slog.Info("account deleted", slog.Int("user_id", userID))
	return nil
}

// ResetPassword re-hashes and persists a new password for the given email.
// Fails with NotFound if the email is unmatched.
func (s *accountService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if len(newPassword) < 8 {
		return apperror.NewValidation("password must be at least 8 characters")
	}

	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}

	slog.Info("password reset", slog.Int("user_id", user.ID))
	return nil
}

// --- Password hashing (argon2id) ---

// hashPassword creates an argon2id hash of the given password in the
// standard PHC string format: $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>.
// The format is self-contained, so no separate salt storage is needed.
func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads, b64Salt, b64Hash)

	return encoded, nil
}

// verifyPassword checks a plaintext password against an argon2id hash
// string. Returns true if the password matches.
func verifyPassword(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Constant-time comparison to prevent timing attacks.
	return subtle.ConstantTimeCompare(expectedHash, computedHash) == 1
}
