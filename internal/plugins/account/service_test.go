package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stackhouselabs/taskloop/internal/apperror"
	"github.com/stackhouselabs/taskloop/internal/session"
)

// --- Mock Repository ---

// mockUserRepo implements UserRepository for testing.
type mockUserRepo struct {
	createFn           func(ctx context.Context, user *User) (int, error)
	findByIDFn         func(ctx context.Context, id int) (*User, error)
	findByEmailFn      func(ctx context.Context, email string) (*User, error)
	emailExistsFn      func(ctx context.Context, email string) (bool, error)
	updateFn           func(ctx context.Context, user *User) error
	updatePasswordFn   func(ctx context.Context, id int, passwordHash string) error
	updateLastLoginFn  func(ctx context.Context, id int) error
	updateLastLogoutFn func(ctx context.Context, id int) error
	deleteFn           func(ctx context.Context, id int) error
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) (int, error) {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return 1, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	if m.emailExistsFn != nil {
		return m.emailExistsFn(ctx, email)
	}
	return false, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, id, passwordHash)
	}
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id int) error {
	if m.updateLastLoginFn != nil {
		return m.updateLastLoginFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) UpdateLastLogout(ctx context.Context, id int) error {
	if m.updateLastLogoutFn != nil {
		return m.updateLastLogoutFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id int) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- Mock Todo Purger ---

type mockTodoPurger struct {
	deleteAllForUserFn func(ctx context.Context, userID int) error
	purgeCount         int
}

func (m *mockTodoPurger) DeleteAllForUser(ctx context.Context, userID int) error {
	m.purgeCount++
	if m.deleteAllForUserFn != nil {
		return m.deleteAllForUserFn(ctx, userID)
	}
	return nil
}

// --- Test Helpers ---

func newTestService(repo UserRepository) (AccountService, *session.Service) {
	tokens := session.NewService("test-secret-key-for-unit-tests", time.Hour)
	return NewAccountService(repo, tokens, &mockTodoPurger{}), tokens
}

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// --- Register Tests ---

func TestRegister_Success(t *testing.T) {
	var captured *User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) (int, error) {
			captured = user
			return 42, nil
		},
	}

	svc, _ := newTestService(repo)
	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "Alice",
		Email:    "Alice@Example.com",
		Password: "secure-password-123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 42 {
		t.Errorf("expected user id 42, got %d", user.ID)
	}
	if captured.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %s", captured.Email)
	}
	if captured.PasswordHash == "" || captured.PasswordHash == "secure-password-123" {
		t.Error("expected password to be stored hashed, never as plaintext")
	}
	if !verifyPassword("secure-password-123", captured.PasswordHash) {
		t.Error("expected stored hash to verify against the submitted password")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{
		emailExistsFn: func(ctx context.Context, email string) (bool, error) {
			return true, nil
		},
	}

	svc, _ := newTestService(repo)
	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "Bob",
		Email:    "taken@example.com",
		Password: "secure-password-123",
	})
	assertAppError(t, err, 409)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService(&mockUserRepo{})

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"missing username", RegisterInput{Email: "a@example.com", Password: "long-enough-pw"}},
		{"markup-only username", RegisterInput{Username: "<b></b>", Email: "a@example.com", Password: "long-enough-pw"}},
		{"bad email", RegisterInput{Username: "Al", Email: "not-an-email", Password: "long-enough-pw"}},
		{"short password", RegisterInput{Username: "Al", Email: "a@example.com", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.input)
			assertAppError(t, err, 422)
		})
	}
}

func TestRegister_CreateError(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) (int, error) {
			return 0, errors.New("db write error")
		},
	}

	svc, _ := newTestService(repo)
	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "Al",
		Email:    "a@example.com",
		Password: "secure-password-123",
	})
	assertAppError(t, err, 500)
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	hash, err := hashPassword("secure-password-123")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	var loginStamped bool
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return &User{ID: 42, Email: "alice@example.com", PasswordHash: hash}, nil
		},
		updateLastLoginFn: func(ctx context.Context, id int) error {
			loginStamped = true
			return nil
		},
	}

	svc, tokens := newTestService(repo)
	user, token, err := svc.Login(context.Background(), LoginInput{
		Email:    "Alice@Example.com",
		Password: "secure-password-123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 42 {
		t.Errorf("expected user id 42, got %d", user.ID)
	}
	if !loginStamped {
		t.Error("expected last_login to be stamped")
	}

	// The issued token verifies back to the same identity.
	claims, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("token verification failed: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "alice@example.com" {
		t.Errorf("unexpected claims: id=%d email=%s", claims.UserID, claims.Email)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _ := newTestService(&mockUserRepo{})
	_, _, err := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "whatever-password",
	})
	assertAppError(t, err, 404)
}

func TestLogin_WrongPassword(t *testing.T) {
	hash, err := hashPassword("correct-password")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return &User{ID: 42, Email: "alice@example.com", PasswordHash: hash}, nil
		},
	}

	svc, _ := newTestService(repo)
	_, _, err = svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	assertAppError(t, err, 401)
}

func TestLogin_FailedLoginStampDoesNotBlock(t *testing.T) {
	hash, err := hashPassword("secure-password-123")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return &User{ID: 42, Email: "alice@example.com", PasswordHash: hash}, nil
		},
		updateLastLoginFn: func(ctx context.Context, id int) error {
			return errors.New("db write error")
		},
	}

	svc, _ := newTestService(repo)
	_, token, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "secure-password-123",
	})
	if err != nil {
		t.Fatalf("expected login to succeed despite stamp failure, got: %v", err)
	}
	if token == "" {
		t.Error("expected a token")
	}
}

// --- Profile / UpdateProfile Tests ---

func TestProfile_NotFound(t *testing.T) {
	svc, _ := newTestService(&mockUserRepo{})
	_, err := svc.Profile(context.Background(), 99)
	assertAppError(t, err, 404)
}

func TestUpdateProfile_PasswordOmittedKeepsHash(t *testing.T) {
	const existingHash = "$argon2id$v=19$m=65536,t=3,p=4$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g"
	var saved *User
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int) (*User, error) {
			return &User{ID: 42, Username: "Alice", Email: "alice@example.com", PasswordHash: existingHash}, nil
		},
		updateFn: func(ctx context.Context, user *User) error {
			saved = user
			return nil
		},
	}

	svc, _ := newTestService(repo)
	newName := "Alice B"
	_, err := svc.UpdateProfile(context.Background(), 42, UpdateProfileInput{Username: &newName})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.PasswordHash != existingHash {
		t.Error("expected password hash untouched when password omitted")
	}
	if saved.Username != "Alice B" {
		t.Errorf("expected username updated, got %q", saved.Username)
	}
}

func TestUpdateProfile_PasswordProvidedRehashes(t *testing.T) {
	var saved *User
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int) (*User, error) {
			return &User{ID: 42, Username: "Alice", Email: "alice@example.com", PasswordHash: "old-hash"}, nil
		},
		updateFn: func(ctx context.Context, user *User) error {
			saved = user
			return nil
		},
	}

	svc, _ := newTestService(repo)
	newPassword := "brand-new-password"
	_, err := svc.UpdateProfile(context.Background(), 42, UpdateProfileInput{Password: &newPassword})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.PasswordHash == "old-hash" {
		t.Error("expected password hash replaced")
	}
	if !verifyPassword(newPassword, saved.PasswordHash) {
		t.Error("expected new hash to verify against the new password")
	}
}

func TestUpdateProfile_EmailTakenByOther(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int) (*User, error) {
			return &User{ID: 42, Username: "Alice", Email: "alice@example.com"}, nil
		},
		emailExistsFn: func(ctx context.Context, email string) (bool, error) {
			return true, nil
		},
	}

	svc, _ := newTestService(repo)
	taken := "bob@example.com"
	_, err := svc.UpdateProfile(context.Background(), 42, UpdateProfileInput{Email: &taken})
	assertAppError(t, err, 409)
}

func TestUpdateProfile_SameEmailSkipsDuplicateCheck(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id int) (*User, error) {
			return &User{ID: 42, Username: "Alice", Email: "alice@example.com"}, nil
		},
		emailExistsFn: func(ctx context.Context, email string) (bool, error) {
			t.Error("EmailExists should not be called for an unchanged email")
			return false, nil
		},
	}

	svc, _ := newTestService(repo)
	same := "alice@example.com"
	_, err := svc.UpdateProfile(context.Background(), 42, UpdateProfileInput{Email: &same})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- DeleteAccount Tests ---

func TestDeleteAccount_CascadesTodos(t *testing.T) {
	var deletedUser int
	repo := &mockUserRepo{
		deleteFn: func(ctx context.Context, id int) error {
			deletedUser = id
			return nil
		},
	}
	purger := &mockTodoPurger{}
	tokens := session.NewService("test-secret-key-for-unit-tests", time.Hour)
	svc := NewAccountService(repo, tokens, purger)

	if err := svc.DeleteAccount(context.Background(), 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if purger.purgeCount != 1 {
		t.Errorf("expected todos purged once, got %d", purger.purgeCount)
	}
	if deletedUser != 42 {
		t.Errorf("expected user 42 deleted, got %d", deletedUser)
	}
}

func TestDeleteAccount_PurgeFailureAborts(t *testing.T) {
	var userDeleted bool
	repo := &mockUserRepo{
		deleteFn: func(ctx context.Context, id int) error {
			userDeleted = true
			return nil
		},
	}
	purger := &mockTodoPurger{
		deleteAllForUserFn: func(ctx context.Context, userID int) error {
			return errors.New("db error")
		},
	}
	tokens := session.NewService("test-secret-key-for-unit-tests", time.Hour)
	svc := NewAccountService(repo, tokens, purger)

	err := svc.DeleteAccount(context.Background(), 42)
	assertAppError(t, err, 500)
	if userDeleted {
		t.Error("expected user row kept when the todo purge fails")
	}
}

// --- ResetPassword Tests ---

func TestResetPassword_Success(t *testing.T) {
	var savedID int
	var savedHash string
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return &User{ID: 42, Email: "alice@example.com"}, nil
		},
		updatePasswordFn: func(ctx context.Context, id int, passwordHash string) error {
			savedID = id
			savedHash = passwordHash
			return nil
		},
	}

	svc, _ := newTestService(repo)
	if err := svc.ResetPassword(context.Background(), "alice@example.com", "fresh-password-9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if savedID != 42 {
		t.Errorf("expected password saved for user 42, got %d", savedID)
	}
	if !verifyPassword("fresh-password-9", savedHash) {
		t.Error("expected saved hash to verify against the new password")
	}
}

func TestResetPassword_UnknownEmail(t *testing.T) {
	svc, _ := newTestService(&mockUserRepo{})
	err := svc.ResetPassword(context.Background(), "nobody@example.com", "fresh-password-9")
	assertAppError(t, err, 404)
}

func TestResetPassword_ShortPassword(t *testing.T) {
	svc, _ := newTestService(&mockUserRepo{})
	err := svc.ResetPassword(context.Background(), "alice@example.com", "short")
	assertAppError(t, err, 422)
}

// --- Password Hashing Tests ---

func TestHashAndVerifyPassword(t *testing.T) {
	password := "my-secret-password-123"

	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if !verifyPassword(password, hash) {
		t.Error("expected correct password to verify")
	}
	if verifyPassword("wrong-password", hash) {
		t.Error("expected wrong password to fail verification")
	}
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty string", ""},
		{"random text", "not-a-hash"},
		{"too few parts", "$argon2id$v=19$m=65536"},
		{"corrupted salt", "$argon2id$v=19$m=65536,t=3,p=4$!!!invalid$aGFzaA"},
		{"corrupted hash", "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$!!!invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if verifyPassword("password", tt.hash) {
				t.Error("expected invalid hash to fail verification")
			}
		})
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	hash1, err := hashPassword("same-password")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	hash2, err := hashPassword("same-password")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash1 == hash2 {
		t.Error("expected different salts to produce different hashes")
	}
}
