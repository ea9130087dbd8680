package account

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stackhouselabs/taskloop/internal/apperror"
	"github.com/stackhouselabs/taskloop/internal/plugins/uploads"
)

// tokenCookieName is the HTTP cookie carrying the session token.
const tokenCookieName = "token"

// Handler handles HTTP requests for accounts. Handlers are thin: they bind
// the request, call the service, and write the response. No business logic
// lives here.
type Handler struct {
	service  AccountService
	pictures *uploads.Store
	tokenTTL time.Duration
}

// NewHandler creates an account handler with the given dependencies.
// tokenTTL bounds the cookie lifetime to the token's own expiry.
func NewHandler(service AccountService, pictures *uploads.Store, tokenTTL time.Duration) *Handler {
	return &Handler{
		service:  service,
		pictures: pictures,
		tokenTTL: tokenTTL,
	}
}

// Register creates a new account (POST /register, multipart). An optional
// profile_picture file is stored first; only its resulting path is
// persisted with the user.
func (h *Handler) Register(c echo.Context) error {
	input := RegisterInput{
		Username: c.FormValue("username"),
		Email:    c.FormValue("email"),
		Password: c.FormValue("password"),
	}

	picturePath, err := h.storePictureIfPresent(c, "profile_picture")
	if err != nil {
		return err
	}
	input.PicturePath = picturePath

	user, err := h.service.Register(c.Request().Context(), input)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user)
}

// Login authenticates and issues the session token (POST /login). The token
// is set as an HTTP-only cookie and echoed in the response body.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	user, token, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	setTokenCookie(c, token, h.tokenTTL)

	return c.JSON(http.StatusOK, LoginResponse{User: user, Token: token})
}

// Logout stamps last_logout and clears the cookie (POST /logout). The token
// itself stays valid until expiry; there is no server-side revocation.
func (h *Handler) Logout(c echo.Context) error {
	if err := h.service.Logout(c.Request().Context(), GetUserID(c)); err != nil {
		return err
	}

	clearTokenCookie(c)

	return c.JSON(http.StatusOK, map[string]string{"message": "logout successful"})
}

// Profile returns the authenticated user's record (GET /profile).
func (h *Handler) Profile(c echo.Context) error {
	user, err := h.service.Profile(c.Request().Context(), GetUserID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

// UpdateProfile applies a partial profile update (PUT /users, multipart).
// Only submitted fields change; a new profilePicture file replaces the
// stored path.
func (h *Handler) UpdateProfile(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return apperror.NewBadRequest("invalid form data")
	}

	var input UpdateProfileInput
	if vals, ok := form["username"]; ok && len(vals) > 0 {
		input.Username = &vals[0]
	}
	if vals, ok := form["email"]; ok && len(vals) > 0 {
		input.Email = &vals[0]
	}
	if vals, ok := form["password"]; ok && len(vals) > 0 && vals[0] != "" {
		input.Password = &vals[0]
	}

	picturePath, err := h.storePictureIfPresent(c, "profilePicture")
	if err != nil {
		return err
	}
	if picturePath != "" {
		input.PicturePath = &picturePath
	}

	user, err := h.service.UpdateProfile(c.Request().Context(), GetUserID(c), input)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

// DeleteAccount removes the authenticated user (DELETE /users/:id). The
// path id must match the authenticated identity; anything else is treated
// as an unknown resource.
func (h *Handler) DeleteAccount(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id != GetUserID(c) {
		return apperror.NewNotFound("user not found")
	}

	if err := h.service.DeleteAccount(c.Request().Context(), id); err != nil {
		return err
	}

	clearTokenCookie(c)

	return c.JSON(http.StatusOK, map[string]string{"message": "user deleted successfully"})
}

// ResetPassword sets a new password for the given email (POST /reset-password).
func (h *Handler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	if err := h.service.ResetPassword(c.Request().Context(), req.Email, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "password reset successful"})
}

// storePictureIfPresent reads an optional multipart file field and stores
// it via the picture store. Returns the stored path, or "" when the field
// was not submitted.
func (h *Handler) storePictureIfPresent(c echo.Context, field string) (string, error) {
	file, err := c.FormFile(field)
	if err != nil {
		// Field absent -- uploads are optional everywhere they appear.
		return "", nil
	}

	src, err := file.Open()
	if err != nil {
		return "", apperror.NewInternal(err)
	}
	defer src.Close()

	fileBytes, err := io.ReadAll(src)
	if err != nil {
		return "", apperror.NewInternal(err)
	}

	return h.pictures.Save(uploads.SaveInput{
		OriginalName: file.Filename,
		MimeType:     file.Header.Get("Content-Type"),
		FileBytes:    fileBytes,
	})
}

// --- Cookie helpers ---

// getTokenCookie reads the session token from the request cookie.
func getTokenCookie(c echo.Context) string {
	cookie, err := c.Cookie(tokenCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// setTokenCookie sets the session cookie on the response. HttpOnly (JS
// can't read it), Secure behind TLS, SameSite=Lax, lifetime matching the
// token's own expiry.
func setTokenCookie(c echo.Context, token string, ttl time.Duration) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

// clearTokenCookie removes the session cookie by setting MaxAge to -1.
func clearTokenCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
