package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/alexedwards/scs/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"foodgram/internal/errs"
	applog "foodgram/internal/log"
	"foodgram/models"
)

const (
	sessionAuthenticatedKey = "auth:authenticated"
	sessionUserIDKey        = "auth:user:id"
	sessionUserEmailKey     = "auth:user:email"
	sessionUserNameKey      = "auth:user:name"

	minPasswordLength = 8
	maxUserFieldLen   = 150
)

var (
	sessionManager *scs.SessionManager
	database       *gorm.DB
)

// Configure installs the shared dependencies used by the HTTP handlers.
func Configure(sm *scs.SessionManager, db *gorm.DB) {
	sessionManager = sm
	database = db
}

type signupRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type setPasswordRequest struct {
	NewPassword     string `json:"new_password"`
	CurrentPassword string `json:"current_password"`
}

func (p signupRequest) validate() error {
	email := strings.TrimSpace(p.Email)
	username := strings.TrimSpace(p.Username)
	switch {
	case email == "":
		return errs.Validation("email", "email is required")
	case !validEmail(email):
		return errs.Validation("email", "enter a valid email address")
	case username == "":
		return errs.Validation("username", "username is required")
	case len(username) > maxUserFieldLen || !models.ValidUsername(username):
		return errs.Validation("username", "username may only contain letters, digits and @/./+/-/_")
	case len(strings.TrimSpace(p.FirstName)) > maxUserFieldLen:
		return errs.Validation("first_name", "first name must be at most %d characters", maxUserFieldLen)
	case len(strings.TrimSpace(p.LastName)) > maxUserFieldLen:
		return errs.Validation("last_name", "last name must be at most %d characters", maxUserFieldLen)
	case len(p.Password) < minPasswordLength:
		return errs.Validation("password", "password must be at least %d characters long", minPasswordLength)
	}
	return nil
}

func validEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}

func createUser(r *http.Request, payload signupRequest) (*models.User, error) {
	if database == nil {
		return nil, gorm.ErrInvalidDB
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(payload.Email)),
		Username:     strings.TrimSpace(payload.Username),
		FirstName:    strings.TrimSpace(payload.FirstName),
		LastName:     strings.TrimSpace(payload.LastName),
		PasswordHash: string(hashed),
	}

	if err := database.WithContext(r.Context()).Create(user).Error; err != nil {
		if errs.IsDuplicateKey(err) {
			return nil, errs.Validation("username", "a user with this email or username already exists")
		}
		return nil, err
	}

	return user, nil
}

func findUserByEmail(r *http.Request, email string) (*models.User, error) {
	if database == nil {
		return nil, gorm.ErrInvalidDB
	}

	user := &models.User{}
	err := database.WithContext(r.Context()).Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

func establishSession(r *http.Request, user *models.User) error {
	if sessionManager == nil {
		return errors.New("session manager not configured")
	}
	if err := sessionManager.RenewToken(r.Context()); err != nil {
		return err
	}
	sessionManager.Put(r.Context(), sessionAuthenticatedKey, true)
	sessionManager.Put(r.Context(), sessionUserIDKey, int(user.ID))
	sessionManager.Put(r.Context(), sessionUserEmailKey, user.Email)
	sessionManager.Put(r.Context(), sessionUserNameKey, user.Username)
	return nil
}

// ActiveSession returns true when the current request has an authenticated session.
func ActiveSession(r *http.Request) bool {
	if sessionManager == nil {
		return false
	}
	return sessionManager.GetBool(r.Context(), sessionAuthenticatedKey) && sessionManager.GetInt(r.Context(), sessionUserIDKey) > 0
}

func currentUserID(r *http.Request) (uint, bool) {
	if sessionManager == nil {
		return 0, false
	}
	id := sessionManager.GetInt(r.Context(), sessionUserIDKey)
	if id <= 0 {
		return 0, false
	}
	return uint(id), true
}

// currentUser loads the signed-in user. Anonymous requests, and sessions whose
// user no longer exists, yield nil without an error.
func currentUser(r *http.Request) (*models.User, error) {
	id, ok := currentUserID(r)
	if !ok || database == nil {
		return nil, nil
	}

	user := &models.User{}
	err := database.WithContext(r.Context()).First(user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// requireUser writes 401 and returns false when the request is anonymous.
func requireUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if user == nil {
		applog.Debug(r.Context(), "request missing authenticated user", "path", r.URL.Path)
		writeJSONError(w, http.StatusUnauthorized, "authentication credentials were not provided")
		return nil, false
	}
	return user, true
}

func requireAdmin(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := requireUser(w, r)
	if !ok {
		return nil, false
	}
	if !user.IsAdmin {
		writeError(w, r, errs.Forbidden("only administrators can change the catalog"))
		return nil, false
	}
	return user, true
}

// RequireAuthentication rejects anonymous requests with 401.
func RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ActiveSession(r) {
			writeJSONError(w, http.StatusUnauthorized, "authentication credentials were not provided")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Signup creates an account and signs it in.
func Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	if sessionManager == nil || database == nil {
		applog.Debug(r.Context(), "registration dependencies unavailable", "hasSession", sessionManager != nil, "hasDatabase", database != nil)
		writeJSONError(w, http.StatusServiceUnavailable, "registration not available")
		return
	}

	var payload signupRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := createUser(r, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	applog.Info(r.Context(), "user registered", "userID", user.ID, "username", user.Username)

	if err := establishSession(r, user); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, projectUser(*user, false))
}

// Login verifies credentials and populates the session.
func Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	if sessionManager == nil || database == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "authentication not available")
		return
	}

	var payload loginRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := findUserByEmail(r, payload.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeJSONError(w, http.StatusBadRequest, "invalid email or password")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		applog.Debug(r.Context(), "password mismatch during login", "userID", user.ID)
		writeJSONError(w, http.StatusBadRequest, "invalid email or password")
		return
	}

	if err := establishSession(r, user); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectUser(*user, false))
}

// Logout destroys the current session.
func Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}

	if sessionManager != nil {
		if err := sessionManager.Destroy(r.Context()); err != nil {
			applog.Error(r.Context(), "failed to destroy session", "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPassword changes the signed-in user's password after checking the
// current one. The session token is renewed on success.
func SetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	if serviceUnavailable(w, r) {
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload setPasswordRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.CurrentPassword == "" {
		writeError(w, r, errs.Validation("current_password", "current password is required"))
		return
	}
	if len(payload.NewPassword) < minPasswordLength {
		writeError(w, r, errs.Validation("new_password", "password must be at least %d characters long", minPasswordLength))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.CurrentPassword)); err != nil {
		applog.Debug(r.Context(), "current password mismatch", "userID", user.ID)
		writeError(w, r, errs.Validation("current_password", "current password is incorrect"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := database.WithContext(r.Context()).Model(user).Update("password_hash", string(hashed)).Error; err != nil {
		writeError(w, r, err)
		return
	}
	if err := sessionManager.RenewToken(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}

	applog.Info(r.Context(), "password changed", "userID", user.ID)
	w.WriteHeader(http.StatusNoContent)
}
