package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/domain/user"
)

const (
	refreshTokenCookie = "refresh_token"
	refreshCookiePath  = "/auth/refresh"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	users      *user.Directory
	jwtService *auth.JWTService
	sessions   *Sessions
}

func NewAuthHandlers(users *user.Directory, jwtService *auth.JWTService, sessions *Sessions) *AuthHandlers {
	return &AuthHandlers{
		users:      users,
		jwtService: jwtService,
		sessions:   sessions,
	}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User        UserResponse `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	Message     string       `json:"message,omitempty"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func userResponse(u *user.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, CreatedAt: u.CreatedAt}
}

// Register handles user registration
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.users.Register(req.Email, req.Password, req.Name)
	switch {
	case errors.Is(err, user.ErrEmailTaken):
		respondJSONError(w, "Email already registered", http.StatusConflict)
		return
	case errors.Is(err, user.ErrInvalidEmail),
		errors.Is(err, user.ErrInvalidName),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordTooLong):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		log.Printf("[API] Registration failed: %v", err)
		respondJSONError(w, "Registration failed", http.StatusInternalServerError)
		return
	}

	h.signIn(w, r, u, http.StatusCreated, "Registration successful")
}

// Login handles user login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.users.Authenticate(req.Email, req.Password)
	if err != nil {
		respondJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	h.signIn(w, r, u, http.StatusOK, "Login successful")
}

// Logout ends the user's checkout session and clears the auth cookies.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if uid := middleware.GetUserID(r.Context()); uid != "" {
		h.sessions.Logout(uid)
	}
	h.clearAuthCookies(w)

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Logout successful",
	})
}

// Refresh issues a new access token from the refresh cookie.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil {
		respondJSONError(w, "No refresh token", http.StatusUnauthorized)
		return
	}

	userID, err := h.jwtService.ValidateRefreshToken(cookie.Value)
	if err != nil {
		h.clearAuthCookies(w)
		respondJSONError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	u, err := h.users.Get(userID)
	if err != nil {
		h.clearAuthCookies(w)
		respondJSONError(w, "User not found", http.StatusUnauthorized)
		return
	}

	h.signIn(w, r, u, http.StatusOK, "Token refreshed")
}

// Me returns the current authenticated user's information
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(middleware.GetUserID(r.Context()))
	if err != nil {
		respondJSONError(w, "User not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, userResponse(u))
}

// signIn issues tokens, binds the checkout session to the user and carries
// over any anonymous cart the visitor had.
func (h *AuthHandlers) signIn(w http.ResponseWriter, r *http.Request, u *user.User, status int, message string) {
	accessToken, accessExpiry, err := h.jwtService.GenerateAccessToken(u.Principal())
	if err != nil {
		log.Printf("[API] Failed to issue access token: %v", err)
		respondJSONError(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}
	refreshToken, refreshExpiry, err := h.jwtService.GenerateRefreshToken(u.ID)
	if err != nil {
		log.Printf("[API] Failed to issue refresh token: %v", err)
		respondJSONError(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	id := checkout.Identity{UID: u.ID, Email: u.Email, Name: u.Name}
	if c, err := r.Cookie(cartSessionCookie); err == nil && c.Value != "" {
		h.sessions.Adopt(c.Value, id)
	} else {
		h.sessions.ForUser(id)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		Expires:  accessExpiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    refreshToken,
		Path:     refreshCookiePath,
		Expires:  refreshExpiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	respondJSON(w, status, AuthResponse{
		User:        userResponse(u),
		AccessToken: accessToken,
		ExpiresAt:   accessExpiry,
		Message:     message,
	})
}

func (h *AuthHandlers) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
	})
}
