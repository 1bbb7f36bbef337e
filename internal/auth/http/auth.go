package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/AndriiLiubov/homework-web-14/internal/auth/mail"
	"github.com/AndriiLiubov/homework-web-14/internal/auth/service"
	"github.com/AndriiLiubov/homework-web-14/pkg/httpx"
	"github.com/AndriiLiubov/homework-web-14/pkg/slogx"
)

// AuthHandler serves the signup, login, refresh and email-confirmation
// endpoints.
type AuthHandler struct {
	AuthService *service.AuthService
	UserService *service.UserService
	Mailer      mail.Mailer
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type requestEmailBody struct {
	Email string `json:"email"`
}

// HandleSignup creates a new account and sends the address-confirmation mail.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	u, err := h.AuthService.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrAccountExists) {
			httpx.WriteError(w, http.StatusConflict, "Account already exists")
			return
		}
		log.Error("signup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.sendVerificationMail(r, u.Email, u.Username)

	httpx.WriteJSON(w, http.StatusCreated, SignupResponse{
		User:   u,
		Detail: "User successfully created. Check your email for confirmation.",
	})
}

// HandleLogin authenticates the form credentials and returns a token pair.
// The body is application/x-www-form-urlencoded with username carrying the
// email address.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid form body")
		return
	}

	email := strings.TrimSpace(r.Form.Get("username"))
	password := r.Form.Get("password")
	if email == "" || password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	pair, err := h.AuthService.Login(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid email")
		case errors.Is(err, service.ErrEmailNotConfirmed):
			httpx.WriteError(w, http.StatusUnauthorized, "Email not confirmed")
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid password")
		default:
			log.Error("login failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}

// HandleRefresh rotates the refresh token presented as a bearer credential
// and returns a fresh pair.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	raw, ok := bearerToken(r)
	if !ok {
		writeBearerError(w, "missing bearer token")
		return
	}

	pair, err := h.AuthService.RefreshTokenPair(ctx, raw)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenReuse):
			log.Warn("refresh token reuse detected")
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
		case errors.Is(err, service.ErrInvalidToken):
			httpx.WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
		default:
			log.Error("refresh failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}

// HandleConfirmEmail redeems the verification token from the confirmation
// link. Confirming an already-confirmed address reports success.
func (h *AuthHandler) HandleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	email, err := h.AuthService.EmailFromVerificationToken(r.PathValue("token"))
	if err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "Invalid token for email verification")
		return
	}

	u, err := h.UserService.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			httpx.WriteError(w, http.StatusBadRequest, "Verification error")
			return
		}
		log.Error("email confirmation lookup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if u.Confirmed {
		httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Your email is already confirmed"})
		return
	}

	if err := h.AuthService.ConfirmEmail(ctx, email); err != nil {
		log.Error("email confirmation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Email confirmed"})
}

// HandleRequestEmail re-sends the confirmation mail. The response never
// reveals whether the address belongs to an account.
func (h *AuthHandler) HandleRequestEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req requestEmailBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "email is required")
		return
	}

	u, err := h.UserService.GetUserByEmail(ctx, req.Email)
	switch {
	case err == nil && u.Confirmed:
		httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Your email is already confirmed"})
		return
	case err == nil:
		h.sendVerificationMail(r, u.Email, u.Username)
	case !errors.Is(err, service.ErrUserNotFound):
		// Store failure, not an unknown address. The response stays the same
		// so the endpoint never reveals which it was.
		log.Error("request_email lookup failed", "err", err)
	}

	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Check your email for confirmation."})
}

// sendVerificationMail issues a verification token and hands it to the
// mailer. Delivery failures are logged, not surfaced; the user can re-request
// the mail.
func (h *AuthHandler) sendVerificationMail(r *http.Request, email, username string) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token, err := h.AuthService.IssueEmailVerificationToken(email)
	if err != nil {
		log.Error("failed to issue verification token", "email", email, "err", err)
		return
	}
	if err := h.Mailer.SendVerification(ctx, email, username, token); err != nil {
		log.Error("failed to send verification mail", "email", email, "err", err)
	}
}
