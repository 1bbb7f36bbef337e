package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/AndriiLiubov/homework-web-14/internal/auth/service"
	"github.com/AndriiLiubov/homework-web-14/pkg/httpx"
	"github.com/AndriiLiubov/homework-web-14/pkg/slogx"
)

// UsersHandler serves the authenticated user endpoints.
type UsersHandler struct {
	UserService *service.UserService
}

// HandleMe returns the authenticated principal.
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		writeBearerError(w, "missing principal")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

type updateAvatarRequest struct {
	AvatarURL string `json:"avatar_url"`
}

// HandleUpdateAvatar replaces the authenticated user's avatar URL.
func (h *UsersHandler) HandleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	principal, ok := UserFromContext(ctx)
	if !ok {
		writeBearerError(w, "missing principal")
		return
	}

	var req updateAvatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.AvatarURL = strings.TrimSpace(req.AvatarURL)
	if req.AvatarURL == "" {
		httpx.WriteError(w, http.StatusBadRequest, "avatar_url is required")
		return
	}

	u, err := h.UserService.UpdateAvatar(ctx, principal.Email, req.AvatarURL)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Error("avatar update failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, u)
}
