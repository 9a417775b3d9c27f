package handlers

import (
	"net/http"

	"taskHub/internal/handlers/dto"
)

type UserHandler struct {
	users UserService
}

func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "list_users")
		return
	}
	responseWithJSON(w, http.StatusOK, dto.FromUserList(users))
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	profile, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err, "get_me")
		return
	}
	responseWithJSON(w, http.StatusOK, dto.FromUser(profile))
}
