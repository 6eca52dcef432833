package handlers

import (
	"net/http"

	"github.com/smgk/agency-erp/internal/auth"
	"github.com/smgk/agency-erp/internal/httpx"
	"github.com/smgk/agency-erp/internal/services"
)

type AuthHandler struct {
	directory *services.DirectoryService
}

func NewAuthHandler(directory *services.DirectoryService) *AuthHandler {
	return &AuthHandler{directory: directory}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	user, err := h.directory.Authenticate(req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	token, err := auth.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "token_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"accessToken": token,
		"user":        user,
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.directory.GetUser(auth.UserIDFrom(r))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
