package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/urbandrip/storefront-api/internal/auth"
	"github.com/urbandrip/storefront-api/internal/validators"
)

type AuthHandler struct {
	Users  UserStore
	Issuer *auth.Issuer
}

type RegisterReq struct {
	Name     string `json:"nombre"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResp struct {
	Token string    `json:"token"`
	User  auth.User `json:"usuario"`
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/api/auth/registro", h.register)
	r.Post("/api/auth/login", h.login)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterReq
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = validators.NormalizeEmail(req.Email)
	for _, err := range []error{
		validators.ValidateString("nombre", req.Name, 1, 80),
		validators.ValidateEmail(req.Email),
		validators.ValidatePassword(req.Password),
	} {
		if err != nil {
			writeMsg(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Name, req.Email, hash, auth.RoleCustomer)
	if errors.Is(err, auth.ErrEmailTaken) {
		writeMsg(w, http.StatusConflict, "email already registered")
		return
	} else if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Users.FindByEmail(ctx, validators.NormalizeEmail(req.Email))
	if errors.Is(err, auth.ErrUserNotFound) {
		writeMsg(w, http.StatusUnauthorized, "invalid credentials")
		return
	} else if err != nil {
		writeError(w, r, err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		writeMsg(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tok, err := h.Issuer.Issue(u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResp{Token: tok, User: u})
}
