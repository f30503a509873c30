package handler

import (
	"net/http"

	"github.com/mmeshcher/coffeeshop/internal/service"
	"github.com/mmeshcher/coffeeshop/internal/validation"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone"`
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type sessionResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

func toSessionResponse(s *service.Session) sessionResponse {
	return sessionResponse{
		User:         toUserResponse(s.User),
		AccessToken:  s.Tokens.AccessToken,
		RefreshToken: s.Tokens.RefreshToken,
	}
}

// Register обрабатывает регистрацию нового покупателя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		h.fail(w, r, "register", err)
		return
	}

	sess, err := h.service.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
	})
	if err != nil {
		h.fail(w, r, "register", err)
		return
	}

	respond(w, http.StatusCreated, "data", toSessionResponse(sess))
}

// Login выполняет аутентификацию пользователя и выдаёт токены.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		h.fail(w, r, "login", err)
		return
	}

	sess, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}

	respond(w, http.StatusOK, "data", toSessionResponse(sess))
}

// AdminLogin выполняет вход в панель администратора.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		h.fail(w, r, "admin login", err)
		return
	}

	sess, err := h.service.AdminLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, "admin login", err)
		return
	}

	respond(w, http.StatusOK, "data", toSessionResponse(sess))
}

// Refresh выдаёт новый токен доступа.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		h.fail(w, r, "refresh", err)
		return
	}

	token, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.fail(w, r, "refresh", err)
		return
	}

	respond(w, http.StatusOK, "data", map[string]string{"accessToken": token})
}

// Me возвращает профиль текущего пользователя.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	user, err := h.service.Me(r.Context(), caller)
	if err != nil {
		h.fail(w, r, "me", err)
		return
	}

	respond(w, http.StatusOK, "user", toUserResponse(user))
}
