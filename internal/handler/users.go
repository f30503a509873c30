package handler

import (
	"net/http"

	"github.com/mmeshcher/coffeeshop/internal/model"
	"github.com/mmeshcher/coffeeshop/internal/validation"
)

type profileRequest struct {
	Name       *string `json:"name"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
	City       *string `json:"city"`
	PostalCode *string `json:"postalCode"`
}

// UpdateProfile меняет переданные поля профиля текущего пользователя.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		h.fail(w, r, "update profile", err)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), caller, model.ProfileUpdate{
		Name:       req.Name,
		Phone:      req.Phone,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		h.fail(w, r, "update profile", err)
		return
	}

	respond(w, http.StatusOK, "user", toUserResponse(user))
}

// ListUsers возвращает всех пользователей магазина.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	users, err := h.service.ListUsers(r.Context(), caller)
	if err != nil {
		h.fail(w, r, "list users", err)
		return
	}

	respond(w, http.StatusOK, "users", toUserResponses(users))
}
