// Package handler содержит HTTP-обработчики API кофейного магазина.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/coffeeshop/internal/middleware"
	"github.com/mmeshcher/coffeeshop/internal/model"
	"github.com/mmeshcher/coffeeshop/internal/service"
	"github.com/mmeshcher/coffeeshop/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.Session, error)
	Login(ctx context.Context, email, password string) (*service.Session, error)
	AdminLogin(ctx context.Context, email, password string) (*service.Session, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Me(ctx context.Context, caller model.Identity) (*model.User, error)

	UpdateProfile(ctx context.Context, caller model.Identity, upd model.ProfileUpdate) (*model.User, error)
	ListUsers(ctx context.Context, caller model.Identity) ([]model.User, error)

	ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	CreateProduct(ctx context.Context, caller model.Identity, in service.ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, caller model.Identity, id int64, upd model.ProductUpdate) (*model.Product, error)
	DeleteProduct(ctx context.Context, caller model.Identity, id int64) error

	CreateOrder(ctx context.Context, caller model.Identity, in service.CreateOrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, caller model.Identity, id int64) (*model.Order, error)
	ListOrdersForUser(ctx context.Context, userID int64) ([]model.Order, error)
	ListAllOrders(ctx context.Context, caller model.Identity, statusFilter string) ([]model.Order, error)
	UpdateStatus(ctx context.Context, caller model.Identity, id int64, newStatus string) (*model.Order, error)
	CancelOrder(ctx context.Context, caller model.Identity, id int64) (*model.Order, error)

	Stats(ctx context.Context, caller model.Identity) (*model.Stats, error)
}

// Handler реализует HTTP-обработчики API кофейного магазина.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

const internalErrorMessage = "internal server error"

// errorStatuses сопоставляет ошибкам бизнес-логики коды ответа. Проверяется первое совпадение.
// keepPrefix оставляет текст сигнальной ошибки в сообщении клиенту.
var errorStatuses = []struct {
	err        error
	status     int
	keepPrefix bool
}{
	{validation.ErrBodyTooLarge, http.StatusRequestEntityTooLarge, true},
	{validation.ErrInvalid, http.StatusBadRequest, false},
	{service.ErrValidation, http.StatusBadRequest, false},
	{service.ErrInvalidTransition, http.StatusBadRequest, false},
	{service.ErrProductUnavailable, http.StatusBadRequest, true},
	{service.ErrUnauthorized, http.StatusUnauthorized, false},
	{service.ErrForbidden, http.StatusForbidden, false},
	{service.ErrNotFound, http.StatusNotFound, false},
	{service.ErrProductNotFound, http.StatusNotFound, true},
	{service.ErrConflict, http.StatusConflict, false},
}

func respond(w http.ResponseWriter, status int, key string, payload any) {
	body := map[string]any{"success": true}
	if key != "" {
		body[key] = payload
	}
	writeJSON(w, status, body)
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": true, "message": message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// fail переводит ошибку в ответ. Неизвестные ошибки журналируются, клиенту уходит общее сообщение.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	for _, m := range errorStatuses {
		if !errors.Is(err, m.err) {
			continue
		}
		msg := err.Error()
		if !m.keepPrefix {
			msg = publicMessage(err, m.err)
		}
		writeError(w, m.status, msg)
		return
	}

	h.logger.Error(op+" error", zap.Error(err), zap.String("path", r.URL.Path))
	writeError(w, http.StatusInternalServerError, internalErrorMessage)
}

// publicMessage убирает из текста ошибки префикс сигнальной ошибки: "validation error: x" -> "x".
func publicMessage(err, sentinel error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return rest
	}
	switch sentinel {
	case service.ErrForbidden:
		return "access denied"
	case service.ErrUnauthorized:
		return "not authorized"
	}
	return msg
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	id, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authorized")
	}
	return id, ok
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
