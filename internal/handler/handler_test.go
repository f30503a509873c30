package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/coffeeshop/internal/auth"
	"github.com/mmeshcher/coffeeshop/internal/middleware"
	"github.com/mmeshcher/coffeeshop/internal/model"
	"github.com/mmeshcher/coffeeshop/internal/service"
)

// stubService запоминает аргументы вызовов и возвращает заранее заданные ответы.
type stubService struct {
	gotCaller        model.Identity
	gotOrder         service.CreateOrderInput
	gotFilter        string
	gotStatus        string
	gotID            int64
	gotRegister      service.RegisterInput
	gotEmail         string
	gotRefresh       string
	gotProfile       model.ProfileUpdate
	gotProduct       service.ProductInput
	gotProductUpdate model.ProductUpdate

	orderResp    *model.Order
	ordersResp   []model.Order
	productsResp []model.Product
	productResp  *model.Product
	sessionResp  *service.Session
	userResp     *model.User
	usersResp    []model.User
	statsResp    *model.Stats
	tokenResp    string
	err          error
}

var _ Service = (*stubService)(nil)

func (s *stubService) Register(ctx context.Context, in service.RegisterInput) (*service.Session, error) {
	s.gotRegister = in
	return s.sessionResp, s.err
}

func (s *stubService) Login(ctx context.Context, email, password string) (*service.Session, error) {
	s.gotEmail = email
	return s.sessionResp, s.err
}

func (s *stubService) AdminLogin(ctx context.Context, email, password string) (*service.Session, error) {
	s.gotEmail = email
	return s.sessionResp, s.err
}

func (s *stubService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	s.gotRefresh = refreshToken
	return s.tokenResp, s.err
}

func (s *stubService) Me(ctx context.Context, caller model.Identity) (*model.User, error) {
	s.gotCaller = caller
	return s.userResp, s.err
}

func (s *stubService) UpdateProfile(ctx context.Context, caller model.Identity, upd model.ProfileUpdate) (*model.User, error) {
	s.gotCaller = caller
	s.gotProfile = upd
	return s.userResp, s.err
}

func (s *stubService) ListUsers(ctx context.Context, caller model.Identity) ([]model.User, error) {
	s.gotCaller = caller
	return s.usersResp, s.err
}

func (s *stubService) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	s.gotID = id
	return s.productResp, s.err
}

func (s *stubService) CreateProduct(ctx context.Context, caller model.Identity, in service.ProductInput) (*model.Product, error) {
	s.gotCaller = caller
	s.gotProduct = in
	return s.productResp, s.err
}

func (s *stubService) UpdateProduct(ctx context.Context, caller model.Identity, id int64, upd model.ProductUpdate) (*model.Product, error) {
	s.gotCaller = caller
	s.gotID = id
	s.gotProductUpdate = upd
	return s.productResp, s.err
}

func (s *stubService) DeleteProduct(ctx context.Context, caller model.Identity, id int64) error {
	s.gotCaller = caller
	s.gotID = id
	return s.err
}

func (s *stubService) Stats(ctx context.Context, caller model.Identity) (*model.Stats, error) {
	s.gotCaller = caller
	return s.statsResp, s.err
}

func (s *stubService) CreateOrder(ctx context.Context, caller model.Identity, in service.CreateOrderInput) (*model.Order, error) {
	s.gotCaller = caller
	s.gotOrder = in
	return s.orderResp, s.err
}

func (s *stubService) GetOrder(ctx context.Context, caller model.Identity, id int64) (*model.Order, error) {
	s.gotCaller = caller
	return s.orderResp, s.err
}

func (s *stubService) ListOrdersForUser(ctx context.Context, userID int64) ([]model.Order, error) {
	s.gotCaller = model.Identity{UserID: userID}
	return s.ordersResp, s.err
}

func (s *stubService) ListAllOrders(ctx context.Context, caller model.Identity, statusFilter string) ([]model.Order, error) {
	s.gotCaller = caller
	s.gotFilter = statusFilter
	return s.ordersResp, s.err
}

func (s *stubService) UpdateStatus(ctx context.Context, caller model.Identity, id int64, newStatus string) (*model.Order, error) {
	s.gotCaller = caller
	s.gotStatus = newStatus
	return s.orderResp, s.err
}

func (s *stubService) CancelOrder(ctx context.Context, caller model.Identity, id int64) (*model.Order, error) {
	s.gotCaller = caller
	return s.orderResp, s.err
}

func (s *stubService) ListProducts(ctx context.Context, f model.ProductFilter) ([]model.Product, error) {
	return s.productsResp, s.err
}

var testTokens = auth.NewTokenManager("test-secret", "test-refresh", time.Minute, time.Hour)

func newTestHandler(t *testing.T, svc Service) http.Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	return NewHandler(svc, logger, middleware.NewAuthMiddleware(testTokens)).SetupRouter()
}

func bearer(t *testing.T, id model.Identity) string {
	t.Helper()
	token, err := testTokens.IssueAccessToken(id)
	require.NoError(t, err)
	return "Bearer " + token
}

type envelope struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Order    *orderResponse    `json:"order"`
	Orders   []orderResponse   `json:"orders"`
	Data     *sessionResponse  `json:"data"`
	User     *userResponse     `json:"user"`
	Users    []userResponse    `json:"users"`
	Product  *productResponse  `json:"product"`
	Products []productResponse `json:"products"`
	Stats    *statsResponse    `json:"stats"`
}

func do(t *testing.T, h http.Handler, method, path, body, authHeader string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

var (
	customer = model.Identity{UserID: 7, Email: "c@example.com", Role: model.RoleCustomer}
	staff    = model.Identity{UserID: 8, Email: "s@example.com", Role: model.RoleStaff}
	admin    = model.Identity{UserID: 9, Email: "a@example.com", Role: model.RoleAdmin}
)

func sampleOrder() *model.Order {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &model.Order{
		ID:              1,
		UserID:          customer.UserID,
		Status:          model.OrderStatusPending,
		Total:           decimal.NewFromInt(200),
		DeliveryAddress: "1 Bean St",
		Items: []model.OrderItem{
			{ProductID: 3, ProductName: "Ethiopia", Quantity: 2, Price: decimal.NewFromInt(100)},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateOrder(t *testing.T) {
	svc := &stubService{orderResp: sampleOrder()}
	h := newTestHandler(t, svc)

	w, env := do(t, h, http.MethodPost, "/api/orders",
		`{"items":[{"productId":3,"quantity":2,"price":1}],"deliveryAddress":"1 Bean St"}`,
		bearer(t, customer))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	require.NotNil(t, env.Order)
	assert.Equal(t, "200.00", env.Order.Total)
	assert.Equal(t, "PENDING", env.Order.Status)
	assert.Equal(t, []string{"CONFIRMED", "CANCELLED"}, env.Order.NextStatuses)
	assert.Equal(t, "200.00", env.Order.Items[0].Subtotal)

	assert.Equal(t, customer.UserID, svc.gotCaller.UserID)
	require.Len(t, svc.gotOrder.Items, 1)
	assert.EqualValues(t, 3, svc.gotOrder.Items[0].ProductID)
	require.NotNil(t, svc.gotOrder.Items[0].Price)
	assert.Equal(t, "1", svc.gotOrder.Items[0].Price.String())
}

func TestCreateOrder_BadRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "empty body", body: "", message: "request body is empty"},
		{name: "empty items", body: `{"items":[],"deliveryAddress":"x"}`, message: "items must contain at least 1 element(s)"},
		{name: "missing items", body: `{"deliveryAddress":"x"}`, message: "items is required"},
		{name: "zero quantity", body: `{"items":[{"productId":1,"quantity":0}],"deliveryAddress":"x"}`, message: "items[0].quantity must be greater than or equal to 1"},
		{name: "missing address", body: `{"items":[{"productId":1,"quantity":1}]}`, message: "deliveryAddress is required"},
		{name: "quantity above limit", body: `{"items":[{"productId":1,"quantity":2147483648}],"deliveryAddress":"x"}`, message: "items[0].quantity must be at most 1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{})

			w, env := do(t, h, http.MethodPost, "/api/orders", tt.body, bearer(t, customer))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.message, env.Message)
		})
	}
}

func TestCreateOrder_UnknownField(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	w, env := do(t, h, http.MethodPost, "/api/orders",
		`{"items":[{"productId":1,"quantity":1}],"deliveryAddress":"x","total":1}`, bearer(t, customer))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Message, "unknown field")
}

func TestCreateOrder_BodyTooLarge(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)
	body := `{"items":[{"productId":1,"quantity":1}],"deliveryAddress":"` + strings.Repeat("x", int(middleware.MaxBodyBytes)) + `"}`

	w, env := do(t, h, http.MethodPost, "/api/orders", body, bearer(t, customer))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "request body is too large: limit is 1048576 bytes", env.Message)
	assert.Zero(t, svc.gotCaller)
}

func TestOrders_RequireToken(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	w, env := do(t, h, http.MethodGet, "/api/orders/mine", "", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "terminal cancel",
			err:     fmt.Errorf("%w: cannot cancel order with status DELIVERED", service.ErrInvalidTransition),
			status:  http.StatusBadRequest,
			message: "cannot cancel order with status DELIVERED",
		},
		{
			name:    "not found",
			err:     fmt.Errorf("%w: order not found", service.ErrNotFound),
			status:  http.StatusNotFound,
			message: "order not found",
		},
		{
			name:    "forbidden",
			err:     service.ErrForbidden,
			status:  http.StatusForbidden,
			message: "access denied",
		},
		{
			name:    "internal",
			err:     errors.New("connection reset by peer"),
			status:  http.StatusInternalServerError,
			message: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{err: tt.err})

			w, env := do(t, h, http.MethodPatch, "/api/orders/5/cancel", "", bearer(t, customer))

			assert.Equal(t, tt.status, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.message, env.Message)
		})
	}
}

func TestCreateOrder_ProductErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"product not found", fmt.Errorf("%w: product 9", service.ErrProductNotFound), http.StatusNotFound},
		{"product unavailable", fmt.Errorf("%w: product %q is out of stock", service.ErrProductUnavailable, "X"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{err: tt.err})

			w, env := do(t, h, http.MethodPost, "/api/orders",
				`{"items":[{"productId":9,"quantity":1}],"deliveryAddress":"x"}`, bearer(t, customer))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.err.Error(), env.Message)
		})
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	order := sampleOrder()
	order.Status = model.OrderStatusConfirmed
	svc := &stubService{orderResp: order}
	h := newTestHandler(t, svc)

	w, env := do(t, h, http.MethodPatch, "/api/orders/1/status", `{"status":"CONFIRMED"}`, bearer(t, staff))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CONFIRMED", env.Order.Status)
	assert.Equal(t, "CONFIRMED", svc.gotStatus)
	assert.Equal(t, model.RoleStaff, svc.gotCaller.Role)

	w, env = do(t, h, http.MethodPatch, "/api/orders/1/status", `{}`, bearer(t, staff))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "status is required", env.Message)
}

func TestListOrders(t *testing.T) {
	svc := &stubService{ordersResp: []model.Order{*sampleOrder()}}
	h := newTestHandler(t, svc)

	w, _ := do(t, h, http.MethodGet, "/api/orders", "", bearer(t, customer))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := do(t, h, http.MethodGet, "/api/orders?status=pending", "", bearer(t, staff))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, env.Orders, 1)
	assert.Equal(t, "pending", svc.gotFilter)
}

func TestGetMyOrders(t *testing.T) {
	for _, path := range []string{"/api/orders/mine", "/api/orders/my-orders"} {
		t.Run(path, func(t *testing.T) {
			svc := &stubService{}
			h := newTestHandler(t, svc)

			w, env := do(t, h, http.MethodGet, path, "", bearer(t, customer))

			require.Equal(t, http.StatusOK, w.Code)
			assert.True(t, env.Success)
			assert.NotNil(t, env.Orders)
			assert.Empty(t, env.Orders)
			assert.Equal(t, customer.UserID, svc.gotCaller.UserID)
		})
	}
}

func TestGetOrder_InvalidID(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	w, env := do(t, h, http.MethodGet, "/api/orders/abc", "", bearer(t, customer))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid id", env.Message)
}

func TestListProducts_Public(t *testing.T) {
	svc := &stubService{productsResp: []model.Product{
		{ID: 1, Name: "House", Price: decimal.RequireFromString("8.5"), Stock: 0},
	}}
	h := newTestHandler(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"products":[{
		"id":1,"name":"House","description":"","price":"8.50","stock":0,"available":false,
		"createdAt":"0001-01-01T00:00:00Z","updatedAt":"0001-01-01T00:00:00Z"}]}`, w.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	w, env := do(t, h, http.MethodGet, "/api/nothing", "", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
}
