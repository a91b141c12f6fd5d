package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feasto-api/auth"
	"feasto-api/dbtest"
	"feasto-api/handlers"
	"feasto-api/models"
	"feasto-api/policy"
	"feasto-api/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := dbtest.Open(t)
	log := logrus.New()
	log.SetOutput(io.Discard)

	p := policy.New(policy.Options{})
	tokens := auth.NewTokenManager([]byte("test-secret"), time.Hour, nil)
	authSvc := services.NewAuthService(db, tokens, p, log)
	h := handlers.New(handlers.Services{
		Auth:      authSvc,
		Users:     services.NewUserService(db, p, log),
		Food:      services.NewFoodService(db, p, log),
		Orders:    services.NewOrderService(db, p, log, services.OrderOptions{}),
		Enquiries: services.NewEnquiryService(db, p),
		Dashboard: services.NewDashboardService(db, p),
	}, p, log)

	router := NewRouter(h, authSvc, log, Options{CORSOrigins: []string{"*"}})
	return &testAPI{t: t, router: router, db: db}
}

func (a *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// signup registers and logs in a user, returning the bearer token and id.
func (a *testAPI) signup(username string, role models.UserRole) (string, uint) {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username, "email": username + "@example.com",
		"password": "secret1", "confirm_password": "secret1", "role": role,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": "secret1"})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decode(a.t, w, &resp)
	return resp.Token, resp.User.ID
}

func TestRegisterPasswordMismatch(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice", "password": "abc123", "confirm_password": "xyz789",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Passwords do not match")

	var count int64
	api.db.Model(&models.User{}).Count(&count)
	assert.Zero(t, count)
}

func TestRegisterValidationFields(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/auth/register", "", gin.H{"password": "abc"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, w, &body)
	assert.Equal(t, "This field is required.", body.Fields["username"])
	assert.Contains(t, body.Fields, "password")
	assert.Contains(t, body.Fields, "confirm_password")
}

func TestLoginFailureAndRegisterResponse(t *testing.T) {
	api := newTestAPI(t)
	api.signup("alice", "")

	w := api.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "wrong!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())

	w = api.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice", "password": "secret1", "confirm_password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDashboardAccess(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/dashboard/stats", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	customer, _ := api.signup("alice", models.RoleCustomer)
	w = api.do(http.MethodGet, "/api/dashboard/stats", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin, _ := api.signup("root", models.RoleAdmin)
	w = api.do(http.MethodGet, "/api/dashboard/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]interface{}
	decode(t, w, &stats)
	assert.EqualValues(t, 0, stats["total_orders"])
	assert.EqualValues(t, 1, stats["total_customers"])
	assert.Contains(t, stats, "total_revenue")
	assert.Contains(t, stats, "pending_orders")
}

func TestUserRoutesAccess(t *testing.T) {
	api := newTestAPI(t)
	customer, aliceID := api.signup("alice", models.RoleCustomer)
	admin, _ := api.signup("root", models.RoleAdmin)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/users", customer, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/users", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/users/1", "", nil).Code)

	w := api.do(http.MethodGet, "/api/users?role=customer", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users []models.User
	decode(t, w, &users)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
	assert.NotContains(t, w.Body.String(), "password")

	w = api.do(http.MethodPatch, "/api/users/"+itoa(aliceID), customer, gin.H{"first_name": "Alice"})
	require.Equal(t, http.StatusOK, w.Code)
	w = api.do(http.MethodPatch, "/api/users/"+itoa(aliceID), customer, gin.H{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, "/api/users/"+itoa(aliceID), customer, nil).Code)
	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/users/"+itoa(aliceID), admin, nil).Code)
}

func TestOrdersRequireAuthentication(t *testing.T) {
	api := newTestAPI(t)

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/orders", "", nil).Code)
	// Unauthenticated callers hear about it before body validation.
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/orders", "", gin.H{}).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/orders/1", "", nil).Code)

	w := api.do(http.MethodGet, "/api/orders/lifecycle", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "out_for_delivery")
}

func TestOrderFlow(t *testing.T) {
	api := newTestAPI(t)
	customer, _ := api.signup("alice", models.RoleCustomer)
	admin, _ := api.signup("root", models.RoleAdmin)
	driver, driverID := api.signup("dan", models.RoleDelivery)

	var burger, pasta models.FoodItem
	w := api.do(http.MethodPost, "/api/food", "", gin.H{"name": "Burger", "description": "Beef", "price": "12.99", "category": "Mains"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &burger)
	w = api.do(http.MethodPost, "/api/food", "", gin.H{"name": "Pasta", "description": "Fresh", "price": 9.99, "category": "Mains"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &pasta)

	w = api.do(http.MethodPost, "/api/orders", customer, gin.H{
		"delivery_address": "12 Baker Street",
		"phone_number":     "5550101",
		"payment_method":   "cash",
		"total":            "24.98",
		"items": []gin.H{
			{"food_item": burger.ID, "name": "Burger", "quantity": 1, "price": "12.99"},
			{"food_item": pasta.ID, "name": "Pasta", "quantity": 1, "price": "9.99"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
		Total  string `json:"total"`
		Items  []struct {
			Subtotal string `json:"subtotal"`
		} `json:"items"`
		DeliveredAt *time.Time `json:"delivered_at"`
	}
	decode(t, w, &order)
	assert.Equal(t, "pending", order.Status)
	assert.Equal(t, "24.98", order.Total)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "12.99", order.Items[0].Subtotal)
	assert.Equal(t, "9.99", order.Items[1].Subtotal)
	id := itoa(order.ID)

	// The driver cannot see a pending, unassigned order.
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/orders/"+id, driver, nil).Code)

	w = api.do(http.MethodPost, "/api/orders/"+id+"/update_status", admin, gin.H{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid status"}`, w.Body.String())

	w = api.do(http.MethodPost, "/api/orders/"+id+"/update_status", admin, gin.H{"status": "ready"})
	require.Equal(t, http.StatusOK, w.Code)

	var visible []map[string]interface{}
	decode(t, api.do(http.MethodGet, "/api/orders", driver, nil), &visible)
	assert.Len(t, visible, 1)

	w = api.do(http.MethodPost, "/api/orders/"+id+"/assign_delivery", admin, gin.H{"delivery_staff_id": 9999})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid delivery staff"}`, w.Body.String())

	w = api.do(http.MethodPost, "/api/orders/"+id+"/assign_delivery", admin, gin.H{"delivery_staff_id": driverID})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &order)
	assert.Equal(t, "out_for_delivery", order.Status)

	w = api.do(http.MethodPost, "/api/orders/"+id+"/update_status", driver, gin.H{"status": "delivered"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &order)
	assert.Equal(t, "delivered", order.Status)
	assert.NotNil(t, order.DeliveredAt)

	var stats struct {
		TotalRevenue float64 `json:"total_revenue"`
	}
	decode(t, api.do(http.MethodGet, "/api/dashboard/stats", admin, nil), &stats)
	assert.InDelta(t, 24.98, stats.TotalRevenue, 0.001)

	w = api.do(http.MethodGet, "/api/orders/"+id+"/history", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		History []models.OrderStatusHistory `json:"history"`
	}
	decode(t, w, &history)
	assert.Len(t, history.History, 4)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/orders/"+id, customer, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/orders/"+id, admin, nil).Code)
}

func TestCreateOrderValidation(t *testing.T) {
	api := newTestAPI(t)
	customer, _ := api.signup("alice", models.RoleCustomer)

	w := api.do(http.MethodPost, "/api/orders", customer, gin.H{
		"delivery_address": "x", "phone_number": "1", "payment_method": "crypto", "total": "-1",
		"items": []gin.H{{"food_item": 1, "quantity": 0}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, w, &body)
	assert.Contains(t, body.Fields, "payment_method")
	assert.Contains(t, body.Fields, "total")
	assert.Contains(t, body.Fields, "items[0].quantity")

	w = api.do(http.MethodPost, "/api/orders", customer, gin.H{
		"delivery_address": "x", "phone_number": "1", "payment_method": "card", "total": "5",
		"items": []gin.H{{"food_item": 424242}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid food item")
}

func TestLogoutRevokesToken(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.signup("alice", models.RoleCustomer)

	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/auth/me", token, nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/auth/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/auth/me", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/orders", token, nil).Code)

	// Logging out without a session is harmless.
	assert.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/auth/logout", "", nil).Code)
}

func TestChangePasswordRoute(t *testing.T) {
	api := newTestAPI(t)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/auth/change-password", "", gin.H{}).Code)

	token, _ := api.signup("alice", models.RoleCustomer)
	w := api.do(http.MethodPost, "/api/auth/change-password", token, gin.H{
		"old_password": "nope00", "new_password": "newpass", "confirm_password": "newpass",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid old password"}`, w.Body.String())

	w = api.do(http.MethodPost, "/api/auth/change-password", token, gin.H{
		"old_password": "secret1", "new_password": "newpass", "confirm_password": "newpass",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFoodAndEnquiriesArePublic(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/food", "", gin.H{"name": "Soup", "description": "Hot", "price": "4.50", "category": "Starters", "available": false})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var soup map[string]interface{}
	decode(t, w, &soup)
	assert.Equal(t, "4.5", soup["price"])
	assert.Nil(t, soup["image"])

	var items []map[string]interface{}
	decode(t, api.do(http.MethodGet, "/api/food?available=true", "", nil), &items)
	assert.Empty(t, items)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/food?available=maybe", "", nil).Code)

	w = api.do(http.MethodPost, "/api/enquiries", "", gin.H{"name": "Carol", "email": "carol@example.com", "message": "Hi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var enquiry map[string]interface{}
	decode(t, w, &enquiry)
	assert.Equal(t, models.DefaultEnquirySubject, enquiry["subject"])
	assert.Equal(t, "new", enquiry["status"])

	w = api.do(http.MethodPatch, "/api/enquiries/"+itoa(uint(enquiry["id"].(float64))), "", gin.H{"status": "closed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndRoot(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/", "", nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/metrics", "", nil).Code)
}

func TestCORSConfig(t *testing.T) {
	all := corsConfig([]string{"*"})
	assert.True(t, all.AllowAllOrigins)

	some := corsConfig([]string{"http://localhost:3000"})
	assert.False(t, some.AllowAllOrigins)
	assert.Equal(t, []string{"http://localhost:3000"}, some.AllowOrigins)
	assert.True(t, some.AllowCredentials)
}
