// Package backend is the HTTP client for the meal-subscription backend.
// All response-shape tolerance lives in normalize.go; callers only ever
// see the canonical models types.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"sehat-box/gateway/models"
)

// APIError carries a backend rejection through to the caller verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

type Client struct {
	http        *http.Client
	baseURL     string
	adminPrefix string
	token       string
}

// New builds a client for the given base URL. adminPrefix is the single
// configured route prefix for admin-scoped endpoints; there is no per-call
// URL fallback.
func New(baseURL, adminPrefix, token string, timeout time.Duration) *Client {
	return &Client{
		http:        &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		adminPrefix: adminPrefix,
		token:       token,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(data, resp.StatusCode)}
	}
	return data, nil
}

// errorMessage pulls the human message out of a backend error body,
// whichever of the two observed keys it uses.
func errorMessage(data []byte, status int) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return http.StatusText(status)
}

// ActiveMealPlan returns the plan with status 1, or nil when none exists.
func (c *Client) ActiveMealPlan(ctx context.Context) (*models.MealPlan, error) {
	data, err := c.do(ctx, http.MethodGet, "/meal-plan", nil, nil)
	if err != nil {
		return nil, err
	}
	plans, err := parseMealPlanList(data)
	if err != nil {
		return nil, fmt.Errorf("parse meal plans: %w", err)
	}
	for i := range plans {
		if plans[i].Active {
			return &plans[i], nil
		}
	}
	return nil, nil
}

func (c *Client) Meals(ctx context.Context) ([]models.Meal, error) {
	data, err := c.do(ctx, http.MethodGet, "/meals", nil, nil)
	if err != nil {
		return nil, err
	}
	return parseMealList(data)
}

func (c *Client) Dish(ctx context.Context, id string) (models.Dish, error) {
	data, err := c.do(ctx, http.MethodGet, "/dishes/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return models.Dish{}, err
	}
	d, err := parseDish(data)
	if err != nil {
		return models.Dish{}, fmt.Errorf("parse dish %s: %w", id, err)
	}
	if d.ID == "" {
		d.ID = id
	}
	return d, nil
}

func (c *Client) Dishes(ctx context.Context) ([]models.Dish, error) {
	data, err := c.do(ctx, http.MethodGet, "/dishes", nil, nil)
	if err != nil {
		return nil, err
	}
	return parseDishList(data)
}

func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	data, err := c.do(ctx, http.MethodGet, "/users", nil, nil)
	if err != nil {
		return nil, err
	}
	return parseUserList(data)
}

func (c *Client) User(ctx context.Context, id string) (models.User, error) {
	data, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return models.User{}, err
	}
	u, err := parseUser(data)
	if err != nil {
		return models.User{}, fmt.Errorf("parse user %s: %w", id, err)
	}
	if u.ID == "" {
		u.ID = id
	}
	return u, nil
}

// FindOrder looks up the active order for a (user, meal, date) triple.
// The three outcomes are distinct: (order, true, nil) found,
// (nil, false, nil) confirmed absent, (nil, false, err) unknown. A failed
// check must never be read as absence.
func (c *Client) FindOrder(ctx context.Context, userUUID, mealID string, forDate time.Time) (*models.Order, bool, error) {
	q := url.Values{}
	q.Set("user_uuid", userUUID)
	q.Set("meal_id", mealID)
	q.Set("for_date", forDate.UTC().Format(time.RFC3339))

	data, err := c.do(ctx, http.MethodGet, "/orders", q, nil)
	if err != nil {
		return nil, false, err
	}
	orders, err := parseOrderList(data)
	if err != nil {
		return nil, false, fmt.Errorf("parse orders: %w", err)
	}
	for i := range orders {
		if !orders[i].Cancelled() {
			return &orders[i], true, nil
		}
	}
	return nil, false, nil
}

func (c *Client) Order(ctx context.Context, id string) (*models.Order, error) {
	data, err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	o, err := parseOrder(data)
	if err != nil {
		return nil, fmt.Errorf("parse order %s: %w", id, err)
	}
	if o.ID == "" {
		o.ID = id
	}
	return &o, nil
}

func (c *Client) CreateOrder(ctx context.Context, draft models.OrderDraft) (*models.Order, error) {
	data, err := c.do(ctx, http.MethodPost, "/orders", nil, draft)
	if err != nil {
		return nil, err
	}
	o, err := parseOrder(data)
	if err != nil {
		return nil, fmt.Errorf("parse created order: %w", err)
	}
	return &o, nil
}

func (c *Client) UpdateOrder(ctx context.Context, id string, draft models.OrderDraft) (*models.Order, error) {
	data, err := c.do(ctx, http.MethodPut, "/orders/"+url.PathEscape(id), nil, draft)
	if err != nil {
		return nil, err
	}
	o, err := parseOrder(data)
	if err != nil {
		return nil, fmt.Errorf("parse updated order: %w", err)
	}
	if o.ID == "" {
		o.ID = id
	}
	return &o, nil
}

// CancelOrder asks the backend to cancel; refund crediting is entirely the
// backend's concern.
func (c *Client) CancelOrder(ctx context.Context, id string, refund bool, reason string) error {
	body := map[string]interface{}{"refund": refund, "reason": reason}
	_, err := c.do(ctx, http.MethodPost, c.adminPrefix+"/orders/"+url.PathEscape(id)+"/cancel", nil, body)
	return err
}

// AdminOrdersQuery mirrors the admin order search filters.
type AdminOrdersQuery struct {
	UserUUID string
	MealID   string
	Statuses []models.OrderStatus
	ForFrom  time.Time
	ForTo    time.Time
	Page     int
	Limit    int
}

type AdminOrdersPage struct {
	Orders      []models.Order `json:"data"`
	Total       int            `json:"total"`
	TotalAmount float64        `json:"total_amount"`
}

func (c *Client) AdminOrders(ctx context.Context, query AdminOrdersQuery) (*AdminOrdersPage, error) {
	q := url.Values{}
	if query.UserUUID != "" {
		q.Set("user_uuid", query.UserUUID)
	}
	if query.MealID != "" {
		q.Set("meal_id", query.MealID)
	}
	for _, st := range query.Statuses {
		q.Add("status", strconv.Itoa(int(st)))
	}
	if !query.ForFrom.IsZero() {
		q.Set("for_from", query.ForFrom.UTC().Format(time.RFC3339))
	}
	if !query.ForTo.IsZero() {
		q.Set("for_to", query.ForTo.UTC().Format(time.RFC3339))
	}
	if query.Page > 0 {
		q.Set("page", strconv.Itoa(query.Page))
	}
	if query.Limit > 0 {
		q.Set("limit", strconv.Itoa(query.Limit))
	}

	data, err := c.do(ctx, http.MethodGet, c.adminPrefix+"/orders", q, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data        json.RawMessage `json:"data"`
		Total       flexNum         `json:"total"`
		TotalAmount flexNum         `json:"total_amount"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parse admin orders: %w", err)
	}
	rows := envelope.Data
	if len(rows) == 0 {
		rows = data
	}
	orders, err := parseOrderList(rows)
	if err != nil {
		return nil, fmt.Errorf("parse admin orders: %w", err)
	}
	total := int(envelope.Total)
	if total == 0 {
		total = len(orders)
	}
	return &AdminOrdersPage{
		Orders:      orders,
		Total:       total,
		TotalAmount: float64(envelope.TotalAmount),
	}, nil
}

func (c *Client) WalletStatement(ctx context.Context, userID string) (models.WalletStatement, error) {
	data, err := c.do(ctx, http.MethodGet, "/wallet/users/"+url.PathEscape(userID)+"/statement", nil, nil)
	if err != nil {
		return models.WalletStatement{}, err
	}
	return parseWalletStatement(data)
}

func (c *Client) AddWalletFunds(ctx context.Context, userID string, amount float64, date, narration string) error {
	body := map[string]interface{}{"amount": amount}
	if date != "" {
		body["date"] = date
	}
	if narration != "" {
		body["narration"] = narration
	}
	_, err := c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/wallet/add", nil, body)
	return err
}

// CashflowRequest is passed through to the backend unchanged.
type CashflowRequest struct {
	FromDate  string `json:"fromDate"`
	ToDate    string `json:"toDate"`
	PageIndex int    `json:"pageIndex"`
	PageSize  int    `json:"pageSize"`
}

func (c *Client) CashflowStatement(ctx context.Context, req CashflowRequest) (json.RawMessage, error) {
	data, err := c.do(ctx, http.MethodPost, "/wallet/cashflow-statement", nil, req)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// AdminLogin verifies admin credentials against the backend and returns the
// admin's display identity.
func (c *Client) AdminLogin(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	data, err := c.do(ctx, http.MethodPost, c.adminPrefix+"/login", nil, body)
	if err != nil {
		return "", err
	}
	var resp struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("parse login response: %w", err)
	}
	if !resp.Success || resp.Token == "" {
		msg := resp.Message
		if msg == "" {
			msg = "login failed"
		}
		return "", &APIError{Status: http.StatusUnauthorized, Message: msg}
	}
	return resp.Token, nil
}
