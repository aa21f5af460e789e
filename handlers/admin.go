package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"sehat-box/gateway/backend"
	"sehat-box/gateway/dateutil"
	"sehat-box/gateway/models"
	"sehat-box/gateway/orderflow"
)

// AdminLogin authenticates an operator against the backend and issues a
// gateway token for the admin surface.
// @Summary Operator login
// @Tags Admin
// @Accept json
// @Produce json
// @Router /admin/login [post]
func (s *Server) AdminLogin(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil || body.Email == "" || body.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and password are required")
	}

	if _, err := s.backend.AdminLogin(c.Context(), body.Email, body.Password); err != nil {
		if apiErr, ok := err.(*backend.APIError); ok && apiErr.Status < 500 {
			return fiber.NewError(fiber.StatusUnauthorized, apiErr.Message)
		}
		return err
	}

	token, expires, err := s.sessions.IssueAdminToken(body.Email)
	if err != nil {
		return err
	}
	s.logEvent(map[string]interface{}{
		"event": "admin_login",
		"email": body.Email,
	})
	return c.JSON(fiber.Map{
		"success":    true,
		"token":      token,
		"expires_at": expires,
	})
}

// GenerateMagicLink mints a one-time ordering link for a customer.
// @Summary Generate a customer magic link
// @Tags Admin
// @Security ApiKeyAuth
// @Router /admin/generate-magic-link [post]
func (s *Server) GenerateMagicLink(c *fiber.Ctx) error {
	var body struct {
		UserUUID string `json:"user_uuid"`
	}
	if err := c.BodyParser(&body); err != nil || body.UserUUID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "user_uuid is required")
	}

	user, err := s.backend.User(c.Context(), body.UserUUID)
	if err != nil {
		return err
	}

	link, err := s.sessions.GenerateMagicLink(c.Context(), user.ID)
	if err != nil {
		return err
	}
	s.logEvent(map[string]interface{}{
		"event":     "magic_link_generated",
		"user_uuid": user.ID,
	})
	return c.JSON(fiber.Map{"magic_link": link})
}

// Customers lists customers for the admin console.
// @Summary List customers
// @Tags Admin
// @Security ApiKeyAuth
// @Router /admin/customers [get]
func (s *Server) Customers(c *fiber.Ctx) error {
	users, err := s.backend.Users(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": users})
}

// AdminOrders searches orders with the console filters. Dates arrive in
// dd/mm/yy, statuses as a comma list of codes.
// @Summary Search orders
// @Tags Admin
// @Security ApiKeyAuth
// @Router /admin/orders [get]
func (s *Server) AdminOrders(c *fiber.Ctx) error {
	query := backend.AdminOrdersQuery{
		UserUUID: c.Query("user_uuid"),
		MealID:   c.Query("meal_id"),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 25),
	}

	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			code, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "status must be a comma list of codes")
			}
			query.Statuses = append(query.Statuses, models.OrderStatus(code))
		}
	}
	if raw := c.Query("for_from"); raw != "" {
		t, err := dateutil.ToStored(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "for_from must be dd/mm/yy")
		}
		query.ForFrom = t
	}
	if raw := c.Query("for_to"); raw != "" {
		t, err := dateutil.ToStored(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "for_to must be dd/mm/yy")
		}
		query.ForTo = t.AddDate(0, 0, 1)
	}

	page, err := s.backend.AdminOrders(c.Context(), query)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// AdminCancelOrder cancels any order on a customer's behalf. Refund and
// reason are explicit, never defaulted.
// @Summary Cancel an order
// @Tags Admin
// @Security ApiKeyAuth
// @Router /admin/orders/{id}/cancel [post]
func (s *Server) AdminCancelOrder(c *fiber.Ctx) error {
	var body struct {
		Refund *bool  `json:"refund"`
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil || body.Refund == nil || body.Reason == "" {
		return fiber.NewError(fiber.StatusBadRequest, "refund and reason are required")
	}

	id := c.Params("id")
	if err := s.backend.CancelOrder(c.Context(), id, *body.Refund, body.Reason); err != nil {
		return err
	}
	s.logEvent(map[string]interface{}{
		"event":    "order_cancelled",
		"order_id": id,
		"refund":   *body.Refund,
	})
	ordersCancelled.Inc()
	return c.JSON(fiber.Map{"ok": true})
}

type bulkRequestBody struct {
	UserUUIDs    []string `json:"user_uuids"`
	MealID       string   `json:"meal_id"`
	ForDate      string   `json:"for_date"`
	Instructions string   `json:"instructions"`
	Dishes       []struct {
		DishUUID string `json:"dish_uuid"`
		Quantity int    `json:"quantity"`
	} `json:"dishes"`
	// Override lists customers approved to order below balance. Absent
	// means the operator has not confirmed yet.
	Override *[]string `json:"override"`
}

// BulkPlace places the same order for many customers at once. When some
// of them cannot cover the amount the request halts with their list; the
// operator resubmits with an override to push those through anyway.
// @Summary Bulk order placement
// @Tags Admin
// @Security ApiKeyAuth
// @Router /admin/orders/bulk [post]
func (s *Server) BulkPlace(c *fiber.Ctx) error {
	var body bulkRequestBody
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	forDate, err := dateutil.ToStored(body.ForDate)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "for_date must be dd/mm/yy")
	}

	users, err := s.backend.Users(c.Context())
	if err != nil {
		return err
	}
	byUUID := make(map[string]models.User, len(users))
	for _, u := range users {
		byUUID[u.ID] = u
	}
	customers := make([]models.User, 0, len(body.UserUUIDs))
	for _, uuid := range body.UserUUIDs {
		user, ok := byUUID[uuid]
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "unknown customer: "+uuid)
		}
		customers = append(customers, user)
	}

	dishes, err := s.backend.Dishes(c.Context())
	if err != nil {
		return err
	}
	prices := make(map[string]float64, len(dishes))
	for _, d := range dishes {
		prices[d.ID] = d.Price
	}
	details := make([]models.DishDetail, 0, len(body.Dishes))
	for _, line := range body.Dishes {
		price, ok := prices[line.DishUUID]
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "unknown dish: "+line.DishUUID)
		}
		details = append(details, models.DishDetail{
			DishUUID: line.DishUUID,
			Quantity: line.Quantity,
			Price:    price,
		})
	}

	req := orderflow.BulkRequest{
		Customers:    customers,
		MealID:       body.MealID,
		ForDate:      forDate,
		DishDetails:  details,
		Instructions: body.Instructions,
		PlacedBy:     "Admin",
	}
	if body.Override != nil {
		req.Override = *body.Override
	}

	result, err := orderflow.PlaceBulk(c.Context(), s.backend, req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if result.Halted {
		names := make([]string, 0, len(result.Insufficient))
		for _, u := range result.Insufficient {
			names = append(names, u.ID)
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"halted":       true,
			"insufficient": names,
			"summary":      result.Summary(),
		})
	}

	s.logEvent(map[string]interface{}{
		"event":   "bulk_completed",
		"meal_id": body.MealID,
		"placed":  result.Placed,
		"failed":  len(result.Failures),
	})
	s.notify(fiber.Map{
		"type":    "bulk_completed",
		"meal_id": body.MealID,
		"placed":  result.Placed,
	})
	ordersPlaced.Add(float64(result.Placed))
	bulkFailures.Add(float64(len(result.Failures)))

	return c.JSON(fiber.Map{
		"halted":   false,
		"placed":   result.Placed,
		"summary":  result.Summary(),
		"failures": result.Failures,
		"skipped":  result.Skipped,
	})
}

// WalletStatement returns a customer's balance and transaction log.
// @Summary Wallet statement
// @Tags Admin
// @Security ApiKeyAuth
// @Router /admin/customers/{uuid}/wallet [get]
func (s *Server) WalletStatement(c *fiber.Ctx) error {
	stmt, err := s.backend.WalletStatement(c.Context(), c.Params("uuid"))
	if err != nil {
		return err
	}
	return c.JSON(stmt)
}

// AddWalletFunds credits a customer's wallet.
// @Summary Add wallet funds
// @Tags Admin
// @Security ApiKeyAuth
// @Router /admin/customers/{uuid}/wallet [post]
func (s *Server) AddWalletFunds(c *fiber.Ctx) error {
	var body struct {
		Amount    float64 `json:"amount"`
		Date      string  `json:"date"`
		Narration string  `json:"narration"`
	}
	if err := c.BodyParser(&body); err != nil || body.Amount <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "amount must be positive")
	}

	uuid := c.Params("uuid")
	if err := s.backend.AddWalletFunds(c.Context(), uuid, body.Amount, body.Date, body.Narration); err != nil {
		return err
	}
	s.logEvent(map[string]interface{}{
		"event":     "wallet_credited",
		"user_uuid": uuid,
		"amount":    body.Amount,
	})
	return c.JSON(fiber.Map{"ok": true})
}

// Cashflow proxies the backend cashflow statement for the finance view.
// @Summary Cashflow statement
// @Tags Admin
// @Security ApiKeyAuth
// @Router /admin/cashflow [post]
func (s *Server) Cashflow(c *fiber.Ctx) error {
	var body backend.CashflowRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	raw, err := s.backend.CashflowStatement(c.Context(), body)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}
