package handlers

import (
	"errors"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	"sehat-box/gateway/backend"
	"sehat-box/gateway/dateutil"
	"sehat-box/gateway/models"
	"sehat-box/gateway/orderflow"
	"sehat-box/gateway/session"
)

// BootstrapSession exchanges a magic-link key for a customer session.
// @Summary Redeem a magic link
// @Tags Public
// @Accept json
// @Produce json
// @Router /public/bootstrap-session [post]
func (s *Server) BootstrapSession(c *fiber.Ctx) error {
	var body struct {
		UserUUID string `json:"user_uuid"`
		Key      string `json:"key"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	sess, err := s.sessions.RedeemMagicKey(c.Context(), body.UserUUID, body.Key)
	if err != nil {
		if errors.Is(err, session.ErrBadMagicKey) {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		return err
	}

	s.logEvent(map[string]interface{}{
		"event":     "session_bootstrapped",
		"user_uuid": sess.UserUUID,
	})
	return c.JSON(sess)
}

// Me returns the caller's profile, wallet balance included.
// @Summary Current customer profile
// @Tags Customer
// @Security ApiKeyAuth
// @Router /customer-api/me [get]
func (s *Server) Me(c *fiber.Ctx) error {
	id, ok := session.From(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	user, err := s.backend.User(c.Context(), id.Subject)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// MealPlanView returns the active plan with dish snapshots resolved, ready
// for the ordering page.
// @Summary Active meal plan with dishes
// @Tags Customer
// @Security ApiKeyAuth
// @Router /customer-api/meal-plan [get]
func (s *Server) MealPlanView(c *fiber.Ctx) error {
	plan, catalog, err := s.loadActivePlan(c)
	if err != nil {
		return err
	}
	if plan == nil {
		// Not an error: the next plan just is not published yet.
		return c.JSON(fiber.Map{
			"plan":    nil,
			"message": "No active meal plan.",
		})
	}

	meals, err := s.backend.Meals(c.Context())
	if err != nil {
		return err
	}
	mealTitles := make(map[string]string, len(meals))
	for _, m := range meals {
		mealTitles[m.ID] = m.Title
	}

	type slotView struct {
		MealID    string        `json:"meal_id"`
		MealTitle string        `json:"meal_title"`
		Dishes    []models.Dish `json:"dishes"`
	}
	slots := make([]slotView, 0, len(plan.Slots))
	for _, slot := range plan.Slots {
		sv := slotView{MealID: slot.MealID, MealTitle: mealTitles[slot.MealID]}
		for _, dishID := range slot.DishIDs {
			if dish, ok := catalog[dishID]; ok {
				sv.Dishes = append(sv.Dishes, dish)
			}
		}
		if len(sv.Dishes) > 0 {
			slots = append(slots, sv)
		}
	}
	return c.JSON(fiber.Map{
		"plan":  plan,
		"slots": slots,
	})
}

// DishDetail returns the full dish record for the detail page: ingredients,
// macros and images.
// @Summary Dish detail
// @Tags Customer
// @Security ApiKeyAuth
// @Router /customer-api/dishes/{id} [get]
func (s *Server) DishDetail(c *fiber.Ctx) error {
	dish, err := s.backend.Dish(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dish)
}

// loadActivePlan fetches the active plan and a catalog of the dishes it
// references. Dishes that fail to resolve are skipped, not fatal.
func (s *Server) loadActivePlan(c *fiber.Ctx) (*models.MealPlan, map[string]models.Dish, error) {
	plan, err := s.backend.ActiveMealPlan(c.Context())
	if err != nil {
		return nil, nil, err
	}
	if plan == nil {
		return nil, nil, nil
	}

	dishes, err := s.backend.Dishes(c.Context())
	if err != nil {
		return nil, nil, err
	}
	catalog := make(map[string]models.Dish, len(dishes))
	for _, d := range dishes {
		catalog[d.ID] = d
	}
	return plan, catalog, nil
}

// SelectMeal picks a meal slot and reconciles the cart against any order
// already placed for it.
// @Summary Select a meal slot
// @Tags Customer
// @Security ApiKeyAuth
// @Router /customer-api/selection [post]
func (s *Server) SelectMeal(c *fiber.Ctx) error {
	id, ok := session.From(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	var body struct {
		MealID string `json:"meal_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.MealID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "meal_id is required")
	}

	plan, catalog, err := s.loadActivePlan(c)
	if err != nil {
		return err
	}
	if plan == nil {
		return fiber.NewError(fiber.StatusNotFound, "No active meal plan.")
	}
	forDate, err := dateutil.CalendarToStored(plan.Date)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "meal plan has a malformed date")
	}

	// only the dishes offered on the chosen slot are orderable
	slotCatalog := make(map[string]models.Dish)
	for _, slot := range plan.Slots {
		if slot.MealID != body.MealID {
			continue
		}
		for _, dishID := range slot.DishIDs {
			if dish, ok := catalog[dishID]; ok {
				slotCatalog[dish.ID] = dish
			}
		}
	}
	if len(slotCatalog) == 0 {
		return fiber.NewError(fiber.StatusNotFound, "meal is not on the active plan")
	}

	sel := s.selectionFor(id.Subject)
	if err := sel.Select(c.Context(), body.MealID, forDate, slotCatalog); err != nil {
		return workflowError(err)
	}
	return c.JSON(s.cartView(sel))
}

// CartView reports the current workflow state and cart contents.
// @Summary View cart
// @Tags Customer
// @Security ApiKeyAuth
// @Router /customer-api/cart [get]
func (s *Server) CartView(c *fiber.Ctx) error {
	id, ok := session.From(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	return c.JSON(s.cartView(s.selectionFor(id.Subject)))
}

func (s *Server) cartView(sel *orderflow.Selection) fiber.Map {
	view := fiber.Map{
		"state":   sel.State().String(),
		"meal_id": sel.MealID(),
		"lines":   sel.Lines(),
		"totals":  sel.Totals(),
	}
	if existing := sel.Existing(); existing != nil {
		view["existing_order"] = existing
	}
	return view
}

// SetQuantity adds, updates or removes one cart line.
// @Summary Set dish quantity
// @Tags Customer
// @Security ApiKeyAuth
// @Router /customer-api/cart/items [post]
func (s *Server) SetQuantity(c *fiber.Ctx) error {
	id, ok := session.From(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	var body struct {
		DishID   string `json:"dish_id"`
		Quantity int    `json:"quantity"`
	}
	if err := c.BodyParser(&body); err != nil || body.DishID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "dish_id is required")
	}

	sel := s.selectionFor(id.Subject)
	dish, ok := sel.CatalogDish(body.DishID)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "dish is not on the selected meal")
	}
	if err := sel.SetQuantity(dish, body.Quantity); err != nil {
		return workflowError(err)
	}
	return c.JSON(s.cartView(sel))
}

// SetInstructions updates the cooking note on a line already in the cart.
// @Summary Set cooking instructions
// @Tags Customer
// @Security ApiKeyAuth
// @Router /customer-api/cart/items/{dishId}/instructions [put]
func (s *Server) SetInstructions(c *fiber.Ctx) error {
	id, ok := session.From(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	sel := s.selectionFor(id.Subject)
	if err := sel.SetInstructions(c.Params("dishId"), body.Text); err != nil {
		return workflowError(err)
	}
	return c.JSON(s.cartView(sel))
}

// EditOrder unlocks the cart of an already-placed order.
// @Summary Start editing the existing order
// @Tags Customer
// @Security ApiKeyAuth
// @Router /customer-api/cart/edit [post]
func (s *Server) EditOrder(c *fiber.Ctx) error {
	id, ok := session.From(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	sel := s.selectionFor(id.Subject)
	if err := sel.Edit(); err != nil {
		return workflowError(err)
	}
	return c.JSON(s.cartView(sel))
}

// CancelEditing throws the viewer's edits away and relocks the cart over
// the stored order.
// @Summary Discard edits
// @Tags Customer
// @Security ApiKeyAuth
// @Router /customer-api/cart/cancel-editing [post]
func (s *Server) CancelEditing(c *fiber.Ctx) error {
	id, ok := session.From(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	sel := s.selectionFor(id.Subject)
	if err := sel.CancelEditing(); err != nil {
		return workflowError(err)
	}
	return c.JSON(s.cartView(sel))
}

// SubmitCart places the cart as a new order, or saves the one under edit.
// @Summary Submit the cart
// @Tags Customer
// @Security ApiKeyAuth
// @Router /customer-api/cart/submit [post]
func (s *Server) SubmitCart(c *fiber.Ctx) error {
	id, ok := session.From(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	sel := s.selectionFor(id.Subject)
	updating := sel.State() == orderflow.StateEditing

	order, err := sel.Submit(c.Context())
	if err != nil {
		return workflowError(err)
	}

	event := "order_placed"
	if updating {
		event = "order_updated"
	}
	s.logEvent(map[string]interface{}{
		"event":     event,
		"order_id":  order.ID,
		"user_uuid": id.Subject,
		"meal_id":   order.MealID,
		"amount":    order.Amount,
	})
	s.notify(fiber.Map{
		"type":      event,
		"order_id":  order.ID,
		"user_uuid": id.Subject,
		"for_date":  order.ForDate,
	})
	ordersPlaced.Inc()

	return c.JSON(fiber.Map{
		"order": order,
		"cart":  s.cartView(sel),
	})
}

// CancelMyOrder cancels the viewer's active order with a wallet refund.
// The confirm flag stands in for the confirmation dialog: nothing happens
// without it.
// @Summary Cancel the active order
// @Tags Customer
// @Security ApiKeyAuth
// @Router /customer-api/orders/cancel [post]
func (s *Server) CancelMyOrder(c *fiber.Ctx) error {
	id, ok := session.From(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	var body struct {
		Confirm bool `json:"confirm"`
	}
	if err := c.BodyParser(&body); err != nil || !body.Confirm {
		return fiber.NewError(fiber.StatusBadRequest, "cancellation must be confirmed")
	}

	sel := s.selectionFor(id.Subject)
	existing := sel.Existing()
	if err := sel.Cancel(c.Context()); err != nil {
		return workflowError(err)
	}

	s.logEvent(map[string]interface{}{
		"event":     "order_cancelled",
		"order_id":  existing.ID,
		"user_uuid": id.Subject,
	})
	ordersCancelled.Inc()

	return c.JSON(fiber.Map{
		"ok":   true,
		"cart": s.cartView(sel),
	})
}

// Nutrition sums the caller's intake per day over a date range, from their
// non-cancelled orders and the dish macros.
// @Summary Nutrition summary
// @Tags Customer
// @Security ApiKeyAuth
// @Router /customer-api/nutrition [get]
func (s *Server) Nutrition(c *fiber.Ctx) error {
	id, ok := session.From(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	from, err := parseCalendarQuery(c.Query("from"), time.Now().In(dateutil.IST).Format("2006-01-02"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "from must be YYYY-MM-DD")
	}
	to, err := parseCalendarQuery(c.Query("to"), time.Now().In(dateutil.IST).Format("2006-01-02"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "to must be YYYY-MM-DD")
	}

	page, err := s.backend.AdminOrders(c.Context(), adminOrdersRange(id.Subject, from, to))
	if err != nil {
		return err
	}
	dishes, err := s.backend.Dishes(c.Context())
	if err != nil {
		return err
	}
	catalog := make(map[string]models.Dish, len(dishes))
	for _, d := range dishes {
		catalog[d.ID] = d
	}

	rows, totals := aggregateNutrition(page.Orders, catalog)
	return c.JSON(fiber.Map{
		"rows":         rows,
		"grand_totals": totals,
	})
}

func parseCalendarQuery(value, fallback string) (time.Time, error) {
	if value == "" {
		value = fallback
	}
	return time.ParseInLocation("2006-01-02", value, dateutil.IST)
}

func adminOrdersRange(userUUID string, from, to time.Time) (q backend.AdminOrdersQuery) {
	q.UserUUID = userUUID
	q.ForFrom = from.UTC()
	q.ForTo = to.AddDate(0, 0, 1).UTC()
	q.Statuses = []models.OrderStatus{
		models.OrderStatusUpcoming,
		models.OrderStatusPlaced,
		models.OrderStatusCompleted,
	}
	return q
}

// aggregateNutrition sums quantity × macros per IST calendar day.
func aggregateNutrition(orders []models.Order, catalog map[string]models.Dish) ([]models.NutritionRow, models.Macros) {
	byDay := make(map[string]models.Macros)
	var grand models.Macros

	for _, order := range orders {
		if order.Cancelled() {
			continue
		}
		day := order.ForDate.In(dateutil.IST).Format("2006-01-02")
		sum := byDay[day]
		for _, dd := range order.DishDetails {
			dish, ok := catalog[dd.DishUUID]
			if !ok {
				continue
			}
			qty := float64(dd.Quantity)
			sum.Calories += qty * dish.Macros.Calories
			sum.Protein += qty * dish.Macros.Protein
			sum.Carbs += qty * dish.Macros.Carbs
			sum.Fat += qty * dish.Macros.Fat

			grand.Calories += qty * dish.Macros.Calories
			grand.Protein += qty * dish.Macros.Protein
			grand.Carbs += qty * dish.Macros.Carbs
			grand.Fat += qty * dish.Macros.Fat
		}
		byDay[day] = sum
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	rows := make([]models.NutritionRow, 0, len(days))
	for _, day := range days {
		rows = append(rows, models.NutritionRow{Date: day, Macros: byDay[day]})
	}
	return rows, grand
}

// workflowError maps workflow sentinels onto HTTP statuses.
func workflowError(err error) error {
	switch {
	case errors.Is(err, orderflow.ErrUnsavedCart):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, orderflow.ErrCartLocked),
		errors.Is(err, orderflow.ErrCartEmpty),
		errors.Is(err, orderflow.ErrNotEditing),
		errors.Is(err, orderflow.ErrNoActiveOrder),
		errors.Is(err, orderflow.ErrNoSelection):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, orderflow.ErrBusy):
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	case errors.Is(err, orderflow.ErrCheckUnsettled):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return err
}
