package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"sehat-box/gateway/models"
)

// The backend is loose about shapes: lists arrive bare or wrapped in
// {data|dishes|users|meals: [...]}, ids show up under several names, and
// numeric fields are sometimes strings. Everything is mapped to the
// canonical models types here, at the fetch boundary, and nowhere else.

// flexNum accepts 1, "1", 1.5 and "1.5".
type flexNum float64

func (n *flexNum) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = flexNum(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = flexNum(f)
	return nil
}

// flexStrings accepts "x", ["x","y"] and null.
type flexStrings []string

func (fs *flexStrings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*fs = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) != "" {
			*fs = []string{s}
		}
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	*fs = arr
	return nil
}

// flexTime accepts RFC3339 strings and {"$date": "..."} wrappers.
type flexTime time.Time

func (ft *flexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*ft = flexTime(time.Time{})
		return nil
	}
	if b[0] == '{' {
		var wrap struct {
			Date string `json:"$date"`
		}
		if err := json.Unmarshal(b, &wrap); err != nil {
			return err
		}
		b, _ = json.Marshal(wrap.Date)
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			*ft = flexTime(t)
			return nil
		}
	}
	*ft = flexTime(time.Time{})
	return nil
}

// unwrapList peels an optional envelope off a list response.
func unwrapList(raw []byte, keys ...string) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	var items []json.RawMessage
	if len(raw) > 0 && raw[0] == '[' {
		err := json.Unmarshal(raw, &items)
		return items, err
	}
	wrapped := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	for _, k := range append([]string{"data"}, keys...) {
		if inner, ok := wrapped[k]; ok {
			inner = bytes.TrimSpace(inner)
			if len(inner) > 0 && inner[0] == '[' {
				err := json.Unmarshal(inner, &items)
				return items, err
			}
		}
	}
	return nil, nil
}

func firstID(ids ...string) string {
	for _, id := range ids {
		if strings.TrimSpace(id) != "" {
			return id
		}
	}
	return ""
}

type wireDish struct {
	ID          string      `json:"id"`
	MongoID     string      `json:"_id"`
	UUID        string      `json:"uuid"`
	DishUUID    string      `json:"dish_uuid"`
	Title       string      `json:"title"`
	Name        string      `json:"name"`
	Price       flexNum     `json:"price"`
	Ingredients string      `json:"ingredients"`
	Calories    flexNum     `json:"calories"`
	Kcal        flexNum     `json:"kcal"`
	Energy      flexNum     `json:"energy"`
	Protein     flexNum     `json:"protein"`
	Carbs       flexNum     `json:"carbs"`
	Carbo       flexNum     `json:"carbohydrates"`
	Fat         flexNum     `json:"fat"`
	Fats        flexNum     `json:"fats"`
	ImageURL    flexStrings `json:"image_url"`
	Status      flexNum     `json:"status"`
}

func (w wireDish) normalize() models.Dish {
	title := w.Title
	if title == "" {
		title = w.Name
	}
	cal := float64(w.Calories)
	if cal == 0 {
		cal = float64(w.Kcal)
	}
	if cal == 0 {
		cal = float64(w.Energy)
	}
	carbs := float64(w.Carbs)
	if carbs == 0 {
		carbs = float64(w.Carbo)
	}
	fat := float64(w.Fats)
	if fat == 0 {
		fat = float64(w.Fat)
	}
	return models.Dish{
		ID:          firstID(w.MongoID, w.UUID, w.DishUUID, w.ID),
		Title:       title,
		Price:       float64(w.Price),
		Ingredients: w.Ingredients,
		Macros: models.Macros{
			Calories: cal,
			Protein:  float64(w.Protein),
			Carbs:    carbs,
			Fat:      fat,
		},
		ImageURLs: w.ImageURL,
		Active:    w.Status == 1,
	}
}

func parseDish(raw []byte) (models.Dish, error) {
	var w wireDish
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.Dish{}, err
	}
	return w.normalize(), nil
}

func parseDishList(raw []byte) ([]models.Dish, error) {
	items, err := unwrapList(raw, "dishes")
	if err != nil {
		return nil, err
	}
	out := make([]models.Dish, 0, len(items))
	for _, item := range items {
		d, err := parseDish(item)
		if err != nil {
			return nil, err
		}
		if d.ID != "" {
			out = append(out, d)
		}
	}
	return out, nil
}

type wireUser struct {
	ID        string  `json:"id"`
	MongoID   string  `json:"_id"`
	UUID      string  `json:"uuid"`
	UserUUID  string  `json:"user_uuid"`
	UserTitle string  `json:"user_title"`
	Title     string  `json:"title"`
	Name      string  `json:"name"`
	FullName  string  `json:"full_name"`
	Mobile    string  `json:"mobile_number"`
	MobileAlt string  `json:"mobile"`
	Phone     string  `json:"phone"`
	Wallet    flexNum `json:"wallet_balance"`
	WalletAlt flexNum `json:"wallet"`
	Status    flexNum `json:"status"`
}

func (w wireUser) normalize() models.User {
	title := strings.TrimSpace(firstID(w.UserTitle, w.Title, w.Name, w.FullName))
	mobile := strings.TrimSpace(firstID(w.Mobile, w.MobileAlt, w.Phone))
	wallet := float64(w.Wallet)
	if wallet == 0 {
		wallet = float64(w.WalletAlt)
	}
	return models.User{
		ID:            firstID(w.MongoID, w.UUID, w.UserUUID, w.ID),
		Title:         title,
		Mobile:        mobile,
		WalletBalance: wallet,
		Active:        w.Status == 1,
	}
}

func parseUser(raw []byte) (models.User, error) {
	var w wireUser
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.User{}, err
	}
	return w.normalize(), nil
}

func parseUserList(raw []byte) ([]models.User, error) {
	items, err := unwrapList(raw, "users")
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(items))
	for _, item := range items {
		u, err := parseUser(item)
		if err != nil {
			return nil, err
		}
		if u.ID != "" {
			out = append(out, u)
		}
	}
	return out, nil
}

type wireMeal struct {
	MongoID  string  `json:"_id"`
	MealUUID string  `json:"meal_uuid"`
	Title    string  `json:"meal_title"`
	Delivery string  `json:"delivery_hours"`
	Status   flexNum `json:"status"`
}

func parseMealList(raw []byte) ([]models.Meal, error) {
	items, err := unwrapList(raw, "meals")
	if err != nil {
		return nil, err
	}
	out := make([]models.Meal, 0, len(items))
	for _, item := range items {
		var w wireMeal
		if err := json.Unmarshal(item, &w); err != nil {
			return nil, err
		}
		id := firstID(w.MongoID, w.MealUUID)
		if id == "" {
			continue
		}
		title := w.Title
		if title == "" {
			title = "Untitled"
		}
		out = append(out, models.Meal{
			ID:            id,
			Title:         title,
			DeliveryHours: w.Delivery,
			Active:        w.Status == 1,
		})
	}
	return out, nil
}

type wirePlanSlot struct {
	MealID  string      `json:"meal_id"`
	DishIDs flexStrings `json:"dish_id"`
}

type wireMealPlan struct {
	MongoID string         `json:"_id"`
	ID      string         `json:"id"`
	Date    string         `json:"date"`
	Plan    []wirePlanSlot `json:"plan"`
	Status  flexNum        `json:"status"`
}

func parseMealPlanList(raw []byte) ([]models.MealPlan, error) {
	items, err := unwrapList(raw, "plans")
	if err != nil {
		return nil, err
	}
	out := make([]models.MealPlan, 0, len(items))
	for _, item := range items {
		var w wireMealPlan
		if err := json.Unmarshal(item, &w); err != nil {
			return nil, err
		}
		plan := models.MealPlan{
			ID:     firstID(w.MongoID, w.ID),
			Date:   w.Date,
			Active: w.Status == 1,
		}
		for _, slot := range w.Plan {
			if slot.MealID == "" || len(slot.DishIDs) == 0 {
				continue
			}
			plan.Slots = append(plan.Slots, models.PlanSlot{
				MealID:  slot.MealID,
				DishIDs: slot.DishIDs,
			})
		}
		out = append(out, plan)
	}
	return out, nil
}

type wireDishDetail struct {
	DishUUID string  `json:"dish_uuid"`
	Quantity flexNum `json:"quantity"`
	Price    flexNum `json:"price"`
}

type wireOrder struct {
	MongoID      string           `json:"_id"`
	ID           string           `json:"id"`
	OrderNumber  flexNum          `json:"order_number"`
	UserUUID     string           `json:"user_uuid"`
	MealID       string           `json:"meal_id"`
	ForDate      flexTime         `json:"for_date"`
	DishDetails  []wireDishDetail `json:"dish_details"`
	Amount       flexNum          `json:"amount"`
	Instructions string           `json:"instructions"`
	Status       flexNum          `json:"status"`
	PlacedBy     string           `json:"placed_by"`
	CreatedAt    flexTime         `json:"created_at"`
}

func (w wireOrder) normalize() models.Order {
	o := models.Order{
		ID:           firstID(w.MongoID, w.ID),
		OrderNumber:  int(w.OrderNumber),
		UserUUID:     w.UserUUID,
		MealID:       w.MealID,
		ForDate:      time.Time(w.ForDate),
		Amount:       float64(w.Amount),
		Instructions: w.Instructions,
		Status:       models.OrderStatus(int(w.Status)),
		PlacedBy:     w.PlacedBy,
		CreatedAt:    time.Time(w.CreatedAt),
	}
	for _, dd := range w.DishDetails {
		o.DishDetails = append(o.DishDetails, models.DishDetail{
			DishUUID: dd.DishUUID,
			Quantity: int(dd.Quantity),
			Price:    float64(dd.Price),
		})
	}
	return o
}

func parseOrder(raw []byte) (models.Order, error) {
	var w wireOrder
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.Order{}, err
	}
	return w.normalize(), nil
}

func parseOrderList(raw []byte) ([]models.Order, error) {
	items, err := unwrapList(raw, "orders")
	if err != nil {
		return nil, err
	}
	out := make([]models.Order, 0, len(items))
	for _, item := range items {
		o, err := parseOrder(item)
		if err != nil {
			return nil, err
		}
		if o.ID != "" {
			out = append(out, o)
		}
	}
	return out, nil
}

type wireWalletLog struct {
	Date      flexTime `json:"date"`
	Amount    flexNum  `json:"amount"`
	Balance   flexNum  `json:"balance"`
	Narration string   `json:"narration"`
	OrderID   string   `json:"order_id"`
}

func parseWalletStatement(raw []byte) (models.WalletStatement, error) {
	var w struct {
		Balance flexNum         `json:"balance"`
		Logs    []wireWalletLog `json:"logs"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.WalletStatement{}, err
	}
	st := models.WalletStatement{Balance: float64(w.Balance)}
	for _, l := range w.Logs {
		st.Logs = append(st.Logs, models.WalletLog{
			Date:      time.Time(l.Date),
			Amount:    float64(l.Amount),
			Balance:   float64(l.Balance),
			Narration: l.Narration,
			OrderID:   l.OrderID,
		})
	}
	return st, nil
}
