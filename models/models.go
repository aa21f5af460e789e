package models

import "time"

type OrderStatus int

const (
	OrderStatusUpcoming  OrderStatus = 0
	OrderStatusPlaced    OrderStatus = 1
	OrderStatusCompleted OrderStatus = 2
	OrderStatusCancelled OrderStatus = 3
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusUpcoming:
		return "upcoming"
	case OrderStatusPlaced:
		return "placed"
	case OrderStatusCompleted:
		return "completed"
	case OrderStatusCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Macros are per single serving of a dish.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

type Dish struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Price       float64  `json:"price"`
	Ingredients string   `json:"ingredients"`
	Macros      Macros   `json:"macros"`
	ImageURLs   []string `json:"image_urls,omitempty"`
	Active      bool     `json:"active"`
}

type Meal struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	DeliveryHours string `json:"delivery_hours,omitempty"`
	Active        bool   `json:"active"`
}

// PlanSlot is one meal slot of a plan and the dishes offered in it.
type PlanSlot struct {
	MealID  string   `json:"meal_id"`
	DishIDs []string `json:"dish_ids"`
}

type MealPlan struct {
	ID     string     `json:"id"`
	Date   string     `json:"date"` // calendar date, YYYY-MM-DD
	Slots  []PlanSlot `json:"slots"`
	Active bool       `json:"active"`
}

type DishDetail struct {
	DishUUID string  `json:"dish_uuid"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price,omitempty"`
}

type Order struct {
	ID           string       `json:"id"`
	OrderNumber  int          `json:"order_number,omitempty"`
	UserUUID     string       `json:"user_uuid"`
	MealID       string       `json:"meal_id"`
	ForDate      time.Time    `json:"for_date"`
	DishDetails  []DishDetail `json:"dish_details"`
	Amount       float64      `json:"amount"`
	Instructions string       `json:"instructions,omitempty"`
	Status       OrderStatus  `json:"status"`
	PlacedBy     string       `json:"placed_by,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (o *Order) Cancelled() bool { return o.Status == OrderStatusCancelled }

// OrderDraft is the write shape for POST /orders and PUT /orders/:id.
type OrderDraft struct {
	DishDetails  []DishDetail `json:"dish_details"`
	Amount       float64      `json:"amount"`
	MealID       string       `json:"meal_id"`
	ForDate      time.Time    `json:"for_date"`
	Instructions string       `json:"instructions"`
	UserUUID     string       `json:"user_uuid"`
	PlacedBy     string       `json:"placed_by"`
}

type User struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Mobile        string  `json:"mobile"`
	WalletBalance float64 `json:"wallet_balance"`
	Active        bool    `json:"active"`
}

type WalletLog struct {
	Date      time.Time `json:"date"`
	Amount    float64   `json:"amount"`
	Balance   float64   `json:"balance"`
	Narration string    `json:"narration,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`
}

type WalletStatement struct {
	Balance float64     `json:"balance"`
	Logs    []WalletLog `json:"logs"`
}

// NutritionRow is one day's intake, summed over the day's non-cancelled orders.
type NutritionRow struct {
	Date   string `json:"date"`
	Macros Macros `json:"macros"`
}
