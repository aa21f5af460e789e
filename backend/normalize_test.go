package backend

import (
	"testing"
	"time"
)

func TestParseDishListEnvelopes(t *testing.T) {
	bare := `[{"_id":"d1","title":"Paneer Bowl","price":120,"status":1}]`
	wrappedData := `{"data":[{"_id":"d1","title":"Paneer Bowl","price":120,"status":1}]}`
	wrappedDishes := `{"dishes":[{"_id":"d1","title":"Paneer Bowl","price":120,"status":1}]}`

	for _, raw := range []string{bare, wrappedData, wrappedDishes} {
		dishes, err := parseDishList([]byte(raw))
		if err != nil {
			t.Fatalf("parse %s: %v", raw, err)
		}
		if len(dishes) != 1 || dishes[0].ID != "d1" || dishes[0].Price != 120 {
			t.Errorf("parse %s -> %+v", raw, dishes)
		}
		if !dishes[0].Active {
			t.Errorf("status 1 not mapped to active: %s", raw)
		}
	}
}

func TestParseDishAliases(t *testing.T) {
	raw := `{"dish_uuid":"d9","name":"Millet Khichdi","price":"90.5","kcal":"410","fats":7,"carbohydrates":55,"image_url":"a.jpg"}`
	dish, err := parseDish([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if dish.ID != "d9" {
		t.Errorf("id = %q", dish.ID)
	}
	if dish.Title != "Millet Khichdi" {
		t.Errorf("title = %q", dish.Title)
	}
	if dish.Price != 90.5 {
		t.Errorf("string price = %v", dish.Price)
	}
	if dish.Macros.Calories != 410 || dish.Macros.Fat != 7 || dish.Macros.Carbs != 55 {
		t.Errorf("macros = %+v", dish.Macros)
	}
	if len(dish.ImageURLs) != 1 || dish.ImageURLs[0] != "a.jpg" {
		t.Errorf("single image string not lifted to list: %v", dish.ImageURLs)
	}
}

func TestParseUserAliases(t *testing.T) {
	raw := `{"user_uuid":"u1","user_title":" Alice ","mobile":"9000000001","wallet":"250.50","status":"1"}`
	user, err := parseUser([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if user.ID != "u1" || user.Title != "Alice" || user.Mobile != "9000000001" {
		t.Errorf("user = %+v", user)
	}
	if user.WalletBalance != 250.50 {
		t.Errorf("wallet = %v", user.WalletBalance)
	}
	if !user.Active {
		t.Error("string status not coerced")
	}
}

func TestParseUserListSkipsIDlessRows(t *testing.T) {
	raw := `[{"user_uuid":"u1","title":"Alice"},{"title":"Ghost"}]`
	users, err := parseUserList([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].ID != "u1" {
		t.Errorf("users = %+v", users)
	}
}

func TestParseMealPlanList(t *testing.T) {
	raw := `{"data":[{
		"_id":"p1","date":"2025-11-01","status":1,
		"plan":[
			{"meal_id":"lunch","dish_id":["d1","d2"]},
			{"meal_id":"dinner","dish_id":"d3"},
			{"meal_id":"","dish_id":["d4"]},
			{"meal_id":"snack","dish_id":[]}
		]
	}]}`
	plans, err := parseMealPlanList([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if len(plans) != 1 {
		t.Fatalf("plans = %+v", plans)
	}
	plan := plans[0]
	if plan.ID != "p1" || plan.Date != "2025-11-01" || !plan.Active {
		t.Errorf("plan = %+v", plan)
	}
	if len(plan.Slots) != 2 {
		t.Fatalf("slots = %+v", plan.Slots)
	}
	if plan.Slots[1].MealID != "dinner" || len(plan.Slots[1].DishIDs) != 1 || plan.Slots[1].DishIDs[0] != "d3" {
		t.Errorf("scalar dish_id not lifted: %+v", plan.Slots[1])
	}
}

func TestParseOrderDateShapes(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
	}{
		{
			`{"_id":"o1","for_date":"2025-10-31T18:30:00Z","status":1}`,
			time.Date(2025, time.October, 31, 18, 30, 0, 0, time.UTC),
		},
		{
			`{"_id":"o1","for_date":{"$date":"2025-10-31T18:30:00.000Z"},"status":1}`,
			time.Date(2025, time.October, 31, 18, 30, 0, 0, time.UTC),
		},
		{
			`{"_id":"o1","for_date":"2025-11-01","status":1}`,
			time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		order, err := parseOrder([]byte(tc.raw))
		if err != nil {
			t.Fatalf("parse %s: %v", tc.raw, err)
		}
		if !order.ForDate.Equal(tc.want) {
			t.Errorf("for_date of %s = %v, want %v", tc.raw, order.ForDate, tc.want)
		}
	}
}

func TestParseOrderDetails(t *testing.T) {
	raw := `{
		"_id":"o1","order_number":"1041","user_uuid":"u1","meal_id":"lunch",
		"amount":"320","status":3,
		"dish_details":[{"dish_uuid":"d1","quantity":"2","price":120}]
	}`
	order, err := parseOrder([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if order.OrderNumber != 1041 || order.Amount != 320 {
		t.Errorf("order = %+v", order)
	}
	if len(order.DishDetails) != 1 || order.DishDetails[0].Quantity != 2 {
		t.Errorf("details = %+v", order.DishDetails)
	}
	if !order.Cancelled() {
		t.Error("status 3 not recognized as cancelled")
	}
}

func TestParseWalletStatement(t *testing.T) {
	raw := `{"balance":"250.5","logs":[
		{"date":"2025-10-01T10:00:00Z","amount":-120,"balance":250.5,"narration":"Order #1041","order_id":"o1"}
	]}`
	st, err := parseWalletStatement([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if st.Balance != 250.5 {
		t.Errorf("balance = %v", st.Balance)
	}
	if len(st.Logs) != 1 || st.Logs[0].Amount != -120 || st.Logs[0].OrderID != "o1" {
		t.Errorf("logs = %+v", st.Logs)
	}
}

func TestUnwrapListUnknownEnvelope(t *testing.T) {
	items, err := unwrapList([]byte(`{"something_else":{"nested":true}}`), "dishes")
	if err != nil {
		t.Fatal(err)
	}
	if items != nil {
		t.Errorf("items = %v, want nil", items)
	}
}
