package cart

import (
	"testing"
	"time"

	"sehat-box/gateway/models"
)

func dish(id, title string, price float64) models.Dish {
	return models.Dish{
		ID:    id,
		Title: title,
		Price: price,
		Macros: models.Macros{
			Calories: 100,
			Protein:  10,
			Carbs:    20,
			Fat:      5,
		},
	}
}

func TestSetQuantityAndTotals(t *testing.T) {
	c := New()
	d1 := dish("d1", "Paneer Bowl", 120)
	d2 := dish("d2", "Sprout Salad", 80)

	if !c.SetQuantity(d1, 2) || !c.SetQuantity(d2, 1) {
		t.Fatal("SetQuantity refused on an unlocked cart")
	}

	tot := c.Totals()
	if tot.Items != 3 {
		t.Errorf("items = %d, want 3", tot.Items)
	}
	if tot.Amount != 320 {
		t.Errorf("amount = %v, want 320", tot.Amount)
	}
	if tot.Macros.Calories != 300 || tot.Macros.Protein != 30 {
		t.Errorf("macros = %+v", tot.Macros)
	}
}

func TestZeroQuantityRemovesLine(t *testing.T) {
	c := New()
	d1 := dish("d1", "Paneer Bowl", 120)

	c.SetQuantity(d1, 2)
	c.SetQuantity(d1, 0)
	if c.Len() != 0 {
		t.Errorf("cart has %d lines after removing, want 0", c.Len())
	}

	c.SetQuantity(d1, -3)
	if c.Len() != 0 {
		t.Error("negative quantity created a line")
	}
}

func TestQuantityChangeKeepsInstructions(t *testing.T) {
	c := New()
	d1 := dish("d1", "Paneer Bowl", 120)

	c.SetQuantity(d1, 1)
	if !c.SetInstructions("d1", "less spicy") {
		t.Fatal("SetInstructions failed on an existing line")
	}
	c.SetQuantity(d1, 3)

	line, ok := c.Line("d1")
	if !ok {
		t.Fatal("line missing")
	}
	if line.Instructions != "less spicy" {
		t.Errorf("instructions = %q after quantity change", line.Instructions)
	}
	if line.Quantity != 3 {
		t.Errorf("quantity = %d, want 3", line.Quantity)
	}
}

func TestInstructionsNeverCreateLines(t *testing.T) {
	c := New()
	if c.SetInstructions("ghost", "anything") {
		t.Error("SetInstructions created a line for an absent dish")
	}
	if c.Len() != 0 {
		t.Errorf("cart has %d lines, want 0", c.Len())
	}
}

func TestLockedCartIgnoresMutations(t *testing.T) {
	c := New()
	d1 := dish("d1", "Paneer Bowl", 120)
	c.SetQuantity(d1, 2)
	c.Lock()

	if c.SetQuantity(d1, 5) {
		t.Error("SetQuantity succeeded while locked")
	}
	if c.SetInstructions("d1", "note") {
		t.Error("SetInstructions succeeded while locked")
	}

	line, _ := c.Line("d1")
	if line.Quantity != 2 || line.Instructions != "" {
		t.Errorf("locked cart changed: %+v", line)
	}
}

func TestPrefillReproducesOrderAmount(t *testing.T) {
	catalog := map[string]models.Dish{
		"d1": dish("d1", "Paneer Bowl", 120),
		"d2": dish("d2", "Sprout Salad", 80),
	}
	order := &models.Order{
		ID:      "ord1",
		ForDate: time.Now(),
		DishDetails: []models.DishDetail{
			{DishUUID: "d1", Quantity: 2, Price: 120},
			{DishUUID: "d2", Quantity: 1, Price: 80},
		},
		Amount: 320,
	}

	c := New()
	c.SetQuantity(dish("stale", "Old Pick", 999), 4)
	c.PrefillFrom(order, catalog)

	if c.Len() != 2 {
		t.Fatalf("cart has %d lines, want 2", c.Len())
	}
	if got := c.Totals().Amount; got != order.Amount {
		t.Errorf("prefilled amount = %v, order amount = %v", got, order.Amount)
	}
}

func TestPrefillSkipsUnknownDishes(t *testing.T) {
	catalog := map[string]models.Dish{"d1": dish("d1", "Paneer Bowl", 120)}
	order := &models.Order{
		DishDetails: []models.DishDetail{
			{DishUUID: "d1", Quantity: 1},
			{DishUUID: "gone", Quantity: 2},
		},
	}

	c := New()
	c.PrefillFrom(order, catalog)
	if c.Len() != 1 {
		t.Errorf("cart has %d lines, want 1", c.Len())
	}
	if _, ok := c.Line("gone"); ok {
		t.Error("stale dish survived prefill")
	}
}

func TestDishDetailsWireShape(t *testing.T) {
	c := New()
	c.SetQuantity(dish("d2", "Sprout Salad", 80), 1)
	c.SetQuantity(dish("d1", "Paneer Bowl", 120), 2)

	details := c.DishDetails()
	if len(details) != 2 {
		t.Fatalf("got %d details", len(details))
	}
	// sorted by dish id
	if details[0].DishUUID != "d1" || details[1].DishUUID != "d2" {
		t.Errorf("details out of order: %+v", details)
	}
	if details[0].Quantity != 2 || details[0].Price != 120 {
		t.Errorf("detail = %+v", details[0])
	}
}

func TestMergedInstructions(t *testing.T) {
	c := New()
	c.SetQuantity(dish("d1", "Paneer Bowl", 120), 1)
	c.SetQuantity(dish("d2", "Sprout Salad", 80), 1)
	c.SetQuantity(dish("d3", "Millet Khichdi", 90), 1)
	c.SetInstructions("d1", "less spicy")
	c.SetInstructions("d3", "  no ghee  ")

	got := c.MergedInstructions()
	want := "Paneer Bowl: less spicy\nMillet Khichdi: no ghee"
	if got != want {
		t.Errorf("merged = %q, want %q", got, want)
	}

	c.Clear()
	if c.MergedInstructions() != "" {
		t.Error("empty cart produced instructions")
	}
}
