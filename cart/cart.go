// Package cart holds the dish selection a viewer intends to order and the
// totals derived from it. A cart mirrors at most one placed order: while it
// does, it is locked and every mutation is a no-op until the viewer
// explicitly enters edit mode.
package cart

import (
	"fmt"
	"sort"
	"strings"

	"sehat-box/gateway/models"
)

type Line struct {
	Dish         models.Dish `json:"dish"`
	Quantity     int         `json:"quantity"`
	Instructions string      `json:"instructions"`
}

type Totals struct {
	Items  int           `json:"items"`
	Amount float64       `json:"amount"`
	Macros models.Macros `json:"macros"`
}

type Cart struct {
	lines  map[string]*Line
	locked bool
}

func New() *Cart {
	return &Cart{lines: make(map[string]*Line)}
}

func (c *Cart) Locked() bool { return c.locked }
func (c *Cart) Lock()        { c.locked = true }
func (c *Cart) Unlock()      { c.locked = false }

// SetQuantity inserts or updates the line for a dish. Quantity <= 0 removes
// the line. Instructions already entered for the dish survive quantity
// changes. Returns false when the cart is locked and nothing changed.
func (c *Cart) SetQuantity(dish models.Dish, qty int) bool {
	if c.locked {
		return false
	}
	if dish.ID == "" {
		return false
	}
	if qty <= 0 {
		delete(c.lines, dish.ID)
		return true
	}
	if line, ok := c.lines[dish.ID]; ok {
		line.Dish = dish
		line.Quantity = qty
		return true
	}
	c.lines[dish.ID] = &Line{Dish: dish, Quantity: qty}
	return true
}

// SetInstructions updates the free-text note on an existing line. It never
// creates a line and is a no-op while locked.
func (c *Cart) SetInstructions(dishID, text string) bool {
	if c.locked {
		return false
	}
	line, ok := c.lines[dishID]
	if !ok {
		return false
	}
	line.Instructions = text
	return true
}

// PrefillFrom replaces the whole cart with the order's dish details, taking
// dish data from the catalog. Entries whose dish id is missing from the
// catalog are skipped; the backend and catalog can drift and a stale line
// is not worth failing the whole prefill for.
func (c *Cart) PrefillFrom(order *models.Order, catalog map[string]models.Dish) {
	c.lines = make(map[string]*Line)
	if order == nil {
		return
	}
	for _, dd := range order.DishDetails {
		dish, ok := catalog[dd.DishUUID]
		if !ok {
			continue
		}
		c.lines[dd.DishUUID] = &Line{Dish: dish, Quantity: dd.Quantity}
	}
}

func (c *Cart) Clear() {
	c.lines = make(map[string]*Line)
}

func (c *Cart) Len() int { return len(c.lines) }

// Lines returns the cart contents ordered by dish id, so responses and
// payloads are deterministic.
func (c *Cart) Lines() []Line {
	ids := make([]string, 0, len(c.lines))
	for id := range c.lines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Line, 0, len(ids))
	for _, id := range ids {
		out = append(out, *c.lines[id])
	}
	return out
}

func (c *Cart) Line(dishID string) (Line, bool) {
	line, ok := c.lines[dishID]
	if !ok {
		return Line{}, false
	}
	return *line, true
}

// Totals recomputes everything from scratch on each call; nothing is cached,
// so the derived values can never drift from the lines.
func (c *Cart) Totals() Totals {
	var t Totals
	for _, line := range c.lines {
		qty := float64(line.Quantity)
		t.Items += line.Quantity
		t.Amount += qty * line.Dish.Price
		t.Macros.Calories += qty * line.Dish.Macros.Calories
		t.Macros.Protein += qty * line.Dish.Macros.Protein
		t.Macros.Carbs += qty * line.Dish.Macros.Carbs
		t.Macros.Fat += qty * line.Dish.Macros.Fat
	}
	return t
}

// DishDetails renders the cart as the order wire shape.
func (c *Cart) DishDetails() []models.DishDetail {
	lines := c.Lines()
	out := make([]models.DishDetail, 0, len(lines))
	for _, line := range lines {
		out = append(out, models.DishDetail{
			DishUUID: line.Dish.ID,
			Quantity: line.Quantity,
			Price:    line.Dish.Price,
		})
	}
	return out
}

// MergedInstructions joins each dish's note as "Title: note" lines, skipping
// dishes with no note.
func (c *Cart) MergedInstructions() string {
	var parts []string
	for _, line := range c.Lines() {
		note := strings.TrimSpace(line.Instructions)
		if note == "" {
			continue
		}
		title := line.Dish.Title
		if title == "" {
			title = "Dish"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", title, note))
	}
	return strings.Join(parts, "\n")
}
