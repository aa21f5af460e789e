// Package orderflow drives the order lifecycle for one viewer: reconciling
// the cart against an already-placed order, deciding create vs update on
// submit, and the admin bulk placement variant.
package orderflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sehat-box/gateway/cart"
	"sehat-box/gateway/models"
)

// OrderAPI is the slice of the backend client the workflow needs.
type OrderAPI interface {
	FindOrder(ctx context.Context, userUUID, mealID string, forDate time.Time) (*models.Order, bool, error)
	Order(ctx context.Context, id string) (*models.Order, error)
	CreateOrder(ctx context.Context, draft models.OrderDraft) (*models.Order, error)
	UpdateOrder(ctx context.Context, id string, draft models.OrderDraft) (*models.Order, error)
	CancelOrder(ctx context.Context, id string, refund bool, reason string) error
}

type State int

const (
	// StateUnselected: no meal slot chosen yet.
	StateUnselected State = iota
	// StateChecking: existence check in flight.
	StateChecking
	// StateEmpty: no active order for the selection; cart editable.
	StateEmpty
	// StateLocked: an active order exists; cart mirrors it read-only.
	StateLocked
	// StateEditing: viewer unlocked the existing order's cart.
	StateEditing
	// StateSubmitting: submit in flight.
	StateSubmitting
	// StateCheckFailed: the existence check errored. Unknown is not absent;
	// submission stays blocked until a re-check succeeds.
	StateCheckFailed
)

func (s State) String() string {
	switch s {
	case StateUnselected:
		return "unselected"
	case StateChecking:
		return "checking"
	case StateEmpty:
		return "empty"
	case StateLocked:
		return "locked"
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	case StateCheckFailed:
		return "check_failed"
	}
	return "unknown"
}

var (
	ErrNoSelection    = errors.New("no meal slot selected")
	ErrCartLocked     = errors.New("cart is locked; edit the order first")
	ErrCartEmpty      = errors.New("cart is empty")
	ErrNotEditing     = errors.New("not editing an existing order")
	ErrNoActiveOrder  = errors.New("no active order for this selection")
	ErrCheckUnsettled = errors.New("could not confirm whether an order already exists; retry the selection")
	ErrBusy           = errors.New("a submission is already in flight")
	ErrUnsavedCart    = errors.New("submit this order first, then create a new one")
)

// Selection is the per-viewer workflow for one (meal slot, date) choice.
// All methods are safe for concurrent use; the viewer's requests are
// serialized through one mutex.
type Selection struct {
	mu sync.Mutex

	api      OrderAPI
	userUUID string
	placedBy string

	mealID  string
	forDate time.Time
	catalog map[string]models.Dish

	cart     *cart.Cart
	existing *models.Order
	state    State
}

func NewSelection(api OrderAPI, userUUID, placedBy string) *Selection {
	if placedBy == "" {
		placedBy = userUUID
	}
	return &Selection{
		api:      api,
		userUUID: userUUID,
		placedBy: placedBy,
		catalog:  make(map[string]models.Dish),
		cart:     cart.New(),
		state:    StateUnselected,
	}
}

// Select switches to a meal slot and reconciles the cart against any order
// already placed for (user, meal, date). Switching away from a dirty,
// unsubmitted cart is refused so edits are not silently dropped.
func (s *Selection) Select(ctx context.Context, mealID string, forDate time.Time, catalog map[string]models.Dish) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitting {
		return ErrBusy
	}
	dirty := s.state == StateEditing || (s.state == StateEmpty && s.cart.Len() > 0)
	if dirty && mealID != s.mealID {
		return ErrUnsavedCart
	}

	s.mealID = mealID
	s.forDate = forDate
	s.catalog = catalog
	s.state = StateChecking

	order, found, err := s.api.FindOrder(ctx, s.userUUID, mealID, forDate)
	if err != nil {
		s.existing = nil
		s.cart.Clear()
		s.cart.Lock()
		s.state = StateCheckFailed
		return fmt.Errorf("%w: %v", ErrCheckUnsettled, err)
	}
	if found {
		s.adopt(order)
		return nil
	}
	s.existing = nil
	s.cart.Clear()
	s.cart.Unlock()
	s.state = StateEmpty
	return nil
}

// adopt makes the cart mirror an active order read-only.
func (s *Selection) adopt(order *models.Order) {
	s.existing = order
	s.cart.Unlock()
	s.cart.PrefillFrom(order, s.catalog)
	s.cart.Lock()
	s.state = StateLocked
}

func (s *Selection) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Selection) MealID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mealID
}

func (s *Selection) Existing() *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existing == nil {
		return nil
	}
	copied := *s.existing
	return &copied
}

// CatalogDish looks a dish up in the catalog the current selection was
// loaded with.
func (s *Selection) CatalogDish(id string) (models.Dish, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dish, ok := s.catalog[id]
	return dish, ok
}

func (s *Selection) Lines() []cart.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Lines()
}

func (s *Selection) Totals() cart.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Totals()
}

func (s *Selection) SetQuantity(dish models.Dish, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateEmpty, StateEditing:
	case StateLocked:
		return ErrCartLocked
	default:
		return ErrNoSelection
	}
	s.cart.SetQuantity(dish, qty)
	return nil
}

func (s *Selection) SetInstructions(dishID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateEmpty, StateEditing:
	case StateLocked:
		return ErrCartLocked
	default:
		return ErrNoSelection
	}
	s.cart.SetInstructions(dishID, text)
	return nil
}

// Edit unlocks the cart of an existing order.
func (s *Selection) Edit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLocked || s.existing == nil {
		return ErrNoActiveOrder
	}
	s.cart.Unlock()
	s.state = StateEditing
	return nil
}

// CancelEditing discards edits and re-prefills from the stored order.
func (s *Selection) CancelEditing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEditing || s.existing == nil {
		return ErrNotEditing
	}
	s.adopt(s.existing)
	return nil
}

// Submit POSTs a new order or PUTs the one being edited. On success the
// selection settles back into Locked over the refreshed order; on failure
// the prior state and cart are kept untouched.
func (s *Selection) Submit(ctx context.Context) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateEmpty, StateEditing:
	case StateSubmitting:
		return nil, ErrBusy
	case StateLocked:
		return nil, ErrCartLocked
	case StateCheckFailed:
		return nil, ErrCheckUnsettled
	default:
		return nil, ErrNoSelection
	}
	if s.cart.Len() == 0 {
		return nil, ErrCartEmpty
	}

	prior := s.state
	s.state = StateSubmitting

	totals := s.cart.Totals()
	draft := models.OrderDraft{
		DishDetails:  s.cart.DishDetails(),
		Amount:       totals.Amount,
		MealID:       s.mealID,
		ForDate:      s.forDate,
		Instructions: s.cart.MergedInstructions(),
		UserUUID:     s.userUUID,
		PlacedBy:     s.placedBy,
	}

	var (
		order *models.Order
		err   error
	)
	if prior == StateEditing {
		order, err = s.api.UpdateOrder(ctx, s.existing.ID, draft)
		if err == nil {
			if refreshed, rerr := s.api.Order(ctx, s.existing.ID); rerr == nil {
				order = refreshed
			}
		}
	} else {
		order, err = s.api.CreateOrder(ctx, draft)
		if err == nil && order.ID != "" {
			if refreshed, _, ferr := s.api.FindOrder(ctx, s.userUUID, s.mealID, s.forDate); ferr == nil && refreshed != nil {
				order = refreshed
			}
		}
	}
	if err != nil {
		s.state = prior
		return nil, err
	}

	s.adopt(order)
	return order, nil
}

// Cancel cancels the active order with a wallet refund. The backend does the
// crediting; locally the selection just empties out.
func (s *Selection) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLocked || s.existing == nil {
		return ErrNoActiveOrder
	}

	ref := s.existing.ID
	if s.existing.OrderNumber > 0 {
		ref = fmt.Sprintf("%d", s.existing.OrderNumber)
	}
	reason := fmt.Sprintf("Cancelled by Customer #%s", ref)

	if err := s.api.CancelOrder(ctx, s.existing.ID, true, reason); err != nil {
		return err
	}

	s.existing = nil
	s.cart.Clear()
	s.cart.Unlock()
	s.state = StateEmpty
	return nil
}
