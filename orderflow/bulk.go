package orderflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"sehat-box/gateway/models"
)

// Bulk placement: one meal/dish selection posted as separate orders for many
// customers. Wallet sufficiency is checked up front from the user list; the
// backend still has the final say per order.

var (
	ErrNoCustomers = errors.New("select at least one customer")
	ErrNoMeal      = errors.New("select a meal")
	ErrNoDishes    = errors.New("add at least one dish with quantity above zero")
	ErrNoDate      = errors.New("enter a valid delivery date")
)

// The backend reports wallet rejections only as message text, so
// classification here is textual too.
var insufficientBalanceRe = regexp.MustCompile(`(?i)Current Wallet Balance|Insufficient wallet`)

// OrderPoster is the single backend call the bulk flow needs.
type OrderPoster interface {
	CreateOrder(ctx context.Context, draft models.OrderDraft) (*models.Order, error)
}

type BulkRequest struct {
	Customers    []models.User
	MealID       string
	ForDate      time.Time
	DishDetails  []models.DishDetail
	Instructions string
	PlacedBy     string

	// Override lists customer ids the operator explicitly confirmed despite
	// an insufficient wallet. Nil means no confirmation has happened yet.
	Override []string
}

func (r *BulkRequest) total() float64 {
	var sum float64
	for _, dd := range r.DishDetails {
		sum += float64(dd.Quantity) * dd.Price
	}
	return sum
}

type BulkFailure struct {
	Customer     models.User `json:"customer"`
	Message      string      `json:"message"`
	Insufficient bool        `json:"insufficient_balance"`
}

type BulkResult struct {
	// Halted is set when insufficient customers were found and no override
	// was supplied; no orders have been posted in that case.
	Halted       bool          `json:"halted"`
	Insufficient []models.User `json:"insufficient,omitempty"`

	// Skipped lists short-balance customers the operator chose not to
	// override; no order was posted for them.
	Skipped []models.User `json:"skipped,omitempty"`

	Placed   int           `json:"placed"`
	Failures []BulkFailure `json:"failures,omitempty"`
	Total    float64       `json:"order_total"`
}

// PlaceBulk validates, gates on wallet sufficiency, then posts one order per
// allowed customer concurrently and waits for every outcome.
func PlaceBulk(ctx context.Context, api OrderPoster, req BulkRequest) (*BulkResult, error) {
	if len(req.Customers) == 0 {
		return nil, ErrNoCustomers
	}
	if req.MealID == "" {
		return nil, ErrNoMeal
	}
	live := make([]models.DishDetail, 0, len(req.DishDetails))
	for _, dd := range req.DishDetails {
		if dd.Quantity > 0 {
			live = append(live, dd)
		}
	}
	if len(live) == 0 {
		return nil, ErrNoDishes
	}
	if req.ForDate.IsZero() {
		return nil, ErrNoDate
	}

	req.DishDetails = live
	total := req.total()

	overridden := make(map[string]bool, len(req.Override))
	for _, id := range req.Override {
		overridden[id] = true
	}

	var allowed, insufficient []models.User
	for _, cust := range req.Customers {
		switch {
		case cust.WalletBalance >= total:
			allowed = append(allowed, cust)
		case overridden[cust.ID]:
			allowed = append(allowed, cust)
		default:
			insufficient = append(insufficient, cust)
		}
	}

	// Blocking gate: the operator must name the short-balance customers
	// before anything is posted.
	if len(insufficient) > 0 && req.Override == nil {
		return &BulkResult{Halted: true, Insufficient: insufficient, Total: total}, nil
	}

	type outcome struct {
		customer models.User
		err      error
	}
	outcomes := make([]outcome, len(allowed))

	var wg sync.WaitGroup
	for i, cust := range allowed {
		wg.Add(1)
		go func(i int, cust models.User) {
			defer wg.Done()
			draft := models.OrderDraft{
				DishDetails:  req.DishDetails,
				Amount:       total,
				MealID:       req.MealID,
				ForDate:      req.ForDate,
				Instructions: strings.TrimSpace(req.Instructions),
				UserUUID:     cust.ID,
				PlacedBy:     req.PlacedBy,
			}
			_, err := api.CreateOrder(ctx, draft)
			outcomes[i] = outcome{customer: cust, err: err}
		}(i, cust)
	}
	wg.Wait()

	result := &BulkResult{Total: total, Skipped: insufficient}
	for _, out := range outcomes {
		if out.err == nil {
			result.Placed++
			continue
		}
		msg := out.err.Error()
		result.Failures = append(result.Failures, BulkFailure{
			Customer:     out.customer,
			Message:      msg,
			Insufficient: insufficientBalanceRe.MatchString(msg),
		})
	}
	return result, nil
}

// Summary renders the operator-facing report, one line per failed customer.
func (r *BulkResult) Summary() string {
	if r.Halted {
		var b strings.Builder
		b.WriteString("insufficient wallet balance for:")
		for _, cust := range r.Insufficient {
			b.WriteString("\n• " + customerLine(cust, ""))
		}
		return b.String()
	}

	plural := "s"
	if r.Placed == 1 {
		plural = ""
	}
	b := strings.Builder{}
	fmt.Fprintf(&b, "%d order%s placed", r.Placed, plural)

	var insuff, others []BulkFailure
	for _, f := range r.Failures {
		if f.Insufficient {
			insuff = append(insuff, f)
		} else {
			others = append(others, f)
		}
	}
	if len(insuff) > 0 {
		plural = "s"
		if len(insuff) == 1 {
			plural = ""
		}
		fmt.Fprintf(&b, "\n%d order%s unsuccessful due to insufficient balance:", len(insuff), plural)
		for _, f := range insuff {
			b.WriteString("\n• " + customerLine(f.Customer, ""))
		}
	}
	if len(others) > 0 {
		plural = "s"
		if len(others) == 1 {
			plural = ""
		}
		fmt.Fprintf(&b, "\n%d order%s unsuccessful:", len(others), plural)
		for _, f := range others {
			b.WriteString("\n• " + customerLine(f.Customer, f.Message))
		}
	}
	if len(r.Skipped) > 0 {
		plural = "s"
		if len(r.Skipped) == 1 {
			plural = ""
		}
		fmt.Fprintf(&b, "\n%d customer%s skipped due to insufficient balance:", len(r.Skipped), plural)
		for _, cust := range r.Skipped {
			b.WriteString("\n• " + customerLine(cust, ""))
		}
	}
	return b.String()
}

func customerLine(cust models.User, reason string) string {
	title := cust.Title
	if title == "" {
		title = "Unnamed"
	}
	line := fmt.Sprintf("%s - %s", title, cust.Mobile)
	if reason != "" && !insufficientBalanceRe.MatchString(reason) {
		line += fmt.Sprintf(" (%s)", reason)
	}
	return line
}
