package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestOrderStatusString(t *testing.T) {
	cases := map[OrderStatus]string{
		OrderStatusUpcoming:  "upcoming",
		OrderStatusPlaced:    "placed",
		OrderStatusCompleted: "completed",
		OrderStatusCancelled: "cancelled",
		OrderStatus(9):       "unknown",
	}
	for st, want := range cases {
		if got := st.String(); got != want {
			t.Errorf("status %d = %q, want %q", int(st), got, want)
		}
	}
}

func TestOrderJSONCreatedAtAlwaysPresent(t *testing.T) {
	data, err := json.Marshal(Order{ID: "o1"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"created_at"`) {
		t.Errorf("created_at missing from %s", data)
	}
}

func TestOrderCancelled(t *testing.T) {
	if (&Order{Status: OrderStatusPlaced}).Cancelled() {
		t.Error("placed order reported cancelled")
	}
	if !(&Order{Status: OrderStatusCancelled}).Cancelled() {
		t.Error("cancelled order not reported")
	}
}
