package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sehat-box/gateway/models"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return New(srv.URL, "/admin", "service-token", 5*time.Second), srv
}

func TestDoSendsBearerToken(t *testing.T) {
	var gotAuth string
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	if _, err := client.Dishes(context.Background()); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer service-token" {
		t.Errorf("auth header = %q", gotAuth)
	}
}

func TestAPIErrorCarriesBackendMessage(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Current Wallet Balance is 5.00"}`))
	}))
	defer srv.Close()

	_, err := client.CreateOrder(context.Background(), models.OrderDraft{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("status = %d", apiErr.Status)
	}
	if apiErr.Message != "Current Wallet Balance is 5.00" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestAPIErrorFallsBackToErrorKey(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"order already exists"}`))
	}))
	defer srv.Close()

	_, err := client.CreateOrder(context.Background(), models.OrderDraft{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v", err)
	}
	if apiErr.Message != "order already exists" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestFindOrderThreeOutcomes(t *testing.T) {
	forDate := time.Date(2025, time.October, 31, 18, 30, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("user_uuid") != "u1" || q.Get("meal_id") != "lunch" {
				t.Errorf("query = %v", q)
			}
			w.Write([]byte(`{"data":[
				{"_id":"old","status":3},
				{"_id":"o1","status":1,"amount":320}
			]}`))
		}))
		defer srv.Close()

		order, found, err := client.FindOrder(context.Background(), "u1", "lunch", forDate)
		if err != nil || !found {
			t.Fatalf("found=%v err=%v", found, err)
		}
		if order.ID != "o1" {
			t.Errorf("picked %q; cancelled orders must not count", order.ID)
		}
	})

	t.Run("confirmed absent", func(t *testing.T) {
		client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		order, found, err := client.FindOrder(context.Background(), "u1", "lunch", forDate)
		if err != nil {
			t.Fatal(err)
		}
		if found || order != nil {
			t.Errorf("found=%v order=%v", found, order)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, found, err := client.FindOrder(context.Background(), "u1", "lunch", forDate)
		if err == nil {
			t.Fatal("failed check reported no error")
		}
		if found {
			t.Error("failed check reported found")
		}
	})
}

func TestCreateOrderPayload(t *testing.T) {
	var got map[string]interface{}
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"_id":"o1","status":1}`))
	}))
	defer srv.Close()

	draft := models.OrderDraft{
		DishDetails:  []models.DishDetail{{DishUUID: "d1", Quantity: 2, Price: 120}},
		Amount:       240,
		MealID:       "lunch",
		ForDate:      time.Date(2025, time.October, 31, 18, 30, 0, 0, time.UTC),
		Instructions: "Paneer Bowl: less spicy",
		UserUUID:     "u1",
		PlacedBy:     "u1",
	}
	order, err := client.CreateOrder(context.Background(), draft)
	if err != nil {
		t.Fatal(err)
	}
	if order.ID != "o1" {
		t.Errorf("order = %+v", order)
	}

	if got["meal_id"] != "lunch" || got["user_uuid"] != "u1" || got["amount"] != 240.0 {
		t.Errorf("payload = %v", got)
	}
	details, _ := got["dish_details"].([]interface{})
	if len(details) != 1 {
		t.Fatalf("dish_details = %v", got["dish_details"])
	}
}

func TestCancelOrderUsesAdminPrefix(t *testing.T) {
	var gotPath string
	var got map[string]interface{}
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	err := client.CancelOrder(context.Background(), "o1", true, "Cancelled by Customer #42")
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/admin/orders/o1/cancel" {
		t.Errorf("path = %q", gotPath)
	}
	if got["refund"] != true || got["reason"] != "Cancelled by Customer #42" {
		t.Errorf("body = %v", got)
	}
}

func TestActiveMealPlanPicksActive(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"_id":"p0","date":"2025-10-31","status":0},
			{"_id":"p1","date":"2025-11-01","status":1,"plan":[{"meal_id":"lunch","dish_id":["d1"]}]}
		]`))
	}))
	defer srv.Close()

	plan, err := client.ActiveMealPlan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if plan == nil || plan.ID != "p1" {
		t.Errorf("plan = %+v", plan)
	}
}

func TestActiveMealPlanNoneIsNotAnError(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"_id":"p0","date":"2025-10-31","status":0}]`))
	}))
	defer srv.Close()

	plan, err := client.ActiveMealPlan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if plan != nil {
		t.Errorf("plan = %+v, want nil", plan)
	}
}

func TestAdminOrdersQueryEncoding(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("user_uuid") != "u1" || q.Get("page") != "2" || q.Get("limit") != "25" {
			t.Errorf("query = %v", q)
		}
		if len(q["status"]) != 2 || q["status"][0] != "0" || q["status"][1] != "1" {
			t.Errorf("status = %v", q["status"])
		}
		w.Write([]byte(`{"data":[{"_id":"o1","status":1,"amount":320}],"total":1,"total_amount":320}`))
	}))
	defer srv.Close()

	page, err := client.AdminOrders(context.Background(), AdminOrdersQuery{
		UserUUID: "u1",
		Statuses: []models.OrderStatus{models.OrderStatusUpcoming, models.OrderStatusPlaced},
		Page:     2,
		Limit:    25,
	})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || len(page.Orders) != 1 || page.TotalAmount != 320 {
		t.Errorf("page = %+v", page)
	}
}

func TestAdminLogin(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/login" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "ops@sehatbox.local" {
			t.Errorf("body = %v", body)
		}
		w.Write([]byte(`{"success":true,"token":"backend-token"}`))
	}))
	defer srv.Close()

	token, err := client.AdminLogin(context.Background(), "ops@sehatbox.local", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if token != "backend-token" {
		t.Errorf("token = %q", token)
	}
}

func TestAdminLoginRejection(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"invalid credentials"}`))
	}))
	defer srv.Close()

	if _, err := client.AdminLogin(context.Background(), "ops@sehatbox.local", "bad"); err == nil {
		t.Fatal("rejected login returned no error")
	}
}
