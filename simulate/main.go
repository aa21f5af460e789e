package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/websocket"
)

// Smoke client for a running gateway. Redeems a magic link, selects a
// meal, fills the cart, submits and then watches the order over /track.

var (
	base     = flag.String("base", "http://localhost:8080", "gateway base URL")
	userUUID = flag.String("user", "", "customer uuid from the magic link")
	key      = flag.String("key", "", "magic link key")
	mealID   = flag.String("meal", "", "meal id to order from")
	dishID   = flag.String("dish", "", "dish id to add")
)

func main() {
	flag.Parse()
	if *userUUID == "" || *key == "" || *mealID == "" || *dishID == "" {
		fmt.Println("usage: simulate -user <uuid> -key <key> -meal <id> -dish <id>")
		os.Exit(1)
	}

	token := bootstrapSession()
	selectMeal(token)
	addDish(token)
	orderID := submit(token)
	trackOrder(token, orderID)
}

func postJSON(path, token string, body interface{}) map[string]interface{} {
	data, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, *base+path, bytes.NewBuffer(data))
	if err != nil {
		fmt.Printf("Request build failed: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&out)
	fmt.Printf("POST %s -> %d\n", path, resp.StatusCode)
	if resp.StatusCode >= 400 {
		fmt.Printf("  %v\n", out)
		os.Exit(1)
	}
	return out
}

func bootstrapSession() string {
	out := postJSON("/public/bootstrap-session", "", map[string]string{
		"user_uuid": *userUUID,
		"key":       *key,
	})
	token, _ := out["customer_token"].(string)
	if token == "" {
		fmt.Println("No customer token in response")
		os.Exit(1)
	}
	return token
}

func selectMeal(token string) {
	postJSON("/customer-api/selection", token, map[string]string{
		"meal_id": *mealID,
	})
}

func addDish(token string) {
	postJSON("/customer-api/cart/items", token, map[string]interface{}{
		"dish_id":  *dishID,
		"quantity": 1,
	})
}

func submit(token string) string {
	out := postJSON("/customer-api/cart/submit", token, map[string]string{})
	order, _ := out["order"].(map[string]interface{})
	id, _ := order["id"].(string)
	fmt.Printf("Order placed: %s\n", id)
	return id
}

func trackOrder(token, orderID string) {
	url := "ws" + (*base)[len("http"):] + "/track?order_id=" + orderID + "&token=" + token
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fmt.Printf("Tracking connect failed: %v\n", err)
		return
	}
	defer c.Close()

	for {
		var update map[string]interface{}
		if err := c.ReadJSON(&update); err != nil {
			fmt.Printf("Tracking closed: %v\n", err)
			return
		}
		fmt.Printf("Status update: %v\n", update)
	}
}
