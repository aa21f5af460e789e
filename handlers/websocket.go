package handlers

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"

	"sehat-box/gateway/models"
	"sehat-box/gateway/session"
)

// canTrack reports whether the connected identity may watch an order.
// Customers only see their own; admins see everything.
func canTrack(id session.Identity, order *models.Order) bool {
	if id.Role == session.RoleAdmin {
		return true
	}
	return order.UserUUID != "" && order.UserUUID == id.Subject
}

// HandleTrackingWebSocket pushes order status changes to a connected
// customer. The client passes ?order_id= and its session token; the token
// was already checked by the upgrade middleware.
func (s *Server) HandleTrackingWebSocket(c *websocket.Conn) {
	orderID := c.Query("order_id")
	if orderID == "" {
		c.WriteJSON(map[string]interface{}{"error": "order_id is required"})
		return
	}
	id, ok := session.FromConn(c)
	if !ok {
		c.WriteJSON(map[string]interface{}{"error": "unauthorized"})
		return
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	lastStatus := -1
	for ; true; <-ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		order, err := s.backend.Order(ctx, orderID)
		cancel()
		if err != nil {
			if werr := c.WriteJSON(map[string]interface{}{
				"order_id": orderID,
				"error":    "status check failed",
			}); werr != nil {
				return
			}
			continue
		}

		if !canTrack(id, order) {
			c.WriteJSON(map[string]interface{}{"error": "order not found"})
			return
		}

		if int(order.Status) == lastStatus {
			continue
		}
		lastStatus = int(order.Status)

		if err := c.WriteJSON(map[string]interface{}{
			"order_id":     orderID,
			"status":       int(order.Status),
			"status_label": order.Status.String(),
		}); err != nil {
			return
		}
		if order.Status == models.OrderStatusCompleted || order.Cancelled() {
			return
		}
	}
}
