package handlers

import (
	"testing"

	"sehat-box/gateway/models"
	"sehat-box/gateway/session"
)

func TestCanTrack(t *testing.T) {
	order := &models.Order{ID: "o1", UserUUID: "u1"}

	owner := session.Identity{Subject: "u1", Role: session.RoleCustomer}
	if !canTrack(owner, order) {
		t.Error("owner refused")
	}

	stranger := session.Identity{Subject: "u2", Role: session.RoleCustomer}
	if canTrack(stranger, order) {
		t.Error("another customer allowed to watch the order")
	}

	admin := session.Identity{Subject: "ops@sehatbox.local", Role: session.RoleAdmin}
	if !canTrack(admin, order) {
		t.Error("admin refused")
	}

	// an order with no owner recorded is never shown to customers
	orphan := &models.Order{ID: "o2"}
	if canTrack(owner, orphan) {
		t.Error("ownerless order shown to a customer")
	}
}
