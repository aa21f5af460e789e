package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sehat-box/gateway/config"
	_ "sehat-box/gateway/docs"
	"sehat-box/gateway/handlers"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	server := handlers.New(cfg)

	// Initialize connections
	if err := server.Connect(); err != nil {
		log.Fatal("Failed to initialize connections:", err)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middlewares
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(server.MetricsMiddleware())

	// Routes
	setupRoutes(app, server)

	// Swagger
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// WebSocket routes
	app.Use("/track", server.Sessions().RequireAny())
	app.Get("/track", websocket.New(server.HandleTrackingWebSocket))

	log.Printf("Server starting on port %s", cfg.Server.Port)
	log.Fatal(app.Listen(":" + cfg.Server.Port))
}

func setupRoutes(app *fiber.App, server *handlers.Server) {
	sessions := server.Sessions()

	// Health check
	app.Get("/health", handlers.HealthCheck)

	// Public
	public := app.Group("/public")
	public.Post("/bootstrap-session", server.BootstrapSession)

	// Customer API
	customer := app.Group("/customer-api", sessions.RequireCustomer())
	customer.Get("/me", server.Me)
	customer.Get("/meal-plan", server.MealPlanView)
	customer.Get("/dishes/:id", server.DishDetail)
	customer.Get("/nutrition", server.Nutrition)
	customer.Post("/selection", server.SelectMeal)
	customer.Get("/cart", server.CartView)
	customer.Post("/cart/items", server.SetQuantity)
	customer.Put("/cart/items/:dishId/instructions", server.SetInstructions)
	customer.Post("/cart/edit", server.EditOrder)
	customer.Post("/cart/cancel-editing", server.CancelEditing)
	customer.Post("/cart/submit", server.SubmitCart)
	customer.Post("/orders/cancel", server.CancelMyOrder)

	// Admin console
	app.Post("/admin/login", server.AdminLogin)

	admin := app.Group("/admin", sessions.RequireAdmin())
	admin.Post("/generate-magic-link", server.GenerateMagicLink)
	admin.Get("/customers", server.Customers)
	admin.Get("/customers/:uuid/wallet", server.WalletStatement)
	admin.Post("/customers/:uuid/wallet", server.AddWalletFunds)
	admin.Get("/orders", server.AdminOrders)
	admin.Post("/orders/bulk", server.BulkPlace)
	admin.Post("/orders/:id/cancel", server.AdminCancelOrder)
	admin.Post("/cashflow", server.Cashflow)
}
