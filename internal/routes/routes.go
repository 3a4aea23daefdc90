package routes

import (
	"github.com/deployra/docsync/internal/config"
	"github.com/deployra/docsync/internal/handlers/accounts"
	"github.com/deployra/docsync/internal/handlers/auth"
	"github.com/deployra/docsync/internal/handlers/callback"
	"github.com/deployra/docsync/internal/handlers/integrations"
	"github.com/deployra/docsync/internal/handlers/organizations"
	"github.com/deployra/docsync/internal/handlers/projects"
	"github.com/deployra/docsync/internal/handlers/repositories"
	"github.com/deployra/docsync/internal/handlers/webhook"
	"github.com/deployra/docsync/internal/middleware"
	wshandler "github.com/deployra/docsync/internal/websocket"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func Setup(app *fiber.App, cfg *config.Config) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Webhook deliveries (no auth, validated against the integration secret)
	api.Post("/v2/webhook/:projectSlug/:integrationId", webhook.Receive)

	// Live webhook events, authenticated with ?token=
	api.Get("/socket", wshandler.UpgradeMiddleware, websocket.New(wshandler.Handler))

	authRoutes := api.Group("/auth", middleware.AuthMiddleware(cfg))
	{
		authRoutes.Get("/user", auth.GetUser)
		authRoutes.Patch("/user", auth.UpdateProfile)
	}

	// Account connection through the provider OAuth flow
	api.Get("/connect/:provider", middleware.AuthMiddleware(cfg), callback.Connect(cfg))
	api.Get("/callback/:provider", callback.Callback(cfg))

	accountRoutes := api.Group("/accounts", middleware.AuthMiddleware(cfg))
	{
		accountRoutes.Get("/", accounts.List)
		accountRoutes.Post("/:accountId/sync", accounts.Sync)
	}

	organizationRoutes := api.Group("/organizations", middleware.AuthMiddleware(cfg))
	{
		organizationRoutes.Get("/", organizations.List)
		organizationRoutes.Get("/:organizationId", organizations.Get)
	}

	api.Get("/repositories", middleware.AuthMiddleware(cfg), repositories.List)

	projectRoutes := api.Group("/projects", middleware.AuthMiddleware(cfg))
	{
		projectRoutes.Get("/", projects.List)
		projectRoutes.Post("/", projects.Create)
		projectRoutes.Get("/:projectId", projects.Get)
		projectRoutes.Patch("/:projectId", projects.Update)
		projectRoutes.Delete("/:projectId", projects.Delete)
		projectRoutes.Get("/:projectId/integrations", integrations.List)
		projectRoutes.Post("/:projectId/integrations", integrations.Create)
		projectRoutes.Post("/:projectId/integrations/:integrationId/sync", integrations.Sync)
	}
}
