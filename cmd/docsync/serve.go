package main

import (
	"github.com/deployra/docsync/internal/config"
	"github.com/deployra/docsync/internal/middleware"
	"github.com/deployra/docsync/internal/redis"
	"github.com/deployra/docsync/internal/routes"
	"github.com/deployra/docsync/internal/websocket"
	"github.com/deployra/docsync/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the management and webhook API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()

			if err := connectDatabase(cfg); err != nil {
				return err
			}
			if migrate {
				if err := runMigrations(); err != nil {
					return err
				}
			}

			if err := redis.Initialize(cfg); err != nil {
				return err
			}

			go websocket.StartRedisSubscriber(cmd.Context(), redis.GetClient(), websocket.GetHub())

			app := fiber.New(fiber.Config{
				ErrorHandler: response.ErrorHandler,
			})

			app.Use(recover.New())
			app.Use(logger.New())
			app.Use(middleware.RequestLogger())
			app.Use(cors.New(cors.Config{
				AllowOrigins:     cfg.CorsOrigins,
				AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
				AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
				AllowCredentials: true,
			}))

			routes.Setup(app, cfg)

			log.Info().Str("port", cfg.Port).Msg("Server starting")
			return app.Listen(":" + cfg.Port)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Run database migrations before serving")
	return cmd
}
