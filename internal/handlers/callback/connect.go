package callback

import (
	"errors"

	"github.com/deployra/docsync/internal/config"
	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/oauth"
	"github.com/deployra/docsync/internal/vcs"
	"github.com/deployra/docsync/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Connect returns the provider authorization URL for the current user
// GET /api/connect/:provider
func Connect(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		provider := models.VCSProvider(c.Params("provider"))

		user, ok := c.Locals("user").(*models.User)
		if !ok {
			return response.Unauthorized(c, "Invalid authentication")
		}

		conf, ok := oauthConfig(cfg, provider)
		if !ok {
			return response.BadRequest(c, "Provider is not supported")
		}

		state, err := signState(cfg.JWTSecret, user.ID, provider)
		if err != nil {
			return response.InternalServerError(c, "Failed to start authorization")
		}

		return response.Success(c, fiber.Map{
			"url": conf.AuthCodeURL(state, oauth2.AccessTypeOffline),
		})
	}
}

// Callback finishes the authorization started by Connect and redirects back
// to the app with either connected=<provider> or error=<reason>
// GET /api/callback/:provider
func Callback(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		db := database.GetDatabase()
		ctx := c.UserContext()
		provider := models.VCSProvider(c.Params("provider"))
		logger := log.Ctx(ctx).With().Str("provider", string(provider)).Logger()

		fail := func(reason string) error {
			return c.Redirect(appRedirect(cfg, map[string][]string{"error": {reason}}), fiber.StatusFound)
		}

		if c.Query("error") != "" {
			return fail("access_denied")
		}
		code, state := c.Query("code"), c.Query("state")
		if code == "" || state == "" {
			return fail("missing_params")
		}

		conf, ok := oauthConfig(cfg, provider)
		if !ok {
			return fail("unsupported_provider")
		}

		claims, err := parseState(cfg.JWTSecret, state, provider)
		if err != nil {
			logger.Info().Err(err).Msg("Rejected OAuth callback")
			return fail("invalid_state")
		}

		var user models.User
		if err := db.Where("id = ? AND deletedAt IS NULL", claims.UserID).First(&user).Error; err != nil {
			return fail("invalid_state")
		}

		token, err := conf.Exchange(ctx, code)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to exchange OAuth code")
			return fail("auth_failed")
		}

		settings := Settings()
		session := vcs.NewSession(conf.Client(ctx, token), settings.HTTPRetryMax)
		profile, err := oauth.FetchProfile(ctx, settings, provider, session)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to fetch provider profile")
			return fail("user_data_failed")
		}

		account, err := oauth.ConnectAccount(ctx, db, &user, provider, profile, token)
		if err != nil {
			if errors.Is(err, oauth.ErrAccountConnectedElsewhere) {
				return fail("account_in_use")
			}
			logger.Error().Err(err).Msg("Failed to store connected account")
			return fail("auth_failed")
		}

		return c.Redirect(appRedirect(cfg, map[string][]string{
			"connected": {string(provider)},
			"accountId": {account.ID},
		}), fiber.StatusFound)
	}
}
