package callback

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/deployra/docsync/internal/config"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/oauth"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const stateTTL = 10 * time.Minute

var (
	// Apps returns the OAuth applications, replaced in tests
	Apps = func() oauth.OAuthApps {
		return oauth.OAuthAppsFromConfig(config.Get())
	}

	// Settings returns the provider API settings, replaced in tests
	Settings = func() oauth.Settings {
		return oauth.SettingsFromConfig(config.Get())
	}

	errInvalidState = errors.New("invalid OAuth state")
)

// stateClaims binds an authorization round trip to the user who started it
type stateClaims struct {
	UserID   string             `json:"userId"`
	Provider models.VCSProvider `json:"provider"`
	jwt.RegisteredClaims
}

func signState(secret, userID string, provider models.VCSProvider) (string, error) {
	now := time.Now()
	claims := stateClaims{
		UserID:   userID,
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "connect",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseState(secret, state string, provider models.VCSProvider) (*stateClaims, error) {
	token, err := jwt.ParseWithClaims(state, &stateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidState
		}
		return []byte(secret), nil
	}, jwt.WithSubject("connect"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidState, err)
	}

	claims, ok := token.Claims.(*stateClaims)
	if !ok || !token.Valid || claims.Provider != provider || claims.UserID == "" {
		return nil, errInvalidState
	}
	return claims, nil
}

// oauthConfig returns the authorization config of provider with its callback URL
func oauthConfig(cfg *config.Config, provider models.VCSProvider) (*oauth2.Config, bool) {
	app, ok := Apps()[provider]
	if !ok || !app.Configured() {
		return nil, false
	}
	conf := app.Config()
	conf.RedirectURL = strings.TrimRight(cfg.ApiURL, "/") + "/api/callback/" + string(provider)
	return conf, true
}

func appRedirect(cfg *config.Config, query url.Values) string {
	return strings.TrimRight(cfg.AppURL, "/") + "/accounts?" + query.Encode()
}
