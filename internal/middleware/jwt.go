package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"facilitymonitor/internal/models"
	"facilitymonitor/internal/utils"
	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

// UserClaims are the custom claims carried by a session token.
type UserClaims struct {
	Username string `json:"username"`
}

// Validate implements validator.CustomClaims.
func (c *UserClaims) Validate(context.Context) error {
	if c.Username == "" {
		return errors.New("username claim is missing")
	}
	return nil
}

// JWTConfig mirrors the settings used when tokens are issued.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// NewJWTMiddleware returns a wrapper that admits requests carrying a valid
// Bearer token. A missing or non-Bearer header is answered with 401, any
// other verification failure with 403.
func NewJWTMiddleware(cfg JWTConfig, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	keyFunc := func(context.Context) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}
	v, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.Issuer,
		[]string{cfg.Audience},
		validator.WithCustomClaims(func() validator.CustomClaims { return &UserClaims{} }),
		validator.WithAllowedClockSkew(30*time.Second),
	)
	if err != nil {
		return nil, err
	}

	m := jwtmiddleware.New(
		v.ValidateToken,
		jwtmiddleware.WithTokenExtractor(bearerToken),
		jwtmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
				utils.RespondWithError(w, models.AuthRequiredError())
				return
			}
			logger.Debug("token rejected", "path", r.URL.Path, "error", err)
			utils.RespondWithError(w, models.ForbiddenError())
		}),
	)
	return m.CheckJWT, nil
}

// bearerToken treats anything that is not "Bearer <token>" as no token at all.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", nil
	}
	return strings.TrimSpace(token), nil
}

// UsernameFromContext returns the username of the verified token, if any.
func UsernameFromContext(ctx context.Context) (string, bool) {
	claims, ok := ctx.Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !ok {
		return "", false
	}
	uc, ok := claims.CustomClaims.(*UserClaims)
	if !ok {
		return "", false
	}
	return uc.Username, true
}
