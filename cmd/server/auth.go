package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Simplici0/tierprice/internal/config"
	pkgerrors "github.com/Simplici0/tierprice/internal/errors"
	"github.com/Simplici0/tierprice/internal/logger"
)

var actorSigningMethod = jwt.SigningMethodHS256

type actorCtxKey struct{}

// actorTokens signs and verifies the bearer tokens that identify who is
// mutating prices. The token subject is the actor recorded in the audit log.
type actorTokens struct {
	secret []byte
	issuer string
}

// newActorTokens returns nil when no secret is configured; mutating requests
// then name their actor in the body.
func newActorTokens(cfg config.AuthConfig) *actorTokens {
	if !cfg.Enabled() {
		return nil
	}
	return &actorTokens{secret: []byte(cfg.TokenSecret), issuer: cfg.TokenIssuer}
}

func (a *actorTokens) mint(actor string, now time.Time, ttl time.Duration) (string, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return "", errors.New("actor is required")
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}

	claims := jwt.RegisteredClaims{
		Subject:   actor,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(actorSigningMethod, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing actor token: %w", err)
	}
	return signed, nil
}

func (a *actorTokens) parse(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (any, error) {
			if token.Method != actorSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return a.secret, nil
		},
		jwt.WithValidMethods([]string{actorSigningMethod.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}

	actor := strings.TrimSpace(claims.Subject)
	if actor == "" {
		return "", errors.New("token has no subject")
	}
	return actor, nil
}

// requireActor verifies the bearer token on mutating routes and stores the
// actor in the request context. It is a pass-through when tokens are off.
func (a *actorTokens) requireActor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil {
				next.ServeHTTP(w, r)
				return
			}

			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			token := raw
			if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				writeError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor token"))
				return
			}

			actor, err := a.parse(token)
			if err != nil {
				writeError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor token"))
				return
			}

			ctx := context.WithValue(r.Context(), actorCtxKey{}, actor)
			if logg != nil {
				ctx = logg.WithActor(ctx, actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// actorFromContext returns the verified actor, if the request carried one.
func actorFromContext(ctx context.Context) (string, bool) {
	actor, ok := ctx.Value(actorCtxKey{}).(string)
	return actor, ok && actor != ""
}
