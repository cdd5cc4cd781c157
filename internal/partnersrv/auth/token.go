// Package auth issues and validates the bearer tokens that guard mutating
// API routes. Tokens are HS256 JWTs signed with the configured key; the
// subject is the operator's UUID and becomes the approver identity on
// package approvals.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/coverlane/coverlane/internal/common/uuid"
	"github.com/coverlane/coverlane/internal/partnersrv/config"
	"github.com/coverlane/coverlane/internal/partnersrv/partnercommon"
)

const tokenIssuer = "coverlane-partnersrv"

// CreateToken issues a signed token for an actor. validity of zero uses the
// configured default.
func CreateToken(actor *partnercommon.Actor, validity time.Duration) (string, error) {
	if actor == nil || actor.ActorID == uuid.Nil {
		return "", fmt.Errorf("actor is required")
	}
	if validity <= 0 {
		d, err := config.ParseDuration(config.Config().Auth.DefaultTokenValidity)
		if err != nil {
			return "", fmt.Errorf("invalid default token validity: %w", err)
		}
		validity = d
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":     tokenIssuer,
		"sub":     actor.ActorID.String(),
		"subject": string(actor.Subject),
		"iat":     jwt.NewNumericDate(now),
		"nbf":     jwt.NewNumericDate(now.Add(-2 * time.Minute)), // clock skew buffer
		"exp":     jwt.NewNumericDate(now.Add(validity)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.Config().Auth.SigningKey))
}

// ValidateToken verifies a bearer token and returns a context carrying the
// authenticated actor.
func ValidateToken(ctx context.Context, tokenString string) (context.Context, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(config.Config().Auth.SigningKey), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return ctx, ErrInvalidToken.Err(err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return ctx, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return ctx, ErrInvalidToken.Msg("missing subject")
	}
	actorID, err := uuid.Parse(sub)
	if err != nil {
		return ctx, ErrInvalidToken.Msg("subject is not a valid actor id")
	}

	subjectType := partnercommon.SubjectTypeOperator
	if s, ok := claims["subject"].(string); ok && s != "" {
		subjectType = partnercommon.SubjectType(s)
	}

	actor := &partnercommon.Actor{
		ActorID: actorID,
		Subject: subjectType,
	}
	return partnercommon.WithActor(ctx, actor), nil
}
