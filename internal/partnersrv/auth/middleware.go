package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/coverlane/coverlane/internal/common/httpx"
	"github.com/coverlane/coverlane/internal/common/uuid"
	"github.com/coverlane/coverlane/internal/partnersrv/config"
	"github.com/coverlane/coverlane/internal/partnersrv/partnercommon"
)

// UserAuthMiddleware validates the bearer token and loads the actor into the
// request context. In test mode the configured test token maps to a fixed
// test operator.
func UserAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			log.Ctx(ctx).Warn().Msg("missing or invalid authorization header")
			httpx.ErrUnAuthorized(ErrMissingToken.Error()).Send(w)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		ctx, err := ValidateToken(ctx, token)
		if err == nil {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if config.IsTest() {
			ctx, terr := handleTestToken(r.Context(), token)
			if terr != nil {
				log.Ctx(ctx).Warn().Err(terr).Msg("authentication failed in test mode")
				httpx.ErrUnAuthorized(terr.Error()).Send(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		log.Ctx(ctx).Warn().Err(err).Msg("token validation failed")
		httpx.ErrUnAuthorized("invalid authorization token").Send(w)
	})
}

// testActorID is the fixed operator identity behind the test token.
var testActorID = uuid.MustParse("00000000-0000-0000-0000-00000000c0de")

func handleTestToken(ctx context.Context, token string) (context.Context, error) {
	if token != config.Config().Auth.TestActorToken {
		return ctx, fmt.Errorf("invalid token in test mode")
	}
	actor := &partnercommon.Actor{
		ActorID: testActorID,
		Subject: partnercommon.SubjectTypeOperator,
	}
	ctx = partnercommon.WithActor(ctx, actor)
	return partnercommon.WithTestContext(ctx, true), nil
}
