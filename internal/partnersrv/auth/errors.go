package auth

import (
	"net/http"

	"github.com/coverlane/coverlane/internal/common/apperrors"
)

var (
	ErrAuth         apperrors.Error = apperrors.New("authentication error").SetStatusCode(http.StatusUnauthorized)
	ErrInvalidToken apperrors.Error = ErrAuth.New("invalid token")
	ErrMissingToken apperrors.Error = ErrAuth.New("missing or invalid authorization header")
)
