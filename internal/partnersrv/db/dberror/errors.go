// Package dberror defines the typed database errors returned by the storage layer.
package dberror

import (
	"net/http"

	"github.com/coverlane/coverlane/internal/common/apperrors"
)

var (
	ErrDatabase         apperrors.Error = apperrors.New("db error").SetStatusCode(http.StatusInternalServerError)
	ErrAlreadyExists    apperrors.Error = ErrDatabase.New("already exists").SetStatusCode(http.StatusConflict)
	ErrNotFound         apperrors.Error = ErrDatabase.New("not found").SetStatusCode(http.StatusNotFound)
	ErrInvalidInput     apperrors.Error = ErrDatabase.New("invalid input").SetStatusCode(http.StatusBadRequest)
	ErrInvalidReference apperrors.Error = ErrDatabase.New("invalid reference").SetStatusCode(http.StatusBadRequest)
	ErrValueOutOfRange  apperrors.Error = ErrDatabase.New("value out of range").SetStatusCode(http.StatusBadRequest)
	ErrAlreadyClaimed   apperrors.Error = ErrDatabase.New("already claimed").SetStatusCode(http.StatusConflict)
)
