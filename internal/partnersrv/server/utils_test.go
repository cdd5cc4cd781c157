package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonmiddleware "github.com/coverlane/coverlane/internal/common/middleware"
	"github.com/coverlane/coverlane/internal/partnersrv/config"
	"github.com/coverlane/coverlane/internal/partnersrv/db"
	dbconfig "github.com/coverlane/coverlane/internal/partnersrv/db/config"
	"github.com/coverlane/coverlane/internal/partnersrv/db/migrations"
	"github.com/coverlane/coverlane/internal/partnersrv/processor"
)

var migrateOnce sync.Once

// stubGenerator keeps server tests independent of the OpenAI API. Products
// named in failNames fail generation; everything priced 100 or above is
// eligible.
type stubGenerator struct {
	failNames map[string]bool
}

func (s *stubGenerator) Generate(_ context.Context, input *processor.GenerateInput) (*processor.Classification, error) {
	if s.failNames[input.ProductName] {
		return nil, errors.New("generator unavailable")
	}
	eligible := input.Price >= 100
	reason := "Product is covered"
	if !eligible {
		reason = "Below minimum insurable value"
	}
	return &processor.Classification{
		Eligible:    eligible,
		Reason:      reason,
		RiskProfile: "ELECTRONIC_PRODUCTS",
		Guarantees:  []byte(`{"eligible": true, "coverage_modules": [], "exclusions": []}`),
	}, nil
}

func newTestServer(t *testing.T) *PartnerServer {
	t.Helper()
	config.TestInit()
	db.Init()
	migrateOnce.Do(func() {
		sqlDB, err := sql.Open("pgx", dbconfig.PartnerStoreDsn())
		require.NoError(t, err)
		defer sqlDB.Close()
		require.NoError(t, migrations.Apply(log.Logger.WithContext(context.Background()), sqlDB))
	})

	s, err := CreateNewServer()
	require.NoError(t, err, "create new server")
	s.MountHandlers(&stubGenerator{})
	return s
}

func executeTestRequest(t *testing.T, s *PartnerServer, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func setRequestBodyAndHeader(t *testing.T, req *http.Request, body string) {
	t.Helper()
	req.Body = io.NopCloser(bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
}

func setAuthHeader(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+config.Config().Auth.TestActorToken)
}

func checkHeader(t *testing.T, h http.Header) {
	t.Helper()
	expected := "application/json"
	got := h.Get("Content-Type")
	assert.Equal(t, expected, got, "Content-Type expected %s, got %s", expected, got)
	assert.NotEmpty(t, h.Get(commonmiddleware.RequestIDHeader), "No Request Id")
}

func compareJson(t *testing.T, expected any, actual string) {
	t.Helper()
	var j []byte
	var err error

	switch v := expected.(type) {
	case string:
		j = []byte(v)
	case []byte:
		j = v
	default:
		j, err = json.Marshal(v)
		assert.NoError(t, err, "json marshal")
	}
	assert.JSONEq(t, string(j), actual)
}
