package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coverlane/coverlane/internal/partnersrv/partnercommon"
)

func TestGetVersion(t *testing.T) {
	s := newTestServer(t)

	req, _ := http.NewRequest("GET", "/version", nil)
	response := executeTestRequest(t, s, req)

	require.Equal(t, http.StatusOK, response.Code)
	checkHeader(t, response.Result().Header)

	compareJson(t,
		&GetVersionRsp{
			ServerVersion: "Coverlane Partner Server: " + partnercommon.ServerVersion,
			ApiVersion:    partnercommon.ApiVersion,
		}, response.Body.String())
}

func TestGetReadiness(t *testing.T) {
	s := newTestServer(t)

	req, _ := http.NewRequest("GET", "/ready", nil)
	response := executeTestRequest(t, s, req)

	require.Equal(t, http.StatusOK, response.Code)
	checkHeader(t, response.Result().Header)

	compareJson(t, map[string]string{
		"status": "ready",
	}, response.Body.String())
}
