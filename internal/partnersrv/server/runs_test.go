package server

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverlane/coverlane/internal/common/uuid"
)

type runRsp struct {
	RunID     string `json:"run_id"`
	PartnerID string `json:"partner_id"`
	Status    string `json:"status"`
	Progress  struct {
		Claimed     int `json:"claimed"`
		Completed   int `json:"completed"`
		Eligible    int `json:"eligible"`
		NotEligible int `json:"not_eligible"`
		Failed      int `json:"failed"`
	} `json:"progress"`
	Error string `json:"error,omitempty"`
}

type packageRsp struct {
	PackageID      string          `json:"package_id"`
	ProductID      string          `json:"product_id"`
	PackageName    string          `json:"package_name"`
	Guarantees     json.RawMessage `json:"guarantees"`
	MonthlyPremium *float64        `json:"monthly_premium"`
	Status         string          `json:"status"`
	AIConfidence   *float64        `json:"ai_confidence"`
	CreatedBy      string          `json:"created_by"`
	ApprovedBy     string          `json:"approved_by"`
}

func startRun(t *testing.T, s *PartnerServer, partnerID string) *runRsp {
	t.Helper()
	httpReq, _ := http.NewRequest("POST", "/runs", nil)
	setRequestBodyAndHeader(t, httpReq, `{"partner_id": "`+partnerID+`"}`)
	setAuthHeader(httpReq)
	response := executeTestRequest(t, s, httpReq)
	require.Equal(t, http.StatusAccepted, response.Code, response.Body.String())

	var run runRsp
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &run))
	require.NotEmpty(t, run.RunID)
	return &run
}

func waitForRun(t *testing.T, s *PartnerServer, runID string) *runRsp {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequest("GET", "/runs/"+runID, nil)
		response := executeTestRequest(t, s, req)
		require.Equal(t, http.StatusOK, response.Code)

		var run runRsp
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &run))
		switch run.Status {
		case "completed", "failed", "stopped":
			return &run
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("run did not finish in time")
	return nil
}

func TestProcessingRunLifecycle(t *testing.T) {
	s := newTestServer(t)
	partner := createTestPartner(t, s, "jumbo-"+uuid.New().String())
	ingestTestBatch(t, s, partner.PartnerID, ingestBatch)

	run := startRun(t, s, partner.PartnerID)
	assert.Equal(t, partner.PartnerID, run.PartnerID)

	run = waitForRun(t, s, run.RunID)
	require.Equal(t, "completed", run.Status)
	assert.Equal(t, 2, run.Progress.Claimed)
	assert.Equal(t, 2, run.Progress.Completed)
	assert.Equal(t, 1, run.Progress.Eligible)
	assert.Equal(t, 1, run.Progress.NotEligible)
	assert.Equal(t, 0, run.Progress.Failed)

	// Every product is now processed
	req, _ := http.NewRequest("GET", "/partners/"+partner.PartnerID+"/products?status=completed", nil)
	response := executeTestRequest(t, s, req)
	require.Equal(t, http.StatusOK, response.Code)
	var products []productRsp
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &products))
	assert.Len(t, products, 2)

	// The phone generated an eligible package with a premium
	req, _ = http.NewRequest("GET", "/partners/"+partner.PartnerID+"/packages?status=eligible", nil)
	response = executeTestRequest(t, s, req)
	require.Equal(t, http.StatusOK, response.Code)
	var packages []packageRsp
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &packages))
	require.Len(t, packages, 1)
	assert.Equal(t, "Samsung Galaxy S24 Protection", packages[0].PackageName)
	assert.Equal(t, "ai", packages[0].CreatedBy)
	require.NotNil(t, packages[0].MonthlyPremium)
	assert.Greater(t, *packages[0].MonthlyPremium, 0.0)

	// A second run has nothing to claim
	run = startRun(t, s, partner.PartnerID)
	run = waitForRun(t, s, run.RunID)
	require.Equal(t, "completed", run.Status)
	assert.Equal(t, 0, run.Progress.Claimed)

	// Both runs are listed
	req, _ = http.NewRequest("GET", "/runs", nil)
	response = executeTestRequest(t, s, req)
	require.Equal(t, http.StatusOK, response.Code)
	var runs []runRsp
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &runs))
	assert.GreaterOrEqual(t, len(runs), 2)
}

func TestRunValidation(t *testing.T) {
	s := newTestServer(t)

	// Unknown partner
	httpReq, _ := http.NewRequest("POST", "/runs", nil)
	setRequestBodyAndHeader(t, httpReq, `{"partner_id": "`+uuid.New().String()+`"}`)
	setAuthHeader(httpReq)
	response := executeTestRequest(t, s, httpReq)
	assert.Equal(t, http.StatusNotFound, response.Code)

	// Malformed partner id
	httpReq, _ = http.NewRequest("POST", "/runs", nil)
	setRequestBodyAndHeader(t, httpReq, `{"partner_id": "nope"}`)
	setAuthHeader(httpReq)
	response = executeTestRequest(t, s, httpReq)
	assert.Equal(t, http.StatusBadRequest, response.Code)

	// Unknown run
	req, _ := http.NewRequest("GET", "/runs/"+uuid.New().String(), nil)
	response = executeTestRequest(t, s, req)
	assert.Equal(t, http.StatusNotFound, response.Code)

	// Stop on an unknown run
	httpReq, _ = http.NewRequest("POST", "/runs/"+uuid.New().String()+"/stop", nil)
	setAuthHeader(httpReq)
	response = executeTestRequest(t, s, httpReq)
	assert.Equal(t, http.StatusNotFound, response.Code)
}

func TestPackageApproval(t *testing.T) {
	s := newTestServer(t)
	partner := createTestPartner(t, s, "jumbo-"+uuid.New().String())
	ingestTestBatch(t, s, partner.PartnerID, ingestBatch)

	run := startRun(t, s, partner.PartnerID)
	run = waitForRun(t, s, run.RunID)
	require.Equal(t, "completed", run.Status)

	req, _ := http.NewRequest("GET", "/partners/"+partner.PartnerID+"/packages?status=eligible", nil)
	response := executeTestRequest(t, s, req)
	require.Equal(t, http.StatusOK, response.Code)
	var packages []packageRsp
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &packages))
	require.Len(t, packages, 1)

	// Approval requires auth
	httpReq, _ := http.NewRequest("POST", "/packages/"+packages[0].PackageID+"/approve", nil)
	response = executeTestRequest(t, s, httpReq)
	assert.Equal(t, http.StatusUnauthorized, response.Code)

	httpReq, _ = http.NewRequest("POST", "/packages/"+packages[0].PackageID+"/approve", nil)
	setAuthHeader(httpReq)
	response = executeTestRequest(t, s, httpReq)
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())

	var approved packageRsp
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &approved))
	assert.Equal(t, "approved", approved.Status)
	assert.NotEmpty(t, approved.ApprovedBy)

	// A package can only be approved once
	httpReq, _ = http.NewRequest("POST", "/packages/"+packages[0].PackageID+"/approve", nil)
	setAuthHeader(httpReq)
	response = executeTestRequest(t, s, httpReq)
	assert.Equal(t, http.StatusBadRequest, response.Code)

	// Unknown package
	httpReq, _ = http.NewRequest("POST", "/packages/"+uuid.New().String()+"/approve", nil)
	setAuthHeader(httpReq)
	response = executeTestRequest(t, s, httpReq)
	assert.Equal(t, http.StatusNotFound, response.Code)
}
