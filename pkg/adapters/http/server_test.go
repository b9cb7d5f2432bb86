package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasmbraga/taxflow"
	httpapi "github.com/lucasmbraga/taxflow/pkg/adapters/http"
	"github.com/lucasmbraga/taxflow/pkg/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	handler := httpapi.NewHandler(taxflow.New())
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func postTurn(t *testing.T, srv *httptest.Server, sessionID string, payload map[string]any) *domain.State {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	resp, err := http.Post(srv.URL+"/v1/sessions/"+sessionID+"/turns", "application/json", &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st domain.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return &st
}

func TestTurnEndpointDrivesWorkflow(t *testing.T) {
	srv := newTestServer(t)

	st := postTurn(t, srv, "s1", nil)
	require.NotNil(t, st.Prompt)
	assert.Equal(t, "property", st.Prompt.PayloadSchema)

	st = postTurn(t, srv, "s1", map[string]any{"property_id": "01234567890123"})
	require.NotNil(t, st.Prompt)
	assert.Equal(t, "year", st.Prompt.PayloadSchema)
	assert.Equal(t, "01234567890123", st.Data.PropertyID)
}

func TestTurnRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/sessions/s1/turns", "application/json", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionEndpoints(t *testing.T) {
	srv := newTestServer(t)

	postTurn(t, srv, "s2", nil)

	resp, err := http.Get(srv.URL + "/v1/sessions/s2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st domain.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "s2", st.SessionID)

	resp, err = http.Get(srv.URL + "/v1/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()
	var listing struct {
		Sessions []string `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	assert.Contains(t, listing.Sessions, "s2")

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/sessions/s2", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/sessions/s2")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/sessions/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSlipDocumentDownload(t *testing.T) {
	srv := newTestServer(t)

	postTurn(t, srv, "s3", map[string]any{"property_id": "01234567890123"})
	postTurn(t, srv, "s3", map[string]any{"year": 2025})
	postTurn(t, srv, "s3", map[string]any{"guide": "01"})
	postTurn(t, srv, "s3", map[string]any{"installments": []string{"01"}})
	st := postTurn(t, srv, "s3", map[string]any{"confirmed": true})
	require.Len(t, st.Data.Slips, 1)
	slipID := st.Data.Slips[0].ID

	resp, err := http.Get(fmt.Sprintf("%s/v1/sessions/s3/slips/%s/document", srv.URL, slipID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	resp, err = http.Get(srv.URL + "/v1/sessions/s3/slips/unknown-slip/document")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndInfo(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/info")
	require.NoError(t, err)
	defer resp.Body.Close()
	var info map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "taxflow-http", info["app"])
	assert.Equal(t, domain.Service, info["service"])
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/v1/sessions/s1/turns", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
