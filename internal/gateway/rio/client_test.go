package rio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasmbraga/taxflow/pkg/domain"
)

func TestListGuidesMapsStatuses(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		wantErr error
		wantNil bool
	}{
		{"auth 401", http.StatusUnauthorized, domain.ErrAuthentication, false},
		{"auth 403", http.StatusForbidden, domain.ErrAuthentication, false},
		{"unavailable 500", http.StatusInternalServerError, domain.ErrServiceUnavailable, false},
		{"unavailable 503", http.StatusServiceUnavailable, domain.ErrServiceUnavailable, false},
		{"not found collapses", http.StatusNotFound, nil, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			client := New(srv.URL, "key")
			set, err := client.ListGuides(context.Background(), "123", 2025)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
			if tc.wantNil {
				assert.Nil(t, set)
			}
		})
	}
}

func TestListGuidesSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2025", r.URL.Query().Get("exercicio"))
		_ = json.NewEncoder(w).Encode(domain.GuideSet{
			PropertyID: "123",
			Year:       2025,
			Guides:     []domain.Guide{{Number: "00", Kind: domain.GuideOrdinary, Total: "1.200,00"}},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, "key")
	set, err := client.ListGuides(context.Background(), "123", 2025)
	require.NoError(t, err)
	require.NotNil(t, set)
	assert.Equal(t, "00", set.Guides[0].Number)
}

func TestListGuidesEmptyCollapsesToNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.GuideSet{PropertyID: "123", Year: 2025})
	}))
	defer srv.Close()

	set, err := New(srv.URL, "").ListGuides(context.Background(), "123", 2025)
	assert.NoError(t, err)
	assert.Nil(t, set)
}

func TestConnectionErrorIsUnavailable(t *testing.T) {
	// Point at a closed server.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := New(srv.URL, "").ListGuides(context.Background(), "123", 2025)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestGenerateSlip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req domain.SlipRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"04", "05"}, req.Installments)
		_ = json.NewEncoder(w).Encode(domain.SlipBatch{
			Slips: []domain.Slip{{ID: "slip-1", Amount: "178,88"}},
		})
	}))
	defer srv.Close()

	batch, err := New(srv.URL, "").GenerateSlip(context.Background(), domain.SlipRequest{
		PropertyID:   "123",
		Year:         2025,
		GuideNumber:  "00",
		Installments: []string{"04", "05"},
	})
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, "slip-1", batch.Slips[0].ID)
}

func TestDownloadSlipDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	doc, err := New(srv.URL, "").DownloadSlipDocument(context.Background(), "slip-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), doc)
}

func TestLookupActiveDebtEmptyCollapsesToNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.DebtInfo{PropertyID: "123"})
	}))
	defer srv.Close()

	debt, err := New(srv.URL, "").LookupActiveDebt(context.Background(), "123")
	assert.NoError(t, err)
	assert.Nil(t, debt)
}
