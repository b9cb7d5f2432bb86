package intercept

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasmbraga/taxflow/pkg/domain"
	"github.com/lucasmbraga/taxflow/pkg/ports"
)

type captureReporter struct {
	mu      sync.Mutex
	reports []ports.ErrorReport
	fail    bool
}

func (c *captureReporter) Report(ctx context.Context, rep ports.ErrorReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("sink down")
	}
	c.reports = append(c.reports, rep)
	return nil
}

func (c *captureReporter) all() []ports.ErrorReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ports.ErrorReport(nil), c.reports...)
}

func TestRunReportsOnceAndReturnsUnchanged(t *testing.T) {
	sink := &captureReporter{}
	obs := New("gateway", WithReporter(sink))

	orig := fmt.Errorf("consulta falhou: %w", domain.ErrServiceUnavailable)
	err := obs.Run(context.Background(), "sess-1", "list_guides", func(ctx context.Context) error {
		return orig
	})
	obs.Flush()

	// Same error value, untouched.
	assert.Equal(t, orig, err)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)

	reports := sink.all()
	require.Len(t, reports, 1)
	assert.Equal(t, "gateway", reports[0].Component)
	assert.Equal(t, "service_unavailable", reports[0].ErrorType)
	assert.Equal(t, orig.Error(), reports[0].Message)
	assert.Equal(t, "sess-1", reports[0].SessionID)
	assert.Equal(t, "list_guides", reports[0].Tags["operation"])
	assert.NotEmpty(t, reports[0].ID)
}

func TestDoReturnsValueOnSuccess(t *testing.T) {
	sink := &captureReporter{}
	obs := New("gateway", WithReporter(sink))

	out, err := Do(context.Background(), obs, "sess-1", "list_guides", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	obs.Flush()

	assert.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Empty(t, sink.all())
}

func TestAllowListFiltersClasses(t *testing.T) {
	sink := &captureReporter{}
	obs := New("gateway",
		WithReporter(sink),
		WithAllowed(ClassAuthentication),
	)

	err := obs.Run(context.Background(), "sess-1", "op", func(ctx context.Context) error {
		return fmt.Errorf("wrapped: %w", domain.ErrServiceUnavailable)
	})
	obs.Flush()

	assert.Error(t, err)
	assert.Empty(t, sink.all(), "unallowed class must not be reported")

	err = obs.Run(context.Background(), "sess-1", "op", func(ctx context.Context) error {
		return fmt.Errorf("wrapped: %w", domain.ErrAuthentication)
	})
	obs.Flush()

	assert.Error(t, err)
	require.Len(t, sink.all(), 1)
	assert.Equal(t, "authentication_error", sink.all()[0].ErrorType)
}

func TestGenericClassCatchesAll(t *testing.T) {
	sink := &captureReporter{}
	obs := New("flow", WithReporter(sink))

	err := obs.Run(context.Background(), "sess-1", "op", func(ctx context.Context) error {
		return errors.New("something odd")
	})
	obs.Flush()

	assert.Error(t, err)
	require.Len(t, sink.all(), 1)
	assert.Equal(t, "generic", sink.all()[0].ErrorType)
}

func TestSinkFailureDoesNotPropagate(t *testing.T) {
	sink := &captureReporter{fail: true}
	obs := New("gateway", WithReporter(sink))

	err := obs.Run(context.Background(), "sess-1", "op", func(ctx context.Context) error {
		return errors.New("boom")
	})
	obs.Flush()

	assert.EqualError(t, err, "boom")
}

func TestNoReporterConfigured(t *testing.T) {
	obs := New("gateway")
	err := obs.Run(context.Background(), "sess-1", "op", func(ctx context.Context) error {
		return errors.New("boom")
	})
	obs.Flush()
	assert.EqualError(t, err, "boom")
}

func TestPanicReportedAndRethrown(t *testing.T) {
	sink := &captureReporter{}
	obs := New("flow", WithReporter(sink))

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = obs.Run(context.Background(), "sess-1", "op", func(ctx context.Context) error {
			panic("kaboom")
		})
	})
	obs.Flush()

	reports := sink.all()
	require.Len(t, reports, 1)
	assert.Equal(t, "panic", reports[0].ErrorType)
	assert.Equal(t, "kaboom", reports[0].Message)
	assert.NotEmpty(t, reports[0].Stack)
}

func TestNestedObserversReportOnce(t *testing.T) {
	sink := &captureReporter{}
	outer := New("iptu_flow", WithReporter(sink))
	inner := New("gateway", WithReporter(sink))

	err := outer.Run(context.Background(), "sess-1", "fetch_guides", func(ctx context.Context) error {
		innerErr := inner.Run(ctx, "sess-1", "list_guides", func(ctx context.Context) error {
			return fmt.Errorf("consulta falhou: %w", domain.ErrServiceUnavailable)
		})
		return fmt.Errorf("list guides: %w", innerErr)
	})
	outer.Flush()
	inner.Flush()

	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)

	// The inner observer reported; the report scope stops the outer one
	// from shipping the same failure again.
	reports := sink.all()
	require.Len(t, reports, 1)
	assert.Equal(t, "gateway", reports[0].Component)
	assert.Equal(t, "service_unavailable", reports[0].ErrorType)
}

func TestNestedObserversReportPanicOnce(t *testing.T) {
	sink := &captureReporter{}
	outer := New("iptu_flow", WithReporter(sink))
	inner := New("gateway", WithReporter(sink))

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = outer.Run(context.Background(), "sess-1", "generate_slips", func(ctx context.Context) error {
			return inner.Run(ctx, "sess-1", "generate_slip", func(ctx context.Context) error {
				panic("kaboom")
			})
		})
	})
	outer.Flush()
	inner.Flush()

	reports := sink.all()
	require.Len(t, reports, 1)
	assert.Equal(t, "gateway", reports[0].Component)
	assert.Equal(t, "panic", reports[0].ErrorType)
	assert.Equal(t, "kaboom", reports[0].Message)
}

func TestWebhookReporter(t *testing.T) {
	var got ports.ErrorReport
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	reporter := NewWebhookReporter(srv.URL, "secret")
	err := reporter.Report(context.Background(), ports.ErrorReport{
		ID:        "r-1",
		Component: "gateway",
		ErrorType: "generic",
		Message:   "boom",
	})
	require.NoError(t, err)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "r-1", got.ID)
}

func TestWebhookReporterBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewWebhookReporter(srv.URL, "").Report(context.Background(), ports.ErrorReport{ID: "r-1"})
	assert.Error(t, err)
}
