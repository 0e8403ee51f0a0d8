package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/koustreak/tablewipe/internal/database"
	"github.com/koustreak/tablewipe/internal/truncate"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCollector(t *testing.T) *Collector {
	t.Helper()
	c, err := NewCollector()
	require.NoError(t, err)
	return c
}

func TestCollector_RecordsDeletionsAndRuns(t *testing.T) {
	c := newCollector(t)

	c.TableDeleted(truncate.Deletion{Rows: 7, Duration: 20 * time.Millisecond})
	c.TableDeleted(truncate.Deletion{Rows: 3, Duration: 5 * time.Millisecond})
	c.RunFinished(&truncate.Report{Duration: time.Second}, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.tables))
	assert.Equal(t, 10.0, testutil.ToFloat64(c.rowsDeleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues("success")))
	assert.Equal(t, uint64(2), sampleCount(t, c, "tablewipe_truncate_delete_duration_seconds"))
	assert.Equal(t, uint64(1), sampleCount(t, c, "tablewipe_truncate_run_duration_seconds"))
}

func sampleCount(t *testing.T, c *Collector, name string) uint64 {
	t.Helper()
	families, err := c.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			require.Len(t, mf.GetMetric(), 1)
			return mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestCollector_RunStatus(t *testing.T) {
	orders := database.NewTable("", "", "orders")
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{&truncate.IntrospectionError{Cause: errors.New("x")}, "introspection_error"},
		{&truncate.DependencyQueryError{Table: orders, Cause: errors.New("x")}, "dependency_error"},
		{&truncate.DeleteError{Table: orders, Cause: errors.New("x")}, "delete_error"},
		{&truncate.CycleError{Path: []database.Table{orders, orders}}, "cycle_error"},
		{errors.New("x"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			c := newCollector(t)
			c.RunFinished(&truncate.Report{}, tt.err)
			assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues(tt.want)))
		})
	}
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := newCollector(t)
	c.TableDeleted(truncate.Deletion{Rows: 4})

	path := filepath.Join(t.TempDir(), "tablewipe.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tablewipe_truncate_rows_deleted_total 4")
}

func TestCollector_HandlerAndInstrumentation(t *testing.T) {
	c := newCollector(t)
	teapot := c.InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	teapot.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/truncate", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requestTotal.WithLabelValues("POST", "/v1/truncate", "418")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "tablewipe_http_requests_total"))
}
