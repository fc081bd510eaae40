package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/beaconwatch/indexer/runtime"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type healthyService struct{}

func (healthyService) Start()        {}
func (healthyService) Stop() error   { return nil }
func (healthyService) Status() error { return nil }

type failingService struct{}

func (failingService) Start()        {}
func (failingService) Stop() error   { return nil }
func (failingService) Status() error { return errors.New("not syncing") }

func TestHealthz_AllOK(t *testing.T) {
	registry := runtime.NewServiceRegistry()
	require.NoError(t, registry.RegisterService(healthyService{}))
	s := NewService(":0", registry)

	rec := httptest.NewRecorder()
	s.healthzHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "OK")
}

func TestHealthz_FailingService(t *testing.T) {
	registry := runtime.NewServiceRegistry()
	require.NoError(t, registry.RegisterService(failingService{}))
	s := NewService(":0", registry)

	rec := httptest.NewRecorder()
	s.healthzHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "not syncing")
}

func TestGoroutinez(t *testing.T) {
	s := NewService(":0", runtime.NewServiceRegistry())
	rec := httptest.NewRecorder()
	s.goroutinezHandler(rec, httptest.NewRequest(http.MethodGet, "/goroutinez", nil))
	assert.Contains(t, rec.Body.String(), "goroutine")
}
