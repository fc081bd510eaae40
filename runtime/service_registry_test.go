package runtime

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	started bool
	stopped bool
	status  error
}

func (m *mockService) Start()        { m.started = true }
func (m *mockService) Stop() error   { m.stopped = true; return nil }
func (m *mockService) Status() error { return m.status }

type secondMockService struct{ mockService }

func TestRegisterService_Twice(t *testing.T) {
	registry := NewServiceRegistry()
	require.NoError(t, registry.RegisterService(&mockService{}))
	require.Error(t, registry.RegisterService(&mockService{}))
}

func TestRegisterService_Different(t *testing.T) {
	registry := NewServiceRegistry()
	require.NoError(t, registry.RegisterService(&mockService{}))
	require.NoError(t, registry.RegisterService(&secondMockService{}))

	var fetched *mockService
	require.NoError(t, registry.FetchService(&fetched))
	require.NotNil(t, fetched)
}

func TestFetchService_NonPointer(t *testing.T) {
	registry := NewServiceRegistry()
	require.Error(t, registry.FetchService(mockService{}))
}

func TestStatuses(t *testing.T) {
	registry := NewServiceRegistry()
	healthy := &mockService{}
	sick := &secondMockService{}
	sick.status = errors.New("degraded")
	require.NoError(t, registry.RegisterService(healthy))
	require.NoError(t, registry.RegisterService(sick))

	statuses := registry.Statuses()
	require.Len(t, statuses, 2)
	errs := 0
	for _, err := range statuses {
		if err != nil {
			errs++
		}
	}
	require.Equal(t, 1, errs)
}
