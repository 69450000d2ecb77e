package roster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/consult-assist-server/internal/domain"
)

// MockDirectory is a mock implementation of the PatientDirectory interface
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) GetPatient(ctx context.Context, id string) (*domain.PatientProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PatientProfile), args.Error(1)
}

func (m *MockDirectory) ListPatients(ctx context.Context) ([]*domain.PatientProfile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PatientProfile), args.Error(1)
}

func newCachedDirectory(t *testing.T, backend domain.PatientDirectory, ttl time.Duration) *CachedDirectory {
	t.Helper()
	logger, _ := test.NewNullLogger()
	d, err := NewCachedDirectory(backend, CachedDirectoryConfig{Size: 16, TTL: ttl}, logger)
	require.NoError(t, err)
	return d
}

func TestCachedDirectory_GetPatient(t *testing.T) {
	ctx := context.Background()

	t.Run("Second_Call_Hits_Cache", func(t *testing.T) {
		backend := new(MockDirectory)
		backend.On("GetPatient", ctx, "p1").Return(testPatient("p1"), nil)
		d := newCachedDirectory(t, backend, time.Minute)

		first, err := d.GetPatient(ctx, "p1")
		require.NoError(t, err)
		second, err := d.GetPatient(ctx, "p1")
		require.NoError(t, err)

		assert.Same(t, first, second)
		backend.AssertNumberOfCalls(t, "GetPatient", 1)
		assert.Equal(t, int64(1), d.Stats().Hits)
		assert.Equal(t, int64(1), d.Stats().Misses)
	})

	t.Run("Expired_Entry_Refetched", func(t *testing.T) {
		backend := new(MockDirectory)
		backend.On("GetPatient", ctx, "p1").Return(testPatient("p1"), nil)
		d := newCachedDirectory(t, backend, time.Nanosecond)

		_, err := d.GetPatient(ctx, "p1")
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
		_, err = d.GetPatient(ctx, "p1")
		require.NoError(t, err)

		backend.AssertNumberOfCalls(t, "GetPatient", 2)
	})

	t.Run("Stale_Served_When_Backend_Fails", func(t *testing.T) {
		backend := new(MockDirectory)
		backend.On("GetPatient", ctx, "p1").Return(testPatient("p1"), nil).Once()
		backend.On("GetPatient", ctx, "p1").Return(nil, errors.New("connection refused"))
		d := newCachedDirectory(t, backend, time.Nanosecond)

		_, err := d.GetPatient(ctx, "p1")
		require.NoError(t, err)
		time.Sleep(time.Millisecond)

		p, err := d.GetPatient(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "p1", p.ID)
		assert.Equal(t, int64(1), d.Stats().StaleServed)
	})

	t.Run("Not_Found_Passes_Through", func(t *testing.T) {
		backend := new(MockDirectory)
		backend.On("GetPatient", ctx, "zz").Return(nil, domain.ErrPatientNotFound)
		d := newCachedDirectory(t, backend, time.Minute)

		for i := 0; i < 5; i++ {
			_, err := d.GetPatient(ctx, "zz")
			assert.ErrorIs(t, err, domain.ErrPatientNotFound)
		}
		assert.Equal(t, gobreaker.StateClosed, d.BreakerState())
	})

	t.Run("Breaker_Opens_On_Failures", func(t *testing.T) {
		backend := new(MockDirectory)
		backend.On("GetPatient", ctx, mock.Anything).Return(nil, errors.New("timeout"))
		d := newCachedDirectory(t, backend, time.Minute)

		for i := 0; i < 3; i++ {
			_, err := d.GetPatient(ctx, "p1")
			assert.Error(t, err)
		}
		assert.Equal(t, gobreaker.StateOpen, d.BreakerState())

		_, err := d.GetPatient(ctx, "p1")
		assert.ErrorIs(t, err, gobreaker.ErrOpenState)
		backend.AssertNumberOfCalls(t, "GetPatient", 3)
	})
}

func TestCachedDirectory_ListPatients(t *testing.T) {
	ctx := context.Background()
	backend := new(MockDirectory)
	backend.On("ListPatients", ctx).Return(SamplePatients(), nil)
	d := newCachedDirectory(t, backend, time.Minute)

	all, err := d.ListPatients(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	p, err := d.GetPatient(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "Amit Patel", p.Name)
	backend.AssertNotCalled(t, "GetPatient", mock.Anything, mock.Anything)

	d.Invalidate("3")
	backend.On("GetPatient", ctx, "3").Return(p, nil)
	_, err = d.GetPatient(ctx, "3")
	require.NoError(t, err)
	backend.AssertNumberOfCalls(t, "GetPatient", 1)
}

func TestNewCachedDirectory_RequiresBackend(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := NewCachedDirectory(nil, CachedDirectoryConfig{}, logger)
	assert.Error(t, err)
}

func TestCachedDirectory_ListByCondition(t *testing.T) {
	ctx := context.Background()
	backend := new(MockDirectory)
	asthmatic := testPatient("p2")
	asthmatic.Conditions = []string{"Asthma"}
	backend.On("ListPatients", ctx).Return([]*domain.PatientProfile{testPatient("p1"), asthmatic}, nil)
	d := newCachedDirectory(t, backend, time.Minute)

	matched, err := d.ListByCondition(ctx, domain.CONDITION_HYPERTENSION)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "p1", matched[0].ID)
	backend.AssertExpectations(t)
}
