package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobTicks(t *testing.T) {
	var runs int32
	s := New([]Job{{
		ID:       "tick",
		Interval: 20 * time.Millisecond,
		Run: func(context.Context, *logrus.Entry) error {
			atomic.AddInt32(&runs, 1)
			return nil
		},
	}})
	s.Start()
	time.Sleep(110 * time.Millisecond)
	require.NoError(t, s.Stop())
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(3))
}

func TestRunImmediately(t *testing.T) {
	var runs int32
	s := New([]Job{{
		ID:             "immediate",
		Interval:       time.Hour,
		RunImmediately: true,
		Run: func(context.Context, *logrus.Entry) error {
			atomic.AddInt32(&runs, 1)
			return nil
		},
	}})
	s.Start()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Stop())
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestPreventOverrunDropsTicks(t *testing.T) {
	var started int32
	release := make(chan struct{})
	s := New([]Job{{
		ID:             "slow",
		Interval:       15 * time.Millisecond,
		PreventOverrun: true,
		Run: func(context.Context, *logrus.Entry) error {
			atomic.AddInt32(&started, 1)
			<-release
			return nil
		},
	}})
	s.Start()
	time.Sleep(120 * time.Millisecond)
	// Every tick after the first must have been dropped.
	assert.Equal(t, int32(1), atomic.LoadInt32(&started))
	close(release)
	require.NoError(t, s.Stop())
}

func TestFailuresDoNotStopTicking(t *testing.T) {
	var runs int32
	logrus.SetLevel(logrus.PanicLevel)
	s := New([]Job{{
		ID:       "failing",
		Interval: 20 * time.Millisecond,
		Run: func(context.Context, *logrus.Entry) error {
			atomic.AddInt32(&runs, 1)
			return errors.New("boom")
		},
	}})
	s.Start()
	time.Sleep(90 * time.Millisecond)
	require.NoError(t, s.Stop())
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(2))
}

func TestStopWaitsForInFlightRun(t *testing.T) {
	var finished int32
	s := New([]Job{{
		ID:             "inflight",
		Interval:       time.Hour,
		RunImmediately: false,
		PreventOverrun: true,
		Run: func(context.Context, *logrus.Entry) error {
			time.Sleep(40 * time.Millisecond)
			atomic.StoreInt32(&finished, 1)
			return nil
		},
	}})
	// Drive one run through the ticker path.
	s.jobs[0].Interval = 10 * time.Millisecond
	s.Start()
	time.Sleep(25 * time.Millisecond)
	require.NoError(t, s.Stop())
	assert.Equal(t, int32(1), atomic.LoadInt32(&finished))
}
