// internal/poller/poller_test.go
package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/caparoc/internal/config"
	"github.com/tamzrod/caparoc/internal/device"
	"github.com/tamzrod/caparoc/internal/fault"
	"github.com/tamzrod/caparoc/internal/register"
	"github.com/tamzrod/caparoc/internal/sim"
)

type fakeSource struct {
	fail  bool
	calls int
}

func (f *fakeSource) Snapshot() (*device.Snapshot, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("fail snapshot")
	}
	return &device.Snapshot{Errors: map[string]string{}}, nil
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New(Config{Interval: time.Second}, &fakeSource{})
	assert.Error(t, err)

	_, err = New(Config{Device: "d1"}, &fakeSource{})
	assert.Error(t, err)

	_, err = New(Config{Device: "d1", Interval: time.Second}, nil)
	assert.Error(t, err)
}

func TestPollOnce_Success(t *testing.T) {
	p, err := New(Config{Device: "d1", Interval: time.Second}, &fakeSource{})
	require.NoError(t, err)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	res := p.PollOnce()
	require.NoError(t, res.Err)
	assert.NotNil(t, res.Snapshot)
	assert.Equal(t, "d1", res.Device)
	assert.Equal(t, fixed, res.At)
}

func TestPollOnce_Failure(t *testing.T) {
	p, err := New(Config{Device: "d1", Interval: time.Second}, &fakeSource{fail: true})
	require.NoError(t, err)

	res := p.PollOnce()
	assert.Error(t, res.Err)
	assert.Nil(t, res.Snapshot)
}

func TestPollOnce_SimulatedDevice(t *testing.T) {
	dev := sim.New(sim.DefaultConfig())
	p, err := New(Config{Device: "sim", Interval: time.Second}, device.New(dev))
	require.NoError(t, err)

	res := p.PollOnce()
	require.NoError(t, res.Err)
	assert.Len(t, res.Snapshot.Modules, 2)

	dev.FailReads(register.ConnectedModules, 1)
	res = p.PollOnce()
	assert.True(t, fault.IsTransport(res.Err))
}

func TestRun_EmitsImmediatelyAndStopsOnCancel(t *testing.T) {
	src := &fakeSource{}
	p, err := New(Config{Device: "d1", Interval: 10 * time.Millisecond}, src)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan PollResult)
	done := make(chan struct{})
	go func() {
		p.Run(ctx, out)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		select {
		case res := <-out:
			assert.NoError(t, res.Err)
		case <-time.After(time.Second):
			t.Fatal("no poll result")
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestBuild_RequiresReachableDevice(t *testing.T) {
	cfg := &config.Config{}
	cfg.Device.Endpoint = "127.0.0.1:1"
	cfg.Device.TimeoutMs = 100
	config.Normalize(cfg)

	_, _, err := Build(cfg, nil)
	assert.Error(t, err)
}
