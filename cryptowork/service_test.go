package cryptowork

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/Swind/go-threadobject/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startThread(t *testing.T, name string) *core.WorkerThread {
	t.Helper()
	th := core.NewWorkerThread(name, core.WithThreadLogger(core.NewNoOpLogger()))
	require.True(t, th.Start())
	t.Cleanup(th.Stop)
	return th
}

func newTestService(t *testing.T) (*Service, *core.WorkerThread, *core.WorkerThread) {
	t.Helper()
	worker := startThread(t, "crypto")
	origin := startThread(t, "origin")
	return New(worker, origin), worker, origin
}

type result[T any] struct {
	v   T
	err error
}

func await[T any](t *testing.T, ch <-chan result[T]) result[T] {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("callback never ran")
		return result[T]{}
	}
}

func collect[T any](ch chan<- result[T]) func(T, error) {
	return func(v T, err error) {
		ch <- result[T]{v: v, err: err}
	}
}

func TestService_SHA2(t *testing.T) {
	svc, worker, _ := newTestService(t)

	ch := make(chan result[[]byte], 2)
	require.NoError(t, svc.SHA2(256, []byte("abc"), collect(ch)))
	require.NoError(t, svc.SHA2(1024, []byte("abc"), collect(ch)))

	first := await(t, ch)
	require.NoError(t, first.err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", hex.EncodeToString(first.v))

	second := await(t, ch)
	assert.ErrorIs(t, second.err, ErrUnsupportedHash)

	assert.Eventually(t, func() bool { return worker.InFlight() == 0 }, time.Second, 5*time.Millisecond)
}

func TestService_CallbackQueuedOnReplyThread(t *testing.T) {
	svc, _, origin := newTestService(t)

	release := make(chan struct{})
	require.NoError(t, origin.PostTask(func(context.Context) { <-release }))

	ch := make(chan result[[]byte], 1)
	require.NoError(t, svc.Digest(SHA3_256, []byte("abc"), collect(ch)))

	select {
	case <-ch:
		t.Fatal("callback ran while the reply thread was busy")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	r := await(t, ch)
	require.NoError(t, r.err)
	assert.Equal(t, "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532", hex.EncodeToString(r.v))
}

func TestService_SignVerifyRoundTrip(t *testing.T) {
	svc, worker, _ := newTestService(t)

	seed, err := DeriveSeed([]byte("app secret"), nil)
	require.NoError(t, err)
	kp, err := MakeKeypair(seed)
	require.NoError(t, err)
	msg := []byte("payload")

	sigs := make(chan result[[]byte], 1)
	require.NoError(t, svc.Sign(msg, kp.PrivateKey, collect(sigs)))
	sig := await(t, sigs)
	require.NoError(t, sig.err)

	oks := make(chan result[bool], 2)
	require.NoError(t, svc.Verify(msg, sig.v, kp.PublicKey, collect(oks)))
	require.NoError(t, svc.Verify([]byte("other"), sig.v, kp.PublicKey, collect(oks)))
	assert.True(t, await(t, oks).v)
	assert.False(t, await(t, oks).v)

	assert.Eventually(t, func() bool { return worker.InFlight() == 0 }, time.Second, 5*time.Millisecond)
}

func TestService_DelayBy(t *testing.T) {
	svc, _, _ := newTestService(t)

	start := time.Now()
	done := make(chan error, 1)
	require.NoError(t, svc.DelayByMil(100, func(err error) { done <- err }))
	assert.EqualValues(t, 1, svc.Pending())

	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	case <-time.After(5 * time.Second):
		t.Fatal("delay callback never ran")
	}

	assert.ErrorIs(t, svc.DelayBy(-time.Second, func(error) {}), core.ErrNegativeDelay)
	assert.ErrorIs(t, svc.DelayBySec(1, nil), ErrNilCallback)
	assert.ErrorIs(t, svc.SHA2(256, nil, nil), ErrNilCallback)
}

func TestService_InFlightReleasedWhenDropped(t *testing.T) {
	svc, worker, _ := newTestService(t)

	called := make(chan struct{}, 1)
	require.NoError(t, svc.DelayByHour(1, func(error) { called <- struct{}{} }))
	require.NoError(t, svc.DelayByMin(1, func(error) { called <- struct{}{} }))
	assert.EqualValues(t, 2, worker.InFlight())

	worker.Stop()

	assert.EqualValues(t, 0, worker.InFlight())
	assert.Empty(t, called)
}

func TestService_RejectedWhenThreadStopped(t *testing.T) {
	worker := core.NewWorkerThread("stopped", core.WithThreadLogger(core.NewNoOpLogger()))
	origin := startThread(t, "origin")
	svc := New(worker, origin)

	err := svc.SHA2(256, []byte("x"), func([]byte, error) {})
	assert.ErrorIs(t, err, core.ErrNotRunning)
	assert.EqualValues(t, 0, worker.InFlight())
}

func TestService_ReplyRunnerStopped(t *testing.T) {
	worker := startThread(t, "crypto")
	origin := core.NewWorkerThread("gone", core.WithThreadLogger(core.NewNoOpLogger()))
	svc := New(worker, origin)

	called := false
	require.NoError(t, svc.SHA2(512, []byte("x"), func([]byte, error) { called = true }))
	require.NoError(t, worker.WaitIdle(context.Background()))

	assert.False(t, called)
	assert.EqualValues(t, 0, worker.InFlight())
}

func TestService_PanicDeliveredAsError(t *testing.T) {
	svc, worker, _ := newTestService(t)

	ch := make(chan result[int], 1)
	require.NoError(t, submit(svc, 0, func() (int, error) { panic("bad digest") }, collect(ch)))

	r := await(t, ch)
	var pe *core.PanicError
	require.ErrorAs(t, r.err, &pe)
	assert.Equal(t, "bad digest", pe.Value)
	assert.Eventually(t, func() bool { return worker.InFlight() == 0 }, time.Second, 5*time.Millisecond)
}
