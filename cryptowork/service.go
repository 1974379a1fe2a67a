// Package cryptowork offloads hashing, ed25519 signing and timers to a
// worker thread and hands results back on the caller's thread.
package cryptowork

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Swind/go-threadobject/core"
)

// Service runs hashing, signing and timer requests on a worker thread and
// delivers every result by posting the callback to a reply runner. Each
// request counts as in flight on the worker thread from the moment it is
// posted until its callback has run or been dropped.
type Service struct {
	thread *core.WorkerThread
	reply  core.TaskRunner
	logger core.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for undeliverable results.
func WithLogger(l core.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New binds a Service to thread. Callbacks run on reply.
func New(thread *core.WorkerThread, reply core.TaskRunner, opts ...Option) *Service {
	s := &Service{
		thread: thread,
		reply:  reply,
		logger: core.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pending returns the number of requests not yet delivered.
func (s *Service) Pending() int64 { return s.thread.InFlight() }

// SHA2 hashes data with SHA-256, SHA-384 or SHA-512 depending on bits.
// An unsupported size is reported through cb.
func (s *Service) SHA2(bits int, data []byte, cb func(sum []byte, err error)) error {
	return submit(s, 0, func() ([]byte, error) {
		alg, err := SHA2Algorithm(bits)
		if err != nil {
			return nil, err
		}
		return Sum(alg, data)
	}, cb)
}

// Digest hashes data with alg.
func (s *Service) Digest(alg Algorithm, data []byte, cb func(sum []byte, err error)) error {
	return submit(s, 0, func() ([]byte, error) { return Sum(alg, data) }, cb)
}

// Sign signs msg with key, see SignSync.
func (s *Service) Sign(msg, key []byte, cb func(sig []byte, err error)) error {
	return submit(s, 0, func() ([]byte, error) { return SignSync(msg, key) }, cb)
}

// Verify checks sig against msg and pub, see VerifySync.
func (s *Service) Verify(msg, sig, pub []byte, cb func(ok bool, err error)) error {
	return submit(s, 0, func() (bool, error) { return VerifySync(msg, sig, pub) }, cb)
}

// DelayBy calls cb with a nil error no earlier than d from now.
func (s *Service) DelayBy(d time.Duration, cb func(err error)) error {
	if cb == nil {
		return ErrNilCallback
	}
	if d < 0 {
		return core.ErrNegativeDelay
	}
	return submit(s, d, func() (struct{}, error) { return struct{}{}, nil },
		func(_ struct{}, err error) { cb(err) })
}

func (s *Service) DelayByMil(n int64, cb func(err error)) error {
	return s.DelayBy(core.Milliseconds(n), cb)
}

func (s *Service) DelayBySec(n int64, cb func(err error)) error {
	return s.DelayBy(core.Seconds(n), cb)
}

func (s *Service) DelayByMin(n int64, cb func(err error)) error {
	return s.DelayBy(core.Minutes(n), cb)
}

func (s *Service) DelayByHour(n int64, cb func(err error)) error {
	return s.DelayBy(core.Hours(n), cb)
}

type cleanupPoster interface {
	PostTaskWithCleanup(task core.Task, cleanup func()) error
}

// submit runs work on the worker thread after delay and posts cb to the
// reply runner. A panic in work is delivered as a *core.PanicError.
func submit[T any](s *Service, delay time.Duration, work func() (T, error), cb func(T, error)) error {
	if cb == nil {
		return ErrNilCallback
	}

	s.thread.IncInFlight()
	release := sync.OnceFunc(func() { s.thread.DecInFlight() })

	var handedOff bool
	task := func(context.Context) {
		v, err := guard(work)
		handedOff = true
		s.deliver(func() { cb(v, err) }, release)
	}
	// runs on the worker thread, after task or when the thread drops it
	cleanup := func() {
		if !handedOff {
			release()
		}
	}

	var err error
	if delay > 0 {
		err = s.thread.PostDelayedTaskWithCleanup(task, delay, cleanup)
	} else {
		err = s.thread.PostTaskWithCleanup(task, cleanup)
	}
	if err != nil {
		release()
		return err
	}
	return nil
}

func guard[T any](work func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return work()
}

func (s *Service) deliver(fn func(), release func()) {
	var err error
	if cp, ok := s.reply.(cleanupPoster); ok {
		err = cp.PostTaskWithCleanup(func(context.Context) { fn() }, release)
	} else {
		err = s.reply.PostTask(func(context.Context) {
			defer release()
			fn()
		})
	}
	if err != nil {
		release()
		s.logger.Warn("result not delivered", core.F("thread", s.thread.Name()), core.F("error", err))
	}
}
