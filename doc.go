// Package threadobject provides per-thread task scheduling for Go: message
// loops that run posted closures in order on one goroutine, worker threads
// that pin such a loop to a dedicated OS thread, and an App context that
// owns threads and singletons and shuts them down in reverse order.
//
// Work is posted to a thread rather than to a goroutine. Everything posted to
// one WorkerThread runs sequentially on the same OS thread, so state owned by
// that thread needs no locks.
//
// # Quick Start
//
// Create an App at startup and let it own your threads:
//
//	app := threadobject.NewApp(config.MustLoad())
//	defer app.Shutdown()
//
//	io, err := app.NewThread("io")
//	if err != nil {
//		log.Fatal(err)
//	}
//	io.PostTask(func(ctx context.Context) {
//		// runs on the io thread
//	})
//	io.PostDelayedTask(func(ctx context.Context) {
//		// runs on the io thread, no earlier than one second from now
//	}, time.Second)
//
// # Key Concepts
//
// MessageLoop: a queue of tasks plus a pump. Immediate tasks run in FIFO
// order; delayed tasks run when due, ordered by due time and then by posting
// order. A loop belongs to the goroutine that created it.
//
// WorkerThread: starts a goroutine locked to its OS thread, runs a
// MessageLoop on it, and joins it on Stop. Tasks still queued at Stop are
// dropped without running.
//
// PostTaskAndReply: runs a task on one thread and posts its reply, with the
// task's result, back to another.
//
// Weak references: BindWeak turns a task into a no-op once its owner is
// invalidated, so callbacks into destroyed objects are skipped.
//
// For more details, see https://github.com/Swind/go-threadobject
package threadobject
