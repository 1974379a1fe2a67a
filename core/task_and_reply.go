package core

import (
	"context"
	"time"
)

// =============================================================================
// PostTaskAndReply Internal Helpers
// =============================================================================

// postTaskAndReplyInternal is the core implementation for PostTaskAndReply pattern.
// It wraps the task and reply to ensure proper execution order:
// 1. Execute task on targetRunner
// 2. If task completes successfully (no panic), post reply to replyRunner
//
// A panic in task propagates to targetRunner's panic handling and the reply
// is skipped.
func postTaskAndReplyInternal(
	targetRunner TaskRunner,
	task Task,
	reply Task,
	replyRunner TaskRunner,
) error {
	if task == nil {
		return ErrNilTask
	}
	if replyRunner == nil || reply == nil {
		// No reply runner specified, just execute the task
		return targetRunner.PostTask(task)
	}

	return targetRunner.PostTask(func(ctx context.Context) {
		task(ctx)
		// only reached when task returned normally
		postReply(ctx, reply, replyRunner)
	})
}

// postReply posts reply to replyRunner from inside a running task. A refused
// post is logged on the loop running the task.
func postReply(ctx context.Context, reply Task, replyRunner TaskRunner) {
	if err := replyRunner.PostTask(reply); err != nil {
		if loop := CurrentMessageLoop(ctx); loop != nil {
			loop.logger.Warn("reply not delivered", F("loop", loop.name), F("error", err))
		}
	}
}

// PostTaskAndReply runs task on targetRunner and then reply on replyRunner.
func PostTaskAndReply(targetRunner TaskRunner, task Task, reply Task, replyRunner TaskRunner) error {
	return postTaskAndReplyInternal(targetRunner, task, reply, replyRunner)
}

// =============================================================================
// Generic PostTaskAndReply with Result
// =============================================================================

// PostTaskAndReplyWithResult executes a task that returns a result of type T and an error,
// then passes that result to a reply callback on the replyRunner.
//
// The captured result is written by the task before the reply is posted, and
// posting goes through the reply loop's mutex, so the reply always sees it.
//
// Example:
//
//	core.PostTaskAndReplyWithResult(
//	    cryptoThread,
//	    func(ctx context.Context) ([]byte, error) {
//	        return digest(data), nil
//	    },
//	    func(ctx context.Context, sum []byte, err error) {
//	        fmt.Printf("%x\n", sum)
//	    },
//	    mainLoop,
//	)
func PostTaskAndReplyWithResult[T any](
	targetRunner TaskRunner,
	task TaskWithResult[T],
	reply ReplyWithResult[T],
	replyRunner TaskRunner,
) error {
	if task == nil {
		return ErrNilTask
	}

	var result T
	var err error

	wrappedTask := func(ctx context.Context) {
		result, err = task(ctx)
	}

	var wrappedReply Task
	if reply != nil {
		wrappedReply = func(ctx context.Context) {
			reply(ctx, result, err)
		}
	}

	return postTaskAndReplyInternal(targetRunner, wrappedTask, wrappedReply, replyRunner)
}

// =============================================================================
// Delayed Task and Reply
// =============================================================================

// PostDelayedTaskAndReplyWithResult is similar to PostTaskAndReplyWithResult,
// but delays the execution of the task.
//
// The reply is NOT delayed - it is posted as soon as the task completes.
func PostDelayedTaskAndReplyWithResult[T any](
	targetRunner TaskRunner,
	task TaskWithResult[T],
	delay time.Duration,
	reply ReplyWithResult[T],
	replyRunner TaskRunner,
) error {
	if task == nil {
		return ErrNilTask
	}

	var result T
	var err error

	return targetRunner.PostDelayedTask(func(ctx context.Context) {
		result, err = task(ctx)
		if reply == nil || replyRunner == nil {
			return
		}
		postReply(ctx, func(ctx context.Context) {
			reply(ctx, result, err)
		}, replyRunner)
	}, delay)
}
