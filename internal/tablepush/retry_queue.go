package tablepush

import (
	"time"

	"holdem-tables/internal/turn"
)

// retryQueue re-dispatches a job after a delay on the manager's clock.
type retryQueue struct {
	clock turn.Clock
	out   chan<- pushJob
	done  <-chan struct{}
}

func newRetryQueue(clock turn.Clock, out chan<- pushJob, done <-chan struct{}) *retryQueue {
	return &retryQueue{clock: clock, out: out, done: done}
}

func (q *retryQueue) Enqueue(job pushJob, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	q.clock.AfterFunc(delay, func() {
		select {
		case <-q.done:
		case q.out <- job:
			metricPushQueueLen.Set(int64(len(q.out)))
		default:
			metricPushRetryDroppedTotal.Add(1)
		}
	})
}
