package tablepush

import (
	"context"
	"errors"
	"time"

	"holdem-tables/internal/tablepush/platforms"

	"github.com/rs/zerolog/log"
)

var errCircuitOpen = errors.New("circuit_open")

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case job := <-m.dispatchCh:
			metricPushQueueLen.Set(int64(len(m.dispatchCh)))
			m.processJob(ctx, job)
		}
	}
}

func (m *Manager) processJob(ctx context.Context, job pushJob) {
	adapter := m.adapters[job.Target.Platform]
	if adapter == nil {
		metricPushDroppedTotal.Add(1)
		return
	}
	if err := m.beforeSend(job.key(), m.clock.Now()); err != nil {
		metricPushCircuitOpenTotal.Add(1)
		m.retryOrDrop(job, err)
		return
	}
	if err := adapter.Send(ctx, job.Target.Endpoint, job.Target.Secret, toPlatformMessage(job.Formatted)); err != nil {
		metricPushFailedTotal.Add(1)
		m.afterFailure(job.key(), m.clock.Now())
		m.retryOrDrop(job, err)
		return
	}
	metricPushSentTotal.Add(1)
	m.afterSuccess(job.key())
}

// Extra attempts on top of RetryMax for hand results.
const handResultExtraRetries = 2

// retryOrDrop backs off exponentially from RetryBase until the event's
// retry limit. Action and timeout pushes are dropped once their hand has a
// result.
func (m *Manager) retryOrDrop(job pushJob, err error) bool {
	if m.handOver(job.Event) {
		metricPushRetryDroppedTotal.Add(1)
		log.Debug().Err(err).Int("table_id", job.Event.TableID).Int("hand_number", job.Event.HandNumber).Str("event", job.Event.Type).Msg("table_push_stale_dropped")
		return false
	}
	if job.Attempt >= m.retryLimit(job.Event.Type) {
		metricPushRetryDroppedTotal.Add(1)
		log.Warn().Err(err).Str("platform", job.Target.Platform).Int("table_id", job.Event.TableID).Str("event", job.Event.Type).Int("attempts", job.Attempt+1).Msg("table_push_dropped")
		return false
	}
	job.Attempt++
	metricPushRetryTotal.Add(1)
	delay := m.cfg.RetryBase * time.Duration(1<<(job.Attempt-1))
	m.retryQ.Enqueue(job, delay)
	return true
}

func (m *Manager) retryLimit(eventType string) int {
	if eventType == EventHandOver {
		return m.cfg.RetryMax + handResultExtraRetries
	}
	return m.cfg.RetryMax
}

func (m *Manager) handOver(ev TableEvent) bool {
	if ev.Type != EventAction && ev.Type != EventTimeout {
		return false
	}
	if ev.HandNumber == 0 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastResult[ev.TableID] >= ev.HandNumber
}

func (m *Manager) beforeSend(key string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.breakerByKey[key]
	if !state.openUntil.IsZero() && now.Before(state.openUntil) {
		return errCircuitOpen
	}
	return nil
}

func (m *Manager) afterFailure(key string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.breakerByKey[key]
	state.consecutiveFailures++
	if state.consecutiveFailures >= m.cfg.FailureThreshold {
		state.openUntil = now.Add(m.cfg.CircuitOpenDuration)
		state.consecutiveFailures = 0
		log.Warn().Str("target", key).Dur("open_for", m.cfg.CircuitOpenDuration).Msg("table_push_circuit_open")
	}
	m.breakerByKey[key] = state
}

func (m *Manager) afterSuccess(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.breakerByKey, key)
}

func toPlatformMessage(msg FormattedMessage) platforms.Message {
	fields := make([]platforms.Field, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		fields = append(fields, platforms.Field{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return platforms.Message{
		Title:       msg.Title,
		Content:     msg.Content,
		Description: msg.Description,
		Color:       msg.Color,
		Timestamp:   msg.Timestamp,
		Footer:      msg.Footer,
		Fields:      fields,
	}
}
