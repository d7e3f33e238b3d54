package engine

import (
	"context"

	"github.com/okabe/vidql/internal/domain"
	"github.com/okabe/vidql/internal/logging"
	"github.com/okabe/vidql/internal/metrics"
)

// StreamQuery runs one request cycle, emitting progress updates on the
// returned channel followed by exactly one terminal update, then
// closing it. If the caller's context is cancelled, emission stops but
// dispatch steps already completed keep their session context merges.
func (e *Engine) StreamQuery(ctx context.Context, sessionID, query, videoRef string) <-chan domain.StreamUpdate {
	updates := make(chan domain.StreamUpdate, 8)
	metrics.Global().RecordStreamQuery()

	logging.SafeGo("engine", func() {
		defer close(updates)

		emit := func(u domain.StreamUpdate) {
			select {
			case <-ctx.Done():
			case updates <- u:
				metrics.Global().RecordStreamMessage()
			}
		}

		result, err := e.process(ctx, sessionID, query, videoRef, emit)
		if err != nil {
			e.log.WithSession(result.SessionID).Error("stream_failed", nil, err)
			emit(domain.StreamUpdate{
				Stage:      domain.StageCompleted,
				Text:       errorResponse,
				Confidence: 1,
				Final:      true,
			})
			return
		}

		stage := domain.StageCompleted
		if result.Clarification {
			stage = domain.StageClarificationRequested
		}
		emit(domain.StreamUpdate{
			Stage:      stage,
			Text:       result.Response,
			Confidence: 1,
			Final:      true,
			Actions:    result.Actions,
			Artifacts:  result.Artifacts,
		})
	})

	return updates
}
