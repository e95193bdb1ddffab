package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edulab/studytrace-backend/internal/config"
	"github.com/edulab/studytrace-backend/internal/model"
	"github.com/edulab/studytrace-backend/internal/repository"
	"github.com/edulab/studytrace-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ingestBatchSize     = 100
	ingestFlushInterval = 2 * time.Second
)

// EventIngestWorker consumes interaction_events_queue and appends events to
// interaction_logs in batches.
type EventIngestWorker struct {
	logRepo *repository.InteractionLogRepository
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewEventIngestWorker creates a new EventIngestWorker.
func NewEventIngestWorker(logRepo *repository.InteractionLogRepository, rdb *redis.Client, log zerolog.Logger) *EventIngestWorker {
	return &EventIngestWorker{
		logRepo: logRepo,
		rdb:     rdb,
		log:     log.With().Str("component", "event_ingest_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *EventIngestWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	batch := make([]*model.InteractionLog, 0, ingestBatchSize)
	raw := make([]string, 0, ingestBatchSize)
	lastFlush := time.Now()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.flush(context.Background(), batch, raw)
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.InteractionEventsQueue).Result()
		if err == nil && len(result) >= 2 {
			if event := decodeEvent(result[1], w.log); event != nil {
				batch = append(batch, event)
				raw = append(raw, result[1])
			}
		} else if err != nil && err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
			time.Sleep(time.Second)
		}

		if len(batch) >= ingestBatchSize || (len(batch) > 0 && time.Since(lastFlush) >= ingestFlushInterval) {
			w.flush(ctx, batch, raw)
			batch = batch[:0]
			raw = raw[:0]
			lastFlush = time.Now()
		}
	}
}

// decodeEvent turns one queue entry into an InteractionLog row. Malformed
// entries are dropped with a log line rather than poisoning the batch.
func decodeEvent(payload string, log zerolog.Logger) *model.InteractionLog {
	var event service.QueuedEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		log.Error().Err(err).Msg("Unmarshal error, dropping event")
		return nil
	}
	return &model.InteractionLog{
		ParticipantID: event.ParticipantID,
		SessionID:     event.SessionID,
		EventType:     event.EventType,
		Payload:       event.Payload,
		OccurredAt:    event.OccurredAt,
	}
}

// flush writes the batch with one UNNEST insert, falling back to row-by-row
// inserts so one bad event cannot sink its whole batch. Events that still
// fail go back on the queue.
func (w *EventIngestWorker) flush(ctx context.Context, batch []*model.InteractionLog, raw []string) {
	if len(batch) == 0 {
		return
	}

	err := w.logRepo.BulkInsert(ctx, batch)
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Batch ingested")
		return
	}
	w.log.Error().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, falling back to single inserts")

	for i, event := range batch {
		if err := w.logRepo.Insert(ctx, event); err != nil {
			w.log.Error().Err(err).Str("event_type", event.EventType).Msg("Single insert failed, requeueing")
			w.rdb.RPush(ctx, config.WorkerKey.InteractionEventsQueue, raw[i])
		}
	}
}

// drain processes all remaining queue items before shutdown.
func (w *EventIngestWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.InteractionEventsQueue).Result()
		if err != nil {
			break
		}

		event := decodeEvent(result, w.log)
		if event == nil {
			continue
		}

		if err := w.logRepo.Insert(ctx, event); err != nil {
			w.log.Error().Err(err).Msg("Drain insert error")
			w.rdb.RPush(ctx, config.WorkerKey.InteractionEventsQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining events")
	}
}
