package consumer

import (
	"context"
	"encoding/json"

	"go-leave/internal/bootstrap"
	"go-leave/internal/events"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ConsumeLeaveDecisions reads decision events published by the outbox
// worker and records a notification entry for each one. Malformed
// payloads are committed and skipped so they cannot wedge the partition.
func ConsumeLeaveDecisions(
	ctx context.Context,
	reader *kafkago.Reader,
	audit bootstrap.AuditLogger,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.leave_decisions")
	log.Info("leave decisions consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("leave decisions consumer stopped")
				return
			}
			log.Error("fetch leave decision message failed", zap.Error(err))
			continue
		}

		var event events.LeaveDecidedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode leave decision event failed", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		audit.Log(ctx, bootstrap.AuditLog{
			Action:  "LEAVE_DECISION_NOTIFIED",
			Message: "leave request " + event.Status,
			Meta: map[string]any{
				"leave_id":     event.LeaveID,
				"employee_id":  event.EmployeeID,
				"event_type":   event.EventType,
				"working_days": event.WorkingDays,
				"start_date":   event.StartDate,
				"end_date":     event.EndDate,
				"decided_by":   event.DecidedBy,
			},
		})

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit leave decision message failed", zap.Error(err))
			continue
		}

		log.Info("leave decision notified",
			zap.String("leave_id", event.LeaveID),
			zap.String("employee_id", event.EmployeeID),
			zap.String("event_type", event.EventType),
		)
	}
}
