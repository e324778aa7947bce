// Package channel holds notification.Channel implementations and decorators.
package channel

import (
	"context"
	"log/slog"

	"hemolink/internal/notification"
)

// LogChannel accepts every message by logging it. It is the default channel
// when no transport is configured.
type LogChannel struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *LogChannel {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Send(ctx context.Context, env notification.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "notification",
		"record_id", env.RecordID,
		"request_id", env.RequestID,
		"donor_id", env.Recipient.DonorID,
		"event_type", env.EventType,
		"blood_type", env.BloodType,
		"subject", env.Subject,
	)
	return nil
}
