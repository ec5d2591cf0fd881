package messaging

import (
	"context"

	"github.com/jwalitptl/odontogram-api/pkg/logger"
)

// Handler processes one decoded message.
type Handler func(ctx context.Context, msg Message) error

// Listen subscribes to channel and hands every message of eventType to
// handler until ctx is cancelled. Handler errors are logged and skipped.
func Listen(ctx context.Context, broker Broker, channel, eventType string, handler Handler, log *logger.Logger) error {
	msgChan, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return err
	}

	go func() {
		for data := range msgChan {
			msg, err := Decode(data)
			if err != nil {
				log.Warn(err, "dropping undecodable message", "channel", channel)
				continue
			}
			if msg.Type != eventType {
				continue
			}
			if err := handler(ctx, msg); err != nil {
				log.Error(err, "message handler failed", "channel", channel, "type", msg.Type)
			}
		}
	}()

	return nil
}
