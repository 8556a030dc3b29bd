package sms

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Gateway sends a text message to one phone number
type Gateway interface {
	Send(ctx context.Context, phone, message string) error

	// Name returns the name of the SMS gateway implementation
	Name() string
}

// LogGateway writes messages to the log instead of sending them. Used in dev mode.
type LogGateway struct {
	logger *logrus.Logger
}

// NewLogGateway creates a new LogGateway
func NewLogGateway(logger *logrus.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

func (g *LogGateway) Send(ctx context.Context, phone, message string) error {
	g.logger.WithFields(logrus.Fields{
		"phone":   phone,
		"message": message,
	}).Info("SMS (dev mode, not sent)")
	return nil
}

func (g *LogGateway) Name() string {
	return "Log Gateway"
}
