package sms

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// LogGateway writes messages to the log instead of sending them. Used in development.
type LogGateway struct {
	logger *logrus.Logger
}

// NewLogGateway creates a development gateway
func NewLogGateway(logger *logrus.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

// Send logs the message
func (g *LogGateway) Send(ctx context.Context, phone, message string) (int64, error) {
	g.logger.WithFields(logrus.Fields{
		"phone":   phone,
		"message": message,
	}).Info("SMS (dev mode, not sent)")
	return time.Now().UnixMicro(), nil
}

// Name returns the name of this SMS gateway
func (g *LogGateway) Name() string {
	return "log"
}
