package voicemap

import (
	"context"
	"log/slog"

	"github.com/teslashibe/voicemap/pkg/geo"
)

// Navigator plans routes. Only a logging stub exists.
type Navigator interface {
	StartNavigation(ctx context.Context, from *geo.Location) error
}

// LogNavigator records navigation requests without routing.
type LogNavigator struct {
	logger *slog.Logger
}

// NewLogNavigator creates a LogNavigator.
func NewLogNavigator(logger *slog.Logger) *LogNavigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNavigator{logger: logger.With("component", "voicemap.navigator")}
}

// StartNavigation logs the request.
func (n *LogNavigator) StartNavigation(ctx context.Context, from *geo.Location) error {
	if from == nil {
		n.logger.Info("navigation requested", "from", "unknown")
		return nil
	}
	n.logger.Info("navigation requested", "from", from.Coordinates())
	return nil
}

var _ Navigator = (*LogNavigator)(nil)
