package logging

import (
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

var _ gocron.Logger = (*GocronLogger)(nil)

// GocronLogger forwards the scheduler's internal logs to zap.
type GocronLogger struct {
	s *zap.SugaredLogger
}

func NewGocronLogger(logger *zap.Logger) *GocronLogger {
	return &GocronLogger{s: logger.Named("gocron").Sugar()}
}

func (l *GocronLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l *GocronLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l *GocronLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l *GocronLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }
