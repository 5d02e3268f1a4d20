package badgerjournal

import (
	"context"
	"fmt"
	"strings"

	"github.com/LerianStudio/lib-swap/swap/log"
)

// badgerLogger routes badger's printf-style diagnostics into log.Logger.
type badgerLogger struct {
	logger log.Logger
}

func (l badgerLogger) emit(level log.Level, format string, args ...any) {
	if !l.logger.Enabled(level) {
		return
	}

	msg := strings.TrimSpace(fmt.Sprintf(format, args...))
	l.logger.Log(context.Background(), level, msg, log.String("component", "badger"))
}

func (l badgerLogger) Errorf(format string, args ...any)   { l.emit(log.LevelError, format, args...) }
func (l badgerLogger) Warningf(format string, args ...any) { l.emit(log.LevelWarn, format, args...) }
func (l badgerLogger) Infof(format string, args ...any)    { l.emit(log.LevelDebug, format, args...) }
func (l badgerLogger) Debugf(format string, args ...any)   { l.emit(log.LevelDebug, format, args...) }
