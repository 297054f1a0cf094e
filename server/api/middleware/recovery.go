package middleware

import (
	"fmt"
	"strings"

	"github.com/openrport/userd/share/logger"
)

// RecoveryLogger adapts logger.Logger to the handlers.RecoveryHandlerLogger interface.
type RecoveryLogger struct {
	*logger.Logger
}

func NewRecoveryLogger(l *logger.Logger) *RecoveryLogger {
	return &RecoveryLogger{
		Logger: l,
	}
}

func (l *RecoveryLogger) Println(v ...interface{}) {
	l.Errorf("%s", strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}
