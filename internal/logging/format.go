package logging

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	componentKey = "component"
	errorKey     = "error"
	fieldsKey    = "_fields"
)

// lineFormatter renders entries as single human-readable lines. Fields
// keep the order they were passed in.
type lineFormatter struct{}

func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var sb strings.Builder

	sb.WriteString(entry.Time.Format(time.RFC3339))
	sb.WriteString(" [")
	sb.WriteString(levelName(entry.Level))
	sb.WriteString("] [")
	if component, ok := entry.Data[componentKey].(string); ok {
		sb.WriteString(component)
	}
	sb.WriteString("] ")
	sb.WriteString(entry.Message)

	if err, ok := entry.Data[errorKey].(error); ok && err != nil {
		sb.WriteString(" | error=")
		sb.WriteString(err.Error())
	}

	if fields, ok := entry.Data[fieldsKey].([]Field); ok {
		for _, field := range fields {
			sb.WriteString(" | ")
			sb.WriteString(field.Key)
			sb.WriteString("=")
			sb.WriteString(fmt.Sprintf("%v", field.Value))
		}
	}

	sb.WriteString("\n")
	return []byte(sb.String()), nil
}

func levelName(level logrus.Level) string {
	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return LevelDebug.String()
	case logrus.InfoLevel:
		return LevelInfo.String()
	case logrus.WarnLevel:
		return LevelWarn.String()
	default:
		return LevelError.String()
	}
}
