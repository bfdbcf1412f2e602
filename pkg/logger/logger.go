package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type LogLevel string

const (
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

var levelRank = map[LogLevel]int{LevelInfo: 0, LevelWarn: 1, LevelError: 2}

type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	UserID    *string                `json:"user_id,omitempty"`
	Action    string                 `json:"action"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Source    string                 `json:"source,omitempty"`
}

// Logger writes one JSON object per line. Entries below minLevel are
// dropped.
type Logger struct {
	mu       sync.Mutex
	output   io.Writer
	minLevel LogLevel
	color    bool
}

var globalLogger *Logger

func New(output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	return &Logger{output: output, minLevel: LevelInfo, color: output == os.Stdout}
}

func Init() {
	globalLogger = New(os.Stdout)
}

// InitWithLevel is Init with a minimum level ("info", "warn" or "error").
// Unknown levels keep info.
func InitWithLevel(level string) {
	l := New(os.Stdout)
	if parsed := LogLevel(strings.ToLower(strings.TrimSpace(level))); levelRank[parsed] > 0 {
		l.minLevel = parsed
	}
	globalLogger = l
}

// SetGlobal replaces the package logger; nil disables logging.
func SetGlobal(l *Logger) {
	globalLogger = l
}

func (l *Logger) log(level LogLevel, action string, userID *string, details map[string]interface{}, err error) {
	if levelRank[level] < levelRank[l.minLevel] {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		UserID:    userID,
		Action:    action,
		Details:   details,
		Source:    callerSource(),
	}
	if err != nil {
		entry.Error = err.Error()
	}

	data, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		data, _ = json.Marshal(LogEntry{Timestamp: entry.Timestamp, Level: level, Action: action, Error: marshalErr.Error()})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.color {
		fmt.Fprintf(l.output, "%s%s\033[0m\n", colorFor(level), data)
		return
	}
	fmt.Fprintf(l.output, "%s\n", data)
}

func colorFor(level LogLevel) string {
	switch level {
	case LevelError:
		return "\033[31m"
	case LevelWarn:
		return "\033[33m"
	default:
		return "\033[36m"
	}
}

func Info(action string, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(LevelInfo, action, nil, details, nil)
	}
}

func InfoWithUser(userID string, action string, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(LevelInfo, action, &userID, details, nil)
	}
}

func Warn(action string, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(LevelWarn, action, nil, details, nil)
	}
}

func WarnWithUser(userID string, action string, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(LevelWarn, action, &userID, details, nil)
	}
}

func Error(action string, err error, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(LevelError, action, nil, details, err)
	}
}

func ErrorWithUser(userID string, action string, err error, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(LevelError, action, &userID, details, err)
	}
}

func GetUserIDFromContext(c *fiber.Ctx) *string {
	if userID := c.Locals("userID"); userID != nil {
		if id, ok := userID.(string); ok {
			return &id
		}
	}
	return nil
}

// callerSource is the file:line of the code that called one of the
// package-level helpers.
func callerSource() string {
	if _, file, line, ok := runtime.Caller(3); ok {
		return fmt.Sprintf("%s:%d", file, line)
	}
	return ""
}

var sensitiveFields = []string{"password", "newPassword", "token", "accessToken", "refreshToken", "secret"}

func redactSensitiveFields(jsonMap map[string]interface{}) {
	for _, field := range sensitiveFields {
		if _, exists := jsonMap[field]; exists {
			jsonMap[field] = "[REDACTED]"
		}
	}
}

func GetRequestBodySummary(c *fiber.Ctx) string {
	body := c.Body()
	if len(body) == 0 {
		return "empty"
	}
	if len(body) > 1024 {
		return fmt.Sprintf("large (%d bytes)", len(body))
	}

	var jsonMap map[string]interface{}
	if err := json.Unmarshal(body, &jsonMap); err == nil {
		redactSensitiveFields(jsonMap)
		if jsonBytes, err := json.Marshal(jsonMap); err == nil {
			if len(jsonBytes) > 200 {
				return string(jsonBytes[:200]) + "..."
			}
			return string(jsonBytes)
		}
	}
	if bytes.HasPrefix(c.Request().Header.ContentType(), []byte(fiber.MIMEMultipartForm)) {
		return fmt.Sprintf("multipart (%d bytes)", len(body))
	}
	return fmt.Sprintf("binary (%d bytes)", len(body))
}

func GetResponseSizeSummary(c *fiber.Ctx) string {
	response := c.Response()
	if response == nil {
		return "unknown"
	}
	size := len(response.Body())
	switch {
	case size == 0:
		return "empty"
	case size > 1024:
		return fmt.Sprintf("large (%d bytes)", size)
	default:
		return fmt.Sprintf("small (%d bytes)", size)
	}
}

func GenerateRequestID() string {
	return uuid.New().String()
}
