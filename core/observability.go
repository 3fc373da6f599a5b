package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Observer writes one log line and one counter/histogram pair per operation.
type Observer struct {
	logger          Logger
	metricsRecorder MetricsRecorder
}

func NewObserver(logger Logger, recorder MetricsRecorder) *Observer {
	if recorder == nil {
		recorder = NopMetricsRecorder{}
	}
	return &Observer{
		logger:          glog.Ensure(logger),
		metricsRecorder: recorder,
	}
}

// NopObserver discards everything.
func NopObserver() *Observer {
	return NewObserver(glog.Nop(), NopMetricsRecorder{})
}

func (o *Observer) Logger() Logger {
	if o == nil || o.logger == nil {
		return glog.Nop()
	}
	return o.logger
}

func (o *Observer) Observe(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if o == nil {
		return
	}
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	elapsed := time.Since(startedAt)

	contextFields := cloneFields(fields)
	contextFields["event_type"] = operation
	contextFields["status"] = status
	contextFields["duration_ms"] = elapsed.Milliseconds()
	if err != nil {
		contextFields["error"] = err.Error()
		contextFields["error_kind"] = string(KindOf(err))
	}

	tags := map[string]string{
		"operation": operation,
		"status":    status,
	}
	if err != nil {
		tags["error_kind"] = string(KindOf(err))
	}
	if value := strings.TrimSpace(fmt.Sprint(contextFields["collection"])); value != "" && value != "<nil>" {
		tags["collection"] = value
	}

	o.recordCounter(ctx, "resources."+operation+".total", 1, tags)
	o.recordHistogram(ctx, "resources."+operation+".duration_ms", float64(elapsed.Milliseconds()), tags)

	if err != nil {
		o.logWithLevel(ctx, "error", operation+" failed", contextFields)
		return
	}
	o.logWithLevel(ctx, "info", operation+" succeeded", contextFields)
}

// Warn logs failures that must not replace the caller-facing error, such as
// a rollback that fails after the operation already failed.
func (o *Observer) Warn(ctx context.Context, message string, fields map[string]any) {
	o.logWithLevel(ctx, "warn", message, fields)
}

func (o *Observer) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if o == nil || o.logger == nil {
		return
	}
	logger := o.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	case "warn":
		logger.Warn(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (o *Observer) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if o == nil || o.metricsRecorder == nil {
		return
	}
	o.metricsRecorder.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (o *Observer) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if o == nil || o.metricsRecorder == nil {
		return
	}
	o.metricsRecorder.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	operation = strings.ReplaceAll(operation, " ", "_")
	operation = strings.ReplaceAll(operation, "-", "_")
	return operation
}
