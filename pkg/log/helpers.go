package log

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// LogHelper 扩展 Kratos log.Helper，提供便捷的日志方法
// 通过在日志调用时自动添加 "type" 字段，触发 EmojiConsoleEncoder 的表情符号映射
type LogHelper struct {
	*log.Helper
}

// NewLogHelper 创建增强的日志辅助器
func NewLogHelper(logger log.Logger) *LogHelper {
	return &LogHelper{
		Helper: log.NewHelper(logger),
	}
}

func withType(msg, logType string, kvs []interface{}) []interface{} {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	return append(allKvs, "type", logType)
}

func withRun(ctx context.Context, msg, logType string, kvs []interface{}) []interface{} {
	runCtx := GetRunContext(ctx)
	allKvs := withType(msg, logType, kvs)
	return append(allKvs, "run_id", runCtx.RunID, "batch", runCtx.Batch)
}

// Request 记录 HTTP 请求日志（表情符号根据状态码）
func (h *LogHelper) Request(method, url string, status int, durationMs int64, kvs ...interface{}) {
	msg := fmt.Sprintf("%s %s - %d (%s)", method, url, status, formatDuration(durationMs))
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"type", "request",
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(allKvs...)
}

// Success 记录成功操作日志（表情符号: ✅）
func (h *LogHelper) Success(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "success", kvs)...)
}

// Startup 记录启动相关日志（表情符号: 🚀）
func (h *LogHelper) Startup(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "startup", kvs)...)
}

// Database 记录数据库操作日志（表情符号: 💾）
func (h *LogHelper) Database(msg string, kvs ...interface{}) {
	h.Debugw(withType(msg, "database", kvs)...)
}

// Redis 记录 Redis 操作日志（表情符号: 📦）
func (h *LogHelper) Redis(msg string, kvs ...interface{}) {
	h.Debugw(withType(msg, "redis", kvs)...)
}

// Audit 记录审计日志（表情符号: 📋）
func (h *LogHelper) Audit(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "audit", kvs)...)
}

// Scheduler 记录调度器相关日志（表情符号: 🎯）
func (h *LogHelper) Scheduler(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "scheduler", kvs)...)
}

// Simulation logs a run state change.
func (h *LogHelper) Simulation(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "simulation", kvs)...)
}

// Connector logs registry changes.
func (h *LogHelper) Connector(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "connector", kvs)...)
}

// Summary logs end-of-run summary progress.
func (h *LogHelper) Summary(msg string, kvs ...interface{}) {
	h.Infow(withType(msg, "summary", kvs)...)
}

// Breaker logs circuit breaker state changes.
func (h *LogHelper) Breaker(msg string, kvs ...interface{}) {
	h.Warnw(withType(msg, "breaker", kvs)...)
}

// Batch logs a batch lifecycle event tagged with the run context.
func (h *LogHelper) Batch(ctx context.Context, msg string, kvs ...interface{}) {
	h.Infow(withRun(ctx, msg, "batch", kvs)...)
}

// BatchError logs a batch-level failure; these are surfaced to operators.
func (h *LogHelper) BatchError(ctx context.Context, msg string, kvs ...interface{}) {
	h.Errorw(withRun(ctx, msg, "batch", kvs)...)
}

// Routing logs a transient routing problem. The attempt carries on.
func (h *LogHelper) Routing(ctx context.Context, msg string, kvs ...interface{}) {
	h.Warnw(withRun(ctx, msg, "routing", kvs)...)
}

// Payment logs a single attempt at debug level.
func (h *LogHelper) Payment(ctx context.Context, msg string, kvs ...interface{}) {
	h.Debugw(withRun(ctx, msg, "payment", kvs)...)
}

// PaymentWarn logs an attempt that errored before producing a result.
func (h *LogHelper) PaymentWarn(ctx context.Context, msg string, kvs ...interface{}) {
	h.Warnw(withRun(ctx, msg, "payment", kvs)...)
}

// Progress logs a progress publication at debug level.
func (h *LogHelper) Progress(ctx context.Context, msg string, kvs ...interface{}) {
	h.Debugw(withRun(ctx, msg, "progress", kvs)...)
}
