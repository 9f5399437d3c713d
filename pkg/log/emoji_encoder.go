package log

import (
	"fmt"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// typeIcons maps the "type" field set by LogHelper to a console icon.
var typeIcons = map[string]string{
	"request":    "🌐",
	"success":    "✅",
	"database":   "💾",
	"redis":      "🧱",
	"startup":    "🚀",
	"audit":      "📋",
	"scheduler":  "⏰",
	"simulation": "🎬",
	"batch":      "📦",
	"routing":    "🧭",
	"payment":    "💳",
	"summary":    "📝",
	"connector":  "🔌",
	"breaker":    "🔥",
	"progress":   "📊",
}

var levelIcons = map[zapcore.Level]string{
	zapcore.DebugLevel:  "🐛",
	zapcore.InfoLevel:   "ℹ️",
	zapcore.WarnLevel:   "⚠️",
	zapcore.ErrorLevel:  "❌",
	zapcore.DPanicLevel: "❌",
	zapcore.PanicLevel:  "❌",
	zapcore.FatalLevel:  "❌",
}

// statusEmoji 根据 HTTP 状态码返回表情符号
func statusEmoji(status int) string {
	switch {
	case status >= 500:
		return "🔴"
	case status >= 400:
		return "🟠"
	case status >= 300:
		return "🟡"
	}
	return "🟢"
}

// entryTags are the fields the console encoder reads before encoding.
type entryTags struct {
	logType string
	status  int64
	runID   string
	batch   int64
	// outcome is set for settled payment attempts
	outcome *bool
}

func readTags(fields []zapcore.Field) entryTags {
	var t entryTags
	for _, f := range fields {
		switch {
		case f.Key == "type" && f.Type == zapcore.StringType:
			t.logType = f.String
		case f.Key == "status" && (f.Type == zapcore.Int64Type || f.Type == zapcore.Int32Type):
			t.status = f.Integer
		case f.Key == "run_id" && f.Type == zapcore.StringType:
			t.runID = f.String
		case f.Key == "batch" && (f.Type == zapcore.Int64Type || f.Type == zapcore.Int32Type):
			t.batch = f.Integer
		case f.Key == "success" && f.Type == zapcore.BoolType:
			ok := f.Integer == 1
			t.outcome = &ok
		}
	}
	return t
}

// icon picks, in order: HTTP status, payment outcome, log type, level.
func (t entryTags) icon(level zapcore.Level) string {
	if t.status > 0 {
		return statusEmoji(int(t.status))
	}
	if t.logType == "payment" && t.outcome != nil {
		if *t.outcome {
			return "✅"
		}
		return "❌"
	}
	if icon, ok := typeIcons[t.logType]; ok {
		return icon
	}
	return levelIcons[level]
}

// prefix is a short run tag like "[3f2a9c1e#4]" so interleaved batches stay readable.
func (t entryTags) prefix() string {
	if t.runID == "" || t.runID == "unknown" {
		return ""
	}
	short := t.runID
	if len(short) > 8 {
		short = short[:8]
	}
	if t.batch > 0 {
		return fmt.Sprintf("[%s#%d] ", short, t.batch)
	}
	return fmt.Sprintf("[%s] ", short)
}

// EmojiConsoleEncoder 包装 zap ConsoleEncoder，为消息添加图标和运行标记
type EmojiConsoleEncoder struct {
	zapcore.Encoder
}

// NewEmojiConsoleEncoder 创建带表情符号的控制台编码器
func NewEmojiConsoleEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &EmojiConsoleEncoder{Encoder: zapcore.NewConsoleEncoder(cfg)}
}

// EncodeEntry implements zapcore.Encoder.
func (enc *EmojiConsoleEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	tags := readTags(fields)
	msg := tags.prefix() + entry.Message
	if icon := tags.icon(entry.Level); icon != "" {
		msg = icon + " " + msg
	}
	entry.Message = msg
	return enc.Encoder.EncodeEntry(entry, fields)
}

// Clone implements zapcore.Encoder.
func (enc *EmojiConsoleEncoder) Clone() zapcore.Encoder {
	return &EmojiConsoleEncoder{Encoder: enc.Encoder.Clone()}
}

// formatDuration renders request latency as 150ms or 2.5s.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}
