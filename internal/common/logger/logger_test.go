// Package logger 日志模块单元测试
package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dumeirei/idle-market-backend/internal/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ==================== Init 函数测试 ====================

func TestInit_Formats(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		t.Run(format, func(t *testing.T) {
			cfg := &config.LoggerConfig{
				Level:  "debug",
				Format: format,
				Output: "stdout",
				Caller: true,
			}

			err := Init(cfg)
			assert.NoError(t, err)
			assert.NotNil(t, log)
			assert.NotNil(t, sugar)
		})
	}
}

func TestInit_FileOutput(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "discount.log")

	cfg := &config.LoggerConfig{
		Level:      "debug",
		Format:     "json",
		Output:     "file",
		FilePath:   logFile,
		MaxSize:    1,
		MaxBackups: 3,
		MaxAge:     7,
		Caller:     true,
	}

	err := Init(cfg)
	assert.NoError(t, err)

	Info("discount issued", DiscountCode("SUMMER2026"))
	_ = Sync()

	_, err = os.Stat(logFile)
	assert.NoError(t, err)
}

// ==================== getLogLevel 测试 ====================

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"invalid", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, getLogLevel(tt.level))
	}
}

// ==================== GetLogger / GetSugar / Sync 测试 ====================

func TestGetLogger_LazyInit(t *testing.T) {
	log = nil
	sugar = nil

	logger := GetLogger()
	assert.NotNil(t, logger)
	assert.Equal(t, logger, GetLogger())
}

func TestGetSugar_LazyInit(t *testing.T) {
	log = nil
	sugar = nil

	sugarLogger := GetSugar()
	assert.NotNil(t, sugarLogger)
	assert.Equal(t, sugarLogger, GetSugar())
}

func TestSync_WithNilLogger(t *testing.T) {
	log = nil
	assert.NoError(t, Sync())
}

// ==================== 日志函数测试 ====================

func TestLogFunctions(t *testing.T) {
	cfg := &config.LoggerConfig{
		Level:  "debug",
		Format: "console",
		Output: "stdout",
	}
	require.NoError(t, Init(cfg))

	assert.NotPanics(t, func() {
		Debug("validate request", DiscountCode("SUMMER2026"))
		Info("redeemed", DiscountID(100), UserID(12345))
		Warn("usage limit near", Int("remain", 3))
		Error("redeem failed", Err(nil))
		Debugf("checking code %s for user %d", "SUMMER2026", 12345)
		Infof("issued %d codes", 5)
		Warnf("slow query %v", time.Second)
		Errorf("db error: %s", "timeout")
	})
}

func TestWithAndNamed(t *testing.T) {
	cfg := &config.LoggerConfig{
		Level:  "info",
		Format: "console",
		Output: "stdout",
	}
	require.NoError(t, Init(cfg))

	childLogger := With(Module("discount"))
	assert.IsType(t, &zap.Logger{}, childLogger)

	childSugar := WithFields("discount_id", 100, "code", "SUMMER2026")
	assert.IsType(t, &zap.SugaredLogger{}, childSugar)

	assert.NotNil(t, Named("scheduler"))
}

// ==================== 字段构造函数测试 ====================

func TestFieldConstructors(t *testing.T) {
	tests := []struct {
		field    zap.Field
		wantKey  string
		wantStr  string
		wantInt  int64
		isString bool
	}{
		{RequestID("req-123"), "request_id", "req-123", 0, true},
		{UserID(12345), "user_id", "", 12345, false},
		{AdminID(999), "admin_id", "", 999, false},
		{DiscountID(100), "discount_id", "", 100, false},
		{DiscountCode("SUMMER2026"), "code", "SUMMER2026", 0, true},
		{Module("discount"), "module", "discount", 0, true},
		{Action("redeem"), "action", "redeem", 0, true},
		{StatusCode(200), "status_code", "", 200, false},
		{Method("POST"), "method", "POST", 0, true},
		{Path("/api/v1/discounts/redeem"), "path", "/api/v1/discounts/redeem", 0, true},
		{IP("192.168.1.1"), "ip", "192.168.1.1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.wantKey, func(t *testing.T) {
			assert.Equal(t, tt.wantKey, tt.field.Key)
			if tt.isString {
				assert.Equal(t, tt.wantStr, tt.field.String)
			} else {
				assert.Equal(t, tt.wantInt, tt.field.Integer)
			}
		})
	}
}

func TestZapFieldAliases(t *testing.T) {
	assert.Equal(t, zap.String("k", "v"), String("k", "v"))
	assert.Equal(t, zap.Int("k", 1), Int("k", 1))
	assert.Equal(t, zap.Int64("k", 100), Int64("k", 100))
	assert.Equal(t, zap.Float64("k", 1.5), Float64("k", 1.5))
	assert.Equal(t, zap.Bool("k", true), Bool("k", true))
	assert.Equal(t, zap.Duration("k", time.Second), Duration("k", time.Second))
}

// ==================== JSON 日志格式验证 ====================

func TestJSONLogFormat(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "json.log")

	cfg := &config.LoggerConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}
	require.NoError(t, Init(cfg))

	Info("discount redeemed", DiscountCode("SUMMER2026"), Int("amount", 500))
	_ = Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.NotEmpty(t, lines)

	var logEntry map[string]interface{}
	err = json.Unmarshal([]byte(lines[0]), &logEntry)
	assert.NoError(t, err)

	assert.Equal(t, "discount redeemed", logEntry["msg"])
	assert.Equal(t, "SUMMER2026", logEntry["code"])
	assert.Equal(t, float64(500), logEntry["amount"])
	assert.Equal(t, "info", logEntry["level"])
	assert.Contains(t, logEntry, "time")
}

// ==================== 日志级别过滤测试 ====================

func TestLogLevelFiltering(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "level.log")

	cfg := &config.LoggerConfig{
		Level:    "warn",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}
	require.NoError(t, Init(cfg))

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")
	_ = Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	logContent := string(content)

	assert.NotContains(t, logContent, "debug message")
	assert.NotContains(t, logContent, "info message")
	assert.Contains(t, logContent, "warn message")
	assert.Contains(t, logContent, "error message")
}
