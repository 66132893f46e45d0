// Package metrics 提供 Prometheus 指标收集单元测试
package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestInit(t *testing.T) {
	t.Run("使用默认命名空间", func(t *testing.T) {
		m := Init("")
		require.NotNil(t, m)
		assert.NotNil(t, m.httpRequestsTotal)
		assert.NotNil(t, m.httpRequestDuration)
		assert.NotNil(t, m.httpRequestsInFlight)
		assert.NotNil(t, m.dbQueriesTotal)
		assert.NotNil(t, m.dbQueryDuration)
		assert.NotNil(t, m.cacheHitsTotal)
		assert.NotNil(t, m.cacheMissesTotal)
		assert.NotNil(t, m.validationsTotal)
		assert.NotNil(t, m.redemptionsTotal)
		assert.NotNil(t, m.codesIssuedTotal)
		assert.NotNil(t, m.activeDiscounts)
	})

	t.Run("使用自定义命名空间", func(t *testing.T) {
		m := Init("custom_namespace")
		require.NotNil(t, m)
	})
}

func TestGetMetrics(t *testing.T) {
	t.Run("获取已初始化的指标", func(t *testing.T) {
		Init("test")
		m := GetMetrics()
		require.NotNil(t, m)
	})

	t.Run("获取指标实例", func(t *testing.T) {
		// GetMetrics 应该返回非空指标实例
		m := GetMetrics()
		require.NotNil(t, m)
	})
}

func TestMetrics_RecordDBQuery(t *testing.T) {
	m := Init("test_db")

	t.Run("记录SELECT查询", func(t *testing.T) {
		// 不会panic即为成功
		m.RecordDBQuery("SELECT", "discount_codes", 10*time.Millisecond)
	})

	t.Run("记录INSERT查询", func(t *testing.T) {
		m.RecordDBQuery("INSERT", "discount_assignments", 5*time.Millisecond)
	})

	t.Run("记录UPDATE查询", func(t *testing.T) {
		m.RecordDBQuery("UPDATE", "discount_codes", 3*time.Millisecond)
	})

	t.Run("记录DELETE查询", func(t *testing.T) {
		m.RecordDBQuery("DELETE", "operation_logs", 2*time.Millisecond)
	})
}

func TestMetrics_RecordCache(t *testing.T) {
	m := Init("test_cache")

	t.Run("记录缓存命中", func(t *testing.T) {
		m.RecordCacheHit("discount_cache")
		m.RecordCacheHit("session_cache")
	})

	t.Run("记录缓存未命中", func(t *testing.T) {
		m.RecordCacheMiss("discount_cache")
		m.RecordCacheMiss("config_cache")
	})
}

func TestMetrics_RecordValidation(t *testing.T) {
	m := Init("test_validation")

	t.Run("记录校验通过", func(t *testing.T) {
		m.RecordValidation("ok")
	})

	t.Run("记录校验失败原因", func(t *testing.T) {
		m.RecordValidation("expired")
		m.RecordValidation("used_up")
		m.RecordValidation("min_order_not_met")
	})
}

func TestMetrics_RecordRedemption(t *testing.T) {
	m := Init("test_redemption")

	t.Run("记录固定金额核销", func(t *testing.T) {
		m.RecordRedemption("fixed", "success")
	})

	t.Run("记录百分比核销", func(t *testing.T) {
		m.RecordRedemption("percent", "success")
	})

	t.Run("记录核销失败", func(t *testing.T) {
		m.RecordRedemption("fixed", "failed")
	})
}

func TestMetrics_RecordCodeIssued(t *testing.T) {
	m := Init("test_issued")

	t.Run("记录发放固定金额码", func(t *testing.T) {
		m.RecordCodeIssued("fixed")
	})

	t.Run("记录发放百分比码", func(t *testing.T) {
		m.RecordCodeIssued("percent")
	})
}

func TestMetrics_SetActiveDiscounts(t *testing.T) {
	m := Init("test_gauges")

	t.Run("设置有效折扣码数量", func(t *testing.T) {
		m.SetActiveDiscounts(100)
		m.SetActiveDiscounts(150)
	})
}

func TestRecordHTTPRequest(t *testing.T) {
	Init("test_http")

	t.Run("记录HTTP请求", func(t *testing.T) {
		RecordHTTPRequest("GET", "/api/v1/discounts", "200", 100*time.Millisecond)
		RecordHTTPRequest("POST", "/api/v1/discounts/validate", "200", 50*time.Millisecond)
		RecordHTTPRequest("GET", "/api/v1/discounts/1", "404", 10*time.Millisecond)
		RecordHTTPRequest("POST", "/api/v1/auth/login", "500", 200*time.Millisecond)
	})
}

func TestRecordCacheGlobal(t *testing.T) {
	Init("test_global_cache")

	t.Run("全局记录缓存命中", func(t *testing.T) {
		RecordCacheHitGlobal("discount_cache")
	})

	t.Run("全局记录缓存未命中", func(t *testing.T) {
		RecordCacheMissGlobal("discount_cache")
	})
}

func TestMetrics_Middleware(t *testing.T) {
	m := Init("test_middleware")

	router := gin.New()
	router.Use(m.Middleware())

	router.GET("/api/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, "metrics")
	})

	t.Run("记录请求指标", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/test", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("跳过/metrics端点", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/metrics", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHandler(t *testing.T) {
	Init("test_handler")

	router := gin.New()
	router.GET("/metrics", Handler())

	t.Run("返回Prometheus指标", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/metrics", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		// Prometheus 指标应该包含一些标准内容
		body := w.Body.String()
		assert.Contains(t, body, "go_") // Go 运行时指标
	})
}
