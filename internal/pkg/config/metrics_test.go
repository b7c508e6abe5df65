package config

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// promauto はプロセス内で同名メトリクスを二重登録できないため、
// 各テストは一意なコンポーネント名を使う。

func TestNewConfigMetrics_Registration(t *testing.T) {
	metrics := NewConfigMetrics("test_component_registration")

	assert.NotNil(t, metrics.LoadTimestamp)
	assert.NotNil(t, metrics.ValidationErrorsTotal)
	assert.NotNil(t, metrics.FallbacksTotal)
	assert.NotNil(t, metrics.FallbackActive)
	assert.Equal(t, "test_component_registration", metrics.componentName)
}

func TestNewConfigMetrics_UniqueNames(t *testing.T) {
	workerMetrics := NewConfigMetrics("test_worker")
	schedulerMetrics := NewConfigMetrics("test_scheduler")

	assert.NotSame(t, workerMetrics.LoadTimestamp, schedulerMetrics.LoadTimestamp,
		"Different components should have different metric instances")

	// 両方とも panic せずに記録できること
	workerMetrics.RecordLoadTimestamp()
	schedulerMetrics.RecordLoadTimestamp()
}

func TestRecordLoadTimestamp_UpdatesMetric(t *testing.T) {
	metrics := NewConfigMetrics("test_load_timestamp")

	metrics.RecordLoadTimestamp()

	value := testutil.ToFloat64(metrics.LoadTimestamp)
	assert.Greater(t, value, float64(0), "Load timestamp should be greater than 0")
}

func TestRecordValidationError_IncrementsCounter(t *testing.T) {
	metrics := NewConfigMetrics("test_validation_error")

	initial := testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues("scan_schedule"))
	assert.Equal(t, float64(0), initial)

	metrics.RecordValidationError("scan_schedule")
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues("scan_schedule")))

	metrics.RecordValidationError("scan_schedule")
	assert.Equal(t, float64(2),
		testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues("scan_schedule")))
}

func TestRecordValidationError_DifferentFields(t *testing.T) {
	metrics := NewConfigMetrics("test_validation_fields")

	metrics.RecordValidationError("scan_schedule")
	metrics.RecordValidationError("timezone")
	metrics.RecordValidationError("scan_schedule")

	assert.Equal(t, float64(2),
		testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues("scan_schedule")),
		"scan_schedule should have 2 errors")
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues("timezone")),
		"timezone should have 1 error")
}

func TestRecordFallback_IncrementsCounter(t *testing.T) {
	metrics := NewConfigMetrics("test_fallback")

	initial := testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("timezone"))
	assert.Equal(t, float64(0), initial)

	metrics.RecordFallback("timezone", "default")
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("timezone")))

	metrics.RecordFallback("timezone", "default")
	assert.Equal(t, float64(2),
		testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("timezone")))
}

func TestRecordFallback_DifferentFields(t *testing.T) {
	metrics := NewConfigMetrics("test_fallback_fields")

	metrics.RecordFallback("scan_schedule", "default")
	metrics.RecordFallback("timezone", "default")
	metrics.RecordFallback("run_timeout", "default")
	metrics.RecordFallback("scan_schedule", "default")

	assert.Equal(t, float64(2),
		testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("scan_schedule")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("timezone")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("run_timeout")))
}

func TestSetFallbackActive_Toggle(t *testing.T) {
	metrics := NewConfigMetrics("test_fallback_toggle")

	metrics.SetFallbackActive("", false)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.FallbackActive))

	metrics.SetFallbackActive("", true)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FallbackActive))

	metrics.SetFallbackActive("", false)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.FallbackActive))

	metrics.SetFallbackActive("", true)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FallbackActive))
}

// 設定ロード→検証エラー→フォールバックという実際の起動フローを通す。
func TestMetrics_Integration(t *testing.T) {
	metrics := NewConfigMetrics("test_integration")

	metrics.RecordLoadTimestamp()
	metrics.RecordValidationError("scan_schedule")
	metrics.RecordValidationError("timezone")
	metrics.RecordFallback("scan_schedule", "default")
	metrics.RecordFallback("timezone", "default")
	metrics.SetFallbackActive("multiple", true)

	assert.Greater(t, testutil.ToFloat64(metrics.LoadTimestamp), float64(0))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues("scan_schedule")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues("timezone")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("scan_schedule")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("timezone")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FallbackActive))
}

func TestMetrics_NoErrorsScenario(t *testing.T) {
	metrics := NewConfigMetrics("test_no_errors")

	metrics.RecordLoadTimestamp()
	metrics.SetFallbackActive("", false)

	assert.Greater(t, testutil.ToFloat64(metrics.LoadTimestamp), float64(0))
	assert.Equal(t, float64(0),
		testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues("any_field")))
	assert.Equal(t, float64(0),
		testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("any_field")))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.FallbackActive))
}

func TestMetrics_ConcurrentAccess(t *testing.T) {
	metrics := NewConfigMetrics("test_concurrent")

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			metrics.RecordLoadTimestamp()
			metrics.RecordValidationError("test_field")
			metrics.RecordFallback("test_field", "default")
			metrics.SetFallbackActive("test_field", true)
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Greater(t, testutil.ToFloat64(metrics.LoadTimestamp), float64(0))
	assert.Equal(t, float64(10),
		testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues("test_field")))
	assert.Equal(t, float64(10),
		testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("test_field")))
}

func TestMetrics_EdgeCases(t *testing.T) {
	metrics := NewConfigMetrics("test_edge_cases")

	// 空のフィールド名もラベルとしては合法
	metrics.RecordValidationError("")
	metrics.RecordFallback("", "default")
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues("")))

	longFieldName := "very_long_field_name_that_exceeds_normal_length_boundaries_for_testing_purposes"
	metrics.RecordValidationError(longFieldName)
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues(longFieldName)))

	// 同じ値を繰り返しセットしても冪等
	metrics.SetFallbackActive("", true)
	metrics.SetFallbackActive("", true)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FallbackActive))
}
