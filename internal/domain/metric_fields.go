package domain

import (
	"math"
	"strconv"
	"strings"
)

// MetricsFromFields 按字段名读取指标；缺失或无法解析的字段按 0 处理
func MetricsFromFields(lookup func(name string) (any, bool)) Metrics {
	f := func(name string) float64 {
		v, ok := lookup(name)
		if !ok {
			return 0
		}
		return ToFloat(v)
	}
	return Metrics{
		HeartRate:    f("heart_rate"),
		BodyTemp:     f("body_temp"),
		Steps:        f("steps"),
		WaterIntake:  f("water_intake"),
		ActiveEnergy: f("active_energy"),
		AccX:         f("acc_x"),
		AccY:         f("acc_y"),
		AccZ:         f("acc_z"),
	}
}

// MetricsFromMap 从解码后的 JSON 对象读取指标
func MetricsFromMap(raw map[string]any) Metrics {
	return MetricsFromFields(func(name string) (any, bool) {
		v, ok := raw[name]
		return v, ok
	})
}

// ToFloat 数值、数字字符串、布尔转 float64，其余（含 NaN/Inf）为 0
func ToFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0
		}
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	case bool:
		if x {
			return 1
		}
	}
	return 0
}
