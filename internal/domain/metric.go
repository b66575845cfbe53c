package domain

import (
	"math"
	"time"
)

// 风险标签
const (
	RiskDehydrated   = "Dehydrated"
	RiskWellHydrated = "Well Hydrated"
)

// FeatureNames 特征顺序（个人模型 / 集成模型的训练与推理都使用此顺序）
var FeatureNames = []string{
	"heart_rate",
	"body_temp",
	"steps",
	"water_intake",
	"active_energy",
	"acc_x",
	"acc_y",
	"acc_z",
}

// Metrics 一次上报的指标快照（缺失字段默认为 0）
type Metrics struct {
	HeartRate    float64 `json:"heart_rate"`
	BodyTemp     float64 `json:"body_temp"`
	Steps        float64 `json:"steps"`
	WaterIntake  float64 `json:"water_intake"`
	ActiveEnergy float64 `json:"active_energy"`
	AccX         float64 `json:"acc_x"`
	AccY         float64 `json:"acc_y"`
	AccZ         float64 `json:"acc_z"`
}

// Features 按 FeatureNames 顺序返回特征向量
func (m Metrics) Features() []float64 {
	return []float64{
		m.HeartRate,
		m.BodyTemp,
		m.Steps,
		m.WaterIntake,
		m.ActiveEnergy,
		m.AccX,
		m.AccY,
		m.AccZ,
	}
}

// Feature 按名称取单个特征
func (m Metrics) Feature(name string) (float64, bool) {
	switch name {
	case "heart_rate", "hr":
		return m.HeartRate, true
	case "body_temp", "temp", "temperature":
		return m.BodyTemp, true
	case "steps":
		return m.Steps, true
	case "water_intake":
		return m.WaterIntake, true
	case "active_energy":
		return m.ActiveEnergy, true
	case "acc_x":
		return m.AccX, true
	case "acc_y":
		return m.AccY, true
	case "acc_z":
		return m.AccZ, true
	}
	return 0, false
}

// Valid 所有字段都是有限数
func (m Metrics) Valid() bool {
	for _, v := range m.Features() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MetricRecord 指标记录领域模型（对应 metric_records 表）
// 写入后不可修改
type MetricRecord struct {
	ID        int64     `db:"id" json:"id"`               // BIGSERIAL
	UserID    string    `db:"user_id" json:"user_id"`     // VARCHAR(100), NOT NULL
	Timestamp time.Time `db:"timestamp" json:"timestamp"` // TIMESTAMPTZ, 服务端写入时间

	Metrics

	DehydrationRisk string  `db:"dehydration_risk" json:"dehydration_risk"` // 'Dehydrated' / 'Well Hydrated'
	MLPrediction    float64 `db:"ml_prediction" json:"ml_prediction"`       // [0,1]
}

// RiskLabel 根据概率返回风险标签
func RiskLabel(probability float64) string {
	if probability > 0.5 {
		return RiskDehydrated
	}
	return RiskWellHydrated
}
