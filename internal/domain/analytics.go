package domain

// DailyStat 单日聚合
type DailyStat struct {
	Date            string  `json:"date"` // YYYY-MM-DD (UTC)
	Count           int     `json:"count"`
	AvgHeartRate    float64 `json:"avg_heart_rate"`
	AvgBodyTemp     float64 `json:"avg_body_temp"`
	MaxSteps        float64 `json:"max_steps"`
	MaxWaterIntake  float64 `json:"max_water_intake"`
	AvgMLPrediction float64 `json:"avg_ml_prediction"`
	DehydratedCount int     `json:"dehydrated_count"`
}

// Analytics 用户分析结果
type Analytics struct {
	Days             int            `json:"days"`
	TotalRecords     int            `json:"total_records"`
	Daily            []DailyStat    `json:"daily"`
	RiskDistribution map[string]int `json:"risk_distribution"`
}

// ActivityCorrelation 活动相关性（样本不足或方差为 0 时为 nil）
type ActivityCorrelation struct {
	Days                int      `json:"days"`
	SampleCount         int      `json:"sample_count"`
	StepsWater          *float64 `json:"steps_water_correlation"`
	HeartRatePrediction *float64 `json:"heart_rate_risk_correlation"`
	ActiveEnergyWater   *float64 `json:"active_energy_water_correlation"`
	BodyTempPrediction  *float64 `json:"temperature_risk_correlation"`
}
