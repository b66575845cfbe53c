package domain

// UserBaseline 用户基线（按需计算，不落库）
type UserBaseline struct {
	AvgHeartRate   float64 `json:"avg_heart_rate"`
	AvgBodyTemp    float64 `json:"avg_body_temp"`
	AvgSteps       float64 `json:"avg_steps"`
	AvgWaterIntake float64 `json:"avg_water_intake"`
	SampleCount    int     `json:"sample_count"`
	WindowDays     int     `json:"window_days"`
}
