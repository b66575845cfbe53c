package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/divakargaba/Dehydration/internal/domain"

	"go.uber.org/zap"
)

// PostgresMetricsRepository 指标记录仓库（metric_records 表）
type PostgresMetricsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresMetricsRepository 创建指标记录仓库
func NewPostgresMetricsRepository(db *sql.DB, logger *zap.Logger) *PostgresMetricsRepository {
	return &PostgresMetricsRepository{db: db, logger: logger}
}

// InsertMetric 写入指标记录并回填 ID
func (r *PostgresMetricsRepository) InsertMetric(ctx context.Context, rec *domain.MetricRecord) error {
	if rec == nil {
		return fmt.Errorf("metric record is required")
	}
	if rec.UserID == "" {
		return fmt.Errorf("user_id is required")
	}

	query := `
		INSERT INTO metric_records (
			user_id, timestamp, heart_rate, body_temp, steps, water_intake,
			active_energy, acc_x, acc_y, acc_z, dehydration_risk, ml_prediction
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.UserID, rec.Timestamp,
		rec.HeartRate, rec.BodyTemp, rec.Steps, rec.WaterIntake,
		rec.ActiveEnergy, rec.AccX, rec.AccY, rec.AccZ,
		rec.DehydrationRisk, rec.MLPrediction,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to insert metric record: %w", err)
	}
	return nil
}

// ListMetricsSince 查询 since 之后的记录（timestamp 倒序）
func (r *PostgresMetricsRepository) ListMetricsSince(ctx context.Context, userID string, since time.Time) ([]*domain.MetricRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `
		SELECT id, user_id, timestamp, heart_rate, body_temp, steps, water_intake,
		       active_energy, acc_x, acc_y, acc_z, dehydration_risk, ml_prediction
		FROM metric_records
		WHERE user_id = $1 AND timestamp >= $2
		ORDER BY timestamp DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query metric records: %w", err)
	}
	defer rows.Close()

	var records []*domain.MetricRecord
	for rows.Next() {
		var rec domain.MetricRecord
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.Timestamp,
			&rec.HeartRate, &rec.BodyTemp, &rec.Steps, &rec.WaterIntake,
			&rec.ActiveEnergy, &rec.AccX, &rec.AccY, &rec.AccZ,
			&rec.DehydrationRisk, &rec.MLPrediction,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metric record: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metric records: %w", err)
	}
	return records, nil
}

// CountMetricsSince 统计 since 之后的记录数
func (r *PostgresMetricsRepository) CountMetricsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("user_id is required")
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM metric_records WHERE user_id = $1 AND timestamp >= $2`,
		userID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count metric records: %w", err)
	}
	return count, nil
}
