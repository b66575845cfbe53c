package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"github.com/divakargaba/Dehydration/internal/domain"

	"github.com/xuri/excelize/v2"
)

const metricsSheet = "Metrics"

// MetricsExportHeader 导出表头
var MetricsExportHeader = []string{
	"Timestamp",
	"Heart Rate",
	"Body Temp",
	"Steps",
	"Water Intake",
	"Active Energy",
	"Acc X",
	"Acc Y",
	"Acc Z",
	"ML Prediction",
	"Dehydration Risk",
}

var metricsColumnWidths = []float64{22, 12, 12, 10, 14, 14, 10, 10, 10, 15, 18}

// GenerateMetricsExport 生成指标历史 Excel 文件；records 为空时只有表头
func GenerateMetricsExport(records []*domain.MetricRecord) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(metricsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range MetricsExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(metricsSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(metricsSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(metricsSheet, name, name, metricsColumnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, rec := range records {
		row := []any{
			rec.Timestamp.UTC().Format(time.RFC3339),
			rec.HeartRate,
			rec.BodyTemp,
			rec.Steps,
			rec.WaterIntake,
			rec.ActiveEnergy,
			rec.AccX,
			rec.AccY,
			rec.AccZ,
			rec.MLPrediction,
			rec.DehydrationRisk,
		}
		// 第1行是表头
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(metricsSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	// 冻结表头
	if err := f.SetPanes(metricsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}
