package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"sitelink-data/internal/domain"
)

// HouseItemExportHeader 问题台账导出表头
var HouseItemExportHeader = []string{
	"Item ID",
	"Phase",
	"Type",
	"Severity",
	"Title",
	"Description",
	"Blocking",
	"Status",
	"Crew ID",
	"Reported By",
	"Reported At",
	"Resolved By",
	"Resolved At",
	"Resolution Note",
}

// GenerateHouseItemExport 生成问题台账 Excel 文件
// items: 问题数据列表，如果为空则只生成表头
func GenerateHouseItemExport(items []*domain.HouseItem) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	sheetName := "House Items"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close() // Close on error
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	// 设置表头样式
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// 写入表头
	for col, header := range HouseItemExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	// 设置列宽
	columnWidths := []float64{
		38, // Item ID
		20, // Phase
		15, // Type
		12, // Severity
		30, // Title
		40, // Description
		10, // Blocking
		12, // Status
		38, // Crew ID
		38, // Reported By
		22, // Reported At
		38, // Resolved By
		22, // Resolved At
		40, // Resolution Note
	}
	for i := range HouseItemExportHeader {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if i < len(columnWidths) && columnWidths[i] > 0 {
			if err := f.SetColWidth(sheetName, col, col, columnWidths[i]); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	// 写入数据
	for rowIdx, item := range items {
		row := rowIdx + 2 // 从第2行开始（第1行是表头）
		values := []any{
			item.ItemID,
			derefPhase(item.PhaseID),
			string(item.Type),
			string(item.Severity),
			item.Title,
			derefString(item.Description),
			item.Blocking,
			string(item.Status),
			derefString(item.CrewID),
			item.ReportedBy,
			item.ReportedAt.Format(time.RFC3339),
			derefString(item.ResolvedBy),
			derefTime(item.ResolvedAt),
			derefString(item.ResolutionNote),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close excel file: %w", err)
	}

	return buf.Bytes(), nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefPhase(p *domain.PhaseID) string {
	if p == nil {
		return ""
	}
	return string(*p)
}

func derefTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
