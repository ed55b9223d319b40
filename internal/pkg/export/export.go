// Package export 导出图表列表为 Excel 工作簿
package export

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/qs3c/chart_editor_server/internal/chartspec"
	"github.com/qs3c/chart_editor_server/internal/model"
)

// 工作表名称
const (
	SheetCharts    = "Charts"
	SheetEncodings = "Encodings"
)

var (
	chartHeader    = []interface{}{"ID", "Name", "Description", "Chart Type", "Public", "Published", "Preview", "Created At", "Updated At"}
	encodingHeader = []interface{}{"Chart ID", "Channel", "Field", "Type"}
)

// ChartsWorkbook 生成 xlsx 内容
//
// Charts 表每个图表一行；Encodings 表每个编码通道一行，通道按名称排序。
// 无法解析的规格只出现在 Charts 表。
func ChartsWorkbook(charts []*model.Chart) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetCharts); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetEncodings); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	if err := writeHeader(f, SheetCharts, chartHeader, bold); err != nil {
		return nil, err
	}
	if err := writeHeader(f, SheetEncodings, encodingHeader, bold); err != nil {
		return nil, err
	}

	encRow := 2
	for i, chart := range charts {
		row := []interface{}{
			chart.ID,
			chart.Name,
			chart.Description,
			chart.ChartType,
			chart.IsPublic,
			chart.PublishedToGallery,
			chart.PreviewImageURL,
			chart.CreatedAt.Format(time.RFC3339),
			chart.UpdatedAt.Format(time.RFC3339),
		}
		if err := f.SetSheetRow(SheetCharts, cell(1, i+2), &row); err != nil {
			return nil, err
		}

		spec, err := chartspec.Parse(chart.Spec)
		if err != nil {
			continue
		}
		for _, ch := range channels(spec) {
			binding := spec.Channel(ch)
			line := []interface{}{chart.ID, ch, str(binding["field"]), str(binding["type"])}
			if err := f.SetSheetRow(SheetEncodings, cell(1, encRow), &line); err != nil {
				return nil, err
			}
			encRow++
		}
	}

	if err := f.SetColWidth(SheetCharts, "B", "C", 30); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetCharts, "H", "I", 22); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, header []interface{}, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	return f.SetRowStyle(sheet, 1, 1, style)
}

func channels(spec *chartspec.Spec) []string {
	names := make([]string, 0, len(spec.Encoding))
	for name := range spec.Encoding {
		if spec.Channel(name) != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
