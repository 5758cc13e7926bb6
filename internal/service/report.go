package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"abmconf/internal/model"
)

// ReportService writes the execution schedule as a spreadsheet, one
// row per scheduled function, coloured by owning and sending agent.
type ReportService struct{}

type ReportResult struct {
	Rows int
	Path string
}

const reportSheet = "Functions"

// Message type families shown in the report. Concrete types collapse
// to their family so MessageSpatial2D and 3D read the same.
var reportBaseTypes = map[string]bool{
	"MessageNone":    true,
	"MessageArray":   true,
	"MessageBucket":  true,
	"MessageSpatial": true,
}

type reportRow struct {
	LayerName    string
	FunctionName string
	InputType    string
	OutputType   string
	OwnerColor   string
	SenderColor  string
}

// DefaultReportPath derives the spreadsheet name from a project file,
// for example flock.json becomes flock_functions.xlsx.
func DefaultReportPath(configPath string) string {
	return strings.TrimSuffix(configPath, filepath.Ext(configPath)) + "_functions.xlsx"
}

// WriteFunctionReport renders the schedule of cfg to outputPath.
func (s *ReportService) WriteFunctionReport(cfg *model.Config, outputPath string) (ReportResult, error) {
	rows := buildReportRows(cfg)

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return ReportResult{}, err
	}

	w := &sheetWriter{f: f}
	w.writeHeader()
	for i, row := range rows {
		w.writeRow(i+2, row)
	}
	w.setWidths()
	if w.err != nil {
		return ReportResult{}, fmt.Errorf("building report: %w", w.err)
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ReportResult{}, fmt.Errorf("creating report directory: %w", err)
		}
	}
	if err := f.SaveAs(outputPath); err != nil {
		return ReportResult{}, fmt.Errorf("writing report: %w", err)
	}
	return ReportResult{Rows: len(rows), Path: outputPath}, nil
}

// buildReportRows flattens layers into rows. Function ids that no
// longer resolve are dropped rather than reported half empty.
func buildReportRows(cfg *model.Config) []reportRow {
	type sender struct {
		agent   string
		msgType string
	}
	senders := make(map[string][]sender)
	for _, conn := range cfg.Connections {
		srcAgent, _, ok := model.SplitFunctionID(conn.Src)
		if !ok {
			continue
		}
		if _, _, ok := model.SplitFunctionID(conn.Dst); !ok {
			continue
		}
		senders[conn.Dst] = append(senders[conn.Dst], sender{
			agent:   srcAgent,
			msgType: normalizeMessageType(conn.Type),
		})
	}

	var rows []reportRow
	for _, layer := range cfg.Layers {
		for _, funcID := range layer.FunctionIDs {
			agent, fn, ok := cfg.Function(funcID)
			if !ok {
				continue
			}
			inputType := normalizeMessageType(fn.InputType)
			outputType := normalizeMessageType(fn.OutputType)

			senderColor := ""
			if inputType != "MessageNone" {
				candidates := senders[funcID]
				senderAgent := ""
				for _, c := range candidates {
					if c.msgType == inputType {
						senderAgent = c.agent
						break
					}
				}
				if senderAgent == "" && len(candidates) > 0 {
					senderAgent = candidates[0].agent
				}
				senderColor = agentColor(cfg, senderAgent)
			}

			rows = append(rows, reportRow{
				LayerName:    layer.Name,
				FunctionName: fn.Name,
				InputType:    inputType,
				OutputType:   outputType,
				OwnerColor:   agent.Color,
				SenderColor:  senderColor,
			})
		}
	}
	return rows
}

func normalizeMessageType(messageType string) string {
	clean := strings.TrimSpace(messageType)
	switch {
	case clean == "":
		return ""
	case strings.HasPrefix(clean, "MessageSpatial"):
		return "MessageSpatial"
	case strings.HasPrefix(clean, "MessageArray"):
		return "MessageArray"
	case strings.HasPrefix(clean, "MessageBucket"):
		return "MessageBucket"
	case strings.HasPrefix(clean, "MessageNone"):
		return "MessageNone"
	}
	return clean
}

func agentColor(cfg *model.Config, name string) string {
	if a := cfg.Agent(name); a != nil && a.Color != "" {
		return a.Color
	}
	return "#FFFFFF"
}

// excelHex strips the leading # and upper-cases a colour for cell
// fills. Anything malformed falls back to white.
func excelHex(color string) string {
	raw := strings.TrimPrefix(strings.TrimSpace(color), "#")
	if len(raw) != 6 {
		return "FFFFFF"
	}
	return strings.ToUpper(raw)
}

// sheetWriter keeps the first error and turns the cell by cell
// plumbing into plain statements.
type sheetWriter struct {
	f      *excelize.File
	err    error
	styles map[string]int
}

func (w *sheetWriter) writeHeader() {
	headers := []string{"Layer name", "Function name", "Input type", "Output type"}
	for i, h := range headers {
		w.setCell(i+1, 1, h)
	}
	style := w.style(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDDDDD"}},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}, "header")
	w.setStyle(1, 1, 4, 1, style)
}

func (w *sheetWriter) writeRow(rowIdx int, row reportRow) {
	w.setCell(1, rowIdx, row.LayerName)
	w.setCell(2, rowIdx, row.FunctionName)
	w.setCell(3, rowIdx, row.InputType)
	w.setCell(4, rowIdx, row.OutputType)

	w.setStyle(1, rowIdx, 1, rowIdx, w.plainStyle())
	w.setStyle(2, rowIdx, 2, rowIdx, w.fillStyle(row.OwnerColor))

	if reportBaseTypes[row.InputType] && row.InputType != "MessageNone" {
		w.setStyle(3, rowIdx, 3, rowIdx, w.fillStyle(row.SenderColor))
	} else {
		w.setStyle(3, rowIdx, 3, rowIdx, w.plainStyle())
	}
	if reportBaseTypes[row.OutputType] && row.OutputType != "MessageNone" {
		w.setStyle(4, rowIdx, 4, rowIdx, w.fillStyle(row.OwnerColor))
	} else {
		w.setStyle(4, rowIdx, 4, rowIdx, w.plainStyle())
	}
}

func (w *sheetWriter) setWidths() {
	widths := []struct {
		col   string
		width float64
	}{{"A", 28}, {"B", 36}, {"C", 18}, {"D", 18}}
	for _, c := range widths {
		if w.err == nil {
			w.err = w.f.SetColWidth(reportSheet, c.col, c.col, c.width)
		}
	}
}

func (w *sheetWriter) plainStyle() int {
	return w.style(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "center"},
	}, "plain")
}

func (w *sheetWriter) fillStyle(color string) int {
	hex := excelHex(color)
	return w.style(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{hex}},
		Alignment: &excelize.Alignment{Vertical: "center"},
	}, "fill:"+hex)
}

func (w *sheetWriter) style(style *excelize.Style, key string) int {
	if w.styles == nil {
		w.styles = make(map[string]int)
	}
	if id, ok := w.styles[key]; ok {
		return id
	}
	id, err := w.f.NewStyle(style)
	if err != nil && w.err == nil {
		w.err = err
	}
	w.styles[key] = id
	return id
}

func (w *sheetWriter) setCell(col, row int, value string) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellValue(reportSheet, cell, value)
}

func (w *sheetWriter) setStyle(startCol, startRow, endCol, endRow, style int) {
	if w.err != nil {
		return
	}
	start, err := excelize.CoordinatesToCellName(startCol, startRow)
	if err != nil {
		w.err = err
		return
	}
	end, err := excelize.CoordinatesToCellName(endCol, endRow)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellStyle(reportSheet, start, end, style)
}
