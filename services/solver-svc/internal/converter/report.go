package converter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/apperror"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
)

// Format selects the report encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts yaml, yml, json, xlsx and excel.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", unknownFormat(s)
}

func unknownFormat(s string) error {
	return apperror.NewWithField(apperror.CodeInvalidOption,
		fmt.Sprintf("unknown output format %q", s), "format")
}

// ArcFlow is the flow on one arc of the document. Complements are omitted.
type ArcFlow struct {
	Edge     int   `json:"edge" yaml:"edge"`
	From     int   `json:"from" yaml:"from"`
	To       int   `json:"to" yaml:"to"`
	Capacity int64 `json:"capacity" yaml:"capacity"`
	Flow     int64 `json:"flow" yaml:"flow"`
}

// FlowReport is the rendered result of a solve.
type FlowReport struct {
	RunID         string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Algorithm     string    `json:"algorithm,omitempty" yaml:"algorithm,omitempty"`
	Status        string    `json:"status,omitempty" yaml:"status,omitempty"`
	Cached        bool      `json:"cached,omitempty" yaml:"cached,omitempty"`
	Value         int64     `json:"value" yaml:"value"`
	Augmentations int       `json:"augmentations" yaml:"augmentations"`
	Phases        int       `json:"phases" yaml:"phases"`
	Blossoms      int       `json:"blossoms" yaml:"blossoms"`
	DurationMs    int64     `json:"duration_ms" yaml:"duration_ms"`
	Arcs          []ArcFlow `json:"arcs,omitempty" yaml:"arcs,omitempty"`
}

// ArcFlows lists the even edges of g. With nonZero only arcs carrying flow
// are kept.
func ArcFlows(g *graph.BalancedGraph, nonZero bool) []ArcFlow {
	out := make([]ArcFlow, 0, g.M()/2)
	for e := 0; e < g.M(); e += 2 {
		edge := g.Edge(e)
		if nonZero && edge.Flow == 0 {
			continue
		}
		out = append(out, ArcFlow{
			Edge:     e / 2,
			From:     edge.From,
			To:       edge.To,
			Capacity: edge.Capacity,
			Flow:     edge.Flow,
		})
	}
	return out
}

// Write encodes the report.
func (r *FlowReport) Write(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatXLSX:
		return r.writeExcel(w)
	}
	return unknownFormat(string(format))
}

// Sheet names of the xlsx report.
const (
	SheetSummary = "Summary"
	SheetArcs    = "Arc Flows"
)

var arcHeaders = []string{"Edge", "From", "To", "Capacity", "Flow", "Utilization"}

// writeExcel renders a workbook with a summary sheet and, when the report
// lists arcs, one row per arc.
func (r *FlowReport) writeExcel(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}

	summary := [][2]any{
		{"Run ID", r.RunID},
		{"Algorithm", r.Algorithm},
		{"Status", r.Status},
		{"Cached", r.Cached},
		{"Value", r.Value},
		{"Augmentations", r.Augmentations},
		{"Phases", r.Phases},
		{"Blossoms", r.Blossoms},
		{"Duration (ms)", r.DurationMs},
	}
	f.SetCellValue(SheetSummary, "A1", "Balanced Flow Report")
	f.SetCellStyle(SheetSummary, "A1", "B1", headerStyle)
	f.MergeCell(SheetSummary, "A1", "B1")
	for i, kv := range summary {
		row := i + 2
		f.SetCellValue(SheetSummary, cellAddr(1, row), kv[0])
		f.SetCellValue(SheetSummary, cellAddr(2, row), kv[1])
	}
	f.SetColWidth(SheetSummary, "A", "B", 20)

	if len(r.Arcs) > 0 {
		if _, err := f.NewSheet(SheetArcs); err != nil {
			return err
		}
		for i, h := range arcHeaders {
			f.SetCellValue(SheetArcs, cellAddr(i+1, 1), h)
		}
		f.SetCellStyle(SheetArcs, "A1", cellAddr(len(arcHeaders), 1), headerStyle)

		for i, a := range r.Arcs {
			row := i + 2
			f.SetCellValue(SheetArcs, cellAddr(1, row), a.Edge)
			f.SetCellValue(SheetArcs, cellAddr(2, row), a.From)
			f.SetCellValue(SheetArcs, cellAddr(3, row), a.To)
			f.SetCellValue(SheetArcs, cellAddr(4, row), a.Capacity)
			f.SetCellValue(SheetArcs, cellAddr(5, row), a.Flow)
			if a.Capacity > 0 {
				f.SetCellValue(SheetArcs, cellAddr(6, row), float64(a.Flow)/float64(a.Capacity))
			}
		}
		f.SetColWidth(SheetArcs, "A", "F", 12)
	}

	return f.Write(w)
}

func cellAddr(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
