package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/apperror"
	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/cache"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/algorithms"
	"github.com/jimmyskull/goblin.2.8b18-sub000/services/solver-svc/internal/graph"
)

func parse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := ParseNetwork(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func TestParseNetwork_ArcForms(t *testing.T) {
	doc := parse(t, `
pairs: 3
source: 0
arcs:
  - {from: 0, to: 2, capacity: 4}
  - [2, 5, 3]
  - [5, 1, 3, 1]
  - {from: 2, to: 4, unbounded: true}
`)

	require.Len(t, doc.Arcs, 4)
	assert.Equal(t, ArcSpec{From: 0, To: 2, Capacity: 4, line: 5}, doc.Arcs[0])
	assert.Equal(t, 2, doc.Arcs[1].From)
	assert.Equal(t, 5, doc.Arcs[1].To)
	assert.Equal(t, int64(3), doc.Arcs[1].Capacity)
	assert.Zero(t, doc.Arcs[1].Flow)
	assert.Equal(t, int64(1), doc.Arcs[2].Flow)
	assert.Equal(t, 7, doc.Arcs[2].line)
	assert.True(t, doc.Arcs[3].Unbounded)
}

func TestParseNetwork_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty document", ""},
		{"unknown field", "pairs: 2\nsinks: 3\n"},
		{"short sequence", "pairs: 2\narcs:\n  - [0, 2]\n"},
		{"long sequence", "pairs: 2\narcs:\n  - [0, 2, 1, 0, 9]\n"},
		{"not a number", "pairs: two\n"},
		{"unknown arc field", "pairs: 2\narcs:\n  - {from: 0, to: 2, cost: 1}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNetwork(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.CodeInvalidNetwork))
		})
	}
}

func TestReadNetworkFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pairs: 2\narcs: [[0, 2, 1], [2, 1, 1]]\n"), 0o644))

	doc, err := ReadNetworkFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Pairs)
	assert.Len(t, doc.Arcs, 2)

	_, err = ReadNetworkFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDocument_Validate(t *testing.T) {
	tests := []struct {
		name      string
		doc       Document
		wantCode  apperror.ErrorCode
		wantField string
	}{
		{"no nodes", Document{}, apperror.CodeInvalidNetwork, "pairs"},
		{"source out of range", Document{Pairs: 1, Source: 2}, apperror.CodeInvalidSource, "source"},
		{"negative source", Document{Pairs: 1, Source: -1}, apperror.CodeInvalidSource, "source"},
		{
			"arc out of range",
			Document{Pairs: 2, Arcs: []ArcSpec{{From: 0, To: 2, Capacity: 1}, {From: 0, To: 4, Capacity: 1}}},
			apperror.CodeOutOfRange, "arcs[1]",
		},
		{
			"negative capacity",
			Document{Pairs: 2, Arcs: []ArcSpec{{From: 0, To: 2, Capacity: -1}}},
			apperror.CodeInvalidArgument, "arcs[0]",
		},
		{
			"flow over capacity",
			Document{Pairs: 2, Arcs: []ArcSpec{{From: 0, To: 2, Capacity: 1, Flow: 2}}},
			apperror.CodeCapacityOverflow, "arcs[0]",
		},
		{
			"bidirectional with flow",
			Document{Pairs: 2, Arcs: []ArcSpec{{From: 0, To: 2, Capacity: 2, Flow: 1, Bidirectional: true}}},
			apperror.CodeInvalidArgument, "arcs[0]",
		},
		{
			"matching edge out of range",
			Document{Matching: &MatchingSpec{Vertices: 2, Edges: [][2]int{{0, 2}}}},
			apperror.CodeOutOfRange, "matching.edges[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.doc.Validate()
			require.True(t, v.HasErrors())
			first := v.First()
			assert.Equal(t, tt.wantCode, first.Code)
			assert.Equal(t, tt.wantField, first.Field)
		})
	}
}

func TestDocument_ValidateWarnsAboutDeadArcs(t *testing.T) {
	doc := Document{Pairs: 2, Arcs: []ArcSpec{{From: 2, To: 0, Capacity: 1}}}

	v := doc.Validate()
	assert.False(t, v.HasErrors())
	assert.Len(t, v.Warnings, 1)
}

func TestDocument_BuildMatching(t *testing.T) {
	doc := parse(t, `
source: 0
matching:
  vertices: 3
  edges: [[0, 1], [1, 2], [2, 0]]
`)

	g, err := doc.Build()
	require.NoError(t, err)
	assert.Equal(t, 8, g.N())
	assert.Equal(t, 12, g.M())
	assert.Equal(t, graph.Edge{From: 2, To: 5, Capacity: 1}, g.Edge(6))

	res, err := algorithms.MaxBalFlow(context.Background(), g, doc.Source, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Value)
}

func TestDocument_BuildMatchingWithExtraArcs(t *testing.T) {
	doc := Document{
		Pairs:    2,
		Matching: &MatchingSpec{Vertices: 2, Edges: [][2]int{{0, 1}}, Capacity: 3},
		Arcs:     []ArcSpec{{From: 2, To: 5, Capacity: 1}},
	}

	g, err := doc.Build()
	require.NoError(t, err)
	assert.Equal(t, 6, g.N(), "matching widens the network")
	assert.Equal(t, 8, g.M())
	assert.Equal(t, int64(3), g.Edge(0).Capacity)
	assert.Equal(t, graph.Edge{From: 2, To: 5, Capacity: 1}, g.Edge(6))
}

func TestDocument_BuildInitialFlow(t *testing.T) {
	// s -> x -> y' -> t with one unit already routed
	doc := parse(t, `
pairs: 3
arcs:
  - [0, 2, 1, 1]
  - [2, 5, 1, 1]
  - [5, 1, 1, 1]
`)

	g, err := doc.Build()
	require.NoError(t, err)
	assert.Equal(t, int64(2), g.FlowValue(0))
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 1}, g.Flows())
}

func TestDocument_BuildRejectsUnconservedFlow(t *testing.T) {
	doc := Document{Pairs: 2, Arcs: []ArcSpec{{From: 0, To: 2, Capacity: 1, Flow: 1}}}

	_, err := doc.Build()
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidNetwork))
}

func TestDocument_BuildBidirectionalAndUnbounded(t *testing.T) {
	doc := Document{Pairs: 2, Arcs: []ArcSpec{
		{From: 0, To: 2, Unbounded: true},
		{From: 2, To: 3, Capacity: 5, Bidirectional: true},
	}}

	g, err := doc.Build()
	require.NoError(t, err)
	assert.Equal(t, 6, g.M())
	assert.Equal(t, graph.Infinity, g.Edge(0).Capacity)
	assert.Equal(t, 3, g.Edge(4).From)
	assert.Equal(t, 2, g.Edge(4).To)
}

func TestDocument_BuildInvalid(t *testing.T) {
	_, err := (&Document{Pairs: 1, Source: 5}).Build()
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidSource))
}

func TestNetworkKey(t *testing.T) {
	g, err := parse(t, "pairs: 3\narcs: [[0, 2, 1, 1], [2, 5, 1, 1], [5, 1, 1, 1]]\n").Build()
	require.NoError(t, err)

	key := NetworkKey(g, 0)
	assert.Equal(t, 6, key.Nodes)
	assert.Equal(t, 0, key.Source)
	require.Len(t, key.Arcs, g.M())
	assert.Equal(t, cache.NetworkArc{From: 0, To: 2, Capacity: 1, Flow: 1}, key.Arcs[0])

	other := NetworkKey(g, 2)
	assert.NotEqual(t, cache.NetworkHash(key), cache.NetworkHash(other))
}

func TestArcFlows(t *testing.T) {
	g, err := parse(t, "matching: {vertices: 2, edges: [[0, 1]]}\n").Build()
	require.NoError(t, err)
	_, err = algorithms.MaxBalFlow(context.Background(), g, 0, nil)
	require.NoError(t, err)

	all := ArcFlows(g, false)
	assert.Len(t, all, 3)

	used := ArcFlows(g, true)
	assert.NotEmpty(t, used)
	for _, a := range used {
		assert.Positive(t, a.Flow)
		assert.Equal(t, g.Edge(2*a.Edge).Flow, a.Flow)
	}
}

func TestFlowReport_Write(t *testing.T) {
	report := &FlowReport{
		RunID:     "r1",
		Algorithm: "phase",
		Status:    "optimal",
		Value:     2,
		Arcs:      []ArcFlow{{Edge: 0, From: 0, To: 2, Capacity: 1, Flow: 1}},
	}

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, report.Write(&buf, FormatYAML))

		var back FlowReport
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
		assert.Equal(t, *report, back)
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, report.Write(&buf, FormatJSON))
		assert.Contains(t, buf.String(), `"run_id": "r1"`)

		var back FlowReport
		require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
		assert.Equal(t, *report, back)
	})

	t.Run("xlsx", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, report.Write(&buf, FormatXLSX))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, []string{SheetSummary, SheetArcs}, f.GetSheetList())

		rows, err := f.GetRows(SheetSummary)
		require.NoError(t, err)
		summary := map[string]string{}
		for _, row := range rows[1:] {
			require.Len(t, row, 2)
			summary[row[0]] = row[1]
		}
		assert.Equal(t, "r1", summary["Run ID"])
		assert.Equal(t, "phase", summary["Algorithm"])
		assert.Equal(t, "2", summary["Value"])

		rows, err = f.GetRows(SheetArcs)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, arcHeaders, rows[0])
		assert.Equal(t, []string{"0", "0", "2", "1", "1", "1"}, rows[1])
	})

	t.Run("xlsx without arcs", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&FlowReport{Value: 0}).Write(&buf, FormatXLSX))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, []string{SheetSummary}, f.GetSheetList())
	})

	t.Run("unknown", func(t *testing.T) {
		err := report.Write(&bytes.Buffer{}, Format("xml"))
		require.Error(t, err)
		assert.True(t, apperror.Is(err, apperror.CodeInvalidOption))
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatYAML, false},
		{"YAML", FormatYAML, false},
		{"yml", FormatYAML, false},
		{" json ", FormatJSON, false},
		{"xlsx", FormatXLSX, false},
		{"Excel", FormatXLSX, false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperror.Is(err, apperror.CodeInvalidOption))
				var appErr *apperror.Error
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, "format", appErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
