package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2beens/liftlog/internal/workouts/sets"
	"github.com/2beens/liftlog/internal/workouts/volume"
)

// workoutsAnalyzer provides the derived workout views (for dependency injection and testing).
type workoutsAnalyzer interface {
	VolumeTable(ctx context.Context, filter sets.FilterParams) ([]volume.VolumeEntry, error)
	Exercises(ctx context.Context) ([]string, error)
	ExerciseStats(ctx context.Context) ([]volume.ExerciseStat, error)
	ExerciseSeries(ctx context.Context, exercise string) ([]volume.SeriesPoint, error)
	ExerciseSummary(ctx context.Context, exercise string) (volume.ExerciseStat, bool, error)
}

// Handler handles MCP tool requests and responses: parses input, calls the analyzer, formats MCP result.
type Handler struct {
	analyzer workoutsAnalyzer
}

func NewHandler(analyzer workoutsAnalyzer) *Handler {
	return &Handler{
		analyzer: analyzer,
	}
}

// NoInput is the input of the tools without arguments.
type NoInput struct{}

// VolumeTableInput is the input for get_volume_table.
type VolumeTableInput struct {
	FromDate string `json:"from_date,omitempty" jsonschema:"Start date, inclusive (YYYY-MM-DD)"`
	ToDate   string `json:"to_date,omitempty" jsonschema:"End date, inclusive (YYYY-MM-DD)"`
	Exercise string `json:"exercise,omitempty" jsonschema:"Exact exercise name (e.g. 懸垂)"`
}

// ExerciseInput is the input for the single exercise tools.
type ExerciseInput struct {
	Exercise string `json:"exercise" jsonschema:"Exact exercise name, as returned by list_exercises"`
}

// ListExercisesTool returns the MCP tool handler for list_exercises.
func (h *Handler) ListExercisesTool() func(context.Context, *mcp.CallToolRequest, NoInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
		exercises, err := h.analyzer.Exercises(ctx)
		if err != nil {
			return errorResult("Error listing exercises: " + err.Error()), nil, nil
		}
		return jsonResult(exercises), nil, nil
	}
}

// GetVolumeTableTool returns the MCP tool handler for get_volume_table.
func (h *Handler) GetVolumeTableTool() func(context.Context, *mcp.CallToolRequest, VolumeTableInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in VolumeTableInput) (*mcp.CallToolResult, any, error) {
		filter := sets.FilterParams{
			Exercise: strings.TrimSpace(in.Exercise),
		}

		var err error
		if in.FromDate != "" {
			if filter.From, err = volume.NormalizeStrict(in.FromDate); err != nil {
				return errorResult("Invalid from_date: use YYYY-MM-DD"), nil, nil
			}
		}
		if in.ToDate != "" {
			if filter.To, err = volume.NormalizeStrict(in.ToDate); err != nil {
				return errorResult("Invalid to_date: use YYYY-MM-DD"), nil, nil
			}
		}

		table, err := h.analyzer.VolumeTable(ctx, filter)
		if err != nil {
			return errorResult("Error computing volume table: " + err.Error()), nil, nil
		}
		return jsonResult(table), nil, nil
	}
}

// GetExerciseSeriesTool returns the MCP tool handler for get_exercise_series.
func (h *Handler) GetExerciseSeriesTool() func(context.Context, *mcp.CallToolRequest, ExerciseInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in ExerciseInput) (*mcp.CallToolResult, any, error) {
		exercise := strings.TrimSpace(in.Exercise)
		if exercise == "" {
			return errorResult("Missing exercise"), nil, nil
		}

		series, err := h.analyzer.ExerciseSeries(ctx, exercise)
		if err != nil {
			return errorResult("Error computing exercise series: " + err.Error()), nil, nil
		}
		return jsonResult(series), nil, nil
	}
}

// GetExerciseStatsTool returns the MCP tool handler for get_exercise_stats.
func (h *Handler) GetExerciseStatsTool() func(context.Context, *mcp.CallToolRequest, NoInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
		stats, err := h.analyzer.ExerciseStats(ctx)
		if err != nil {
			return errorResult("Error computing exercise stats: " + err.Error()), nil, nil
		}
		return jsonResult(stats), nil, nil
	}
}

// GetExerciseSummaryTool returns the MCP tool handler for get_exercise_summary.
func (h *Handler) GetExerciseSummaryTool() func(context.Context, *mcp.CallToolRequest, ExerciseInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in ExerciseInput) (*mcp.CallToolResult, any, error) {
		exercise := strings.TrimSpace(in.Exercise)
		if exercise == "" {
			return errorResult("Missing exercise"), nil, nil
		}

		summary, found, err := h.analyzer.ExerciseSummary(ctx, exercise)
		if err != nil {
			return errorResult("Error computing exercise summary: " + err.Error()), nil, nil
		}
		if !found {
			return errorResult("Exercise never logged: " + exercise), nil, nil
		}
		return jsonResult(summary), nil, nil
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding response: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
