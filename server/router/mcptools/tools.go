package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hrygo/mirrormatch/matching"
	"github.com/hrygo/mirrormatch/server/service/matchmaker"
)

// ScoreTool handles score_match.
type ScoreTool struct {
	scorer *matching.Scorer
}

func NewScoreTool(scorer *matching.Scorer) *ScoreTool {
	return &ScoreTool{scorer: scorer}
}

func (t *ScoreTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Score two personality vectors in one context. Returns score, grade, group scores, top strengths and tensions, and rule adjustments."),
		contextOption(),
	}, vectorPairOptions()...)
	return mcp.NewTool("score_match", opts...)
}

func (t *ScoreTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, b, err := pairArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := contextArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := t.scorer.Score(a, b, c)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scoring failed: %v", err)), nil
	}
	return jsonResult(result)
}

// AllContextsTool handles all_context_scores.
type AllContextsTool struct {
	scorer *matching.Scorer
}

func NewAllContextsTool(scorer *matching.Scorer) *AllContextsTool {
	return &AllContextsTool{scorer: scorer}
}

func (t *AllContextsTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Score two personality vectors in every context and name the best one."),
	}, vectorPairOptions()...)
	return mcp.NewTool("all_context_scores", opts...)
}

func (t *AllContextsTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, b, err := pairArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	scores, err := t.scorer.AllContextScores(a, b)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scoring failed: %v", err)), nil
	}
	return jsonResult(scores)
}

// RedFlagTool handles red_flag_radar.
type RedFlagTool struct{}

func NewRedFlagTool() *RedFlagTool {
	return &RedFlagTool{}
}

func (t *RedFlagTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List the friction warnings between two personality vectors in a context, with an overall risk level."),
		contextOption(),
	}, vectorPairOptions()...)
	return mcp.NewTool("red_flag_radar", opts...)
}

func (t *RedFlagTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, b, err := pairArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := contextArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := matching.RedFlagRadar(a, b, c)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

// RelationshipTool handles relationship_type.
type RelationshipTool struct{}

func NewRelationshipTool() *RelationshipTool {
	return &RelationshipTool{}
}

func (t *RelationshipTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Predict the natural dynamic between two people, with tags and a long-term outlook."),
	}, vectorPairOptions()...)
	return mcp.NewTool("relationship_type", opts...)
}

func (t *RelationshipTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, b, err := pairArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(matching.RelationshipType(a, b))
}

// TeamTool handles optimize_team.
type TeamTool struct {
	svc *matchmaker.Service
}

func NewTeamTool(svc *matchmaker.Service) *TeamTool {
	return &TeamTool{svc: svc}
}

func (t *TeamTool) Definition() mcp.Tool {
	return mcp.NewTool("optimize_team",
		mcp.WithDescription(
			fmt.Sprintf("Find the best hackathon team of team_size people from a pool of at most %d. "+
				"Searches of more than %d candidate teams are rejected. "+
				"Returns the team, its pairwise scores, role coverage, gaps and runner-up teams.",
				t.svc.Optimizer().MaxPool(), t.svc.Optimizer().MaxSubsets()),
		),
		mcp.WithArray("vectors",
			mcp.Required(),
			mcp.Description("Personality vectors of the pool, one per name"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithArray("names",
			mcp.Required(),
			mcp.Description("Names of the pool members, in the same order as vectors"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithNumber("team_size",
			mcp.Description("Team size (default: 4, min: 2)"),
		),
	)
}

func (t *TeamTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var vectors []*matching.PersonalityVector
	if err := decodeArg(req, "vectors", &vectors); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var names []string
	if err := decodeArg(req, "names", &names); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for i, v := range vectors {
		if err := v.Validate(); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("vectors[%d]: %v", i, err)), nil
		}
	}

	result, err := t.svc.OptimizeNamed(ctx, names, vectors, intArg(req, "team_size", 4))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("team search failed: %v", err)), nil
	}
	return jsonResult(result)
}
