package mcptools

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/hrygo/mirrormatch/server/service/matchmaker"
)

const instructions = "MirrorMatch scores personality vectors. Every tool is stateless: pass the vectors " +
	"you want compared. Scores are in [0,1]; a variable missing from a vector reads as 0.5."

// New registers every scoring tool on a fresh MCP server.
func New(svc *matchmaker.Service, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"mirrormatch",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	scoreTool := NewScoreTool(svc.Scorer())
	s.AddTool(scoreTool.Definition(), scoreTool.Handle)

	allContextsTool := NewAllContextsTool(svc.Scorer())
	s.AddTool(allContextsTool.Definition(), allContextsTool.Handle)

	redFlagTool := NewRedFlagTool()
	s.AddTool(redFlagTool.Definition(), redFlagTool.Handle)

	relationshipTool := NewRelationshipTool()
	s.AddTool(relationshipTool.Definition(), relationshipTool.Handle)

	teamTool := NewTeamTool(svc)
	s.AddTool(teamTool.Definition(), teamTool.Handle)

	return s
}
