package httpapi

import (
	"log/slog"

	"github.com/jkaninda/okapi"

	"github.com/swarmaid/swarmaid/internal/orchestrator"
)

// ResultEvent is the name of the final SSE event carrying the full result.
const ResultEvent = "result"

// handleSimulateStream handles GET /simulate/stream. Every pipeline event is
// written as an SSE event named after its type, followed by a final
// "result" event with the same body /simulate returns.
func (g *Gateway) handleSimulateStream(c *okapi.Context) error {
	scenario := scenarioParam(c)
	if scenario == "" {
		return c.AbortBadRequest("scenario is required")
	}
	ctx := g.runContext(c)

	g.logger.InfoContext(ctx, "http simulate stream",
		slog.String("client", clientKey(c.Request())),
	)

	res := g.simulator.Run(ctx, scenario, func(e orchestrator.Event) {
		c.SSEvent(string(e.Type), e)
	})
	c.SSEvent(ResultEvent, res)
	return nil
}
