// Package audit implements the Critic's plan auditor tool.
package audit

import (
	"context"
	"fmt"

	"github.com/swarmaid/swarmaid/internal/tools"
)

// Tool acknowledges the plan it was asked to check; the critique itself
// comes from the model.
type Tool struct{}

var _ tools.Tool = (*Tool)(nil)

// NewTool creates the plan auditor.
func NewTool() *Tool { return &Tool{} }

func (t *Tool) Name() string        { return "Plan Auditor" }
func (t *Tool) Description() string { return "Audit disaster response plans and catch unsafe errors" }

func (t *Tool) Execute(_ context.Context, query string) (*tools.Result, error) {
	return tools.Brief(fmt.Sprintf("(Critique: Checked plan for unsafe routes or errors in %s)", query)), nil
}
