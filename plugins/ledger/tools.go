package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/va6996/tokenagent/tools"
)

// registerTools defines every catalog entry on gk and pairs it with an
// executor in registry. Either being nil skips registration.
func (c *Client) registerTools(gk *genkit.Genkit, registry *tools.Registry) {
	if gk == nil || registry == nil {
		return
	}

	for _, op := range Operations {
		registry.Register(op.define(gk, op, c), func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return c.Call(ctx, op.Name, args)
		})
	}
}

// defineTool registers op with genkit using In as the argument schema.
// The genkit-side function returns the JSON-encoded result, the form the
// model receives it in.
func defineTool[In any](gk *genkit.Genkit, op Operation, c *Client) ai.Tool {
	return genkit.DefineTool[In, string](
		gk,
		op.Name,
		op.Description,
		func(ctx *ai.ToolContext, input In) (string, error) {
			args, err := toArgs(input)
			if err != nil {
				return "", err
			}
			b, err := json.Marshal(c.execute(ctx, op, args))
			if err != nil {
				return "", fmt.Errorf("failed to encode result: %w", err)
			}
			return string(b), nil
		},
	)
}

func toArgs(input interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}
	args := map[string]interface{}{}
	if err := json.Unmarshal(b, &args); err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}
	return args, nil
}
