package replicate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Prediction is the gateway's view of a model run. Output shape varies by
// model, so it is kept raw and interpreted by NormalizeOutput.
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// predictionRequest is the body for a versioned prediction.
type predictionRequest struct {
	Version string                 `json:"version"`
	Input   map[string]interface{} `json:"input"`
}

// Run executes a model synchronously and returns the finished prediction.
// ref is either "owner/name:version" or "owner/name"; the latter runs the
// model's latest version via the models endpoint. The Prefer: wait header
// asks the gateway to hold the connection until the run completes.
func (c *Client) Run(ctx context.Context, ref string, input map[string]interface{}) (*Prediction, error) {
	headers := map[string]string{"Prefer": "wait"}
	var out Prediction

	if _, version, ok := strings.Cut(ref, ":"); ok {
		body := predictionRequest{Version: version, Input: input}
		if err := c.do(ctx, http.MethodPost, "/predictions", body, &out, headers); err != nil {
			return nil, err
		}
	} else {
		body := map[string]interface{}{"input": input}
		path := fmt.Sprintf("/models/%s/predictions", ref)
		if err := c.do(ctx, http.MethodPost, path, body, &out, headers); err != nil {
			return nil, err
		}
	}

	if out.Status == "failed" || out.Status == "canceled" {
		msg := out.Error
		if msg == "" {
			msg = out.Status
		}
		return &out, fmt.Errorf("model run %s: %s", ref, msg)
	}
	return &out, nil
}
