package replicate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Training is the gateway's view of a fine-tune job. Output carries the
// trained version identifier and weights URL once the job succeeds.
type Training struct {
	ID     string                 `json:"id"`
	Status string                 `json:"status"`
	Input  map[string]interface{} `json:"input,omitempty"`
	Output *TrainingOutput        `json:"output,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// TrainingOutput is the result payload of a finished training.
type TrainingOutput struct {
	Version string `json:"version,omitempty"`
	Weights string `json:"weights,omitempty"`
}

// UnmarshalJSON tolerates the gateway sending error as a non-string (some
// trainer versions emit structured errors).
func (t *Training) UnmarshalJSON(data []byte) error {
	type alias struct {
		ID     string                 `json:"id"`
		Status string                 `json:"status"`
		Input  map[string]interface{} `json:"input,omitempty"`
		Output *TrainingOutput        `json:"output,omitempty"`
		Error  json.RawMessage        `json:"error,omitempty"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	t.ID = a.ID
	t.Status = a.Status
	t.Input = a.Input
	t.Output = a.Output
	if len(a.Error) > 0 && string(a.Error) != "null" {
		var s string
		if err := json.Unmarshal(a.Error, &s); err == nil {
			t.Error = s
		} else {
			t.Error = string(a.Error)
		}
	}
	return nil
}

// trainingRequest is the body for starting a training against a trainer
// version.
type trainingRequest struct {
	Destination string                 `json:"destination"`
	Input       map[string]interface{} `json:"input"`
}

// StartTraining launches a fine-tune on the given trainer model version.
// destination is "owner/name" of the model the trained weights land in.
func (c *Client) StartTraining(ctx context.Context, trainerModel, trainerVersion, destination string, input map[string]interface{}) (*Training, error) {
	path := fmt.Sprintf("/models/%s/versions/%s/trainings", trainerModel, trainerVersion)
	body := trainingRequest{Destination: destination, Input: input}
	var out Training
	if err := c.do(ctx, http.MethodPost, path, body, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTraining fetches the current state of a training by gateway ID.
func (c *Client) GetTraining(ctx context.Context, id string) (*Training, error) {
	var out Training
	if err := c.do(ctx, http.MethodGet, "/trainings/"+id, nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}
