package replicate

import (
	"context"
	"fmt"
	"net/http"
)

// Model is a destination model on the gateway that fine-tuned weights are
// pushed into.
type Model struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	Visibility    string `json:"visibility,omitempty"`
	LatestVersion *struct {
		ID string `json:"id"`
	} `json:"latest_version,omitempty"`
}

// createModelRequest is the body for model creation. Hardware is required
// by the gateway even for trainer-destination models.
type createModelRequest struct {
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	Visibility  string `json:"visibility"`
	Hardware    string `json:"hardware"`
	Description string `json:"description,omitempty"`
}

// GetModel fetches a model by owner and name. Returns an *APIError with
// StatusCode 404 when the model does not exist.
func (c *Client) GetModel(ctx context.Context, owner, name string) (*Model, error) {
	var out Model
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/models/%s/%s", owner, name), nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateModel creates a destination model on the gateway.
func (c *Client) CreateModel(ctx context.Context, owner, name, visibility, hardware, description string) (*Model, error) {
	body := createModelRequest{
		Owner:       owner,
		Name:        name,
		Visibility:  visibility,
		Hardware:    hardware,
		Description: description,
	}
	var out Model
	if err := c.do(ctx, http.MethodPost, "/models", body, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnsureModel fetches the model, creating it first if the gateway reports
// it missing. Safe to call repeatedly with the same name.
func (c *Client) EnsureModel(ctx context.Context, owner, name, visibility, hardware, description string) (*Model, error) {
	model, err := c.GetModel(ctx, owner, name)
	if err == nil {
		return model, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}
	return c.CreateModel(ctx, owner, name, visibility, hardware, description)
}
