package kubictl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

type namedResource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ErrNotFound is returned by the Find helpers when no resource matches.
var ErrNotFound = errors.New("not found")

// FindServiceByName returns the ID of the named service in a project.
func (c *Client) FindServiceByName(ctx context.Context, projectID, name string) (string, error) {
	return c.findByName(ctx, fmt.Sprintf("/projects/%s/services", projectID), name)
}

func (c *Client) findByName(ctx context.Context, path, name string) (string, error) {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return "", err
	}

	items, err := resp.Items()
	if err != nil {
		return "", fmt.Errorf("parse resources from %s: %w", path, err)
	}

	var resources []namedResource
	if err := json.Unmarshal(items, &resources); err != nil {
		return "", fmt.Errorf("parse resources from %s: %w", path, err)
	}

	for _, r := range resources {
		if r.Name == name {
			return r.ID, nil
		}
	}
	return "", fmt.Errorf("%q at %s: %w", name, path, ErrNotFound)
}
