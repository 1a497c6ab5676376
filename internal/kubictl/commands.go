package kubictl

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
)

// DefaultAPIURL is the core API address used when none is configured.
const DefaultAPIURL = "http://localhost:8090"

type deployment struct {
	ID             string  `json:"id"`
	Status         string  `json:"status"`
	ImageTag       *string `json:"image_tag"`
	GitCommitSHA   *string `json:"git_commit_sha"`
	RolledBackFrom *string `json:"rolled_back_from"`
	CreatedAt      string  `json:"created_at"`
}

// Rollback redeploys the configuration of deploymentID for serviceID.
func Rollback(ctx context.Context, client *Client, serviceID, deploymentID string, out io.Writer) error {
	resp, err := client.Post(ctx, fmt.Sprintf("/services/%s/rollback", serviceID), map[string]string{
		"deployment_id": deploymentID,
	})
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}

	var d deployment
	if err := resp.Decode(&d); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deployment %s created (%s), rolled back from %s\n", d.ID, d.Status, deploymentID)
	return nil
}

// Deployments prints the most recent deployments of a service.
func Deployments(ctx context.Context, client *Client, serviceID string, limit int, out io.Writer) error {
	resp, err := client.Get(ctx, fmt.Sprintf("/services/%s/deployments?limit=%d", serviceID, limit))
	if err != nil {
		return fmt.Errorf("list deployments: %w", err)
	}

	var page struct {
		Items []deployment `json:"items"`
	}
	if err := resp.Decode(&page); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tREVISION\tCREATED")
	for _, d := range page.Items {
		rev := "-"
		switch {
		case d.GitCommitSHA != nil:
			rev = *d.GitCommitSHA
		case d.ImageTag != nil:
			rev = *d.ImageTag
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Status, rev, d.CreatedAt)
	}
	return tw.Flush()
}

// Impact prints the services affected by a change to serviceID.
func Impact(ctx context.Context, client *Client, serviceID string, out io.Writer) error {
	resp, err := client.Get(ctx, fmt.Sprintf("/services/%s/impact", serviceID))
	if err != nil {
		return fmt.Errorf("impact: %w", err)
	}

	var body struct {
		Affected []string `json:"affected_service_ids"`
	}
	if err := resp.Decode(&body); err != nil {
		return err
	}

	if len(body.Affected) == 0 {
		fmt.Fprintf(out, "No services reference %s\n", serviceID)
		return nil
	}
	fmt.Fprintf(out, "%d service(s) affected by changes to %s:\n", len(body.Affected), serviceID)
	for _, id := range body.Affected {
		fmt.Fprintf(out, "  %s\n", id)
	}
	return nil
}
