package kubictl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSeedConfig reads a seed file. The API key falls back to KUBIDU_API_KEY.
func LoadSeedConfig(path string) (*SeedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg SeedConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("KUBIDU_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key: set api_key in config or KUBIDU_API_KEY env var")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	return &cfg, nil
}

// Seed creates the services, variables and references described in
// configPath. Existing services are reused by name, so seeding is repeatable.
func Seed(ctx context.Context, configPath string, out io.Writer) error {
	cfg, err := LoadSeedConfig(configPath)
	if err != nil {
		return err
	}
	return ApplySeed(ctx, NewClient(cfg.APIURL, cfg.APIKey), cfg, out)
}

// ApplySeed runs the seed against client. References are added after every
// service of the project exists so they may point forward.
func ApplySeed(ctx context.Context, client *Client, cfg *SeedConfig, out io.Writer) error {
	for _, p := range cfg.Projects {
		if p.ID == "" {
			return fmt.Errorf("project without id")
		}
		fmt.Fprintf(out, "Project %s\n", p.ID)

		serviceMap := map[string]string{} // service name -> ID
		for _, s := range p.Services {
			id, err := ensureService(ctx, client, p.ID, s, out)
			if err != nil {
				return err
			}
			serviceMap[s.Name] = id

			for _, v := range s.Variables {
				path := fmt.Sprintf("/services/%s/variables/%s", id, v.Key)
				if _, err := client.Put(ctx, path, map[string]any{"value": v.Value, "is_secret": v.Secret}); err != nil {
					return fmt.Errorf("set %s on %q: %w", v.Key, s.Name, err)
				}
				fmt.Fprintf(out, "  Variable %s.%s set\n", s.Name, v.Key)
			}
		}

		for _, s := range p.Services {
			for _, ref := range s.References {
				if err := addReference(ctx, client, serviceMap, s.Name, ref, out); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func ensureService(ctx context.Context, client *Client, projectID string, s ServiceDef, out io.Writer) (string, error) {
	id, err := client.FindServiceByName(ctx, projectID, s.Name)
	if err == nil {
		fmt.Fprintf(out, "  Service %q: exists (%s, skipping)\n", s.Name, id)
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("look up service %q: %w", s.Name, err)
	}

	resp, err := client.Post(ctx, fmt.Sprintf("/projects/%s/services", projectID), serviceBody(s))
	if err != nil {
		return "", fmt.Errorf("create service %q: %w", s.Name, err)
	}
	var created struct {
		ID        string `json:"id"`
		Subdomain string `json:"subdomain"`
	}
	if err := resp.Decode(&created); err != nil {
		return "", fmt.Errorf("parse service %q: %w", s.Name, err)
	}
	fmt.Fprintf(out, "  Service %q: %s created (subdomain %s)\n", s.Name, created.ID, created.Subdomain)
	return created.ID, nil
}

func serviceBody(s ServiceDef) map[string]any {
	kind := s.SourceKind
	if kind == "" {
		kind = "image"
		if s.Repository != "" {
			kind = "repository"
		}
	}

	body := map[string]any{
		"name":        s.Name,
		"source_kind": kind,
	}
	setIf := func(key, value string) {
		if value != "" {
			body[key] = value
		}
	}
	setIf("image_url", s.ImageURL)
	setIf("image_tag", s.ImageTag)
	setIf("subdomain", s.Subdomain)
	setIf("start_command", s.StartCommand)
	setIf("branch", s.Branch)
	setIf("installation_ref", s.Installation)
	if s.Repository != "" {
		body["repo_full_name"] = s.Repository
		body["repository_url"] = "https://github.com/" + s.Repository
		body["repository_provider"] = "github"
	}
	if s.Port != 0 {
		body["port"] = s.Port
	}
	if s.Replicas != nil {
		body["replicas"] = *s.Replicas
	}
	return body
}

func addReference(ctx context.Context, client *Client, serviceMap map[string]string, consumer string, ref ReferenceDef, out io.Writer) error {
	sourceID, ok := serviceMap[ref.Service]
	if !ok {
		return fmt.Errorf("reference from %q: service %q is not part of the project seed", consumer, ref.Service)
	}

	body := map[string]any{"source_service_id": sourceID, "key": ref.Key}
	if ref.Alias != "" {
		body["alias"] = ref.Alias
	}

	_, err := client.Post(ctx, fmt.Sprintf("/services/%s/references", serviceMap[consumer]), body)
	var apiErr *APIError
	switch {
	case err == nil:
		fmt.Fprintf(out, "  Reference %s -> %s.%s added\n", consumer, ref.Service, ref.Key)
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict:
		fmt.Fprintf(out, "  Reference %s -> %s.%s: exists (skipping)\n", consumer, ref.Service, ref.Key)
	default:
		return fmt.Errorf("reference %s -> %s.%s: %w", consumer, ref.Service, ref.Key, err)
	}
	return nil
}
