package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kubidu/kubidu/internal/errs"
	"github.com/kubidu/kubidu/internal/model"
	"github.com/kubidu/kubidu/internal/platform"
)

// maxImpactDepth bounds ImpactOf. Reference cycles are allowed, so the
// traversal also keeps a visited set.
const maxImpactDepth = 10

const (
	redactedValue        = "***"
	reservedEnvVarPrefix = "KUBIDU_"
)

var envVarKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// EnvVarGraph owns service variables and the reference edges between
// services.
type EnvVarGraph struct {
	vars     EnvVarRepository
	refs     EnvVarReferenceRepository
	services ServiceRepository
	cipher   Cipher
}

func NewEnvVarGraph(vars EnvVarRepository, refs EnvVarReferenceRepository, services ServiceRepository, cipher Cipher) *EnvVarGraph {
	return &EnvVarGraph{vars: vars, refs: refs, services: services, cipher: cipher}
}

// SystemVariable is a platform-injected variable.
type SystemVariable struct {
	Key   string
	Value string
}

// SystemVariables computes the platform variables describing a service.
// KUBIDU_PUBLIC_DOMAIN is only present when publicURL is set and parses.
func SystemVariables(serviceID, serviceName string, publicURL *string) []SystemVariable {
	out := []SystemVariable{
		{model.EnvServiceID, serviceID},
		{model.EnvServiceName, serviceName},
		{model.EnvPrivateDomain, platform.PrivateDomain(serviceName)},
	}
	if publicURL != nil {
		if host, ok := platform.Hostname(*publicURL); ok {
			out = append(out, SystemVariable{model.EnvPublicDomain, host})
		}
	}
	return out
}

// UpsertSystemVariables writes the system variables of a service. A key that
// already exists at service level is overwritten in place, so repeated calls
// never duplicate rows.
func (g *EnvVarGraph) UpsertSystemVariables(ctx context.Context, serviceID, serviceName string, publicURL *string) error {
	for _, kv := range SystemVariables(serviceID, serviceName, publicURL) {
		if err := g.upsert(ctx, serviceID, kv.Key, kv.Value, false, true); err != nil {
			return fmt.Errorf("upsert %s: %w", kv.Key, err)
		}
	}
	return nil
}

func (g *EnvVarGraph) upsert(ctx context.Context, serviceID, key, value string, isSecret, isSystem bool) error {
	sealed, err := g.cipher.Encrypt(value)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}

	return g.vars.Upsert(ctx, &model.EnvironmentVariable{
		ID:        platform.NewID(),
		ServiceID: serviceID,
		Key:       key,
		Value:     sealed,
		IsSecret:  isSecret,
		IsSystem:  isSystem,
	})
}

// ListVariables returns the service-level variables with values decrypted and
// secrets redacted.
func (g *EnvVarGraph) ListVariables(ctx context.Context, serviceID string) ([]model.EnvironmentVariable, error) {
	vars, err := g.vars.ListByService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	for i := range vars {
		if vars[i].IsSecret {
			vars[i].Value = redactedValue
			continue
		}
		plain, err := g.cipher.Decrypt(vars[i].Value)
		if err != nil {
			return nil, fmt.Errorf("decrypt %s: %w", vars[i].Key, err)
		}
		vars[i].Value = plain
	}
	return vars, nil
}

// SetVariable creates or overwrites a user variable. System keys are
// refused with ErrForbidden.
func (g *EnvVarGraph) SetVariable(ctx context.Context, serviceID, key, value string, isSecret bool) error {
	if !envVarKey.MatchString(key) {
		return errs.Invalid("invalid variable name %q", key)
	}
	if strings.HasPrefix(key, reservedEnvVarPrefix) {
		return errs.Forbidden("%s is reserved for system variables", key)
	}
	existing, err := g.vars.FindByKey(ctx, serviceID, key)
	if err == nil && existing.IsSystem {
		return errs.Forbidden("%s is a system variable", key)
	}
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	return g.upsert(ctx, serviceID, key, value, isSecret, false)
}

// DeleteVariable removes a user variable of the service.
func (g *EnvVarGraph) DeleteVariable(ctx context.Context, serviceID, variableID string) error {
	v, err := g.vars.GetByID(ctx, variableID)
	if err != nil {
		return err
	}
	if v.ServiceID != serviceID {
		return errs.NotFound("variable %s", variableID)
	}
	if v.IsSystem {
		return errs.Forbidden("%s is a system variable", v.Key)
	}
	return g.vars.Delete(ctx, variableID)
}

// AddReference declares that the consuming service reads key from the source
// service. Both services must exist in the same project. A service cannot
// reference itself.
func (g *EnvVarGraph) AddReference(ctx context.Context, consumingServiceID, sourceServiceID, key string, alias *string) (*model.EnvVarReference, error) {
	if consumingServiceID == sourceServiceID {
		return nil, errs.Invalid("a service cannot reference its own variables")
	}
	if !envVarKey.MatchString(key) {
		return nil, errs.Invalid("invalid variable name %q", key)
	}
	if alias != nil && !envVarKey.MatchString(*alias) {
		return nil, errs.Invalid("invalid alias %q", *alias)
	}

	consumer, err := g.services.GetByID(ctx, consumingServiceID)
	if err != nil {
		return nil, err
	}
	source, err := g.services.GetByID(ctx, sourceServiceID)
	if err != nil {
		return nil, err
	}
	if consumer.ProjectID != source.ProjectID {
		return nil, errs.Invalid("services %s and %s belong to different projects", consumingServiceID, sourceServiceID)
	}

	ref := &model.EnvVarReference{
		ID:                 platform.NewID(),
		ConsumingServiceID: consumingServiceID,
		SourceServiceID:    sourceServiceID,
		Key:                key,
		Alias:              alias,
	}
	if err := g.refs.Create(ctx, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

func (g *EnvVarGraph) RemoveReference(ctx context.Context, referenceID string) error {
	return g.refs.Delete(ctx, referenceID)
}

// ImpactOf returns the services that transitively consume variables of
// serviceID, in breadth-first order. The queried service is never part of the
// result and the walk stops after maxImpactDepth hops.
func (g *EnvVarGraph) ImpactOf(ctx context.Context, serviceID string) ([]string, error) {
	visited := map[string]bool{serviceID: true}
	var impacted []string
	frontier := []string{serviceID}

	for depth := 0; depth < maxImpactDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			edges, err := g.refs.ListBySource(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("list consumers of %s: %w", id, err)
			}
			for _, e := range edges {
				if visited[e.ConsumingServiceID] {
					continue
				}
				visited[e.ConsumingServiceID] = true
				impacted = append(impacted, e.ConsumingServiceID)
				next = append(next, e.ConsumingServiceID)
			}
		}
		frontier = next
	}

	if len(frontier) > 0 {
		zerolog.Ctx(ctx).Debug().Str("service_id", serviceID).Int("max_depth", maxImpactDepth).
			Msg("impact traversal reached depth limit")
	}
	return impacted, nil
}

// ProjectGraph returns the project's services and the reference edges
// between them.
func (g *EnvVarGraph) ProjectGraph(ctx context.Context, projectID string) (*model.DependencyGraph, error) {
	services, err := g.services.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	edges, err := g.refs.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	graph := &model.DependencyGraph{
		Nodes: make([]model.DependencyNode, 0, len(services)),
		Edges: edges,
	}
	for _, s := range services {
		graph.Nodes = append(graph.Nodes, model.DependencyNode{
			ServiceID: s.ID,
			Name:      s.Name,
			CanvasX:   s.CanvasX,
			CanvasY:   s.CanvasY,
		})
	}
	if graph.Edges == nil {
		graph.Edges = []model.EnvVarReference{}
	}
	return graph, nil
}
