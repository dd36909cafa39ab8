package plugin

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/agentdeck/agentdeck/pkg/manifest"
)

// DependencyResolver orders plugins by their declared requirements and
// validates version constraints.
type DependencyResolver struct {
	logger zerolog.Logger
}

// NewDependencyResolver creates a new dependency resolver.
func NewDependencyResolver(logger zerolog.Logger) *DependencyResolver {
	return &DependencyResolver{
		logger: logger.With().Str("component", "dependency-resolver").Logger(),
	}
}

// BuildGraph builds a dependency graph from loaded manifests.
func (r *DependencyResolver) BuildGraph(manifests map[string]*manifest.Manifest) *DependencyGraph {
	graph := &DependencyGraph{
		Nodes: make(map[string]*manifest.Manifest),
		Edges: make(map[string][]string),
	}

	for id, m := range manifests {
		graph.Nodes[id] = m
		graph.Edges[id] = []string{}
	}
	for id, m := range graph.Nodes {
		for _, req := range m.Requires {
			graph.Edges[id] = append(graph.Edges[id], req.ID)
		}
	}

	return graph
}

// Validate checks that every requirement exists and satisfies its version
// constraint. Returns one error per offending plugin.
func (r *DependencyResolver) Validate(graph *DependencyGraph) map[string]error {
	errs := make(map[string]error)

	for id, m := range graph.Nodes {
		for _, req := range m.Requires {
			dep, exists := graph.Nodes[req.ID]
			if !exists {
				errs[id] = fmt.Errorf("missing required plugin: %s", req.ID)
				r.logger.Error().Str("plugin", id).Str("requires", req.ID).Msg("Missing required plugin")
				continue
			}
			if req.Version == "" {
				continue
			}
			if err := checkConstraint(dep.Version, req.Version); err != nil {
				errs[id] = fmt.Errorf("requirement %s: %w", req.ID, err)
				r.logger.Error().
					Str("plugin", id).
					Str("requires", req.ID).
					Str("constraint", req.Version).
					Str("actual", dep.Version).
					Msg("Requirement version not satisfied")
			}
		}
	}

	return errs
}

func checkConstraint(version, constraint string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid version %s: %w", version, err)
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %s: %w", constraint, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("version %s does not satisfy constraint %s", version, constraint)
	}
	return nil
}

// LoadOrder topologically sorts the graph so requirements come before
// dependents. Plugins caught in a requirement cycle, and plugins that
// require a cycle member, are left out of the order and reported per
// plugin; the rest of the graph still loads.
func (r *DependencyResolver) LoadOrder(graph *DependencyGraph) ([]string, map[string]error) {
	var sorted []string
	visited := make(map[string]bool)
	inStack := make(map[string]bool)
	failed := make(map[string]error)

	var visit func(string) bool
	visit = func(id string) bool {
		if inStack[id] {
			failed[id] = fmt.Errorf("requirement cycle detected at %s", id)
			return false
		}
		if visited[id] {
			return failed[id] == nil
		}
		inStack[id] = true
		ok := true
		var badDep string
		for _, depID := range graph.Edges[id] {
			if _, exists := graph.Nodes[depID]; !exists {
				continue // reported by Validate
			}
			if !visit(depID) {
				ok = false
				badDep = depID
			}
		}
		inStack[id] = false
		visited[id] = true
		if !ok {
			if _, inCycle := failed[id]; !inCycle {
				failed[id] = fmt.Errorf("required plugin %s is part of a requirement cycle", badDep)
			}
			return false
		}
		sorted = append(sorted, id)
		return true
	}

	for id := range graph.Nodes {
		if !visited[id] {
			visit(id)
		}
	}

	if len(failed) > 0 {
		ids := make([]string, 0, len(failed))
		for id := range failed {
			ids = append(ids, id)
		}
		r.logger.Error().Strs("plugins", ids).Msg("Requirement cycle detected")
	}
	r.logger.Debug().Strs("order", sorted).Msg("Computed plugin load order")
	return sorted, failed
}
