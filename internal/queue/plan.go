package queue

import (
	"fmt"
	"strings"
)

// sortLayers groups jobs into dependency layers: every job in layer N only
// depends on jobs in layers < N. Layer order is execution order; jobs inside
// a layer are independent of each other.
func sortLayers(jobs []Job) ([][]Job, error) {
	byID := make(map[string]Job, len(jobs))
	for i, job := range jobs {
		id := strings.TrimSpace(job.ID)
		if id == "" {
			return nil, fmt.Errorf("job #%d missing id", i+1)
		}
		if _, exists := byID[id]; exists {
			return nil, fmt.Errorf("duplicate job id: %s", id)
		}
		byID[id] = job
	}

	indegree := make(map[string]int, len(jobs))
	dependents := make(map[string][]string, len(jobs))
	for _, job := range jobs {
		for _, dep := range job.Dependencies {
			dep = strings.TrimSpace(dep)
			if dep == "" {
				continue
			}
			if _, known := byID[dep]; !known {
				return nil, fmt.Errorf("job %q depends on unknown job %q", job.ID, dep)
			}
			if dep == job.ID {
				return nil, fmt.Errorf("job %q depends on itself", job.ID)
			}
			indegree[job.ID]++
			dependents[dep] = append(dependents[dep], job.ID)
		}
	}

	// Kahn's algorithm, peeling one layer at a time. Layers preserve the
	// original push order so results stay deterministic.
	var layers [][]Job
	remaining := len(jobs)
	ready := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		if indegree[job.ID] == 0 {
			ready[job.ID] = true
		}
	}

	for remaining > 0 {
		var layer []Job
		for _, job := range jobs {
			if ready[job.ID] {
				layer = append(layer, job)
			}
		}
		if len(layer) == 0 {
			var stuck []string
			for _, job := range jobs {
				if indegree[job.ID] > 0 {
					stuck = append(stuck, job.ID)
				}
			}
			return nil, fmt.Errorf("dependency cycle involving: %s", strings.Join(stuck, ", "))
		}

		next := make(map[string]bool, len(jobs))
		for _, job := range layer {
			ready[job.ID] = false
			indegree[job.ID] = -1
			for _, dep := range dependents[job.ID] {
				indegree[dep]--
				if indegree[dep] == 0 {
					next[dep] = true
				}
			}
		}
		for id := range next {
			ready[id] = true
		}

		layers = append(layers, layer)
		remaining -= len(layer)
	}

	return layers, nil
}
