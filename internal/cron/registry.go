package cron

import (
	"context"
	"fmt"
)

// Job is a unit of scheduled maintenance run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in registration order. Names must be unique.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry builds a registry from jobs, skipping nils.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{names: make(map[string]struct{})}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register appends job. Registering the same name twice is an error.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	if r.names == nil {
		r.names = make(map[string]struct{})
	}
	name := job.Name()
	if name == "" {
		return fmt.Errorf("cron job name required")
	}
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("cron job %q already registered", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

func (r *Registry) Len() int { return len(r.jobs) }
