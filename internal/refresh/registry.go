package refresh

import "context"

// Job is one reconciliation step run on every refresh cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Fetcher is anything that can reload itself from the remote store. Both
// sync engines satisfy it.
type Fetcher interface {
	Fetch(ctx context.Context) error
}

type fetchJob struct {
	name    string
	fetcher Fetcher
}

// FetchJob adapts a Fetcher into a Job.
func FetchJob(name string, fetcher Fetcher) Job {
	if fetcher == nil {
		return nil
	}
	return &fetchJob{name: name, fetcher: fetcher}
}

func (j *fetchJob) Name() string { return j.name }

func (j *fetchJob) Run(ctx context.Context) error { return j.fetcher.Fetch(ctx) }

// Registry tracks registered jobs.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry preloaded with the provided jobs.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds a job to the registry.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
