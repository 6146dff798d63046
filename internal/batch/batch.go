// Package batch scores many degraded recordings described by a YAML manifest.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-mos/internal/common"
	"github.com/cwbudde/algo-mos/mos"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// DefaultReference is the reference clip used by jobs that name none.
const DefaultReference = "reference.mp3"

type Manifest struct {
	ReferenceDir string `yaml:"reference_dir"`
	Jobs         []Job  `yaml:"jobs"`
}

type Job struct {
	ID        string `yaml:"id" json:"id"`
	Reference string `yaml:"reference" json:"reference"`
	Degraded  string `yaml:"degraded" json:"degraded"`
}

// Record is the outcome of one job. Exactly one of Report and Error is set.
type Record struct {
	Job     `yaml:",inline"`
	Outcome string      `json:"outcome" yaml:"outcome"`
	Report  *mos.Report `json:"report,omitempty" yaml:"report,omitempty"`
	Error   string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// LoadManifest reads a manifest and resolves every job's paths. Relative
// references resolve against the manifest's reference_dir, or
// defaultReferenceDir when it has none; relative degraded paths resolve
// against the manifest's own directory.
func LoadManifest(path, defaultReferenceDir string) ([]Job, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("manifest %s has no jobs", path)
	}

	base := filepath.Dir(path)
	refDir := defaultReferenceDir
	if m.ReferenceDir != "" {
		refDir = m.ReferenceDir
		if !filepath.IsAbs(refDir) {
			refDir = filepath.Join(base, refDir)
		}
	}

	jobs := make([]Job, len(m.Jobs))
	for i, j := range m.Jobs {
		if j.Degraded == "" {
			return nil, fmt.Errorf("manifest %s: job %d has no degraded path", path, i+1)
		}
		if j.ID == "" {
			j.ID = uuid.NewString()
		}
		if j.Reference == "" {
			j.Reference = DefaultReference
		}
		if !filepath.IsAbs(j.Reference) {
			j.Reference = filepath.Join(refDir, j.Reference)
		}
		if !filepath.IsAbs(j.Degraded) {
			j.Degraded = filepath.Join(base, j.Degraded)
		}
		jobs[i] = j
	}
	return jobs, nil
}

// Evaluator is the part of *mos.Evaluator the runner needs.
type Evaluator interface {
	Evaluate(ctx context.Context, referencePath, degradedPath string) (mos.Result, error)
}

// Run evaluates jobs on up to workers goroutines (0 means GOMAXPROCS). The
// records keep the order of jobs. Jobs not started before ctx is done are
// recorded as canceled.
func Run(ctx context.Context, ev Evaluator, jobs []Job, workers int, labels mos.Labels) []Record {
	records := make([]Record, len(jobs))
	workers = common.ResolveWorkers(workers)
	if workers > len(jobs) {
		workers = len(jobs)
	}

	var next int64 = -1
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&next, 1))
				if i >= len(jobs) {
					return
				}
				records[i] = runOne(ctx, ev, jobs[i], labels)
			}
		}()
	}
	wg.Wait()
	return records
}

func runOne(ctx context.Context, ev Evaluator, job Job, labels mos.Labels) Record {
	rec := Record{Job: job}
	if err := ctx.Err(); err != nil {
		rec.Outcome = mos.OutcomeOf(err)
		rec.Error = err.Error()
		return rec
	}
	res, err := ev.Evaluate(ctx, job.Reference, job.Degraded)
	rec.Outcome = mos.OutcomeOf(err)
	if err != nil {
		rec.Error = err.Error()
		return rec
	}
	rep := res.Report(labels)
	rec.Report = &rep
	return rec
}

// Summary counts records per outcome.
func Summary(records []Record) map[string]int {
	out := make(map[string]int)
	for _, r := range records {
		out[r.Outcome]++
	}
	return out
}
