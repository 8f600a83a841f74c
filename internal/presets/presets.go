// Package presets loads reusable job templates from JSON files. Files are
// checked against an embedded JSON schema before they are turned into jobs.
package presets

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/entity"
	"github.com/aristath/colony/internal/job"
)

// ErrInvalid is returned for preset documents that fail validation.
var ErrInvalid = errors.New("invalid preset")

//go:embed preset.schema.json
var schemaSource string

var schema = jsonschema.MustCompileString("preset.schema.json", schemaSource)

// Preset is a named set of jobs with targets relative to an anchor tile.
type Preset struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Jobs        []JobSpec `json:"jobs"`
}

// JobSpec describes one job of a preset.
type JobSpec struct {
	Name            string     `json:"name"`
	Priority        string     `json:"priority,omitempty"`
	Menial          *bool      `json:"menial,omitempty"`
	Tool            string     `json:"tool,omitempty"`
	AttemptMax      int        `json:"attempt_max,omitempty"`
	Zone            int        `json:"zone,omitempty"`
	IgnoreTerritory bool       `json:"ignore_territory,omitempty"`
	AllowFire       bool       `json:"allow_fire,omitempty"`
	After           []string   `json:"after,omitempty"`
	Tasks           []TaskSpec `json:"tasks"`
}

// TaskSpec describes one task. At is an [dx, dy] offset from the anchor.
type TaskSpec struct {
	Action   string   `json:"action"`
	At       []int    `json:"at,omitempty"`
	Category string   `json:"category,omitempty"`
	Flags    []string `json:"flags,omitempty"`
}

// Catalog resolves item category names. *entity.Registry satisfies it.
type Catalog interface {
	CategoryByName(name string) (entity.Category, bool)
}

var priorities = map[string]job.Priority{
	"very_high": job.VeryHigh,
	"high":      job.High,
	"medium":    job.Med,
	"low":       job.Low,
}

var flags = map[string]int{
	"from_stockpile": job.FlagFromStockpile,
	"not_full":       job.FlagNotFull,
	"empty":          job.FlagEmpty,
	"most_decayed":   job.FlagMostDecayed,
	"dump_filth":     job.FlagDumpFilth,
}

// Parse validates data against the preset schema and decodes it.
func Parse(data []byte) (*Preset, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing preset: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding preset: %w", err)
	}

	seen := make(map[string]bool, len(p.Jobs))
	for _, spec := range p.Jobs {
		if seen[spec.Name] {
			return nil, fmt.Errorf("%w: duplicate job name %q", ErrInvalid, spec.Name)
		}
		seen[spec.Name] = true
	}
	for _, spec := range p.Jobs {
		for _, dep := range spec.After {
			if !seen[dep] {
				return nil, fmt.Errorf("%w: job %q waits for unknown job %q", ErrInvalid, spec.Name, dep)
			}
		}
		for _, t := range spec.Tasks {
			if _, ok := job.ActionFromString(t.Action); !ok {
				return nil, fmt.Errorf("%w: job %q: unknown action %q", ErrInvalid, spec.Name, t.Action)
			}
		}
	}
	return &p, nil
}

// Load reads and parses a preset file.
func Load(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading preset %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// LoadAll loads every preset in paths, keyed by the map key. Keys are
// visited in sorted order so the first error is stable.
func LoadAll(paths map[string]string) (map[string]*Preset, error) {
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]*Preset, len(paths))
	for _, k := range keys {
		p, err := Load(paths[k])
		if err != nil {
			return nil, fmt.Errorf("preset %s: %w", k, err)
		}
		out[k] = p
	}
	return out, nil
}

// Jobs builds the preset's jobs anchored at anchor, in prerequisite order.
// Category names resolve through cat. The result is ready for
// JobManager.AddJobs.
func (p *Preset) Jobs(anchor coord.Coordinate, cat Catalog) ([]*job.Job, error) {
	built := make(map[string]*job.Job, len(p.Jobs))
	list := make([]*job.Job, 0, len(p.Jobs))

	for _, spec := range p.Jobs {
		j, err := spec.build(anchor, cat)
		if err != nil {
			return nil, fmt.Errorf("preset %s: %w", p.Name, err)
		}
		built[spec.Name] = j
		list = append(list, j)
	}
	for _, spec := range p.Jobs {
		for _, dep := range spec.After {
			built[spec.Name].AddPreReq(built[dep])
		}
	}

	ordered, err := job.ValidateGraph(list)
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", p.Name, err)
	}
	return ordered, nil
}

func (s JobSpec) build(anchor coord.Coordinate, cat Catalog) (*job.Job, error) {
	prio := job.Med
	if s.Priority != "" {
		prio = priorities[s.Priority]
	}
	j := job.New(s.Name, prio)
	if s.Menial != nil {
		j.SetMenial(*s.Menial)
	}
	if s.AttemptMax > 0 {
		j.SetAttemptMax(s.AttemptMax)
	}
	j.SetZone(s.Zone)
	if s.IgnoreTerritory {
		j.DisregardTerritory()
	}
	if s.AllowFire {
		j.AllowFire()
	}
	if s.Tool != "" {
		c, ok := cat.CategoryByName(s.Tool)
		if !ok {
			return nil, fmt.Errorf("job %q: unknown tool category %q", s.Name, s.Tool)
		}
		j.SetRequiredTool(c)
	}

	for i, ts := range s.Tasks {
		t, err := ts.build(anchor, cat)
		if err != nil {
			return nil, fmt.Errorf("job %q task %d: %w", s.Name, i, err)
		}
		j.Add(t)
	}
	return j, nil
}

func (s TaskSpec) build(anchor coord.Coordinate, cat Catalog) (job.Task, error) {
	a, ok := job.ActionFromString(s.Action)
	if !ok {
		return job.Task{}, fmt.Errorf("unknown action %q", s.Action)
	}
	t := job.NewTask(a)
	if len(s.At) == 2 {
		t.Target = anchor.Add(coord.Pt(s.At[0], s.At[1]))
	}
	if s.Category != "" {
		c, ok := cat.CategoryByName(s.Category)
		if !ok {
			return job.Task{}, fmt.Errorf("unknown category %q", s.Category)
		}
		t.ItemCategory = c
	}
	for _, f := range s.Flags {
		t.Flags |= flags[f]
	}
	return t, nil
}
