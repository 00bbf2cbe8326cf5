// Package seed loads entity and relationship fixtures from YAML and applies
// them through the recall client.
package seed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/soundprediction/recall"
	"github.com/soundprediction/recall/pkg/types"
)

// Fixtures is the document layout of a fixture file.
type Fixtures struct {
	Entities      []EntityFixture       `yaml:"entities"`
	Relationships []RelationshipFixture `yaml:"relationships"`
}

// EntityFixture describes one entity. Ref is a file-local name that
// relationships may use instead of the generated id.
type EntityFixture struct {
	Ref      string                 `yaml:"ref"`
	ID       string                 `yaml:"id"`
	Kind     types.EntityKind       `yaml:"kind"`
	Title    string                 `yaml:"title"`
	Body     string                 `yaml:"body"`
	Metadata map[string]interface{} `yaml:"metadata"`
	Payload  yaml.Node              `yaml:"kind_payload"`
}

// RelationshipFixture describes one edge. Source and Target are refs or
// entity ids.
type RelationshipFixture struct {
	Source   string                 `yaml:"source"`
	Target   string                 `yaml:"target"`
	Type     string                 `yaml:"type"`
	Weight   float64                `yaml:"weight"`
	Metadata map[string]interface{} `yaml:"metadata"`
}

// Result summarizes an applied fixture file.
type Result struct {
	Entities      int
	Relationships int

	// Refs maps each fixture ref to the id of the created entity.
	Refs map[string]string
}

// Load reads fixtures from a YAML file.
func Load(path string) (*Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixtures: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads fixtures from r.
func Decode(r io.Reader) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}
	return &fx, nil
}

// Entity converts the fixture into an entity, decoding the payload variant
// selected by the kind.
func (f *EntityFixture) Entity() (*types.Entity, error) {
	e := &types.Entity{
		ID:       f.ID,
		Kind:     f.Kind,
		Title:    f.Title,
		Body:     f.Body,
		Metadata: f.Metadata,
	}
	if f.Payload.Kind == 0 {
		return e, nil
	}

	payload := types.DefaultPayload(f.Kind)
	if payload == nil {
		return nil, types.NewValidationError("kind_payload", fmt.Sprintf("kind %q has no payload", f.Kind))
	}
	if err := f.Payload.Decode(payload); err != nil {
		return nil, types.NewValidationError("kind_payload", err.Error())
	}
	e.Payload = payload
	return e, nil
}

// Seeder applies fixtures through the recall client.
type Seeder struct {
	entities      recall.EntityManager
	relationships recall.RelationshipManager
	logger        *slog.Logger
}

// NewSeeder creates a seeder.
func NewSeeder(entities recall.EntityManager, relationships recall.RelationshipManager, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{entities: entities, relationships: relationships, logger: logger}
}

// Apply creates the entities, then the relationships. Failures of single
// items do not stop the run; they are returned together once every item
// has been tried. A relationship whose endpoint failed is skipped.
func (s *Seeder) Apply(ctx context.Context, fx *Fixtures) (*Result, error) {
	res := &Result{Refs: make(map[string]string)}
	failed := make(map[string]bool)
	var errs *multierror.Error

	for i := range fx.Entities {
		if err := ctx.Err(); err != nil {
			return res, multierror.Append(errs, err).ErrorOrNil()
		}
		f := &fx.Entities[i]
		name := f.Ref
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		if f.Ref != "" {
			if _, dup := res.Refs[f.Ref]; dup {
				errs = multierror.Append(errs, fmt.Errorf("entity %s: duplicate ref", name))
				continue
			}
		}

		e, err := f.Entity()
		if err == nil {
			var id string
			if id, err = s.entities.CreateEntity(ctx, e); err == nil && f.Ref != "" {
				res.Refs[f.Ref] = id
			}
		}
		if err != nil {
			if f.Ref != "" {
				failed[f.Ref] = true
			}
			errs = multierror.Append(errs, fmt.Errorf("entity %s: %w", name, err))
			continue
		}
		res.Entities++
	}

	for i, f := range fx.Relationships {
		if err := ctx.Err(); err != nil {
			return res, multierror.Append(errs, err).ErrorOrNil()
		}
		if failed[f.Source] || failed[f.Target] {
			errs = multierror.Append(errs, fmt.Errorf("relationship #%d %s-[%s]->%s: skipped, endpoint was not created", i, f.Source, f.Type, f.Target))
			continue
		}
		rel := &types.Relationship{
			SourceID:         res.resolve(f.Source),
			TargetID:         res.resolve(f.Target),
			RelationshipType: f.Type,
			Weight:           f.Weight,
			Metadata:         f.Metadata,
			CreatedBy:        "seed",
		}
		if _, err := s.relationships.CreateRelationship(ctx, rel); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("relationship #%d %s-[%s]->%s: %w", i, f.Source, f.Type, f.Target, err))
			continue
		}
		res.Relationships++
	}

	s.logger.Info("Fixtures seeded",
		"entities", res.Entities,
		"relationships", res.Relationships,
		"failures", failures(errs))
	return res, errs.ErrorOrNil()
}

// ApplyFile loads and applies a fixture file.
func (s *Seeder) ApplyFile(ctx context.Context, path string) (*Result, error) {
	fx, err := Load(path)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, fx)
}

func (r *Result) resolve(name string) string {
	if id, ok := r.Refs[name]; ok {
		return id
	}
	return name
}

func failures(errs *multierror.Error) int {
	if errs == nil {
		return 0
	}
	return len(errs.Errors)
}
