package seed_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/recall"
	"github.com/soundprediction/recall/pkg/graph"
	"github.com/soundprediction/recall/pkg/seed"
	"github.com/soundprediction/recall/pkg/store"
	"github.com/soundprediction/recall/pkg/types"
)

func newClient(t *testing.T) *recall.Client {
	t.Helper()
	ctx := context.Background()
	st, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "recall.db"), nil)
	require.NoError(t, err)
	g := graph.NewSQLGraph(st.DB(), st.Dialect(), nil)
	require.NoError(t, g.Initialize(ctx))

	client := recall.NewClient(st, g, nil, nil)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestApplyFile(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	res, err := seed.NewSeeder(client, client, nil).ApplyFile(ctx, "testdata/fixtures.yaml")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Entities)
	assert.Equal(t, 2, res.Relationships)
	require.Len(t, res.Refs, 3)

	incident, err := client.GetEntity(ctx, res.Refs["pool-exhausted"])
	require.NoError(t, err)
	payload, ok := incident.Incident()
	require.True(t, ok)
	assert.True(t, payload.Resolved())
	assert.Equal(t, []string{"orders-api", "orders-db"}, payload.AffectedSystems)
	assert.Equal(t, []string{"database", "outage"}, incident.Tags())

	task, err := client.GetEntity(ctx, res.Refs["pool-audit"])
	require.NoError(t, err)
	taskPayload, ok := task.Task()
	require.True(t, ok)
	assert.Equal(t, 4*time.Hour, taskPayload.EstimatedDuration)

	rels, err := client.GetRelationships(ctx, res.Refs["pool-runbook"], types.DirectionIn)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "resolved_by", rels[0].RelationshipType)
	assert.Equal(t, res.Refs["pool-exhausted"], rels[0].SourceID)
	assert.Equal(t, 0.9, rels[0].Weight)
}

func TestApplyAggregatesFailures(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	fx, err := seed.Decode(strings.NewReader(`
entities:
  - ref: ok
    kind: knowledge
    title: Valid entry
  - ref: untitled
    kind: knowledge
  - ref: wrong-payload
    kind: generic
    title: Generic with payload
    kind_payload:
      severity: low
  - ref: ok
    kind: task
    title: Duplicate ref
relationships:
  - source: ok
    target: untitled
    type: related_to
  - source: ok
    target: external-id
    type: related_to
`))
	require.NoError(t, err)

	res, err := seed.NewSeeder(client, client, nil).Apply(ctx, fx)
	require.Error(t, err)
	assert.Equal(t, 1, res.Entities)
	assert.Equal(t, 1, res.Relationships, "refs that are not fixtures are used as ids")

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 4)
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Contains(t, err.Error(), "duplicate ref")
	assert.Contains(t, err.Error(), "skipped")
}

func TestDecodeEmpty(t *testing.T) {
	fx, err := seed.Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, fx.Entities)
	assert.Empty(t, fx.Relationships)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := seed.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
