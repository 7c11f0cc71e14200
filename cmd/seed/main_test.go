package main

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRunRows_KeysStableAcrossReruns(t *testing.T) {
	pipelineID := uuid.NewSHA1(seedNamespace, []byte("pipeline/Acme Data Co 01/pipeline-01"))
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	first := buildRunRows(rand.New(rand.NewSource(42)), pipelineID, 20, 15, 6, now)
	second := buildRunRows(rand.New(rand.NewSource(42)), pipelineID, 20, 15, 6, now)

	require.Len(t, first, 20)
	require.Len(t, second, 20)

	for i := range first {
		// id, pipeline_id and external_run_id must match so the conflict
		// clause skips rows a previous seeding pass already inserted.
		assert.Equal(t, first[i][0], second[i][0])
		assert.Equal(t, first[i][1], second[i][1])
		assert.Equal(t, first[i][2], second[i][2])
	}
}

func TestBuildRunRows_DistinctKeysPerPipeline(t *testing.T) {
	now := time.Now().UTC()
	a := buildRunRows(rand.New(rand.NewSource(1)), uuid.New(), 5, 0, 6, now)
	b := buildRunRows(rand.New(rand.NewSource(1)), uuid.New(), 5, 0, 6, now)

	for i := range a {
		assert.NotEqual(t, a[i][0], b[i][0])
	}
}
