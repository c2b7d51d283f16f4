package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metarwatch/metarwatch/internal/models"
)

func TestLRUGetSet(t *testing.T) {
	c := NewLRU(16, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "id:KSEA:100:200")
	require.NoError(t, err)
	assert.False(t, ok)

	want := []models.Observation{{ICAO: "KSEA", Date: 150, Temperature: "15.0"}}
	require.NoError(t, c.Set(ctx, "id:KSEA:100:200", want))

	got, ok, err := c.Get(ctx, "id:KSEA:100:200")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestLRUEntriesExpire(t *testing.T) {
	c := NewLRU(16, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []models.Observation{{ICAO: "KSEA", Date: 1}}))
	time.Sleep(60 * time.Millisecond)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
