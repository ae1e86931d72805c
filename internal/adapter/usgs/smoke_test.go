//go:build smoke

package usgs

import (
	"context"
	"testing"

	"github.com/couchcryptid/incident-engine/internal/config"
	"github.com/stretchr/testify/require"
)

// Hits the live USGS feed. Run with: go test -tags=smoke ./internal/adapter/usgs/ -v -count=1

func TestSmoke_Features(t *testing.T) {
	features, err := testClient(config.DefaultUSGSFeedURL).Features(context.Background())
	require.NoError(t, err)
	t.Logf("%d features in the past day", len(features))
}
