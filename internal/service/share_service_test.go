package service

import (
	"context"
	"testing"

	"github.com/explainer/internal/engagement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareServiceRecordUnlocksSocialAchievements(t *testing.T) {
	env := newTestEnv(t, engagement.TierFree)
	achievements := NewAchievementService(env.store, newTestLogger(), env.metrics)
	svc := NewShareService(env.store, achievements)
	ctx := context.Background()

	result, err := svc.Record(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Shares)
	assert.Equal(t, []string{"first_share"}, achievementCodes(result.NewAchievements))

	for i := 0; i < 8; i++ {
		result, err = svc.Record(ctx, env.user.ID)
		require.NoError(t, err)
		assert.Empty(t, result.NewAchievements)
	}

	result, err = svc.Record(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, result.Shares)
	assert.Equal(t, []string{"shares_10"}, achievementCodes(result.NewAchievements))
}
