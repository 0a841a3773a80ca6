package dabot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdatePortfolio_Snapshot(t *testing.T) {
	bot, _, _ := newTestBot(t)

	assets := bot.Portfolio()
	require.Len(t, assets, 1)
	assert.Equal(t, testAsset, assets[0].Asset)
	assert.True(t, assets[0].Cap.Equal(dec(2000)))
	assert.True(t, assets[0].IBOCap.Equal(dec(1000)))
	assert.Equal(t, uint32(50), assets[0].Weight)
	assert.True(t, assets[0].TotalStaked.IsZero())
}

func TestUpdatePortfolio_PreservesInsertionOrderAndStake(t *testing.T) {
	bot, _, clock := newTestBot(t)

	require.NoError(t, bot.UpdatePortfolio(testOwner, "BNB", dec(4000), dec(2000), 25))

	clock.now = time.Unix(2500, 0)
	_, err := bot.Stake(testHolder, testAsset, dec(500))
	require.NoError(t, err)

	// Re-upserting adjusts limits without touching the running total
	require.NoError(t, bot.UpdatePortfolio(testOwner, testAsset, dec(3000), dec(1000), 60))

	assets := bot.Portfolio()
	require.Len(t, assets, 2)
	assert.Equal(t, testAsset, assets[0].Asset)
	assert.Equal(t, "BNB", assets[1].Asset)
	assert.True(t, assets[0].Cap.Equal(dec(3000)))
	assert.Equal(t, uint32(60), assets[0].Weight)
	assert.True(t, assets[0].TotalStaked.Equal(dec(500)))
}

func TestUpdatePortfolio_InvalidCapacity(t *testing.T) {
	bot, _, _ := newTestBot(t)

	err := bot.UpdatePortfolio(testOwner, "BNB", dec(1000), dec(2000), 10)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	err = bot.UpdatePortfolio(testOwner, "BNB", dec(-1), dec(-1), 10)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	assert.Len(t, bot.Portfolio(), 1)
}

func TestRemoveAsset(t *testing.T) {
	bot, _, _ := newTestBot(t)

	assert.ErrorIs(t, bot.RemoveAsset(testOwner, "DOGE"), ErrUnknownAsset)

	require.NoError(t, bot.RemoveAsset(testOwner, testAsset))
	assert.Empty(t, bot.Portfolio())
}

func TestRemoveAsset_InUse(t *testing.T) {
	bot, _, clock := newTestBot(t)

	clock.now = time.Unix(2500, 0)
	_, err := bot.Stake(testHolder, testAsset, dec(500))
	require.NoError(t, err)

	assert.ErrorIs(t, bot.RemoveAsset(testOwner, testAsset), ErrAssetInUse)

	// Fully unstaking frees the asset for removal
	clock.now = time.Unix(2520, 0)
	require.NoError(t, bot.Unstake(testHolder, testAsset, dec(500)))
	assert.NoError(t, bot.RemoveAsset(testOwner, testAsset))
}

func TestWeightedCapacity(t *testing.T) {
	p := newPortfolio()
	require.NoError(t, p.upsert("USDT", dec(2000), dec(1000), 50))
	require.NoError(t, p.upsert("BNB", dec(4000), dec(2000), 25))

	assert.True(t, p.weightedCapacity(true).Equal(dec(100_000)))
	assert.True(t, p.weightedCapacity(false).Equal(dec(200_000)))
}
