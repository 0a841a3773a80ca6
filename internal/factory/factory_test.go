package factory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robofi/dabot/internal/adapters/token"
	"github.com/robofi/dabot/internal/dabot"
)

const (
	testBase  = "VICS"
	testOwner = "owner-1"
)

func deployParams() []uint64 {
	return []uint64{
		dabot.PackIBOTime(2000, 10000),
		dabot.PackStakingTime(20, 30),
		dabot.PackPricePolicy(0, 0),
		2000,  // profit sharing bps
		100,   // init deposit
		200,   // founder share
		10000, // max share cap
		5000,  // ibo share supply
	}
}

func newTestManager(t *testing.T) (*Manager, *token.Ledger) {
	t.Helper()

	ledger := token.NewLedger()
	manager := NewManager(testBase, ledger)
	manager.AddTemplate("dabot-base", nil)
	manager.SetClock(func() time.Time { return time.Unix(1000, 0) })

	require.NoError(t, ledger.Mint(testBase, testOwner, decimal.NewFromInt(1_000_000)))
	require.NoError(t, ledger.Approve(testBase, testOwner, manager.Address(), decimal.NewFromInt(1_000_000)))

	return manager, ledger
}

func TestDeployBot(t *testing.T) {
	manager, ledger := newTestManager(t)

	id, bot, err := manager.DeployBot(context.Background(), "dabot-base", "sample", testOwner, deployParams())
	require.NoError(t, err)
	require.NotNil(t, bot)
	assert.Equal(t, uint64(1), id)

	d := bot.Details()
	assert.Equal(t, "sample", d.Name)
	assert.Equal(t, testOwner, d.Owner)
	assert.Equal(t, int64(2000), d.IBOStartTime)
	assert.Equal(t, int64(10000), d.IBOEndTime)
	assert.True(t, d.TotalSupply.Equal(decimal.NewFromInt(200)))

	// The init deposit moved from the owner into the new custody account
	assert.True(t, ledger.BalanceOf(testBase, bot.Address()).Equal(decimal.NewFromInt(100)))
	assert.True(t, ledger.BalanceOf(testBase, testOwner).Equal(decimal.NewFromInt(999_900)))
}

func TestDeployBot_SequentialIDs(t *testing.T) {
	manager, _ := newTestManager(t)

	for want := uint64(1); want <= 3; want++ {
		id, _, err := manager.DeployBot(context.Background(), "dabot-base", "bot", testOwner, deployParams())
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}

	bots := manager.Bots()
	require.Len(t, bots, 3)
	assert.Equal(t, uint64(1), bots[0].ID())
	assert.Equal(t, uint64(3), bots[2].ID())
}

func TestDeployBot_UnknownTemplate(t *testing.T) {
	manager, _ := newTestManager(t)

	_, _, err := manager.DeployBot(context.Background(), "no-such", "bot", testOwner, deployParams())
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestDeployBot_BadParams(t *testing.T) {
	manager, _ := newTestManager(t)

	_, _, err := manager.DeployBot(context.Background(), "dabot-base", "bot", testOwner, []uint64{1, 2})
	assert.ErrorIs(t, err, dabot.ErrInvalidConfig)
	assert.Empty(t, manager.Bots())
}

func TestDeployBot_MissingDepositApproval(t *testing.T) {
	ledger := token.NewLedger()
	manager := NewManager(testBase, ledger)
	manager.AddTemplate("dabot-base", nil)

	// Funds exist but the factory was never approved
	require.NoError(t, ledger.Mint(testBase, testOwner, decimal.NewFromInt(1000)))

	_, _, err := manager.DeployBot(context.Background(), "dabot-base", "bot", testOwner, deployParams())
	assert.ErrorIs(t, err, dabot.ErrTransferFailed)
	assert.Empty(t, manager.Bots())
}

func TestDeployBot_ConsumesFactoryAllowance(t *testing.T) {
	manager, ledger := newTestManager(t)

	_, _, err := manager.DeployBot(context.Background(), "dabot-base", "bot", testOwner, deployParams())
	require.NoError(t, err)

	// 100 of the grant was re-targeted onto the custody address and spent
	got := ledger.Allowance(testBase, testOwner, manager.Address())
	assert.True(t, got.Equal(decimal.NewFromInt(999_900)), "got %s", got)
}

func TestSeedNextID(t *testing.T) {
	manager, _ := newTestManager(t)
	manager.SeedNextID(42)

	id, _, err := manager.DeployBot(context.Background(), "dabot-base", "bot", testOwner, deployParams())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	// Seeding never moves the sequence backwards
	manager.SeedNextID(7)
	id, _, err = manager.DeployBot(context.Background(), "dabot-base", "bot", testOwner, deployParams())
	require.NoError(t, err)
	assert.Equal(t, uint64(43), id)
}

func TestBotLookup(t *testing.T) {
	manager, _ := newTestManager(t)

	id, deployed, err := manager.DeployBot(context.Background(), "dabot-base", "bot", testOwner, deployParams())
	require.NoError(t, err)

	bot, err := manager.Bot(id)
	require.NoError(t, err)
	assert.Same(t, deployed, bot)

	_, err = manager.Bot(999)
	assert.ErrorIs(t, err, ErrUnknownBot)
}

func TestQueryBots(t *testing.T) {
	manager, _ := newTestManager(t)

	id1, _, err := manager.DeployBot(context.Background(), "dabot-base", "first", testOwner, deployParams())
	require.NoError(t, err)
	id2, _, err := manager.DeployBot(context.Background(), "dabot-base", "second", testOwner, deployParams())
	require.NoError(t, err)

	details, err := manager.QueryBots([]uint64{id2, id1})
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, "second", details[0].Name)
	assert.Equal(t, "first", details[1].Name)

	_, err = manager.QueryBots([]uint64{id1, 999})
	assert.ErrorIs(t, err, ErrUnknownBot)
}

func TestTemplates(t *testing.T) {
	manager, _ := newTestManager(t)
	manager.AddTemplate("custom", func(id uint64, address, baseAsset string, tokens token.Transferor) *dabot.Bot {
		return dabot.New(id, address, baseAsset, tokens)
	})

	assert.ElementsMatch(t, []string{"dabot-base", "custom"}, manager.Templates())
}
