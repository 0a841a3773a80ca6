package dabot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackIBOTime_RoundTrip(t *testing.T) {
	packed := PackIBOTime(2000, 10000)
	assert.Equal(t, uint64(10000)<<32|2000, packed)

	start, end := UnpackIBOTime(packed)
	assert.Equal(t, int64(2000), start)
	assert.Equal(t, int64(10000), end)
}

func TestPackStakingTime_RoundTrip(t *testing.T) {
	packed := PackStakingTime(20, 30)
	assert.Equal(t, uint64(30)<<16|20, packed)

	warmup, cooldown := UnpackStakingTime(packed)
	assert.Equal(t, uint32(20), warmup)
	assert.Equal(t, uint32(30), cooldown)
}

func TestPackPricePolicy_RoundTrip(t *testing.T) {
	packed := PackPricePolicy(150, 500)
	assert.Equal(t, uint64(500)<<32|150, packed)

	priceMul, fee := UnpackPricePolicy(packed)
	assert.Equal(t, uint32(150), priceMul)
	assert.Equal(t, uint32(500), fee)
}

func TestParamsFromArray(t *testing.T) {
	raw := []uint64{
		PackIBOTime(2000, 10000),
		PackStakingTime(20, 30),
		PackPricePolicy(0, 0),
		2000,  // profit sharing bps
		100,   // init deposit
		200,   // founder share
		10000, // max share cap
		5000,  // ibo share supply
	}

	p, err := ParamsFromArray("sample", testOwner, raw)
	require.NoError(t, err)

	assert.Equal(t, "sample", p.Name)
	assert.Equal(t, testOwner, p.Owner)
	assert.Equal(t, int64(2000), p.IBOStartTime)
	assert.Equal(t, int64(10000), p.IBOEndTime)
	assert.Equal(t, uint32(20), p.Warmup)
	assert.Equal(t, uint32(30), p.Cooldown)
	assert.Equal(t, uint32(2000), p.ProfitSharing)
	assert.True(t, p.InitDeposit.Equal(dec(100)))
	assert.True(t, p.InitFounderShare.Equal(dec(200)))
	assert.True(t, p.MaxShareCap.Equal(dec(10000)))
	assert.True(t, p.IBOShareSupply.Equal(dec(5000)))
}

func TestParamsFromArray_WrongLength(t *testing.T) {
	_, err := ParamsFromArray("sample", testOwner, []uint64{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParamsFromArray_ProfitSharingOutOfRange(t *testing.T) {
	raw := []uint64{
		PackIBOTime(2000, 10000),
		PackStakingTime(20, 30),
		PackPricePolicy(0, 0),
		uint64(1) << 33, // would truncate to zero as uint32
		100,
		200,
		10000,
		5000,
	}

	_, err := ParamsFromArray("sample", testOwner, raw)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParamsValidate(t *testing.T) {
	base := func() InitParams {
		return InitParams{
			Name:           "sample",
			Owner:          testOwner,
			IBOStartTime:   2000,
			IBOEndTime:     10000,
			MaxShareCap:    dec(10000),
			IBOShareSupply: dec(5000),
		}
	}

	p := base()
	require.NoError(t, p.Validate())

	p = base()
	p.Name = ""
	assert.ErrorIs(t, p.Validate(), ErrInvalidConfig)

	p = base()
	p.Owner = ""
	assert.ErrorIs(t, p.Validate(), ErrInvalidConfig)

	p = base()
	p.IBOEndTime = 1999
	assert.ErrorIs(t, p.Validate(), ErrInvalidConfig)

	p = base()
	p.IBOShareSupply = dec(20000)
	assert.ErrorIs(t, p.Validate(), ErrInvalidConfig)

	p = base()
	p.InitDeposit = dec(-1)
	assert.ErrorIs(t, p.Validate(), ErrInvalidConfig)

	p = base()
	p.CommissionFee = 10001
	assert.ErrorIs(t, p.Validate(), ErrInvalidConfig)

	p = base()
	p.ProfitSharing = 10001
	assert.ErrorIs(t, p.Validate(), ErrInvalidConfig)
}
