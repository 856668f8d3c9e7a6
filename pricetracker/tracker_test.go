package pricetracker

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRunningMean(t *testing.T) {
	tr := New()
	collection := common.HexToAddress("0xc1")

	_, ok := tr.Stats(collection)
	assert.False(t, ok)

	require.NoError(t, tr.RecordSale(collection, "1", big.NewInt(10_000_000_000)))
	require.NoError(t, tr.RecordSale(collection, "2", big.NewInt(20_000_000_000)))
	require.NoError(t, tr.RecordSale(collection, "3", big.NewInt(60_000_000_000)))

	stats, ok := tr.Stats(collection)
	require.True(t, ok)
	assert.Equal(t, int64(3), stats.Sales)
	assert.Equal(t, "60000000000", stats.LastPrice.String())
	assert.Equal(t, "30000000000", stats.MeanPrice.String())
}

func TestTrackerCollectionsIndependent(t *testing.T) {
	tr := New()
	a := common.HexToAddress("0xc1")
	b := common.HexToAddress("0xc2")

	require.NoError(t, tr.RecordSale(a, "1", big.NewInt(5_000_000_000)))

	_, ok := tr.Stats(b)
	assert.False(t, ok)

	stats, ok := tr.Stats(a)
	require.True(t, ok)
	assert.Equal(t, int64(1), stats.Sales)
	assert.Equal(t, "5000000000", stats.MeanPrice.String())
}
