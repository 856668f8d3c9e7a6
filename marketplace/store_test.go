package marketplace

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listingKey(token string) ListingKey {
	return ListingKey{
		Collection: common.HexToAddress("0xc1"),
		TokenID:    token,
		Owner:      common.HexToAddress("0x51"),
	}
}

func liveOffer(quantity uint64) Offer {
	return Offer{
		Quantity:       quantity,
		PricePerItem:   big.NewInt(2_000_000_000),
		ExpirationTime: 10_000,
	}
}

func TestTableGetFiltersZeroQuantity(t *testing.T) {
	tab := newTable[ListingKey]()
	k := listingKey("1")

	_, ok := tab.get(k)
	assert.False(t, ok)

	tab.put(k, liveOffer(3))
	o, ok := tab.get(k)
	require.True(t, ok)
	assert.Equal(t, uint64(3), o.Quantity)

	// a zero-quantity record reads as absent
	tab.put(k, liveOffer(0))
	_, ok = tab.get(k)
	assert.False(t, ok)
}

func TestTableCancelKeepsZeroedRecord(t *testing.T) {
	tab := newTable[ListingKey]()
	k := listingKey("1")

	_, existed := tab.cancel(k)
	assert.False(t, existed)

	tab.put(k, liveOffer(3))
	o, existed := tab.cancel(k)
	require.True(t, existed)
	assert.Zero(t, o.Quantity)

	// the record survives with quantity zero, not deleted
	raw, present := tab.m[k]
	require.True(t, present)
	assert.Zero(t, raw.Quantity)

	_, existed = tab.cancel(k)
	assert.False(t, existed)
}

func TestTableDeplete(t *testing.T) {
	tab := newTable[ListingKey]()
	k := listingKey("1")

	tab.put(k, liveOffer(5))
	tab.deplete(k, 3)
	o, ok := tab.get(k)
	require.True(t, ok)
	assert.Equal(t, uint64(2), o.Quantity)

	// depleting to zero removes the record entirely
	tab.deplete(k, 2)
	_, present := tab.m[k]
	assert.False(t, present)

	tab.deplete(k, 1) // absent, no-op
}

func TestUndoLogRollback(t *testing.T) {
	s := newOfferStore()
	k1 := listingKey("1")
	k2 := listingKey("2")
	s.listings.put(k1, liveOffer(5))

	u := s.begin()

	u.noteListing(k1)
	s.listings.put(k1, liveOffer(1))
	u.noteListing(k2)
	s.listings.put(k2, liveOffer(7))
	u.noteListing(k1)
	s.listings.deplete(k1, 1)

	u.rollback()

	o, ok := s.listings.get(k1)
	require.True(t, ok)
	assert.Equal(t, uint64(5), o.Quantity)

	// a record created inside the batch is removed, not zeroed
	_, present := s.listings.m[k2]
	assert.False(t, present)
}

func TestUndoLogBidTables(t *testing.T) {
	s := newOfferStore()
	tk := TokenBidKey{Collection: common.HexToAddress("0xc1"), TokenID: "1", Bidder: common.HexToAddress("0x53")}
	ck := CollectionBidKey{Collection: common.HexToAddress("0xc1"), Bidder: common.HexToAddress("0x53")}
	s.tokenBids.put(tk, liveOffer(4))

	u := s.begin()
	u.noteTokenBid(tk)
	s.tokenBids.deplete(tk, 4)
	u.noteCollectionBid(ck)
	s.collectionBids.put(ck, liveOffer(2))

	u.rollback()

	o, ok := s.getTokenBid(tk)
	require.True(t, ok)
	assert.Equal(t, uint64(4), o.Quantity)
	_, ok = s.getCollectionBid(ck)
	assert.False(t, ok)
}
