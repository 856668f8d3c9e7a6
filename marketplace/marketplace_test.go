package marketplace_test

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghoul-sol/treasure-marketplace/marketplace"
	"github.com/ghoul-sol/treasure-marketplace/registry"
)

var (
	operator     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	marketOwner  = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	feeRecipient = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	seller       = common.HexToAddress("0x0000000000000000000000000000000000000051")
	buyer        = common.HexToAddress("0x0000000000000000000000000000000000000052")
	bidder       = common.HexToAddress("0x0000000000000000000000000000000000000053")
	stranger     = common.HexToAddress("0x0000000000000000000000000000000000000054")
	payTokenAddr = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	altTokenAddr = common.HexToAddress("0x00000000000000000000000000000000000000e2")
	nftAddr      = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	multiAddr    = common.HexToAddress("0x00000000000000000000000000000000000000c2")
)

// gwei scales n into payment token base units at or above the price floor.
func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

type fixture struct {
	t        *testing.T
	now      uint64
	market   *marketplace.Marketplace
	resolver *registry.Resolver
	nft      *registry.MemERC721
	multi    *registry.MemERC1155
	pay      *registry.MemERC20
	alt      *registry.MemERC20
	bank     *registry.MemNativeBank
	events   marketplace.ChannelSink
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		t:        t,
		now:      1_000,
		resolver: registry.NewResolver(),
		nft:      registry.NewMemERC721(),
		multi:    registry.NewMemERC1155(),
		pay:      registry.NewMemERC20(operator),
		alt:      registry.NewMemERC20(operator),
		bank:     registry.NewMemNativeBank(),
		events:   make(marketplace.ChannelSink, 256),
	}
	f.resolver.AddERC721(nftAddr, f.nft)
	f.resolver.AddERC1155(multiAddr, f.multi)
	f.resolver.AddERC20(payTokenAddr, f.pay)
	f.resolver.AddERC20(altTokenAddr, f.alt)

	market, err := marketplace.New(marketplace.Config{
		Operator:                  operator,
		Owner:                     marketOwner,
		DefaultPaymentToken:       payTokenAddr,
		WrappedNativeToken:        payTokenAddr,
		FeeBps:                    500,
		FeeWithCollectionOwnerBps: 250,
		FeeRecipient:              feeRecipient,
	}, f.resolver, f.bank,
		marketplace.WithEventSink(f.events),
		marketplace.WithClock(func() uint64 { return f.now }))
	require.NoError(t, err)
	f.market = market

	require.NoError(t, market.SetTokenApprovalStatus(marketOwner, nftAddr, marketplace.TokenApprovedERC721, marketplace.ZeroAddress))
	require.NoError(t, market.SetTokenApprovalStatus(marketOwner, multiAddr, marketplace.TokenApprovedERC1155, marketplace.ZeroAddress))
	return f
}

func (f *fixture) mintUnique(holder common.Address, tokenID int64) *big.Int {
	id := big.NewInt(tokenID)
	f.nft.Mint(holder, id)
	f.nft.SetApprovalForAll(holder, operator, true)
	return id
}

func (f *fixture) mintFungible(holder common.Address, tokenID int64, amount uint64) *big.Int {
	id := big.NewInt(tokenID)
	f.multi.Mint(holder, id, amount)
	f.multi.SetApprovalForAll(holder, operator, true)
	return id
}

func (f *fixture) fund(holder common.Address, amount *big.Int) {
	f.pay.Mint(holder, amount)
	f.pay.Approve(holder, operator, amount)
}

func (f *fixture) listing(collection common.Address, tokenID *big.Int, quantity uint64, price *big.Int) marketplace.ListingParams {
	return marketplace.ListingParams{
		Collection:     collection,
		TokenID:        tokenID,
		Quantity:       quantity,
		PricePerItem:   price,
		ExpirationTime: f.now + 9_000,
	}
}

func (f *fixture) drainEvents() []marketplace.Event {
	var out []marketplace.Event
	for {
		select {
		case ev := <-f.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func (f *fixture) balance(holder common.Address) *big.Int {
	bal, err := f.pay.BalanceOf(context.Background(), holder)
	require.NoError(f.t, err)
	return bal
}

func (f *fixture) nativeBalance(holder common.Address) *big.Int {
	bal, err := f.bank.BalanceOf(context.Background(), holder)
	require.NoError(f.t, err)
	return bal
}

func TestBuyUniqueListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintUnique(seller, 1)
	price := gwei(100)

	require.NoError(t, f.market.CreateListing(ctx, seller, f.listing(nftAddr, id, 1, price)))

	stored, ok := f.market.GetListing(nftAddr, id, seller)
	require.True(t, ok)
	assert.Equal(t, uint64(1), stored.Quantity)
	assert.Zero(t, price.Cmp(stored.PricePerItem))

	f.fund(buyer, price)
	require.NoError(t, f.market.BuyItems(ctx, buyer, []marketplace.BuyItemParams{{
		Collection:      nftAddr,
		TokenID:         id,
		Owner:           seller,
		Quantity:        1,
		MaxPricePerItem: price,
	}}, nil))

	holder, err := f.nft.OwnerOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, buyer, holder)

	// 5% protocol fee, the rest to the seller.
	assert.Zero(t, gwei(5).Cmp(f.balance(feeRecipient)))
	assert.Zero(t, gwei(95).Cmp(f.balance(seller)))
	assert.Zero(t, f.balance(buyer).Sign())

	_, ok = f.market.GetListing(nftAddr, id, seller)
	assert.False(t, ok)

	events := f.drainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, marketplace.EventItemListed, events[0].Kind)
	assert.Equal(t, marketplace.EventItemSold, events[1].Kind)
	assert.Equal(t, seller, events[1].Maker)
	assert.Equal(t, buyer, events[1].Taker)
}

func TestFungiblePartialFills(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintFungible(seller, 7, 5)
	price := gwei(10)

	require.NoError(t, f.market.CreateListing(ctx, seller, f.listing(multiAddr, id, 5, price)))

	f.fund(buyer, gwei(50))
	buy := func(quantity uint64) error {
		return f.market.BuyItems(ctx, buyer, []marketplace.BuyItemParams{{
			Collection:      multiAddr,
			TokenID:         id,
			Owner:           seller,
			Quantity:        quantity,
			MaxPricePerItem: price,
		}}, nil)
	}

	require.NoError(t, buy(3))
	stored, ok := f.market.GetListing(multiAddr, id, seller)
	require.True(t, ok)
	assert.Equal(t, uint64(2), stored.Quantity)

	// quantity above the remainder is rejected
	err := buy(3)
	require.ErrorIs(t, err, marketplace.ErrPrecondition)

	require.NoError(t, buy(2))
	_, ok = f.market.GetListing(multiAddr, id, seller)
	assert.False(t, ok)

	bal, err := f.multi.BalanceOf(ctx, buyer, id)
	require.NoError(t, err)
	assert.Zero(t, big.NewInt(5).Cmp(bal))
}

func TestListingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintUnique(seller, 1)

	t.Run("expiration in the past", func(t *testing.T) {
		p := f.listing(nftAddr, id, 1, gwei(10))
		p.ExpirationTime = f.now
		require.ErrorIs(t, f.market.CreateListing(ctx, seller, p), marketplace.ErrPrecondition)
	})

	t.Run("price below floor", func(t *testing.T) {
		p := f.listing(nftAddr, id, 1, new(big.Int).Sub(marketplace.MinPrice, big.NewInt(1)))
		require.ErrorIs(t, f.market.CreateListing(ctx, seller, p), marketplace.ErrPrecondition)
	})

	t.Run("price above uint128", func(t *testing.T) {
		p := f.listing(nftAddr, id, 1, new(big.Int).Lsh(big.NewInt(1), 128))
		require.ErrorIs(t, f.market.CreateListing(ctx, seller, p), marketplace.ErrPrecondition)
	})

	t.Run("price at floor accepted", func(t *testing.T) {
		p := f.listing(nftAddr, id, 1, new(big.Int).Set(marketplace.MinPrice))
		require.NoError(t, f.market.CreateListing(ctx, seller, p))
		require.NoError(t, f.market.CancelListing(ctx, seller, nftAddr, id))
	})

	t.Run("unique quantity must be one", func(t *testing.T) {
		p := f.listing(nftAddr, id, 2, gwei(10))
		require.ErrorIs(t, f.market.CreateListing(ctx, seller, p), marketplace.ErrPrecondition)
	})

	t.Run("not the holder", func(t *testing.T) {
		p := f.listing(nftAddr, id, 1, gwei(10))
		require.ErrorIs(t, f.market.CreateListing(ctx, stranger, p), marketplace.ErrPrecondition)
	})

	t.Run("no transfer consent", func(t *testing.T) {
		f.nft.SetApprovalForAll(seller, operator, false)
		p := f.listing(nftAddr, id, 1, gwei(10))
		require.ErrorIs(t, f.market.CreateListing(ctx, seller, p), marketplace.ErrPrecondition)
		f.nft.SetApprovalForAll(seller, operator, true)
	})

	t.Run("unapproved collection", func(t *testing.T) {
		p := f.listing(common.HexToAddress("0xdead"), id, 1, gwei(10))
		require.ErrorIs(t, f.market.CreateListing(ctx, seller, p), marketplace.ErrPrecondition)
	})

	t.Run("create refuses existing, update refuses absent", func(t *testing.T) {
		p := f.listing(nftAddr, id, 1, gwei(10))
		require.ErrorIs(t, f.market.UpdateListing(ctx, seller, p), marketplace.ErrStateConflict)
		require.NoError(t, f.market.CreateListing(ctx, seller, p))
		require.ErrorIs(t, f.market.CreateListing(ctx, seller, p), marketplace.ErrStateConflict)
		p.PricePerItem = gwei(20)
		require.NoError(t, f.market.UpdateListing(ctx, seller, p))
		stored, ok := f.market.GetListing(nftAddr, id, seller)
		require.True(t, ok)
		assert.Zero(t, gwei(20).Cmp(stored.PricePerItem))
	})
}

func TestCancelListingIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintUnique(seller, 1)

	require.NoError(t, f.market.CreateListing(ctx, seller, f.listing(nftAddr, id, 1, gwei(10))))
	require.NoError(t, f.market.CancelListing(ctx, seller, nftAddr, id))
	_, ok := f.market.GetListing(nftAddr, id, seller)
	assert.False(t, ok)

	// cancelling again is a silent no-op
	require.NoError(t, f.market.CancelListing(ctx, seller, nftAddr, id))

	// a cancelled listing cannot be matched
	f.fund(buyer, gwei(10))
	err := f.market.BuyItems(ctx, buyer, []marketplace.BuyItemParams{{
		Collection:      nftAddr,
		TokenID:         id,
		Owner:           seller,
		Quantity:        1,
		MaxPricePerItem: gwei(10),
	}}, nil)
	require.ErrorIs(t, err, marketplace.ErrStateConflict)

	events := f.drainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, marketplace.EventItemCanceled, events[1].Kind)
}

func TestPauseBlocksAllButCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintUnique(seller, 1)
	id2 := f.mintUnique(seller, 2)

	require.NoError(t, f.market.CreateListing(ctx, seller, f.listing(nftAddr, id, 1, gwei(10))))
	require.NoError(t, f.market.Pause(marketOwner))

	require.ErrorIs(t, f.market.CreateListing(ctx, seller, f.listing(nftAddr, id2, 1, gwei(10))), marketplace.ErrUnauthorized)
	f.fund(buyer, gwei(10))
	err := f.market.BuyItems(ctx, buyer, []marketplace.BuyItemParams{{
		Collection: nftAddr, TokenID: id, Owner: seller, Quantity: 1, MaxPricePerItem: gwei(10),
	}}, nil)
	require.ErrorIs(t, err, marketplace.ErrUnauthorized)

	// exits stay open while paused
	require.NoError(t, f.market.CancelListing(ctx, seller, nftAddr, id))
	require.NoError(t, f.market.CancelBids(ctx, bidder, []marketplace.CancelBidParams{{
		Kind: marketplace.CancelTokenBid, Collection: nftAddr, TokenID: id,
	}}))

	require.NoError(t, f.market.Unpause(marketOwner))
	require.NoError(t, f.market.CreateListing(ctx, seller, f.listing(nftAddr, id2, 1, gwei(10))))
}

func TestSelfDealingRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintUnique(seller, 1)
	price := gwei(10)

	require.NoError(t, f.market.CreateListing(ctx, seller, f.listing(nftAddr, id, 1, price)))
	f.fund(seller, price)
	err := f.market.BuyItems(ctx, seller, []marketplace.BuyItemParams{{
		Collection: nftAddr, TokenID: id, Owner: seller, Quantity: 1, MaxPricePerItem: price,
	}}, nil)
	require.ErrorIs(t, err, marketplace.ErrStateConflict)

	require.NoError(t, f.market.ToggleBiddingActive(marketOwner))
	f.fund(bidder, price)
	require.NoError(t, f.market.CreateOrUpdateTokenBid(ctx, bidder, marketplace.BidParams{
		Collection:     nftAddr,
		TokenID:        id,
		Quantity:       1,
		PricePerItem:   price,
		ExpirationTime: f.now + 9_000,
	}))
	// the bidder cannot supply the item against their own bid
	f.nft.Mint(bidder, big.NewInt(99))
	err = f.market.AcceptTokenBid(ctx, bidder, marketplace.AcceptBidParams{
		Collection: nftAddr, TokenID: id, Bidder: bidder, Quantity: 1, PricePerItem: price,
	})
	require.ErrorIs(t, err, marketplace.ErrStateConflict)
}

func TestNativeValueExactSum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idA := f.mintUnique(seller, 1)
	idB := f.mintUnique(seller, 2)
	priceA, priceB := gwei(10), gwei(30)

	require.NoError(t, f.market.CreateOrUpdateListings(ctx, seller, []marketplace.ListingParams{
		f.listing(nftAddr, idA, 1, priceA),
		f.listing(nftAddr, idB, 1, priceB),
	}))

	items := []marketplace.BuyItemParams{
		{Collection: nftAddr, TokenID: idA, Owner: seller, Quantity: 1, MaxPricePerItem: priceA, UsingNative: true},
		{Collection: nftAddr, TokenID: idB, Owner: seller, Quantity: 1, MaxPricePerItem: priceB, UsingNative: true},
	}

	f.bank.Deposit(buyer, gwei(100))

	// overpayment fails closed with nothing settled
	err := f.market.BuyItems(ctx, buyer, items, gwei(41))
	require.ErrorIs(t, err, marketplace.ErrPrecondition)
	holder, _ := f.nft.OwnerOf(ctx, idA)
	assert.Equal(t, seller, holder)
	assert.Zero(t, gwei(100).Cmp(f.nativeBalance(buyer)))

	// underpayment likewise
	require.ErrorIs(t, f.market.BuyItems(ctx, buyer, items, gwei(39)), marketplace.ErrPrecondition)

	// the exact sum settles both legs natively
	require.NoError(t, f.market.BuyItems(ctx, buyer, items, gwei(40)))
	holder, _ = f.nft.OwnerOf(ctx, idA)
	assert.Equal(t, buyer, holder)
	assert.Zero(t, gwei(60).Cmp(f.nativeBalance(buyer)))
	assert.Zero(t, gwei(2).Cmp(f.nativeBalance(feeRecipient)))
	assert.Zero(t, gwei(38).Cmp(f.nativeBalance(seller)))
}

func TestMatchRechecksPayerFunding(t *testing.T) {
	t.Run("bidder drained after bid creation", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		id := f.mintUnique(seller, 1)
		price := gwei(10)

		require.NoError(t, f.market.ToggleBiddingActive(marketOwner))
		f.fund(bidder, price)
		require.NoError(t, f.market.CreateOrUpdateTokenBid(ctx, bidder, marketplace.BidParams{
			Collection:     nftAddr,
			TokenID:        id,
			Quantity:       1,
			PricePerItem:   price,
			ExpirationTime: f.now + 9_000,
		}))

		// the bidder's balance moves out from under the live bid
		require.NoError(t, f.pay.TransferFrom(ctx, bidder, stranger, price))

		err := f.market.AcceptTokenBid(ctx, seller, marketplace.AcceptBidParams{
			Collection: nftAddr, TokenID: id, Bidder: bidder, Quantity: 1, PricePerItem: price,
		})
		require.ErrorIs(t, err, marketplace.ErrPrecondition)

		// the item never left the seller and nothing was paid out
		holder, _ := f.nft.OwnerOf(ctx, id)
		assert.Equal(t, seller, holder)
		assert.Zero(t, f.balance(seller).Sign())
		_, ok := f.market.GetTokenBid(nftAddr, id, bidder)
		assert.True(t, ok)
	})

	t.Run("buyer without funds", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		id := f.mintUnique(seller, 1)
		price := gwei(10)

		require.NoError(t, f.market.CreateListing(ctx, seller, f.listing(nftAddr, id, 1, price)))
		err := f.market.BuyItems(ctx, buyer, []marketplace.BuyItemParams{{
			Collection: nftAddr, TokenID: id, Owner: seller, Quantity: 1, MaxPricePerItem: price,
		}}, nil)
		require.ErrorIs(t, err, marketplace.ErrPrecondition)

		holder, _ := f.nft.OwnerOf(ctx, id)
		assert.Equal(t, seller, holder)
		_, ok := f.market.GetListing(nftAddr, id, seller)
		assert.True(t, ok)
	})

	t.Run("native deposit below notional", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		id := f.mintUnique(seller, 1)
		price := gwei(10)

		require.NoError(t, f.market.CreateListing(ctx, seller, f.listing(nftAddr, id, 1, price)))
		f.bank.Deposit(buyer, gwei(5))

		// the declared value matches the listing, so only the funding
		// re-check stands between the item and an insolvent buyer
		err := f.market.BuyItems(ctx, buyer, []marketplace.BuyItemParams{{
			Collection: nftAddr, TokenID: id, Owner: seller, Quantity: 1, MaxPricePerItem: price, UsingNative: true,
		}}, price)
		require.ErrorIs(t, err, marketplace.ErrPrecondition)

		holder, _ := f.nft.OwnerOf(ctx, id)
		assert.Equal(t, seller, holder)
		assert.Zero(t, gwei(5).Cmp(f.nativeBalance(buyer)))
		assert.Zero(t, f.nativeBalance(seller).Sign())
	})
}

func TestRollbackDuringConcurrentReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintUnique(seller, 1)

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					f.market.GetListing(nftAddr, id, seller)
				}
			}
		}()
	}

	// each batch writes one listing and then fails on the second,
	// forcing a rollback while the readers above keep looking up
	bad := f.listing(nftAddr, id, 1, big.NewInt(1))
	for i := 0; i < 200; i++ {
		err := f.market.CreateOrUpdateListings(ctx, seller, []marketplace.ListingParams{
			f.listing(nftAddr, id, 1, gwei(10)),
			bad,
		})
		require.ErrorIs(t, err, marketplace.ErrPrecondition)
	}
	close(done)
	wg.Wait()

	_, ok := f.market.GetListing(nftAddr, id, seller)
	assert.False(t, ok)
}

func TestBuyPriceCeiling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintUnique(seller, 1)

	require.NoError(t, f.market.CreateListing(ctx, seller, f.listing(nftAddr, id, 1, gwei(10))))
	f.fund(buyer, gwei(50))

	buy := func(ceiling *big.Int) error {
		return f.market.BuyItems(ctx, buyer, []marketplace.BuyItemParams{{
			Collection: nftAddr, TokenID: id, Owner: seller, Quantity: 1, MaxPricePerItem: ceiling,
		}}, nil)
	}

	require.ErrorIs(t, buy(gwei(9)), marketplace.ErrPrecondition)

	// a generous ceiling still settles at the stored price
	require.NoError(t, buy(gwei(50)))
	assert.Zero(t, gwei(40).Cmp(f.balance(buyer)))
}

func TestTokenBidLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintFungible(seller, 7, 10)
	price := gwei(10)

	bid := marketplace.BidParams{
		Collection:     multiAddr,
		TokenID:        id,
		Quantity:       4,
		PricePerItem:   price,
		ExpirationTime: f.now + 9_000,
	}

	// bidding starts disabled
	require.ErrorIs(t, f.market.CreateOrUpdateTokenBid(ctx, bidder, bid), marketplace.ErrPrecondition)
	require.NoError(t, f.market.ToggleBiddingActive(marketOwner))

	// funding below notional is rejected at creation
	f.fund(bidder, gwei(39))
	require.ErrorIs(t, f.market.CreateOrUpdateTokenBid(ctx, bidder, bid), marketplace.ErrPrecondition)
	f.pay.Mint(bidder, gwei(1))
	f.pay.Approve(bidder, operator, gwei(40))
	require.NoError(t, f.market.CreateOrUpdateTokenBid(ctx, bidder, bid))

	accept := func(quantity uint64, price *big.Int) error {
		return f.market.AcceptTokenBid(ctx, seller, marketplace.AcceptBidParams{
			Collection:   multiAddr,
			TokenID:      id,
			Bidder:       bidder,
			Quantity:     quantity,
			PricePerItem: price,
		})
	}

	// acceptance price must equal the bid exactly, both directions
	require.ErrorIs(t, accept(1, gwei(9)), marketplace.ErrPrecondition)
	require.ErrorIs(t, accept(1, gwei(11)), marketplace.ErrPrecondition)

	require.NoError(t, accept(3, price))
	stored, ok := f.market.GetTokenBid(multiAddr, id, bidder)
	require.True(t, ok)
	assert.Equal(t, uint64(1), stored.Quantity)

	bal, err := f.multi.BalanceOf(ctx, bidder, id)
	require.NoError(t, err)
	assert.Zero(t, big.NewInt(3).Cmp(bal))
	// 30 minus the 5% fee
	assert.Zero(t, new(big.Int).Mul(big.NewInt(285), big.NewInt(100_000_000)).Cmp(f.balance(seller)))
	assert.Zero(t, new(big.Int).Mul(big.NewInt(15), big.NewInt(100_000_000)).Cmp(f.balance(feeRecipient)))

	require.NoError(t, accept(1, price))
	_, ok = f.market.GetTokenBid(multiAddr, id, bidder)
	assert.False(t, ok)
}

func TestCollectionBid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idA := f.mintUnique(seller, 1)
	idB := f.mintUnique(seller, 2)
	price := gwei(10)
	require.NoError(t, f.market.ToggleBiddingActive(marketOwner))

	// collection bids are refused on fungible collections
	f.fund(bidder, gwei(20))
	err := f.market.CreateOrUpdateCollectionBid(ctx, bidder, marketplace.BidParams{
		Collection:     multiAddr,
		Quantity:       2,
		PricePerItem:   price,
		ExpirationTime: f.now + 9_000,
	})
	require.ErrorIs(t, err, marketplace.ErrPrecondition)

	require.NoError(t, f.market.CreateOrUpdateCollectionBid(ctx, bidder, marketplace.BidParams{
		Collection:     nftAddr,
		Quantity:       2,
		PricePerItem:   price,
		ExpirationTime: f.now + 9_000,
	}))

	accept := func(id *big.Int) error {
		return f.market.AcceptCollectionBid(ctx, seller, marketplace.AcceptBidParams{
			Collection:   nftAddr,
			TokenID:      id,
			Bidder:       bidder,
			Quantity:     1,
			PricePerItem: price,
		})
	}

	require.NoError(t, accept(idA))
	stored, ok := f.market.GetCollectionBid(nftAddr, bidder)
	require.True(t, ok)
	assert.Equal(t, uint64(1), stored.Quantity)

	require.NoError(t, accept(idB))
	_, ok = f.market.GetCollectionBid(nftAddr, bidder)
	assert.False(t, ok)

	holder, _ := f.nft.OwnerOf(ctx, idA)
	assert.Equal(t, bidder, holder)
	holder, _ = f.nft.OwnerOf(ctx, idB)
	assert.Equal(t, bidder, holder)
}

func TestPaymentTokenAgreement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintUnique(seller, 1)
	price := gwei(10)

	p := f.listing(nftAddr, id, 1, price)
	p.PaymentToken = payTokenAddr // explicit, not the zero sentinel
	require.NoError(t, f.market.CreateListing(ctx, seller, p))

	// declaring a token other than the collection's refuses the match
	f.fund(buyer, price)
	err := f.market.BuyItems(ctx, buyer, []marketplace.BuyItemParams{{
		Collection: nftAddr, TokenID: id, Owner: seller, Quantity: 1,
		MaxPricePerItem: price, PaymentToken: altTokenAddr,
	}}, nil)
	require.ErrorIs(t, err, marketplace.ErrPrecondition)

	// repinning the collection's token invalidates the stale stored offer
	require.NoError(t, f.market.SetTokenApprovalStatus(marketOwner, nftAddr, marketplace.TokenApprovedERC721, altTokenAddr))
	err = f.market.BuyItems(ctx, buyer, []marketplace.BuyItemParams{{
		Collection: nftAddr, TokenID: id, Owner: seller, Quantity: 1, MaxPricePerItem: price,
	}}, nil)
	require.ErrorIs(t, err, marketplace.ErrPrecondition)

	// back on the original token the offer settles again
	require.NoError(t, f.market.SetTokenApprovalStatus(marketOwner, nftAddr, marketplace.TokenApprovedERC721, payTokenAddr))
	require.NoError(t, f.market.BuyItems(ctx, buyer, []marketplace.BuyItemParams{{
		Collection: nftAddr, TokenID: id, Owner: seller, Quantity: 1, MaxPricePerItem: price,
	}}, nil))
}

func TestExpiredOfferCannotMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintUnique(seller, 1)
	price := gwei(10)

	p := f.listing(nftAddr, id, 1, price)
	require.NoError(t, f.market.CreateListing(ctx, seller, p))

	f.now = p.ExpirationTime // expiry boundary is inclusive
	f.fund(buyer, price)
	err := f.market.BuyItems(ctx, buyer, []marketplace.BuyItemParams{{
		Collection: nftAddr, TokenID: id, Owner: seller, Quantity: 1, MaxPricePerItem: price,
	}}, nil)
	require.ErrorIs(t, err, marketplace.ErrPrecondition)

	// the expired record is still stored and excluded from floors
	_, ok := f.market.GetListing(nftAddr, id, seller)
	assert.True(t, ok)
	assert.Empty(t, f.market.FloorPrices())
}

func TestBatchRollback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idA := f.mintUnique(seller, 1)
	idB := f.mintUnique(seller, 2)

	bad := f.listing(nftAddr, idB, 1, gwei(10))
	bad.ExpirationTime = f.now // invalid

	err := f.market.CreateOrUpdateListings(ctx, seller, []marketplace.ListingParams{
		f.listing(nftAddr, idA, 1, gwei(10)),
		bad,
	})
	require.ErrorIs(t, err, marketplace.ErrPrecondition)

	// the valid sibling did not survive
	_, ok := f.market.GetListing(nftAddr, idA, seller)
	assert.False(t, ok)
	assert.Empty(t, f.drainEvents())
}

func TestReentrantTransferHookRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintUnique(seller, 1)
	price := gwei(10)

	require.NoError(t, f.market.CreateListing(ctx, seller, f.listing(nftAddr, id, 1, price)))

	f.nft.TransferHook = func(from, to common.Address, tokenID *big.Int) error {
		return f.market.CancelListing(ctx, seller, nftAddr, tokenID)
	}
	f.fund(buyer, price)
	err := f.market.BuyItems(ctx, buyer, []marketplace.BuyItemParams{{
		Collection: nftAddr, TokenID: id, Owner: seller, Quantity: 1, MaxPricePerItem: price,
	}}, nil)
	require.ErrorIs(t, err, marketplace.ErrTransfer)

	// the buy unwound: listing intact, item unmoved, no events beyond the listing
	f.nft.TransferHook = nil
	_, ok := f.market.GetListing(nftAddr, id, seller)
	assert.True(t, ok)
	holder, _ := f.nft.OwnerOf(ctx, id)
	assert.Equal(t, seller, holder)

	// and the guard has been released
	require.NoError(t, f.market.BuyItems(ctx, buyer, []marketplace.BuyItemParams{{
		Collection: nftAddr, TokenID: id, Owner: seller, Quantity: 1, MaxPricePerItem: price,
	}}, nil))
}

func TestSalePriceTrackerNotified(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var sales []string
	tracker := trackerFunc(func(collection common.Address, tokenID string, pricePerItem *big.Int) error {
		sales = append(sales, collection.Hex()+"/"+tokenID+"@"+pricePerItem.String())
		return nil
	})
	require.NoError(t, f.market.SetPriceTracker(marketOwner, tracker))

	// unique sales notify the tracker
	id := f.mintUnique(seller, 1)
	require.NoError(t, f.market.CreateListing(ctx, seller, f.listing(nftAddr, id, 1, gwei(10))))
	f.fund(buyer, gwei(10))
	require.NoError(t, f.market.BuyItems(ctx, buyer, []marketplace.BuyItemParams{{
		Collection: nftAddr, TokenID: id, Owner: seller, Quantity: 1, MaxPricePerItem: gwei(10),
	}}, nil))
	require.Len(t, sales, 1)

	// fungible sales do not
	fid := f.mintFungible(seller, 7, 5)
	require.NoError(t, f.market.CreateListing(ctx, seller, f.listing(multiAddr, fid, 5, gwei(10))))
	f.fund(buyer, gwei(50))
	require.NoError(t, f.market.BuyItems(ctx, buyer, []marketplace.BuyItemParams{{
		Collection: multiAddr, TokenID: fid, Owner: seller, Quantity: 5, MaxPricePerItem: gwei(10),
	}}, nil))
	assert.Len(t, sales, 1)
}

type trackerFunc func(collection common.Address, tokenID string, pricePerItem *big.Int) error

func (fn trackerFunc) RecordSale(collection common.Address, tokenID string, pricePerItem *big.Int) error {
	return fn(collection, tokenID, pricePerItem)
}

func TestFloorPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idA := f.mintUnique(seller, 1)
	idB := f.mintUnique(buyer, 2)
	f.nft.SetApprovalForAll(buyer, operator, true)

	require.NoError(t, f.market.CreateListing(ctx, seller, f.listing(nftAddr, idA, 1, gwei(30))))
	require.NoError(t, f.market.CreateListing(ctx, buyer, f.listing(nftAddr, idB, 1, gwei(20))))

	floors := f.market.FloorPrices()
	require.Contains(t, floors, nftAddr)
	assert.Zero(t, gwei(20).Cmp(floors[nftAddr]))
}

func TestAdminSurface(t *testing.T) {
	f := newFixture(t)

	t.Run("roles", func(t *testing.T) {
		require.ErrorIs(t, f.market.Pause(stranger), marketplace.ErrUnauthorized)
		require.ErrorIs(t, f.market.GrantRole(stranger, stranger, marketplace.RoleAdmin), marketplace.ErrUnauthorized)
		require.NoError(t, f.market.GrantRole(marketOwner, stranger, marketplace.RoleAdmin))
		require.NoError(t, f.market.Pause(stranger))
		require.NoError(t, f.market.Unpause(stranger))
		// admins cannot grant roles
		require.ErrorIs(t, f.market.GrantRole(stranger, buyer, marketplace.RoleAdmin), marketplace.ErrUnauthorized)
	})

	t.Run("fee caps", func(t *testing.T) {
		require.ErrorIs(t, f.market.SetFee(marketOwner, marketplace.MaxProtocolFeeBps+1, 100), marketplace.ErrPrecondition)
		require.NoError(t, f.market.SetFee(marketOwner, marketplace.MaxProtocolFeeBps, 100))
		require.ErrorIs(t, f.market.SetCollectionOwnerFee(marketOwner, nftAddr, marketplace.CollectionOwnerFee{
			Recipient: feeRecipient,
			FeeBps:    marketplace.MaxCollectionFeeBps + 1,
		}), marketplace.ErrPrecondition)
	})

	t.Run("fee recipient cannot be zero", func(t *testing.T) {
		require.ErrorIs(t, f.market.SetFeeRecipient(marketOwner, marketplace.ZeroAddress), marketplace.ErrPrecondition)
	})
}

func TestCollectionOwnerFeeSplit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	collectionOwner := common.HexToAddress("0x0000000000000000000000000000000000000055")
	id := f.mintUnique(seller, 1)
	price := gwei(100)

	require.NoError(t, f.market.SetCollectionOwnerFee(marketOwner, nftAddr, marketplace.CollectionOwnerFee{
		Recipient: collectionOwner,
		FeeBps:    1_000,
	}))

	require.NoError(t, f.market.CreateListing(ctx, seller, f.listing(nftAddr, id, 1, price)))
	f.fund(buyer, price)
	require.NoError(t, f.market.BuyItems(ctx, buyer, []marketplace.BuyItemParams{{
		Collection: nftAddr, TokenID: id, Owner: seller, Quantity: 1, MaxPricePerItem: price,
	}}, nil))

	// collection-tier protocol rate 2.5%, collection owner 10%, seller 87.5%
	assert.Zero(t, new(big.Int).Mul(big.NewInt(25), big.NewInt(100_000_000)).Cmp(f.balance(feeRecipient)))
	assert.Zero(t, gwei(10).Cmp(f.balance(collectionOwner)))
	assert.Zero(t, new(big.Int).Mul(big.NewInt(875), big.NewInt(100_000_000)).Cmp(f.balance(seller)))
}

func TestCancelBidsBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.mintUnique(seller, 1)
	price := gwei(10)
	require.NoError(t, f.market.ToggleBiddingActive(marketOwner))
	f.fund(bidder, gwei(30))

	require.NoError(t, f.market.CreateOrUpdateTokenBid(ctx, bidder, marketplace.BidParams{
		Collection: nftAddr, TokenID: id, Quantity: 1, PricePerItem: price, ExpirationTime: f.now + 9_000,
	}))
	require.NoError(t, f.market.CreateOrUpdateCollectionBid(ctx, bidder, marketplace.BidParams{
		Collection: nftAddr, Quantity: 1, PricePerItem: price, ExpirationTime: f.now + 9_000,
	}))
	f.drainEvents()

	require.NoError(t, f.market.CancelBids(ctx, bidder, []marketplace.CancelBidParams{
		{Kind: marketplace.CancelTokenBid, Collection: nftAddr, TokenID: id},
		{Kind: marketplace.CancelCollectionBid, Collection: nftAddr},
		{Kind: marketplace.CancelTokenBid, Collection: nftAddr, TokenID: big.NewInt(42)}, // absent, no-op
	}))

	_, ok := f.market.GetTokenBid(nftAddr, id, bidder)
	assert.False(t, ok)
	_, ok = f.market.GetCollectionBid(nftAddr, bidder)
	assert.False(t, ok)

	events := f.drainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, marketplace.EventTokenBidCanceled, events[0].Kind)
	assert.Equal(t, marketplace.EventCollectionBidCanceled, events[1].Kind)
}
