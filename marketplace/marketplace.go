// Package marketplace implements a non-custodial exchange core: sellers
// advertise listings, buyers place bids, and either side accepts the other's
// standing offer. Item and payment legs move atomically and directly between
// the two parties through external registries; the engine never holds either
// asset.
package marketplace

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ghoul-sol/treasure-marketplace/logger/xzap"
)

// SalePriceTracker is the fire-and-forget price oracle collaborator. It is
// notified after settlement of unique-item sales is final; failures are
// logged and never roll back settlement.
type SalePriceTracker interface {
	RecordSale(collection common.Address, tokenID string, pricePerItem *big.Int) error
}

// Config seeds the engine's administration state.
type Config struct {
	// Operator is the address collections and ledgers see as the consented
	// spender.
	Operator common.Address

	// Owner receives RoleOwner and may grant further roles.
	Owner common.Address

	// DefaultPaymentToken settles collections without an override.
	DefaultPaymentToken common.Address

	// WrappedNativeToken is the only payment token purchasable with
	// attached native value.
	WrappedNativeToken common.Address

	FeeBps                    uint64
	FeeWithCollectionOwnerBps uint64
	FeeRecipient              common.Address
}

// Marketplace is the settlement engine. All state-mutating entry points are
// serialized by a busy flag; a reentrant call from a transfer hook fails
// with ErrReentrantCall instead of observing half-finished state.
type Marketplace struct {
	operator common.Address
	resolver RegistryResolver
	native   NativeLedger
	sink     EventSink
	store    *offerStore
	nowFn    func() uint64
	busy     atomic.Bool

	mu                        sync.RWMutex
	paused                    bool
	bidsActive                bool
	feeBps                    uint64
	feeWithCollectionOwnerBps uint64
	feeRecipient              common.Address
	defaultPaymentToken       common.Address
	wrappedNative             common.Address
	collectionFees            map[common.Address]CollectionOwnerFee
	approvals                 map[common.Address]TokenApprovalStatus
	paymentTokens             map[common.Address]common.Address
	roles                     map[common.Address]Role
	tracker                   SalePriceTracker
}

// Option customizes a Marketplace at construction.
type Option func(*Marketplace)

func WithEventSink(sink EventSink) Option {
	return func(m *Marketplace) { m.sink = sink }
}

func WithPriceTracker(t SalePriceTracker) Option {
	return func(m *Marketplace) { m.tracker = t }
}

// WithClock overrides the epoch-seconds source.
func WithClock(now func() uint64) Option {
	return func(m *Marketplace) { m.nowFn = now }
}

// New builds an engine. Bidding starts disabled and the engine unpaused.
func New(cfg Config, resolver RegistryResolver, native NativeLedger, opts ...Option) (*Marketplace, error) {
	if resolver == nil {
		return nil, errors.New("registry resolver is required")
	}
	if cfg.FeeBps > MaxProtocolFeeBps || cfg.FeeWithCollectionOwnerBps > MaxProtocolFeeBps {
		return nil, errors.Errorf("protocol fee above cap %d", MaxProtocolFeeBps)
	}
	if cfg.FeeRecipient == ZeroAddress {
		return nil, errors.New("fee recipient is required")
	}
	if cfg.DefaultPaymentToken == ZeroAddress {
		return nil, errors.New("default payment token is required")
	}

	m := &Marketplace{
		operator:                  cfg.Operator,
		resolver:                  resolver,
		native:                    native,
		store:                     newOfferStore(),
		nowFn:                     func() uint64 { return uint64(time.Now().Unix()) },
		feeBps:                    cfg.FeeBps,
		feeWithCollectionOwnerBps: cfg.FeeWithCollectionOwnerBps,
		feeRecipient:              cfg.FeeRecipient,
		defaultPaymentToken:       cfg.DefaultPaymentToken,
		wrappedNative:             cfg.WrappedNativeToken,
		collectionFees:            make(map[common.Address]CollectionOwnerFee),
		approvals:                 make(map[common.Address]TokenApprovalStatus),
		paymentTokens:             make(map[common.Address]common.Address),
		roles:                     map[common.Address]Role{cfg.Owner: RoleOwner},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// enter acquires the non-reentrant guard held for the duration of every
// state-mutating entry point.
func (m *Marketplace) enter() error {
	if !m.busy.CompareAndSwap(false, true) {
		return errors.WithStack(ErrReentrantCall)
	}
	return nil
}

func (m *Marketplace) exit() {
	m.busy.Store(false)
}

func (m *Marketplace) requireNotPaused() error {
	if m.isPaused() {
		return unauthorizedf("marketplace is paused")
	}
	return nil
}

func (m *Marketplace) publish(events []Event) {
	if m.sink == nil {
		return
	}
	for _, e := range events {
		m.sink.Publish(e)
	}
}

// notifyTracker reports committed unique-item sales to the price oracle.
// Best effort: errors are logged, never propagated.
func (m *Marketplace) notifyTracker(ctx context.Context, sales []Event) {
	tracker := m.salePriceTracker()
	if tracker == nil {
		return
	}
	for _, s := range sales {
		if err := tracker.RecordSale(s.Collection, s.TokenID, s.PricePerItem); err != nil {
			xzap.WithContext(ctx).Warn("failed on record sale price",
				zap.String("collection", s.Collection.Hex()),
				zap.String("token_id", s.TokenID),
				zap.Error(err))
		}
	}
}

type listingWriteMode uint8

const (
	writeRequireAbsent listingWriteMode = iota
	writeRequirePresent
	writeAny
)

// writeListing runs creation validation and replaces the stored record
// wholesale. The caller holds the entry guard.
func (m *Marketplace) writeListing(ctx context.Context, seller common.Address, p ListingParams, mode listingWriteMode, undo *undoLog) (Event, error) {
	tc, err := m.capabilityFor(p.Collection)
	if err != nil {
		return Event{}, err
	}
	if err := m.validateListingCreation(ctx, seller, p, tc); err != nil {
		return Event{}, err
	}

	key := ListingKey{Collection: p.Collection, TokenID: tokenIDString(p.TokenID), Owner: seller}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	_, exists := m.store.listings.get(key)
	switch mode {
	case writeRequireAbsent:
		if exists {
			return Event{}, stateConflictf("listing already exists")
		}
	case writeRequirePresent:
		if !exists {
			return Event{}, stateConflictf("listing does not exist")
		}
	}
	if undo != nil {
		undo.noteListing(key)
	}
	m.store.listings.put(key, Offer{
		Quantity:       p.Quantity,
		PricePerItem:   new(big.Int).Set(p.PricePerItem),
		ExpirationTime: p.ExpirationTime,
		PaymentToken:   p.PaymentToken,
	})

	kind := EventItemListed
	if exists {
		kind = EventItemUpdated
	}
	return Event{
		Kind:         kind,
		Collection:   p.Collection,
		TokenID:      key.TokenID,
		Maker:        seller,
		Quantity:     p.Quantity,
		PricePerItem: new(big.Int).Set(p.PricePerItem),
		PaymentToken: m.PaymentTokenOf(p.Collection),
		ExpireTime:   p.ExpirationTime,
		EventTime:    int64(m.nowFn()),
	}, nil
}

// CreateListing lists an item the seller holds. Fails if a live listing for
// the same (collection, token, seller) tuple already exists.
func (m *Marketplace) CreateListing(ctx context.Context, seller common.Address, p ListingParams) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()
	if err := m.requireNotPaused(); err != nil {
		return err
	}
	ev, err := m.writeListing(ctx, seller, p, writeRequireAbsent, nil)
	if err != nil {
		return err
	}
	m.publish([]Event{ev})
	return nil
}

// UpdateListing overwrites an existing listing in full; there is no
// field-level merge.
func (m *Marketplace) UpdateListing(ctx context.Context, seller common.Address, p ListingParams) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()
	if err := m.requireNotPaused(); err != nil {
		return err
	}
	ev, err := m.writeListing(ctx, seller, p, writeRequirePresent, nil)
	if err != nil {
		return err
	}
	m.publish([]Event{ev})
	return nil
}

// CreateOrUpdateListing upserts regardless of prior state.
func (m *Marketplace) CreateOrUpdateListing(ctx context.Context, seller common.Address, p ListingParams) error {
	return m.CreateOrUpdateListings(ctx, seller, []ListingParams{p})
}

// CreateOrUpdateListings is the batched upsert. The batch is all-or-nothing:
// one bad entry aborts the call and no sibling write survives.
func (m *Marketplace) CreateOrUpdateListings(ctx context.Context, seller common.Address, ps []ListingParams) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()
	if err := m.requireNotPaused(); err != nil {
		return err
	}

	undo := m.store.begin()
	events := make([]Event, 0, len(ps))
	for i, p := range ps {
		ev, err := m.writeListing(ctx, seller, p, writeAny, undo)
		if err != nil {
			undo.rollback()
			return errors.Wrapf(err, "listing %d", i)
		}
		events = append(events, ev)
	}
	m.publish(events)
	return nil
}

// CancelListing zeroes the seller's listing. Exempt from pause and a no-op
// for absent records.
func (m *Marketplace) CancelListing(ctx context.Context, seller, collection common.Address, tokenID *big.Int) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()

	key := ListingKey{Collection: collection, TokenID: tokenIDString(tokenID), Owner: seller}
	m.store.mu.Lock()
	_, existed := m.store.listings.cancel(key)
	m.store.mu.Unlock()
	if !existed {
		return nil
	}
	m.publish([]Event{{
		Kind:       EventItemCanceled,
		Collection: collection,
		TokenID:    key.TokenID,
		Maker:      seller,
		EventTime:  int64(m.nowFn()),
	}})
	return nil
}

// CreateOrUpdateTokenBid upserts a bid on one specific item.
func (m *Marketplace) CreateOrUpdateTokenBid(ctx context.Context, bidder common.Address, p BidParams) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()
	if err := m.requireNotPaused(); err != nil {
		return err
	}

	tc, err := m.capabilityFor(p.Collection)
	if err != nil {
		return err
	}
	if err := m.validateBidCreation(ctx, bidder, p, tc, false); err != nil {
		return err
	}

	key := TokenBidKey{Collection: p.Collection, TokenID: tokenIDString(p.TokenID), Bidder: bidder}
	m.store.mu.Lock()
	m.store.tokenBids.put(key, Offer{
		Quantity:       p.Quantity,
		PricePerItem:   new(big.Int).Set(p.PricePerItem),
		ExpirationTime: p.ExpirationTime,
		PaymentToken:   p.PaymentToken,
	})
	m.store.mu.Unlock()

	m.publish([]Event{{
		Kind:         EventTokenBidCreated,
		Collection:   p.Collection,
		TokenID:      key.TokenID,
		Maker:        bidder,
		Quantity:     p.Quantity,
		PricePerItem: new(big.Int).Set(p.PricePerItem),
		PaymentToken: m.PaymentTokenOf(p.Collection),
		ExpireTime:   p.ExpirationTime,
		EventTime:    int64(m.nowFn()),
	}})
	return nil
}

// CreateOrUpdateCollectionBid upserts a floor bid satisfiable against any
// item of a unique-item collection.
func (m *Marketplace) CreateOrUpdateCollectionBid(ctx context.Context, bidder common.Address, p BidParams) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()
	if err := m.requireNotPaused(); err != nil {
		return err
	}

	tc, err := m.capabilityFor(p.Collection)
	if err != nil {
		return err
	}
	if err := m.validateBidCreation(ctx, bidder, p, tc, true); err != nil {
		return err
	}

	key := CollectionBidKey{Collection: p.Collection, Bidder: bidder}
	m.store.mu.Lock()
	m.store.collectionBids.put(key, Offer{
		Quantity:       p.Quantity,
		PricePerItem:   new(big.Int).Set(p.PricePerItem),
		ExpirationTime: p.ExpirationTime,
		PaymentToken:   p.PaymentToken,
	})
	m.store.mu.Unlock()

	m.publish([]Event{{
		Kind:         EventCollectionBidCreated,
		Collection:   p.Collection,
		Maker:        bidder,
		Quantity:     p.Quantity,
		PricePerItem: new(big.Int).Set(p.PricePerItem),
		PaymentToken: m.PaymentTokenOf(p.Collection),
		ExpireTime:   p.ExpirationTime,
		EventTime:    int64(m.nowFn()),
	}})
	return nil
}

// CancelBids cancels a batch of the bidder's own bids, each entry tagged as
// a token or collection bid. Exempt from pause; absent entries are no-ops.
func (m *Marketplace) CancelBids(ctx context.Context, bidder common.Address, ps []CancelBidParams) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()

	events := make([]Event, 0, len(ps))
	m.store.mu.Lock()
	for _, p := range ps {
		switch p.Kind {
		case CancelCollectionBid:
			if _, existed := m.store.collectionBids.cancel(CollectionBidKey{Collection: p.Collection, Bidder: bidder}); existed {
				events = append(events, Event{
					Kind:       EventCollectionBidCanceled,
					Collection: p.Collection,
					Maker:      bidder,
					EventTime:  int64(m.nowFn()),
				})
			}
		default:
			key := TokenBidKey{Collection: p.Collection, TokenID: tokenIDString(p.TokenID), Bidder: bidder}
			if _, existed := m.store.tokenBids.cancel(key); existed {
				events = append(events, Event{
					Kind:       EventTokenBidCanceled,
					Collection: p.Collection,
					TokenID:    key.TokenID,
					Maker:      bidder,
					EventTime:  int64(m.nowFn()),
				})
			}
		}
	}
	m.store.mu.Unlock()

	m.publish(events)
	return nil
}

// BuyItems settles a batch of independent purchases against stored listings.
// When any entry pays with native value, the sum of native legs must equal
// value exactly; overpayment fails closed, there is no refund path. The
// batch is all-or-nothing.
func (m *Marketplace) BuyItems(ctx context.Context, buyer common.Address, items []BuyItemParams, value *big.Int) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()
	if err := m.requireNotPaused(); err != nil {
		return err
	}
	if len(items) == 0 {
		return preconditionf("empty purchase batch")
	}
	if value == nil {
		value = big.NewInt(0)
	}

	// The native requirement is computed against stored listings before any
	// asset moves, so a value mismatch aborts with nothing settled.
	nativeTotal := big.NewInt(0)
	for i, it := range items {
		if !it.UsingNative {
			continue
		}
		if m.PaymentTokenOf(it.Collection) != m.wrappedNative {
			return preconditionf("item %d: collection does not settle in the wrapped native token", i)
		}
		key := ListingKey{Collection: it.Collection, TokenID: tokenIDString(it.TokenID), Owner: it.Owner}
		offer, ok := m.store.getListing(key)
		if !ok {
			return stateConflictf("item %d: listing does not exist", i)
		}
		leg := new(big.Int).Mul(offer.PricePerItem, new(big.Int).SetUint64(it.Quantity))
		nativeTotal.Add(nativeTotal, leg)
	}
	if nativeTotal.Cmp(value) != 0 {
		return preconditionf("attached value %s does not equal native total %s", value.String(), nativeTotal.String())
	}

	undo := m.store.begin()
	events := make([]Event, 0, len(items))
	sales := make([]Event, 0, len(items))
	for i, it := range items {
		ev, unique, err := m.buyItem(ctx, buyer, it, undo)
		if err != nil {
			undo.rollback()
			return errors.Wrapf(err, "item %d", i)
		}
		events = append(events, ev)
		if unique {
			sales = append(sales, ev)
		}
	}

	m.publish(events)
	m.notifyTracker(ctx, sales)
	return nil
}

// buyItem settles one purchase: validate the match, move the item, split the
// payment, deplete the listing. Depletion is the only local mutation and is
// idempotent toward absence, so it is ordered after the external calls.
func (m *Marketplace) buyItem(ctx context.Context, buyer common.Address, it BuyItemParams, undo *undoLog) (Event, bool, error) {
	tc, err := m.capabilityFor(it.Collection)
	if err != nil {
		return Event{}, false, err
	}

	key := ListingKey{Collection: it.Collection, TokenID: tokenIDString(it.TokenID), Owner: it.Owner}
	offer, _ := m.store.getListing(key)
	if err := m.validateMatch(offer, it.Owner, buyer, it.Collection, it.Quantity, it.MaxPricePerItem, it.PaymentToken, matchBuy); err != nil {
		return Event{}, false, err
	}

	// Funding is re-checked before the item moves: the item transfer cannot
	// be unwound, so an under-funded buyer must fail here, not at payout.
	token := m.PaymentTokenOf(it.Collection)
	total := new(big.Int).Mul(offer.PricePerItem, new(big.Int).SetUint64(it.Quantity))
	if err := m.validatePayerFunding(ctx, buyer, token, it.UsingNative, total); err != nil {
		return Event{}, false, err
	}

	// The registry transfer re-validates ownership and consent on its side;
	// a refusal aborts the whole batch.
	if err := tc.transfer(ctx, it.Owner, buyer, it.TokenID, it.Quantity); err != nil {
		return Event{}, false, transferFailed(err, "item transfer")
	}

	if err := m.settlePayment(ctx, it.Collection, token, it.UsingNative, buyer, it.Owner, total); err != nil {
		return Event{}, false, err
	}

	m.store.mu.Lock()
	undo.noteListing(key)
	m.store.listings.deplete(key, it.Quantity)
	m.store.mu.Unlock()

	return Event{
		Kind:         EventItemSold,
		Collection:   it.Collection,
		TokenID:      key.TokenID,
		Maker:        it.Owner,
		Taker:        buyer,
		Quantity:     it.Quantity,
		PricePerItem: new(big.Int).Set(offer.PricePerItem),
		PaymentToken: token,
		EventTime:    int64(m.nowFn()),
	}, tc.kind == TokenApprovedERC721, nil
}

// AcceptTokenBid settles a stored per-item bid: the caller supplies the item
// and the bidder pays. Price must match the bid exactly.
func (m *Marketplace) AcceptTokenBid(ctx context.Context, seller common.Address, p AcceptBidParams) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()
	if err := m.requireNotPaused(); err != nil {
		return err
	}

	key := TokenBidKey{Collection: p.Collection, TokenID: tokenIDString(p.TokenID), Bidder: p.Bidder}
	offer, _ := m.store.getTokenBid(key)
	ev, unique, err := m.acceptBid(ctx, seller, p, offer, CancelTokenBid, func(undo *undoLog) {
		undo.noteTokenBid(key)
		m.store.tokenBids.deplete(key, p.Quantity)
	})
	if err != nil {
		return err
	}
	m.publish([]Event{ev})
	if unique {
		m.notifyTracker(ctx, []Event{ev})
	}
	return nil
}

// AcceptCollectionBid settles a stored floor bid against a token the caller
// holds. Only meaningful on unique-item collections.
func (m *Marketplace) AcceptCollectionBid(ctx context.Context, seller common.Address, p AcceptBidParams) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()
	if err := m.requireNotPaused(); err != nil {
		return err
	}

	key := CollectionBidKey{Collection: p.Collection, Bidder: p.Bidder}
	offer, _ := m.store.getCollectionBid(key)
	ev, unique, err := m.acceptBid(ctx, seller, p, offer, CancelCollectionBid, func(undo *undoLog) {
		undo.noteCollectionBid(key)
		m.store.collectionBids.deplete(key, p.Quantity)
	})
	if err != nil {
		return err
	}
	m.publish([]Event{ev})
	if unique {
		m.notifyTracker(ctx, []Event{ev})
	}
	return nil
}

// acceptBid is the shared bid-acceptance flow. Relative to a purchase the
// item and payment directions are both reversed: the caller supplies the
// item, the bidder funds the split.
func (m *Marketplace) acceptBid(ctx context.Context, seller common.Address, p AcceptBidParams, offer Offer, bidType BidCancelKind, deplete func(*undoLog)) (Event, bool, error) {
	if !m.biddingActive() {
		return Event{}, false, preconditionf("bidding is not active")
	}
	tc, err := m.capabilityFor(p.Collection)
	if err != nil {
		return Event{}, false, err
	}
	if tc.kind == TokenApprovedERC721 && p.Quantity != 1 {
		return Event{}, false, preconditionf("unique-item bids settle one fulfillment at a time")
	}
	if err := m.validateMatch(offer, p.Bidder, seller, p.Collection, p.Quantity, p.PricePerItem, p.PaymentToken, matchAcceptBid); err != nil {
		return Event{}, false, err
	}

	// The bidder's funding was checked at bid creation only; re-check before
	// the item moves so a since-drained bidder cannot take it for free.
	token := m.PaymentTokenOf(p.Collection)
	total := new(big.Int).Mul(offer.PricePerItem, new(big.Int).SetUint64(p.Quantity))
	if err := m.validatePayerFunding(ctx, p.Bidder, token, false, total); err != nil {
		return Event{}, false, err
	}

	if err := tc.transfer(ctx, seller, p.Bidder, p.TokenID, p.Quantity); err != nil {
		return Event{}, false, transferFailed(err, "item transfer")
	}

	if err := m.settlePayment(ctx, p.Collection, token, false, p.Bidder, seller, total); err != nil {
		return Event{}, false, err
	}

	undo := m.store.begin()
	m.store.mu.Lock()
	deplete(undo)
	m.store.mu.Unlock()

	return Event{
		Kind:         EventBidAccepted,
		Collection:   p.Collection,
		TokenID:      tokenIDString(p.TokenID),
		Maker:        p.Bidder,
		Taker:        seller,
		Quantity:     p.Quantity,
		PricePerItem: new(big.Int).Set(offer.PricePerItem),
		PaymentToken: token,
		EventTime:    int64(m.nowFn()),
		BidType:      bidType,
	}, tc.kind == TokenApprovedERC721, nil
}

// Read-only lookups. Absent and quantity-zero records are indistinguishable.

func (m *Marketplace) GetListing(collection common.Address, tokenID *big.Int, owner common.Address) (Offer, bool) {
	return m.store.getListing(ListingKey{Collection: collection, TokenID: tokenIDString(tokenID), Owner: owner})
}

func (m *Marketplace) GetTokenBid(collection common.Address, tokenID *big.Int, bidder common.Address) (Offer, bool) {
	return m.store.getTokenBid(TokenBidKey{Collection: collection, TokenID: tokenIDString(tokenID), Bidder: bidder})
}

func (m *Marketplace) GetCollectionBid(collection common.Address, bidder common.Address) (Offer, bool) {
	return m.store.getCollectionBid(CollectionBidKey{Collection: collection, Bidder: bidder})
}

// FloorPrices returns the lowest live unexpired listing price per
// collection. Serves the floor maintenance loop.
func (m *Marketplace) FloorPrices() map[common.Address]*big.Int {
	now := m.nowFn()
	floors := make(map[common.Address]*big.Int)
	m.store.rangeListings(func(k ListingKey, o Offer) bool {
		if o.ExpirationTime <= now {
			return true
		}
		if cur, ok := floors[k.Collection]; !ok || o.PricePerItem.Cmp(cur) < 0 {
			floors[k.Collection] = o.PricePerItem
		}
		return true
	})
	return floors
}
