package marketplace

import "sync"

// table is one keyed offer collection. A quantity-zero record is treated as
// structurally absent everywhere, so cancellation writes zero instead of
// deleting and reads filter on Exists.
type table[K comparable] struct {
	m map[K]Offer
}

func newTable[K comparable]() table[K] {
	return table[K]{m: make(map[K]Offer)}
}

func (t table[K]) get(k K) (Offer, bool) {
	o, ok := t.m[k]
	if !ok || !o.Exists() {
		return Offer{}, false
	}
	return o, true
}

// put replaces the whole record unconditionally. No field-level merge.
func (t table[K]) put(k K, o Offer) {
	t.m[k] = o
}

// cancel zeroes the record and reports whether a live record was there.
// Cancelling an absent key is a no-op, never an error.
func (t table[K]) cancel(k K) (Offer, bool) {
	o, ok := t.get(k)
	if !ok {
		return Offer{}, false
	}
	o.Quantity = 0
	t.m[k] = o
	return o, true
}

// deplete subtracts amount from the record's quantity. Reaching zero clears
// the record entirely so the listed/not-listed query stays a structural
// check. Callers validate amount <= quantity first.
func (t table[K]) deplete(k K, amount uint64) {
	o, ok := t.get(k)
	if !ok {
		return
	}
	if o.Quantity <= amount {
		delete(t.m, k)
		return
	}
	o.Quantity -= amount
	t.m[k] = o
}

// offerStore holds the three keyed books. The engine's entry guard
// serializes writers; the RWMutex protects concurrent read-only lookups.
type offerStore struct {
	mu             sync.RWMutex
	listings       table[ListingKey]
	tokenBids      table[TokenBidKey]
	collectionBids table[CollectionBidKey]
}

func newOfferStore() *offerStore {
	return &offerStore{
		listings:       newTable[ListingKey](),
		tokenBids:      newTable[TokenBidKey](),
		collectionBids: newTable[CollectionBidKey](),
	}
}

func (s *offerStore) getListing(k ListingKey) (Offer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.listings.get(k)
	return o.clone(), ok
}

func (s *offerStore) getTokenBid(k TokenBidKey) (Offer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.tokenBids.get(k)
	return o.clone(), ok
}

func (s *offerStore) getCollectionBid(k CollectionBidKey) (Offer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.collectionBids.get(k)
	return o.clone(), ok
}

// rangeListings visits every live listing. Used by the floor price loop.
func (s *offerStore) rangeListings(fn func(ListingKey, Offer) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, o := range s.listings.m {
		if !o.Exists() {
			continue
		}
		if !fn(k, o.clone()) {
			return
		}
	}
}

// undoLog captures prior values of touched records so a failed batch can
// restore internal state. The unit of atomicity is the whole call: any
// failure rolls back every sibling mutation made earlier in the same batch.
type undoLog struct {
	store   *offerStore
	entries []func()
}

func (s *offerStore) begin() *undoLog {
	return &undoLog{store: s}
}

func (u *undoLog) noteListing(k ListingKey) {
	prev, existed := u.store.listings.m[k]
	u.entries = append(u.entries, func() {
		if existed {
			u.store.listings.m[k] = prev
		} else {
			delete(u.store.listings.m, k)
		}
	})
}

func (u *undoLog) noteTokenBid(k TokenBidKey) {
	prev, existed := u.store.tokenBids.m[k]
	u.entries = append(u.entries, func() {
		if existed {
			u.store.tokenBids.m[k] = prev
		} else {
			delete(u.store.tokenBids.m, k)
		}
	})
}

func (u *undoLog) noteCollectionBid(k CollectionBidKey) {
	prev, existed := u.store.collectionBids.m[k]
	u.entries = append(u.entries, func() {
		if existed {
			u.store.collectionBids.m[k] = prev
		} else {
			delete(u.store.collectionBids.m, k)
		}
	})
}

// rollback restores prior values in reverse order. It takes the store write
// lock itself: callers invoke it after releasing the lock held for the
// failed mutation, while read-only lookups may still be running.
func (u *undoLog) rollback() {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	for i := len(u.entries) - 1; i >= 0; i-- {
		u.entries[i]()
	}
	u.entries = nil
}
