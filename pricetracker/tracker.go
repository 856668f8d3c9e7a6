// Package pricetracker records clearing prices of unique-item sales. It is a
// best-effort collaborator: the settlement engine notifies it after a sale
// is final and ignores its failures.
package pricetracker

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// CollectionStats is the running view kept per collection.
type CollectionStats struct {
	Sales     int64
	LastPrice decimal.Decimal
	MeanPrice decimal.Decimal
}

// Tracker keeps a running mean of sale prices per collection.
type Tracker struct {
	mu    sync.RWMutex
	stats map[common.Address]*collectionAccum
}

type collectionAccum struct {
	sales int64
	total decimal.Decimal
	last  decimal.Decimal
}

func New() *Tracker {
	return &Tracker{stats: make(map[common.Address]*collectionAccum)}
}

// RecordSale folds one sale into the collection's running stats.
func (t *Tracker) RecordSale(collection common.Address, _ string, pricePerItem *big.Int) error {
	price := decimal.NewFromBigInt(pricePerItem, 0)
	t.mu.Lock()
	defer t.mu.Unlock()
	acc, ok := t.stats[collection]
	if !ok {
		acc = &collectionAccum{total: decimal.Zero}
		t.stats[collection] = acc
	}
	acc.sales++
	acc.total = acc.total.Add(price)
	acc.last = price
	return nil
}

// Stats returns the current view for a collection.
func (t *Tracker) Stats(collection common.Address) (CollectionStats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	acc, ok := t.stats[collection]
	if !ok {
		return CollectionStats{}, false
	}
	return CollectionStats{
		Sales:     acc.sales,
		LastPrice: acc.last,
		MeanPrice: acc.total.DivRound(decimal.NewFromInt(acc.sales), 0),
	}, true
}
