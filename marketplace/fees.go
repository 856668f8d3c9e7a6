package marketplace

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// feeBreakdown is the three-way split of a settlement notional. Truncating
// division can only shrink the fee legs, so the seller absorbs the dust and
// the split always conserves the notional exactly.
type feeBreakdown struct {
	protocol            *big.Int
	collection          *big.Int
	seller              *big.Int
	collectionRecipient common.Address
}

// computeFees never errors. With a configured collection recipient the
// collection-tier protocol rate and the collection owner rate apply;
// otherwise the standard protocol rate applies with no collection leg.
func (m *Marketplace) computeFees(collection common.Address, total *big.Int) feeBreakdown {
	m.mu.RLock()
	protocolBps := m.feeBps
	ownerFee, hasOwnerFee := m.collectionFees[collection]
	if hasOwnerFee && ownerFee.Recipient != ZeroAddress {
		protocolBps = m.feeWithCollectionOwnerBps
	}
	m.mu.RUnlock()

	bps := func(rate uint64) *big.Int {
		v := new(big.Int).Mul(total, new(big.Int).SetUint64(rate))
		return v.Quo(v, big.NewInt(BasisPoints))
	}

	out := feeBreakdown{
		protocol:   bps(protocolBps),
		collection: big.NewInt(0),
	}
	if hasOwnerFee && ownerFee.Recipient != ZeroAddress {
		out.collection = bps(ownerFee.FeeBps)
		out.collectionRecipient = ownerFee.Recipient
	}
	out.seller = new(big.Int).Sub(total, out.protocol)
	out.seller.Sub(out.seller, out.collection)
	return out
}

// payout issues one payment leg. Zero amounts are no-ops, never attempted.
func (m *Marketplace) payout(ctx context.Context, ledger ERC20, native bool, payer, recipient common.Address, amount *big.Int, what string) error {
	if amount.Sign() == 0 {
		return nil
	}
	if native {
		if err := m.native.Transfer(ctx, payer, recipient, amount); err != nil {
			return transferFailed(err, what)
		}
		return nil
	}
	if err := ledger.TransferFrom(ctx, payer, recipient, amount); err != nil {
		return transferFailed(err, what)
	}
	return nil
}

// settlePayment executes the split for one match: protocol fee recipient
// first, collection fee recipient second (skipped when no collection fee is
// configured), seller last.
func (m *Marketplace) settlePayment(ctx context.Context, collection common.Address, paymentToken common.Address, native bool, payer, seller common.Address, total *big.Int) error {
	var ledger ERC20
	if !native {
		var err error
		ledger, err = m.resolver.ERC20(paymentToken)
		if err != nil {
			return preconditionf("no payment ledger for token %s: %v", paymentToken.Hex(), err)
		}
	}

	fees := m.computeFees(collection, total)
	if err := m.payout(ctx, ledger, native, payer, m.protocolFeeRecipient(), fees.protocol, "protocol fee"); err != nil {
		return err
	}
	if err := m.payout(ctx, ledger, native, payer, fees.collectionRecipient, fees.collection, "collection fee"); err != nil {
		return err
	}
	return m.payout(ctx, ledger, native, payer, seller, fees.seller, "seller proceeds")
}
