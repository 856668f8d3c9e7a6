package marketplace

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Creation-time validation. Expiry and price are checked at the moment of
// every create or update only; records are never proactively expired, so
// match-time validation re-checks expiry.

func (m *Marketplace) validatePriceAndExpiry(price *big.Int, expiration uint64) error {
	if expiration <= m.nowFn() {
		return preconditionf("expiration %d is not in the future", expiration)
	}
	if price == nil || price.Cmp(MinPrice) < 0 {
		return preconditionf("price below minimum %s", MinPrice.String())
	}
	if price.Cmp(maxUint128) > 0 {
		return preconditionf("price exceeds uint128")
	}
	return nil
}

// validateDeclaredPaymentToken enforces that the declared token matches the
// collection's currently configured token. The zero address is the legacy
// sentinel and resolves to the configured token.
func (m *Marketplace) validateDeclaredPaymentToken(collection, declared common.Address) error {
	resolved := m.PaymentTokenOf(collection)
	if declared != ZeroAddress && declared != resolved {
		return preconditionf("payment token %s does not match collection token %s",
			declared.Hex(), resolved.Hex())
	}
	return nil
}

// validateListingCreation runs the full precondition pipeline for a listing
// create or update: future expiry, minimum price, kind-correct quantity,
// current ownership and standing consent, payment token agreement.
func (m *Marketplace) validateListingCreation(ctx context.Context, seller common.Address, p ListingParams, tc *tokenCapability) error {
	if err := m.validatePriceAndExpiry(p.PricePerItem, p.ExpirationTime); err != nil {
		return err
	}
	switch tc.kind {
	case TokenApprovedERC721:
		if p.Quantity != 1 {
			return preconditionf("unique-item listings carry quantity 1, got %d", p.Quantity)
		}
	case TokenApprovedERC1155:
		if p.Quantity == 0 {
			return preconditionf("listing quantity must be positive")
		}
	}
	holds, err := tc.holdsQuantity(ctx, seller, p.TokenID, p.Quantity)
	if err != nil {
		return transferFailed(err, "ownership check")
	}
	if !holds {
		return preconditionf("seller %s does not hold %d of token %s", seller.Hex(), p.Quantity, tokenIDString(p.TokenID))
	}
	consent, err := tc.hasConsent(ctx, seller)
	if err != nil {
		return transferFailed(err, "consent check")
	}
	if !consent {
		return preconditionf("seller %s has not granted transfer consent", seller.Hex())
	}
	return m.validateDeclaredPaymentToken(p.Collection, p.PaymentToken)
}

// validateBidCreation mirrors listing creation from the bidder side. The
// funding check (balance and allowance covering price x quantity) is
// point-in-time; later under-funding is the bidder's risk and is re-checked
// when the bid is matched.
func (m *Marketplace) validateBidCreation(ctx context.Context, bidder common.Address, p BidParams, tc *tokenCapability, collectionBid bool) error {
	if !m.biddingActive() {
		return preconditionf("bidding is not active")
	}
	if err := m.validatePriceAndExpiry(p.PricePerItem, p.ExpirationTime); err != nil {
		return err
	}
	if collectionBid && tc.kind != TokenApprovedERC721 {
		return preconditionf("collection bids are only valid on unique-item collections")
	}
	if p.Quantity == 0 {
		return preconditionf("bid quantity must be positive")
	}
	if err := m.validateDeclaredPaymentToken(p.Collection, p.PaymentToken); err != nil {
		return err
	}

	token := m.PaymentTokenOf(p.Collection)
	ledger, err := m.resolver.ERC20(token)
	if err != nil {
		return preconditionf("no payment ledger for token %s: %v", token.Hex(), err)
	}
	total := new(big.Int).Mul(p.PricePerItem, new(big.Int).SetUint64(p.Quantity))
	bal, err := ledger.BalanceOf(ctx, bidder)
	if err != nil {
		return transferFailed(err, "balance check")
	}
	if bal.Cmp(total) < 0 {
		return preconditionf("bidder balance %s below notional %s", bal.String(), total.String())
	}
	allowance, err := ledger.Allowance(ctx, bidder, m.operator)
	if err != nil {
		return transferFailed(err, "allowance check")
	}
	if allowance.Cmp(total) < 0 {
		return preconditionf("bidder allowance %s below notional %s", allowance.String(), total.String())
	}
	return nil
}

// validatePayerFunding re-checks the payer's ability to cover the notional
// immediately before the item leg moves. Creation-time funding checks are
// point-in-time; balances and allowances move between creation and match,
// and the item transfer cannot be unwound once commanded.
func (m *Marketplace) validatePayerFunding(ctx context.Context, payer, paymentToken common.Address, native bool, total *big.Int) error {
	if native {
		bal, err := m.native.BalanceOf(ctx, payer)
		if err != nil {
			return transferFailed(err, "native balance check")
		}
		if bal.Cmp(total) < 0 {
			return preconditionf("payer native balance %s below notional %s", bal.String(), total.String())
		}
		return nil
	}
	ledger, err := m.resolver.ERC20(paymentToken)
	if err != nil {
		return preconditionf("no payment ledger for token %s: %v", paymentToken.Hex(), err)
	}
	bal, err := ledger.BalanceOf(ctx, payer)
	if err != nil {
		return transferFailed(err, "balance check")
	}
	if bal.Cmp(total) < 0 {
		return preconditionf("payer balance %s below notional %s", bal.String(), total.String())
	}
	allowance, err := ledger.Allowance(ctx, payer, m.operator)
	if err != nil {
		return transferFailed(err, "allowance check")
	}
	if allowance.Cmp(total) < 0 {
		return preconditionf("payer allowance %s below notional %s", allowance.String(), total.String())
	}
	return nil
}

// matchMode selects the price comparison for a match.
type matchMode uint8

const (
	matchBuy        matchMode = iota // caller price is a ceiling
	matchAcceptBid                   // caller price must equal exactly
)

// validateMatch is the shared precondition pipeline before any settlement.
// offerOwner is the stored offer's party; taker is the counter-party
// attempting the match.
func (m *Marketplace) validateMatch(offer Offer, offerOwner, taker common.Address, collection common.Address, quantity uint64, callerPrice *big.Int, declaredToken common.Address, mode matchMode) error {
	if !offer.Exists() {
		return stateConflictf("offer does not exist")
	}
	if offerOwner == taker {
		return stateConflictf("cannot match own offer")
	}
	if offer.ExpirationTime <= m.nowFn() {
		return preconditionf("offer expired at %d", offer.ExpirationTime)
	}
	if offer.PricePerItem == nil || offer.PricePerItem.Sign() <= 0 {
		return preconditionf("offer price is not positive")
	}
	if quantity == 0 || quantity > offer.Quantity {
		return preconditionf("requested quantity %d outside offer quantity %d", quantity, offer.Quantity)
	}
	if callerPrice == nil {
		return preconditionf("caller price missing")
	}
	switch mode {
	case matchBuy:
		if callerPrice.Cmp(offer.PricePerItem) < 0 {
			return preconditionf("price ceiling %s below offer price %s", callerPrice.String(), offer.PricePerItem.String())
		}
	case matchAcceptBid:
		if callerPrice.Cmp(offer.PricePerItem) != 0 {
			return preconditionf("price %s does not equal bid price %s", callerPrice.String(), offer.PricePerItem.String())
		}
	}

	// Payment token tri-agreement: the stored offer, the caller declaration
	// and the collection's current configuration must name the same token.
	// A collection-level token change therefore invalidates stale offers
	// without touching every record.
	resolved := m.PaymentTokenOf(collection)
	stored := offer.PaymentToken
	if stored == ZeroAddress {
		stored = resolved
	}
	declared := declaredToken
	if declared == ZeroAddress {
		declared = resolved
	}
	if stored != declared || declared != resolved {
		return preconditionf("payment token disagreement: stored %s declared %s collection %s",
			stored.Hex(), declared.Hex(), resolved.Hex())
	}
	return nil
}
