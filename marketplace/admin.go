package marketplace

import (
	"github.com/ethereum/go-ethereum/common"
)

// Administrative surface. Role checks are independent of pause state, and
// admin mutations are deliberately not ordered against in-flight settlement:
// each item of a batch re-resolves the current fee, approval and payment
// token configuration at the moment it is processed.

func (m *Marketplace) requireRole(caller common.Address, min Role) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.roles[caller] < min {
		return unauthorizedf("caller %s lacks required role", caller.Hex())
	}
	return nil
}

// GrantRole assigns a role. Only the owner may grant roles.
func (m *Marketplace) GrantRole(caller, grantee common.Address, role Role) error {
	if err := m.requireRole(caller, RoleOwner); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[grantee] = role
	return nil
}

// SetFee sets the standard and collection-tier protocol fee rates.
func (m *Marketplace) SetFee(caller common.Address, feeBps, feeWithCollectionOwnerBps uint64) error {
	if err := m.requireRole(caller, RoleAdmin); err != nil {
		return err
	}
	if feeBps > MaxProtocolFeeBps || feeWithCollectionOwnerBps > MaxProtocolFeeBps {
		return preconditionf("protocol fee above cap %d", MaxProtocolFeeBps)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeBps = feeBps
	m.feeWithCollectionOwnerBps = feeWithCollectionOwnerBps
	return nil
}

// SetFeeRecipient sets the protocol fee recipient.
func (m *Marketplace) SetFeeRecipient(caller, recipient common.Address) error {
	if err := m.requireRole(caller, RoleAdmin); err != nil {
		return err
	}
	if recipient == ZeroAddress {
		return preconditionf("fee recipient cannot be zero")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeRecipient = recipient
	return nil
}

// SetCollectionOwnerFee configures the per-collection fee override. A zero
// recipient clears the override. The composed rates are capped here so
// settlement math can never exceed the notional.
func (m *Marketplace) SetCollectionOwnerFee(caller, collection common.Address, fee CollectionOwnerFee) error {
	if err := m.requireRole(caller, RoleAdmin); err != nil {
		return err
	}
	if fee.FeeBps > MaxCollectionFeeBps {
		return preconditionf("collection fee above cap %d", MaxCollectionFeeBps)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if fee.Recipient == ZeroAddress {
		delete(m.collectionFees, collection)
		return nil
	}
	m.collectionFees[collection] = fee
	return nil
}

// SetTokenApprovalStatus approves or revokes a collection and pins its
// payment token. A zero token keeps the marketplace default.
func (m *Marketplace) SetTokenApprovalStatus(caller, collection common.Address, status TokenApprovalStatus, paymentToken common.Address) error {
	if err := m.requireRole(caller, RoleAdmin); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approvals[collection] = status
	if paymentToken == ZeroAddress {
		delete(m.paymentTokens, collection)
	} else {
		m.paymentTokens[collection] = paymentToken
	}
	return nil
}

// SetPriceTracker swaps the best-effort sale price collaborator. A nil
// tracker disables it.
func (m *Marketplace) SetPriceTracker(caller common.Address, tracker SalePriceTracker) error {
	if err := m.requireRole(caller, RoleAdmin); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracker = tracker
	return nil
}

// ToggleBiddingActive flips the process-wide bidding switch. Listings are
// unaffected by it.
func (m *Marketplace) ToggleBiddingActive(caller common.Address) error {
	if err := m.requireRole(caller, RoleAdmin); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bidsActive = !m.bidsActive
	return nil
}

// Pause stops every state-mutating entry point except cancellation, so
// parties can always exit a stale offer.
func (m *Marketplace) Pause(caller common.Address) error {
	if err := m.requireRole(caller, RoleAdmin); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
	return nil
}

// Unpause restores normal operation.
func (m *Marketplace) Unpause(caller common.Address) error {
	if err := m.requireRole(caller, RoleAdmin); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
	return nil
}

// PaymentTokenOf resolves the payment token a collection currently settles
// in: the per-collection override when set, the marketplace default
// otherwise. This is the single pure resolution point for the legacy zero
// sentinel.
func (m *Marketplace) PaymentTokenOf(collection common.Address) common.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.paymentTokens[collection]; ok && t != ZeroAddress {
		return t
	}
	return m.defaultPaymentToken
}

// ApprovalStatusOf reports the collection's configured kind.
func (m *Marketplace) ApprovalStatusOf(collection common.Address) TokenApprovalStatus {
	return m.approvalStatus(collection)
}

func (m *Marketplace) approvalStatus(collection common.Address) TokenApprovalStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.approvals[collection]
}

func (m *Marketplace) protocolFeeRecipient() common.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.feeRecipient
}

func (m *Marketplace) isPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

func (m *Marketplace) biddingActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bidsActive
}

func (m *Marketplace) salePriceTracker() SalePriceTracker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tracker
}
