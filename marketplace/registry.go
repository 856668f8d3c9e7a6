package marketplace

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// The engine never takes custody of either asset leg; it only checks and
// commands the external registries below. Each contract re-validates
// ownership and consent inside its own transfer, so a transfer that passed
// the engine's checks can still refuse.

// ERC721 is the unique-item registry capability.
type ERC721 interface {
	OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error)
	IsApprovedForAll(ctx context.Context, owner, operator common.Address) (bool, error)
	TransferFrom(ctx context.Context, from, to common.Address, tokenID *big.Int) error
}

// ERC1155 is the fungible-item registry capability.
type ERC1155 interface {
	BalanceOf(ctx context.Context, owner common.Address, tokenID *big.Int) (*big.Int, error)
	IsApprovedForAll(ctx context.Context, owner, operator common.Address) (bool, error)
	SafeTransferFrom(ctx context.Context, from, to common.Address, tokenID, amount *big.Int) error
}

// ERC20 is the payment ledger. Transfers are pull-style and require a
// standing allowance from the payer.
type ERC20 interface {
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	TransferFrom(ctx context.Context, from, to common.Address, amount *big.Int) error
}

// NativeLedger moves attached native value. A native movement must succeed
// atomically or the whole match aborts.
type NativeLedger interface {
	BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error)
	Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error
}

// RegistryResolver hands out contract bindings by address.
type RegistryResolver interface {
	ERC721(collection common.Address) (ERC721, error)
	ERC1155(collection common.Address) (ERC1155, error)
	ERC20(token common.Address) (ERC20, error)
}

// tokenCapability is the closed dispatch over the two item kinds. Validation
// and transfer code stays generic over this descriptor instead of branching
// on the stored status at every call site.
type tokenCapability struct {
	kind TokenApprovalStatus

	// holdsQuantity reports whether holder currently owns at least quantity
	// of tokenID.
	holdsQuantity func(ctx context.Context, holder common.Address, tokenID *big.Int, quantity uint64) (bool, error)

	// hasConsent reports whether holder granted the engine operator a
	// standing transfer consent.
	hasConsent func(ctx context.Context, holder common.Address) (bool, error)

	// transfer moves quantity of tokenID from holder to recipient.
	transfer func(ctx context.Context, from, to common.Address, tokenID *big.Int, quantity uint64) error
}

// capabilityFor resolves the collection's approval status into a capability
// descriptor. Unapproved collections fail here, which is the single gate for
// every entry point.
func (m *Marketplace) capabilityFor(collection common.Address) (*tokenCapability, error) {
	switch m.approvalStatus(collection) {
	case TokenApprovedERC721:
		reg, err := m.resolver.ERC721(collection)
		if err != nil {
			return nil, preconditionf("no erc721 binding for collection %s: %v", collection.Hex(), err)
		}
		return &tokenCapability{
			kind: TokenApprovedERC721,
			holdsQuantity: func(ctx context.Context, holder common.Address, tokenID *big.Int, quantity uint64) (bool, error) {
				if quantity != 1 {
					return false, nil
				}
				owner, err := reg.OwnerOf(ctx, tokenID)
				if err != nil {
					return false, err
				}
				return owner == holder, nil
			},
			hasConsent: func(ctx context.Context, holder common.Address) (bool, error) {
				return reg.IsApprovedForAll(ctx, holder, m.operator)
			},
			transfer: func(ctx context.Context, from, to common.Address, tokenID *big.Int, quantity uint64) error {
				return reg.TransferFrom(ctx, from, to, tokenID)
			},
		}, nil
	case TokenApprovedERC1155:
		reg, err := m.resolver.ERC1155(collection)
		if err != nil {
			return nil, preconditionf("no erc1155 binding for collection %s: %v", collection.Hex(), err)
		}
		return &tokenCapability{
			kind: TokenApprovedERC1155,
			holdsQuantity: func(ctx context.Context, holder common.Address, tokenID *big.Int, quantity uint64) (bool, error) {
				bal, err := reg.BalanceOf(ctx, holder, tokenID)
				if err != nil {
					return false, err
				}
				return bal.Cmp(new(big.Int).SetUint64(quantity)) >= 0, nil
			},
			hasConsent: func(ctx context.Context, holder common.Address) (bool, error) {
				return reg.IsApprovedForAll(ctx, holder, m.operator)
			},
			transfer: func(ctx context.Context, from, to common.Address, tokenID *big.Int, quantity uint64) error {
				return reg.SafeTransferFrom(ctx, from, to, tokenID, new(big.Int).SetUint64(quantity))
			},
		}, nil
	default:
		return nil, preconditionf("collection %s is not approved", collection.Hex())
	}
}
