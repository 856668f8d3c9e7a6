// Package registry provides in-process implementations of the external item
// registries and payment ledgers the settlement engine commands. They follow
// the on-chain contracts' semantics: transfers re-validate ownership and
// consent themselves and refuse rather than trust the caller.
package registry

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/ghoul-sol/treasure-marketplace/marketplace"
)

// MemERC721 is an in-memory unique-item registry.
type MemERC721 struct {
	mu        sync.RWMutex
	owners    map[string]common.Address                 // tokenID -> holder
	operators map[common.Address]map[common.Address]bool // holder -> operator set

	// TransferHook, when set, runs inside every transfer before state moves.
	// Used to model reentrant or refusing transfer hooks.
	TransferHook func(from, to common.Address, tokenID *big.Int) error
}

func NewMemERC721() *MemERC721 {
	return &MemERC721{
		owners:    make(map[string]common.Address),
		operators: make(map[common.Address]map[common.Address]bool),
	}
}

// Mint assigns tokenID to holder.
func (r *MemERC721) Mint(holder common.Address, tokenID *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[tokenID.String()] = holder
}

// SetApprovalForAll grants or revokes a standing transfer consent.
func (r *MemERC721) SetApprovalForAll(holder, operator common.Address, approved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.operators[holder] == nil {
		r.operators[holder] = make(map[common.Address]bool)
	}
	r.operators[holder][operator] = approved
}

func (r *MemERC721) OwnerOf(_ context.Context, tokenID *big.Int) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[tokenID.String()]
	if !ok {
		return common.Address{}, errors.Errorf("token %s does not exist", tokenID.String())
	}
	return owner, nil
}

func (r *MemERC721) IsApprovedForAll(_ context.Context, owner, operator common.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.operators[owner][operator], nil
}

func (r *MemERC721) TransferFrom(_ context.Context, from, to common.Address, tokenID *big.Int) error {
	if hook := r.TransferHook; hook != nil {
		if err := hook(from, to, tokenID); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[tokenID.String()]
	if !ok || owner != from {
		return errors.Errorf("transfer of token %s not owned by %s", tokenID.String(), from.Hex())
	}
	r.owners[tokenID.String()] = to
	return nil
}

// MemERC1155 is an in-memory fungible-item registry.
type MemERC1155 struct {
	mu        sync.RWMutex
	balances  map[common.Address]map[string]*big.Int
	operators map[common.Address]map[common.Address]bool
}

func NewMemERC1155() *MemERC1155 {
	return &MemERC1155{
		balances:  make(map[common.Address]map[string]*big.Int),
		operators: make(map[common.Address]map[common.Address]bool),
	}
}

func (r *MemERC1155) Mint(holder common.Address, tokenID *big.Int, amount uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.balances[holder] == nil {
		r.balances[holder] = make(map[string]*big.Int)
	}
	bal := r.balances[holder][tokenID.String()]
	if bal == nil {
		bal = big.NewInt(0)
	}
	r.balances[holder][tokenID.String()] = new(big.Int).Add(bal, new(big.Int).SetUint64(amount))
}

func (r *MemERC1155) SetApprovalForAll(holder, operator common.Address, approved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.operators[holder] == nil {
		r.operators[holder] = make(map[common.Address]bool)
	}
	r.operators[holder][operator] = approved
}

func (r *MemERC1155) BalanceOf(_ context.Context, owner common.Address, tokenID *big.Int) (*big.Int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bal := r.balances[owner][tokenID.String()]
	if bal == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(bal), nil
}

func (r *MemERC1155) IsApprovedForAll(_ context.Context, owner, operator common.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.operators[owner][operator], nil
}

func (r *MemERC1155) SafeTransferFrom(_ context.Context, from, to common.Address, tokenID, amount *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bal := r.balances[from][tokenID.String()]
	if bal == nil || bal.Cmp(amount) < 0 {
		return errors.Errorf("balance of %s below %s for token %s", from.Hex(), amount.String(), tokenID.String())
	}
	bal.Sub(bal, amount)
	if r.balances[to] == nil {
		r.balances[to] = make(map[string]*big.Int)
	}
	toBal := r.balances[to][tokenID.String()]
	if toBal == nil {
		toBal = big.NewInt(0)
	}
	r.balances[to][tokenID.String()] = new(big.Int).Add(toBal, amount)
	return nil
}

// MemERC20 is an in-memory payment ledger with pull-style transfers. The
// ledger is bound to one spender — the marketplace operator — since the
// engine's TransferFrom carries no spender argument.
type MemERC20 struct {
	spender    common.Address
	mu         sync.RWMutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

func NewMemERC20(spender common.Address) *MemERC20 {
	return &MemERC20{
		spender:    spender,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (r *MemERC20) Mint(holder common.Address, amount *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bal := r.balances[holder]
	if bal == nil {
		bal = big.NewInt(0)
	}
	r.balances[holder] = new(big.Int).Add(bal, amount)
}

// Approve grants spender a standing allowance from holder.
func (r *MemERC20) Approve(holder, spender common.Address, amount *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.allowances[holder] == nil {
		r.allowances[holder] = make(map[common.Address]*big.Int)
	}
	r.allowances[holder][spender] = new(big.Int).Set(amount)
}

func (r *MemERC20) BalanceOf(_ context.Context, owner common.Address) (*big.Int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bal := r.balances[owner]
	if bal == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(bal), nil
}

func (r *MemERC20) Allowance(_ context.Context, owner, spender common.Address) (*big.Int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a := r.allowances[owner][spender]
	if a == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(a), nil
}

// TransferFrom pulls amount from `from` to `to`, authorized by the standing
// allowance `from` granted to the bound spender.
func (r *MemERC20) TransferFrom(_ context.Context, from, to common.Address, amount *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bal := r.balances[from]
	if bal == nil || bal.Cmp(amount) < 0 {
		return errors.Errorf("balance of %s below %s", from.Hex(), amount.String())
	}
	allowance := r.allowances[from][r.spender]
	if allowance == nil || allowance.Cmp(amount) < 0 {
		return errors.Errorf("allowance of %s below %s", from.Hex(), amount.String())
	}
	allowance.Sub(allowance, amount)
	bal.Sub(bal, amount)
	toBal := r.balances[to]
	if toBal == nil {
		toBal = big.NewInt(0)
	}
	r.balances[to] = new(big.Int).Add(toBal, amount)
	return nil
}

// MemNativeBank models attached native value as per-address balances.
type MemNativeBank struct {
	mu       sync.RWMutex
	balances map[common.Address]*big.Int
}

func NewMemNativeBank() *MemNativeBank {
	return &MemNativeBank{balances: make(map[common.Address]*big.Int)}
}

func (b *MemNativeBank) Deposit(holder common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.balances[holder]
	if bal == nil {
		bal = big.NewInt(0)
	}
	b.balances[holder] = new(big.Int).Add(bal, amount)
}

func (b *MemNativeBank) BalanceOf(_ context.Context, holder common.Address) (*big.Int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bal := b.balances[holder]
	if bal == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(bal), nil
}

// Transfer must succeed atomically or the whole match aborts.
func (b *MemNativeBank) Transfer(_ context.Context, from, to common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.balances[from]
	if bal == nil || bal.Cmp(amount) < 0 {
		return errors.Errorf("native balance of %s below %s", from.Hex(), amount.String())
	}
	bal.Sub(bal, amount)
	toBal := b.balances[to]
	if toBal == nil {
		toBal = big.NewInt(0)
	}
	b.balances[to] = new(big.Int).Add(toBal, amount)
	return nil
}

// Resolver is a static address book of in-memory contracts satisfying
// marketplace.RegistryResolver.
type Resolver struct {
	mu      sync.RWMutex
	erc721  map[common.Address]*MemERC721
	erc1155 map[common.Address]*MemERC1155
	erc20   map[common.Address]*MemERC20
}

func NewResolver() *Resolver {
	return &Resolver{
		erc721:  make(map[common.Address]*MemERC721),
		erc1155: make(map[common.Address]*MemERC1155),
		erc20:   make(map[common.Address]*MemERC20),
	}
}

func (r *Resolver) AddERC721(addr common.Address, c *MemERC721) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.erc721[addr] = c
}

func (r *Resolver) AddERC1155(addr common.Address, c *MemERC1155) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.erc1155[addr] = c
}

func (r *Resolver) AddERC20(addr common.Address, c *MemERC20) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.erc20[addr] = c
}

func (r *Resolver) ERC721(collection common.Address) (marketplace.ERC721, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.erc721[collection]
	if !ok {
		return nil, errors.Errorf("no erc721 at %s", collection.Hex())
	}
	return c, nil
}

func (r *Resolver) ERC1155(collection common.Address) (marketplace.ERC1155, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.erc1155[collection]
	if !ok {
		return nil, errors.Errorf("no erc1155 at %s", collection.Hex())
	}
	return c, nil
}

func (r *Resolver) ERC20(token common.Address) (marketplace.ERC20, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.erc20[token]
	if !ok {
		return nil, errors.Errorf("no erc20 at %s", token.Hex())
	}
	return c, nil
}
