package registry

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice    = common.HexToAddress("0x0000000000000000000000000000000000000011")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000012")
	spender  = common.HexToAddress("0x0000000000000000000000000000000000000013")
	intruder = common.HexToAddress("0x0000000000000000000000000000000000000014")
)

func TestMemERC721Ownership(t *testing.T) {
	ctx := context.Background()
	r := NewMemERC721()
	id := big.NewInt(7)

	_, err := r.OwnerOf(ctx, id)
	require.Error(t, err)

	r.Mint(alice, id)
	owner, err := r.OwnerOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)

	// a transfer not rooted at the holder refuses
	require.Error(t, r.TransferFrom(ctx, bob, intruder, id))
	owner, _ = r.OwnerOf(ctx, id)
	assert.Equal(t, alice, owner)

	require.NoError(t, r.TransferFrom(ctx, alice, bob, id))
	owner, _ = r.OwnerOf(ctx, id)
	assert.Equal(t, bob, owner)
}

func TestMemERC721TransferHook(t *testing.T) {
	ctx := context.Background()
	r := NewMemERC721()
	id := big.NewInt(7)
	r.Mint(alice, id)

	boom := errors.New("hook refused")
	r.TransferHook = func(from, to common.Address, tokenID *big.Int) error {
		return boom
	}
	require.ErrorIs(t, r.TransferFrom(ctx, alice, bob, id), boom)

	// a refusing hook leaves the state untouched
	owner, err := r.OwnerOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)
}

func TestMemERC721Consent(t *testing.T) {
	ctx := context.Background()
	r := NewMemERC721()

	ok, err := r.IsApprovedForAll(ctx, alice, spender)
	require.NoError(t, err)
	assert.False(t, ok)

	r.SetApprovalForAll(alice, spender, true)
	ok, _ = r.IsApprovedForAll(ctx, alice, spender)
	assert.True(t, ok)

	r.SetApprovalForAll(alice, spender, false)
	ok, _ = r.IsApprovedForAll(ctx, alice, spender)
	assert.False(t, ok)
}

func TestMemERC1155Balances(t *testing.T) {
	ctx := context.Background()
	r := NewMemERC1155()
	id := big.NewInt(7)

	r.Mint(alice, id, 5)
	bal, err := r.BalanceOf(ctx, alice, id)
	require.NoError(t, err)
	assert.Zero(t, big.NewInt(5).Cmp(bal))

	require.Error(t, r.SafeTransferFrom(ctx, alice, bob, id, big.NewInt(6)))
	require.NoError(t, r.SafeTransferFrom(ctx, alice, bob, id, big.NewInt(3)))

	bal, _ = r.BalanceOf(ctx, alice, id)
	assert.Zero(t, big.NewInt(2).Cmp(bal))
	bal, _ = r.BalanceOf(ctx, bob, id)
	assert.Zero(t, big.NewInt(3).Cmp(bal))
}

func TestMemERC20SpenderBoundAllowance(t *testing.T) {
	ctx := context.Background()
	r := NewMemERC20(spender)
	r.Mint(alice, big.NewInt(100))

	// balance alone is not enough, the bound spender needs an allowance
	require.Error(t, r.TransferFrom(ctx, alice, bob, big.NewInt(10)))

	// an allowance granted to anyone else does not count
	r.Approve(alice, intruder, big.NewInt(100))
	require.Error(t, r.TransferFrom(ctx, alice, bob, big.NewInt(10)))

	r.Approve(alice, spender, big.NewInt(30))
	require.NoError(t, r.TransferFrom(ctx, alice, bob, big.NewInt(10)))

	// the pull decremented the standing allowance
	a, err := r.Allowance(ctx, alice, spender)
	require.NoError(t, err)
	assert.Zero(t, big.NewInt(20).Cmp(a))

	require.Error(t, r.TransferFrom(ctx, alice, bob, big.NewInt(25)))

	bal, _ := r.BalanceOf(ctx, bob)
	assert.Zero(t, big.NewInt(10).Cmp(bal))
}

func TestMemNativeBank(t *testing.T) {
	ctx := context.Background()
	b := NewMemNativeBank()

	b.Deposit(alice, big.NewInt(50))
	require.Error(t, b.Transfer(ctx, alice, bob, big.NewInt(60)))
	require.NoError(t, b.Transfer(ctx, alice, bob, big.NewInt(20)))

	bal, err := b.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, big.NewInt(30).Cmp(bal))
	bal, _ = b.BalanceOf(ctx, bob)
	assert.Zero(t, big.NewInt(20).Cmp(bal))

	bal, err = b.BalanceOf(ctx, intruder)
	require.NoError(t, err)
	assert.Zero(t, bal.Sign())
}

func TestResolverLookups(t *testing.T) {
	r := NewResolver()
	addr := common.HexToAddress("0xc1")

	_, err := r.ERC721(addr)
	require.Error(t, err)
	_, err = r.ERC1155(addr)
	require.Error(t, err)
	_, err = r.ERC20(addr)
	require.Error(t, err)

	r.AddERC721(addr, NewMemERC721())
	got, err := r.ERC721(addr)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
