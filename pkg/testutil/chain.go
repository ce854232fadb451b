package testutil

import (
	"context"
	"math/big"

	"github.com/chesscast/backend/pkg/blockchain/eth"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// SignerPrivateKey is a throwaway key for tests only.
const SignerPrivateKey = "7886876e514713dcdc516d1d5a4bde14db8027ae67707303a14d09ba7c409ad4"

// MockClaimCaller fakes the claim contract. Zero value behaves like a fresh
// contract trusting SignerWallet with every nonce at zero.
type MockClaimCaller struct {
	NoncesFunc             func(context.Context, common.Address) (*big.Int, error)
	EIP712DomainFunc       func(context.Context) (eth.EIP712Domain, error)
	SignerWalletFunc       func(context.Context) (common.Address, error)
	TransactionReceiptFunc func(context.Context, common.Hash) (*ethtypes.Receipt, error)

	Wallet common.Address
}

func (m *MockClaimCaller) Nonces(ctx context.Context, recipient common.Address) (*big.Int, error) {
	if m.NoncesFunc != nil {
		return m.NoncesFunc(ctx, recipient)
	}

	return big.NewInt(0), nil
}

func (m *MockClaimCaller) EIP712Domain(ctx context.Context) (eth.EIP712Domain, error) {
	if m.EIP712DomainFunc != nil {
		return m.EIP712DomainFunc(ctx)
	}

	return eth.EIP712Domain{
		Name:              "ChessCastClaim",
		Version:           "1",
		ChainID:           big.NewInt(1),
		VerifyingContract: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
	}, nil
}

func (m *MockClaimCaller) SignerWallet(ctx context.Context) (common.Address, error) {
	if m.SignerWalletFunc != nil {
		return m.SignerWalletFunc(ctx)
	}

	return m.Wallet, nil
}

func (m *MockClaimCaller) TransactionReceipt(
	ctx context.Context, txHash common.Hash,
) (*ethtypes.Receipt, error) {
	if m.TransactionReceiptFunc != nil {
		return m.TransactionReceiptFunc(ctx, txHash)
	}

	return nil, ethereum.NotFound
}
