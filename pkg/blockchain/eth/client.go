package eth

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/chesscast/backend/config"
	"github.com/chesscast/backend/pkg/xcontext"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	RpcTimeOut = time.Second * 5
)

const (
	maxRetries   = 3
	retryBackoff = 100 * time.Millisecond
)

// claimContractABI is the subset of the claim contract this backend consumes.
const claimContractABI = `[
	{"inputs":[{"internalType":"address","name":"","type":"address"}],"name":"nonces","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"signerWallet","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"eip712Domain","outputs":[{"internalType":"bytes1","name":"fields","type":"bytes1"},{"internalType":"string","name":"name","type":"string"},{"internalType":"string","name":"version","type":"string"},{"internalType":"uint256","name":"chainId","type":"uint256"},{"internalType":"address","name":"verifyingContract","type":"address"},{"internalType":"bytes32","name":"salt","type":"bytes32"},{"internalType":"uint256[]","name":"extensions","type":"uint256[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"uint256","name":"nonce","type":"uint256"},{"internalType":"bytes","name":"signature","type":"bytes"}],"name":"claimWithSignature","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// EIP712Domain mirrors the domain parameters the claim contract reports via
// eip712Domain(). Signatures are always built from these values, never from
// hardcoded ones, so a contract redeploy cannot desynchronize the backend.
type EIP712Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// ClaimCaller reads the claim contract state the signing path depends on.
type ClaimCaller interface {
	Nonces(ctx context.Context, recipient common.Address) (*big.Int, error)
	EIP712Domain(ctx context.Context) (EIP712Domain, error)
	SignerWallet(ctx context.Context) (common.Address, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// Since eth RPC is often unstable, the caller keeps a list of endpoints and
// retries with backoff across them. Every read has a bounded timeout; a read
// that fails on all endpoints aborts the whole operation.
type defaultClaimCaller struct {
	contract common.Address
	parsed   abi.ABI
	clients  []*ethclient.Client
	rpcs     []string
}

func NewClaimCaller(cfg config.BlockchainConfigs) (*defaultClaimCaller, error) {
	parsed, err := abi.JSON(strings.NewReader(claimContractABI))
	if err != nil {
		return nil, err
	}

	if len(cfg.Rpcs) == 0 {
		return nil, fmt.Errorf("no rpc configured for chain %s", cfg.Chain)
	}

	var clients []*ethclient.Client
	var rpcs []string
	for _, rpc := range cfg.Rpcs {
		client, err := ethclient.Dial(rpc)
		if err != nil {
			continue
		}

		clients = append(clients, client)
		rpcs = append(rpcs, rpc)
	}

	if len(clients) == 0 {
		return nil, fmt.Errorf("cannot dial any rpc of chain %s", cfg.Chain)
	}

	return &defaultClaimCaller{
		contract: common.HexToAddress(cfg.ClaimContractAddress),
		parsed:   parsed,
		clients:  clients,
		rpcs:     rpcs,
	}, nil
}

func (c *defaultClaimCaller) execute(
	ctx context.Context, f func(ctx context.Context, client *ethclient.Client) error,
) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryBackoff << uint(attempt-1))
		}

		for i, client := range c.clients {
			callCtx, cancel := context.WithTimeout(ctx, RpcTimeOut)
			err := f(callCtx, client)
			cancel()

			if err == nil {
				return nil
			}

			lastErr = err
			xcontext.Logger(ctx).Warnf("Chain read failed on %s: %v", c.rpcs[i], err)
		}
	}

	return lastErr
}

func (c *defaultClaimCaller) call(
	ctx context.Context, method string, args ...any,
) ([]any, error) {
	data, err := c.parsed.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	var output []byte
	err = c.execute(ctx, func(ctx context.Context, client *ethclient.Client) error {
		var callErr error
		output, callErr = client.CallContract(ctx, ethereum.CallMsg{
			To:   &c.contract,
			Data: data,
		}, nil)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	return c.parsed.Unpack(method, output)
}

func (c *defaultClaimCaller) Nonces(ctx context.Context, recipient common.Address) (*big.Int, error) {
	values, err := c.call(ctx, "nonces", recipient)
	if err != nil {
		return nil, err
	}

	nonce, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected nonces output %T", values[0])
	}

	return nonce, nil
}

func (c *defaultClaimCaller) EIP712Domain(ctx context.Context) (EIP712Domain, error) {
	values, err := c.call(ctx, "eip712Domain")
	if err != nil {
		return EIP712Domain{}, err
	}

	if len(values) < 5 {
		return EIP712Domain{}, fmt.Errorf("unexpected eip712Domain output of %d values", len(values))
	}

	name, ok1 := values[1].(string)
	version, ok2 := values[2].(string)
	chainID, ok3 := values[3].(*big.Int)
	verifyingContract, ok4 := values[4].(common.Address)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return EIP712Domain{}, fmt.Errorf("cannot decode eip712Domain output")
	}

	return EIP712Domain{
		Name:              name,
		Version:           version,
		ChainID:           chainID,
		VerifyingContract: verifyingContract,
	}, nil
}

func (c *defaultClaimCaller) SignerWallet(ctx context.Context) (common.Address, error) {
	values, err := c.call(ctx, "signerWallet")
	if err != nil {
		return common.Address{}, err
	}

	address, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected signerWallet output %T", values[0])
	}

	return address, nil
}

func (c *defaultClaimCaller) TransactionReceipt(
	ctx context.Context, txHash common.Hash,
) (*ethtypes.Receipt, error) {
	var receipt *ethtypes.Receipt
	err := c.execute(ctx, func(ctx context.Context, client *ethclient.Client) error {
		var callErr error
		receipt, callErr = client.TransactionReceipt(ctx, txHash)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	return receipt, nil
}
