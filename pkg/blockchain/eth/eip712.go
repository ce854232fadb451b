package eth

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ClaimSigner produces the EIP-712 signature the claim contract verifies in
// claimWithSignature. The domain is supplied per call (read fresh from the
// contract) so the signer holds no chain state of its own.
type ClaimSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

func NewClaimSigner(hexKey string) (*ClaimSigner, error) {
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid signer private key: %w", err)
	}

	return &ClaimSigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

func (s *ClaimSigner) Address() common.Address {
	return s.address
}

// Sign returns a 65-byte (r, s, v) signature with v in {27, 28} over the
// typed claim (recipient, amount, nonce) under the given domain.
func (s *ClaimSigner) Sign(
	domain EIP712Domain, recipient common.Address, amount uint64, nonce *big.Int,
) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Claim": {
				{Name: "recipient", Type: "address"},
				{Name: "amount", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
			},
		},
		PrimaryType: "Claim",
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           math.NewHexOrDecimal256(domain.ChainID.Int64()),
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"recipient": recipient.Hex(),
			"amount":    new(big.Int).SetUint64(amount).String(),
			"nonce":     nonce.String(),
		},
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, err
	}

	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, err
	}

	digest := crypto.Keccak256(
		[]byte{0x19, 0x01},
		domainSeparator,
		messageHash,
	)

	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, err
	}

	// crypto.Sign returns v in {0, 1}; solidity's ecrecover expects {27, 28}.
	signature[64] += 27
	return signature, nil
}
