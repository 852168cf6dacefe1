package voucher

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	log "github.com/sirupsen/logrus"
)

// CompletionVoucher is the minimal signed payload: task code plus wallet.
// It carries no expiry or nonce; the on-chain registry's per-wallet-per-task
// completion flag is the only replay protection.
type CompletionVoucher struct {
	TaskCode int64
	Wallet   common.Address
}

// Signer produces EIP-712 typed-data signatures over CompletionVoucher
// structs under a fixed domain.
type Signer struct {
	privateKey        *ecdsa.PrivateKey
	issuerAddr        common.Address
	domainName        string
	domainVersion     string
	chainID           *big.Int
	verifyingContract common.Address
}

// NewSigner creates a signer from a hex-encoded issuer key and domain parameters.
func NewSigner(privateKeyHex, domainName, domainVersion string, chainID int64, verifyingContract string) (*Signer, error) {
	if !common.IsHexAddress(verifyingContract) {
		return nil, fmt.Errorf("invalid verifying contract address: %s", verifyingContract)
	}

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid issuer private key: %w", err)
	}

	return &Signer{
		privateKey:        privateKey,
		issuerAddr:        crypto.PubkeyToAddress(privateKey.PublicKey),
		domainName:        domainName,
		domainVersion:     domainVersion,
		chainID:           big.NewInt(chainID),
		verifyingContract: common.HexToAddress(verifyingContract),
	}, nil
}

// IssuerAddress returns the address derived from the issuer key. The on-chain
// registry keeps this address on its issuer allowlist.
func (s *Signer) IssuerAddress() common.Address {
	return s.issuerAddr
}

// Digest creates the EIP-712 hash for a completion voucher
func (s *Signer) Digest(v *CompletionVoucher) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"CompletionVoucher": []apitypes.Type{
				{Name: "taskCode", Type: "uint256"},
				{Name: "wallet", Type: "address"},
			},
		},
		PrimaryType: "CompletionVoucher",
		Domain: apitypes.TypedDataDomain{
			Name:              s.domainName,
			Version:           s.domainVersion,
			ChainId:           (*math.HexOrDecimal256)(s.chainID),
			VerifyingContract: s.verifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"taskCode": (*math.HexOrDecimal256)(big.NewInt(v.TaskCode)),
			"wallet":   v.Wallet.Hex(),
		},
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	typedDataHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	// EIP-712 hash: keccak256("\x19\x01" ‖ domainSeparator ‖ hashStruct(message))
	rawData := append([]byte{0x19, 0x01}, domainSeparator...)
	rawData = append(rawData, typedDataHash...)
	hash := crypto.Keccak256Hash(rawData)

	return hash.Bytes(), nil
}

// Sign signs a completion voucher and returns a 65-byte [R || S || V]
// signature with V adjusted to 27/28 for on-chain ecrecover.
func (s *Signer) Sign(v *CompletionVoucher) ([]byte, error) {
	digest, err := s.Digest(v)
	if err != nil {
		return nil, fmt.Errorf("EIP-712 digest generation failed: %w", err)
	}

	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign voucher digest: %w", err)
	}

	// crypto.Sign produces V in {0,1}; the registry contract expects 27/28
	signature[64] += 27

	log.WithFields(log.Fields{
		"task_code": v.TaskCode,
		"wallet":    v.Wallet.Hex(),
	}).Debug("Signed completion voucher")

	return signature, nil
}

// Recover recovers the signer address for a voucher signature under this
// signer's domain. Used defensively and in tests; the registry contract does
// the authoritative recovery on-chain.
func (s *Signer) Recover(v *CompletionVoucher, signature []byte) (common.Address, error) {
	digest, err := s.Digest(v)
	if err != nil {
		return common.Address{}, fmt.Errorf("EIP-712 digest generation failed: %w", err)
	}
	return RecoverAddress(digest, signature)
}

// RecoverAddress recovers the signer's address from a message hash and a
// 65-byte signature with V in {27,28}.
func RecoverAddress(msgHash, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length: %d, expected 65", len(signature))
	}

	v := signature[64]
	if v != 27 && v != 28 {
		return common.Address{}, fmt.Errorf("invalid recovery id: got %d, expected 27 or 28", v)
	}

	// Ethereum's Ecrecover expects V in {0,1}; work on a copy so the caller's
	// signature bytes stay intact
	adjusted := make([]byte, 65)
	copy(adjusted, signature)
	adjusted[64] -= 27

	pubKeyRaw, err := crypto.Ecrecover(msgHash, adjusted)
	if err != nil {
		return common.Address{}, fmt.Errorf("ecrecover failed: %w", err)
	}

	pubKey, err := crypto.UnmarshalPubkey(pubKeyRaw)
	if err != nil {
		return common.Address{}, fmt.Errorf("pubkey unmarshal failed: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}
