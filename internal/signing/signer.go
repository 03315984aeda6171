// Package signing produces the EIP-712 order signatures the venue
// verifies before accepting a placement. The domain is a fixed constant
// for the life of the process; only the five order inputs vary per call.
package signing

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	// ChainID is the venue's settlement chain (BSC).
	ChainID = 56

	domainName    = "OPINION CTF Exchange"
	domainVersion = "1"

	// ExchangeContract is the venue's settlement contract, the EIP-712
	// verifying contract for order signatures.
	ExchangeContract = "0x5f45344126d6488025b0b84a3a8189f2487a7246"

	zeroAddress = "0x0000000000000000000000000000000000000000"

	// signatureTypeSafe marks orders funded by the multisig and signed
	// by its owner EOA.
	signatureTypeSafe = 2
)

// OrderIntent carries the variable inputs of one order signature.
// Amounts are positive 18-decimal base-unit integers; Salt is the
// placement's millisecond timestamp, used as a nonce.
type OrderIntent struct {
	Maker       string
	Signer      string
	TokenID     string
	MakerAmount *big.Int
	TakerAmount *big.Int
	Salt        int64
	Side        int // 0 = buy, 1 = sell
}

// Signer signs order intents with a single configured key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// New parses the hex private key and returns a Signer. A malformed key
// is the only failure mode; callers treat it as fatal.
func New(privateKeyHex string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("derive public key")
	}

	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(*pub),
	}, nil
}

// Address returns the EOA derived from the configured key.
func (s *Signer) Address() common.Address {
	return s.address
}

// Sign hashes the intent under the fixed domain and returns the 65-byte
// ECDSA signature hex-encoded with a 0x prefix. Pure function of the
// intent and the key.
func (s *Signer) Sign(intent *OrderIntent) (string, error) {
	digest, err := hashIntent(intent)
	if err != nil {
		return "", fmt.Errorf("hash order: %w", err)
	}

	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return "", fmt.Errorf("sign order: %w", err)
	}

	// Venue expects the Ethereum convention v ∈ {27, 28}.
	if sig[64] < 27 {
		sig[64] += 27
	}

	return "0x" + common.Bytes2Hex(sig), nil
}

// hashIntent computes keccak256("\x19\x01" || domainHash || structHash).
func hashIntent(intent *OrderIntent) ([]byte, error) {
	tokenID, ok := new(big.Int).SetString(intent.TokenID, 10)
	if !ok {
		return nil, fmt.Errorf("token id %q is not a decimal integer", intent.TokenID)
	}

	typed := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Order": []apitypes.Type{
				{Name: "salt", Type: "uint256"},
				{Name: "maker", Type: "address"},
				{Name: "signer", Type: "address"},
				{Name: "taker", Type: "address"},
				{Name: "tokenId", Type: "uint256"},
				{Name: "makerAmount", Type: "uint256"},
				{Name: "takerAmount", Type: "uint256"},
				{Name: "expiration", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "feeRateBps", Type: "uint256"},
				{Name: "side", Type: "uint8"},
				{Name: "signatureType", Type: "uint8"},
			},
		},
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              domainName,
			Version:           domainVersion,
			ChainId:           (*math.HexOrDecimal256)(big.NewInt(ChainID)),
			VerifyingContract: ExchangeContract,
		},
		Message: apitypes.TypedDataMessage{
			"salt":          new(big.Int).SetInt64(intent.Salt).String(),
			"maker":         strings.ToLower(intent.Maker),
			"signer":        strings.ToLower(intent.Signer),
			"taker":         zeroAddress,
			"tokenId":       tokenID.String(),
			"makerAmount":   intent.MakerAmount.String(),
			"takerAmount":   intent.TakerAmount.String(),
			"expiration":    "0",
			"nonce":         "0",
			"feeRateBps":    "0",
			"side":          fmt.Sprintf("%d", intent.Side),
			"signatureType": fmt.Sprintf("%d", signatureTypeSafe),
		},
	}

	domainHash, err := typed.HashStruct("EIP712Domain", typed.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("hash domain: %w", err)
	}

	structHash, err := typed.HashStruct(typed.PrimaryType, typed.Message)
	if err != nil {
		return nil, fmt.Errorf("hash message: %w", err)
	}

	raw := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainHash), string(structHash)))
	return crypto.Keccak256(raw), nil
}
