package signing

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

// Well-known test vector key (hardhat account #0). Never funded on BSC.
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testIntent() *OrderIntent {
	return &OrderIntent{
		Maker:       "0x1111111111111111111111111111111111111111",
		Signer:      "0x2222222222222222222222222222222222222222",
		TokenID:     "73452816335034663051716343714616915862",
		MakerAmount: big.NewInt(0).Mul(big.NewInt(15), big.NewInt(1e18)),
		TakerAmount: big.NewInt(0).Mul(big.NewInt(25), big.NewInt(1e18)),
		Salt:        1735689600123,
		Side:        0,
	}
}

func TestNew_RejectsMalformedKey(t *testing.T) {
	tests := []string{"", "0x", "nothex", "0xdeadbeef"}

	for _, key := range tests {
		if _, err := New(key); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}

func TestNew_AcceptsPrefixedKey(t *testing.T) {
	plain, err := New(testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prefixed, err := New("0x" + testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plain.Address() != prefixed.Address() {
		t.Error("0x prefix changed the derived address")
	}
}

func TestSign_Format(t *testing.T) {
	signer, err := New(testKey)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	sig, err := signer.Sign(testIntent())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if !strings.HasPrefix(sig, "0x") {
		t.Errorf("signature missing 0x prefix: %s", sig)
	}

	// 65 bytes = 130 hex chars.
	if len(sig) != 2+130 {
		t.Errorf("signature length = %d chars, want 132", len(sig))
	}

	// v must be 27 or 28.
	v := sig[len(sig)-2:]
	if v != "1b" && v != "1c" {
		t.Errorf("recovery byte = %s, want 1b or 1c", v)
	}
}

func TestSign_Deterministic(t *testing.T) {
	signer, err := New(testKey)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	a, err := signer.Sign(testIntent())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	b, err := signer.Sign(testIntent())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if a != b {
		t.Error("same intent produced different signatures")
	}
}

func TestSign_SaltChangesSignature(t *testing.T) {
	signer, err := New(testKey)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	first, err := signer.Sign(testIntent())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	other := testIntent()
	other.Salt++
	second, err := signer.Sign(other)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if first == second {
		t.Error("different salts produced identical signatures")
	}
}

func TestSign_RecoversToSignerAddress(t *testing.T) {
	signer, err := New(testKey)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	intent := testIntent()
	digest, err := hashIntent(intent)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	sigHex, err := signer.Sign(intent)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	sig, err := hex.DecodeString(sigHex[2:])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	// Undo the Ethereum v offset for recovery.
	sig[64] -= 27

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}

	if crypto.PubkeyToAddress(*pub) != signer.Address() {
		t.Error("recovered address does not match signer")
	}
}

func TestSign_RejectsNonDecimalTokenID(t *testing.T) {
	signer, err := New(testKey)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	intent := testIntent()
	intent.TokenID = "0xabc"
	if _, err := signer.Sign(intent); err == nil {
		t.Error("expected error for hex token id")
	}
}
