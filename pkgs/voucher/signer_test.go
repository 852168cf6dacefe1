package voucher

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKeyHex   = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner(testKeyHex, "PlunderAcademyBadges", "1", 11155111, testContract)
	require.NoError(t, err)
	return s
}

func TestSignAndRecover(t *testing.T) {
	signer := newTestSigner(t)

	v := &CompletionVoucher{
		TaskCode: 1,
		Wallet:   common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"),
	}

	sig, err := signer.Sign(v)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64], "V must be 27 or 28 for on-chain ecrecover")

	recovered, err := signer.Recover(v, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.IssuerAddress(), recovered)
}

func TestSignIsDeterministicPerVoucher(t *testing.T) {
	signer := newTestSigner(t)

	v := &CompletionVoucher{TaskCode: 7, Wallet: common.HexToAddress("0x1111111111111111111111111111111111111111")}

	d1, err := signer.Digest(v)
	require.NoError(t, err)
	d2, err := signer.Digest(v)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestDigestChangesWithFields(t *testing.T) {
	signer := newTestSigner(t)
	wallet := common.HexToAddress("0x2222222222222222222222222222222222222222")

	base, err := signer.Digest(&CompletionVoucher{TaskCode: 1, Wallet: wallet})
	require.NoError(t, err)

	otherTask, err := signer.Digest(&CompletionVoucher{TaskCode: 2, Wallet: wallet})
	require.NoError(t, err)
	assert.NotEqual(t, base, otherTask)

	otherWallet, err := signer.Digest(&CompletionVoucher{
		TaskCode: 1,
		Wallet:   common.HexToAddress("0x3333333333333333333333333333333333333333"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, base, otherWallet)
}

func TestDigestBoundToDomain(t *testing.T) {
	a := newTestSigner(t)
	b, err := NewSigner(testKeyHex, "PlunderAcademyBadges", "1", 84532, testContract)
	require.NoError(t, err)

	v := &CompletionVoucher{TaskCode: 1, Wallet: common.HexToAddress("0x4444444444444444444444444444444444444444")}

	da, err := a.Digest(v)
	require.NoError(t, err)
	db, err := b.Digest(v)
	require.NoError(t, err)
	assert.NotEqual(t, da, db, "different domain chain ids must produce different digests")
}

func TestRecoverRejectsBadSignatures(t *testing.T) {
	signer := newTestSigner(t)
	v := &CompletionVoucher{TaskCode: 1, Wallet: common.HexToAddress("0x5555555555555555555555555555555555555555")}

	_, err := signer.Recover(v, make([]byte, 64))
	assert.Error(t, err, "truncated signature")

	sig, err := signer.Sign(v)
	require.NoError(t, err)

	bad := make([]byte, 65)
	copy(bad, sig)
	bad[64] = 5
	_, err = signer.Recover(v, bad)
	assert.Error(t, err, "V outside {27,28}")
}

func TestRecoverLeavesSignatureIntact(t *testing.T) {
	signer := newTestSigner(t)
	v := &CompletionVoucher{TaskCode: 3, Wallet: common.HexToAddress("0x6666666666666666666666666666666666666666")}

	sig, err := signer.Sign(v)
	require.NoError(t, err)

	before := make([]byte, 65)
	copy(before, sig)

	_, err = signer.Recover(v, sig)
	require.NoError(t, err)
	assert.Equal(t, before, sig)
}

func TestIssuerAddressMatchesKey(t *testing.T) {
	signer := newTestSigner(t)

	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer.IssuerAddress())
}

func TestNewSignerValidation(t *testing.T) {
	_, err := NewSigner("not-a-key", "PlunderAcademyBadges", "1", 1, testContract)
	assert.Error(t, err)

	_, err = NewSigner(testKeyHex, "PlunderAcademyBadges", "1", 1, "0xnope")
	assert.Error(t, err)
}
