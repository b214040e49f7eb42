package ledger

import (
	"context"
	"testing"
	"time"

	dbm "github.com/cosmos/cosmos-db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanboards/r-squared-core-indexer/authz"
	"github.com/scanboards/r-squared-core-indexer/crypto"
	"github.com/scanboards/r-squared-core-indexer/htlc"
	"github.com/scanboards/r-squared-core-indexer/ops"
	"github.com/scanboards/r-squared-core-indexer/store"
	"github.com/scanboards/r-squared-core-indexer/types"
)

const testChainID = "rqrx-test-1"

var testNow = time.Unix(1_900_000_000, 0).UTC()

type testParty struct {
	ownerKey  *crypto.PrivateKey
	activeKey *crypto.PrivateKey
}

func (p *testParty) ownerID() types.KeyID {
	return types.KeyIDFromBytes(p.ownerKey.PublicKey().Bytes())
}

func (p *testParty) activeID() types.KeyID {
	return types.KeyIDFromBytes(p.activeKey.PublicKey().Bytes())
}

// testLedger registers alice, bob, and charlie with fresh keypairs and
// funds alice.
func testLedger(t *testing.T) (*State, map[string]*testParty) {
	t.Helper()
	ctx := context.Background()

	state, err := NewState(store.NewMemoryStore(), testChainID, htlc.DefaultParams(), nil)
	require.NoError(t, err)

	parties := make(map[string]*testParty)
	for _, name := range []string{"alice", "bob", "charlie"} {
		ownerKey, err := crypto.GeneratePrivateKey()
		require.NoError(t, err)
		activeKey, err := crypto.GeneratePrivateKey()
		require.NoError(t, err)
		party := &testParty{ownerKey: ownerKey, activeKey: activeKey}
		parties[name] = party

		acct := types.NewAccount(types.AccountName(name), party.ownerID(), party.activeID(), "faucet")
		require.NoError(t, state.RegisterAccount(ctx, acct))
	}

	require.NoError(t, state.Fund(ctx, "alice", types.NewCoin("rqrx", 1000)))
	return state, parties
}

func signedTx(t *testing.T, state *State, keys []*crypto.PrivateKey, operations ...types.Operation) *types.Transaction {
	t.Helper()
	tx := types.NewTransaction(testNow.Add(time.Hour), operations...)
	for _, key := range keys {
		require.NoError(t, tx.Sign(key, state.ChainID()))
	}
	return tx
}

func TestState_RegisterAccount(t *testing.T) {
	ctx := context.Background()
	state, parties := testLedger(t)

	// Registration is first come, first served.
	dup := types.NewAccount("alice", parties["alice"].ownerID(), parties["alice"].activeID(), "faucet")
	err := state.RegisterAccount(ctx, dup)
	assert.ErrorIs(t, err, types.ErrInvalidAccount)

	// Direct keys land in the reverse index.
	refs, err := state.KeyReferences(ctx, []types.KeyID{parties["bob"].activeID()})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, []types.AccountName{"bob"}, refs[0])
}

func TestState_AuthorizedTransfer(t *testing.T) {
	ctx := context.Background()
	state, parties := testLedger(t)

	tx := signedTx(t, state, []*crypto.PrivateKey{parties["alice"].activeKey},
		&ops.Transfer{From: "alice", To: "charlie", Amount: types.NewCoin("rqrx", 250), Memo: "rent"})

	receipt, err := state.ApplyTransaction(ctx, testNow, tx)
	require.NoError(t, err)
	assert.True(t, receipt.Signers.Has(parties["alice"].activeID()))

	balance, err := state.Balance(ctx, "alice", "rqrx")
	require.NoError(t, err)
	assert.Equal(t, uint64(750), balance)

	coins, err := state.Balances(ctx, "charlie")
	require.NoError(t, err)
	assert.Equal(t, uint64(250), coins.AmountOf("rqrx"))
}

func TestState_TransferDenied(t *testing.T) {
	ctx := context.Background()
	state, parties := testLedger(t)

	t.Run("wrong signer", func(t *testing.T) {
		tx := signedTx(t, state, []*crypto.PrivateKey{parties["bob"].activeKey},
			&ops.Transfer{From: "alice", To: "bob", Amount: types.NewCoin("rqrx", 10)})
		_, err := state.ApplyTransaction(ctx, testNow, tx)
		assert.ErrorIs(t, err, types.ErrInsufficientAuthority)
	})

	t.Run("unregistered recipient", func(t *testing.T) {
		tx := signedTx(t, state, []*crypto.PrivateKey{parties["alice"].activeKey},
			&ops.Transfer{From: "alice", To: "nobody", Amount: types.NewCoin("rqrx", 10)})
		_, err := state.ApplyTransaction(ctx, testNow, tx)
		assert.ErrorIs(t, err, types.ErrUnknownAccount)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		tx := signedTx(t, state, []*crypto.PrivateKey{parties["alice"].activeKey},
			&ops.Transfer{From: "alice", To: "bob", Amount: types.NewCoin("rqrx", 1_000_000)})
		_, err := state.ApplyTransaction(ctx, testNow, tx)
		assert.ErrorIs(t, err, types.ErrInsufficientFunds)
	})

	t.Run("expired transaction", func(t *testing.T) {
		tx := signedTx(t, state, []*crypto.PrivateKey{parties["alice"].activeKey},
			&ops.Transfer{From: "alice", To: "bob", Amount: types.NewCoin("rqrx", 10)})
		_, err := state.ApplyTransaction(ctx, tx.Expiration.Add(time.Second), tx)
		assert.ErrorIs(t, err, types.ErrInvalidTransaction)
	})
}

func TestState_MultisigFlow(t *testing.T) {
	ctx := context.Background()
	state, parties := testLedger(t)

	// Three fresh signers; alice's active authority becomes 2-of-3.
	var signerKeys []*crypto.PrivateKey
	weights := make(map[types.KeyID]uint64)
	for i := 0; i < 3; i++ {
		key, err := crypto.GeneratePrivateKey()
		require.NoError(t, err)
		signerKeys = append(signerKeys, key)
		weights[types.KeyIDFromBytes(key.PublicKey().Bytes())] = 1
	}
	newActive := types.Authority{Threshold: 2, KeyWeights: weights}

	update := signedTx(t, state, []*crypto.PrivateKey{parties["alice"].activeKey},
		&ops.AccountUpdate{Account: "alice", NewActive: &newActive})
	_, err := state.ApplyTransaction(ctx, testNow, update)
	require.NoError(t, err)

	transfer := func(keys ...*crypto.PrivateKey) error {
		tx := signedTx(t, state, keys,
			&ops.Transfer{From: "alice", To: "bob", Amount: types.NewCoin("rqrx", 5)})
		_, err := state.ApplyTransaction(ctx, testNow, tx)
		return err
	}

	// The replaced key no longer authorizes; one of three is short of the
	// threshold; any two suffice.
	assert.ErrorIs(t, transfer(parties["alice"].activeKey), types.ErrInsufficientAuthority)
	assert.ErrorIs(t, transfer(signerKeys[0]), types.ErrInsufficientAuthority)
	assert.NoError(t, transfer(signerKeys[0], signerKeys[2]))

	// The reverse index follows the authority change.
	refs, err := state.KeyReferences(ctx, []types.KeyID{
		parties["alice"].activeID(),
		types.KeyIDFromBytes(signerKeys[1].PublicKey().Bytes()),
	})
	require.NoError(t, err)
	assert.Empty(t, refs[0], "replaced key no longer references alice")
	assert.Equal(t, []types.AccountName{"alice"}, refs[1])
}

func TestState_OwnerLevelUpdate(t *testing.T) {
	ctx := context.Background()
	state, parties := testLedger(t)

	replacement, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	newOwner := types.NewKeyAuthority(types.KeyIDFromBytes(replacement.PublicKey().Bytes()), 1)

	// The active key cannot rotate the owner authority.
	tx := signedTx(t, state, []*crypto.PrivateKey{parties["alice"].activeKey},
		&ops.AccountUpdate{Account: "alice", NewOwner: &newOwner})
	_, err = state.ApplyTransaction(ctx, testNow, tx)
	assert.ErrorIs(t, err, types.ErrInsufficientAuthority)

	tx = signedTx(t, state, []*crypto.PrivateKey{parties["alice"].ownerKey},
		&ops.AccountUpdate{Account: "alice", NewOwner: &newOwner})
	_, err = state.ApplyTransaction(ctx, testNow, tx)
	require.NoError(t, err)

	acct, err := state.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, acct.Owner.HasKey(types.KeyIDFromBytes(replacement.PublicKey().Bytes())))
}

func TestState_DelegatedTransferViaCustomAuthority(t *testing.T) {
	ctx := context.Background()
	state, parties := testLedger(t)

	// Alice grants bob's active authority the right to send her funds,
	// but only to charlie and only up to 100.
	grant := &ops.CustomAuthorityCreate{
		Account:       "alice",
		Auth:          types.NewKeyAuthority(parties["bob"].activeID(), 1),
		OperationType: types.OpTransfer,
		ValidTo:       testNow.Add(30 * 24 * time.Hour),
		Enabled:       true,
		Restrictions: []authz.Restriction{
			authz.NewRestriction(ops.TransferFieldTo, authz.CompareEq, authz.AccountValue("charlie")),
			authz.NewRestriction(ops.TransferFieldAmount, authz.CompareLe, authz.UintValue(100)),
		},
	}
	tx := signedTx(t, state, []*crypto.PrivateKey{parties["alice"].activeKey}, grant)
	receipt, err := state.ApplyTransaction(ctx, testNow, tx)
	require.NoError(t, err)
	require.Len(t, receipt.Grants, 1)

	grants, err := state.CustomAuthorities(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, receipt.Grants[0], grants[0].ID)

	delegated := func(to types.AccountName, amount uint64) error {
		tx := signedTx(t, state, []*crypto.PrivateKey{parties["bob"].activeKey},
			&ops.Transfer{From: "alice", To: to, Amount: types.NewCoin("rqrx", amount)})
		_, err := state.ApplyTransaction(ctx, testNow, tx)
		return err
	}

	assert.NoError(t, delegated("charlie", 100))
	assert.ErrorIs(t, delegated("bob", 50), types.ErrRestrictionViolation)
	assert.ErrorIs(t, delegated("charlie", 101), types.ErrRestrictionViolation)

	balance, err := state.Balance(ctx, "charlie", "rqrx")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance)
}

func TestState_HTLCLifecycle(t *testing.T) {
	ctx := context.Background()
	state, parties := testLedger(t)

	secret := []byte("My Secret")
	digest, err := crypto.HashSHA256.Digest(secret)
	require.NoError(t, err)

	create := signedTx(t, state, []*crypto.PrivateKey{parties["alice"].activeKey},
		&ops.HTLCCreate{
			From:               "alice",
			To:                 "bob",
			Amount:             types.NewCoin("rqrx", 3),
			Algorithm:          crypto.HashSHA256,
			Digest:             digest,
			PreimageLength:     uint64(len(secret)),
			ClaimPeriodSeconds: 86400,
		})
	receipt, err := state.ApplyTransaction(ctx, testNow, create)
	require.NoError(t, err)
	require.Len(t, receipt.Contracts, 1)
	contractID := receipt.Contracts[0].ID

	balance, err := state.Balance(ctx, "alice", "rqrx")
	require.NoError(t, err)
	assert.Equal(t, uint64(997), balance)

	// A wrong guess is rejected and leaves the contract open.
	wrong := signedTx(t, state, []*crypto.PrivateKey{parties["bob"].activeKey},
		&ops.HTLCRedeem{Redeemer: "bob", ContractID: contractID, Preimage: []byte("Bad Guess")})
	_, err = state.ApplyTransaction(ctx, testNow.Add(time.Minute), wrong)
	assert.ErrorIs(t, err, htlc.ErrWrongPreimage)

	status, err := state.Engine().Status(ctx, testNow.Add(time.Minute), contractID)
	require.NoError(t, err)
	assert.Equal(t, htlc.StatusOpen, status)

	// The receiver redeems with the real secret.
	redeem := signedTx(t, state, []*crypto.PrivateKey{parties["bob"].activeKey},
		&ops.HTLCRedeem{Redeemer: "bob", ContractID: contractID, Preimage: secret})
	receipt, err = state.ApplyTransaction(ctx, testNow.Add(2*time.Minute), redeem)
	require.NoError(t, err)
	require.Len(t, receipt.Contracts, 1)
	assert.Equal(t, htlc.StatusRedeemed, receipt.Contracts[0].Status)
	assert.Equal(t, secret, receipt.Contracts[0].Preimage)

	balance, err = state.Balance(ctx, "bob", "rqrx")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), balance)
}

func TestState_HTLCClaimPeriodBounds(t *testing.T) {
	ctx := context.Background()
	state, parties := testLedger(t)

	digest, err := crypto.HashSHA256.Digest([]byte("secret"))
	require.NoError(t, err)

	htlcCreate := func(claimSeconds uint64) *ops.HTLCCreate {
		return &ops.HTLCCreate{
			From: "alice", To: "bob",
			Amount:             types.NewCoin("rqrx", 3),
			Algorithm:          crypto.HashSHA256,
			Digest:             digest,
			PreimageLength:     6,
			ClaimPeriodSeconds: claimSeconds,
		}
	}

	// A seconds count just past 2^64/1e9 wraps int64 nanoseconds to a
	// tiny positive duration, which would slip under the engine's claim
	// period ceiling if converted unchecked.
	tx := signedTx(t, state, []*crypto.PrivateKey{parties["alice"].activeKey},
		htlcCreate(18_446_744_074))
	_, err = state.ApplyTransaction(ctx, testNow, tx)
	assert.ErrorIs(t, err, htlc.ErrClaimPeriodTooLong)

	// An honest but over-limit value fails the same way.
	overLimit := uint64(htlc.DefaultParams().MaxClaimPeriod/time.Second) + 1
	tx = signedTx(t, state, []*crypto.PrivateKey{parties["alice"].activeKey},
		htlcCreate(overLimit))
	_, err = state.ApplyTransaction(ctx, testNow, tx)
	assert.ErrorIs(t, err, htlc.ErrClaimPeriodTooLong)

	balance, err := state.Balance(ctx, "alice", "rqrx")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), balance, "rejected creates must not debit")
}

func TestState_HTLCSwapAcrossAssets(t *testing.T) {
	ctx := context.Background()
	state, parties := testLedger(t)
	require.NoError(t, state.Fund(ctx, "bob", types.NewCoin("btc", 5)))

	secret := []byte("cross-chain swap secret")
	digest, err := crypto.HashHash160.Digest(secret)
	require.NoError(t, err)

	// Both legs commit to the same HASH160 digest; only alice knows the
	// secret at this point.
	offer := signedTx(t, state, []*crypto.PrivateKey{parties["alice"].activeKey},
		&ops.HTLCCreate{
			From: "alice", To: "bob",
			Amount:             types.NewCoin("rqrx", 10),
			Algorithm:          crypto.HashHash160,
			Digest:             digest,
			PreimageLength:     uint64(len(secret)),
			ClaimPeriodSeconds: 2 * 86400,
		})
	offerReceipt, err := state.ApplyTransaction(ctx, testNow, offer)
	require.NoError(t, err)

	counter := signedTx(t, state, []*crypto.PrivateKey{parties["bob"].activeKey},
		&ops.HTLCCreate{
			From: "bob", To: "alice",
			Amount:             types.NewCoin("btc", 5),
			Algorithm:          crypto.HashHash160,
			Digest:             digest,
			PreimageLength:     uint64(len(secret)),
			ClaimPeriodSeconds: 86400,
		})
	counterReceipt, err := state.ApplyTransaction(ctx, testNow, counter)
	require.NoError(t, err)

	// Alice claims bob's leg, publishing the secret on the record.
	claim := signedTx(t, state, []*crypto.PrivateKey{parties["alice"].activeKey},
		&ops.HTLCRedeem{Redeemer: "alice", ContractID: counterReceipt.Contracts[0].ID, Preimage: secret})
	claimReceipt, err := state.ApplyTransaction(ctx, testNow.Add(time.Hour), claim)
	require.NoError(t, err)

	// Bob reuses the published preimage on the offer leg.
	published := claimReceipt.Contracts[0].Preimage
	settle := signedTx(t, state, []*crypto.PrivateKey{parties["bob"].activeKey},
		&ops.HTLCRedeem{Redeemer: "bob", ContractID: offerReceipt.Contracts[0].ID, Preimage: published})
	_, err = state.ApplyTransaction(ctx, testNow.Add(2*time.Hour), settle)
	require.NoError(t, err)

	aliceBTC, err := state.Balance(ctx, "alice", "btc")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), aliceBTC)

	bobRQRX, err := state.Balance(ctx, "bob", "rqrx")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), bobRQRX)
}

// End-to-end over the merkle-backed store: applying the same transactions
// yields the same committed root hash.
func TestState_IAVLBackedDeterminism(t *testing.T) {
	ctx := context.Background()

	seedKey := func(t *testing.T, seed byte) *crypto.PrivateKey {
		raw := make([]byte, 32)
		raw[31] = seed
		key, err := crypto.PrivateKeyFromBytes(raw)
		require.NoError(t, err)
		return key
	}

	build := func(t *testing.T) []byte {
		backing, err := store.NewIAVLStore(dbm.NewMemDB(), 100, nil)
		require.NoError(t, err)
		state, err := NewState(backing, testChainID, htlc.DefaultParams(), nil)
		require.NoError(t, err)

		aliceKey, bobKey := seedKey(t, 1), seedKey(t, 2)
		aliceID := types.KeyIDFromBytes(aliceKey.PublicKey().Bytes())
		bobID := types.KeyIDFromBytes(bobKey.PublicKey().Bytes())

		alice := types.NewAccount("alice", aliceID, aliceID, "faucet")
		alice.CreatedAt = testNow
		bob := types.NewAccount("bob", bobID, bobID, "faucet")
		bob.CreatedAt = testNow
		require.NoError(t, state.RegisterAccount(ctx, alice))
		require.NoError(t, state.RegisterAccount(ctx, bob))
		require.NoError(t, state.Fund(ctx, "alice", types.NewCoin("rqrx", 100)))

		tx := types.NewTransaction(testNow.Add(time.Hour),
			&ops.Transfer{From: "alice", To: "bob", Amount: types.NewCoin("rqrx", 40)})
		require.NoError(t, tx.Sign(aliceKey, testChainID))
		_, err = state.ApplyTransaction(ctx, testNow, tx)
		require.NoError(t, err)

		require.NoError(t, state.Commit())
		return backing.Hash()
	}

	assert.Equal(t, build(t), build(t))
}
