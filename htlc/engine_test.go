package htlc

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanboards/r-squared-core-indexer/crypto"
	"github.com/scanboards/r-squared-core-indexer/types"
)

// memBalances implements BalanceBook for testing
type memBalances map[string]uint64

func balKey(account types.AccountName, denom string) string {
	return string(account) + "/" + denom
}

func (m memBalances) Balance(_ context.Context, account types.AccountName, denom string) (uint64, error) {
	return m[balKey(account, denom)], nil
}

func (m memBalances) Credit(_ context.Context, account types.AccountName, amount types.Coin) error {
	m[balKey(account, amount.Denom)] += amount.Amount
	return nil
}

func (m memBalances) Debit(_ context.Context, account types.AccountName, amount types.Coin) error {
	key := balKey(account, amount.Denom)
	if m[key] < amount.Amount {
		return fmt.Errorf("%w: %s", types.ErrInsufficientFunds, account)
	}
	m[key] -= amount.Amount
	return nil
}

// memContracts implements ContractStore for testing
type memContracts struct {
	seq       uint64
	contracts map[ContractID]Contract
}

func newMemContracts() *memContracts {
	return &memContracts{contracts: make(map[ContractID]Contract)}
}

func (m *memContracts) Get(_ context.Context, id ContractID) (*Contract, error) {
	c, ok := m.contracts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, id)
	}
	return &c, nil
}

func (m *memContracts) Set(_ context.Context, contract *Contract) error {
	m.contracts[contract.ID] = *contract
	return nil
}

func (m *memContracts) NextID(_ context.Context) (ContractID, error) {
	m.seq++
	return ContractID(m.seq), nil
}

func (m *memContracts) OpenContracts(_ context.Context) ([]*Contract, error) {
	var open []*Contract
	for id := range m.contracts {
		c := m.contracts[id]
		if c.Status == StatusOpen {
			open = append(open, &c)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].ID < open[j].ID })
	return open, nil
}

var engineNow = time.Unix(1_900_000_000, 0).UTC()

func newTestEngine(t *testing.T) (*Engine, memBalances) {
	t.Helper()
	balances := memBalances{}
	engine, err := NewEngine(DefaultParams(), balances, newMemContracts(), nil)
	require.NoError(t, err)
	return engine, balances
}

func mustDigest(t *testing.T, algo crypto.HashAlgorithm, preimage []byte) []byte {
	t.Helper()
	digest, err := algo.Digest(preimage)
	require.NoError(t, err)
	return digest
}

func TestEngine_CreateRedeemRoundTrip(t *testing.T) {
	ctx := context.Background()
	engine, balances := newTestEngine(t)
	require.NoError(t, balances.Credit(ctx, "alice", types.NewCoin("rqrx", 100)))

	secret := []byte("My Secret")
	contract, err := engine.Create(ctx, engineNow,
		"alice", "bob", types.NewCoin("rqrx", 3),
		crypto.HashSHA256, mustDigest(t, crypto.HashSHA256, secret),
		uint64(len(secret)), 24*time.Hour, "")
	require.NoError(t, err)

	assert.Equal(t, StatusOpen, contract.Status)
	assert.Equal(t, "1.16.1", contract.ID.String())
	assert.Equal(t, uint64(97), balances[balKey("alice", "rqrx")], "locked funds leave the sender")
	assert.Zero(t, balances[balKey("bob", "rqrx")])

	redeemed, err := engine.Redeem(ctx, engineNow.Add(time.Hour), contract.ID, secret)
	require.NoError(t, err)
	assert.Equal(t, StatusRedeemed, redeemed.Status)
	assert.Equal(t, secret, redeemed.Preimage, "preimage is published on the record")
	assert.Equal(t, uint64(3), balances[balKey("bob", "rqrx")])

	status, err := engine.Status(ctx, engineNow.Add(2*time.Hour), contract.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRedeemed, status)
}

func TestEngine_WrongPreimageLeavesContractOpen(t *testing.T) {
	ctx := context.Background()
	engine, balances := newTestEngine(t)
	require.NoError(t, balances.Credit(ctx, "alice", types.NewCoin("rqrx", 10)))

	secret := []byte("My Secret")
	contract, err := engine.Create(ctx, engineNow,
		"alice", "bob", types.NewCoin("rqrx", 3),
		crypto.HashSHA256, mustDigest(t, crypto.HashSHA256, secret),
		uint64(len(secret)), 24*time.Hour, "")
	require.NoError(t, err)

	_, err = engine.Redeem(ctx, engineNow.Add(time.Hour), contract.ID, []byte("Not It"))
	assert.ErrorIs(t, err, ErrWrongPreimage)

	status, err := engine.Status(ctx, engineNow.Add(time.Hour), contract.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, status, "a failed guess does not consume the contract")
	assert.Zero(t, balances[balKey("bob", "rqrx")])

	// The correct preimage still works afterwards.
	_, err = engine.Redeem(ctx, engineNow.Add(2*time.Hour), contract.ID, secret)
	assert.NoError(t, err)
}

func TestEngine_OversizedPreimageRejected(t *testing.T) {
	ctx := context.Background()
	engine, balances := newTestEngine(t)
	require.NoError(t, balances.Credit(ctx, "alice", types.NewCoin("rqrx", 10)))

	secret := []byte("My Secret")
	contract, err := engine.Create(ctx, engineNow,
		"alice", "bob", types.NewCoin("rqrx", 3),
		crypto.HashSHA256, mustDigest(t, crypto.HashSHA256, secret),
		4, 24*time.Hour, "")
	require.NoError(t, err)

	// The real preimage is longer than the declared bound, so the
	// contract is unredeemable by length alone.
	_, err = engine.Redeem(ctx, engineNow.Add(time.Hour), contract.ID, secret)
	assert.ErrorIs(t, err, ErrPreimageTooLong)
}

func TestEngine_ExpirationRefundsSender(t *testing.T) {
	ctx := context.Background()
	engine, balances := newTestEngine(t)
	require.NoError(t, balances.Credit(ctx, "alice", types.NewCoin("rqrx", 10)))

	secret := []byte("My Secret")
	contract, err := engine.Create(ctx, engineNow,
		"alice", "bob", types.NewCoin("rqrx", 3),
		crypto.HashSHA256, mustDigest(t, crypto.HashSHA256, secret),
		uint64(len(secret)), time.Hour, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), balances[balKey("alice", "rqrx")])

	// A redemption attempt at the deadline expires the contract.
	_, err = engine.Redeem(ctx, engineNow.Add(time.Hour), contract.ID, secret)
	assert.ErrorIs(t, err, ErrExpiredContract)
	assert.Equal(t, uint64(10), balances[balKey("alice", "rqrx")], "locked funds return to the sender")
	assert.Zero(t, balances[balKey("bob", "rqrx")])

	// The contract stays expired; the correct preimage cannot revive it.
	_, err = engine.Redeem(ctx, engineNow.Add(2*time.Hour), contract.ID, secret)
	assert.ErrorIs(t, err, ErrExpiredContract)

	status, err := engine.Status(ctx, engineNow.Add(2*time.Hour), contract.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, status)
}

func TestEngine_StatusExpiresLazily(t *testing.T) {
	ctx := context.Background()
	engine, balances := newTestEngine(t)
	require.NoError(t, balances.Credit(ctx, "alice", types.NewCoin("rqrx", 10)))

	secret := []byte("My Secret")
	contract, err := engine.Create(ctx, engineNow,
		"alice", "bob", types.NewCoin("rqrx", 3),
		crypto.HashSHA256, mustDigest(t, crypto.HashSHA256, secret),
		uint64(len(secret)), time.Hour, "")
	require.NoError(t, err)

	status, err := engine.Status(ctx, engineNow.Add(30*time.Minute), contract.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, status)

	status, err = engine.Status(ctx, engineNow.Add(61*time.Minute), contract.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, status)
	assert.Equal(t, uint64(10), balances[balKey("alice", "rqrx")])
}

func TestEngine_RedeemTwiceFails(t *testing.T) {
	ctx := context.Background()
	engine, balances := newTestEngine(t)
	require.NoError(t, balances.Credit(ctx, "alice", types.NewCoin("rqrx", 10)))

	secret := []byte("My Secret")
	contract, err := engine.Create(ctx, engineNow,
		"alice", "bob", types.NewCoin("rqrx", 3),
		crypto.HashSHA256, mustDigest(t, crypto.HashSHA256, secret),
		uint64(len(secret)), 24*time.Hour, "")
	require.NoError(t, err)

	_, err = engine.Redeem(ctx, engineNow.Add(time.Hour), contract.ID, secret)
	require.NoError(t, err)

	_, err = engine.Redeem(ctx, engineNow.Add(time.Hour), contract.ID, secret)
	assert.ErrorIs(t, err, ErrContractClosed)
	assert.Equal(t, uint64(3), balances[balKey("bob", "rqrx")], "no double credit")
}

func TestEngine_CreateValidation(t *testing.T) {
	ctx := context.Background()
	engine, balances := newTestEngine(t)
	require.NoError(t, balances.Credit(ctx, "alice", types.NewCoin("rqrx", 10)))

	secret := []byte("My Secret")
	digest := mustDigest(t, crypto.HashSHA256, secret)

	t.Run("claim period beyond maximum", func(t *testing.T) {
		_, err := engine.Create(ctx, engineNow, "alice", "bob", types.NewCoin("rqrx", 3),
			crypto.HashSHA256, digest, 9, engine.Params().MaxClaimPeriod+time.Second, "")
		assert.ErrorIs(t, err, ErrClaimPeriodTooLong)
	})

	t.Run("preimage bound beyond maximum", func(t *testing.T) {
		_, err := engine.Create(ctx, engineNow, "alice", "bob", types.NewCoin("rqrx", 3),
			crypto.HashSHA256, digest, engine.Params().MaxPreimageLength+1, time.Hour, "")
		assert.ErrorIs(t, err, ErrPreimageLengthTooLarge)
	})

	t.Run("digest size mismatch", func(t *testing.T) {
		_, err := engine.Create(ctx, engineNow, "alice", "bob", types.NewCoin("rqrx", 3),
			crypto.HashHash160, digest, 9, time.Hour, "")
		assert.ErrorIs(t, err, crypto.ErrDigestSize)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		_, err := engine.Create(ctx, engineNow, "alice", "bob", types.NewCoin("rqrx", 1000),
			crypto.HashSHA256, digest, 9, time.Hour, "")
		assert.ErrorIs(t, err, types.ErrInsufficientFunds)
		assert.Equal(t, uint64(10), balances[balKey("alice", "rqrx")], "failed create never debits")
	})
}

func TestEngine_UnknownContract(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	_, err := engine.Redeem(ctx, engineNow, 42, []byte("x"))
	assert.ErrorIs(t, err, ErrUnknownContract)

	_, err = engine.Status(ctx, engineNow, 42)
	assert.ErrorIs(t, err, ErrUnknownContract)
}

func TestEngine_SweepExpired(t *testing.T) {
	ctx := context.Background()
	engine, balances := newTestEngine(t)
	require.NoError(t, balances.Credit(ctx, "alice", types.NewCoin("rqrx", 10)))

	secret := []byte("My Secret")
	digest := mustDigest(t, crypto.HashSHA256, secret)

	short, err := engine.Create(ctx, engineNow, "alice", "bob", types.NewCoin("rqrx", 3),
		crypto.HashSHA256, digest, 9, time.Hour, "")
	require.NoError(t, err)
	long, err := engine.Create(ctx, engineNow, "alice", "bob", types.NewCoin("rqrx", 2),
		crypto.HashSHA256, digest, 9, 48*time.Hour, "")
	require.NoError(t, err)

	swept, err := engine.SweepExpired(ctx, engineNow.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	status, err := engine.Status(ctx, engineNow.Add(2*time.Hour), short.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, status)

	status, err = engine.Status(ctx, engineNow.Add(2*time.Hour), long.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, status)

	assert.Equal(t, uint64(8), balances[balKey("alice", "rqrx")], "only the expired leg refunds")
}

// Two contracts over the same HASH160 digest: redeeming the first publishes
// the preimage that unlocks the second. This is the atomic swap pattern.
func TestEngine_Hash160SwapLegs(t *testing.T) {
	ctx := context.Background()
	engine, balances := newTestEngine(t)
	require.NoError(t, balances.Credit(ctx, "alice", types.NewCoin("rqrx", 10)))
	require.NoError(t, balances.Credit(ctx, "bob", types.NewCoin("btc", 5)))

	secret := []byte("swap secret known only to alice")
	digest := mustDigest(t, crypto.HashHash160, secret)

	// Alice locks the offer leg; bob mirrors it with the same digest.
	offer, err := engine.Create(ctx, engineNow, "alice", "bob", types.NewCoin("rqrx", 10),
		crypto.HashHash160, digest, uint64(len(secret)), 48*time.Hour, "swap offer")
	require.NoError(t, err)
	counter, err := engine.Create(ctx, engineNow, "bob", "alice", types.NewCoin("btc", 5),
		crypto.HashHash160, digest, uint64(len(secret)), 24*time.Hour, "swap counter")
	require.NoError(t, err)

	// Alice redeems bob's leg, revealing the secret on the record.
	redeemed, err := engine.Redeem(ctx, engineNow.Add(time.Hour), counter.ID, secret)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), balances[balKey("alice", "btc")])

	// Bob reads the published preimage and redeems the offer leg.
	published := redeemed.Preimage
	_, err = engine.Redeem(ctx, engineNow.Add(2*time.Hour), offer.ID, published)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), balances[balKey("bob", "rqrx")])
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())
	assert.Error(t, Params{MaxPreimageLength: 0, MaxClaimPeriod: time.Hour}.Validate())
	assert.Error(t, Params{MaxPreimageLength: 1024, MaxClaimPeriod: 0}.Validate())
}

func TestContract_ValidateBasic(t *testing.T) {
	secret := []byte("My Secret")
	valid := func() *Contract {
		digest, _ := crypto.HashSHA256.Digest(secret)
		return &Contract{
			ID:             1,
			From:           "alice",
			To:             "bob",
			Amount:         types.NewCoin("rqrx", 3),
			Algorithm:      crypto.HashSHA256,
			Digest:         digest,
			PreimageLength: uint64(len(secret)),
			Created:        engineNow,
			Expiration:     engineNow.Add(time.Hour),
			Status:         StatusOpen,
		}
	}

	assert.NoError(t, valid().ValidateBasic())

	c := valid()
	c.From = "Not-Valid!"
	assert.Error(t, c.ValidateBasic())

	c = valid()
	c.Amount.Amount = 0
	assert.Error(t, c.ValidateBasic())

	c = valid()
	c.Digest = c.Digest[:10]
	assert.Error(t, c.ValidateBasic())

	c = valid()
	c.Expiration = c.Created
	assert.Error(t, c.ValidateBasic())
}
