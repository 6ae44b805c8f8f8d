package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "0x1111111111111111111111111111111111111111"

type fakeCaller struct {
	balance *big.Int
	err     error
	calls   int
	gotTo   string
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	f.gotTo = msg.To.Hex()
	if f.err != nil {
		return nil, f.err
	}
	return erc20ABI.Methods["balanceOf"].Outputs.Pack(f.balance)
}

func TestCheckBalance(t *testing.T) {
	tests := []struct {
		name    string
		raw     int64
		solvent bool
	}{
		{"above minimum", 12_500_000, true},
		{"exactly minimum", 5_000_000, true},
		{"below minimum", 4_999_999, false},
		{"empty wallet", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &fakeCaller{balance: big.NewInt(tt.raw)}
			bc, err := NewBalanceChecker(caller, "", testWallet, decimal.NewFromInt(5))
			require.NoError(t, err)

			sol, err := bc.CheckBalance(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.solvent, sol.Solvent)
			assert.Contains(t, sol.Detail, "minimum 5.00")
			assert.True(t, strings.EqualFold(USDCPolygon, caller.gotTo))
		})
	}
}

func TestCheckBalanceCachesAndFallsBack(t *testing.T) {
	caller := &fakeCaller{balance: big.NewInt(9_000_000)}
	bc, err := NewBalanceChecker(caller, "", testWallet, decimal.NewFromInt(1))
	require.NoError(t, err)

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	bc.now = func() time.Time { return now }

	_, err = bc.CheckBalance(context.Background())
	require.NoError(t, err)
	_, err = bc.CheckBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, caller.calls, "second check within ttl is cached")

	now = now.Add(time.Minute)
	caller.err = errors.New("rpc unavailable")
	sol, err := bc.CheckBalance(context.Background())
	require.NoError(t, err, "stale balance is used while fresh enough")
	assert.Contains(t, sol.Detail, "balance 9.00 USDC")

	now = now.Add(10 * time.Minute)
	_, err = bc.CheckBalance(context.Background())
	assert.ErrorContains(t, err, "rpc unavailable")
}

func TestNewBalanceCheckerValidatesAddresses(t *testing.T) {
	_, err := NewBalanceChecker(&fakeCaller{}, "", "not-an-address", decimal.Zero)
	assert.Error(t, err)
	_, err = NewBalanceChecker(&fakeCaller{}, "0xzz", testWallet, decimal.Zero)
	assert.Error(t, err)
}
