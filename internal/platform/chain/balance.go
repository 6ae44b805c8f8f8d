// Package chain reads wallet balances from an EVM RPC endpoint.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

const (
	// USDCPolygon is native USDC on Polygon PoS.
	USDCPolygon = "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359"
	// DefaultRPCURL is a public Polygon endpoint.
	DefaultRPCURL = "https://polygon-rpc.com"

	usdcDecimals  = 6
	callTimeout   = 8 * time.Second
	cacheTTL      = 30 * time.Second
	staleFallback = 5 * time.Minute
)

const erc20BalanceOfABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"}]`

var erc20ABI = mustParseABI(erc20BalanceOfABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("chain: parse erc20 abi: %v", err))
	}
	return parsed
}

// BalanceChecker implements domain.SolvencyChecker against an ERC-20 balance.
type BalanceChecker struct {
	caller     ethereum.ContractCaller
	token      common.Address
	wallet     common.Address
	minBalance decimal.Decimal
	now        func() time.Time

	mu        sync.Mutex
	cached    decimal.Decimal
	fetchedAt time.Time
}

var _ domain.SolvencyChecker = (*BalanceChecker)(nil)

// Dial connects to rpcURL and returns a checker for wallet's token balance.
func Dial(ctx context.Context, rpcURL, token, wallet string, minBalance decimal.Decimal) (*BalanceChecker, *ethclient.Client, error) {
	if rpcURL == "" {
		rpcURL = DefaultRPCURL
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}
	bc, err := NewBalanceChecker(client, token, wallet, minBalance)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return bc, client, nil
}

// NewBalanceChecker creates a checker over any contract caller.
func NewBalanceChecker(caller ethereum.ContractCaller, token, wallet string, minBalance decimal.Decimal) (*BalanceChecker, error) {
	if token == "" {
		token = USDCPolygon
	}
	if !common.IsHexAddress(token) {
		return nil, fmt.Errorf("chain: invalid token address %q", token)
	}
	if !common.IsHexAddress(wallet) {
		return nil, fmt.Errorf("chain: invalid wallet address %q", wallet)
	}
	return &BalanceChecker{
		caller:     caller,
		token:      common.HexToAddress(token),
		wallet:     common.HexToAddress(wallet),
		minBalance: minBalance,
		now:        time.Now,
	}, nil
}

// CheckBalance reports whether the wallet holds at least the minimum
// balance. A failed RPC call falls back to a recent cached balance.
func (b *BalanceChecker) CheckBalance(ctx context.Context) (domain.Solvency, error) {
	balance, err := b.balance(ctx)
	if err != nil {
		return domain.Solvency{}, err
	}
	detail := fmt.Sprintf("balance %s USDC, minimum %s", balance.StringFixed(2), b.minBalance.StringFixed(2))
	return domain.Solvency{
		Solvent: balance.GreaterThanOrEqual(b.minBalance),
		Detail:  detail,
	}, nil
}

func (b *BalanceChecker) balance(ctx context.Context) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if !b.fetchedAt.IsZero() && now.Sub(b.fetchedAt) < cacheTTL {
		return b.cached, nil
	}

	raw, err := b.fetch(ctx)
	if err != nil {
		if !b.fetchedAt.IsZero() && now.Sub(b.fetchedAt) < staleFallback {
			return b.cached, nil
		}
		return decimal.Decimal{}, err
	}
	b.cached = decimal.NewFromBigInt(raw, -usdcDecimals)
	b.fetchedAt = now
	return b.cached, nil
}

func (b *BalanceChecker) fetch(ctx context.Context) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", b.wallet)
	if err != nil {
		return nil, fmt.Errorf("chain: pack balanceOf: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	out, err := b.caller.CallContract(ctx, ethereum.CallMsg{To: &b.token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call balanceOf: %w", err)
	}

	values, err := erc20ABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack balanceOf: %w", err)
	}
	if len(values) == 0 {
		return nil, errors.New("chain: empty balanceOf result")
	}
	raw, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: unexpected balanceOf type %T", values[0])
	}
	return raw, nil
}
