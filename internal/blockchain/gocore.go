package blockchain

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/core-coin/go-core/v2/accounts/abi"
	"github.com/core-coin/go-core/v2/accounts/abi/bind"
	"github.com/core-coin/go-core/v2/common"
	"github.com/core-coin/go-core/v2/xcbclient"

	"github.com/core-coin/walletx/pkg/logger"
)

// TokenABI is the read-only part of the CBC20 funding token ABI.
const TokenABI = `[{"inputs":[{"internalType":"address","name":"owner","type":"address"},{"internalType":"address","name":"spender","type":"address"}],"name":"allowance","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"totalSupply","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

// Gocore reads funding token state from a Core blockchain node.
type Gocore struct {
	logger       *logger.Logger
	apiURL       string
	tokenAddress string

	mu            sync.RWMutex
	client        *xcbclient.Client
	tokenContract *bind.BoundContract
}

// NewGocore creates a new Gocore instance.
func NewGocore(apiURL, tokenAddress string, logger *logger.Logger) *Gocore {
	return &Gocore{apiURL: apiURL, tokenAddress: tokenAddress, logger: logger}
}

func (g *Gocore) Run() error {
	err := g.ConnectToRPC()
	if err != nil {
		return fmt.Errorf("failed to connect to the core RPC server: %w", err)
	}
	err = g.BuildBindings()
	if err != nil {
		return fmt.Errorf("failed to build bindings: %w", err)
	}
	g.logger.Info("Connected to blockchain", "url", g.apiURL, "token", g.tokenAddress)
	return nil
}

func (g *Gocore) ConnectToRPC() error {
	client, err := xcbclient.Dial(g.apiURL)
	if err != nil {
		return fmt.Errorf("failed to connect to the core RPC server: %w", err)
	}
	g.mu.Lock()
	g.client = client
	g.mu.Unlock()
	return nil
}

func (g *Gocore) BuildBindings() error {
	tokenAddress, err := common.HexToAddress(g.tokenAddress)
	if err != nil {
		return fmt.Errorf("failed to parse funding token address: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(TokenABI))
	if err != nil {
		return fmt.Errorf("failed to parse funding token ABI: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokenContract = bind.NewBoundContract(tokenAddress, parsedABI, g.client, g.client, g.client)
	return nil
}

func (g *Gocore) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		g.client.Close()
		g.client = nil
	}
	g.tokenContract = nil
	return nil
}

// GetAddressTokenBalance returns the funding token balance of address.
func (g *Gocore) GetAddressTokenBalance(address string) (*big.Int, error) {
	account, err := common.HexToAddress(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %s: %w", address, err)
	}
	return g.callUint("balanceOf", account)
}

// GetTokenAllowance returns how much spender may move out of owner's balance.
func (g *Gocore) GetTokenAllowance(owner, spender string) (*big.Int, error) {
	ownerAddress, err := common.HexToAddress(owner)
	if err != nil {
		return nil, fmt.Errorf("invalid owner address %s: %w", owner, err)
	}
	spenderAddress, err := common.HexToAddress(spender)
	if err != nil {
		return nil, fmt.Errorf("invalid spender address %s: %w", spender, err)
	}
	return g.callUint("allowance", ownerAddress, spenderAddress)
}

func (g *Gocore) callUint(method string, params ...interface{}) (*big.Int, error) {
	g.mu.RLock()
	contract := g.tokenContract
	g.mu.RUnlock()
	if contract == nil {
		return nil, fmt.Errorf("blockchain client is not connected")
	}

	results := []interface{}{}
	if err := contract.Call(nil, &results, method, params...); err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("empty result from %s", method)
	}
	value, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T from %s", results[0], method)
	}
	return value, nil
}
