package explorer

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

const erc20ABIJSON = `[{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

var erc20ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic("failed to parse ERC-20 ABI: " + err.Error())
	}
	erc20ABI = parsed
}

// rpcDialer lazily dials and caches one ethclient per RPC endpoint.
type rpcDialer struct {
	mu      sync.Mutex
	clients map[string]*ethclient.Client
}

func newRPCDialer() *rpcDialer {
	return &rpcDialer{clients: make(map[string]*ethclient.Client)}
}

func (d *rpcDialer) get(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if client, ok := d.clients[rpcURL]; ok {
		return client, nil
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	d.clients[rpcURL] = client
	return client, nil
}

// fetchRPC serves queries marked transport=rpc directly over JSON-RPC:
// native balance via eth_getBalance, token balance via ERC-20 balanceOf.
func (c *Client) fetchRPC(ctx context.Context, def QueryDefinition, endpoint ChainEndpoint) (decimal.Decimal, error) {
	if endpoint.RPCURL == "" {
		return decimal.Decimal{}, permanentErr(def.ID, "chain has no rpc_url configured", nil)
	}

	address := def.Params["address"]
	if address == "" {
		return decimal.Decimal{}, permanentErr(def.ID, "rpc query requires an address param", nil)
	}

	client, err := c.rpc.get(ctx, endpoint.RPCURL)
	if err != nil {
		return decimal.Decimal{}, transientErr(def.ID, "dial rpc endpoint", err)
	}

	var raw *big.Int
	if contract := def.Params["contractaddress"]; contract != "" {
		raw, err = fetchTokenBalance(ctx, client, contract, address)
	} else {
		raw, err = client.BalanceAt(ctx, common.HexToAddress(address), nil)
	}
	if err != nil {
		return decimal.Decimal{}, transientErr(def.ID, "rpc call failed", err)
	}

	return scaleValue(def, decimal.NewFromBigInt(raw, 0)), nil
}

func fetchTokenBalance(ctx context.Context, client *ethclient.Client, contract, holder string) (*big.Int, error) {
	payload, err := erc20ABI.Pack("balanceOf", common.HexToAddress(holder))
	if err != nil {
		return nil, err
	}

	to := common.HexToAddress(contract)
	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: payload}, nil)
	if err != nil {
		return nil, err
	}

	outputs, err := erc20ABI.Unpack("balanceOf", res)
	if err != nil {
		return nil, err
	}
	if len(outputs) != 1 {
		return nil, errUnexpectedBalanceShape
	}
	balance, ok := outputs[0].(*big.Int)
	if !ok {
		return nil, errUnexpectedBalanceShape
	}
	return balance, nil
}

var errUnexpectedBalanceShape = errors.New("unexpected balanceOf response shape")
