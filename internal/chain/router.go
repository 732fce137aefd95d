package chain

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"updown/internal/config"
	"updown/internal/models"
)

// Room contract surface used by the service. Prices are fixed-point 1e8,
// stakes fixed-point 1e18, matching the contract's storage.
const roomRouterABI = `[
	{"name":"nextRoomId","type":"function","inputs":[],"outputs":[{"type":"uint256"}]},
	{"name":"createRoom","type":"function","inputs":[
		{"name":"symbol","type":"string"},
		{"name":"durationMinutes","type":"uint256"},
		{"name":"minStake","type":"uint256"}
	],"outputs":[{"type":"uint256"}]},
	{"name":"startRoom","type":"function","inputs":[
		{"name":"roomId","type":"uint256"},
		{"name":"startingPrice","type":"uint256"}
	],"outputs":[]},
	{"name":"predict","type":"function","inputs":[
		{"name":"roomId","type":"uint256"},
		{"name":"up","type":"bool"},
		{"name":"stake","type":"uint256"}
	],"outputs":[]},
	{"name":"resolveRoom","type":"function","inputs":[
		{"name":"roomId","type":"uint256"},
		{"name":"endingPrice","type":"uint256"}
	],"outputs":[{"type":"bool"}]},
	{"name":"claimPayout","type":"function","inputs":[
		{"name":"roomId","type":"uint256"}
	],"outputs":[{"type":"uint256"}]}
]`

var (
	priceScale = decimal.New(1, 8)
	stakeScale = decimal.New(1, 18)
)

// Router drives the room contract over JSON-RPC with a server-held executor
// key. It dials per call; callers bound each call with the configured timeout.
type Router struct {
	rpcURL   string
	address  common.Address
	key      *ecdsa.PrivateKey
	gasLimit uint64
	parsed   abi.ABI
}

func NewRouter(cfg config.ChainConfig) (*Router, error) {
	if strings.TrimSpace(cfg.RPCURL) == "" || strings.TrimSpace(cfg.RouterAddress) == "" {
		return nil, fmt.Errorf("chain rpc_url and router_address are required")
	}
	parsed, err := abi.JSON(strings.NewReader(roomRouterABI))
	if err != nil {
		return nil, err
	}
	keyHex := strings.TrimSpace(cfg.ExecutorKey)
	if keyHex == "" {
		return nil, fmt.Errorf("chain executor_key is required")
	}
	keyHex = strings.TrimPrefix(keyHex, "0x")
	keyBuf, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decode executor key: %w", err)
	}
	key, err := crypto.ToECDSA(keyBuf)
	if err != nil {
		return nil, fmt.Errorf("to ecdsa: %w", err)
	}
	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = 300000
	}
	return &Router{
		rpcURL:   cfg.RPCURL,
		address:  common.HexToAddress(cfg.RouterAddress),
		key:      key,
		gasLimit: gasLimit,
		parsed:   parsed,
	}, nil
}

func (r *Router) CreateRoom(ctx context.Context, symbol string, durationMinutes int, minStake decimal.Decimal) (uint64, string, error) {
	nextID, err := r.nextRoomID(ctx)
	if err != nil {
		return 0, "", err
	}
	data, err := r.parsed.Pack("createRoom", symbol, big.NewInt(int64(durationMinutes)), toScaled(minStake, stakeScale))
	if err != nil {
		return 0, "", fmt.Errorf("pack createRoom: %w", err)
	}
	txHash, err := r.submit(ctx, data)
	if err != nil {
		return 0, "", err
	}
	return nextID, txHash, nil
}

func (r *Router) StartRoom(ctx context.Context, roomID uint64, startingPrice decimal.Decimal) (string, error) {
	data, err := r.parsed.Pack("startRoom", new(big.Int).SetUint64(roomID), toScaled(startingPrice, priceScale))
	if err != nil {
		return "", fmt.Errorf("pack startRoom: %w", err)
	}
	return r.submit(ctx, data)
}

func (r *Router) Predict(ctx context.Context, roomID uint64, direction models.Direction, stake decimal.Decimal) (string, error) {
	data, err := r.parsed.Pack("predict", new(big.Int).SetUint64(roomID), direction == models.DirectionUp, toScaled(stake, stakeScale))
	if err != nil {
		return "", fmt.Errorf("pack predict: %w", err)
	}
	return r.submit(ctx, data)
}

func (r *Router) ResolveRoom(ctx context.Context, roomID uint64, endingPrice decimal.Decimal) (string, error) {
	data, err := r.parsed.Pack("resolveRoom", new(big.Int).SetUint64(roomID), toScaled(endingPrice, priceScale))
	if err != nil {
		return "", fmt.Errorf("pack resolveRoom: %w", err)
	}
	return r.submit(ctx, data)
}

func (r *Router) ClaimPayout(ctx context.Context, roomID uint64) (string, error) {
	data, err := r.parsed.Pack("claimPayout", new(big.Int).SetUint64(roomID))
	if err != nil {
		return "", fmt.Errorf("pack claimPayout: %w", err)
	}
	return r.submit(ctx, data)
}

func (r *Router) nextRoomID(ctx context.Context) (uint64, error) {
	client, err := ethclient.DialContext(ctx, r.rpcURL)
	if err != nil {
		return 0, fmt.Errorf("dial rpc: %w", err)
	}
	defer client.Close()

	data, err := r.parsed.Pack("nextRoomId")
	if err != nil {
		return 0, err
	}
	to := r.address
	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("call nextRoomId: %w", err)
	}
	if len(res) < 32 {
		return 0, fmt.Errorf("nextRoomId result length %d", len(res))
	}
	return new(big.Int).SetBytes(res).Uint64(), nil
}

func (r *Router) submit(ctx context.Context, data []byte) (string, error) {
	client, err := ethclient.DialContext(ctx, r.rpcURL)
	if err != nil {
		return "", fmt.Errorf("dial rpc: %w", err)
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return "", fmt.Errorf("chain id: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("gas price: %w", err)
	}
	from := crypto.PubkeyToAddress(r.key.PublicKey)
	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("pending nonce: %w", err)
	}

	to := r.address
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      r.gasLimit,
		To:       &to,
		Value:    big.NewInt(0),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), r.key)
	if err != nil {
		return "", fmt.Errorf("sign tx: %w", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send tx: %w", err)
	}
	return signed.Hash().Hex(), nil
}

func toScaled(d decimal.Decimal, scale decimal.Decimal) *big.Int {
	return d.Mul(scale).Truncate(0).BigInt()
}
