package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Receipt is the confirmation surface the invoker needs from a submitted
// call. TxHash may be empty when the node confirmed without returning one.
type Receipt struct {
	TxHash string
}

// ContractCaller submits a contract write and blocks until it is confirmed.
type ContractCaller interface {
	SubmitCall(ctx context.Context, contract string, method string, fns []Function, args map[string]string) (*Receipt, error)
}

// Client is a ContractCaller backed by an Ethereum JSON-RPC node. It signs
// with a local key and polls for the receipt after submission.
type Client struct {
	client     *ethclient.Client
	chainID    *big.Int
	privateKey *ecdsa.PrivateKey
	address    common.Address

	receiptTimeout time.Duration
}

// NewClient connects to the network's RPC endpoint. The API key pair is
// attached as request headers for providers that require it.
func NewClient(ctx context.Context, net Network, privateKey *ecdsa.PrivateKey, apiKeyName, apiKeySecret string) (*Client, error) {
	opts := []rpc.ClientOption{}
	if apiKeyName != "" {
		opts = append(opts, rpc.WithHeader("X-Api-Key-Name", apiKeyName))
	}
	if apiKeySecret != "" {
		opts = append(opts, rpc.WithHeader("X-Api-Key", apiKeySecret))
	}

	rpcClient, err := rpc.DialOptions(ctx, net.RPCURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}

	return &Client{
		client:         ethclient.NewClient(rpcClient),
		chainID:        big.NewInt(net.ChainID),
		privateKey:     privateKey,
		address:        crypto.PubkeyToAddress(*publicKey),
		receiptTimeout: 5 * time.Minute,
	}, nil
}

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Address returns the wallet address used to sign submissions.
func (c *Client) Address() string {
	return c.address.Hex()
}

// Balance returns the native-token balance of the signing wallet in wei.
func (c *Client) Balance(ctx context.Context) (*big.Int, error) {
	balance, err := c.client.BalanceAt(ctx, c.address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check balance: %w", err)
	}
	return balance, nil
}

// SubmitCall packs the method call, signs and sends the transaction, then
// waits for the receipt.
func (c *Client) SubmitCall(ctx context.Context, contract string, method string, fns []Function, args map[string]string) (*Receipt, error) {
	fn, ok := FindFunction(fns, method)
	if !ok {
		return nil, fmt.Errorf("method %q not found in ABI", method)
	}

	contractABI, err := ParseABI(fns)
	if err != nil {
		return nil, err
	}

	ordered, err := OrderArgs(fn, args)
	if err != nil {
		return nil, err
	}

	data, err := contractABI.Pack(method, ordered...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	to := common.HexToAddress(contract)

	nonce, err := c.client.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	// Estimating also validates the call won't revert.
	estimatedGas, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From: c.address,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("%s would revert: %w", method, err)
	}
	gasLimit := estimatedGas * 120 / 100 // 20% safety margin

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)

	signer := types.NewEIP155Signer(c.chainID)
	signedTx, err := types.SignTx(tx, signer, c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	receiptCtx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()

	receipt, err := c.waitForReceipt(receiptCtx, signedTx.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction reverted")
	}

	return &Receipt{TxHash: receipt.TxHash.Hex()}, nil
}

// waitForReceipt polls for the transaction receipt until ctx expires.
func (c *Client) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			receipt, err := c.client.TransactionReceipt(ctx, txHash)
			if err == nil {
				return receipt, nil
			}
			// Keep polling until the receipt shows up.
		}
	}
}
