package chain

import "fmt"

// Network describes a supported chain: RPC endpoint, chain ID and the link
// templates used when narrating a confirmed transaction.
type Network struct {
	ID             string
	ChainID        int64
	RPCURL         string
	ExplorerTxURL  string // fmt template, takes the tx hash
	MarketplaceURL string // fmt template, takes the recipient address
}

// DefaultNetworkID is used when no network identifier is configured.
const DefaultNetworkID = "base-sepolia"

var networks = map[string]Network{
	"base-sepolia": {
		ID:             "base-sepolia",
		ChainID:        84532,
		RPCURL:         "https://sepolia.base.org",
		ExplorerTxURL:  "https://sepolia.basescan.org/tx/%s",
		MarketplaceURL: "https://testnets.opensea.io/%s",
	},
	"base-mainnet": {
		ID:             "base-mainnet",
		ChainID:        8453,
		RPCURL:         "https://mainnet.base.org",
		ExplorerTxURL:  "https://basescan.org/tx/%s",
		MarketplaceURL: "https://opensea.io/%s",
	},
	"sepolia": {
		ID:             "sepolia",
		ChainID:        11155111,
		RPCURL:         "https://rpc.sepolia.org",
		ExplorerTxURL:  "https://sepolia.etherscan.io/tx/%s",
		MarketplaceURL: "https://testnets.opensea.io/%s",
	},
}

// LookupNetwork resolves a network identifier, falling back to the public
// test network when the identifier is empty.
func LookupNetwork(id string) (Network, error) {
	if id == "" {
		id = DefaultNetworkID
	}
	net, ok := networks[id]
	if !ok {
		return Network{}, fmt.Errorf("unknown network %q", id)
	}
	return net, nil
}
