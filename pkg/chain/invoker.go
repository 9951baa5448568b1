package chain

import (
	"context"
	"fmt"
)

// Invoke looks up the method in the ABI, submits the call through the
// caller and formats a human-readable outcome. Every failure path is
// reduced to a descriptive string so the conversational layer always has
// something to relay; Invoke never returns an error.
func Invoke(ctx context.Context, caller ContractCaller, net Network, contract string, method string, fns []Function, args map[string]string) string {
	if _, ok := FindFunction(fns, method); !ok {
		return fmt.Sprintf("Contract call failed: method %q not found in the contract ABI.", method)
	}

	receipt, err := caller.SubmitCall(ctx, contract, method, fns, args)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "unknown error"
		}
		return fmt.Sprintf("Failed to publish the ad on-chain: %s", msg)
	}

	if receipt == nil || receipt.TxHash == "" {
		return "The transaction completed, but its hash is unavailable. The ad may still have been published."
	}

	result := fmt.Sprintf("The ad was published on-chain. Transaction: %s", fmt.Sprintf(net.ExplorerTxURL, receipt.TxHash))
	if to, ok := args["to"]; ok && to != "" {
		result += fmt.Sprintf("\nView the recipient's collection: %s", fmt.Sprintf(net.MarketplaceURL, to))
	}
	return result
}
