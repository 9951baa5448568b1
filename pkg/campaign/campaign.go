package campaign

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/adforge-ai/adforge-agent/pkg/chain"
)

// Campaign parameterizes one agent build: persona script, target contract
// and the instruction driven in autonomous mode. The original program
// variants differed only in these fields.
type Campaign struct {
	Name            string           `json:"name"`
	SystemPrompt    string           `json:"system_prompt"`
	ContractAddress string           `json:"contract_address"`
	Method          string           `json:"method"`
	ABI             []chain.Function `json:"abi"`
	SessionID       string           `json:"session_id"`
	AutoInstruction string           `json:"auto_instruction"`
}

const defaultSystemPrompt = `You are AdForge, a friendly advertising assistant that helps users design and publish an on-chain advertisement.

Walk the user through these steps, one at a time:
1. Ask what product or service they want to advertise.
2. Ask for the wallet address that should receive the ad. Use the wallet_details tool if they want to know your own address.
3. Propose a short, punchy title and ad text for their product. Iterate until they are happy.
4. Generate an advertisement image with the generate_ad_image tool, describe it, and confirm they like it.
5. Store the approved image with the store_ad_image tool so it has a permanent URL.
6. Publish the ad on-chain with the publish_ad tool using the recipient address, title, text, and the stored image URL.
7. Share the transaction link with the user.

Keep responses short and conversational. If a tool reports a failure, explain it plainly and offer to try again. Never invent transaction links.`

const defaultAutoInstruction = "Design a creative demo advertisement for a fictional product, generate and store its image, publish it on-chain to your own wallet address, and summarize what you did with the transaction link."

// Default returns the built-in ad publishing campaign targeting the ad
// registry contract on the configured test network.
func Default() Campaign {
	return Campaign{
		Name:            "AdForge",
		SystemPrompt:    defaultSystemPrompt,
		ContractAddress: "0x9AdF6e1F4a4a6aA6bD8C45F5454CeA7dD8A9f1cE",
		Method:          "createAd",
		ABI: []chain.Function{
			{
				Name: "createAd",
				Type: "function",
				Inputs: []chain.Param{
					{Name: "to", Type: "address"},
					{Name: "title", Type: "string"},
					{Name: "text", Type: "string"},
					{Name: "imageURL", Type: "string"},
				},
				Outputs:         []chain.Param{{Name: "adId", Type: "uint256"}},
				StateMutability: "nonpayable",
			},
		},
		SessionID:       "adforge-session",
		AutoInstruction: defaultAutoInstruction,
	}
}

// Load reads a campaign override from a JSON file, filling gaps from the
// default campaign.
func Load(path string) (Campaign, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Campaign{}, fmt.Errorf("failed to read campaign file: %w", err)
	}

	c := Default()
	if err := json.Unmarshal(data, &c); err != nil {
		return Campaign{}, fmt.Errorf("failed to parse campaign file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Campaign{}, err
	}
	return c, nil
}

// Validate checks the fields the agent cannot run without.
func (c Campaign) Validate() error {
	switch {
	case c.SystemPrompt == "":
		return fmt.Errorf("campaign is missing a system prompt")
	case c.ContractAddress == "":
		return fmt.Errorf("campaign is missing a contract address")
	case c.Method == "":
		return fmt.Errorf("campaign is missing a contract method")
	case len(c.ABI) == 0:
		return fmt.Errorf("campaign is missing an ABI")
	case c.SessionID == "":
		return fmt.Errorf("campaign is missing a session identifier")
	}
	if _, ok := chain.FindFunction(c.ABI, c.Method); !ok {
		return fmt.Errorf("campaign method %q not present in its ABI", c.Method)
	}
	return nil
}
