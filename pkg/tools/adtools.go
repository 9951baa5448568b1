package tools

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/params"

	"github.com/adforge-ai/adforge-agent/pkg/campaign"
	"github.com/adforge-ai/adforge-agent/pkg/chain"
)

// ImageStore persists a fetched image and returns its public URL.
type ImageStore interface {
	Upload(ctx context.Context, sourceURL string) (string, error)
}

// ImageGenerator renders an ad creative for a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// WalletReader exposes the read-only wallet surface the tools narrate.
type WalletReader interface {
	Address() string
	Balance(ctx context.Context) (*big.Int, error)
}

type publishAdRequest struct {
	To       string `json:"to" jsonschema:"required,description=Wallet address of the ad recipient,example=0x36Cd329b03e5bF847D4a47a04Ab47ca2dB8e01a4"`
	Title    string `json:"title" jsonschema:"required,description=Short advertisement title,example=Summer Sneaker Sale"`
	Text     string `json:"text" jsonschema:"required,description=Advertisement body text,example=20% off every pair this week only"`
	ImageURL string `json:"image_url" jsonschema:"required,description=Public URL of the stored ad creative,example=https://adforge-creatives.s3.us-east-1.amazonaws.com/ads/1712170022-42.png"`
}

type storeImageRequest struct {
	SourceURL string `json:"source_url" jsonschema:"required,description=URL of the generated image to persist,example=https://oaidalleapiprodscus.blob.core.windows.net/private/img.png"`
}

type generateImageRequest struct {
	Prompt string `json:"prompt" jsonschema:"required,description=Visual description of the advertisement image,example=A bold retro poster of red sneakers on a yellow background"`
}

type emptyRequest struct{}

// BuildRegistry assembles the capability list for one campaign, binding
// each tool to the current wallet, storage and image clients.
func BuildRegistry(c campaign.Campaign, net chain.Network, caller chain.ContractCaller, store ImageStore, gen ImageGenerator, w WalletReader) *Registry {
	reg := NewRegistry()

	reg.Register(New("publish_ad",
		"Publish a finished advertisement on-chain. Requires the recipient address, title, ad text, and the stored image URL. Returns a confirmation message with the transaction link.",
		func(ctx context.Context, req publishAdRequest) (string, error) {
			args := map[string]string{
				"to":       req.To,
				"title":    req.Title,
				"text":     req.Text,
				"imageURL": req.ImageURL,
			}
			// Invoke narrates failures itself; the agent relays the string either way.
			return chain.Invoke(ctx, caller, net, c.ContractAddress, c.Method, c.ABI, args), nil
		}))

	reg.Register(New("store_ad_image",
		"Download a generated image and store it permanently, returning the public URL to use when publishing. Generated image links expire, so always store the approved image first.",
		func(ctx context.Context, req storeImageRequest) (string, error) {
			url, err := store.Upload(ctx, req.SourceURL)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Image stored at %s", url), nil
		}))

	reg.Register(New("generate_ad_image",
		"Generate an advertisement image from a visual description. Returns a temporary URL of the rendered image.",
		func(ctx context.Context, req generateImageRequest) (string, error) {
			url, err := gen.Generate(ctx, req.Prompt)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Generated image available at %s", url), nil
		}))

	reg.Register(New("wallet_details",
		"Report the agent's own wallet address and the network it publishes on.",
		func(ctx context.Context, _ emptyRequest) (string, error) {
			return fmt.Sprintf("Agent wallet %s on network %s", w.Address(), net.ID), nil
		}))

	reg.Register(New("wallet_balance",
		"Report the agent wallet's native token balance.",
		func(ctx context.Context, _ emptyRequest) (string, error) {
			wei, err := w.Balance(ctx)
			if err != nil {
				return "", err
			}
			eth := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether))
			return fmt.Sprintf("Balance: %s native tokens (%s wei)", eth.Text('f', 6), wei.String()), nil
		}))

	return reg
}
