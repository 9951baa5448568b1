package tools

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/adforge-ai/adforge-agent/pkg/campaign"
	"github.com/adforge-ai/adforge-agent/pkg/chain"
	"github.com/adforge-ai/adforge-agent/pkg/types"
)

type echoRequest struct {
	Message string `json:"message" jsonschema:"required,description=text to echo"`
}

func TestTypedToolCall(t *testing.T) {
	echo := New("echo", "echoes the message", func(ctx context.Context, req echoRequest) (string, error) {
		return "echo: " + req.Message, nil
	})

	out, err := echo.Call(context.Background(), json.RawMessage(`{"message":"hi"}`))
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if out != "echo: hi" {
		t.Errorf("unexpected output %q", out)
	}

	if _, err := echo.Call(context.Background(), json.RawMessage(`{"message":`)); err == nil {
		t.Error("expected an error for malformed arguments")
	}
}

func TestToolSchema(t *testing.T) {
	echo := New("echo", "echoes the message", func(ctx context.Context, req echoRequest) (string, error) {
		return req.Message, nil
	})

	schema := echo.Schema()
	if schema == nil {
		t.Fatal("expected a schema")
	}
	if _, ok := schema.Properties.Get("message"); !ok {
		t.Error("schema should describe the message field")
	}
	found := false
	for _, name := range schema.Required {
		if name == "message" {
			found = true
		}
	}
	if !found {
		t.Error("message should be marked required")
	}
}

func TestRegistry_Invoke(t *testing.T) {
	reg := NewRegistry()
	reg.Register(New("greet", "greets", func(ctx context.Context, _ struct{}) (string, error) {
		return "hello", nil
	}))

	out, err := reg.Invoke(context.Background(), "greet", nil)
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if out != "hello" {
		t.Errorf("unexpected output %q", out)
	}

	_, err = reg.Invoke(context.Background(), "missing", nil)
	if !errors.Is(err, types.ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

type fakeStore struct {
	url string
	err error
}

func (f *fakeStore) Upload(ctx context.Context, sourceURL string) (string, error) {
	return f.url, f.err
}

type fakeGen struct{ url string }

func (f *fakeGen) Generate(ctx context.Context, prompt string) (string, error) {
	return f.url, nil
}

type fakeWallet struct{}

func (fakeWallet) Address() string { return "0x742d35Cc6634C0532925a3b844Bc9e7595f2b21D" }
func (fakeWallet) Balance(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1500000000000000000), nil
}

type recordingCaller struct {
	lastMethod string
	lastArgs   map[string]string
}

func (r *recordingCaller) SubmitCall(ctx context.Context, contract, method string, fns []chain.Function, args map[string]string) (*chain.Receipt, error) {
	r.lastMethod = method
	r.lastArgs = args
	return &chain.Receipt{TxHash: "0xfeed"}, nil
}

func buildTestRegistry(caller chain.ContractCaller, store ImageStore) *Registry {
	net, _ := chain.LookupNetwork("")
	return BuildRegistry(campaign.Default(), net, caller, store, &fakeGen{url: "https://img.example/1.png"}, fakeWallet{})
}

func TestBuildRegistry_ExpectedTools(t *testing.T) {
	reg := buildTestRegistry(&recordingCaller{}, &fakeStore{url: "https://bucket/ads/1.png"})

	want := []string{"publish_ad", "store_ad_image", "generate_ad_image", "wallet_details", "wallet_balance"}
	seen := map[string]bool{}
	for _, tool := range reg.List() {
		if seen[tool.Name()] {
			t.Errorf("duplicate tool name %q", tool.Name())
		}
		seen[tool.Name()] = true
		if tool.Description() == "" {
			t.Errorf("tool %q has no description", tool.Name())
		}
	}
	for _, name := range want {
		if !seen[name] {
			t.Errorf("registry is missing tool %q", name)
		}
	}
}

func TestPublishAdTool_MapsArguments(t *testing.T) {
	caller := &recordingCaller{}
	reg := buildTestRegistry(caller, &fakeStore{})

	out, err := reg.Invoke(context.Background(), "publish_ad", json.RawMessage(`{
		"to": "0xabc",
		"title": "T",
		"text": "X",
		"image_url": "https://bucket/ads/1.png"
	}`))
	if err != nil {
		t.Fatalf("publish_ad failed: %v", err)
	}

	if caller.lastMethod != "createAd" {
		t.Errorf("expected createAd submission, got %q", caller.lastMethod)
	}
	if caller.lastArgs["imageURL"] != "https://bucket/ads/1.png" {
		t.Errorf("image_url was not mapped onto the ABI input name: %v", caller.lastArgs)
	}
	if !strings.Contains(out, "0xfeed") {
		t.Errorf("expected tx hash in result, got %q", out)
	}
}

func TestStoreImageTool_PropagatesUploadError(t *testing.T) {
	reg := buildTestRegistry(&recordingCaller{}, &fakeStore{err: errors.New("fetch returned status 500")})

	_, err := reg.Invoke(context.Background(), "store_ad_image", json.RawMessage(`{"source_url":"https://img.example/1.png"}`))
	if err == nil {
		t.Fatal("upload failures must surface as tool errors")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("expected underlying error text, got %v", err)
	}
}
