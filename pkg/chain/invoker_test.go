package chain

import (
	"context"
	"errors"
	"strings"
	"testing"
)

var testABI = []Function{
	{
		Name: "createAd",
		Type: "function",
		Inputs: []Param{
			{Name: "to", Type: "address"},
			{Name: "title", Type: "string"},
			{Name: "text", Type: "string"},
			{Name: "imageURL", Type: "string"},
		},
		StateMutability: "nonpayable",
	},
}

// stubCaller records whether a submission was attempted and plays back a
// scripted outcome.
type stubCaller struct {
	receipt   *Receipt
	err       error
	submitted bool
	lastArgs  map[string]string
}

func (s *stubCaller) SubmitCall(ctx context.Context, contract, method string, fns []Function, args map[string]string) (*Receipt, error) {
	s.submitted = true
	s.lastArgs = args
	return s.receipt, s.err
}

func testNetwork() Network {
	return Network{
		ID:             "base-sepolia",
		ChainID:        84532,
		ExplorerTxURL:  "https://sepolia.basescan.org/tx/%s",
		MarketplaceURL: "https://testnets.opensea.io/%s",
	}
}

func TestInvoke_MethodNotFound(t *testing.T) {
	caller := &stubCaller{}

	result := Invoke(context.Background(), caller, testNetwork(), "0x1", "burnAd", testABI, nil)

	if !strings.Contains(result, "not found") {
		t.Errorf("expected 'not found' in result, got %q", result)
	}
	if caller.submitted {
		t.Error("no submission should be attempted for an unknown method")
	}
}

func TestInvoke_Success(t *testing.T) {
	caller := &stubCaller{receipt: &Receipt{TxHash: "0xdead"}}
	args := map[string]string{
		"to":       "0xabc123",
		"title":    "T",
		"text":     "X",
		"imageURL": "https://adforge-creatives.s3.us-east-1.amazonaws.com/ads/1.png",
	}

	result := Invoke(context.Background(), caller, testNetwork(), "0x1", "createAd", testABI, args)

	if !strings.Contains(result, "0xdead") {
		t.Errorf("expected tx hash in result, got %q", result)
	}
	if !strings.Contains(result, "sepolia.basescan.org/tx/") {
		t.Errorf("expected explorer link in result, got %q", result)
	}
	if !strings.Contains(result, "0xabc123") {
		t.Errorf("expected recipient address in result, got %q", result)
	}
}

func TestInvoke_SubmissionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "error with message",
			err:  errors.New("insufficient funds for gas"),
			want: "insufficient funds for gas",
		},
		{
			name: "error without message",
			err:  errors.New(""),
			want: "unknown error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &stubCaller{err: tt.err}
			result := Invoke(context.Background(), caller, testNetwork(), "0x1", "createAd", testABI, nil)
			if !strings.Contains(result, tt.want) {
				t.Errorf("expected %q in result, got %q", tt.want, result)
			}
			if strings.Contains(result, "published on-chain") {
				t.Errorf("failure result should not read as success: %q", result)
			}
		})
	}
}

func TestInvoke_MissingHashIsSoftSuccess(t *testing.T) {
	caller := &stubCaller{receipt: &Receipt{}}

	result := Invoke(context.Background(), caller, testNetwork(), "0x1", "createAd", testABI, nil)

	if !strings.Contains(result, "hash is unavailable") {
		t.Errorf("expected soft-success message, got %q", result)
	}
	if strings.Contains(result, "Failed") {
		t.Errorf("missing hash must not be reported as a failure: %q", result)
	}
}
