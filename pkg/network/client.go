package network

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/adforge-ai/adforge-agent/pkg/types"
)

// Message is the wire envelope exchanged with a hosted runtime.
type Message struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Final     bool   `json:"final,omitempty"`
	Token     string `json:"token,omitempty"`
	Address   string `json:"address,omitempty"`
	Signature string `json:"signature,omitempty"`
	Challenge string `json:"challenge,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Message type constants.
const (
	MessageTypeRequestChallenge = "request_challenge"
	MessageTypeChallenge        = "challenge"
	MessageTypeAuth             = "auth"
	MessageTypeAuthSuccess      = "auth_success"
	MessageTypeAuthError        = "auth_error"
	MessageTypeUserInput        = "user_input"
	MessageTypeFragment         = "fragment"
	MessageTypeError            = "error"
)

// Fragment kinds carried on fragment messages.
const (
	KindSpeech     = "speech"
	KindToolResult = "tool_result"
)

// Signer produces challenge signatures for the agent wallet.
type Signer interface {
	Address() string
	SignChallenge(challenge string) (string, error)
}

const (
	handshakeTimeout = 10 * time.Second
	authReadTimeout  = 15 * time.Second

	// Session tokens are refreshed this long before they expire.
	tokenRefreshMargin = 30 * time.Second
)

// Client talks to a hosted runtime over a websocket. It authenticates with
// a wallet-signed challenge and renews the session token before it expires.
// One Send runs at a time; the hosted protocol has no turn multiplexing.
type Client struct {
	url    string
	signer Signer

	mu       sync.Mutex
	conn     *websocket.Conn
	token    string
	tokenExp time.Time
}

// NewClient prepares a hosted runtime client. The connection is established
// lazily on the first Send.
func NewClient(url string, signer Signer) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: runtime URL is required", types.ErrInvalidConfig)
	}
	if signer == nil {
		return nil, fmt.Errorf("%w: wallet signer is required", types.ErrInvalidConfig)
	}
	return &Client{url: url, signer: signer}, nil
}

// Send forwards one user turn to the hosted runtime and streams back the
// response fragments. The channel closes when the runtime marks the turn
// final.
func (c *Client) Send(ctx context.Context, text string) (<-chan types.Fragment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	msg := Message{
		ID:        uuid.NewString(),
		Type:      MessageTypeUserInput,
		Content:   text,
		Token:     c.token,
		Timestamp: time.Now().Unix(),
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.drop()
		return nil, fmt.Errorf("failed to send input to the runtime: %w", err)
	}

	out := make(chan types.Fragment)
	go c.readTurn(ctx, out)
	return out, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) readTurn(ctx context.Context, out chan<- types.Fragment) {
	defer close(out)

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			c.drop()
			c.mu.Unlock()
			c.emit(ctx, out, types.Fragment{Err: fmt.Errorf("runtime connection lost: %w", err)})
			return
		}

		switch msg.Type {
		case MessageTypeFragment:
			kind := types.FragmentSpeech
			if msg.Kind == KindToolResult {
				kind = types.FragmentToolResult
			}
			if msg.Content != "" {
				if !c.emit(ctx, out, types.Fragment{Kind: kind, Text: msg.Content}) {
					return
				}
			}
			if msg.Final {
				return
			}
		case MessageTypeError:
			c.emit(ctx, out, types.Fragment{Err: fmt.Errorf("runtime error: %s", msg.Content)})
			return
		default:
			log.Printf("⚠️ Ignoring unexpected runtime message type %q", msg.Type)
		}
	}
}

func (c *Client) emit(ctx context.Context, out chan<- types.Fragment, f types.Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

// ensureSession connects and authenticates if needed. Callers hold c.mu.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.conn != nil && !c.tokenNeedsRefresh() {
		return nil
	}
	if c.conn == nil {
		dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
		conn, _, err := dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			return fmt.Errorf("failed to connect to runtime %s: %w", c.url, err)
		}
		c.conn = conn
	}
	if err := c.authenticate(); err != nil {
		c.drop()
		return err
	}
	return nil
}

// authenticate runs the challenge-response flow and stores the session token.
func (c *Client) authenticate() error {
	deadline := time.Now().Add(authReadTimeout)
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set auth deadline: %w", err)
	}
	defer c.conn.SetReadDeadline(time.Time{})

	req := Message{
		ID:        uuid.NewString(),
		Type:      MessageTypeRequestChallenge,
		Address:   c.signer.Address(),
		Timestamp: time.Now().Unix(),
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("failed to request auth challenge: %w", err)
	}

	var challenge Message
	if err := c.conn.ReadJSON(&challenge); err != nil {
		return fmt.Errorf("failed to read auth challenge: %w", err)
	}
	if challenge.Type != MessageTypeChallenge || challenge.Challenge == "" {
		return fmt.Errorf("%w: expected a challenge, got %q", types.ErrAuthenticationFailed, challenge.Type)
	}

	signature, err := c.signer.SignChallenge(challenge.Challenge)
	if err != nil {
		return fmt.Errorf("failed to sign challenge: %w", err)
	}

	auth := Message{
		ID:        uuid.NewString(),
		Type:      MessageTypeAuth,
		Address:   c.signer.Address(),
		Challenge: challenge.Challenge,
		Signature: signature,
		Timestamp: time.Now().Unix(),
	}
	if err := c.conn.WriteJSON(auth); err != nil {
		return fmt.Errorf("failed to send auth response: %w", err)
	}

	var result Message
	if err := c.conn.ReadJSON(&result); err != nil {
		return fmt.Errorf("failed to read auth result: %w", err)
	}
	switch result.Type {
	case MessageTypeAuthSuccess:
		if result.Token == "" {
			return fmt.Errorf("%w: auth succeeded but no session token was issued", types.ErrAuthenticationFailed)
		}
		c.token = result.Token
		c.tokenExp = tokenExpiry(result.Token)
		log.Printf("🔑 Authenticated with runtime as %s", c.signer.Address())
		return nil
	case MessageTypeAuthError:
		return fmt.Errorf("%w: %s", types.ErrAuthenticationFailed, result.Content)
	default:
		return fmt.Errorf("%w: unexpected auth reply %q", types.ErrAuthenticationFailed, result.Type)
	}
}

func (c *Client) tokenNeedsRefresh() bool {
	if c.token == "" {
		return true
	}
	if c.tokenExp.IsZero() {
		return false
	}
	return time.Now().After(c.tokenExp.Add(-tokenRefreshMargin))
}

// drop discards the connection so the next Send reconnects. Callers hold c.mu
// or run exclusively on the read path after a failure.
func (c *Client) drop() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.token = ""
	c.tokenExp = time.Time{}
}

// tokenExpiry extracts the exp claim without verifying the signature; the
// server verifies, the client only schedules renewal. Tokens without an exp
// claim never trigger a refresh.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
