// Package transport implements the RPC surface shared by evaluator and
// load-balancer nodes (spec.md §6): a typed, bidirectional request/response
// framing over HTTP(S). The wire transport and TLS termination are
// explicitly out of scope per spec.md §1 ("assumed to be a bidirectional
// request/response framing with typed messages"); this package supplies one
// concrete, faithful implementation of that assumption, grounded in the
// teacher's own github.com/jihwankim/chaos-utils/pkg/monitoring/detector
// JSON-RPC client: marshal a typed request, POST it, unmarshal a typed
// response.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jihwankim/sentimentd/pkg/rpcpb"
)

const (
	heartbeatPath = "/rpc/Heartbeat"
	getScoresPath = "/rpc/GetScores"

	defaultTimeout = 15 * time.Second
)

// Servicer is implemented by both the evaluator node and the load balancer:
// the RPC surface is identical for both (spec.md §6).
type Servicer interface {
	Heartbeat(ctx context.Context) (*rpcpb.HeartbeatResponse, error)
	GetScores(ctx context.Context, req *rpcpb.GetScoresRequest) (*rpcpb.GetScoresResponse, error)
}

// LoadServerTLS builds a server-side tls.Config from a PEM certificate/key
// pair, or returns (nil, nil) if both paths are empty.
func LoadServerTLS(certificateChainPath, privateKeyPath string) (*tls.Config, error) {
	if certificateChainPath == "" && privateKeyPath == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(certificateChainPath, privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("transport: load server TLS pair: %w", err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}

// Server exposes a Servicer over HTTP(S).
type Server struct {
	mux  *http.ServeMux
	http *http.Server
}

// NewServer builds a Server bound to address, serving svc. If tlsConfig is
// non-nil, the server terminates TLS itself.
func NewServer(address string, tlsConfig *tls.Config, svc Servicer) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc(heartbeatPath, func(w http.ResponseWriter, r *http.Request) {
		resp, err := svc.Heartbeat(r.Context())
		writeJSON(w, resp, err)
	})
	mux.HandleFunc(getScoresPath, func(w http.ResponseWriter, r *http.Request) {
		var req rpcpb.GetScoresRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
			return
		}
		resp, err := svc.GetScores(r.Context(), &req)
		writeJSON(w, resp, err)
	})

	return &Server{
		mux: mux,
		http: &http.Server{
			Addr:      address,
			Handler:   mux,
			TLSConfig: tlsConfig,
		},
	}
}

// Handle mounts an additional handler (e.g. a metrics exposition endpoint)
// on this server's mux, alongside the RPC surface.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

func writeJSON(w http.ResponseWriter, v interface{}, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Handler returns the underlying HTTP handler, for tests that want to wire a
// Server into an httptest.Server rather than bind a real listener.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Serve blocks, accepting connections until the listener is closed.
func (s *Server) Serve() error {
	if s.http.TLSConfig != nil {
		err := s.http.ListenAndServeTLS("", "")
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully drains the server, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Client is a long-lived RPC channel to a single worker. It is safe for
// concurrent use: the underlying http.Client multiplexes connections across
// concurrent dispatches the same way a shared gRPC channel would (spec.md
// §5, "Shared-resource policy").
type Client struct {
	address string
	base    string
	http    *http.Client
}

// NewClient opens a channel to address. If tlsConfig is non-nil, requests
// use HTTPS with that configuration (e.g. to mirror --secure-subnodes).
func NewClient(address string, tlsConfig *tls.Config) *Client {
	scheme := "http"
	transport := &http.Transport{}
	if tlsConfig != nil {
		scheme = "https"
		transport.TLSClientConfig = tlsConfig
	}
	return &Client{
		address: address,
		base:    scheme + "://" + address,
		http:    &http.Client{Transport: transport, Timeout: defaultTimeout},
	}
}

// Address returns the worker address this channel targets.
func (c *Client) Address() string { return c.address }

// Close releases any idle connections held by this channel.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// Heartbeat calls the remote Heartbeat RPC.
func (c *Client) Heartbeat(ctx context.Context) (*rpcpb.HeartbeatResponse, error) {
	var resp rpcpb.HeartbeatResponse
	if err := c.call(ctx, heartbeatPath, rpcpb.Empty{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetScores calls the remote GetScores RPC.
func (c *Client) GetScores(ctx context.Context, req *rpcpb.GetScoresRequest) (*rpcpb.GetScoresResponse, error) {
	var resp rpcpb.GetScoresResponse
	if err := c.call(ctx, getScoresPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) call(ctx context.Context, path string, reqBody, respBody interface{}) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("transport: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("transport: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", c.address, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("transport: read response from %s: %w", c.address, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("transport: %s responded %d: %s", c.address, resp.StatusCode, bytes.TrimSpace(payload))
	}

	if err := json.Unmarshal(payload, respBody); err != nil {
		return fmt.Errorf("transport: unmarshal response from %s: %w", c.address, err)
	}
	return nil
}
