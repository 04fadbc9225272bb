package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/ruleset-engine/internal/pipeline"
	"github.com/danielpatrickdp/ruleset-engine/internal/profile"
)

// #region client-struct
// Client wraps a gRPC connection to a ruleset service.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewClient connects to the ruleset gRPC server at addr.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn creates a Client over an existing connection.
// The caller keeps ownership of cc; Close is a no-op.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection if the client owns it.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region calls
func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	in, err := toStruct(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return fmt.Errorf("%s rpc: %w", method, err)
	}
	if err := fromStruct(out, resp); err != nil {
		return fmt.Errorf("%s response: %w", method, err)
	}
	return nil
}

// DefaultProfile fetches the baseline profile for lane.
func (c *Client) DefaultProfile(ctx context.Context, lane string) (profile.EngineProfile, error) {
	var p profile.EngineProfile
	err := c.invoke(ctx, "DefaultProfile", ProfileRequest{Lane: lane}, &p)
	return p, err
}

// DeriveProfile fetches a profile nudged by influencers.
func (c *Client) DeriveProfile(ctx context.Context, lane string, influencers []profile.CompsInfluencer) (profile.EngineProfile, error) {
	var p profile.EngineProfile
	err := c.invoke(ctx, "DeriveProfile", ProfileRequest{Lane: lane, Influencers: influencers}, &p)
	return p, err
}

// DetectConflicts checks req's profile against its lane defaults.
func (c *Client) DetectConflicts(ctx context.Context, req ProfileRequest) (ConflictsResponse, error) {
	var resp ConflictsResponse
	err := c.invoke(ctx, "DetectConflicts", req, &resp)
	return resp, err
}

// ScoreText computes metrics and scores for text.
func (c *Client) ScoreText(ctx context.Context, req ScoreRequest) (ScoreResponse, error) {
	var resp ScoreResponse
	err := c.invoke(ctx, "ScoreText", req, &resp)
	return resp, err
}

// Evaluate runs the full pipeline remotely.
func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) (pipeline.Result, error) {
	var res pipeline.Result
	err := c.invoke(ctx, "Evaluate", req, &res)
	return res, err
}

// Summary renders the resolved profile as text.
func (c *Client) Summary(ctx context.Context, req ProfileRequest) (string, error) {
	var resp SummaryResponse
	err := c.invoke(ctx, "Summary", req, &resp)
	return resp.Summary, err
}

// #endregion calls

