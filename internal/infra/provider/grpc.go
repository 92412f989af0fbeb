package provider

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vietddude/forecaster/internal/core/domain"
)

const (
	grpcForecastMethod = "/forecast.v1.ForecastService/GetForecast"
	grpcProbeMethod    = "/forecast.v1.ForecastService/Check"
)

// GRPCProvider is a paid forecast backend exposed over gRPC. Payloads are
// exchanged as structpb.Struct so no generated stubs are required; the
// vendor's service contract is a dynamic JSON-shaped message.
type GRPCProvider struct {
	name     string
	endpoint string
	cost     float64
	conn     *grpc.ClientConn
}

// NewGRPCProvider dials the endpoint and returns a connected provider.
func NewGRPCProvider(ctx context.Context, name, endpoint string, cost float64) (*GRPCProvider, error) {
	target := endpoint
	var opts []grpc.DialOption

	// Check scheme
	if strings.HasPrefix(endpoint, "https://") || strings.HasSuffix(endpoint, ":443") {
		creds := credentials.NewTLS(&tls.Config{})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}

	opts = append(opts, grpc.WithBlock()) // Wait for connection

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial grpc endpoint %s: %w", target, err)
	}

	return &GRPCProvider{
		name:     name,
		endpoint: endpoint,
		cost:     cost,
		conn:     conn,
	}, nil
}

func (p *GRPCProvider) Name() string { return p.name }

func (p *GRPCProvider) CostPerCall() float64 { return p.cost }

// Fetch invokes the forecast method with the request encoded as a Struct
// and decodes the Struct reply into the domain response.
func (p *GRPCProvider) Fetch(
	ctx context.Context,
	req *domain.ForecastRequest,
) (*domain.ForecastResponse, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, &CallError{Provider: p.name, Err: fmt.Errorf("encode request: %w", err)}
	}

	reply := &structpb.Struct{}
	if err := p.conn.Invoke(ctx, grpcForecastMethod, in, reply); err != nil {
		return nil, &CallError{Provider: p.name, Err: fmt.Errorf("grpc call: %w", err)}
	}

	var resp domain.ForecastResponse
	if err := fromStruct(reply, &resp); err != nil {
		return nil, &CallError{Provider: p.name, Err: fmt.Errorf("decode response: %w", err)}
	}

	resp.Source = p.name
	if resp.RetrievedAt.IsZero() {
		resp.RetrievedAt = time.Now()
	}
	return &resp, nil
}

// Probe invokes the vendor's check method. Any error counts as unhealthy.
func (p *GRPCProvider) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	in, err := structpb.NewStruct(map[string]any{})
	if err != nil {
		return false
	}
	reply := &structpb.Struct{}
	return p.conn.Invoke(probeCtx, grpcProbeMethod, in, reply) == nil
}

// Close tears down the connection.
func (p *GRPCProvider) Close() error {
	return p.conn.Close()
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func fromStruct(s *structpb.Struct, out any) error {
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
