// Package streamsrc is a long-lived gRPC subscription driver that
// pushes finalized blocks as they are produced, rather than polling
// for them. It speaks a JSON-coded envelope over a generic
// grpc.ClientConn stream, since no generated protobuf client for the
// subscription service is available to build against.
package streamsrc

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/rangesecurity/sb-dl-go/internal/canon"
	"github.com/rangesecurity/sb-dl-go/internal/ingest"
)

// Update is a single message read off the subscription stream. Exactly
// one of Ping, Block is populated.
type Update struct {
	Ping  *PingUpdate
	Block *BlockUpdate
}

type PingUpdate struct {
	ID int32 `json:"id"`
}

type BlockUpdate struct {
	Slot    uint64          `json:"slot"`
	Payload json.RawMessage `json:"block"`
}

// UpdateStream is the minimal surface a Subscriber needs from the
// underlying gRPC stream: read the next update, and acknowledge a ping
// to keep the subscription alive.
type UpdateStream interface {
	Recv() (*Update, error)
	SendPing(id int32) error
	CloseSend() error
}

// Subscriber drives one long-lived subscription and forwards decoded
// blocks to sink. The caller owns reconnection: Run returns on the
// first transport error rather than retrying internally.
type Subscriber struct {
	stream         UpdateStream
	noMinimization bool
	table          ingest.Table
	alreadyIndexed map[uint64]struct{}
}

// NewSubscriber builds a Subscriber. alreadyIndexed is the resume set
// computed at startup: a block whose slot is already present is
// dropped rather than forwarded to sink, avoiding a redundant insert
// for data the live push stream re-delivers after a reconnect.
func NewSubscriber(stream UpdateStream, noMinimization bool, table ingest.Table, alreadyIndexed map[uint64]struct{}) *Subscriber {
	return &Subscriber{stream: stream, noMinimization: noMinimization, table: table, alreadyIndexed: alreadyIndexed}
}

// Run reads updates until the stream ends or errors, forwarding each
// finalized block onto sink. Pings are answered inline with a pong
// carrying id=1 regardless of the ping's own id.
func (s *Subscriber) Run(ctx context.Context, sink chan<- ingest.BlockRecord) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		update, err := s.stream.Recv()
		if err != nil {
			return fmt.Errorf("streamsrc: failed to receive next message: %w", err)
		}
		switch {
		case update.Ping != nil:
			log.Printf("[streamsrc] processing ping")
			if err := s.stream.SendPing(1); err != nil {
				log.Printf("[streamsrc] failed to send ping: %v", err)
			}
		case update.Block != nil:
			if err := s.handleBlock(ctx, sink, update.Block); err != nil {
				log.Printf("[streamsrc] failed to process block(slot=%d): %v", update.Block.Slot, err)
			}
		default:
			// Pong or an update kind this driver doesn't act on.
		}
	}
}

func (s *Subscriber) handleBlock(ctx context.Context, sink chan<- ingest.BlockRecord, block *BlockUpdate) error {
	if _, skip := s.alreadyIndexed[block.Slot]; skip {
		return nil
	}
	processed, err := canon.Process(block.Payload, s.noMinimization)
	if err != nil {
		return fmt.Errorf("canonicalize: %w", err)
	}

	var meta struct {
		BlockHeight *uint64 `json:"blockHeight"`
		BlockTime   *int64  `json:"blockTime"`
	}
	if err := json.Unmarshal(processed, &meta); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if meta.BlockHeight == nil {
		log.Printf("[streamsrc] missing block height, skipping slot=%d", block.Slot)
		return nil
	}

	slot := block.Slot
	rec := ingest.BlockRecord{
		Slot:        &slot,
		BlockHeight: *meta.BlockHeight,
		BlockTime:   meta.BlockTime,
		Payload:     processed,
		Table:       s.table,
	}
	log.Printf("[streamsrc] got_block(slot=%d, height=%d)", slot, *meta.BlockHeight)

	select {
	case sink <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DialOptions builds the dial options for the subscription endpoint: a
// keepalive-while-idle client, generous call size limits, and TLS (or
// plaintext with the insecure.NewCredentials() escape hatch used for
// local/test brokers).
func DialOptions(maxDecodingSize, maxEncodingSize int, plaintext bool) []grpc.DialOption {
	const minBytes = 4 * 1024 * 1024
	if maxDecodingSize < minBytes {
		maxDecodingSize = minBytes
	}
	if maxEncodingSize < minBytes {
		maxEncodingSize = minBytes
	}

	var transportCreds grpc.DialOption
	if plaintext {
		transportCreds = grpc.WithTransportCredentials(insecure.NewCredentials())
	} else {
		transportCreds = grpc.WithTransportCredentials(credentials.NewTLS(nil))
	}

	return []grpc.DialOption{
		transportCreds,
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxDecodingSize),
			grpc.MaxCallSendMsgSize(maxEncodingSize),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: true,
		}),
	}
}

// subscribeMethod is the block subscription RPC's full method path.
const subscribeMethod = "/geyser.Geyser/Subscribe"

// subscribeRequest is sent once at stream open and again on every ping
// reply.
type subscribeRequest struct {
	IncludeTransactions bool        `json:"include_transactions"`
	Commitment          string      `json:"commitment"`
	Ping                *PingUpdate `json:"ping,omitempty"`
}

type grpcUpdateStream struct {
	stream grpc.ClientStream
}

// Dial opens the subscription stream using a JSON-coded generic gRPC
// stream (jsonCodecName), since no generated protobuf client for this
// service is available to build against. token, when set, is carried
// as an x-token metadata header.
func Dial(ctx context.Context, endpoint, token string, opts []grpc.DialOption) (UpdateStream, error) {
	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("streamsrc: failed to dial %s: %w", endpoint, err)
	}
	if token != "" {
		ctx = metadataWithToken(ctx, token)
	}
	stream, err := conn.NewStream(ctx, &grpc.StreamDesc{StreamName: "Subscribe", ServerStreams: true, ClientStreams: true}, subscribeMethod, grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		return nil, fmt.Errorf("streamsrc: failed to open subscription stream: %w", err)
	}
	req := subscribeRequest{IncludeTransactions: true, Commitment: "finalized"}
	if err := stream.SendMsg(&req); err != nil {
		return nil, fmt.Errorf("streamsrc: failed to send initial subscribe request: %w", err)
	}
	return &grpcUpdateStream{stream: stream}, nil
}

func (g *grpcUpdateStream) Recv() (*Update, error) {
	var u Update
	if err := g.stream.RecvMsg(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (g *grpcUpdateStream) SendPing(id int32) error {
	return g.stream.SendMsg(&subscribeRequest{Ping: &PingUpdate{ID: id}})
}

func (g *grpcUpdateStream) CloseSend() error {
	return g.stream.CloseSend()
}
