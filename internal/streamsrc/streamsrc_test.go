package streamsrc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rangesecurity/sb-dl-go/internal/ingest"
)

type fakeStream struct {
	updates  []*Update
	i        int
	pings    []int32
	sendErr  error
}

func (f *fakeStream) Recv() (*Update, error) {
	if f.i >= len(f.updates) {
		return nil, errors.New("stream closed")
	}
	u := f.updates[f.i]
	f.i++
	return u, nil
}

func (f *fakeStream) SendPing(id int32) error {
	f.pings = append(f.pings, id)
	return f.sendErr
}

func (f *fakeStream) CloseSend() error { return nil }

func TestRunAnswersPingAndForwardsBlock(t *testing.T) {
	stream := &fakeStream{
		updates: []*Update{
			{Ping: &PingUpdate{ID: 7}},
			{Block: &BlockUpdate{Slot: 42, Payload: []byte(`{"blockHeight": 30, "blockTime": 1700000000, "transactions": []}`)}},
		},
	}
	sub := NewSubscriber(stream, true, ingest.TablePrimary, nil)
	sink := make(chan ingest.BlockRecord, 1)

	done := make(chan error, 1)
	go func() { done <- sub.Run(context.Background(), sink) }()

	select {
	case rec := <-sink:
		if rec.Slot == nil || *rec.Slot != 42 {
			t.Fatalf("expected slot 42, got %+v", rec)
		}
		if rec.BlockHeight != 30 {
			t.Fatalf("expected block height 30, got %d", rec.BlockHeight)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for block record")
	}

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected Run to return an error once the fake stream closed")
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after the stream closed")
	}

	if len(stream.pings) != 1 || stream.pings[0] != 1 {
		t.Fatalf("expected a single pong with id=1, got %v", stream.pings)
	}
}

func TestRunSkipsBlockMissingHeight(t *testing.T) {
	stream := &fakeStream{
		updates: []*Update{
			{Block: &BlockUpdate{Slot: 9, Payload: []byte(`{"transactions": []}`)}},
		},
	}
	sub := NewSubscriber(stream, true, ingest.TablePrimary, nil)
	sink := make(chan ingest.BlockRecord, 1)

	err := sub.Run(context.Background(), sink)
	if err == nil {
		t.Fatalf("expected an error once the fake stream closed")
	}
	select {
	case <-sink:
		t.Fatalf("expected no record for a block missing blockHeight")
	default:
	}
}
