package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"mvtfilter/internal/archive"
	"mvtfilter/internal/compressio"
	"mvtfilter/internal/tilefilter"
)

type fakeSource struct {
	tiles []archive.RawTile
}

func (f *fakeSource) Metadata(ctx context.Context) (*archive.TileJSON, error) {
	return &archive.TileJSON{}, nil
}

func (f *fakeSource) Tiles(ctx context.Context) (<-chan archive.RawTile, <-chan error) {
	out := make(chan archive.RawTile)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for _, t := range f.tiles {
			select {
			case out <- t:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, errc
}

func (f *fakeSource) Close() error { return nil }

type fakeSink struct {
	mu    sync.Mutex
	put   int
	dirty bool
}

func (f *fakeSink) Open(meta *archive.TileJSON) error { return nil }

func (f *fakeSink) Put(z, x, y int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put++
	return nil
}

func (f *fakeSink) Close() error { return nil }
func (f *fakeSink) Abort() error { f.dirty = true; return nil }

func TestRun_CountsProcessedAndDropped(t *testing.T) {
	src := &fakeSource{tiles: []archive.RawTile{
		{Z: 0, X: 0, Y: 0, Data: []byte("non-empty")},
		{Z: 0, X: 0, Y: 0, Data: nil}, // empty payload, should be dropped
	}}
	sink := &fakeSink{}
	tr := tilefilter.New(nil, compressio.None)

	stats, err := Run(context.Background(), src, sink, tr, Options{Concurrency: 2})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("expected 2 total tiles, got %d", stats.Total)
	}
	if stats.Processed != 1 {
		t.Errorf("expected 1 processed tile (no filter loaded, non-empty passthrough), got %d", stats.Processed)
	}
	if stats.Dropped != 1 {
		t.Errorf("expected 1 dropped tile (empty payload), got %d", stats.Dropped)
	}
	if sink.put != 1 {
		t.Errorf("expected exactly 1 Sink.Put call, got %d", sink.put)
	}
}

func TestRun_DryRunSkipsWrites(t *testing.T) {
	src := &fakeSource{tiles: []archive.RawTile{
		{Z: 0, X: 0, Y: 0, Data: []byte("non-empty")},
	}}
	sink := &fakeSink{}
	tr := tilefilter.New(nil, compressio.None)

	stats, err := Run(context.Background(), src, sink, tr, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if stats.Processed != 1 {
		t.Errorf("expected the tile to count as processed, got %d", stats.Processed)
	}
	if sink.put != 0 {
		t.Errorf("expected dry run to skip Sink.Put, got %d calls", sink.put)
	}
}

type erroringSource struct{}

func (erroringSource) Metadata(ctx context.Context) (*archive.TileJSON, error) { return nil, nil }
func (erroringSource) Tiles(ctx context.Context) (<-chan archive.RawTile, <-chan error) {
	out := make(chan archive.RawTile)
	errc := make(chan error, 1)
	errc <- fmt.Errorf("boom")
	close(out)
	close(errc)
	return out, errc
}
func (erroringSource) Close() error { return nil }

func TestRun_PropagatesSourceError(t *testing.T) {
	sink := &fakeSink{}
	tr := tilefilter.New(nil, compressio.None)
	_, err := Run(context.Background(), erroringSource{}, sink, tr, Options{})
	if err == nil {
		t.Fatal("expected an error from a failing source")
	}
}
