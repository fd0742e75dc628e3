package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/danmuck/sliplink/internal/config"
	"github.com/danmuck/sliplink/internal/link"
	"github.com/danmuck/sliplink/internal/protocol/slip"
	"github.com/danmuck/sliplink/internal/server"
	"github.com/danmuck/sliplink/internal/transport"
	"github.com/rs/zerolog/log"
)

const previewBytes = 32

type app struct {
	cfg     config.Config
	streams map[string]*transport.Stream
	layer   *link.Layer
	status  *server.Status
}

// openStreams opens every configured link; on failure already-open streams
// are closed.
func openStreams(ctx context.Context, cfg config.Config) (map[string]*transport.Stream, error) {
	streams := make(map[string]*transport.Stream, len(cfg.Links))
	for _, lc := range cfg.Links {
		var (
			s   *transport.Stream
			err error
		)
		switch {
		case lc.Device != "":
			s, err = transport.OpenSerial(lc.Device, lc.Baud)
		default:
			s, err = transport.Dial(ctx, lc.Dial, cfg.Backoff.Transport())
		}
		if err != nil {
			closeStreams(streams)
			return nil, fmt.Errorf("link %s: %w", lc.Peer, err)
		}
		log.Info().Str("peer", lc.Peer).Str("transport", s.Name()).Msg("link opened")
		streams[lc.Peer] = s
	}
	return streams, nil
}

func closeStreams(streams map[string]*transport.Stream) {
	for _, s := range streams {
		_ = s.Close()
	}
}

func newApp(cfg config.Config, streams map[string]*transport.Stream) (*app, error) {
	transports := make(map[string]link.Transport, len(streams))
	for peer, s := range streams {
		transports[peer] = s
	}
	layer, err := link.NewLayer(transports, link.WithLimits(slip.Limits{MaxFrameBytes: cfg.MaxFrameBytes}))
	if err != nil {
		return nil, err
	}
	layer.IgnoreChecksum = cfg.IgnoreChecksum
	layer.RegisterReceiver(link.ReceiverFunc(logDatagram))

	return &app{
		cfg:     cfg,
		streams: streams,
		layer:   layer,
		status:  server.New(cfg.Name, layer, cfg.CorsOrigins),
	}, nil
}

func logDatagram(datagram []byte) error {
	preview := datagram
	if len(preview) > previewBytes {
		preview = preview[:previewBytes]
	}
	log.Info().Int("len", len(datagram)).Str("hex", hex.EncodeToString(preview)).Msg("datagram")
	return nil
}

// serve runs one reader per stream plus the status server until ctx is done
// or any of them fails.
func (a *app) serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for peer, s := range a.streams {
		wg.Add(1)
		go func(peer string, s *transport.Stream) {
			defer wg.Done()
			err := s.Run(ctx)
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				err = errors.New("peer closed the line")
			}
			log.Error().Err(err).Str("peer", peer).Msg("link reader stopped")
			fail(fmt.Errorf("link %s: %w", peer, err))
		}(peer, s)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.status.Serve(ctx, a.cfg.StatusAddr); err != nil {
			fail(fmt.Errorf("status server: %w", err))
		}
	}()

	<-ctx.Done()
	closeStreams(a.streams)
	wg.Wait()
	return firstErr
}

func run(ctx context.Context, cfg config.Config) error {
	streams, err := openStreams(ctx, cfg)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, streams)
	if err != nil {
		closeStreams(streams)
		return err
	}
	return a.serve(ctx)
}
