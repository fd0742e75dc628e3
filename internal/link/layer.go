package link

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/sliplink/internal/observability"
	"github.com/rs/zerolog"
)

// Layer routes datagrams to a fixed set of peers, one Link per peer.
type Layer struct {
	// IgnoreChecksum is advisory for upper layers; this layer never
	// computes or checks a checksum.
	IgnoreChecksum bool

	links    map[string]*Link
	receiver receiverSlot
	logger   zerolog.Logger
}

// NewLayer builds one Link per entry of transports. The peer table is
// immutable afterwards. Every entry is validated before any transport has a
// handler registered, so a rejected table leaves all transports untouched.
func NewLayer(transports map[string]Transport, opts ...Option) (*Layer, error) {
	peers := sortedKeys(transports)
	for _, peer := range peers {
		if key := strings.TrimSpace(peer); key == "" || key != peer {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPeer, peer)
		}
		if transports[peer] == nil {
			return nil, fmt.Errorf("peer %s: %w", peer, ErrNilTransport)
		}
	}

	o := buildOptions(opts)
	layer := &Layer{
		links:  make(map[string]*Link, len(transports)),
		logger: o.baseLogger().With().Str("component", "link_layer").Logger(),
	}
	for _, peer := range peers {
		l, err := NewLink(peer, transports[peer], opts...)
		if err != nil {
			return nil, fmt.Errorf("peer %s: %w", peer, err)
		}
		l.RegisterReceiver(ReceiverFunc(func(datagram []byte) error {
			return layer.dispatch(l, datagram)
		}))
		layer.links[peer] = l
	}
	return layer, nil
}

// RegisterReceiver sets the single receiver shared by all links, replacing
// any previous one. nil clears it.
func (ly *Layer) RegisterReceiver(r Receiver) {
	ly.receiver.Store(r)
}

// Send frames datagram onto the link whose peer is nextHop.
func (ly *Layer) Send(datagram []byte, nextHop string) error {
	l, ok := ly.links[nextHop]
	if !ok {
		observability.RecordNoRoute()
		ly.logger.Debug().Str("next_hop", nextHop).Msg("no route")
		return fmt.Errorf("%w: %s", ErrNoRoute, nextHop)
	}
	return l.Send(datagram)
}

func (ly *Layer) dispatch(l *Link, datagram []byte) error {
	r := ly.receiver.Load()
	if r == nil {
		l.drop()
		return nil
	}
	return r.ReceiveDatagram(datagram)
}

// PeerLink is a Layer-owned link as seen by callers. Its receiver belongs
// to the Layer and cannot be replaced through this view.
type PeerLink interface {
	Peer() string
	Send(datagram []byte) error
	Stats() LinkStats
}

type peerLink struct {
	l *Link
}

func (p peerLink) Peer() string               { return p.l.Peer() }
func (p peerLink) Send(datagram []byte) error { return p.l.Send(datagram) }
func (p peerLink) Stats() LinkStats           { return p.l.Stats() }

// Link returns the link for peer.
func (ly *Layer) Link(peer string) (PeerLink, bool) {
	l, ok := ly.links[peer]
	if !ok {
		return nil, false
	}
	return peerLink{l: l}, true
}

// Peers lists configured peer addresses in sorted order.
func (ly *Layer) Peers() []string {
	return sortedKeys(ly.links)
}

func (ly *Layer) Stats() []LinkStats {
	out := make([]LinkStats, 0, len(ly.links))
	for _, peer := range ly.Peers() {
		out = append(out, ly.links[peer].Stats())
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
