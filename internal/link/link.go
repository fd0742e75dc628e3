package link

import (
	"strings"
	"sync/atomic"

	"github.com/danmuck/sliplink/internal/observability"
	"github.com/danmuck/sliplink/internal/protocol/slip"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	limits slip.Limits
	logger *zerolog.Logger
}

type Option func(*options)

// WithLimits caps the size of a reassembled frame on every link.
func WithLimits(limits slip.Limits) Option {
	return func(o *options) {
		o.limits = limits
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

func buildOptions(opts []Option) options {
	o := options{limits: slip.DefaultLimits()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func (o options) baseLogger() zerolog.Logger {
	if o.logger != nil {
		return *o.logger
	}
	return log.Logger
}

// LinkStats is a point-in-time snapshot of one link's counters.
type LinkStats struct {
	Peer            string `json:"peer"`
	FramesSent      uint64 `json:"frames_sent"`
	BytesSent       uint64 `json:"bytes_sent"`
	SendErrors      uint64 `json:"send_errors"`
	FramesReceived  uint64 `json:"frames_received"`
	BytesReceived   uint64 `json:"bytes_received"`
	EmptyFrames     uint64 `json:"empty_frames"`
	MalformedFrames uint64 `json:"malformed_frames"`
	OversizeFrames  uint64 `json:"oversize_frames"`
	ReceiverErrors  uint64 `json:"receiver_errors"`
	Dropped         uint64 `json:"dropped"`
}

type counters struct {
	framesSent      atomic.Uint64
	bytesSent       atomic.Uint64
	sendErrors      atomic.Uint64
	framesReceived  atomic.Uint64
	bytesReceived   atomic.Uint64
	emptyFrames     atomic.Uint64
	malformedFrames atomic.Uint64
	oversizeFrames  atomic.Uint64
	receiverErrors  atomic.Uint64
	dropped         atomic.Uint64
}

// Link owns one transport to one peer.
type Link struct {
	peer      string
	transport Transport
	decoder   *slip.Decoder
	receiver  receiverSlot
	stats     counters
	logger    zerolog.Logger
}

// NewLink wraps t and registers the link's raw-byte handler with it.
func NewLink(peer string, t Transport, opts ...Option) (*Link, error) {
	peer = strings.TrimSpace(peer)
	if peer == "" {
		return nil, ErrInvalidPeer
	}
	if t == nil {
		return nil, ErrNilTransport
	}
	o := buildOptions(opts)
	l := &Link{
		peer:      peer,
		transport: t,
		decoder:   slip.NewDecoder(o.limits),
		logger:    o.baseLogger().With().Str("peer", peer).Logger(),
	}
	t.RegisterReceiver(l.onRawBytes)
	return l, nil
}

func (l *Link) Peer() string {
	return l.peer
}

// RegisterReceiver replaces the upward receiver. nil clears it.
func (l *Link) RegisterReceiver(r Receiver) {
	l.receiver.Store(r)
}

// Send frames datagram and hands it to the transport in one call. Transport
// errors are returned unchanged.
func (l *Link) Send(datagram []byte) error {
	frame := slip.Encode(datagram)
	if err := l.transport.Send(frame); err != nil {
		l.stats.sendErrors.Add(1)
		observability.RecordFrames(l.peer, observability.DirectionTX, observability.OutcomeSendFailed, 1)
		return err
	}
	l.stats.framesSent.Add(1)
	l.stats.bytesSent.Add(uint64(len(frame)))
	observability.RecordFrames(l.peer, observability.DirectionTX, observability.OutcomeOK, 1)
	observability.RecordBytes(l.peer, observability.DirectionTX, len(frame))
	return nil
}

func (l *Link) onRawBytes(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	l.stats.bytesReceived.Add(uint64(len(chunk)))
	observability.RecordBytes(l.peer, observability.DirectionRX, len(chunk))

	report := l.decoder.Feed(chunk, l.deliver)

	l.stats.emptyFrames.Add(uint64(report.Empty))
	l.stats.malformedFrames.Add(uint64(report.Malformed))
	l.stats.oversizeFrames.Add(uint64(report.Oversize))
	l.stats.receiverErrors.Add(uint64(report.Rejected))
	l.stats.framesReceived.Add(uint64(report.Frames - report.Rejected))

	observability.RecordFrames(l.peer, observability.DirectionRX, observability.OutcomeOK, report.Frames-report.Rejected)
	observability.RecordFrames(l.peer, observability.DirectionRX, observability.OutcomeEmpty, report.Empty)
	observability.RecordFrames(l.peer, observability.DirectionRX, observability.OutcomeMalformed, report.Malformed)
	observability.RecordFrames(l.peer, observability.DirectionRX, observability.OutcomeOversize, report.Oversize)
	observability.RecordFrames(l.peer, observability.DirectionRX, observability.OutcomeRejected, report.Rejected)

	if report.Malformed > 0 {
		l.logger.Debug().Err(slip.ErrMalformedEscape).Int("count", report.Malformed).Msg("discarded frame")
	}
	if report.Oversize > 0 {
		l.logger.Warn().Err(slip.ErrFrameTooLarge).Int("count", report.Oversize).Msg("discarded frame")
	}
	for _, err := range report.Errors {
		l.logger.Warn().Err(err).Msg("receiver rejected datagram")
	}
}

func (l *Link) deliver(datagram []byte) error {
	r := l.receiver.Load()
	if r == nil {
		l.drop()
		return nil
	}
	return r.ReceiveDatagram(datagram)
}

func (l *Link) drop() {
	l.stats.dropped.Add(1)
	observability.RecordFrames(l.peer, observability.DirectionRX, observability.OutcomeDropped, 1)
}

// Stats snapshots the link counters.
func (l *Link) Stats() LinkStats {
	return LinkStats{
		Peer:            l.peer,
		FramesSent:      l.stats.framesSent.Load(),
		BytesSent:       l.stats.bytesSent.Load(),
		SendErrors:      l.stats.sendErrors.Load(),
		FramesReceived:  l.stats.framesReceived.Load(),
		BytesReceived:   l.stats.bytesReceived.Load(),
		EmptyFrames:     l.stats.emptyFrames.Load(),
		MalformedFrames: l.stats.malformedFrames.Load(),
		OversizeFrames:  l.stats.oversizeFrames.Load(),
		ReceiverErrors:  l.stats.receiverErrors.Load(),
		Dropped:         l.stats.dropped.Load(),
	}
}
