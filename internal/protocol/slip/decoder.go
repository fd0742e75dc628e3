package slip

import "bytes"

// Result is the outcome of consuming one byte.
type Result uint8

const (
	Pending Result = iota
	Frame
	Empty
	Malformed
	Oversize
)

func (r Result) String() string {
	switch r {
	case Pending:
		return "pending"
	case Frame:
		return "frame"
	case Empty:
		return "empty"
	case Malformed:
		return "malformed"
	case Oversize:
		return "oversize"
	default:
		return "unknown"
	}
}

// Err maps a discarding result to its sentinel error, nil otherwise.
func (r Result) Err() error {
	switch r {
	case Malformed:
		return ErrMalformedEscape
	case Oversize:
		return ErrFrameTooLarge
	default:
		return nil
	}
}

// Limits constrains decoder memory use. Zero MaxFrameBytes means unlimited.
type Limits struct {
	MaxFrameBytes int
}

func DefaultLimits() Limits {
	return Limits{}
}

// Decoder reassembles datagrams from a raw byte stream.
// It is not safe for concurrent use; one Decoder serves one link.
type Decoder struct {
	limits     Limits
	buf        []byte
	escaping   bool
	discarding bool
}

func NewDecoder(limits Limits) *Decoder {
	if limits.MaxFrameBytes < 0 {
		limits.MaxFrameBytes = 0
	}
	return &Decoder{limits: limits}
}

// Step consumes one byte. The datagram is non-nil only for Frame and is owned
// by the caller.
func (d *Decoder) Step(b byte) (Result, []byte) {
	if b == End {
		// End always closes the candidate frame, even mid-escape.
		d.escaping = false
		if d.discarding {
			d.discarding = false
			d.buf = d.buf[:0]
			return Empty, nil
		}
		if len(d.buf) == 0 {
			return Empty, nil
		}
		datagram := bytes.Clone(d.buf)
		d.buf = d.buf[:0]
		return Frame, datagram
	}
	if d.discarding {
		return Pending, nil
	}
	if d.escaping {
		d.escaping = false
		switch b {
		case EscEnd:
			return d.push(End)
		case EscEsc:
			return d.push(Esc)
		default:
			d.buf = d.buf[:0]
			return Malformed, nil
		}
	}
	if b == Esc {
		d.escaping = true
		return Pending, nil
	}
	return d.push(b)
}

func (d *Decoder) push(b byte) (Result, []byte) {
	if d.limits.MaxFrameBytes > 0 && len(d.buf) >= d.limits.MaxFrameBytes {
		d.buf = d.buf[:0]
		d.discarding = true
		return Oversize, nil
	}
	d.buf = append(d.buf, b)
	return Pending, nil
}

// FeedReport summarizes one Feed call.
type FeedReport struct {
	Frames    int
	Empty     int
	Malformed int
	Oversize  int
	Rejected  int
	Errors    []error
}

// Discarded is the number of frames dropped by the decoder or the receiver.
func (r FeedReport) Discarded() int {
	return r.Malformed + r.Oversize + r.Rejected
}

// Feed runs the state machine over chunk and calls emit once per complete
// non-empty frame, in arrival order. An emit error resets the decoder and
// is recorded in the report; decoding continues with the next byte.
func (d *Decoder) Feed(chunk []byte, emit func(datagram []byte) error) FeedReport {
	var report FeedReport
	for _, b := range chunk {
		res, datagram := d.Step(b)
		switch res {
		case Frame:
			report.Frames++
			if emit == nil {
				continue
			}
			if err := emit(datagram); err != nil {
				d.Reset()
				report.Rejected++
				report.Errors = append(report.Errors, err)
			}
		case Empty:
			report.Empty++
		case Malformed:
			report.Malformed++
		case Oversize:
			report.Oversize++
		}
	}
	return report
}

// Reset drops any partial frame and returns to the normal state.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.escaping = false
	d.discarding = false
}

// Buffered reports bytes held for the in-progress frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Escaping reports whether the previous byte was an unresolved Esc.
func (d *Decoder) Escaping() bool {
	return d.escaping
}
