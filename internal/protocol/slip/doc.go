// Package slip owns the SLIP byte-stuffing codec used on every link.
//
// Wire format: End, <stuffed payload>, End. No length prefix and no checksum.
// Encoding is a pure function; decoding is a per-link state machine that
// accepts arbitrarily fragmented input and resynchronises on End.
package slip
