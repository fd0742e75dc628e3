// Package link carries datagrams over byte-stream transports using SLIP
// framing and routes them to point-to-point peers by next-hop address.
//
// Ownership boundary:
// - Link: one transport, one peer, one decoder
// - Layer: fixed peer table built at construction, single upward receiver
//
// Transports must deliver raw bytes to a Link sequentially; a Link holds no
// lock around its decoder.
package link
