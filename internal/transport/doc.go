// Package transport provides byte-stream channels that satisfy
// link.Transport: serial lines and PTYs, TCP streams, and in-memory pipes.
//
// Each Stream has exactly one reader goroutine (Run), so raw bytes reach the
// registered receiver sequentially.
package transport
