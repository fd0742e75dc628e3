package link

import "errors"

var (
	ErrNoRoute      = errors.New("link: no route to next hop")
	ErrInvalidPeer  = errors.New("link: invalid peer address")
	ErrNilTransport = errors.New("link: nil transport")
)
