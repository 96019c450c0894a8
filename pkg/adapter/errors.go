package adapter

import "errors"

// ErrDisconnected is delivered to an adapter's Disconnected channel, at
// most once, when its underlying transport closes unexpectedly (EOF, a
// read error, or the subprocess exiting) rather than via Close.
var ErrDisconnected = errors.New("adapter: transport disconnected")
