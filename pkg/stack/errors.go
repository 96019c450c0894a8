package stack

import "errors"

// ErrUnknownLayerType is returned by Build/BuildStack when a stack
// description names a layer not present in the registry.
var ErrUnknownLayerType = errors.New("stack: unknown layer type")

// ErrMissingLayerType is returned by Build/BuildStack when a term in a
// stack description has no layer name before its optional "=arg".
var ErrMissingLayerType = errors.New("stack: missing layer type")

// ErrRequestTooLarge is returned by ArqLayer.Encode when the encode
// sequence wraps back to its starting value mid-request — the request
// exhausted the entire sequence space without a reply arriving.
var ErrRequestTooLarge = errors.New("stack: request exhausted sequence space")
