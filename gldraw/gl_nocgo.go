//go:build (tinygo || !cgo) && !js

package gldraw

import "fmt"

// StartHost always fails on native builds without cgo.
func StartHost(cfg HostConfig) (Context, Host, func(), error) {
	return nil, nil, nil, fmt.Errorf("%w: desktop OpenGL requires cgo and is not supported on TinyGo", ErrNoContext)
}
