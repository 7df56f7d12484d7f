//go:build !unix

package stream

import "syscall"

// reuseAddrControl is a no-op on platforms without SO_REUSEADDR semantics
// worth setting; the listener binds with system defaults.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}
