//go:build unix

package transport

import "golang.org/x/sys/unix"

const (
	errTimedOut     = unix.ETIMEDOUT
	errCanceled     = unix.ECANCELED
	errNotConnected = unix.ENOTCONN
)
