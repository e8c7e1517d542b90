//go:build !unix

package transport

import "syscall"

const (
	errTimedOut     = syscall.ETIMEDOUT
	errCanceled     = syscall.ECANCELED
	errNotConnected = syscall.ENOTCONN
)
