//go:build !windows
// +build !windows

package sniffer

// NewEnumerator returns the connection enumerator for this platform.
func NewEnumerator() Enumerator {
	return NewProcEnumerator()
}
