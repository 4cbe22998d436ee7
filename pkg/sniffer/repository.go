package sniffer

import "net"

// Protocol identifies the transport of an enumerated socket.
type Protocol string

const (
	ProtoTCP Protocol = "tcp"
	ProtoUDP Protocol = "udp"
)

// Connection is a single outbound socket snapshotted from the host's
// connection table along with its owning process.
type Connection struct {
	PID         int
	ProcessName string
	LocalIP     net.IP
	LocalPort   uint16
	RemoteIP    net.IP
	RemotePort  uint16
	Protocol    Protocol
	Established bool
}

// Options narrows which sockets an Enumerator returns.
type Options struct {
	// EstablishedOnly drops TCP sockets that are not in the
	// ESTABLISHED state. UDP sockets are unaffected.
	EstablishedOnly bool
	// IncludeUDP adds connected UDP sockets to the snapshot.
	IncludeUDP bool
}

// Enumerator produces a point in time snapshot of the host's
// outbound connections. Implementations are platform specific.
type Enumerator interface {
	Connections(opts Options) ([]Connection, error)
}
