//go:build windows
// +build windows

package sniffer

import (
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modIPHlpapi        = windows.NewLazySystemDLL("iphlpapi.dll")
	procGetExtendedTcp = modIPHlpapi.NewProc("GetExtendedTcpTable")
)

const (
	afInet  = 2
	afInet6 = 23

	tcpTableOwnerPIDAll = 5

	mibTCPStateEstablished = 5
)

type mibTCPRowOwnerPID struct {
	State      uint32
	LocalAddr  uint32
	LocalPort  uint32
	RemoteAddr uint32
	RemotePort uint32
	OwningPID  uint32
}

type mibTCP6RowOwnerPID struct {
	LocalAddr     [16]byte
	LocalScopeID  uint32
	LocalPort     uint32
	RemoteAddr    [16]byte
	RemoteScopeID uint32
	RemotePort    uint32
	State         uint32
	OwningPID     uint32
}

// WindowsEnumerator snapshots the TCP connection tables through the
// IP Helper API.
type WindowsEnumerator struct{}

// NewWindowsEnumerator returns an Enumerator backed by
// GetExtendedTcpTable.
func NewWindowsEnumerator() *WindowsEnumerator {
	return &WindowsEnumerator{}
}

// Connections implements Enumerator.
func (w *WindowsEnumerator) Connections(opts Options) ([]Connection, error) {
	names, err := processNames()
	if err != nil {
		names = make(map[int]string)
	}

	var conns []Connection

	v4, err := w.tcpTable(afInet, opts.EstablishedOnly, names)
	if err != nil {
		return nil, err
	}
	conns = append(conns, v4...)

	v6, err := w.tcp6Table(opts.EstablishedOnly, names)
	if err != nil {
		return nil, err
	}
	conns = append(conns, v6...)

	// the UDP_TABLE_OWNER_PID tables only carry local endpoints, so
	// there are no connected UDP sockets to report on this platform
	return conns, nil
}

// fetchTable calls an IP Helper table function, growing the buffer
// until the requested table fits.
func fetchTable(proc *windows.LazyProc, family, class uintptr) ([]byte, error) {
	var size uint32
	ret, _, _ := proc.Call(0, uintptr(unsafe.Pointer(&size)), 0, family, class, 0)
	if windows.Errno(ret) != windows.ERROR_INSUFFICIENT_BUFFER {
		return nil, fmt.Errorf("sizing connection table failed: %d", ret)
	}

	for {
		buf := make([]byte, size)
		ret, _, _ = proc.Call(
			uintptr(unsafe.Pointer(&buf[0])),
			uintptr(unsafe.Pointer(&size)),
			0, family, class, 0,
		)
		if ret == 0 {
			return buf, nil
		}
		if windows.Errno(ret) != windows.ERROR_INSUFFICIENT_BUFFER {
			return nil, fmt.Errorf("reading connection table failed: %d", ret)
		}
	}
}

func (w *WindowsEnumerator) tcpTable(family uintptr, establishedOnly bool, names map[int]string) ([]Connection, error) {
	buf, err := fetchTable(procGetExtendedTcp, family, tcpTableOwnerPIDAll)
	if err != nil {
		return nil, err
	}

	count := *(*uint32)(unsafe.Pointer(&buf[0]))
	rows := (*[1 << 20]mibTCPRowOwnerPID)(unsafe.Pointer(&buf[4]))[:count:count]

	var conns []Connection
	for _, row := range rows {
		if establishedOnly && row.State != mibTCPStateEstablished {
			continue
		}
		pid := int(row.OwningPID)
		conns = append(conns, Connection{
			PID:         pid,
			ProcessName: names[pid],
			LocalIP:     ipv4FromDWORD(row.LocalAddr),
			LocalPort:   ntohs(row.LocalPort),
			RemoteIP:    ipv4FromDWORD(row.RemoteAddr),
			RemotePort:  ntohs(row.RemotePort),
			Protocol:    ProtoTCP,
			Established: row.State == mibTCPStateEstablished,
		})
	}
	return conns, nil
}

func (w *WindowsEnumerator) tcp6Table(establishedOnly bool, names map[int]string) ([]Connection, error) {
	buf, err := fetchTable(procGetExtendedTcp, afInet6, tcpTableOwnerPIDAll)
	if err != nil {
		return nil, err
	}

	count := *(*uint32)(unsafe.Pointer(&buf[0]))
	rows := (*[1 << 20]mibTCP6RowOwnerPID)(unsafe.Pointer(&buf[4]))[:count:count]

	var conns []Connection
	for _, row := range rows {
		if establishedOnly && row.State != mibTCPStateEstablished {
			continue
		}
		pid := int(row.OwningPID)
		conns = append(conns, Connection{
			PID:         pid,
			ProcessName: names[pid],
			LocalIP:     net.IP(row.LocalAddr[:]),
			LocalPort:   ntohs(row.LocalPort),
			RemoteIP:    net.IP(row.RemoteAddr[:]),
			RemotePort:  ntohs(row.RemotePort),
			Protocol:    ProtoTCP,
			Established: row.State == mibTCPStateEstablished,
		})
	}
	return conns, nil
}

func ntohs(port uint32) uint16 {
	return uint16((port&0xFF)<<8 | (port&0xFF00)>>8)
}

func ipv4FromDWORD(addr uint32) net.IP {
	raw := make([]byte, 4)
	binary.LittleEndian.PutUint32(raw, addr)
	return net.IP(raw)
}

// processNames maps PIDs to image names via tasklist. Failures leave
// connections with empty process names rather than failing the scan.
func processNames() (map[int]string, error) {
	out, err := exec.Command("tasklist", "/FO", "CSV", "/NH").Output()
	if err != nil {
		return nil, err
	}

	names := make(map[int]string)
	reader := csv.NewReader(strings.NewReader(string(out)))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if len(record) < 2 {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			continue
		}
		names[pid] = strings.TrimSpace(record[0])
	}
	return names, nil
}
