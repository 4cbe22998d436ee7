package sniffer

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const tcpStateEstablished = 0x01

// ProcEnumerator reads the kernel's socket tables out of procfs and
// maps each socket back to its owning process via /proc/<pid>/fd.
type ProcEnumerator struct {
	root string
}

// NewProcEnumerator returns an Enumerator backed by /proc.
func NewProcEnumerator() *ProcEnumerator {
	return &ProcEnumerator{root: "/proc"}
}

// NewProcEnumeratorAt returns an Enumerator rooted at an alternate
// procfs mount point.
func NewProcEnumeratorAt(root string) *ProcEnumerator {
	return &ProcEnumerator{root: root}
}

// Connections implements Enumerator.
func (p *ProcEnumerator) Connections(opts Options) ([]Connection, error) {
	tables := []struct {
		file  string
		proto Protocol
	}{
		{"net/tcp", ProtoTCP},
		{"net/tcp6", ProtoTCP},
	}
	if opts.IncludeUDP {
		tables = append(tables,
			struct {
				file  string
				proto Protocol
			}{"net/udp", ProtoUDP},
			struct {
				file  string
				proto Protocol
			}{"net/udp6", ProtoUDP},
		)
	}

	owners, err := p.indexSocketOwners()
	if err != nil {
		return nil, err
	}

	var conns []Connection
	names := make(map[int]string)
	for _, table := range tables {
		f, err := os.Open(filepath.Join(p.root, table.file))
		if err != nil {
			// tcp6/udp6 are absent on hosts without IPv6
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		rows, err := parseSocketTable(f)
		f.Close()
		if err != nil {
			return nil, err
		}

		for _, row := range rows {
			if table.proto == ProtoTCP && opts.EstablishedOnly && row.state != tcpStateEstablished {
				continue
			}
			if table.proto == ProtoUDP && row.remoteIP.IsUnspecified() {
				// unconnected UDP sockets have no peer to match
				continue
			}
			pid, ok := owners[row.inode]
			if !ok {
				pid = -1
			}
			conns = append(conns, Connection{
				PID:         pid,
				ProcessName: p.processName(pid, names),
				LocalIP:     row.localIP,
				LocalPort:   row.localPort,
				RemoteIP:    row.remoteIP,
				RemotePort:  row.remotePort,
				Protocol:    table.proto,
				Established: table.proto == ProtoTCP && row.state == tcpStateEstablished,
			})
		}
	}
	return conns, nil
}

type socketRow struct {
	localIP    net.IP
	localPort  uint16
	remoteIP   net.IP
	remotePort uint16
	state      int
	inode      uint64
}

// parseSocketTable reads one /proc/net/{tcp,tcp6,udp,udp6} table,
// skipping the header line and any rows it cannot make sense of.
func parseSocketTable(r io.Reader) ([]socketRow, error) {
	var rows []socketRow
	scanner := bufio.NewScanner(r)
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		row, err := parseSocketLine(scanner.Text())
		if err != nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows, scanner.Err()
}

// parseSocketLine decodes a single procfs socket table row. The
// layout is
//
//	sl local_address rem_address st tx:rx tr:when retrnsmt uid timeout inode ...
//
// with addresses as kernel byte order hex.
func parseSocketLine(line string) (socketRow, error) {
	fields := strings.Fields(line)
	if len(fields) < 10 {
		return socketRow{}, fmt.Errorf("short socket table row: %q", line)
	}

	localIP, localPort, err := parseHexSocketAddr(fields[1])
	if err != nil {
		return socketRow{}, err
	}
	remoteIP, remotePort, err := parseHexSocketAddr(fields[2])
	if err != nil {
		return socketRow{}, err
	}
	state, err := strconv.ParseInt(fields[3], 16, 32)
	if err != nil {
		return socketRow{}, err
	}
	inode, err := strconv.ParseUint(fields[9], 10, 64)
	if err != nil {
		return socketRow{}, err
	}
	return socketRow{
		localIP:    localIP,
		localPort:  localPort,
		remoteIP:   remoteIP,
		remotePort: remotePort,
		state:      int(state),
		inode:      inode,
	}, nil
}

// parseHexSocketAddr splits an "ADDR:PORT" hex pair. IPv4 addresses
// are a single little endian 32 bit word; IPv6 addresses are four of
// them back to back.
func parseHexSocketAddr(addr string) (net.IP, uint16, error) {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return nil, 0, fmt.Errorf("malformed socket address: %q", addr)
	}
	raw, err := hex.DecodeString(parts[0])
	if err != nil {
		return nil, 0, err
	}
	if len(raw) != net.IPv4len && len(raw) != net.IPv6len {
		return nil, 0, fmt.Errorf("unexpected address length %d in %q", len(raw), addr)
	}

	ip := make(net.IP, len(raw))
	for word := 0; word < len(raw); word += 4 {
		ip[word] = raw[word+3]
		ip[word+1] = raw[word+2]
		ip[word+2] = raw[word+1]
		ip[word+3] = raw[word]
	}

	port, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return nil, 0, err
	}
	return ip, uint16(port), nil
}

// indexSocketOwners walks /proc/<pid>/fd and maps socket inodes to
// owning PIDs. Descriptors we cannot read (processes owned by other
// users, or gone by the time we stat them) are skipped.
func (p *ProcEnumerator) indexSocketOwners() (map[uint64]int, error) {
	procDirs, err := ioutil.ReadDir(p.root)
	if err != nil {
		return nil, err
	}

	owners := make(map[uint64]int)
	for _, dir := range procDirs {
		pid, err := strconv.Atoi(dir.Name())
		if err != nil {
			continue
		}
		fdDir := filepath.Join(p.root, dir.Name(), "fd")
		fds, err := ioutil.ReadDir(fdDir)
		if err != nil {
			continue
		}
		for _, fd := range fds {
			target, err := os.Readlink(filepath.Join(fdDir, fd.Name()))
			if err != nil {
				continue
			}
			inode, ok := parseSocketLink(target)
			if !ok {
				continue
			}
			owners[inode] = pid
		}
	}
	return owners, nil
}

// parseSocketLink extracts the inode from a "socket:[12345]" fd link.
func parseSocketLink(target string) (uint64, bool) {
	if !strings.HasPrefix(target, "socket:[") || !strings.HasSuffix(target, "]") {
		return 0, false
	}
	inode, err := strconv.ParseUint(target[len("socket:["):len(target)-1], 10, 64)
	if err != nil {
		return 0, false
	}
	return inode, true
}

// processName resolves and memoizes /proc/<pid>/comm.
func (p *ProcEnumerator) processName(pid int, cache map[int]string) string {
	if pid <= 0 {
		return ""
	}
	if name, ok := cache[pid]; ok {
		return name
	}
	raw, err := ioutil.ReadFile(filepath.Join(p.root, strconv.Itoa(pid), "comm"))
	name := ""
	if err == nil {
		name = strings.TrimSpace(string(raw))
	}
	cache[pid] = name
	return name
}
