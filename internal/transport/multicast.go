package transport

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// JoinMulticast subscribes an open UDP socket to a multicast group. A nil
// interface lets the kernel pick one. Group membership is the only socket
// surgery done here; reading stays on the plain net.PacketConn.
func JoinMulticast(conn *net.UDPConn, group net.IP, ifi *net.Interface) error {
	if group == nil || !group.IsMulticast() {
		return fmt.Errorf("%v is not a multicast group", group)
	}

	p := ipv4.NewPacketConn(conn)
	if err := p.JoinGroup(ifi, &net.UDPAddr{IP: group}); err != nil {
		return fmt.Errorf("failed to join group %s: %w", group, err)
	}
	return nil
}

// ListenMulticast opens a UDP listener on the group's port and joins the
// group on the named interface. An empty ifname lets the kernel pick.
func ListenMulticast(group net.IP, port int, ifname string) (*net.UDPConn, error) {
	var ifi *net.Interface
	if ifname != "" {
		found, err := net.InterfaceByName(ifname)
		if err != nil {
			return nil, fmt.Errorf("failed to find interface %q: %w", ifname, err)
		}
		ifi = found
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: port})
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", port, err)
	}

	if err := JoinMulticast(conn, group, ifi); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
