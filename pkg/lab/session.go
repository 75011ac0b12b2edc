// Package lab talks to the lab server over UDP: echo timing runs, image
// downloads and sound sessions, driven by the codes of codes.json.
package lab

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/lorenzosaino/go-sysctl"
	"k8s.io/klog/v2"

	"github.com/richiMarchi/netlab/pkg/codes"
)

const DefaultTimeout = time.Second

var errTimeout = errors.New("receive timeout")

// Session sends requests to the server port and receives the replies on the
// client listening port assigned by the portal.
type Session struct {
	send    *net.UDPConn
	recv    *net.UDPConn
	Timeout time.Duration
}

// Open binds the client listening port and connects to the server port found
// in c.
func Open(c codes.Codes, serverHost string, timeout time.Duration) (*Session, error) {
	clientPort, err := c.ClientPort()
	if err != nil {
		return nil, err
	}
	serverPort, err := c.ServerPort()
	if err != nil {
		return nil, err
	}
	server, err := net.ResolveUDPAddr("udp", net.JoinHostPort(serverHost, strconv.Itoa(serverPort)))
	if err != nil {
		return nil, err
	}
	klog.Infof("Client port: %d, server: %v", clientPort, server)
	return open(&net.UDPAddr{Port: clientPort}, server, timeout)
}

func open(listen, server *net.UDPAddr, timeout time.Duration) (*Session, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	recv, err := net.ListenUDP("udp", listen)
	if err != nil {
		return nil, fmt.Errorf("listening on %v: %w", listen, err)
	}
	send, err := net.DialUDP("udp", nil, server)
	if err != nil {
		recv.Close()
		return nil, fmt.Errorf("connecting to %v: %w", server, err)
	}
	return &Session{send: send, recv: recv, Timeout: timeout}, nil
}

// listenAddr is the local address replies are expected on.
func (s *Session) listenAddr() *net.UDPAddr {
	return s.recv.LocalAddr().(*net.UDPAddr)
}

func (s *Session) Close() error {
	err := s.send.Close()
	if rerr := s.recv.Close(); err == nil {
		err = rerr
	}
	return err
}

func (s *Session) request(message string) error {
	klog.V(4).Infof("Sending %q", message)
	_, err := s.send.Write([]byte(message))
	return err
}

// receive reads one datagram, giving up after the session timeout or when
// ctx is done.
func (s *Session) receive(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	deadline := time.Now().Add(s.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.recv.SetReadDeadline(deadline); err != nil {
		return 0, err
	}
	n, _, err := s.recv.ReadFromUDP(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, ctxErr
			}
			return 0, errTimeout
		}
		return 0, err
	}
	return n, nil
}

// LogSocketKnobs prints the kernel receive buffer settings so that a run
// can be related to them later.
func LogSocketKnobs() {
	for _, name := range []string{"net.core.rmem_default", "net.core.rmem_max"} {
		val, err := sysctl.Get(name)
		if err != nil {
			klog.Warningf("Cannot access %s: %v", name, err)
			continue
		}
		klog.Infof("%s: %s", name, val)
	}
}
