package icap

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/phayes/freeport"
	"github.com/stretchr/testify/require"
)

// dialListener starts l.Serve on a freeport-allocated listener and
// returns a connection to it, ready for the caller to write a request
// and read back a response.
func dialListener(t *testing.T, l *Listener) net.Conn {
	t.Helper()

	port, err := freeport.GetFreePort()
	require.NoError(t, err)

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go l.Serve(ln)

	var conn net.Conn
	require.Eventually(t, func() bool {
		conn, err = net.DialTimeout("tcp", ln.Addr().String(), 100*time.Millisecond)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestListenerServesOptions(t *testing.T) {
	mux := NewServeMux()
	mux.HandleFunc("echo", func(req *IcapRequest) (AdaptationResult, error) {
		headers := NewHeader()
		headers.Set("Methods", "REQMOD")
		headers.Set("Allow", "204")
		return AdaptationResult{StatusCode: 200, Headers: headers}, nil
	})
	l := &Listener{Mux: mux}
	conn := dialListener(t, l)

	request := "OPTIONS icap://host/echo ICAP/1.0\r\nHost: host\r\n\r\n"
	_, err := conn.Write([]byte(request))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "ICAP/1.0 200 OK\r\n", line)
}

func TestListenerReqmodTwoOhFourShortcut(t *testing.T) {
	mux := NewServeMux()
	mux.HandleFunc("echo", func(req *IcapRequest) (AdaptationResult, error) {
		return AdaptationResult{Content: req.Body, StatusCode: 200, Headers: NewHeader(), ContentWasAltered: false}, nil
	})
	l := &Listener{Mux: mux}
	conn := dialListener(t, l)

	request := "REQMOD icap://host/echo ICAP/1.0\r\n" +
		"Host: host\r\n" +
		"Allow: 204\r\n" +
		"Encapsulated: req-hdr=0, null-body=18\r\n" +
		"\r\n" +
		"GET / HTTP/1.1\r\n\r\n"
	_, err := conn.Write([]byte(request))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "ICAP/1.0 204 No Content\r\n", line)
}

func TestListenerUnknownServiceReturnsNotFound(t *testing.T) {
	l := &Listener{Mux: NewServeMux()}
	conn := dialListener(t, l)

	request := "OPTIONS icap://host/missing ICAP/1.0\r\nHost: host\r\n\r\n"
	_, err := conn.Write([]byte(request))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "ICAP/1.0 404 Not Found\r\n", line)
}

func TestListenerMalformedRequestLineClosesConnection(t *testing.T) {
	l := &Listener{Mux: NewServeMux()}
	conn := dialListener(t, l)

	_, err := conn.Write([]byte("NOT AN ICAP REQUEST\r\n\r\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	n, _ := conn.Read(buf)
	require.Equal(t, 0, n, "server should close without responding to an unparseable request line")
}

func TestListenerShutdownDrainsInFlightSessions(t *testing.T) {
	mux := NewServeMux()
	started := make(chan struct{})
	release := make(chan struct{})
	mux.HandleFunc("slow", func(req *IcapRequest) (AdaptationResult, error) {
		close(started)
		<-release
		return AdaptationResult{StatusCode: 200, Headers: NewHeader()}, nil
	})

	port, err := freeport.GetFreePort()
	require.NoError(t, err)
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)

	l := &Listener{Mux: mux}
	serveDone := make(chan error, 1)
	go func() { serveDone <- l.Serve(ln) }()

	conn, err := net.DialTimeout("tcp", ln.Addr().String(), 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	request := "OPTIONS icap://host/slow ICAP/1.0\r\nHost: host\r\nConnection: close\r\n\r\n"
	_, err = conn.Write([]byte(request))
	require.NoError(t, err)

	<-started

	shutdownDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownDone <- l.Shutdown(ctx)
	}()

	select {
	case <-shutdownDone:
		t.Fatal("Shutdown returned before the in-flight session finished")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)

	require.NoError(t, <-shutdownDone)
	require.NoError(t, <-serveDone)
}
