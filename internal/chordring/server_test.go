package chordring

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/abentley/chordring/internal/config"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		Port:               0,
		Host:               "127.0.0.1",
		OutputBufferSize:   256,
		StabilizeFrequency: 20 * time.Millisecond,
		IDBits:             testBits,
		VirtualNodeNumber:  1,
	}
	s := NewServer(cfg, nil, nil)
	require.NoError(t, s.ListenAndServe())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func sendLine(t *testing.T, addr net.Addr, line string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(line + "\n"))
	require.NoError(t, err)

	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(reply, "\r\n")
}

func TestServerAnswersInfo(t *testing.T) {
	s := testServer(t)
	reply := sendLine(t, s.Addr(), "INFO 0")
	require.True(t, strings.HasPrefix(reply, "RES INFO "))
}

func TestServerAnswersLookupOnSingleNodeRing(t *testing.T) {
	s := testServer(t)
	vn, err := s.VirtualNode(0)
	require.NoError(t, err)

	reply := sendLine(t, s.Addr(), "LOOKUP 0 123")
	require.Equal(t, "RES LOOKUP "+vn.Self().String(), reply)
}

func TestServerRejectsUnknownVnodeSilently(t *testing.T) {
	s := testServer(t)
	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("INFO 9\nINFO 0\n"))
	require.NoError(t, err)

	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	// The VNID-9 request names an unhosted virtual node and is silently
	// discarded; the very next request gets the only reply on the wire.
	require.True(t, strings.HasPrefix(strings.TrimRight(reply, "\r\n"), "RES INFO "))
}

func TestServerTracksActiveConnections(t *testing.T) {
	s := testServer(t)
	require.EqualValues(t, 0, s.ActiveConnections())

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return s.ActiveConnections() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestServerHandlesCRLFHumanFraming(t *testing.T) {
	s := testServer(t)
	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GETSUCCESSOR 0\r\n"))
	require.NoError(t, err)

	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(reply, "\r\n"))
}
