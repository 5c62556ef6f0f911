package channel

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nettlebay/seeks/transport"
)

func testPacket(src, dst string) transport.Packet {
	header := transport.NewHeader(src, src, dst, 0)
	msg := transport.Message{Type: "test", Payload: []byte(`{}`)}
	return transport.Packet{Header: &header, Msg: &msg}
}

// Test_Channel_Send_Recv tests the in-memory delivery path
func Test_Channel_Send_Recv(t *testing.T) {
	transp := NewTransport()

	s1, err := transp.CreateSocket("127.0.0.1:0")
	require.NoError(t, err)
	s2, err := transp.CreateSocket("127.0.0.1:0")
	require.NoError(t, err)
	require.NotEqual(t, s1.GetAddress(), s2.GetAddress())

	pkt := testPacket(s1.GetAddress(), s2.GetAddress())
	require.NoError(t, s1.Send(s2.GetAddress(), pkt, 0))

	received, err := s2.Recv(time.Second)
	require.NoError(t, err)
	require.Equal(t, pkt.Header.PacketID, received.Header.PacketID)

	require.Len(t, s1.GetOuts(), 1)
	require.Len(t, s2.GetIns(), 1)
}

// Test_Channel_Recv_Timeout tests the timeout classification
func Test_Channel_Recv_Timeout(t *testing.T) {
	transp := NewTransport()

	s, err := transp.CreateSocket("127.0.0.1:0")
	require.NoError(t, err)

	_, err = s.Recv(time.Millisecond * 50)
	require.True(t, errors.Is(err, transport.TimeoutError(0)))
}

// Test_Channel_Closed_Socket tests that a closed socket behaves like a
// crashed process: senders get a connection error
func Test_Channel_Closed_Socket(t *testing.T) {
	transp := NewTransport()

	s1, err := transp.CreateSocket("127.0.0.1:0")
	require.NoError(t, err)
	s2, err := transp.CreateSocket("127.0.0.1:0")
	require.NoError(t, err)

	require.NoError(t, s2.Close())
	require.Error(t, s2.Close())

	err = s1.Send(s2.GetAddress(), testPacket(s1.GetAddress(), s2.GetAddress()), 0)
	require.Error(t, err)
	require.False(t, errors.Is(err, transport.TimeoutError(0)))
}
