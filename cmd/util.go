package cmd

import (
	"crypto/sha1"
	"net"
	"strconv"
	"strings"

	"golang.org/x/xerrors"

	"github.com/nettlebay/seeks/dht/impl/key"
)

func addressValidator(ans interface{}) error {
	peerAddr, _ := ans.(string)
	ipAndPort := strings.Split(peerAddr, ":")
	if len(ipAndPort) != 2 {
		// The address given is invalid
		return xerrors.Errorf("Please enter a valid peer address, e.g., 127.0.0.1:4001")
	}

	ipAddr := ipAndPort[0]
	if net.ParseIP(ipAddr) == nil {
		return xerrors.Errorf("Please enter a valid peer address, e.g., 127.0.0.1:4001")
	}

	portNum := ipAndPort[1]
	portN, err := strconv.Atoi(portNum)
	if err != nil || portN < 0 || portN >= 65536 {
		return xerrors.Errorf("Please enter a valid peer address, e.g., 127.0.0.1:4001")
	}

	return nil
}

// keyFromInput parses a full hex key, or hashes any other input down to a
// ring position. The key width matches a SHA-1 digest.
func keyFromInput(input string) key.DHTKey {
	if k, err := key.FromString(input); err == nil {
		return k
	}

	var k key.DHTKey
	sum := sha1.Sum([]byte(input))
	copy(k[:], sum[:])
	return k
}
