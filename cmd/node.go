package cmd

import (
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/disiqueira/gotree"
	"github.com/fatih/color"
	"golang.org/x/xerrors"

	"github.com/nettlebay/seeks/dht"
	"github.com/nettlebay/seeks/dht/impl/key"
	"github.com/nettlebay/seeks/registry/standard"
	"github.com/nettlebay/seeks/transport"
)

// nodeDefaultConf returns the default configuration of a node
func nodeDefaultConf(trans transport.Transport, addr string) dht.Configuration {
	socket, err := trans.CreateSocket(addr)
	if err != nil {
		panic(err)
	}

	var config dht.Configuration
	config.Socket = socket
	config.MessageRegistry = standard.NewRegistry()
	config.NumVirtualNodes = 1
	config.SuccListLength = 8
	config.RPCTimeout = time.Second * 5
	config.RetryBudget = 2
	config.StabilizeInterval = time.Second * 5
	config.FixFingerInterval = time.Second * 5
	config.CheckPredInterval = time.Second * 60
	config.MaintenanceParallelism = 4
	config.CheckInvariants = true
	return config
}

// nodeCreateWithConf creates a node with the specified config
func nodeCreateWithConf(f dht.Factory, config dht.Configuration) dht.DHT {
	return f(config)
}

// joinRing joins an existing ring through a bootstrap peer
func joinRing(node dht.DHT) error {
	var peerAddr string
	err := survey.AskOne(
		&survey.Input{Message: "Enter bootstrap peer's address: "},
		&peerAddr,
		survey.WithValidator(addressValidator))

	if err != nil {
		return xerrors.Errorf("failed to get the answer: %v", err)
	}
	return node.Join(peerAddr)
}

// lookupKey resolves a key to the responsible node
func lookupKey(node dht.DHT) error {
	var input string
	err := survey.AskOne(
		&survey.Input{Message: "Enter a key (hex) or any name to hash: "},
		&input)
	if err != nil {
		return xerrors.Errorf("failed to get the answer: %v", err)
	}

	target := keyFromInput(input)
	start := time.Now()
	k, na, err := node.FindSuccessor(target)
	if err != nil {
		if dht.IsTemporary(err) {
			return xerrors.Errorf("temporary failure, retry later: %v", err)
		}
		return err
	}

	color.HiGreen("=======  %s is held by %s @ %s (%v)", target, k, na, time.Since(start))
	return nil
}

// showRing renders every virtual node's ring view
func showRing(node dht.DHT) {
	for _, vn := range node.VirtualNodeKeys() {
		root := gotree.New(vn.String())

		if pred, ok := node.GetPredecessor(vn); ok {
			root.Add("predecessor: " + pred.String())
		} else {
			root.Add("predecessor: <unset>")
		}
		if succ, ok := node.GetSuccessor(vn); ok {
			root.Add("successor: " + succ.String())
		} else {
			root.Add("successor: <unset>")
		}

		succs := root.Add("successor list")
		for _, k := range node.GetSuccList(vn) {
			succs.Add(k.String())
		}

		fingers := root.Add("fingers")
		var last key.DHTKey
		for i, k := range node.GetFingerKeys(vn) {
			if k.Count() == 0 || k.Equal(last) {
				// Collapse runs of identical slots, the view is unreadable
				// otherwise
				continue
			}
			last = k
			fingers.Add(color.HiBlackString("[%03d] ", i) + k.String())
		}

		color.HiCyan(root.Print())
	}
}
