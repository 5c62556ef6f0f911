package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/nettlebay/seeks/dht"
	"github.com/nettlebay/seeks/dht/impl/key"
)

// SimuUserInterface runs nbNodes in-process nodes on the in-memory
// transport, joins them into one ring, and shows the converged state plus
// a few random lookups.
func SimuUserInterface(nbNodes int) {
	if nbNodes < 1 {
		nbNodes = 1
	}

	trans := channelFac()

	color.HiYellow("================================================\n"+
		"=======  Simulation with %d nodes\n"+
		"================================================\n", nbNodes)

	nodes := make([]dht.DHT, 0, nbNodes)
	for i := 0; i < nbNodes; i++ {
		config := nodeDefaultConf(trans, "127.0.0.1:0")
		config.StabilizeInterval = time.Millisecond * 200
		config.FixFingerInterval = time.Millisecond * 50
		config.CheckPredInterval = time.Second * 2

		node := nodeCreateWithConf(nodeFac, config)
		err := node.Start()
		if err != nil {
			panic(err)
		}
		defer node.Stop()
		nodes = append(nodes, node)
	}

	nodes[0].Create()
	for _, node := range nodes[1:] {
		err := node.Join(nodes[0].GetAddr())
		if err != nil {
			color.HiRed("node %s failed to join: %v", node.GetAddr(), err)
		}
	}

	color.HiGreen("=======  All nodes joined, stabilizing...")
	time.Sleep(time.Second * 5)

	for _, node := range nodes {
		showRing(node)
	}

	color.HiGreen("=======  Random lookups")
	for i := 0; i < nbNodes; i++ {
		target := key.Random()
		from := nodes[i%len(nodes)]

		start := time.Now()
		k, na, err := from.FindSuccessor(target)
		if err != nil {
			color.HiRed("lookup of %s from %s failed: %v", target, from.GetAddr(), err)
			continue
		}
		fmt.Printf("%s -> %s @ %s (%v)\n", target, k, na, time.Since(start))
	}
}
