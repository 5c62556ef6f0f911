package cmd

import (
	"github.com/fatih/color"

	"github.com/nettlebay/seeks/dht"
	"github.com/nettlebay/seeks/dht/impl"
	"github.com/nettlebay/seeks/transport"
	"github.com/nettlebay/seeks/transport/channel"
	"github.com/nettlebay/seeks/transport/udp"
)

var nodeFac dht.Factory = impl.NewDHT
var channelFac transport.Factory = channel.NewTransport
var udpFac transport.Factory = udp.NewUDP

// UserInterface provides a command line interface of the program
func UserInterface() {
	config := nodeDefaultConf(udpFac(), "127.0.0.1:0")
	node := nodeCreateWithConf(nodeFac, config)
	err := node.Start()
	if err != nil {
		panic(err)
	}
	defer node.Stop()

	vnodes := node.VirtualNodeKeys()
	color.HiYellow("================================================\n"+
		"=======  Node started!                   =======\n"+
		"=======  UDP Address := %s\n"+
		"=======  Virtual key := %s\n"+
		"================================================\n",
		node.GetAddr(), vnodes[0])

	leave := true
	for leave {
		join := preJoin(node)
		if join {
			leave = postJoin(node)
		}
	}
}
