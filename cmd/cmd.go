package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"

	"github.com/nettlebay/seeks/dht"
)

// preJoin is the actions allowed before a node is part of a ring: create a
// new ring, join an existing one through a bootstrap peer, or exit
func preJoin(node dht.DHT) bool {
	prompt := &survey.Select{
		Message: "What do you want to do ?",
		Options: []string{
			"🌱 create a new ring",
			"🕓 join a ring via a bootstrap peer",
			"👋 exit"},
	}
	var action string
	for {
		err := survey.AskOne(prompt, &action)
		if err != nil {
			fmt.Println(err)
			return false
		}

		switch action {
		case "🌱 create a new ring":
			node.Create()
			color.HiGreen("=======  Ring created, waiting for peers")
			return true
		case "🕓 join a ring via a bootstrap peer":
			err = joinRing(node)
			if err != nil {
				log.Fatalf("failed to join ring: %v", err)
			}
			// We have successfully joined the ring, we can enter postJoin
			// actions
			return true
		case "👋 exit":
			color.HiYellow("=======  Bye 👋")
			os.Exit(0)
		}
	}
}

// postJoin is the actions allowed once the node participates in a ring:
// resolve keys, inspect the ring state, add virtual nodes
func postJoin(node dht.DHT) bool {
	prompt := &survey.Select{
		Message: "What do you want to do ?",
		Options: []string{
			"🔍 look up a key",
			"🪐 show predecessor, successor, and finger table",
			"🎭 add a virtual node",
			"👋 exit"},
	}
	var action string
	for {
		err := survey.AskOne(prompt, &action)
		if err != nil {
			fmt.Println(err)
			return true
		}

		switch action {
		case "🔍 look up a key":
			err = lookupKey(node)
			if err != nil {
				color.HiRed("lookup failed: %v", err)
			}
		case "🪐 show predecessor, successor, and finger table":
			showRing(node)
		case "🎭 add a virtual node":
			k, err := node.AddVirtualNode()
			if err != nil {
				color.HiRed("failed to add virtual node: %v", err)
			} else {
				color.HiGreen("=======  Virtual node %s added", k)
			}
		case "👋 exit":
			color.HiYellow("=======  Bye 👋")
			return false
		}
	}
}
