package main

import (
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/eiannone/keyboard"

	"comicdao/comicdao"
	"comicdao/consensus/conductor"
	"comicdao/consensus/registry"
	"comicdao/database"
	"comicdao/messaging/blocks"
)

// cliListener listens for keypresses and executes commands. It is a development aid, not an interface.
func cliListener(interrupt chan struct{}, c *conductor.Conductor, producer *blocks.Producer) {
	fmt.Println("Press:\nq: to quit\nm: to mine a block\np: to print proposals\nr: to print the registry\n" +
		"l: to print token holders\nh: to print state hashes\nb: to back up the database\nw: to print your current wallet")
	for {
		r, k, err := keyboard.GetSingleKey()
		if err != nil {
			comicdao.LogCLI(err.Error(), 2)
			return
		}
		str := string(r)
		switch str {
		default:
			if k == keyboard.KeyEnter {
				fmt.Println("\n-----------------------------------")
				break
			}
			if r == 0 {
				break
			}
			fmt.Println("Key " + str + " is not bound to anything. See cliListener.go for more details.")
		case "q":
			comicdao.LogCLI(fmt.Sprintf("User requested to terminate at block: %d", c.Chain().Height()), 4)
			comicdao.Shutdown()
			return //if we do not return here, we cannot ctrl+c in case of errors during shutdown
		case "m":
			bh := producer.InsertBlock(time.Now())
			fmt.Printf("\nmined %d\n", bh.Height)
		case "p":
			for _, record := range c.Registry().Proposals() {
				p, _ := c.Governor().Proposal(record.ID)
				state, _ := c.Governor().State(record.ID)
				fmt.Printf("\n%s %s %s\n", record.ID, record.Category, registry.FormatPayload(record.Category, record.Payload))
				fmt.Printf("state: %s start: %d deadline: %d tally: %+v\n", state, p.Start, p.Deadline, p.Tally)
				if turnout, err := c.Governor().Turnout(record.ID); err == nil {
					fmt.Printf("turnout: %d voters, %d of %d (%d permille), median weight %.0f\n",
						turnout.Voters, turnout.Cast, turnout.Supply, turnout.Permille, turnout.MedianWeight)
				}
			}
		case "r":
			for _, category := range registry.AllCategories() {
				fmt.Printf("\n%s:\n", category)
				for i := int64(0); i < c.Registry().CanonicalLen(category); i++ {
					entry, _ := c.Registry().Canonical(category, i)
					fmt.Printf("  %d: %s\n", i, entry)
				}
			}
			fmt.Printf("root: %s\ntreasury: %d\n", c.Registry().Root(), c.Registry().Treasury())
		case "l":
			spew.Dump(c.Ledger().Holders())
		case "h":
			spew.Dump(c.Hashes())
		case "b":
			if _, err := c.Save(); err != nil {
				comicdao.LogCLI(err.Error(), 1)
				break
			}
			dest, err := database.Backup(time.Now())
			if err != nil {
				comicdao.LogCLI(err.Error(), 1)
				break
			}
			fmt.Printf("\nbacked up to %s\n", dest)
		case "w":
			w := comicdao.MyWallet()
			fmt.Printf("\nAccount: %s\nBalance: %d\nSequence: %d\nCurrent Block: %v\n", w.Account,
				c.Ledger().BalanceOf(w.Account), c.Sequences().Current(w.Account), c.Chain().Tip())
		}
	}
}
