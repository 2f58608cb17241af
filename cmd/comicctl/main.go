package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"comicdao/comicdao"
	"comicdao/consensus/conductor"
	"comicdao/consensus/governor"
	"comicdao/consensus/registry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	conf := viper.New()
	comicdao.InitConfig(conf)
	comicdao.SetConfig(conf)
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}
	if err := run(conf.GetString("apiAddr"), os.Args[1], os.Args[2:]); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func help() {
	fmt.Println(`Usage: comicctl <command> [args]

  wallet                          print the local wallet's account
  contribute <amount>             contribute and receive governance tokens
  propose <category> <payload>    propose a writer, artist or concept
  vote <proposal> <support>       vote for, against or abstain
  execute <category> <payload>    commit a succeeded proposal to the registry
  id <category> <payload>         print a proposal id
  state <proposal>                print the state of a proposal`)
}

func run(addr, command string, args []string) error {
	base := "http://" + addr
	need := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s takes %d arguments, got %d", command, n, len(args))
		}
		return nil
	}
	switch command {
	case "wallet":
		fmt.Println(comicdao.MyWallet().Account)
		return nil
	case "contribute":
		if err := need(1); err != nil {
			return err
		}
		amount, err := cast.ToInt64E(args[0])
		if err != nil {
			return err
		}
		return submit(base, conductor.KindContribute, conductor.Kind650100{Amount: amount})
	case "propose", "execute":
		if err := need(2); err != nil {
			return err
		}
		category, err := registry.ParseCategory(args[0])
		if err != nil {
			return err
		}
		if command == "propose" {
			return submit(base, conductor.KindCreateProposal, conductor.Kind650200{Category: int(category), Payload: args[1]})
		}
		return submit(base, conductor.KindExecuteProposal, conductor.Kind650202{Category: int(category), Payload: args[1]})
	case "vote":
		if err := need(2); err != nil {
			return err
		}
		support, err := parseSupport(args[1])
		if err != nil {
			return err
		}
		return submit(base, conductor.KindCastVote, conductor.Kind650300{Proposal: args[0], Support: support})
	case "id":
		if err := need(2); err != nil {
			return err
		}
		category, err := registry.ParseCategory(args[0])
		if err != nil {
			return err
		}
		id, err := registry.GetProposalID(category, args[1])
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	case "state":
		if err := need(1); err != nil {
			return err
		}
		b, err := get(base + "/proposals/" + args[0])
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	}
	help()
	return fmt.Errorf("unknown command %s", command)
}

func parseSupport(s string) (governor.Support, error) {
	for _, support := range []governor.Support{governor.Against, governor.For, governor.Abstain} {
		if strings.EqualFold(s, support.String()) {
			return support, nil
		}
	}
	n, err := cast.ToIntE(s)
	if err != nil || !governor.Support(n).Valid() {
		return 0, fmt.Errorf("%w: %s", governor.ErrInvalidSupport, s)
	}
	return governor.Support(n), nil
}

// submit signs content with the local wallet using the next sequence number the node expects.
func submit(base string, kind int64, content any) error {
	w := comicdao.MyWallet()
	b, err := get(base + "/accounts/" + w.Account + "/balance")
	if err != nil {
		return err
	}
	var account struct {
		Sequence int64 `json:"sequence"`
	}
	if err := json.Unmarshal(b, &account); err != nil {
		return err
	}
	e, err := comicdao.SignEvent(w.PrivateKey, kind, content, account.Sequence+1, time.Now())
	if err != nil {
		return err
	}
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	resp, err := http.Post(base+"/events", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	reply, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Println(string(reply))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event %s was rejected (%s)", e.ID, resp.Status)
	}
	return nil
}

func get(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return b, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	return b, nil
}
