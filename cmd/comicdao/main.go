package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/viper"

	"comicdao/comicdao"
	"comicdao/consensus/conductor"
	"comicdao/messaging/api"
	"comicdao/messaging/blocks"
)

func main() {
	deadlock.Opts.DisableLockOrderDetection = true
	deadlock.Opts.DeadlockTimeout = time.Millisecond * 30000

	// Various aspects of this application require global and local settings. To keep things
	// clean and tidy we put these settings in a Viper configuration.
	conf := viper.New()

	// Now we initialise this configuration with basic settings that are required on startup.
	comicdao.InitConfig(conf)
	// make the config accessible globally
	comicdao.SetConfig(conf)
	if conf.GetBool("firstRun") {
		scanner := bufio.NewScanner(strings.NewReader(comicdao.Banner()))
		for scanner.Scan() {
			time.Sleep(time.Millisecond * 127)
			fmt.Println(scanner.Text())
		}
		fmt.Println()
	} else {
		fmt.Printf("\n%s\n", comicdao.Banner())
	}

	// the terminator channel blocks until shutdown, anything requiring a clean shutdown should
	// wait on this channel and clean up when it stops blocking.
	terminator := make(chan struct{})

	// anything requiring a clean shutdown needs to add to this waitgroup and remove itself when it
	// has cleanly shut down.
	wg := &sync.WaitGroup{}

	// interrupt: see cliListener
	interrupt := make(chan struct{})
	comicdao.RegisterShutdownChan(interrupt)

	c, err := conductor.NewFromConfig(conf)
	if err != nil {
		comicdao.LogCLI(err.Error(), 0)
		os.Exit(1)
	}
	if err := c.Start(terminator, wg); err != nil {
		comicdao.LogCLI(err.Error(), 0)
		os.Exit(1)
	}
	producer := blocks.NewFromConfig(c, conf)
	producer.Start(terminator, wg)
	api.Start(c, conf.GetString("apiAddr"), terminator, wg)

	go cliListener(interrupt, c, producer)
	comicdao.LogCLI("Waiting for terminate signal, press q to quit", 4)

	<-interrupt
	conf.Set("firstRun", false)
	if err := conf.WriteConfig(); err != nil {
		comicdao.LogCLI(err.Error(), 3)
	}
	close(terminator)
	wg.Wait()
	os.Exit(0)
}
