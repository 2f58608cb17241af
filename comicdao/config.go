package comicdao

import (
	"os"
	"time"

	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/viper"
)

var conf *viper.Viper
var confMutex = &deadlock.Mutex{}

// MakeOrGetConfig returns the global config. If nothing has been set yet it creates an in-memory
// config holding only the defaults, nothing is read from or written to disk.
func MakeOrGetConfig() *viper.Viper {
	confMutex.Lock()
	defer confMutex.Unlock()
	if conf == nil {
		conf = viper.New()
		setDefaults(conf)
		conf.SetDefault("logActors", false)
	}
	return conf
}

func SetConfig(config *viper.Viper) {
	confMutex.Lock()
	defer confMutex.Unlock()
	conf = config
}

var shutdown chan struct{}
var shutdownMutex = &deadlock.Mutex{}

func RegisterShutdownChan(s chan struct{}) {
	shutdownMutex.Lock()
	defer shutdownMutex.Unlock()
	shutdown = s
}

// Shutdown closes the registered shutdown channel. If nothing is registered (tests, tools) the process exits.
func Shutdown() {
	shutdownMutex.Lock()
	defer shutdownMutex.Unlock()
	if shutdown == nil {
		os.Exit(1)
	}
	select {
	case <-shutdown:
		return
	default:
		close(shutdown)
	}
	go func() {
		//If everything goes well, closing the interrupt channel should shutdown cleanly before terminating.
		//If something goes wrong we kill the process
		time.Sleep(time.Second * 120)
		println("Something didn't shutdown cleanly, state on disk may be stale.")
		os.Exit(0)
	}()
}
