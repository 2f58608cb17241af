package comicdao

import (
	"os"

	"github.com/spf13/viper"
)

// InitConfig sets up our Viper config object, reading and writing <rootDir>/config.yaml
func InitConfig(config *viper.Viper) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		LogCLI(err.Error(), 0)
	}
	config.SetDefault("rootDir", homeDir+"/comicdao/")
	config.SetConfigType("yaml")
	config.SetConfigFile(config.GetString("rootDir") + "config.yaml")
	err = config.ReadInConfig()
	if err != nil {
		LogCLI(err.Error(), 4)
	}
	setDefaults(config)
	config.SetDefault("firstRun", true)
	config.SetDefault("logActors", true)
	// Create our working directory and config file if not exist
	initRootDir(config)
	if err := Touch(config.GetString("rootDir") + "config.yaml"); err != nil {
		LogCLI(err.Error(), 0)
	}
	err = config.WriteConfig()
	if err != nil {
		LogCLI(err.Error(), 0)
	}
}

func setDefaults(config *viper.Viper) {
	config.SetDefault("rootDir", os.TempDir()+"/comicdao/")
	config.SetDefault("flatFileDir", "data/")
	config.SetDefault("logLevel", 4)
	config.SetDefault("devMode", true)
	config.SetDefault("ignitionHeight", int64(0))
	// governance
	config.SetDefault("votingDelay", int64(0))
	config.SetDefault("votingPeriod", int64(144))
	config.SetDefault("quorumPermille", int64(40))
	config.SetDefault("quorumMinimum", int64(0))
	// interfaces
	config.SetDefault("apiAddr", "127.0.0.1:1031")
	config.SetDefault("blockInterval", "10s")
	config.SetDefault("autoMine", true)
	config.SetDefault("bloomCapacity", 10000)
}

func initRootDir(conf *viper.Viper) {
	_, err := os.Stat(conf.GetString("rootDir"))
	if os.IsNotExist(err) {
		err = os.MkdirAll(conf.GetString("rootDir"), 0755)
		if err != nil {
			LogCLI(err, 0)
		}
	}
}
