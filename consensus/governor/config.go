package governor

import (
	"github.com/spf13/viper"
)

// ConfigFromViper reads votingDelay, votingPeriod, quorumPermille and quorumMinimum.
func ConfigFromViper(v *viper.Viper) (VotingConfig, error) {
	c := VotingConfig{
		Delay:          v.GetInt64("votingDelay"),
		Period:         v.GetInt64("votingPeriod"),
		QuorumPermille: v.GetInt64("quorumPermille"),
		QuorumMinimum:  v.GetInt64("quorumMinimum"),
	}
	return c, c.Validate()
}
