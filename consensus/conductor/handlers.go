package conductor

import (
	"fmt"

	"github.com/spf13/cast"

	"comicdao/comicdao"
	"comicdao/consensus/registry"
)

func (c *Conductor) handleEvent(e comicdao.Event) (h comicdao.HashSeq, err error) {
	mind, ok := comicdao.WhichMindForKind(e.Kind)
	if !ok {
		return h, fmt.Errorf("%w: %d", ErrUnknownKind, e.Kind)
	}
	switch mind {
	case "registry":
		return c.handleRegistry(e)
	case "governor":
		return c.handleGovernor(e)
	}
	return h, fmt.Errorf("%w: %d is registered to %s", ErrUnknownKind, e.Kind, mind)
}

func (c *Conductor) handleRegistry(e comicdao.Event) (h comicdao.HashSeq, err error) {
	switch e.Kind {
	case KindContribute:
		var unmarshalled Kind650100
		if err := e.Unmarshal(&unmarshalled); err != nil {
			return h, fmt.Errorf("%w: %s", ErrInvalidContent, err)
		}
		if err := c.registry.Contribute(e.PubKey, unmarshalled.Amount); err != nil {
			return h, err
		}
		return c.ledger.HashSeq(), nil
	case KindCreateProposal:
		var unmarshalled Kind650200
		if err := e.Unmarshal(&unmarshalled); err != nil {
			return h, fmt.Errorf("%w: %s", ErrInvalidContent, err)
		}
		category, err := parseCategory(unmarshalled.Category)
		if err != nil {
			return h, err
		}
		if _, err := c.registry.CreateProposal(e.PubKey, category, unmarshalled.Payload); err != nil {
			return h, err
		}
		return c.registry.HashSeq(), nil
	case KindExecuteProposal:
		var unmarshalled Kind650202
		if err := e.Unmarshal(&unmarshalled); err != nil {
			return h, fmt.Errorf("%w: %s", ErrInvalidContent, err)
		}
		category, err := parseCategory(unmarshalled.Category)
		if err != nil {
			return h, err
		}
		if _, err := c.registry.ExecuteProposal(e.PubKey, category, unmarshalled.Payload); err != nil {
			return h, err
		}
		return c.registry.HashSeq(), nil
	}
	return h, fmt.Errorf("%w: %d", ErrUnknownKind, e.Kind)
}

func (c *Conductor) handleGovernor(e comicdao.Event) (h comicdao.HashSeq, err error) {
	if e.Kind != KindCastVote {
		return h, fmt.Errorf("%w: %d", ErrUnknownKind, e.Kind)
	}
	var unmarshalled Kind650300
	if err := e.Unmarshal(&unmarshalled); err != nil {
		return h, fmt.Errorf("%w: %s", ErrInvalidContent, err)
	}
	weight, err := c.governor.CastVote(e.PubKey, unmarshalled.Proposal, unmarshalled.Support)
	if err != nil {
		return h, err
	}
	comicdao.LogCLI(fmt.Sprintf("%s voted %s on %s with %d", e.PubKey, unmarshalled.Support, unmarshalled.Proposal, weight), 4)
	return c.governor.HashSeq(), nil
}

// parseCategory accepts a category as it arrives in JSON: a name or a number.
func parseCategory(v any) (registry.Category, error) {
	s, err := cast.ToStringE(v)
	if err != nil {
		return 0, fmt.Errorf("%w: category %v", ErrInvalidContent, v)
	}
	return registry.ParseCategory(s)
}
