package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/spf13/cast"
	"github.com/stackerstan/go-nostr"

	"comicdao/comicdao"
	"comicdao/consensus/governor"
	"comicdao/consensus/registry"
)

type eventResponse struct {
	ID       string `json:"id"`
	Accepted bool   `json:"accepted"`
	Mind     string `json:"mind,omitempty"`
	Hash     string `json:"hash,omitempty"`
	Message  string `json:"message,omitempty"`
}

type proposalView struct {
	ID         governor.ProposalID `json:"id"`
	Category   string              `json:"category"`
	Payload    string              `json:"payload"`
	Proposer   comicdao.Account    `json:"proposer"`
	Created    int64               `json:"created"`
	Start      int64               `json:"start"`
	Deadline   int64               `json:"deadline"`
	Snapshot   comicdao.Mark       `json:"snapshot"`
	State      governor.State      `json:"state"`
	StateName  string              `json:"state_name"`
	Tally      governor.Tally      `json:"tally"`
	Voters     int                 `json:"voters"`
	Turnout    governor.Turnout    `json:"turnout"`
	Executed   bool                `json:"executed"`
	ExecutedAt int64               `json:"executed_at,omitempty"`
}

type stateView struct {
	State governor.State `json:"state"`
	Name  string         `json:"name"`
}

type canonicalView struct {
	Category string   `json:"category"`
	Entries  []string `json:"entries"`
	Root     string   `json:"root"`
}

type governorView struct {
	VotingDelay    int64              `json:"voting_delay"`
	VotingPeriod   int64              `json:"voting_period"`
	QuorumPermille int64              `json:"quorum_permille"`
	QuorumMinimum  int64              `json:"quorum_minimum"`
	Quorum         comicdao.VotePower `json:"quorum"`
	Height         int64              `json:"height"`
	Kinds          map[int64]string   `json:"kinds"`
}

func decodeEvent(b []byte) (comicdao.Event, error) {
	var evt nostr.Event
	if err := json.Unmarshal(b, &evt); err != nil {
		return comicdao.Event{}, fmt.Errorf("%w: %s", errBadRequest, err)
	}
	return comicdao.ConvertToInternalEvent(&evt), nil
}

func (s *server) submit(e comicdao.Event) (eventResponse, error) {
	hs, err := s.conductor.HandleMessage(e)
	if err != nil {
		return eventResponse{ID: e.ID, Message: err.Error()}, err
	}
	return eventResponse{ID: e.ID, Accepted: true, Mind: hs.Mind, Hash: hs.Hash}, nil
}

func (s *server) postEvent(w http.ResponseWriter, r *http.Request) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxMessageSize))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %s", errBadRequest, err))
		return
	}
	e, err := decodeEvent(b)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.submit(e)
	if err != nil {
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) view(record registry.Record) (proposalView, error) {
	g := s.conductor.Governor()
	p, ok := g.Proposal(record.ID)
	if !ok {
		return proposalView{}, fmt.Errorf("%w: %s", governor.ErrUnknownProposal, record.ID)
	}
	state, err := g.State(record.ID)
	if err != nil {
		return proposalView{}, err
	}
	turnout, err := g.Turnout(record.ID)
	if err != nil {
		return proposalView{}, err
	}
	return proposalView{
		ID:         record.ID,
		Category:   record.Category.String(),
		Payload:    registry.FormatPayload(record.Category, record.Payload),
		Proposer:   record.Proposer,
		Created:    p.Created,
		Start:      p.Start,
		Deadline:   p.Deadline,
		Snapshot:   p.Snapshot,
		State:      state,
		StateName:  state.String(),
		Tally:      p.Tally,
		Voters:     len(p.Voters),
		Turnout:    turnout,
		Executed:   p.Executed,
		ExecutedAt: p.ExecutedAt,
	}, nil
}

func (s *server) getProposals(w http.ResponseWriter, r *http.Request) {
	views := []proposalView{}
	for _, record := range s.conductor.Registry().Proposals() {
		v, err := s.view(record)
		if err != nil {
			writeError(w, err)
			return
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *server) getProposal(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	record, ok := s.conductor.Registry().Record(id)
	if !ok {
		writeError(w, fmt.Errorf("%w: %s", registry.ErrNotFound, id))
		return
	}
	v, err := s.view(record)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *server) getProposalState(w http.ResponseWriter, r *http.Request) {
	state, err := s.conductor.Governor().State(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateView{State: state, Name: state.String()})
}

func (s *server) getProposalID(w http.ResponseWriter, r *http.Request) {
	category, err := registry.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := registry.GetProposalID(category, r.URL.Query().Get("payload"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// height returns the height query parameter, or the current height if there isn't one.
func (s *server) height(r *http.Request) (int64, error) {
	h := r.URL.Query().Get("height")
	if len(h) == 0 {
		return s.conductor.Chain().Height(), nil
	}
	height, err := cast.ToInt64E(h)
	if err != nil || height < 0 {
		return 0, fmt.Errorf("%w: height %q", errBadRequest, h)
	}
	return height, nil
}

func (s *server) getVotes(w http.ResponseWriter, r *http.Request) {
	height, err := s.height(r)
	if err != nil {
		writeError(w, err)
		return
	}
	account := mux.Vars(r)["account"]
	votes, err := s.conductor.Governor().GetVotes(account, height)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"height": height, "votes": votes})
}

func (s *server) getBalance(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	writeJSON(w, http.StatusOK, map[string]int64{
		"balance":     s.conductor.Ledger().BalanceOf(account),
		"contributed": s.conductor.Registry().Contributed(account),
		"sequence":    s.conductor.Sequences().Current(account),
	})
}

func (s *server) getCanonicalList(w http.ResponseWriter, r *http.Request) {
	category, err := registry.ParseCategory(mux.Vars(r)["category"])
	if err != nil {
		writeError(w, err)
		return
	}
	reg := s.conductor.Registry()
	view := canonicalView{Category: category.String(), Entries: []string{}, Root: reg.Root()}
	for i := int64(0); i < reg.CanonicalLen(category); i++ {
		entry, err := reg.Canonical(category, i)
		if err != nil {
			writeError(w, err)
			return
		}
		view.Entries = append(view.Entries, entry)
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *server) getCanonical(w http.ResponseWriter, r *http.Request) {
	category, err := registry.ParseCategory(mux.Vars(r)["category"])
	if err != nil {
		writeError(w, err)
		return
	}
	index, err := cast.ToInt64E(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, fmt.Errorf("%w: index %q", errBadRequest, mux.Vars(r)["index"]))
		return
	}
	entry, err := s.conductor.Registry().Canonical(category, index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"category": category.String(), "entry": entry})
}

func (s *server) getGovernor(w http.ResponseWriter, r *http.Request) {
	g := s.conductor.Governor()
	height := s.conductor.Chain().Height()
	quorum, err := g.Quorum(height)
	if err != nil {
		writeError(w, err)
		return
	}
	c := g.Config()
	writeJSON(w, http.StatusOK, governorView{
		VotingDelay:    c.Delay,
		VotingPeriod:   c.Period,
		QuorumPermille: c.QuorumPermille,
		QuorumMinimum:  c.QuorumMinimum,
		Quorum:         quorum,
		Height:         height,
		Kinds:          comicdao.GetAllKinds(),
	})
}

func (s *server) getTip(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.conductor.Chain().Tip())
}

func (s *server) getState(w http.ResponseWriter, r *http.Request) {
	hashes := make(map[string]string)
	for mind, hs := range s.conductor.Hashes() {
		hashes[mind] = hs.Hash
	}
	writeJSON(w, http.StatusOK, hashes)
}
