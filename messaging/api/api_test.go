package api

import (
	"bytes"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comicdao/comicdao"
	"comicdao/consensus/conductor"
	"comicdao/consensus/governor"
	"comicdao/consensus/registry"
)

const writer = "0x07Aeeb7E544A070a2553e142828fb30c214a1F86"

type signer struct {
	key     string
	account comicdao.Account
	seq     int64
}

func newSigner(t *testing.T) *signer {
	pk, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	key := hex.EncodeToString(pk.Serialize())
	account, err := comicdao.GetPubKey(key)
	require.NoError(t, err)
	return &signer{key: key, account: account}
}

func (s *signer) sign(t *testing.T, kind int64, content any) []byte {
	s.seq++
	e, err := comicdao.SignEvent(s.key, kind, content, s.seq, time.Unix(1667239800+s.seq, 0))
	require.NoError(t, err)
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return b
}

func newTestServer(t *testing.T) (*httptest.Server, *conductor.Conductor) {
	c, err := conductor.New(comicdao.NewChain(0), governor.VotingConfig{Period: 2, QuorumPermille: 40}, 1000)
	require.NoError(t, err)
	require.NoError(t, c.Wire())
	srv := httptest.NewServer(NewRouter(c))
	t.Cleanup(srv.Close)
	return srv, c
}

func post(t *testing.T, srv *httptest.Server, body []byte) (int, eventResponse) {
	resp, err := http.Post(srv.URL+"/events", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var er eventResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&er))
	return resp.StatusCode, er
}

func get(t *testing.T, srv *httptest.Server, path string, v any) int {
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestProposalFlow(t *testing.T) {
	srv, c := newTestServer(t)
	s1 := newSigner(t)

	status, resp := post(t, srv, s1.sign(t, conductor.KindContribute, conductor.Kind650100{Amount: 100}))
	require.Equal(t, http.StatusOK, status, resp.Message)
	assert.True(t, resp.Accepted)
	assert.Equal(t, "ledger", resp.Mind)

	status, _ = post(t, srv, s1.sign(t, conductor.KindCreateProposal, conductor.Kind650200{Category: "writer", Payload: writer}))
	require.Equal(t, http.StatusOK, status)

	var idResp map[string]string
	require.Equal(t, http.StatusOK, get(t, srv, "/proposal-id?category=writer&payload="+strings.ToLower(writer), &idResp))
	id := idResp["id"]
	expected, err := registry.GetProposalID(registry.Writer, writer)
	require.NoError(t, err)
	assert.Equal(t, expected, id)

	status, _ = post(t, srv, s1.sign(t, conductor.KindCastVote, conductor.Kind650300{Proposal: id, Support: governor.For}))
	require.Equal(t, http.StatusOK, status)

	var state stateView
	require.Equal(t, http.StatusOK, get(t, srv, "/proposals/"+id+"/state", &state))
	assert.Equal(t, governor.Active, state.State)
	assert.Equal(t, "Active", state.Name)

	for i := 0; i < 3; i++ {
		c.Mine(time.Unix(int64(1667240000+i), 0))
	}
	status, resp = post(t, srv, s1.sign(t, conductor.KindExecuteProposal, conductor.Kind650202{Category: "writer", Payload: writer}))
	require.Equal(t, http.StatusOK, status, resp.Message)

	var proposals []proposalView
	require.Equal(t, http.StatusOK, get(t, srv, "/proposals", &proposals))
	require.Len(t, proposals, 1)
	assert.Equal(t, writer, proposals[0].Payload)
	assert.Equal(t, "writer", proposals[0].Category)
	assert.Equal(t, governor.Executed, proposals[0].State)
	assert.Equal(t, governor.Tally{For: 100}, proposals[0].Tally)
	assert.Equal(t, governor.Turnout{Voters: 1, Cast: 100, Supply: 100, Permille: 1000, MedianWeight: 100, MeanWeight: 100},
		proposals[0].Turnout)

	var entry map[string]string
	require.Equal(t, http.StatusOK, get(t, srv, "/registry/writer/0", &entry))
	assert.Equal(t, writer, entry["entry"])
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/registry/writer/1", nil))

	var list canonicalView
	require.Equal(t, http.StatusOK, get(t, srv, "/registry/0", &list))
	assert.Equal(t, []string{writer}, list.Entries)
	assert.NotEmpty(t, list.Root)

	var votes map[string]int64
	require.Equal(t, http.StatusOK, get(t, srv, "/accounts/"+s1.account+"/votes?height=0", &votes))
	assert.Equal(t, int64(100), votes["votes"])

	var balance map[string]int64
	require.Equal(t, http.StatusOK, get(t, srv, "/accounts/"+s1.account+"/balance", &balance))
	assert.Equal(t, int64(100), balance["balance"])
	assert.Equal(t, int64(4), balance["sequence"])

	var tip comicdao.BlockHeader
	require.Equal(t, http.StatusOK, get(t, srv, "/tip", &tip))
	assert.Equal(t, int64(3), tip.Height)

	var gov governorView
	require.Equal(t, http.StatusOK, get(t, srv, "/governor", &gov))
	assert.Equal(t, int64(2), gov.VotingPeriod)
	assert.Equal(t, int64(4), gov.Quorum)
	assert.Equal(t, "governor", gov.Kinds[conductor.KindCastVote])
	assert.Equal(t, "registry", gov.Kinds[conductor.KindCreateProposal])

	var hashes map[string]string
	require.Equal(t, http.StatusOK, get(t, srv, "/state", &hashes))
	assert.Len(t, hashes, 4)
}

func TestProposalTurnout(t *testing.T) {
	srv, _ := newTestServer(t)
	s1, s2, s3 := newSigner(t), newSigner(t), newSigner(t)
	for _, s := range []struct {
		signer *signer
		amount int64
	}{{s1, 60}, {s2, 30}, {s3, 10}} {
		status, resp := post(t, srv, s.signer.sign(t, conductor.KindContribute, conductor.Kind650100{Amount: s.amount}))
		require.Equal(t, http.StatusOK, status, resp.Message)
	}
	status, _ := post(t, srv, s1.sign(t, conductor.KindCreateProposal, conductor.Kind650200{Category: "concept", Payload: "ipfs_uri"}))
	require.Equal(t, http.StatusOK, status)
	id, err := registry.GetProposalID(registry.Concept, "ipfs_uri")
	require.NoError(t, err)

	var before proposalView
	require.Equal(t, http.StatusOK, get(t, srv, "/proposals/"+id, &before))
	assert.Equal(t, governor.Turnout{Supply: 100}, before.Turnout)

	status, _ = post(t, srv, s1.sign(t, conductor.KindCastVote, conductor.Kind650300{Proposal: id, Support: governor.For}))
	require.Equal(t, http.StatusOK, status)
	status, _ = post(t, srv, s3.sign(t, conductor.KindCastVote, conductor.Kind650300{Proposal: id, Support: governor.Abstain}))
	require.Equal(t, http.StatusOK, status)

	var after proposalView
	require.Equal(t, http.StatusOK, get(t, srv, "/proposals/"+id, &after))
	assert.Equal(t, "ipfs_uri", after.Payload)
	assert.Equal(t, 2, after.Turnout.Voters)
	assert.Equal(t, int64(70), after.Turnout.Cast)
	assert.Equal(t, int64(700), after.Turnout.Permille)
	assert.Equal(t, 35.0, after.Turnout.MedianWeight)
	assert.Equal(t, 35.0, after.Turnout.MeanWeight)
}

func TestRejectedEvents(t *testing.T) {
	srv, _ := newTestServer(t)
	s1 := newSigner(t)

	status, resp := post(t, srv, []byte("not json"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, resp.Accepted)

	body := s1.sign(t, conductor.KindContribute, conductor.Kind650100{Amount: 1})
	tampered := bytes.Replace(body, []byte(`\"amount\":1`), []byte(`\"amount\":9`), 1)
	require.NotEqual(t, body, tampered)
	status, resp = post(t, srv, tampered)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, resp.Accepted)

	status, _ = post(t, srv, body)
	assert.Equal(t, http.StatusOK, status)

	status, resp = post(t, srv, s1.sign(t, conductor.KindCastVote, conductor.Kind650300{Proposal: "missing", Support: governor.For}))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, resp.Message, "unknown proposal")

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/proposals/missing", nil))
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/proposals/missing/state", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/proposal-id?category=editor&payload=x", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/proposal-id?category=writer&payload=0x12", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/accounts/x/votes?height=soon", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/registry/concept/first", nil))
}

func TestWebsocket(t *testing.T) {
	srv, c := newTestServer(t)
	s1 := newSigner(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	send := func(frame []byte) []interface{} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, reply, err := conn.ReadMessage()
		require.NoError(t, err)
		var decoded []interface{}
		require.NoError(t, json.Unmarshal(reply, &decoded))
		return decoded
	}

	event := s1.sign(t, conductor.KindContribute, conductor.Kind650100{Amount: 5})
	reply := send([]byte(`["EVENT",` + string(event) + `]`))
	require.Len(t, reply, 4)
	assert.Equal(t, "OK", reply[0])
	assert.Equal(t, true, reply[2])
	assert.Equal(t, int64(5), c.Ledger().BalanceOf(s1.account))

	reply = send([]byte(`["EVENT",` + string(event) + `]`))
	assert.Equal(t, "OK", reply[0])
	assert.Equal(t, false, reply[2])
	assert.Contains(t, reply[3], "sequence")

	reply = send([]byte(`["REQ","sub"]`))
	assert.Equal(t, "NOTICE", reply[0])
	reply = send([]byte(`"hello"`))
	assert.Equal(t, "NOTICE", reply[0])
}
