/*
Package api is the HTTP and WebSocket boundary. Signed events come in through POST /events or a websocket
and are handed to the Conductor; everything else is a read only view of the current state.
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/cors"

	"comicdao/comicdao"
	"comicdao/consensus/conductor"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type server struct {
	conductor *conductor.Conductor
}

// NewRouter returns the handler for every route, wrapped in a permissive CORS policy for the frontend.
func NewRouter(c *conductor.Conductor) http.Handler {
	s := &server{conductor: c}
	router := mux.NewRouter()
	// catch the websocket call before anything else
	router.Path("/ws").HandlerFunc(s.handleWebsocket)
	router.Path("/events").Methods(http.MethodPost).HandlerFunc(s.postEvent)
	router.Path("/proposals").Methods(http.MethodGet).HandlerFunc(s.getProposals)
	router.Path("/proposals/{id}").Methods(http.MethodGet).HandlerFunc(s.getProposal)
	router.Path("/proposals/{id}/state").Methods(http.MethodGet).HandlerFunc(s.getProposalState)
	router.Path("/proposal-id").Methods(http.MethodGet).HandlerFunc(s.getProposalID)
	router.Path("/accounts/{account}/votes").Methods(http.MethodGet).HandlerFunc(s.getVotes)
	router.Path("/accounts/{account}/balance").Methods(http.MethodGet).HandlerFunc(s.getBalance)
	router.Path("/registry/{category}").Methods(http.MethodGet).HandlerFunc(s.getCanonicalList)
	router.Path("/registry/{category}/{index}").Methods(http.MethodGet).HandlerFunc(s.getCanonical)
	router.Path("/governor").Methods(http.MethodGet).HandlerFunc(s.getGovernor)
	router.Path("/tip").Methods(http.MethodGet).HandlerFunc(s.getTip)
	router.Path("/state").Methods(http.MethodGet).HandlerFunc(s.getState)
	return cors.Default().Handler(router)
}

// Start serves the API on addr until terminate is closed.
func Start(c *conductor.Conductor, addr string, terminate chan struct{}, wg *sync.WaitGroup) {
	srv := &http.Server{
		Handler:           NewRouter(c),
		Addr:              addr,
		WriteTimeout:      10 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		comicdao.LogCLI(fmt.Sprintf("API listening on %s", srv.Addr), 4)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			comicdao.LogCLI(err.Error(), 0)
		}
	}()
	go func() {
		defer wg.Done()
		<-terminate
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			comicdao.LogCLI(err.Error(), 2)
		}
		comicdao.LogCLI("API has shut down", 4)
	}()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		comicdao.LogCLI(err.Error(), 3)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}
