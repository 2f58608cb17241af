package comicdao

import (
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stackerstan/go-nostr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is a signed transaction. Every mutating operation enters the system as one of these.
type Event struct {
	ID          string
	PubKey      string
	CreatedAt   time.Time
	Kind        int64
	Tags        nostr.Tags
	Content     string
	Sig         string
	WitnessedAt int64 //the height when we first witnessed this event
}

// ConvertToInternalEvent parses a nostr event and converts it to a locally Typed event
func ConvertToInternalEvent(evt *nostr.Event) Event {
	return Event{
		ID:        evt.ID,
		PubKey:    evt.PubKey,
		CreatedAt: evt.CreatedAt,
		Kind:      int64(evt.Kind),
		Tags:      evt.Tags,
		Content:   evt.Content,
		Sig:       evt.Sig,
	}
}

func (e *Event) Nostr() nostr.Event {
	return nostr.Event{
		ID:        e.ID,
		PubKey:    e.PubKey,
		CreatedAt: e.CreatedAt,
		Kind:      int(e.Kind),
		Tags:      e.Tags,
		Content:   e.Content,
		Sig:       e.Sig,
	}
}

// CheckSignature returns true only if the ID commits to the event body and the signature is valid for PubKey.
func (e *Event) CheckSignature() (bool, error) {
	n := e.Nostr()
	if id := n.GetID(); id != e.ID {
		return false, fmt.Errorf("event id %s does not match content (%s)", e.ID, id)
	}
	return n.CheckSignature()
}

// GetSingleTag returns the value of the first tag that matches t string.
func (e *Event) GetSingleTag(t string) (value string, ok bool) {
	for _, tag := range e.Tags {
		if len(tag) > 1 && tag[0] == t && len(tag[1]) > 0 {
			return tag[1], true
		}
	}
	return
}

// Sequence returns the signer's sequence number for this event, 0 if the tag is missing.
func (e *Event) Sequence() int64 {
	if seq, ok := e.GetSingleTag("sequence"); ok {
		if s, err := strconv.ParseInt(seq, 10, 64); err == nil {
			return s
		}
	}
	return 0
}

// Unmarshal decodes the event content into v.
func (e *Event) Unmarshal(v interface{}) error {
	return json.Unmarshal([]byte(e.Content), v)
}

// SignEvent builds and signs an event of the given kind with content marshalled to JSON.
func SignEvent(privateKey string, kind int64, content interface{}, sequence int64, createdAt time.Time) (nostr.Event, error) {
	pubkey, err := GetPubKey(privateKey)
	if err != nil {
		return nostr.Event{}, err
	}
	c, err := json.Marshal(content)
	if err != nil {
		return nostr.Event{}, err
	}
	e := nostr.Event{
		PubKey:    pubkey,
		CreatedAt: createdAt,
		Kind:      int(kind),
		Tags:      nostr.Tags{[]string{"sequence", strconv.FormatInt(sequence, 10)}},
		Content:   string(c),
	}
	e.ID = e.GetID()
	if err := e.Sign(privateKey); err != nil {
		return nostr.Event{}, fmt.Errorf("signing kind %d: %w", kind, err)
	}
	return e, nil
}
