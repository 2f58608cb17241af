package comicdao

import (
	"fmt"

	"github.com/sasha-s/go-deadlock"
)

var validKinds = make(map[int64]string)
var kindsMutex = &deadlock.Mutex{}

// RegisterMind registers the event kinds handled by a component so that events can be routed.
func RegisterMind(kinds []int64, mind string) error {
	kindsMutex.Lock()
	defer kindsMutex.Unlock()
	for _, kind := range kinds {
		if _mind, ok := validKinds[kind]; ok {
			return fmt.Errorf("kind %d has already been registered by %s", kind, _mind)
		}
	}
	for _, kind := range kinds {
		validKinds[kind] = mind
	}
	return nil
}

func WhichMindForKind(kind int64) (string, bool) {
	kindsMutex.Lock()
	defer kindsMutex.Unlock()
	mind, ok := validKinds[kind]
	return mind, ok
}

func GetAllKinds() map[int64]string {
	kindsMutex.Lock()
	defer kindsMutex.Unlock()
	m := make(map[int64]string, len(validKinds))
	for k, v := range validKinds {
		m[k] = v
	}
	return m
}
