/*
Package database is the flat file store shared by every component. Each component writes its state
under <rootDir>/<flatFileDir>/<mind>/ with "current" holding the latest state and hashed snapshots
alongside it.
*/
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	dircopy "github.com/otiai10/copy"
	"github.com/sasha-s/go-deadlock"

	"comicdao/comicdao"
)

var mutex = &deadlock.Mutex{}

func root() string {
	c := comicdao.MakeOrGetConfig()
	return filepath.Join(c.GetString("rootDir"), c.GetString("flatFileDir"))
}

func path(mind, name string) string {
	return filepath.Join(root(), mind, name)
}

// Open returns the file for mind/name. It returns false if the file does not exist.
func Open(mind, name string) (*os.File, bool) {
	mutex.Lock()
	defer mutex.Unlock()
	f, err := os.Open(path(mind, name))
	if err != nil {
		if !os.IsNotExist(err) {
			comicdao.LogCLI(err.Error(), 2)
		}
		return nil, false
	}
	return f, true
}

// Write replaces mind/name with b. The file is written to a temporary name first and renamed so a
// reader never sees a partial state.
func Write(mind, name string, b []byte) error {
	mutex.Lock()
	defer mutex.Unlock()
	dir := filepath.Join(root(), mind)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp := path(mind, name) + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return fmt.Errorf("writing %s/%s: %w", mind, name, err)
	}
	return os.Rename(tmp, path(mind, name))
}

// Backup copies the whole data directory to <rootDir>/backups/<unix time> and returns the path.
func Backup(t time.Time) (string, error) {
	mutex.Lock()
	defer mutex.Unlock()
	if _, err := os.Stat(root()); os.IsNotExist(err) {
		return "", fmt.Errorf("nothing to back up at %s", root())
	}
	dest := filepath.Join(comicdao.MakeOrGetConfig().GetString("rootDir"), "backups", fmt.Sprintf("%d", t.Unix()))
	if err := dircopy.Copy(root(), dest); err != nil {
		return "", fmt.Errorf("backing up %s: %w", root(), err)
	}
	return dest, nil
}
