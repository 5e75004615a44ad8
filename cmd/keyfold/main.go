package main

import (
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/keyfold/keyfold/cli"
	"github.com/keyfold/keyfold/vault"
)

const maxUnlockAttempts = 3

func main() {
	opts, err := vault.DefaultOptions()
	if err != nil {
		log.Fatal("could not resolve data directory", "err", err)
	}
	store, err := vault.Open(opts)
	if err != nil {
		log.Fatal("could not open vault store", "err", err)
	}

	if _, err := os.Stat(store.Path()); errors.Is(err, os.ErrNotExist) {
		log.Info("no vault found, setting up a new one", "path", store.Path())
		password, err := cli.ReadNewPassword()
		if err != nil {
			log.Fatal("setup failed", "err", err)
		}
		if err := store.Unlock(password); err != nil {
			log.Fatal("setup failed", "err", err)
		}
	} else {
		if !unlock(store) {
			log.Fatal("too many failed unlock attempts")
		}
	}
	defer store.Lock()

	p := tea.NewProgram(cli.New(store), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatal("terminal ui failed", "err", err)
	}
}

func unlock(store *vault.Store) bool {
	for i := 0; i < maxUnlockAttempts; i++ {
		password, err := cli.ReadPassword("Master password: ")
		if err != nil {
			log.Fatal("could not read password", "err", err)
		}
		err = store.Unlock(password)
		if err == nil {
			return true
		}
		if errors.Is(err, vault.ErrWrongPassword) || errors.Is(err, vault.ErrCorruptVault) {
			// The sentinel carries the diagnostic distinction; the user
			// sees one uniform message either way.
			log.Debug("unlock failed", "err", err)
			log.Error("could not unlock the vault, try again")
			continue
		}
		log.Fatal("could not unlock the vault", "err", err)
	}
	return false
}
