package comicdao

import (
	"fmt"
	"os"

	"github.com/nbd-wtf/go-nostr/nip06"
	"github.com/sasha-s/go-deadlock"
)

type Wallet struct {
	PrivateKey string
	SeedWords  string
	Account    Account
}

var currentWallet Wallet
var currentWalletMutex = &deadlock.Mutex{}

// MyWallet returns the current Wallet or creates a new one if there isn't one already
func MyWallet() Wallet {
	currentWalletMutex.Lock()
	defer currentWalletMutex.Unlock()
	if len(currentWallet.PrivateKey) == 0 {
		//try to restore wallet from disk
		if w, ok := getWalletFromDisk(); ok {
			currentWallet = w
		} else {
			LogCLI("Generating a new wallet, write down the seed words if you want to keep it", 4)
			w, err := makeNewWallet()
			if err != nil {
				LogCLI(err.Error(), 0)
				return Wallet{}
			}
			currentWallet = w
			fmt.Printf("\n\n~NEW WALLET~\nPublic Key: %s\nSeed Words: %s\n\n", currentWallet.Account, currentWallet.SeedWords)
			if err := persistCurrentWallet(); err != nil {
				LogCLI(err.Error(), 1)
			}
		}
	}
	return currentWallet
}

func makeNewWallet() (Wallet, error) {
	seedWords, err := nip06.GenerateSeedWords()
	if err != nil {
		return Wallet{}, err
	}
	return WalletFromSeedWords(seedWords)
}

// WalletFromSeedWords restores a wallet from its NIP-06 mnemonic.
func WalletFromSeedWords(seedWords string) (Wallet, error) {
	seed := nip06.SeedFromWords(seedWords)
	sk, err := nip06.PrivateKeyFromSeed(seed)
	if err != nil {
		return Wallet{}, err
	}
	account, err := GetPubKey(sk)
	if err != nil {
		return Wallet{}, err
	}
	return Wallet{
		PrivateKey: sk,
		SeedWords:  seedWords,
		Account:    account,
	}, nil
}

func walletPath() string {
	return MakeOrGetConfig().GetString("rootDir") + "wallet.dat"
}

func persistCurrentWallet() error {
	b, err := json.Marshal(currentWallet)
	if err != nil {
		return err
	}
	return os.WriteFile(walletPath(), b, 0600)
}

func getWalletFromDisk() (w Wallet, ok bool) {
	file, err := os.ReadFile(walletPath())
	if err != nil {
		LogCLI(fmt.Sprintf("Error getting wallet file: %s", err.Error()), 3)
		return Wallet{}, false
	}
	err = json.Unmarshal(file, &w)
	if err != nil {
		LogCLI(fmt.Sprintf("Error parsing wallet file: %s", err.Error()), 3)
		return Wallet{}, false
	}
	return w, true
}
