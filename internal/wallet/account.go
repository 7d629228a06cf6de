package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/external"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type KeyAccount struct {
	key *ecdsa.PrivateKey
}

func NewKeyAccount(hexKey string) (*KeyAccount, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &KeyAccount{key: key}, nil
}

func (a *KeyAccount) Address() ecommon.Address {
	return crypto.PubkeyToAddress(a.key.PublicKey)
}

func (a *KeyAccount) SignTx(_ context.Context, tx *etypes.Transaction, chainID *big.Int) (*etypes.Transaction, error) {
	return etypes.SignTx(tx, etypes.LatestSignerForChainID(chainID), a.key)
}

type KeystoreAccount struct {
	ks      *keystore.KeyStore
	account accounts.Account
}

// NewKeystoreAccount unlocks address in the keystore directory for the lifetime of the process.
func NewKeystoreAccount(dir, address, passphrase string, scryptN, scryptP int) (*KeystoreAccount, error) {
	if !ecommon.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid keystore address: %q", address)
	}

	ks := keystore.NewKeyStore(dir, scryptN, scryptP)
	account, err := ks.Find(accounts.Account{Address: ecommon.HexToAddress(address)})
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s in %s: %w", address, dir, err)
	}

	err = ks.Unlock(account, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to unlock account %s: %w", address, err)
	}

	return &KeystoreAccount{
		ks:      ks,
		account: account,
	}, nil
}

func (a *KeystoreAccount) Address() ecommon.Address {
	return a.account.Address
}

func (a *KeystoreAccount) SignTx(_ context.Context, tx *etypes.Transaction, chainID *big.Int) (*etypes.Transaction, error) {
	return a.ks.SignTx(a.account, tx, chainID)
}

// ExternalAccount delegates signing to a clef instance. Every SignTx waits for the user to
// approve or reject the request in clef.
type ExternalAccount struct {
	signer  *external.ExternalSigner
	account accounts.Account
}

func NewExternalAccount(endpoint string) (*ExternalAccount, error) {
	signer, err := external.NewExternalSigner(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to external signer: %w", err)
	}

	accs := signer.Accounts()
	if len(accs) == 0 {
		return nil, errors.New("external signer has no accounts")
	}

	return &ExternalAccount{
		signer:  signer,
		account: accs[0],
	}, nil
}

func (a *ExternalAccount) Address() ecommon.Address {
	return a.account.Address
}

func (a *ExternalAccount) SignTx(_ context.Context, tx *etypes.Transaction, chainID *big.Int) (*etypes.Transaction, error) {
	return a.signer.SignTx(a.account, tx, chainID)
}
