package walletcore

import (
	"context"

	"github.com/klingon-exchange/custodial-wallet/internal/codec"
	"github.com/klingon-exchange/custodial-wallet/internal/store"
	"github.com/klingon-exchange/custodial-wallet/internal/walleterr"
)

// CreateOrImportAccount implements spec §4.4.2: under the process-wide
// account-creation lock, validate the name, check uniqueness, obtain a
// (privkey, pubkeyhash) pair either from the keyseeder daemon (wif ==
// "") or by decoding a user-supplied WIF against every configured
// coin's privkey_version, then index the account's addresses on every
// configured coin.
func (c *Core) CreateOrImportAccount(ctx context.Context, managerID, user, wif string) (*store.Account, error) {
	c.createLock.Lock()
	defer c.createLock.Unlock()

	if err := store.ValidateAccountName(user); err != nil {
		return nil, err
	}
	existing, err := c.Wallet.AccountByManagerAndUser(ctx, managerID, user)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, walleterr.Newf(walleterr.AccountExistsException, "account %q already exists for this manager", user)
	}

	privKey, pubKeyHash, err := c.obtainKey(ctx, wif)
	if err != nil {
		return nil, err
	}

	iv, encryptedKey, err := encryptPrivKey(c.encryptionKey, privKey)
	if err != nil {
		return nil, err
	}

	account, err := c.Wallet.CreateAccount(ctx, managerID, user, iv, encryptedKey, pubKeyHash)
	if err != nil {
		return nil, err
	}

	if err := c.indexAccountAddresses(ctx, account, pubKeyHash); err != nil {
		// Roll back the wallet-DB insert; coin-DB address imports are
		// idempotent (INSERT OR IGNORE) so nothing there needs undoing.
		_ = c.Wallet.DeleteAccount(ctx, account.ID)
		return nil, err
	}

	return account, nil
}

// obtainKey returns a raw 32-byte private key and its pubkeyhash,
// either freshly minted by the keyseeder (wif == "") or decoded from a
// caller-supplied WIF tried against every configured coin's
// privkey_version in turn.
func (c *Core) obtainKey(ctx context.Context, wif string) (privKey, pubKeyHash []byte, err error) {
	if wif == "" {
		return c.seedNewKey(ctx)
	}
	return c.importWIF(wif)
}

// seedNewKey asks any one configured coin's daemon (they all share a
// keyseeder-style getnewaddress/dumpprivkey pair per spec §4.4.2) for
// a fresh address, then dumps and decodes its private key.
func (c *Core) seedNewKey(ctx context.Context) (privKey, pubKeyHash []byte, err error) {
	for ticker := range c.Daemons {
		daemon := c.Daemons[ticker]
		address, err := daemon.GetNewAddress(ctx)
		if err != nil {
			continue
		}
		wif, err := daemon.DumpPrivKey(ctx, address)
		if err != nil {
			continue
		}
		return c.importWIF(wif)
	}
	return nil, nil, walleterr.New(walleterr.CoinNotDefined, "no keyseeder-capable coin daemon is configured")
}

// importWIF tries every configured coin's privkey_version until one
// decodes the WIF, per spec §4.4.2 step 3.
func (c *Core) importWIF(wif string) (privKey, pubKeyHash []byte, err error) {
	_, scalar, _, decErr := codec.DecodeWIF(wif)
	if decErr != nil {
		return nil, nil, decErr
	}
	found := false
	for _, co := range c.Coins {
		if v, _, _, vErr := codec.DecodeWIF(wif); vErr == nil && v == co.PrivkeyVersion {
			found = true
			break
		}
	}
	if !found {
		return nil, nil, walleterr.New(walleterr.InvalidEncoding, "WIF version byte does not match any configured coin")
	}
	hash, err := pubKeyHashFromScalar(scalar)
	if err != nil {
		return nil, nil, err
	}
	return scalar, hash, nil
}

// indexAccountAddresses computes, for every configured coin, the
// address list this pubkeyhash must be indexed under, imports each
// into that coin's indexer DB, and inserts an AccountAddress row.
func (c *Core) indexAccountAddresses(ctx context.Context, account *store.Account, pubKeyHash []byte) error {
	for ticker, co := range c.Coins {
		idx, err := c.indexerFor(ticker)
		if err != nil {
			return err
		}
		addresses, err := co.IndexAddresses(pubKeyHash)
		if err != nil {
			return err
		}
		for _, address := range addresses {
			addressID, err := idx.ImportAddress(ctx, address)
			if err != nil {
				return err
			}
			if _, err := c.Wallet.AddAccountAddress(ctx, account.ID, ticker, addressID); err != nil {
				return err
			}
		}
	}
	return nil
}
