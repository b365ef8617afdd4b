package walletcore

import (
	"context"

	"github.com/klingon-exchange/custodial-wallet/internal/codec"
	"github.com/klingon-exchange/custodial-wallet/internal/store"
	"github.com/klingon-exchange/custodial-wallet/internal/txbuilder"
)

// wifFor decrypts an account's private key and re-encodes it as a
// compressed WIF under ticker's privkey_version, the form the coin
// daemon's signrawtransactionwithkey expects.
func (c *Core) wifFor(account *store.Account, ticker string) (string, error) {
	co, err := c.coinFor(ticker)
	if err != nil {
		return "", err
	}
	privKey, err := decryptPrivKey(c.encryptionKey, account.IV, account.EncryptedKey)
	if err != nil {
		return "", err
	}
	return codec.EncodeWIF(co.PrivkeyVersion, privKey, true)
}

// signAndBroadcast drives a funded transaction through the
// Signed -> Broadcast states of spec §4.6: sign with the account's
// WIF via the coin daemon, then submit it.
func (c *Core) signAndBroadcast(ctx context.Context, account *store.Account, ticker string, funded *txbuilder.FundedTx) (*txbuilder.SignedTransaction, error) {
	daemon, err := c.daemonFor(ticker)
	if err != nil {
		return nil, err
	}
	wif, err := c.wifFor(account, ticker)
	if err != nil {
		return nil, err
	}
	signed, err := funded.Sign(ctx, daemon, wif)
	if err != nil {
		return nil, err
	}
	if err := signed.Broadcast(ctx, daemon); err != nil {
		return nil, err
	}
	return signed, nil
}
