package walletcore

import (
	"context"

	"github.com/klingon-exchange/custodial-wallet/internal/coin"
	"github.com/klingon-exchange/custodial-wallet/internal/walleterr"
)

// DestinationKind discriminates the two ways a send can name where the
// funds go, per spec §9's tagged-variant design note.
type DestinationKind int

const (
	// DestinationAddress names a raw on-chain address.
	DestinationAddress DestinationKind = iota
	// DestinationAccount names another custodial account under the
	// same manager.
	DestinationAccount
)

// Destination is the tagged variant `Address{address} |
// Account{user, allowCreateNew}` of spec §9.
type Destination struct {
	Kind           DestinationKind
	Address        string
	User           string
	AllowCreateNew bool
}

// resolve turns a Destination into the pubkeyhash/output-type pair a
// transaction output is built from, creating the destination account
// if it's missing and AllowCreateNew was set.
func (c *Core) resolve(ctx context.Context, managerID string, dest Destination, ticker string) (pubKeyHash []byte, outType coin.TxOutType, err error) {
	co, err := c.coinFor(ticker)
	if err != nil {
		return nil, "", err
	}

	switch dest.Kind {
	case DestinationAddress:
		hash, t, ok := co.DecodeAddressAndType(dest.Address)
		if !ok {
			return nil, "", walleterr.Newf(walleterr.InvalidEncoding, "address %q does not decode under coin %q", dest.Address, ticker)
		}
		return hash, t, nil

	case DestinationAccount:
		account, lookupErr := c.Wallet.AccountByManagerAndUser(ctx, managerID, dest.User)
		if lookupErr != nil {
			return nil, "", lookupErr
		}
		if account == nil {
			if !dest.AllowCreateNew {
				return nil, "", walleterr.Newf(walleterr.AccountNotFoundException, "destination account %q does not exist", dest.User)
			}
			account, lookupErr = c.CreateOrImportAccount(ctx, managerID, dest.User, "")
			if lookupErr != nil {
				return nil, "", lookupErr
			}
		}
		// The destination account receives at its coin-default address
		// (SegWit-preferred when the coin defines one). For a coin whose
		// SegWit form is receive-only, that address is not among its
		// IndexAddresses entries.
		defaultAddr, addrErr := co.DefaultReceiveAddress(account.PubKeyHash)
		if addrErr != nil {
			return nil, "", addrErr
		}
		hash, t, ok := co.DecodeAddressAndType(defaultAddr)
		if !ok {
			return nil, "", walleterr.Newf(walleterr.InvalidEncoding, "default receive address %q does not decode under coin %q", defaultAddr, ticker)
		}
		return hash, t, nil

	default:
		return nil, "", walleterr.New(walleterr.InvalidTransactionOutputType, "unknown destination kind")
	}
}
