// Package coin defines the per-chain parameters ("coins") this wallet
// supports and the address classification logic built from them. The
// consensus-level parameters (version bytes, SegWit variant) are
// registered once at process startup and are read-only thereafter;
// the operational parameters (RPC endpoint, database name, fee
// subsidy flag) come from configuration and are merged in to build a
// usable Coin value.
package coin

import (
	"github.com/klingon-exchange/custodial-wallet/internal/codec"
	"github.com/klingon-exchange/custodial-wallet/internal/walleterr"
)

// Network distinguishes mainnet parameter sets from testnet ones.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// TxOutType enumerates the output script types this system produces
// or recognizes, matching AutomaticPayment.txout_type_id.
type TxOutType string

const (
	P2PKH  TxOutType = "P2PKH"
	P2SH   TxOutType = "P2SH"
	P2WPKH TxOutType = "P2WPKH"
)

// SegWitKind discriminates the three SegWit variants a coin may use.
// Modeled as a tagged variant (Kind plus the fields relevant to that
// kind) rather than an interface, since every consumer needs to
// switch on it by value and the field sets are small.
type SegWitKind int

const (
	SegWitNone SegWitKind = iota
	SegWitVersionByte
	SegWitBech32
)

// SegWitVariant describes how (or whether) a coin encodes SegWit
// addresses.
//
//   - None: the coin has no SegWit deployment (e.g. Dogecoin).
//   - VersionByte: nested SegWit, base58-wrapped under VersionByte;
//     ReceiveOnly is always true for this variant per spec.
//   - Bech32: native SegWit under the given human-readable Prefix;
//     ReceiveOnly is always false for this variant per spec.
type SegWitVariant struct {
	Kind        SegWitKind
	VersionByte byte
	Prefix      string
	ReceiveOnly bool
}

// ConsensusParams holds the hardcoded, per-chain constants that never
// vary with configuration: address version bytes and SegWit encoding.
type ConsensusParams struct {
	Symbol              string
	Name                string
	AddressVersion      byte
	P2SHAddressVersion  byte
	PrivkeyVersion      byte
	SegWit              SegWitVariant
}

// Coin is the runtime (non-persisted) view of a configured chain:
// ConsensusParams merged with the operational values that come from
// configuration.
type Coin struct {
	ConsensusParams
	DBName         string
	RPCHost        string
	RPCPort        int
	AllowTxSubsidy bool
}

var registry = make(map[string]map[Network]*ConsensusParams)

// Register adds a chain's consensus parameters to the registry. Meant
// to be called only from package init() functions, one per coin file,
// matching the one-file-per-coin convention.
func Register(network Network, params *ConsensusParams) {
	if registry[params.Symbol] == nil {
		registry[params.Symbol] = make(map[Network]*ConsensusParams)
	}
	registry[params.Symbol][network] = params
}

// Get returns the registered consensus parameters for a ticker and
// network.
func Get(symbol string, network Network) (*ConsensusParams, bool) {
	nets, ok := registry[symbol]
	if !ok {
		return nil, false
	}
	p, ok := nets[network]
	return p, ok
}

// List returns every registered ticker symbol.
func List() []string {
	symbols := make([]string, 0, len(registry))
	for symbol := range registry {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// New builds a Coin by looking up symbol/network in the registry and
// merging in the supplied operational parameters. Returns
// CoinNotDefined if the ticker isn't registered for that network.
func New(symbol string, network Network, dbName, rpcHost string, rpcPort int, allowTxSubsidy bool) (*Coin, error) {
	params, ok := Get(symbol, network)
	if !ok {
		return nil, walleterr.Newf(walleterr.CoinNotDefined, "coin %q is not registered for network %q", symbol, network)
	}
	return &Coin{
		ConsensusParams: *params,
		DBName:          dbName,
		RPCHost:         rpcHost,
		RPCPort:         rpcPort,
		AllowTxSubsidy:  allowTxSubsidy,
	}, nil
}

// IndexAddresses returns every address this pubkeyhash must be
// indexed under for this coin: always the legacy base58 address, plus
// the SegWit address when the coin's SegWit variant is not
// receive-only.
func (c *Coin) IndexAddresses(pubkeyHash []byte) ([]string, error) {
	legacy, err := codec.EncodeBase58Address(c.AddressVersion, pubkeyHash)
	if err != nil {
		return nil, err
	}
	addrs := []string{legacy}
	if c.SegWit.Kind != SegWitNone && !c.SegWit.ReceiveOnly {
		segwit, err := c.segwitAddress(pubkeyHash)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, segwit)
	}
	return addrs, nil
}

// DefaultReceiveAddress returns the address to hand out to payers:
// the SegWit form when the coin defines one, else the legacy address.
func (c *Coin) DefaultReceiveAddress(pubkeyHash []byte) (string, error) {
	if c.SegWit.Kind != SegWitNone {
		return c.segwitAddress(pubkeyHash)
	}
	return codec.EncodeBase58Address(c.AddressVersion, pubkeyHash)
}

func (c *Coin) segwitAddress(pubkeyHash []byte) (string, error) {
	switch c.SegWit.Kind {
	case SegWitVersionByte:
		return codec.EncodeBase58Address(c.SegWit.VersionByte, pubkeyHash)
	case SegWitBech32:
		return codec.EncodeBech32Address(c.SegWit.Prefix, pubkeyHash)
	default:
		return "", walleterr.New(walleterr.CoinNotDefined, "coin has no SegWit variant")
	}
}

// DecodeAddressAndType classifies an address for this coin, trying
// legacy P2PKH, then P2SH, then (if defined) SegWit P2WPKH, in that
// order; the first successful decode wins. ok is false if none of the
// three decodings succeed.
func (c *Coin) DecodeAddressAndType(address string) (pubkeyHash []byte, txOutType TxOutType, ok bool) {
	if h, err := codec.DecodeBase58Address(address, c.AddressVersion); err == nil {
		return h, P2PKH, true
	}
	if h, err := codec.DecodeBase58Address(address, c.P2SHAddressVersion); err == nil {
		return h, P2SH, true
	}
	switch c.SegWit.Kind {
	case SegWitBech32:
		if h, err := codec.DecodeBech32Address(address, c.SegWit.Prefix); err == nil {
			return h, P2WPKH, true
		}
	case SegWitVersionByte:
		if h, err := codec.DecodeBase58Address(address, c.SegWit.VersionByte); err == nil {
			return h, P2WPKH, true
		}
	}
	return nil, "", false
}
