package coin

func init() {
	Register(Mainnet, &ConsensusParams{
		Symbol:             "DOGE",
		Name:               "Dogecoin",
		AddressVersion:     0x1e,
		P2SHAddressVersion: 0x16,
		PrivkeyVersion:     0x9e,
		SegWit: SegWitVariant{
			Kind: SegWitNone,
		},
	})
	Register(Testnet, &ConsensusParams{
		Symbol:             "DOGE",
		Name:               "Dogecoin",
		AddressVersion:     0x71,
		P2SHAddressVersion: 0xc4,
		PrivkeyVersion:     0xf1,
		SegWit: SegWitVariant{
			Kind: SegWitNone,
		},
	})
}
