package coin

func init() {
	Register(Mainnet, &ConsensusParams{
		Symbol:             "BTC",
		Name:               "Bitcoin",
		AddressVersion:     0x00,
		P2SHAddressVersion: 0x05,
		PrivkeyVersion:     0x80,
		SegWit: SegWitVariant{
			Kind:        SegWitBech32,
			Prefix:      "bc",
			ReceiveOnly: false,
		},
	})
	Register(Testnet, &ConsensusParams{
		Symbol:             "BTC",
		Name:               "Bitcoin",
		AddressVersion:     0x6f,
		P2SHAddressVersion: 0xc4,
		PrivkeyVersion:     0xef,
		SegWit: SegWitVariant{
			Kind:        SegWitBech32,
			Prefix:      "tb",
			ReceiveOnly: false,
		},
	})
}
