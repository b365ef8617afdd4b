package coin

func init() {
	Register(Mainnet, &ConsensusParams{
		Symbol:             "LTC",
		Name:               "Litecoin",
		AddressVersion:     0x30,
		P2SHAddressVersion: 0x32,
		PrivkeyVersion:     0xb0,
		SegWit: SegWitVariant{
			Kind:        SegWitVersionByte,
			VersionByte: 0x32,
			ReceiveOnly: true,
		},
	})
	Register(Testnet, &ConsensusParams{
		Symbol:             "LTC",
		Name:               "Litecoin",
		AddressVersion:     0x6f,
		P2SHAddressVersion: 0x3a,
		PrivkeyVersion:     0xef,
		SegWit: SegWitVariant{
			Kind:        SegWitVersionByte,
			VersionByte: 0x3a,
			ReceiveOnly: true,
		},
	})
}
