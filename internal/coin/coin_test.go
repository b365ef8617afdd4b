package coin

import (
	"bytes"
	"testing"
)

func btc(t *testing.T) *Coin {
	t.Helper()
	c, err := New("BTC", Mainnet, "wallet_btc", "127.0.0.1", 8332, false)
	if err != nil {
		t.Fatalf("New(BTC): %v", err)
	}
	return c
}

func ltc(t *testing.T) *Coin {
	t.Helper()
	c, err := New("LTC", Mainnet, "wallet_ltc", "127.0.0.1", 9332, true)
	if err != nil {
		t.Fatalf("New(LTC): %v", err)
	}
	return c
}

func doge(t *testing.T) *Coin {
	t.Helper()
	c, err := New("DOGE", Mainnet, "wallet_doge", "127.0.0.1", 22555, true)
	if err != nil {
		t.Fatalf("New(DOGE): %v", err)
	}
	return c
}

func TestUnregisteredCoinFails(t *testing.T) {
	if _, err := New("ZZZ", Mainnet, "", "", 0, false); err == nil {
		t.Fatal("expected CoinNotDefined for unregistered ticker")
	}
}

func TestBTCIndexAddressesIncludesBech32(t *testing.T) {
	c := btc(t)
	h := make([]byte, 20)
	addrs, err := c.IndexAddresses(h)
	if err != nil {
		t.Fatalf("IndexAddresses: %v", err)
	}
	if len(addrs) != 2 {
		t.Fatalf("expected legacy + bech32, got %v", addrs)
	}
}

func TestLTCIndexAddressesExcludesReceiveOnlySegWit(t *testing.T) {
	c := ltc(t)
	h := make([]byte, 20)
	addrs, err := c.IndexAddresses(h)
	if err != nil {
		t.Fatalf("IndexAddresses: %v", err)
	}
	if len(addrs) != 1 {
		t.Fatalf("expected only legacy address for a receive-only SegWit variant, got %v", addrs)
	}
}

func TestLTCDefaultReceiveAddressIsSegWitEvenWhenReceiveOnly(t *testing.T) {
	c := ltc(t)
	h := make([]byte, 20)
	legacy, err := c.IndexAddresses(h)
	if err != nil {
		t.Fatalf("IndexAddresses: %v", err)
	}
	receive, err := c.DefaultReceiveAddress(h)
	if err != nil {
		t.Fatalf("DefaultReceiveAddress: %v", err)
	}
	if receive == legacy[0] {
		t.Fatal("expected default receive address to be the SegWit form, distinct from legacy")
	}
}

func TestDogeHasNoSegWit(t *testing.T) {
	c := doge(t)
	h := make([]byte, 20)
	addrs, err := c.IndexAddresses(h)
	if err != nil {
		t.Fatalf("IndexAddresses: %v", err)
	}
	if len(addrs) != 1 {
		t.Fatalf("expected only legacy address for a coin with no SegWit, got %v", addrs)
	}
	receive, err := c.DefaultReceiveAddress(h)
	if err != nil {
		t.Fatalf("DefaultReceiveAddress: %v", err)
	}
	if receive != addrs[0] {
		t.Fatalf("expected default receive address to equal legacy address, got %s vs %s", receive, addrs[0])
	}
}

func TestDecodeAddressAndTypeRoundtrip(t *testing.T) {
	c := btc(t)
	h := bytes.Repeat([]byte{0x11}, 20)
	addrs, err := c.IndexAddresses(h)
	if err != nil {
		t.Fatalf("IndexAddresses: %v", err)
	}

	decodedLegacy, typ, ok := c.DecodeAddressAndType(addrs[0])
	if !ok || typ != P2PKH || !bytes.Equal(decodedLegacy, h) {
		t.Fatalf("legacy decode = %x/%s/%v, want %x/P2PKH/true", decodedLegacy, typ, ok, h)
	}

	decodedSegWit, typ, ok := c.DecodeAddressAndType(addrs[1])
	if !ok || typ != P2WPKH || !bytes.Equal(decodedSegWit, h) {
		t.Fatalf("segwit decode = %x/%s/%v, want %x/P2WPKH/true", decodedSegWit, typ, ok, h)
	}
}

func TestDecodeAddressAndTypeUnknownFails(t *testing.T) {
	c := btc(t)
	if _, _, ok := c.DecodeAddressAndType("not-an-address"); ok {
		t.Fatal("expected decode of garbage input to fail")
	}
}

func TestListIncludesRegisteredCoins(t *testing.T) {
	symbols := List()
	want := map[string]bool{"BTC": false, "LTC": false, "DOGE": false}
	for _, s := range symbols {
		if _, ok := want[s]; ok {
			want[s] = true
		}
	}
	for s, found := range want {
		if !found {
			t.Fatalf("expected %s to be registered", s)
		}
	}
}
