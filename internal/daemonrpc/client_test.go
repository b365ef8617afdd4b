package daemonrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func rpcStub(t *testing.T, handler func(method string, params []interface{}) (interface{}, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64        `json:"id"`
			Method string        `json:"method"`
			Params []interface{} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		result, rpcErr := handler(req.Method, req.Params)

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func TestSignRawTransactionWithKey(t *testing.T) {
	srv := rpcStub(t, func(method string, params []interface{}) (interface{}, *rpcError) {
		if method != "signrawtransactionwithkey" {
			t.Fatalf("unexpected method %q", method)
		}
		return map[string]interface{}{"hex": "deadbeef", "complete": true}, nil
	})
	defer srv.Close()

	c := New(srv.URL, "user", "pass")
	hex, err := c.SignRawTransactionWithKey(context.Background(), "rawhex", "wifkey")
	if err != nil {
		t.Fatalf("SignRawTransactionWithKey: %v", err)
	}
	if hex != "deadbeef" {
		t.Fatalf("expected signed hex deadbeef, got %s", hex)
	}
}

func TestSignRawTransactionIncomplete(t *testing.T) {
	srv := rpcStub(t, func(method string, params []interface{}) (interface{}, *rpcError) {
		return map[string]interface{}{"hex": "", "complete": false}, nil
	})
	defer srv.Close()

	c := New(srv.URL, "", "")
	if _, err := c.SignRawTransactionWithKey(context.Background(), "rawhex", "wifkey"); err == nil {
		t.Fatal("expected an error when the daemon reports incomplete signing")
	}
}

func TestBroadcastRawTransaction(t *testing.T) {
	srv := rpcStub(t, func(method string, params []interface{}) (interface{}, *rpcError) {
		if method != "sendrawtransaction" {
			t.Fatalf("unexpected method %q", method)
		}
		return "abcd1234", nil
	})
	defer srv.Close()

	c := New(srv.URL, "", "")
	txid, err := c.BroadcastRawTransaction(context.Background(), "signedhex")
	if err != nil {
		t.Fatalf("BroadcastRawTransaction: %v", err)
	}
	if txid != "abcd1234" {
		t.Fatalf("expected txid abcd1234, got %s", txid)
	}
}

func TestBroadcastRawTransactionRPCError(t *testing.T) {
	srv := rpcStub(t, func(method string, params []interface{}) (interface{}, *rpcError) {
		return nil, &rpcError{Code: -26, Message: "insufficient fee"}
	})
	defer srv.Close()

	c := New(srv.URL, "", "")
	if _, err := c.BroadcastRawTransaction(context.Background(), "signedhex"); err == nil {
		t.Fatal("expected the RPC error to surface")
	}
}

func TestMempoolSize(t *testing.T) {
	srv := rpcStub(t, func(method string, params []interface{}) (interface{}, *rpcError) {
		if method != "getrawmempool" {
			t.Fatalf("unexpected method %q", method)
		}
		return []string{"tx1", "tx2", "tx3"}, nil
	})
	defer srv.Close()

	c := New(srv.URL, "", "")
	size, err := c.MempoolSize(context.Background())
	if err != nil {
		t.Fatalf("MempoolSize: %v", err)
	}
	if size != 3 {
		t.Fatalf("expected mempool size 3, got %d", size)
	}
}

func TestGetNewAddressAndDumpPrivKey(t *testing.T) {
	srv := rpcStub(t, func(method string, params []interface{}) (interface{}, *rpcError) {
		switch method {
		case "getnewaddress":
			return "1NewAddress", nil
		case "dumpprivkey":
			return "Kprivkeywif", nil
		default:
			t.Fatalf("unexpected method %q", method)
			return nil, nil
		}
	})
	defer srv.Close()

	c := New(srv.URL, "", "")
	addr, err := c.GetNewAddress(context.Background())
	if err != nil || addr != "1NewAddress" {
		t.Fatalf("GetNewAddress: addr=%s err=%v", addr, err)
	}
	wif, err := c.DumpPrivKey(context.Background(), "1NewAddress")
	if err != nil || wif != "Kprivkeywif" {
		t.Fatalf("DumpPrivKey: wif=%s err=%v", wif, err)
	}
}
