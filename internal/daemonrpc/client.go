// Package daemonrpc is a JSON-RPC-over-HTTP-Basic client for the coin
// daemon collaborator (spec §6): sendrawtransaction,
// signrawtransactionwithkey, getrawmempool, getnewaddress, dumpprivkey.
package daemonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/klingon-exchange/custodial-wallet/internal/walleterr"
)

// Client talks to one coin daemon's JSON-RPC endpoint over HTTP Basic
// auth. One Client per configured coin, matching the coin's RPCHost/
// RPCPort.
type Client struct {
	url        string
	user       string
	pass       string
	httpClient *http.Client
	requestID  atomic.Uint64
}

// New builds a Client for a daemon reachable at url, authenticated
// with user/pass (spec §6: COINDAEMON_CREDENTIALS).
func New(url, user, pass string) *Client {
	return &Client{
		url:  url,
		user: user,
		pass: pass,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	id := c.requestID.Add(1)
	payload, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.TransactionNotSeen, err, fmt.Sprintf("daemon RPC %s failed", method))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("daemon RPC %s: malformed response: %w", method, err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("daemon RPC %s: %d %s", method, envelope.Error.Code, envelope.Error.Message)
	}
	return envelope.Result, nil
}

// SignRawTransactionWithKey implements txbuilder.DaemonClient: signs
// rawHex with the WIF-encoded private key, returning the signed hex.
func (c *Client) SignRawTransactionWithKey(ctx context.Context, rawHex, wif string) (string, error) {
	result, err := c.call(ctx, "signrawtransactionwithkey", []interface{}{rawHex, []string{wif}})
	if err != nil {
		return "", err
	}
	var signed struct {
		Hex      string `json:"hex"`
		Complete bool   `json:"complete"`
	}
	if err := json.Unmarshal(result, &signed); err != nil {
		return "", err
	}
	if !signed.Complete {
		return "", walleterr.New(walleterr.InvalidTransactionOutputType, "daemon could not complete signing")
	}
	return signed.Hex, nil
}

// BroadcastRawTransaction implements txbuilder.DaemonClient: submits a
// signed transaction via sendrawtransaction, returning its txid.
func (c *Client) BroadcastRawTransaction(ctx context.Context, signedHex string) (string, error) {
	result, err := c.call(ctx, "sendrawtransaction", []interface{}{signedHex})
	if err != nil {
		return "", err
	}
	var txid string
	if err := json.Unmarshal(result, &txid); err != nil {
		return "", err
	}
	return txid, nil
}

// GetNewAddress asks the daemon's keyseeder-equivalent for a fresh
// address (spec §4.4.2's "new" account creation path, when no WIF is
// supplied for import).
func (c *Client) GetNewAddress(ctx context.Context) (string, error) {
	result, err := c.call(ctx, "getnewaddress", nil)
	if err != nil {
		return "", err
	}
	var address string
	if err := json.Unmarshal(result, &address); err != nil {
		return "", err
	}
	return address, nil
}

// DumpPrivKey returns the WIF-encoded private key for an address the
// daemon controls.
func (c *Client) DumpPrivKey(ctx context.Context, address string) (string, error) {
	result, err := c.call(ctx, "dumpprivkey", []interface{}{address})
	if err != nil {
		return "", err
	}
	var wif string
	if err := json.Unmarshal(result, &wif); err != nil {
		return "", err
	}
	return wif, nil
}

// MempoolSize returns the daemon's current mempool transaction count,
// the input to the background processor's work budget (spec §4.5:
// max_work = MAX_QUEUED_TXS - mempool_size).
func (c *Client) MempoolSize(ctx context.Context) (int, error) {
	result, err := c.call(ctx, "getrawmempool", []interface{}{false})
	if err != nil {
		return 0, err
	}
	var txids []string
	if err := json.Unmarshal(result, &txids); err != nil {
		return 0, err
	}
	return len(txids), nil
}
