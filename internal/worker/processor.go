// Package worker implements the background processor of spec §4.5: a
// per-coin ticker that triggers on tip-hash change, throttles full
// runs, and spends a mempool-derived work budget across a
// consolidation pass and an automatic-payment pass.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/klingon-exchange/custodial-wallet/internal/walletcore"
	"github.com/klingon-exchange/custodial-wallet/pkg/logging"
)

// TriggerInterval is how often each coin's tip hash is checked.
const TriggerInterval = 10 * time.Second

// FullRunThrottle is the minimum time between two full passes for the
// same coin, even when the tip hash keeps changing.
const FullRunThrottle = 60 * time.Second

// MaxQueuedTxs bounds the background processor's work budget: it
// never leaves more than this many of its own transactions in flight
// in the mempool at once.
const MaxQueuedTxs = 8

// Clock abstracts wall-clock reads so tests can fake "now" without a
// real sleep; production code passes systemClock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Processor drives the background processor for every coin wired
// into a walletcore.Core. Grounded on internal/wallet/utxo_sync.go's
// StartBackgroundSync/StopBackgroundSync ticker+stopCh+wg shape.
type Processor struct {
	core   *walletcore.Core
	coins  []string
	clock  Clock
	logger *logging.Logger

	mu           sync.Mutex
	lastHash     map[string]string
	lastFullRun  map[string]time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Processor over every coin ticker in coins. logger may
// be nil, in which case a default component logger is used.
func New(core *walletcore.Core, coins []string, logger *logging.Logger) *Processor {
	if logger == nil {
		logger = logging.GetDefault().Component("processor")
	}
	return &Processor{
		core:        core,
		coins:       coins,
		clock:       systemClock{},
		logger:      logger,
		lastHash:    make(map[string]string),
		lastFullRun: make(map[string]time.Time),
		stopCh:      make(chan struct{}),
	}
}

// Start runs the 10s trigger loop in a background goroutine until Stop.
func (p *Processor) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(TriggerInterval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				for _, ticker := range p.coins {
					p.tick(context.Background(), ticker)
				}
			}
		}
	}()
}

// Stop signals the loop to exit and waits for the in-flight coin's
// pass to finish — it never aborts a pass mid-way (spec §5:
// "finishes the current coin's pass").
func (p *Processor) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}

// tick implements one coin's trigger check (spec §4.5): skip if the
// tip hash hasn't moved, skip with "too soon" if a full run happened
// within FullRunThrottle, otherwise run the full pass.
func (p *Processor) tick(ctx context.Context, ticker string) {
	clog := p.logger.ForCoin(ticker)

	idx, err := p.core.IndexerFor(ticker)
	if err != nil {
		clog.Warn("processor: no indexer for coin", "error", err)
		return
	}

	_, hash, err := idx.TipBlock(ctx)
	if err != nil {
		clog.Warn("processor: tip lookup failed", "error", err)
		return
	}

	p.mu.Lock()
	unchanged := p.lastHash[ticker] == hash && hash != ""
	p.lastHash[ticker] = hash
	lastFullRun, ranBefore := p.lastFullRun[ticker]
	p.mu.Unlock()

	if unchanged {
		return
	}
	if ranBefore && p.clock.Now().Sub(lastFullRun) < FullRunThrottle {
		clog.Debug("processor: skipping run, too soon")
		return
	}

	p.runFull(ctx, ticker)

	p.mu.Lock()
	p.lastFullRun[ticker] = p.clock.Now()
	p.mu.Unlock()
}

// runFull executes one coin's consolidation pass followed by its
// autopayment pass, sharing a single mempool-derived work budget
// between them (spec §4.5).
func (p *Processor) runFull(ctx context.Context, ticker string) {
	clog := p.logger.ForCoin(ticker)

	daemon, err := p.core.DaemonFor(ticker)
	if err != nil {
		clog.Warn("processor: no daemon for coin", "error", err)
		return
	}

	mempoolSize, err := daemon.MempoolSize(ctx)
	if err != nil {
		clog.Warn("processor: mempool size query failed", "error", err)
		return
	}

	maxWork := MaxQueuedTxs - mempoolSize
	if maxWork <= 0 {
		clog.Debug("processor: skipping run, mempool full", "mempool_size", mempoolSize)
		return
	}

	maxWork = p.consolidationPass(ctx, ticker, maxWork)
	if maxWork <= 0 {
		return
	}
	p.autopaymentPass(ctx, ticker, maxWork)
}

// consolidationPass finds account addresses whose mature, confirmed,
// non-mempool unspent-output count has reached MinConsolidationUTXOs
// and consolidates each, decrementing the budget until it is spent.
func (p *Processor) consolidationPass(ctx context.Context, ticker string, maxWork int) int {
	clog := p.logger.ForCoin(ticker)

	addrRows, err := p.core.Wallet.AllAccountAddressesByCoin(ctx, ticker)
	if err != nil {
		clog.Warn("processor: listing account addresses failed", "error", err)
		return maxWork
	}

	idx, err := p.core.IndexerFor(ticker)
	if err != nil {
		return maxWork
	}
	tipHeight, _, err := idx.TipBlock(ctx)
	if err != nil {
		clog.Warn("processor: tip lookup failed", "error", err)
		return maxWork
	}

	for _, aa := range addrRows {
		if maxWork <= 0 {
			return 0
		}

		count, err := idx.UnspentCountByAddress(ctx, aa.AddressID, tipHeight)
		if err != nil {
			clog.Warn("processor: unspent count failed", "address_id", aa.AddressID, "error", err)
			continue
		}
		if count < walletcore.MinConsolidationUTXOs {
			continue
		}

		account, err := p.core.Wallet.AccountByID(ctx, aa.AccountID)
		if err != nil || account == nil {
			clog.Warn("processor: account lookup failed", "account_id", aa.AccountID, "error", err)
			continue
		}

		if _, err := p.core.ConsolidateAccount(ctx, account, ticker, true); err != nil {
			clog.Warn("processor: consolidation failed", "account_id", account.ID, "error", err)
		}
		maxWork--
	}
	return maxWork
}

// autopaymentPass executes due AutomaticPayment rows one at a time,
// advancing nextpayment whether or not the run errored, until the
// budget is spent or no more rules are due (spec §4.5 pass 2).
func (p *Processor) autopaymentPass(ctx context.Context, ticker string, maxWork int) {
	clog := p.logger.ForCoin(ticker)
	now := p.clock.Now().Unix()

	for maxWork > 0 {
		due, err := p.core.Wallet.DueAutomaticPayments(ctx, ticker, now)
		if err != nil {
			clog.Warn("processor: due-payments query failed", "error", err)
			return
		}
		if len(due) == 0 {
			return
		}
		payment := due[0]

		account, err := p.core.Wallet.AccountByID(ctx, payment.AccountID)
		if err != nil || account == nil {
			clog.Warn("processor: account lookup failed", "account_id", payment.AccountID, "error", err)
		} else if _, err := p.core.RunAutomaticPayment(ctx, account, payment); err != nil {
			clog.Warn("processor: automatic payment failed", "payment_id", payment.ID, "error", err)
		}

		if err := p.core.Wallet.AdvanceNextPayment(ctx, payment, now); err != nil {
			clog.Warn("processor: advancing nextpayment failed", "payment_id", payment.ID, "error", err)
			return
		}
		maxWork--
	}
}
