package capgains

import (
	"errors"

	"github.com/rs/zerolog"
)

// Compute replays the whole journal against an empty ledger, applies the
// wash-sale adjustments and returns the open lots and realized gains.
//
// Bad records are skipped with an error log; an out-of-order journal halts
// processing for that account only, so one broken feed cannot poison the
// others. The computation is a pure function of the journal: running it twice
// yields identical results.
func Compute(cfg Config, registry *Registry, journal *Journal, log zerolog.Logger) (*Ledger, []Gain) {
	ledger := NewLedger()
	engine := NewEngine(cfg, registry, ledger, log)

	halted := make(map[AccountID]bool)
	txs := journal.Transactions()
	for _, tx := range txs {
		if halted[tx.Account()] {
			continue
		}
		if _, err := engine.Apply(tx); err != nil {
			var oerr *OrderingError
			if errors.As(err, &oerr) {
				log.Error().Err(err).Str("account", tx.Account().String()).
					Msg("journal out of order, halting account")
				halted[tx.Account()] = true
				continue
			}
			log.Error().Err(err).Int64("seq", tx.Seq()).Msg("skipping transaction")
		}
	}

	gains := engine.Gains()
	NewWashSaleProcessor(cfg, log).ScanAndAdjust(gains, ledger, txs)
	return ledger, gains
}
