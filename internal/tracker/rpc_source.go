package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solana-roundup/internal/domain"
	"solana-roundup/internal/solana"
)

const lamportsPerSol = 1_000_000_000

// RPCSource implements TransactionSource on top of the Solana JSON-RPC API.
// It lists signatures for the address and resolves each to a direction and
// native amount from the transaction's balance deltas.
type RPCSource struct {
	client solana.RPCClient
	logger *logrus.Logger
}

var _ TransactionSource = (*RPCSource)(nil)

// NewRPCSource creates an RPC-backed transaction source.
func NewRPCSource(client solana.RPCClient, logger *logrus.Logger) *RPCSource {
	if logger == nil {
		logger = logrus.New()
	}
	return &RPCSource{client: client, logger: logger}
}

// FetchRecent returns the wallet's recent transactions, newest-first.
// A signature-list failure is returned to the caller; a single
// transaction that cannot be resolved is emitted with an unknown
// direction and no amount so downstream filtering drops it.
func (s *RPCSource) FetchRecent(ctx context.Context, address string, lookbackDays, limit int) ([]domain.WalletTransaction, error) {
	opts := &solana.SignaturesOpts{}
	if limit > 0 {
		opts.Limit = limit
	}

	sigs, err := s.client.GetSignaturesForAddress(ctx, address, opts)
	if err != nil {
		return nil, fmt.Errorf("get signatures: %w", err)
	}

	var cutoff int64
	if lookbackDays > 0 {
		cutoff = time.Now().AddDate(0, 0, -lookbackDays).Unix()
	}

	txs := make([]domain.WalletTransaction, 0, len(sigs))
	for _, sig := range sigs {
		// Signatures are newest-first; everything past the cutoff is older.
		if cutoff > 0 && sig.BlockTime != nil && *sig.BlockTime < cutoff {
			break
		}

		tx := domain.WalletTransaction{
			Signature: sig.Signature,
			Slot:      sig.Slot,
			Success:   sig.Err == nil,
			Direction: domain.DirectionUnknown,
		}
		if sig.BlockTime != nil {
			tx.BlockTime = *sig.BlockTime
		}

		full, err := s.client.GetTransaction(ctx, sig.Signature)
		if err != nil || full == nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"wallet":    address,
				"signature": sig.Signature,
			}).Warn("transaction not resolvable, emitting undecoded")
			txs = append(txs, tx)
			continue
		}

		if full.Meta != nil {
			tx.Success = full.Meta.Err == nil
		}
		tx.Direction, tx.Amount, tx.TokenMint = decodeTransfer(address, full)
		txs = append(txs, tx)
	}

	return txs, nil
}

// decodeTransfer derives the wallet's direction and transferred amount from
// a transaction's pre/post balances. SPL token balance deltas take priority
// over the native lamport delta; the fee is excluded for the fee payer.
func decodeTransfer(address string, tx *solana.Transaction) (string, *float64, string) {
	if tx.Meta == nil || tx.Message == nil {
		return domain.DirectionUnknown, nil, ""
	}

	walletIdx := -1
	for i, key := range tx.Message.AccountKeys {
		if key == address {
			walletIdx = i
			break
		}
	}
	if walletIdx == -1 {
		return domain.DirectionUnknown, nil, ""
	}

	if dir, amount, mint := decodeTokenTransfer(address, tx.Meta); dir != domain.DirectionUnknown {
		return dir, amount, mint
	}

	if walletIdx >= len(tx.Meta.PreBalances) || walletIdx >= len(tx.Meta.PostBalances) {
		return domain.DirectionUnknown, nil, ""
	}

	pre := int64(tx.Meta.PreBalances[walletIdx])
	post := int64(tx.Meta.PostBalances[walletIdx])
	delta := pre - post
	if walletIdx == 0 {
		// Fee payer: the fee is not part of the transferred amount.
		delta -= int64(tx.Meta.Fee)
	}

	switch {
	case delta > 0:
		amount := float64(delta) / lamportsPerSol
		return domain.DirectionSent, &amount, ""
	case delta < 0:
		amount := float64(-delta) / lamportsPerSol
		return domain.DirectionReceived, &amount, ""
	default:
		return domain.DirectionUnknown, nil, ""
	}
}

// decodeTokenTransfer looks for an SPL token balance delta owned by the
// wallet. Returns an unknown direction when the wallet held no token
// accounts in this transaction.
func decodeTokenTransfer(address string, meta *solana.TransactionMeta) (string, *float64, string) {
	pre := make(map[string]float64)
	for _, b := range meta.PreTokenBalances {
		if b.Owner == address && b.UiAmount != nil {
			pre[b.Mint] += *b.UiAmount
		}
	}
	post := make(map[string]float64)
	for _, b := range meta.PostTokenBalances {
		if b.Owner == address && b.UiAmount != nil {
			post[b.Mint] += *b.UiAmount
		}
	}
	if len(pre) == 0 && len(post) == 0 {
		return domain.DirectionUnknown, nil, ""
	}

	for mint, before := range pre {
		delta := before - post[mint]
		if delta > 0 {
			amount := delta
			return domain.DirectionSent, &amount, mint
		}
	}
	for mint, after := range post {
		delta := after - pre[mint]
		if delta > 0 {
			amount := delta
			return domain.DirectionReceived, &amount, mint
		}
	}

	return domain.DirectionUnknown, nil, ""
}
