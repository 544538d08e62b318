// Package timeout implements the Coordinator's periodic stuck-saga
// scanner (spec.md §4.5), grounded on the teacher's AsyncProducer
// ticker-loop idiom (time.NewTicker + select over ticker and ctx.Done()).
package timeout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"saga-engine/internal/coordinator/domain"
	"saga-engine/internal/platform/logging"
)

// Store is the narrow persistence surface the scanner needs.
type Store interface {
	FindStuckTransfers(ctx context.Context, now time.Time, limit int) ([]domain.Transfer, error)
	RecoverTimeout(ctx context.Context, transferID uuid.UUID) (applied bool, err error)
}

type Scanner struct {
	store  Store
	period time.Duration
	batch  int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(store Store, period time.Duration, batch int) *Scanner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scanner{store: store, period: period, batch: batch, ctx: ctx, cancel: cancel}
}

func (s *Scanner) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Tick(s.ctx)
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

func (s *Scanner) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Tick runs one scan-and-recover pass. Exported so a caller can drive a
// single deterministic tick instead of waiting on the ticker (spec.md §8
// scenario 6/7 call for "run one tick").
func (s *Scanner) Tick(ctx context.Context) {
	stuck, err := s.store.FindStuckTransfers(ctx, time.Now().UTC(), s.batch)
	if err != nil {
		logging.Error("timeout scan failed", err, nil)
		return
	}
	if len(stuck) == 0 {
		return
	}

	for _, t := range stuck {
		applied, err := s.store.RecoverTimeout(ctx, t.TransferID)
		if err != nil {
			logging.Error("timeout recovery failed", err, map[string]interface{}{"transfer_id": t.TransferID.String()})
			continue
		}
		if applied {
			logging.Info("saga timed out", map[string]interface{}{
				"transfer_id": t.TransferID.String(),
				"prior_status": string(t.Status),
			})
		}
	}
}
