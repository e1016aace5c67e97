// Package settlement consumes the payment-settlement stream and records
// refunds for refund-tagged payments. The listener is a process-owned
// handle with an explicit start/stop lifecycle; duplicate deliveries of a
// settlement never produce duplicate refunds.
package settlement

import (
	"context"
	"errors"
	"sync"

	"boltcard/internal/lightning"
	"boltcard/internal/models"
	"boltcard/internal/repositories"

	"github.com/sirupsen/logrus"
)

// consumerTag identifies this subscriber to the payment engine.
const consumerTag = "boltcard"

type Listener struct {
	engine  lightning.Engine
	hits    repositories.HitRepository
	refunds repositories.RefundRepository
	log     *logrus.Entry

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewListener(
	engine lightning.Engine,
	hits repositories.HitRepository,
	refunds repositories.RefundRepository,
	log *logrus.Logger,
) *Listener {
	return &Listener{
		engine:  engine,
		hits:    hits,
		refunds: refunds,
		log:     log.WithField("component", "settlement"),
	}
}

// Start subscribes to the settlement stream and consumes it until Stop is
// called or ctx is cancelled. Start may be called once per listener.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return errors.New("settlement listener already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	events, err := l.engine.SubscribeSettlements(ctx, consumerTag)
	if err != nil {
		cancel()
		return err
	}

	l.cancel = cancel
	l.done = make(chan struct{})

	go func() {
		defer close(l.done)
		for {
			select {
			case <-ctx.Done():
				return
			case payment, ok := <-events:
				if !ok {
					return
				}
				if err := l.handle(ctx, payment); err != nil {
					l.log.WithError(err).WithField("payment", payment.ID).Error("settlement handling failed")
				}
			}
		}
	}()

	l.log.Info("settlement listener started")
	return nil
}

// Stop cancels the subscription and waits for the consumer to drain.
func (l *Listener) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	l.log.Info("settlement listener stopped")
}

func (l *Listener) handle(ctx context.Context, payment lightning.Payment) error {
	marker := payment.RefundMarker()
	if marker == "" {
		return nil
	}
	if payment.Processed {
		return nil
	}

	hit, err := l.hits.GetByExternalID(ctx, marker)
	if err != nil {
		if errors.Is(err, repositories.ErrHitNotFound) {
			l.log.WithField("payment", payment.ID).Warn("refund marker references unknown hit")
			return nil
		}
		return err
	}

	created, err := l.refunds.Create(ctx, &models.Refund{
		HitID:     hit.ID,
		PaymentID: payment.ID,
		Amount:    payment.AmountSat,
	})
	if err != nil {
		return err
	}
	if created {
		l.log.WithFields(logrus.Fields{
			"hit":    hit.ExternalID,
			"amount": payment.AmountSat,
		}).Info("refund recorded")
	}

	return l.engine.MarkSettlementProcessed(ctx, payment.ID)
}
