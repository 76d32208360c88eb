package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultLedgerTTL = 24 * time.Hour

// PaymentLedger records provider orders whose signature was verified,
// mapping provider order id to payment id.
type PaymentLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPaymentLedger(client *redis.Client) *PaymentLedger {
	return &PaymentLedger{client: client, ttl: defaultLedgerTTL}
}

func (l *PaymentLedger) MarkVerified(ctx context.Context, providerOrderID, paymentID string) error {
	if err := l.client.Set(ctx, ledgerKey(providerOrderID), paymentID, l.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (l *PaymentLedger) IsVerified(ctx context.Context, providerOrderID, paymentID string) (bool, error) {
	got, err := l.client.Get(ctx, ledgerKey(providerOrderID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	return got == paymentID, nil
}

func ledgerKey(providerOrderID string) string {
	return fmt.Sprintf("payment:verified:%s", providerOrderID)
}
