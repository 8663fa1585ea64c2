package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"eventfeed/internal/domain/order"
	"eventfeed/internal/infrastructure/postgres"
)

type CancelOrder struct {
	txManager postgres.Transactor
	orderRepo *postgres.OrderRepository
	eventLog  *postgres.EventRepository
}

func NewCancelOrder(
	txManager postgres.Transactor,
	orderRepo *postgres.OrderRepository,
	eventLog *postgres.EventRepository,
) *CancelOrder {
	return &CancelOrder{
		txManager: txManager,
		orderRepo: orderRepo,
		eventLog:  eventLog,
	}
}

type CancelOrderParams struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

func (uc *CancelOrder) Execute(ctx context.Context, params CancelOrderParams) error {
	payload, err := json.Marshal(map[string]string{
		"order_id": params.OrderID,
		"reason":   params.Reason,
	})
	if err != nil {
		return fmt.Errorf("marshal cancellation: %w", err)
	}

	err = uc.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.orderRepo.UpdateStatus(txCtx, params.OrderID, "CANCELLED"); err != nil {
			return err
		}

		e, err := uc.eventLog.Append(txCtx, order.Object, order.EventCancelled, payload)
		if err != nil {
			return err
		}

		return uc.eventLog.Notify(txCtx, e.ID)
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}
