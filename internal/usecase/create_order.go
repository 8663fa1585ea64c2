package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eventfeed/internal/domain/order"
	"eventfeed/internal/infrastructure/postgres"

	"github.com/google/uuid"
)

type CreateOrder struct {
	txManager postgres.Transactor
	orderRepo *postgres.OrderRepository
	eventLog  *postgres.EventRepository
}

func NewCreateOrder(
	txManager postgres.Transactor,
	orderRepo *postgres.OrderRepository,
	eventLog *postgres.EventRepository,
) *CreateOrder {
	return &CreateOrder{
		txManager: txManager,
		orderRepo: orderRepo,
		eventLog:  eventLog,
	}
}

type CreateOrderParams struct {
	UserID   string  `json:"user_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Execute writes the order row and appends its event in one transaction, so
// the log never records a mutation that did not commit. The notification is
// sent on the same transaction and Postgres delivers it only after commit.
func (uc *CreateOrder) Execute(ctx context.Context, params CreateOrderParams) (string, error) {
	now := time.Now().UTC()
	newOrder := &order.Order{
		ID:          uuid.New().String(),
		UserID:      params.UserID,
		Status:      "CREATED",
		TotalAmount: params.Amount,
		Currency:    params.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	payload, err := json.Marshal(newOrder)
	if err != nil {
		return "", fmt.Errorf("marshal order: %w", err)
	}

	err = uc.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.orderRepo.Create(txCtx, newOrder); err != nil {
			return err
		}

		e, err := uc.eventLog.Append(txCtx, order.Object, order.EventCreated, payload)
		if err != nil {
			return err
		}

		return uc.eventLog.Notify(txCtx, e.ID)
	})
	if err != nil {
		return "", fmt.Errorf("transaction failed: %w", err)
	}

	return newOrder.ID, nil
}
