package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eventfeed/internal/domain/order"
	"eventfeed/internal/infrastructure/postgres"

	"github.com/redis/go-redis/v9"
)

type GetOrder struct {
	redisClient *redis.Client
	orderRepo   *postgres.OrderRepository
}

func NewGetOrder(redisClient *redis.Client, orderRepo *postgres.OrderRepository) *GetOrder {
	return &GetOrder{
		redisClient: redisClient,
		orderRepo:   orderRepo,
	}
}

func (uc *GetOrder) Execute(ctx context.Context, orderID string) (*order.Order, error) {
	cacheKey := fmt.Sprintf("order:%s", orderID)

	if uc.redisClient != nil {
		val, err := uc.redisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			var o order.Order
			if err := json.Unmarshal([]byte(val), &o); err == nil {
				return &o, nil
			}
		}
	}

	o, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	if uc.redisClient != nil {
		if data, err := json.Marshal(o); err == nil {
			// Short TTL so status changes show up quickly.
			uc.redisClient.Set(ctx, cacheKey, data, 1*time.Second)
		}
	}

	return o, nil
}
