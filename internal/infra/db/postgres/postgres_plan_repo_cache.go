package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"interview-ai-credits/internal/domain/model"
	"interview-ai-credits/internal/domain/ports/repository"
	"interview-ai-credits/internal/infra/metrics"
	red "interview-ai-credits/internal/infra/redis"
)

var _ repository.CreditPlanRepository = (*planRepoCacheDecorator)(nil)

// planRepoCacheDecorator caches the plan catalog in Redis. The catalog is
// read on every pricing render and purchase, and changes rarely.
type planRepoCacheDecorator struct {
	inner repository.CreditPlanRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewPlanRepoCacheDecorator(inner repository.CreditPlanRepository, cache red.RedisClient) repository.CreditPlanRepository {
	return &planRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   1 * time.Hour,
	}
}

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CreditPlan, error) {
	key := fmt.Sprintf("plan:%s", id)
	if val, err := d.cache.Get(ctx, key); err == nil {
		metrics.IncCacheRequest("plan", "hit")
		var plan model.CreditPlan
		if json.Unmarshal([]byte(val), &plan) == nil {
			return &plan, nil
		}
	}

	metrics.IncCacheRequest("plan", "miss")
	plan, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		bytes, _ := json.Marshal(plan)
		_ = d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return plan, nil
}

func (d *planRepoCacheDecorator) ListAll(ctx context.Context, tx repository.Tx) ([]*model.CreditPlan, error) {
	key := "plans:all"
	if val, err := d.cache.Get(ctx, key); err == nil {
		metrics.IncCacheRequest("plan_list", "hit")
		var plans []*model.CreditPlan
		if json.Unmarshal([]byte(val), &plans) == nil {
			return plans, nil
		}
	}

	metrics.IncCacheRequest("plan_list", "miss")
	plans, err := d.inner.ListAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(plans) > 0 {
		bytes, _ := json.Marshal(plans)
		_ = d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return plans, nil
}

// Write operations invalidate both the per-plan entry and the full list.
func (d *planRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, plan *model.CreditPlan) error {
	_ = d.cache.Del(ctx, fmt.Sprintf("plan:%s", plan.ID), "plans:all")
	return d.inner.Save(ctx, tx, plan)
}

func (d *planRepoCacheDecorator) Delete(ctx context.Context, tx repository.Tx, id string) error {
	_ = d.cache.Del(ctx, fmt.Sprintf("plan:%s", id), "plans:all")
	return d.inner.Delete(ctx, tx, id)
}
