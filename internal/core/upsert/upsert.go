// Package upsert 決定每筆生成餐點要寫入或略過
package upsert

import (
	"context"
	"errors"
	"fmt"

	"lifequest/internal/infrastructure/storage"
	"lifequest/internal/pkg/common"
	"lifequest/internal/pkg/metrics"

	"go.uber.org/zap"
)

// Policy 生成餐點的上限
type Policy struct {
	DailyCap    int
	LifetimeCap int
}

// DefaultPolicy 每日 5 筆、累計 10 筆
func DefaultPolicy() Policy {
	return Policy{DailyCap: 5, LifetimeCap: 10}
}

// Decision 單筆紀錄的處理結果
type Decision string

const (
	Inserted        Decision = "inserted"
	SkippedOccupied Decision = "skipped_occupied"
	SkippedCap      Decision = "skipped_cap"
)

// Outcome 候選紀錄與其處理結果
type Outcome struct {
	Record   common.MealRecord
	Decision Decision
}

// Result 一批紀錄的處理結果
type Result struct {
	Outcomes []Outcome
	Inserted int
	Skipped  int
}

// Records 回傳所有候選紀錄（含被略過者），寫入者帶有儲存後的 ID
func (r *Result) Records() []common.MealRecord {
	out := make([]common.MealRecord, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		out = append(out, o.Record)
	}
	return out
}

// Counts 目前的生成紀錄數
type Counts struct {
	Daily    int
	Lifetime int
}

// Upserter 依 (user, day, slot) 冪等寫入
//
// 容量檢查與寫入並非原子操作，同一使用者的並行請求可能短暫超過上限。
type Upserter struct {
	store  storage.MealStore
	policy Policy
}

// New 建立 Upserter
func New(store storage.MealStore, policy Policy) *Upserter {
	if policy.DailyCap <= 0 || policy.LifetimeCap <= 0 {
		policy = DefaultPolicy()
	}
	return &Upserter{store: store, policy: policy}
}

// Policy 目前使用的上限
func (u *Upserter) Policy() Policy {
	return u.policy
}

// CheckCapacity 每批檢查一次，已達上限時回傳容量錯誤
func (u *Upserter) CheckCapacity(ctx context.Context, userID, day string) (Counts, error) {
	counts, err := u.counts(ctx, userID, day)
	if err != nil {
		return Counts{}, err
	}
	return counts, u.check(counts)
}

// CheckReplaceCapacity 重新生成單一餐別前檢查上限，將被取代的生成紀錄不計入
func (u *Upserter) CheckReplaceCapacity(ctx context.Context, userID, day string, slot common.MealSlot) (Counts, error) {
	counts, err := u.counts(ctx, userID, day)
	if err != nil {
		return Counts{}, err
	}

	existing, err := u.store.FindMeal(ctx, userID, day, slot)
	switch {
	case err == nil:
		if existing.Source == common.SourceGenerated {
			counts.Daily--
			counts.Lifetime--
		}
	case !errors.Is(err, storage.ErrNotFound):
		return Counts{}, fmt.Errorf("lookup %s meal: %w", slot, err)
	}
	return counts, u.check(counts)
}

func (u *Upserter) counts(ctx context.Context, userID, day string) (Counts, error) {
	daily, lifetime, err := u.store.CountGeneratedMeals(ctx, userID, day)
	if err != nil {
		return Counts{}, fmt.Errorf("count generated meals: %w", err)
	}
	return Counts{Daily: daily, Lifetime: lifetime}, nil
}

func (u *Upserter) check(counts Counts) error {
	if counts.Lifetime >= u.policy.LifetimeCap {
		return common.ErrLifetimeCapReached
	}
	if counts.Daily >= u.policy.DailyCap {
		return common.ErrDailyCapReached
	}
	return nil
}

// Apply 依序處理一批同一使用者、同一天的紀錄：
// 已有紀錄的餐別略過，其餘在上限內寫入；custom 餐別不做重複檢查
func (u *Upserter) Apply(ctx context.Context, batch []common.MealRecord) (*Result, error) {
	result := &Result{Outcomes: make([]Outcome, 0, len(batch))}
	if len(batch) == 0 {
		return result, nil
	}

	counts, err := u.CheckCapacity(ctx, batch[0].UserID, batch[0].Date)
	if err != nil {
		return nil, err
	}

	for _, rec := range batch {
		decision, err := u.applyOne(ctx, &rec, &counts)
		if err != nil {
			return result, err
		}
		result.Outcomes = append(result.Outcomes, Outcome{Record: rec, Decision: decision})
		if decision == Inserted {
			result.Inserted++
		} else {
			result.Skipped++
		}
		metrics.RecordAction("meal", string(decision))
	}

	common.LogInfo("餐點寫入完成",
		zap.String("user_id", batch[0].UserID),
		zap.String("date", batch[0].Date),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (u *Upserter) applyOne(ctx context.Context, rec *common.MealRecord, counts *Counts) (Decision, error) {
	if rec.MealType.IsFixed() {
		_, err := u.store.FindMeal(ctx, rec.UserID, rec.Date, rec.MealType)
		switch {
		case err == nil:
			common.LogDebug("餐別已有紀錄，略過",
				zap.String("user_id", rec.UserID),
				zap.String("date", rec.Date),
				zap.String("meal_type", string(rec.MealType)),
			)
			return SkippedOccupied, nil
		case !errors.Is(err, storage.ErrNotFound):
			return "", fmt.Errorf("lookup %s meal: %w", rec.MealType, err)
		}
	}

	generated := rec.Source == common.SourceGenerated
	if generated && (counts.Daily >= u.policy.DailyCap || counts.Lifetime >= u.policy.LifetimeCap) {
		common.LogWarn("已達生成上限，略過",
			zap.String("user_id", rec.UserID),
			zap.String("meal_type", string(rec.MealType)),
			zap.Int("daily", counts.Daily),
			zap.Int("lifetime", counts.Lifetime),
		)
		return SkippedCap, nil
	}

	if err := u.store.InsertMeal(ctx, rec); err != nil {
		return "", fmt.Errorf("insert %s meal: %w", rec.MealType, err)
	}
	if generated {
		counts.Daily++
		counts.Lifetime++
	}
	return Inserted, nil
}
