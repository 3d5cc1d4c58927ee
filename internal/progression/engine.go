// Package progression owns the cumulative player state for one identity:
// focus minutes, resource points, completed tasks, session history, the
// harvested inventory, and the level derived from them.
package progression

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "focusvillage/backend/internal/errors"
	"focusvillage/backend/internal/model"
	"focusvillage/backend/internal/store"
)

const defaultCategory = "general"

type Engine struct {
	mu      sync.Mutex
	key     string
	docs    store.DocumentStore
	log     *zap.SugaredLogger
	now     func() time.Time
	profile *model.Profile
}

// Load builds the engine for an identity, reading the persisted profile or
// starting a fresh one for a first login.
func Load(ctx context.Context, key string, docs store.DocumentStore, log *zap.SugaredLogger) *Engine {
	e := &Engine{
		key:     key,
		docs:    docs,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
		profile: model.NewProfile(),
	}

	doc, err := docs.Load(ctx, key)
	if err != nil {
		if err != apperrors.ErrNotFound {
			log.Errorw("load profile", "key", key, "error", err)
		}
		return e
	}

	raw, ok := doc[store.FieldProfile]
	if !ok {
		return e
	}
	var profile model.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		log.Errorw("decode profile", "key", key, "error", err)
		return e
	}
	if profile.Level < 1 {
		profile.Level = 1
	}
	if profile.SessionHistory == nil {
		profile.SessionHistory = []model.SessionRecord{}
	}
	if profile.HarvestedItems == nil {
		profile.HarvestedItems = []model.HarvestedItem{}
	}
	e.profile = &profile
	return e
}

// OnFocusSessionCompleted credits a finished focus countdown: one resource
// point per focus minute, streak roll-over, then level re-evaluation.
func (e *Engine) OnFocusSessionCompleted(ctx context.Context, durationMinutes int, category string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if durationMinutes < 0 {
		durationMinutes = 0
	}
	if category == "" {
		category = defaultCategory
	}

	now := e.now()
	e.profile.SessionHistory = append(e.profile.SessionHistory, model.SessionRecord{
		Timestamp:       now,
		DurationMinutes: durationMinutes,
		Category:        category,
		Kind:            model.ModeFocus,
	})
	e.profile.TotalFocusMinutes += durationMinutes
	e.profile.ResourcePoints += durationMinutes
	e.rollStreak(now)
	e.profile.Level = EvaluateLevel(e.profile)
	e.persist(ctx)
}

// OnBreakSessionCompleted records the break in the history; breaks never
// affect level or resource points.
func (e *Engine) OnBreakSessionCompleted(ctx context.Context, durationMinutes int, breakKind string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if durationMinutes < 0 {
		durationMinutes = 0
	}
	if !model.IsValidMode(breakKind) || breakKind == model.ModeFocus {
		breakKind = model.ModeShortBreak
	}

	e.profile.SessionHistory = append(e.profile.SessionHistory, model.SessionRecord{
		Timestamp:       e.now(),
		DurationMinutes: durationMinutes,
		Category:        defaultCategory,
		Kind:            breakKind,
	})
	e.persist(ctx)
}

// OnTaskCompleted bumps the completed-task counter. The counter is monotone:
// un-completing a task later does not decrement it.
func (e *Engine) OnTaskCompleted(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.profile.CompletedTaskCount++
	e.profile.Level = EvaluateLevel(e.profile)
	e.persist(ctx)
}

// Harvest spends resource points on the given tier's item. Tier 1 is free
// but claimable once. Nothing mutates on a failed harvest.
func (e *Engine) Harvest(ctx context.Context, tier int) (model.HarvestedItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	spec, ok := harvestTiers[tier]
	if !ok {
		return model.HarvestedItem{}, apperrors.ErrNotFound
	}

	if spec.Cost == 0 {
		for _, item := range e.profile.HarvestedItems {
			if item.Kind == spec.Kind {
				return model.HarvestedItem{}, apperrors.ErrAlreadyHarvested
			}
		}
	}
	if e.profile.ResourcePoints < spec.Cost {
		return model.HarvestedItem{}, apperrors.ErrInsufficientResources
	}

	item := model.HarvestedItem{Kind: spec.Kind, Timestamp: e.now()}
	e.profile.ResourcePoints -= spec.Cost
	e.profile.HarvestedItems = append(e.profile.HarvestedItems, item)
	e.profile.Experience += spec.Reward
	e.profile.LifetimeExperience += spec.Reward
	e.persist(ctx)
	return item, nil
}

// Snapshot returns a deep copy for read-only consumers.
func (e *Engine) Snapshot() model.Profile {
	e.mu.Lock()
	defer e.mu.Unlock()

	copied := *e.profile
	copied.SessionHistory = append([]model.SessionRecord(nil), e.profile.SessionHistory...)
	copied.HarvestedItems = append([]model.HarvestedItem(nil), e.profile.HarvestedItems...)
	return copied
}

// History returns the most recent session records, newest first.
func (e *Engine) History(limit int) []model.SessionRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	history := e.profile.SessionHistory
	records := make([]model.SessionRecord, 0, limit)
	for i := len(history) - 1; i >= 0 && len(records) < limit; i-- {
		records = append(records, history[i])
	}
	return records
}

func (e *Engine) rollStreak(now time.Time) {
	today := now.Format("2006-01-02")
	switch e.profile.LastActiveDate {
	case today:
	case now.AddDate(0, 0, -1).Format("2006-01-02"):
		e.profile.StreakDays++
	default:
		e.profile.StreakDays = 1
	}
	e.profile.LastActiveDate = today
}

// persist writes the profile through after every mutation. Failures are
// logged; the in-memory profile stays authoritative.
func (e *Engine) persist(ctx context.Context) {
	raw, err := json.Marshal(e.profile)
	if err != nil {
		e.log.Errorw("encode profile", "key", e.key, "error", err)
		return
	}
	if err := e.docs.Write(ctx, e.key, store.Document{store.FieldProfile: raw}); err != nil {
		e.log.Errorw("persist profile", "key", e.key, "error", err)
	}
}
