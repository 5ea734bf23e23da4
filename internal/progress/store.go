/*
Package progress
File: store.go
Description:
    Persistent player progress: which levels are unlocked, which are
    completed, and which achievements have been earned. The simulation
    never writes here itself; the game service hands finished outcomes to
    RecordOutcome.
*/

package progress

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/everforgeworks/fabline/internal/clock"
	"github.com/everforgeworks/fabline/internal/sim"
)

// MaxLevel is the highest level id in the campaign.
const MaxLevel = 5

// ErrInvalidLevel is returned for level ids outside 1..MaxLevel.
var ErrInvalidLevel = errors.New("invalid level")

// unlocked on a fresh install
var defaultUnlocked = map[int]bool{1: true, 2: true}

// Level is the progress of one level.
type Level struct {
	Level     int  `json:"level"`
	Unlocked  bool `json:"unlocked"`
	Completed bool `json:"completed"`
}

// Achievement is an earned achievement.
type Achievement struct {
	ID         string `json:"id"`
	Level      int    `json:"level"`
	UnlockedAt string `json:"unlocked_at"`
}

// GormStore implements progress tracking using GORM
type GormStore struct {
	db  *gorm.DB
	clk clock.Clock
}

// NewGormStore creates a new GORM progress store
func NewGormStore(db *gorm.DB, clk clock.Clock) *GormStore {
	return &GormStore{db: db, clk: clk}
}

func checkLevel(level int) error {
	if level < 1 || level > MaxLevel {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	return nil
}

// Seed inserts default rows for levels that have none yet.
func (s *GormStore) Seed(ctx context.Context) error {
	for level := 1; level <= MaxLevel; level++ {
		model := LevelProgressModel{Level: level, Unlocked: defaultUnlocked[level], UpdatedAt: s.clk.Now()}
		result := s.db.WithContext(ctx).Where(LevelProgressModel{Level: level}).FirstOrCreate(&model)
		if result.Error != nil {
			return fmt.Errorf("failed to seed level %d: %w", level, result.Error)
		}
	}
	return nil
}

func (s *GormStore) find(ctx context.Context, level int) (*LevelProgressModel, error) {
	if err := checkLevel(level); err != nil {
		return nil, err
	}

	var model LevelProgressModel
	result := s.db.WithContext(ctx).Where("level = ?", level).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return &LevelProgressModel{Level: level, Unlocked: defaultUnlocked[level]}, nil
		}
		return nil, fmt.Errorf("failed to find level progress: %w", result.Error)
	}
	return &model, nil
}

func (s *GormStore) save(ctx context.Context, model *LevelProgressModel) error {
	model.UpdatedAt = s.clk.Now()
	if result := s.db.WithContext(ctx).Save(model); result.Error != nil {
		return fmt.Errorf("failed to save level progress: %w", result.Error)
	}
	return nil
}

// IsUnlocked reports whether a level may be started.
func (s *GormStore) IsUnlocked(ctx context.Context, level int) (bool, error) {
	model, err := s.find(ctx, level)
	if err != nil {
		return false, err
	}
	return model.Unlocked, nil
}

// IsCompleted reports whether a level has been won.
func (s *GormStore) IsCompleted(ctx context.Context, level int) (bool, error) {
	model, err := s.find(ctx, level)
	if err != nil {
		return false, err
	}
	return model.Completed, nil
}

// UnlockLevel unlocks levels 2..MaxLevel. Level 1 is always unlocked.
func (s *GormStore) UnlockLevel(ctx context.Context, level int) error {
	if level <= 1 {
		return checkLevel(level)
	}
	model, err := s.find(ctx, level)
	if err != nil {
		return err
	}
	if model.Unlocked {
		return nil
	}
	model.Unlocked = true
	return s.save(ctx, model)
}

// CompleteLevel marks a level completed and unlocks the next one.
func (s *GormStore) CompleteLevel(ctx context.Context, level int) error {
	model, err := s.find(ctx, level)
	if err != nil {
		return err
	}
	model.Completed = true
	model.Unlocked = true
	if err := s.save(ctx, model); err != nil {
		return err
	}

	if level < MaxLevel {
		return s.UnlockLevel(ctx, level+1)
	}
	return nil
}

// UnlockAchievement records an achievement once; later calls are no-ops.
// It reports whether this call unlocked it.
func (s *GormStore) UnlockAchievement(ctx context.Context, id string, level int) (bool, error) {
	var existing AchievementModel
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&existing)
	if result.Error == nil {
		return false, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to find achievement: %w", result.Error)
	}

	model := AchievementModel{ID: id, Level: level, UnlockedAt: s.clk.Now()}
	if result := s.db.WithContext(ctx).Create(&model); result.Error != nil {
		return false, fmt.Errorf("failed to unlock achievement %s: %w", id, result.Error)
	}
	return true, nil
}

// IsAchievementUnlocked reports whether an achievement has been earned.
func (s *GormStore) IsAchievementUnlocked(ctx context.Context, id string) (bool, error) {
	var count int64
	if result := s.db.WithContext(ctx).Model(&AchievementModel{}).Where("id = ?", id).Count(&count); result.Error != nil {
		return false, fmt.Errorf("failed to count achievements: %w", result.Error)
	}
	return count > 0, nil
}

// Levels lists progress for every level, filling defaults for missing rows.
func (s *GormStore) Levels(ctx context.Context) ([]Level, error) {
	var models []LevelProgressModel
	if result := s.db.WithContext(ctx).Find(&models); result.Error != nil {
		return nil, fmt.Errorf("failed to list level progress: %w", result.Error)
	}

	byLevel := make(map[int]LevelProgressModel, len(models))
	for _, m := range models {
		byLevel[m.Level] = m
	}

	out := make([]Level, 0, MaxLevel)
	for level := 1; level <= MaxLevel; level++ {
		m, ok := byLevel[level]
		if !ok {
			m = LevelProgressModel{Level: level, Unlocked: defaultUnlocked[level]}
		}
		out = append(out, Level{Level: level, Unlocked: m.Unlocked, Completed: m.Completed})
	}
	return out, nil
}

// Achievements lists earned achievements, oldest first.
func (s *GormStore) Achievements(ctx context.Context) ([]Achievement, error) {
	var models []AchievementModel
	if result := s.db.WithContext(ctx).Order("unlocked_at, id").Find(&models); result.Error != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", result.Error)
	}

	out := make([]Achievement, 0, len(models))
	for _, m := range models {
		out = append(out, Achievement{ID: m.ID, Level: m.Level, UnlockedAt: m.UnlockedAt.UTC().Format(time.RFC3339)})
	}
	return out, nil
}

// ResetAll wipes progress back to a fresh install.
func (s *GormStore) ResetAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&AchievementModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear achievements: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&LevelProgressModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear level progress: %w", err)
		}
		return NewGormStore(tx, s.clk).Seed(ctx)
	})
}

// RecordOutcome stores a finished playthrough. A win completes the level and
// evaluates achievements; the ids unlocked by this call are returned sorted.
func (s *GormStore) RecordOutcome(ctx context.Context, o sim.Outcome) ([]string, error) {
	if o.Status != sim.StatusWon {
		return nil, nil
	}
	if err := s.CompleteLevel(ctx, o.Level); err != nil {
		return nil, err
	}

	var unlocked []string
	for _, id := range EarnedAchievements(o) {
		fresh, err := s.UnlockAchievement(ctx, id, o.Level)
		if err != nil {
			return unlocked, err
		}
		if fresh {
			unlocked = append(unlocked, id)
		}
	}
	sort.Strings(unlocked)
	return unlocked, nil
}
