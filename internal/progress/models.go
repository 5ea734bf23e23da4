package progress

import "time"

// LevelProgressModel represents the level_progress table
type LevelProgressModel struct {
	Level     int       `gorm:"column:level;primaryKey;autoIncrement:false"`
	Unlocked  bool      `gorm:"column:unlocked;not null;default:false"`
	Completed bool      `gorm:"column:completed;not null;default:false"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (LevelProgressModel) TableName() string {
	return "level_progress"
}

// AchievementModel represents the achievements table
type AchievementModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	Level      int       `gorm:"column:level;not null"`
	UnlockedAt time.Time `gorm:"column:unlocked_at;not null"`
}

func (AchievementModel) TableName() string {
	return "achievements"
}
