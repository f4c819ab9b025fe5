package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	MinLevel = 1
	MaxLevel = 5
)

// levelThresholds[i] is the inclusive lower bound of totalSteps for level i+1.
var levelThresholds = [MaxLevel]int64{0, 10_000, 50_000, 150_000, 500_000}

// LevelOf maps lifetime steps to a level in [MinLevel, MaxLevel].
// Negative input is treated as zero.
func LevelOf(totalSteps int64) int {
	level := MinLevel
	for i := MaxLevel - 1; i >= 0; i-- {
		if totalSteps >= levelThresholds[i] {
			level = i + 1
			break
		}
	}
	return level
}

// ThresholdOf returns the minimum totalSteps for the given level.
// Levels outside [MinLevel, MaxLevel] are clamped.
func ThresholdOf(level int) int64 {
	return levelThresholds[clampLevel(level)-1]
}

// NextLevelThreshold returns the steps needed to reach the level after the given one.
// At MaxLevel it returns the MaxLevel threshold.
func NextLevelThreshold(level int) int64 {
	level = clampLevel(level)
	if level >= MaxLevel {
		return ThresholdOf(MaxLevel)
	}
	return ThresholdOf(level + 1)
}

// ProgressPercent is the rounded percentage of the way from the current level's
// threshold to the next one, clamped to [0, 100]. Always 100 at MaxLevel.
func ProgressPercent(level int, totalSteps int64) int {
	level = clampLevel(level)
	if level >= MaxLevel {
		return 100
	}
	lo := ThresholdOf(level)
	hi := ThresholdOf(level + 1)
	pct := int(math.Round(float64(totalSteps-lo) * 100 / float64(hi-lo)))
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

func clampLevel(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// Wallet is the gamification state attached to an account.
type Wallet struct {
	AccountID   uuid.UUID `json:"account_id"`
	CoinBalance int64     `json:"coin_balance"`
	TotalSteps  int64     `json:"total_steps"`
	StepsToday  int64     `json:"steps_today"`
	Level       int       `json:"level"`
	Streak      int       `json:"streak"`
	Badges      []string  `json:"badges"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewWallet returns the wallet every account starts with.
func NewWallet(accountID uuid.UUID) Wallet {
	return Wallet{
		AccountID: accountID,
		Level:     MinLevel,
		Badges:    []string{},
	}
}

// CanCredit reports whether Credit(coins, stepsPerCoin) stays within int64
// for both the balance and the step counters. StepsToday never exceeds
// TotalSteps, so checking TotalSteps covers it.
func (w *Wallet) CanCredit(coins, stepsPerCoin int64) bool {
	if coins <= 0 || stepsPerCoin <= 0 {
		return false
	}
	if coins > math.MaxInt64-w.CoinBalance {
		return false
	}
	return coins <= (math.MaxInt64-w.TotalSteps)/stepsPerCoin
}

// Credit adds coins and the steps they represent, keeping Level in sync with TotalSteps.
// Callers check CanCredit first.
func (w *Wallet) Credit(coins, stepsPerCoin int64) {
	steps := coins * stepsPerCoin
	w.CoinBalance += coins
	w.TotalSteps += steps
	w.StepsToday += steps
	w.Level = LevelOf(w.TotalSteps)
}

// LevelDrifted reports whether the stored level disagrees with TotalSteps.
func (w *Wallet) LevelDrifted() bool {
	return w.Level != LevelOf(w.TotalSteps)
}

// HasBadge reports whether the badge tag has been awarded.
func (w *Wallet) HasBadge(badge string) bool {
	for _, b := range w.Badges {
		if b == badge {
			return true
		}
	}
	return false
}

// AwardBadge appends badge unless it is empty or already held.
// Badges are never removed.
func (w *Wallet) AwardBadge(badge string) bool {
	if badge == "" || w.HasBadge(badge) {
		return false
	}
	w.Badges = append(w.Badges, badge)
	return true
}
