package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Starting balances and fixed economy constants.
const (
	InitialEnergy      = 1000
	InitialMaxEnergy   = 1000
	InitialPerTap      = 1
	InitialUpgradeCost = 1024

	EnergyUpgradeStep   = 500
	RefillCooldown      = 5 * time.Minute
	StarterBonusAmount  = 10000
	InitialDailyClaim   = 1000
	AutoMinePointsPerHr = 500
	DefaultAutoMineTime = 2 * time.Hour

	ReferralRewardVerified   = 50000
	ReferralRewardUnverified = 20000
	ReferralRankTop10Reward  = 100000
	ReferralRankTop30Reward  = 50000
	ReferralRankCooldown     = 7 * 24 * time.Hour
	ReferralRankCutoff       = 30
)

// conversionRate is the raw-points cost of one hug point.
const conversionRate = 10000

// levelThresholds maps level index to the minimum totalPoints for that level.
var levelThresholds = []int64{0, 25000, 50000, 300000, 500000, 1000000, 10000000, 100000000, 500000000, 1000000000}

// dailyClaimTiers is keyed by floor(streak/7); streaks past the table get the
// final tier.
var dailyClaimTiers = []int64{1000, 5000, 10000, 20000, 35000}

const dailyClaimMaxTier = 50000

// ReferralEntry records one referred player on the referrer's side.
// ReferredBy is set only for indirect (second-level) entries.
type ReferralEntry struct {
	Username     string    `json:"username"`
	UserID       string    `json:"userId"`
	ReferredBy   string    `json:"referredBy,omitempty"`
	PointsEarned int64     `json:"pointsEarned"`
	IsVerified   bool      `json:"isVerified"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// AutoMineClaim is one entry of the append-only auto-mine accrual log.
type AutoMineClaim struct {
	ClaimTime     time.Time `json:"claimTime"`
	PointsClaimed int64     `json:"pointsClaimed"`
}

// UpgradeCosts tracks the geometric player-level upgrade prices.
type UpgradeCosts struct {
	PerTap    int64 `json:"perTap"`
	MaxEnergy int64 `json:"maxEnergy"`
}

// Player is the aggregate every economy operation loads, mutates and saves.
// All time-gated effects are pure functions of the stored state and a caller
// supplied instant; nothing here ticks on its own.
type Player struct {
	ID       int64  `json:"-"`
	Username string `json:"username"`
	UserID   string `json:"userId"`

	Energy             int64     `json:"energy"`
	MaxEnergy          int64     `json:"maxEnergy"`
	PerTap             int64     `json:"perTap"`
	LastTapTime        time.Time `json:"lastTapTime"`
	LastEnergyRefill   time.Time `json:"lastEnergyRefill"`
	TotalEnergyRefills int64     `json:"totalEnergyRefills"`

	TapPoints      int64 `json:"tapPoints"`
	ReferralPoints int64 `json:"referralPoints"`
	TotalPoints    int64 `json:"totalPoints"`
	Level          int   `json:"level"`

	HugPoints          decimal.Decimal `json:"hugPoints"`
	PointsConverted    int64           `json:"pointsConverted"`
	LastConversionTime time.Time       `json:"lastConversionTime"`

	PerHour         int64     `json:"perHour"`
	LastHourlyAward time.Time `json:"lastHourlyAward"`

	UpgradeCosts UpgradeCosts `json:"upgradeCosts"`

	Cards Collections `json:"cards"`

	DailyClaimStreak     int       `json:"dailyClaimStreak"`
	LastDailyClaim       time.Time `json:"lastDailyClaim"`
	NextDailyClaimAmount int64     `json:"nextDailyClaimAmount"`

	IsAutoMining          bool            `json:"isAutoMining"`
	AutoMineStartTime     time.Time       `json:"autoMineStartTime"`
	AutoMineDuration      time.Duration   `json:"autoMineDuration"`
	PendingAutoMinePoints int64           `json:"pendingAutoMinePoints"`
	LastAutoMineEnd       time.Time       `json:"lastAutoMineEnd"`
	AutoClaimHistory      []AutoMineClaim `json:"autoClaimHistory"`

	Referral                string          `json:"referral,omitempty"`
	DirectReferrals         []ReferralEntry `json:"directReferrals"`
	IndirectReferrals       []ReferralEntry `json:"indirectReferrals"`
	ClaimedReferrals        []string        `json:"claimedReferrals"`
	LastReferralRewardClaim time.Time       `json:"lastReferralRewardClaim"`

	HasClaimedStarterBonus bool      `json:"hasClaimedStarterBonus"`
	IsVerified             bool      `json:"isVerified"`
	IsActive               bool      `json:"isActive"`
	LastActive             time.Time `json:"lastActive"`
	CreatedAt              time.Time `json:"createdAt"`

	// Version is the optimistic-concurrency token for compare-and-swap saves.
	Version int64 `json:"-"`
}

// NewPlayer creates a fresh aggregate with starter balances and empty
// collections. Referral attribution happens separately at registration.
func NewPlayer(username, userID string, verified bool, now time.Time) *Player {
	return &Player{
		Username:        username,
		UserID:          userID,
		Energy:          InitialEnergy,
		MaxEnergy:       InitialMaxEnergy,
		PerTap:          InitialPerTap,
		LastTapTime:     now,
		LastHourlyAward: now,
		HugPoints:       decimal.Zero,
		UpgradeCosts: UpgradeCosts{
			PerTap:    InitialUpgradeCost,
			MaxEnergy: InitialUpgradeCost,
		},
		Cards:                NewCollections(),
		NextDailyClaimAmount: InitialDailyClaim,
		DirectReferrals:      []ReferralEntry{},
		IndirectReferrals:    []ReferralEntry{},
		ClaimedReferrals:     []string{},
		AutoClaimHistory:     []AutoMineClaim{},
		IsVerified:           verified,
		IsActive:             true,
		LastActive:           now,
		CreatedAt:            now,
	}
}

// LevelForPoints returns the largest level whose threshold is satisfied.
func LevelForPoints(totalPoints int64) int {
	for i := len(levelThresholds) - 1; i >= 0; i-- {
		if totalPoints >= levelThresholds[i] {
			return i
		}
	}
	return 0
}

// NextLevelThreshold returns the totalPoints needed for the next level, or the
// top threshold when the player is already maxed.
func NextLevelThreshold(totalPoints int64) int64 {
	for _, t := range levelThresholds {
		if totalPoints < t {
			return t
		}
	}
	return levelThresholds[len(levelThresholds)-1]
}

// Settle recomputes the derived fields before every persisted transition:
// totalPoints, level and the activity stamp.
func (p *Player) Settle(now time.Time) {
	p.TotalPoints = p.TapPoints + p.ReferralPoints
	p.Level = LevelForPoints(p.TotalPoints)
	p.LastActive = now
}

// --- Energy ---

// CurrentEnergy derives the lazily regenerated energy at the given instant.
// Regeneration is perTap energy per second, capped at maxEnergy.
func (p *Player) CurrentEnergy(now time.Time) int64 {
	elapsed := now.Sub(p.LastTapTime)
	if elapsed < 0 {
		elapsed = 0
	}
	regen := int64(elapsed/time.Second) * p.PerTap
	if e := p.Energy + regen; e < p.MaxEnergy {
		return e
	}
	return p.MaxEnergy
}

// Tap consumes one energy (post-regen) and earns perTap points.
func (p *Player) Tap(now time.Time) (int64, error) {
	energy := p.CurrentEnergy(now)
	if energy <= 0 {
		return 0, fmt.Errorf("tap: %w", ErrInsufficientEnergy)
	}
	p.Energy = energy - 1
	p.TapPoints += p.PerTap
	p.LastTapTime = now
	return p.PerTap, nil
}

// RefillEnergy restores the pool to maxEnergy, at most once per five minutes.
func (p *Player) RefillEnergy(now time.Time) error {
	if !p.LastEnergyRefill.IsZero() && now.Sub(p.LastEnergyRefill) < RefillCooldown {
		return fmt.Errorf("energy refill: %w", ErrCooldownActive)
	}
	p.Energy = p.MaxEnergy
	p.LastEnergyRefill = now
	p.TotalEnergyRefills++
	return nil
}

// --- Player upgrades ---

// UpgradeTapPower buys +1 perTap and doubles the next cost.
func (p *Player) UpgradeTapPower() error {
	cost := p.UpgradeCosts.PerTap
	if p.TapPoints < cost {
		return fmt.Errorf("upgrade tap power: %w", ErrInsufficientFunds)
	}
	p.TapPoints -= cost
	p.PerTap++
	p.UpgradeCosts.PerTap *= 2
	return nil
}

// UpgradeEnergyLimit buys +500 maxEnergy and doubles the next cost.
func (p *Player) UpgradeEnergyLimit() error {
	cost := p.UpgradeCosts.MaxEnergy
	if p.TapPoints < cost {
		return fmt.Errorf("upgrade energy limit: %w", ErrInsufficientFunds)
	}
	p.TapPoints -= cost
	p.MaxEnergy += EnergyUpgradeStep
	p.UpgradeCosts.MaxEnergy *= 2
	return nil
}

// --- Passive production ---

// AwardHourlyPoints settles the lazy per-hour production. Returns the points
// credited; zero when less than a full hour has elapsed.
func (p *Player) AwardHourlyPoints(now time.Time) int64 {
	hours := int64(now.Sub(p.LastHourlyAward) / time.Hour)
	if hours < 1 {
		return 0
	}
	awarded := p.PerHour * hours
	p.TapPoints += awarded
	p.LastHourlyAward = now
	return awarded
}

// --- Conversion ---

// AvailableForConversion is lifetime earned points minus the conversion ledger.
func (p *Player) AvailableForConversion() int64 {
	avail := p.TapPoints + p.ReferralPoints - p.PointsConverted
	if avail < 0 {
		return 0
	}
	return avail
}

// ConvertToHugPoints converts raw points into hug points at 10000:1. The
// pointsConverted ledger, not a balance debit, tracks what has been spent.
func (p *Player) ConvertToHugPoints(rawAmount int64, now time.Time) (decimal.Decimal, error) {
	if rawAmount < 1 {
		return decimal.Zero, fmt.Errorf("convert: %w", ErrInvalidArgument)
	}
	if rawAmount > p.AvailableForConversion() {
		return decimal.Zero, fmt.Errorf("convert: %w", ErrInsufficientFunds)
	}
	gained := decimal.NewFromInt(rawAmount).DivRound(decimal.NewFromInt(conversionRate), 4)
	p.HugPoints = p.HugPoints.Add(gained).Round(4)
	p.PointsConverted += rawAmount
	p.LastConversionTime = now
	return gained, nil
}

// --- Daily claim ---

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DailyClaimAmount returns the reward for the current streak.
func (p *Player) DailyClaimAmount() int64 {
	week := p.DailyClaimStreak / 7
	if week < len(dailyClaimTiers) {
		return dailyClaimTiers[week]
	}
	return dailyClaimMaxTier
}

// CanClaimDaily reports whether a claim would succeed right now.
func (p *Player) CanClaimDaily(now time.Time) bool {
	if p.LastDailyClaim.IsZero() {
		return true
	}
	return !sameCalendarDay(now, p.LastDailyClaim) && now.Sub(p.LastDailyClaim) >= 24*time.Hour
}

// DailyClaimResult summarises a successful daily claim.
type DailyClaimResult struct {
	ClaimedAmount   int64 `json:"claimedAmount"`
	NewStreak       int   `json:"currentStreak"`
	NextClaimAmount int64 `json:"nextClaimAmount"`
}

// ProcessDailyClaim applies the loop: same calendar day fails AlreadyClaimed,
// under 24 hours fails CooldownActive, over 48 hours resets the streak to zero
// before the claim is counted.
func (p *Player) ProcessDailyClaim(now time.Time) (DailyClaimResult, error) {
	if !p.LastDailyClaim.IsZero() {
		if sameCalendarDay(now, p.LastDailyClaim) {
			return DailyClaimResult{}, fmt.Errorf("daily claim: %w", ErrAlreadyClaimed)
		}
		since := now.Sub(p.LastDailyClaim)
		if since < 24*time.Hour {
			return DailyClaimResult{}, fmt.Errorf("daily claim: %w", ErrCooldownActive)
		}
		if since > 48*time.Hour {
			p.DailyClaimStreak = 0
		}
	}

	reward := p.DailyClaimAmount()
	p.TapPoints += reward
	p.DailyClaimStreak++
	p.LastDailyClaim = now
	p.NextDailyClaimAmount = p.DailyClaimAmount()

	return DailyClaimResult{
		ClaimedAmount:   reward,
		NewStreak:       p.DailyClaimStreak,
		NextClaimAmount: p.NextDailyClaimAmount,
	}, nil
}

// --- Auto-mine ---

// StartAutoMine opens a timed passive-earning session. A zero duration selects
// the two hour default.
func (p *Player) StartAutoMine(duration time.Duration, now time.Time) {
	if duration <= 0 {
		duration = DefaultAutoMineTime
	}
	p.IsAutoMining = true
	p.AutoMineStartTime = now
	p.AutoMineDuration = duration
	p.PendingAutoMinePoints = 0
}

// ProcessAutoMine settles a running session against the clock: it ends the
// session once the duration is spent, otherwise accrues one fixed increment
// per full hour since the last history entry. Returns the pending balance.
func (p *Player) ProcessAutoMine(now time.Time) int64 {
	if !p.IsAutoMining {
		return 0
	}
	if now.Sub(p.AutoMineStartTime) >= p.AutoMineDuration {
		p.IsAutoMining = false
		p.AutoMineStartTime = time.Time{}
		p.LastAutoMineEnd = now
		return 0
	}

	last := p.AutoMineStartTime
	if n := len(p.AutoClaimHistory); n > 0 {
		last = p.AutoClaimHistory[n-1].ClaimTime
	}
	if now.Sub(last) >= time.Hour {
		p.PendingAutoMinePoints += AutoMinePointsPerHr
		p.AutoClaimHistory = append(p.AutoClaimHistory, AutoMineClaim{
			ClaimTime:     now,
			PointsClaimed: AutoMinePointsPerHr,
		})
	}
	return p.PendingAutoMinePoints
}

// ClaimAutoMineRewards moves the pending balance into tapPoints.
func (p *Player) ClaimAutoMineRewards(now time.Time) (int64, error) {
	if p.PendingAutoMinePoints <= 0 {
		return 0, fmt.Errorf("auto-mine claim: %w", ErrNothingToClaim)
	}
	claimed := p.PendingAutoMinePoints
	p.TapPoints += claimed
	p.PendingAutoMinePoints = 0
	p.AutoClaimHistory = append(p.AutoClaimHistory, AutoMineClaim{
		ClaimTime:     now,
		PointsClaimed: claimed,
	})
	return claimed, nil
}

// --- One-time and referral claims ---

// ClaimStarterBonus credits the one-time welcome reward.
func (p *Player) ClaimStarterBonus() (int64, error) {
	if p.HasClaimedStarterBonus {
		return 0, fmt.Errorf("starter bonus: %w", ErrAlreadyClaimed)
	}
	p.TapPoints += StarterBonusAmount
	p.HasClaimedStarterBonus = true
	return StarterBonusAmount, nil
}

// TotalReferrals counts both referral tiers.
func (p *Player) TotalReferrals() int {
	return len(p.DirectReferrals) + len(p.IndirectReferrals)
}

// AttachDirectReferral records a first-level referred player. Attribution
// happens exactly once, at the referred player's registration.
func (p *Player) AttachDirectReferral(username, userID string, verified bool, now time.Time) {
	p.DirectReferrals = append(p.DirectReferrals, ReferralEntry{
		Username:   username,
		UserID:     userID,
		IsVerified: verified,
		JoinedAt:   now,
	})
}

// AttachIndirectReferral records a second-level referred player on the
// referrer's own referrer.
func (p *Player) AttachIndirectReferral(username, userID, referredBy string, verified bool, now time.Time) {
	p.IndirectReferrals = append(p.IndirectReferrals, ReferralEntry{
		Username:   username,
		UserID:     userID,
		ReferredBy: referredBy,
		IsVerified: verified,
		JoinedAt:   now,
	})
}

// HasClaimedReferral reports whether the reward for a referral edge was paid.
func (p *Player) HasClaimedReferral(referralUserID string) bool {
	for _, id := range p.ClaimedReferrals {
		if id == referralUserID {
			return true
		}
	}
	return false
}

// ClaimReferralReward pays out one direct referral edge at most once. The
// referred player's verification decides the flat amount.
func (p *Player) ClaimReferralReward(referralUserID string, verified bool) (int64, error) {
	var entry *ReferralEntry
	for i := range p.DirectReferrals {
		if p.DirectReferrals[i].UserID == referralUserID {
			entry = &p.DirectReferrals[i]
			break
		}
	}
	if entry == nil {
		return 0, fmt.Errorf("referral %q: %w", referralUserID, ErrNotFound)
	}
	if p.HasClaimedReferral(referralUserID) {
		return 0, fmt.Errorf("referral reward: %w", ErrAlreadyClaimed)
	}

	reward := int64(ReferralRewardUnverified)
	if verified {
		reward = ReferralRewardVerified
	}
	p.TapPoints += reward
	entry.PointsEarned += reward
	p.ClaimedReferrals = append(p.ClaimedReferrals, referralUserID)
	return reward, nil
}

// ReferralRankReward returns the weekly reward for a leaderboard rank, or
// zero when the rank is outside the paying cutoff.
func ReferralRankReward(rank int) int64 {
	switch {
	case rank <= 0 || rank > ReferralRankCutoff:
		return 0
	case rank <= 10:
		return ReferralRankTop10Reward
	default:
		return ReferralRankTop30Reward
	}
}

// ClaimReferralRankReward pays the weekly referral-leaderboard reward.
func (p *Player) ClaimReferralRankReward(rank int, now time.Time) (int64, error) {
	reward := ReferralRankReward(rank)
	if reward == 0 {
		return 0, fmt.Errorf("referral rank %d: %w", rank, ErrNotEligible)
	}
	if !p.LastReferralRewardClaim.IsZero() && now.Sub(p.LastReferralRewardClaim) < ReferralRankCooldown {
		return 0, fmt.Errorf("referral rank reward: %w", ErrCooldownActive)
	}
	p.TapPoints += reward
	p.LastReferralRewardClaim = now
	return reward, nil
}
