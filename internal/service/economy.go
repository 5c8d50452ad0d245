package service

import (
	"context"
	"errors"
	"time"

	"warthug/internal/domain"
	"warthug/internal/logger"

	"github.com/shopspring/decimal"
)

// saveAttempts bounds the retry loop around version-conflicted saves.
const saveAttempts = 3

// Economy is the player economy engine. Every operation is one
// load-mutate-save cycle: the aggregate is settled lazily against the clock,
// mutated by exactly one subsystem action, and persisted with a
// compare-and-swap save. A failed action persists nothing.
type Economy struct {
	players PlayerStore
	ledger  Ledger
	now     clock
}

// NewEconomy creates the engine over a player store. The ledger may be nil.
func NewEconomy(players PlayerStore, ledger Ledger) *Economy {
	return &Economy{players: players, ledger: ledger, now: time.Now}
}

// mutatePlayer runs fn against a fresh snapshot, settles derived fields and
// saves. On a version conflict the whole cycle is retried against a reload.
func mutatePlayer(ctx context.Context, players PlayerStore, now clock, userID string, fn func(p *domain.Player, now time.Time) error) (*domain.Player, error) {
	var lastErr error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		p, err := players.Load(ctx, userID)
		if err != nil {
			return nil, err
		}

		at := now()
		if err := fn(p, at); err != nil {
			return nil, err
		}
		p.Settle(at)

		if err := players.Save(ctx, p); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return p, nil
	}
	return nil, lastErr
}

func (s *Economy) withPlayer(ctx context.Context, userID string, fn func(p *domain.Player, now time.Time) error) (*domain.Player, error) {
	return mutatePlayer(ctx, s.players, s.now, userID, fn)
}

func (s *Economy) record(ctx context.Context, userID, txType string, amount int64, meta map[string]any) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Record(ctx, userID, txType, amount, meta); err != nil {
		logger.Warn("ledger record failed", "user_id", userID, "type", txType, "error", err)
	}
}

// TapResult summarises one successful tap.
type TapResult struct {
	PointsEarned int64 `json:"pointsEarned"`
	Energy       int64 `json:"energy"`
	TapPoints    int64 `json:"tapPoints"`
}

// Tap spends one energy for perTap points.
func (s *Economy) Tap(ctx context.Context, userID string) (*TapResult, error) {
	var res TapResult
	p, err := s.withPlayer(ctx, userID, func(p *domain.Player, now time.Time) error {
		earned, err := p.Tap(now)
		if err != nil {
			return err
		}
		res.PointsEarned = earned
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Energy = p.Energy
	res.TapPoints = p.TapPoints
	return &res, nil
}

// RefillResult summarises an energy refill.
type RefillResult struct {
	Energy       int64     `json:"currentEnergy"`
	MaxEnergy    int64     `json:"maxEnergy"`
	TotalRefills int64     `json:"totalRefills"`
	CooldownEnds time.Time `json:"cooldownEnds"`
}

// RefillEnergy restores the pool to maximum, on a five minute cooldown.
func (s *Economy) RefillEnergy(ctx context.Context, userID string) (*RefillResult, error) {
	p, err := s.withPlayer(ctx, userID, func(p *domain.Player, now time.Time) error {
		return p.RefillEnergy(now)
	})
	if err != nil {
		return nil, err
	}
	return &RefillResult{
		Energy:       p.Energy,
		MaxEnergy:    p.MaxEnergy,
		TotalRefills: p.TotalEnergyRefills,
		CooldownEnds: p.LastEnergyRefill.Add(domain.RefillCooldown),
	}, nil
}

// UpgradeResult reports the new stat and the doubled next cost.
type UpgradeResult struct {
	PerTap          int64 `json:"perTap,omitempty"`
	MaxEnergy       int64 `json:"maxEnergy,omitempty"`
	TapPoints       int64 `json:"tapPoints"`
	NextUpgradeCost int64 `json:"nextUpgradeCost"`
}

// UpgradeTapPower buys +1 perTap at the current geometric cost.
func (s *Economy) UpgradeTapPower(ctx context.Context, userID string) (*UpgradeResult, error) {
	var cost int64
	p, err := s.withPlayer(ctx, userID, func(p *domain.Player, now time.Time) error {
		cost = p.UpgradeCosts.PerTap
		return p.UpgradeTapPower()
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, userID, "upgrade_tap_power", -cost, nil)
	return &UpgradeResult{
		PerTap:          p.PerTap,
		TapPoints:       p.TapPoints,
		NextUpgradeCost: p.UpgradeCosts.PerTap,
	}, nil
}

// UpgradeEnergyLimit buys +500 maxEnergy at the current geometric cost.
func (s *Economy) UpgradeEnergyLimit(ctx context.Context, userID string) (*UpgradeResult, error) {
	var cost int64
	p, err := s.withPlayer(ctx, userID, func(p *domain.Player, now time.Time) error {
		cost = p.UpgradeCosts.MaxEnergy
		return p.UpgradeEnergyLimit()
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, userID, "upgrade_energy_limit", -cost, nil)
	return &UpgradeResult{
		MaxEnergy:       p.MaxEnergy,
		TapPoints:       p.TapPoints,
		NextUpgradeCost: p.UpgradeCosts.MaxEnergy,
	}, nil
}

// HourlyResult reports the lazily settled passive production.
type HourlyResult struct {
	PointsAwarded int64 `json:"pointsAwarded"`
	TapPoints     int64 `json:"tapPoints"`
}

// AwardHourlyPoints settles per-hour production since the last award.
func (s *Economy) AwardHourlyPoints(ctx context.Context, userID string) (*HourlyResult, error) {
	var awarded int64
	p, err := s.withPlayer(ctx, userID, func(p *domain.Player, now time.Time) error {
		awarded = p.AwardHourlyPoints(now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if awarded > 0 {
		s.record(ctx, userID, "hourly_award", awarded, nil)
	}
	return &HourlyResult{PointsAwarded: awarded, TapPoints: p.TapPoints}, nil
}

// ConvertResult reports a conversion into hug points.
type ConvertResult struct {
	ConvertedHugPoints decimal.Decimal `json:"convertedHugPoints"`
	HugPoints          decimal.Decimal `json:"hugPoints"`
	PointsConverted    int64           `json:"pointsConverted"`
	AvailableRaw       int64           `json:"availableForConversion"`
}

// ConvertToHugPoints converts raw points at the fixed 10000:1 rate.
func (s *Economy) ConvertToHugPoints(ctx context.Context, userID string, rawAmount int64) (*ConvertResult, error) {
	var gained decimal.Decimal
	p, err := s.withPlayer(ctx, userID, func(p *domain.Player, now time.Time) error {
		var err error
		gained, err = p.ConvertToHugPoints(rawAmount, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, userID, "hug_conversion", rawAmount, map[string]any{"hug_points": gained.String()})
	return &ConvertResult{
		ConvertedHugPoints: gained,
		HugPoints:          p.HugPoints,
		PointsConverted:    p.PointsConverted,
		AvailableRaw:       p.AvailableForConversion(),
	}, nil
}

// ProcessDailyClaim applies the streak rules and credits the daily reward.
func (s *Economy) ProcessDailyClaim(ctx context.Context, userID string) (*domain.DailyClaimResult, error) {
	var res domain.DailyClaimResult
	_, err := s.withPlayer(ctx, userID, func(p *domain.Player, now time.Time) error {
		var err error
		res, err = p.ProcessDailyClaim(now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, userID, "daily_claim", res.ClaimedAmount, map[string]any{"streak": res.NewStreak})
	return &res, nil
}

// AutoMineStatus is the settled view of a session.
type AutoMineStatus struct {
	IsActive      bool                   `json:"isActive"`
	PendingPoints int64                  `json:"pendingPoints"`
	StartTime     time.Time              `json:"startTime,omitzero"`
	EndTime       time.Time              `json:"endTime,omitzero"`
	TimeRemaining int64                  `json:"timeRemaining"` // ms
	ClaimHistory  []domain.AutoMineClaim `json:"claimHistory"`
}

func autoMineStatus(p *domain.Player, now time.Time) *AutoMineStatus {
	st := &AutoMineStatus{
		IsActive:      p.IsAutoMining,
		PendingPoints: p.PendingAutoMinePoints,
		ClaimHistory:  p.AutoClaimHistory,
	}
	if p.IsAutoMining {
		st.StartTime = p.AutoMineStartTime
		st.EndTime = p.AutoMineStartTime.Add(p.AutoMineDuration)
		if rem := st.EndTime.Sub(now); rem > 0 {
			st.TimeRemaining = rem.Milliseconds()
		}
	} else {
		st.EndTime = p.LastAutoMineEnd
	}
	return st
}

// StartAutoMine opens a session; duration in milliseconds, zero for default.
func (s *Economy) StartAutoMine(ctx context.Context, userID string, durationMS int64) (*AutoMineStatus, error) {
	if durationMS < 0 {
		return nil, domain.ErrInvalidArgument
	}
	var st *AutoMineStatus
	_, err := s.withPlayer(ctx, userID, func(p *domain.Player, now time.Time) error {
		p.StartAutoMine(time.Duration(durationMS)*time.Millisecond, now)
		st = autoMineStatus(p, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// ProcessAutoMine settles a running session and returns its status.
func (s *Economy) ProcessAutoMine(ctx context.Context, userID string) (*AutoMineStatus, error) {
	var st *AutoMineStatus
	_, err := s.withPlayer(ctx, userID, func(p *domain.Player, now time.Time) error {
		p.ProcessAutoMine(now)
		st = autoMineStatus(p, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// AutoMineClaimResult reports claimed auto-mine rewards.
type AutoMineClaimResult struct {
	PointsClaimed int64 `json:"pointsClaimed"`
	TapPoints     int64 `json:"newTapPoints"`
}

// ClaimAutoMineRewards moves the pending session balance into tapPoints.
func (s *Economy) ClaimAutoMineRewards(ctx context.Context, userID string) (*AutoMineClaimResult, error) {
	var claimed int64
	p, err := s.withPlayer(ctx, userID, func(p *domain.Player, now time.Time) error {
		var err error
		claimed, err = p.ClaimAutoMineRewards(now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, userID, "auto_mine_claim", claimed, nil)
	return &AutoMineClaimResult{PointsClaimed: claimed, TapPoints: p.TapPoints}, nil
}

// StarterBonusResult reports the one-time welcome credit.
type StarterBonusResult struct {
	BonusAmount int64 `json:"bonusAmount"`
	TapPoints   int64 `json:"tapPoints"`
}

// ClaimStarterBonus credits the one-time starter reward.
func (s *Economy) ClaimStarterBonus(ctx context.Context, userID string) (*StarterBonusResult, error) {
	var bonus int64
	p, err := s.withPlayer(ctx, userID, func(p *domain.Player, now time.Time) error {
		var err error
		bonus, err = p.ClaimStarterBonus()
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, userID, "starter_bonus", bonus, nil)
	return &StarterBonusResult{BonusAmount: bonus, TapPoints: p.TapPoints}, nil
}

// UpgradeCardResult carries the refreshed card view and player stats.
type UpgradeCardResult struct {
	Card      *domain.CardInfo `json:"card"`
	TapPoints int64            `json:"tapPoints"`
	PerHour   int64            `json:"perHour"`
	Level     int              `json:"level"`
}

// UpgradeCard buys the next curve step on one card.
func (s *Economy) UpgradeCard(ctx context.Context, userID, section, cardKey string) (*UpgradeCardResult, error) {
	var info *domain.CardInfo
	var price int64
	p, err := s.withPlayer(ctx, userID, func(p *domain.Player, now time.Time) error {
		card := p.Cards.Get(section, cardKey)
		if card != nil {
			price = card.CurrentPrice
		}
		if _, err := p.UpgradeCard(section, cardKey, now); err != nil {
			return err
		}
		var err error
		info, err = p.GetCardInfo(section, cardKey, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, userID, "card_upgrade", -price, map[string]any{"section": section, "card": cardKey})
	return &UpgradeCardResult{
		Card:      info,
		TapPoints: p.TapPoints,
		PerHour:   p.PerHour,
		Level:     p.Level,
	}, nil
}

// GetCardInfo returns the read model for one card without mutating anything.
func (s *Economy) GetCardInfo(ctx context.Context, userID, section, cardKey string) (*domain.CardInfo, error) {
	p, err := s.players.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.GetCardInfo(section, cardKey, s.now())
}

// AllCards returns the read model for every card the player holds, keyed by
// section and card key.
func (s *Economy) AllCards(ctx context.Context, userID string) (map[string]map[string]*domain.CardInfo, *domain.Player, error) {
	p, err := s.players.Load(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	out := make(map[string]map[string]*domain.CardInfo, len(p.Cards))
	for section, set := range p.Cards {
		out[section] = make(map[string]*domain.CardInfo, len(set))
		for key := range set {
			info, err := p.GetCardInfo(section, key, now)
			if err != nil {
				return nil, nil, err
			}
			out[section][key] = info
		}
	}
	return out, p, nil
}

// DailyClaimInfo is the read model for the daily streak widget.
type DailyClaimInfo struct {
	CanClaim        bool      `json:"canClaim"`
	CurrentStreak   int       `json:"currentStreak"`
	NextClaimAmount int64     `json:"nextClaimAmount"`
	LastClaim       time.Time `json:"lastClaim,omitzero"`
	NextClaimTime   time.Time `json:"nextClaimTime,omitzero"`
	StreakWeek      int       `json:"streakWeek"`
	DayInWeek       int       `json:"dayInWeek"`
}

// GetDailyClaimInfo inspects the daily claim state without mutating it.
func (s *Economy) GetDailyClaimInfo(ctx context.Context, userID string) (*DailyClaimInfo, error) {
	p, err := s.players.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	info := &DailyClaimInfo{
		CanClaim:        p.CanClaimDaily(now),
		CurrentStreak:   p.DailyClaimStreak,
		NextClaimAmount: p.DailyClaimAmount(),
		LastClaim:       p.LastDailyClaim,
		StreakWeek:      p.DailyClaimStreak/7 + 1,
		DayInWeek:       p.DailyClaimStreak%7 + 1,
	}
	if !p.LastDailyClaim.IsZero() {
		info.NextClaimTime = p.LastDailyClaim.Add(24 * time.Hour)
	}
	return info, nil
}

// PointsInfo is the consolidated currency read model.
type PointsInfo struct {
	TapPoints       int64               `json:"tapPoints"`
	ReferralPoints  int64               `json:"referralPoints"`
	TotalPoints     int64               `json:"totalPoints"`
	HugPoints       decimal.Decimal     `json:"hugPoints"`
	PointsConverted int64               `json:"pointsConverted"`
	AvailableRaw    int64               `json:"availableForConversion"`
	AvailableHug    decimal.Decimal     `json:"availableHugPoints"`
	PerTap          int64               `json:"perTap"`
	PerHour         int64               `json:"perHour"`
	Energy          int64               `json:"energy"`
	MaxEnergy       int64               `json:"maxEnergy"`
	Level           int                 `json:"level"`
	UpgradeCosts    domain.UpgradeCosts `json:"upgradeCosts"`
}

// GetPointsInfo assembles the currency read model at the current instant.
func (s *Economy) GetPointsInfo(ctx context.Context, userID string) (*PointsInfo, error) {
	p, err := s.players.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return pointsInfo(p, s.now()), nil
}

func pointsInfo(p *domain.Player, now time.Time) *PointsInfo {
	avail := p.AvailableForConversion()
	return &PointsInfo{
		TapPoints:       p.TapPoints,
		ReferralPoints:  p.ReferralPoints,
		TotalPoints:     p.TapPoints + p.ReferralPoints,
		HugPoints:       p.HugPoints,
		PointsConverted: p.PointsConverted,
		AvailableRaw:    avail,
		AvailableHug:    decimal.NewFromInt(avail).DivRound(decimal.NewFromInt(10000), 4),
		PerTap:          p.PerTap,
		PerHour:         p.PerHour,
		Energy:          p.CurrentEnergy(now),
		MaxEnergy:       p.MaxEnergy,
		Level:           p.Level,
		UpgradeCosts:    p.UpgradeCosts,
	}
}

// Status is the full player status document: currencies, daily claim,
// auto-mine and referral counts, all settled lazily against the clock.
type Status struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`

	PointsInfo
	DailyClaimInfo DailyClaimInfo `json:"dailyClaimInfo"`
	AutoMine       AutoMineStatus `json:"autoMine"`

	ReferralInfo struct {
		DirectCount    int   `json:"directCount"`
		IndirectCount  int   `json:"indirectCount"`
		ReferralPoints int64 `json:"totalReferralPoints"`
	} `json:"referralInfo"`
}

// MonitorStatus settles every lazy subsystem (auto-mine accrual and end,
// pending auto-claims, energy view), persists the result and returns the
// status document.
func (s *Economy) MonitorStatus(ctx context.Context, userID string) (*Status, error) {
	var st *Status
	_, err := s.withPlayer(ctx, userID, func(p *domain.Player, now time.Time) error {
		if pending := p.ProcessAutoMine(now); pending > 0 {
			// Status polls sweep matured auto-mine points straight in.
			if _, err := p.ClaimAutoMineRewards(now); err != nil && !errors.Is(err, domain.ErrNothingToClaim) {
				return err
			}
		}
		p.Energy = p.CurrentEnergy(now)
		p.LastTapTime = now

		st = &Status{
			Username:   p.Username,
			UserID:     p.UserID,
			PointsInfo: *pointsInfo(p, now),
			AutoMine:   *autoMineStatus(p, now),
		}
		st.DailyClaimInfo = DailyClaimInfo{
			CanClaim:        p.CanClaimDaily(now),
			CurrentStreak:   p.DailyClaimStreak,
			NextClaimAmount: p.DailyClaimAmount(),
			LastClaim:       p.LastDailyClaim,
			StreakWeek:      p.DailyClaimStreak/7 + 1,
			DayInWeek:       p.DailyClaimStreak%7 + 1,
		}
		if !p.LastDailyClaim.IsZero() {
			st.DailyClaimInfo.NextClaimTime = p.LastDailyClaim.Add(24 * time.Hour)
		}
		st.ReferralInfo.DirectCount = len(p.DirectReferrals)
		st.ReferralInfo.IndirectCount = len(p.IndirectReferrals)
		st.ReferralInfo.ReferralPoints = p.ReferralPoints
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}
