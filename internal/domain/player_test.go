package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestPlayer() *Player {
	return NewPlayer("warthog", "u-1", true, t0)
}

func TestEnergyRegenCapped(t *testing.T) {
	p := newTestPlayer()
	p.Energy = 0
	p.LastTapTime = t0

	// 10 seconds at perTap=1 regenerates 10
	if got := p.CurrentEnergy(t0.Add(10 * time.Second)); got != 10 {
		t.Fatalf("expected 10 energy, got %d", got)
	}
	// regen never exceeds the pool
	if got := p.CurrentEnergy(t0.Add(24 * time.Hour)); got != p.MaxEnergy {
		t.Fatalf("expected cap at %d, got %d", p.MaxEnergy, got)
	}
	// fractional seconds floor away
	if got := p.CurrentEnergy(t0.Add(1500 * time.Millisecond)); got != 1 {
		t.Fatalf("expected 1 energy after 1.5s, got %d", got)
	}
}

func TestTapConservation(t *testing.T) {
	p := newTestPlayer()
	p.PerTap = 3
	before := p.CurrentEnergy(t0)

	earned, err := p.Tap(t0)
	if err != nil {
		t.Fatalf("tap failed: %v", err)
	}
	if earned != 3 {
		t.Fatalf("expected 3 points, got %d", earned)
	}
	if p.TapPoints != 3 {
		t.Fatalf("expected tapPoints 3, got %d", p.TapPoints)
	}
	if p.Energy != before-1 {
		t.Fatalf("expected energy %d, got %d", before-1, p.Energy)
	}
}

func TestTapExhausted(t *testing.T) {
	p := newTestPlayer()
	p.Energy = 0
	p.LastTapTime = t0

	if _, err := p.Tap(t0); !errors.Is(err, ErrInsufficientEnergy) {
		t.Fatalf("expected ErrInsufficientEnergy, got %v", err)
	}
	if p.TapPoints != 0 {
		t.Fatalf("failed tap must not credit points, got %d", p.TapPoints)
	}
}

func TestRefillCooldown(t *testing.T) {
	p := newTestPlayer()
	p.Energy = 1
	p.LastTapTime = t0

	if err := p.RefillEnergy(t0); err != nil {
		t.Fatalf("first refill failed: %v", err)
	}
	if p.Energy != p.MaxEnergy {
		t.Fatalf("expected full energy, got %d", p.Energy)
	}
	if err := p.RefillEnergy(t0.Add(time.Minute)); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}
	if err := p.RefillEnergy(t0.Add(5*time.Minute + time.Second)); err != nil {
		t.Fatalf("refill after cooldown failed: %v", err)
	}
	if p.TotalEnergyRefills != 2 {
		t.Fatalf("expected 2 refills recorded, got %d", p.TotalEnergyRefills)
	}
}

func TestUpgradeCostDoubling(t *testing.T) {
	p := newTestPlayer()
	p.TapPoints = 1024 + 2048

	if err := p.UpgradeTapPower(); err != nil {
		t.Fatalf("first upgrade failed: %v", err)
	}
	if p.PerTap != 2 {
		t.Fatalf("expected perTap 2, got %d", p.PerTap)
	}
	if p.UpgradeCosts.PerTap != 2048 {
		t.Fatalf("expected next cost 2048, got %d", p.UpgradeCosts.PerTap)
	}
	if err := p.UpgradeTapPower(); err != nil {
		t.Fatalf("second upgrade failed: %v", err)
	}
	if p.TapPoints != 0 {
		t.Fatalf("expected exact spend to zero, got %d", p.TapPoints)
	}
	if err := p.UpgradeTapPower(); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestUpgradeEnergyLimit(t *testing.T) {
	p := newTestPlayer()
	p.TapPoints = 1024

	if err := p.UpgradeEnergyLimit(); err != nil {
		t.Fatalf("upgrade failed: %v", err)
	}
	if p.MaxEnergy != InitialMaxEnergy+500 {
		t.Fatalf("expected maxEnergy %d, got %d", InitialMaxEnergy+500, p.MaxEnergy)
	}
	if p.UpgradeCosts.MaxEnergy != 2048 {
		t.Fatalf("expected next cost 2048, got %d", p.UpgradeCosts.MaxEnergy)
	}
}

func TestHourlyAwardFloorsWholeHours(t *testing.T) {
	p := newTestPlayer()
	p.PerHour = 100
	p.LastHourlyAward = t0

	if got := p.AwardHourlyPoints(t0.Add(59 * time.Minute)); got != 0 {
		t.Fatalf("expected 0 before a full hour, got %d", got)
	}
	if got := p.AwardHourlyPoints(t0.Add(2*time.Hour + 30*time.Minute)); got != 200 {
		t.Fatalf("expected 200 for two whole hours, got %d", got)
	}
	// the award resets the anchor, so another hour must pass
	if got := p.AwardHourlyPoints(t0.Add(3 * time.Hour)); got != 0 {
		t.Fatalf("expected 0 half an hour after the award, got %d", got)
	}
	if got := p.AwardHourlyPoints(t0.Add(3*time.Hour + 30*time.Minute)); got != 100 {
		t.Fatalf("expected 100 a full hour after the award, got %d", got)
	}
}

func TestConversionLedgerBound(t *testing.T) {
	p := newTestPlayer()
	p.TapPoints = 25000

	gained, err := p.ConvertToHugPoints(20000, t0)
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	if !gained.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected 2 hug points, got %s", gained)
	}
	if p.PointsConverted != 20000 {
		t.Fatalf("expected ledger 20000, got %d", p.PointsConverted)
	}
	// raw balance untouched; only the ledger moves
	if p.TapPoints != 25000 {
		t.Fatalf("conversion must not debit tapPoints, got %d", p.TapPoints)
	}
	if p.AvailableForConversion() != 5000 {
		t.Fatalf("expected 5000 available, got %d", p.AvailableForConversion())
	}
	if _, err := p.ConvertToHugPoints(10000, t0); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds over ledger bound, got %v", err)
	}
}

func TestConversionFractional(t *testing.T) {
	p := newTestPlayer()
	p.TapPoints = 15000

	gained, err := p.ConvertToHugPoints(15000, t0)
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	want := decimal.RequireFromString("1.5")
	if !gained.Equal(want) {
		t.Fatalf("expected 1.5 hug points, got %s", gained)
	}
}

func TestLevelThresholds(t *testing.T) {
	cases := []struct {
		points int64
		level  int
	}{
		{0, 0},
		{24999, 0},
		{25000, 1},
		{50000, 2},
		{299999, 2},
		{300000, 3},
		{1000000, 5},
		{999999999, 8},
		{1000000000, 9},
		{5000000000, 9},
	}
	for _, c := range cases {
		if got := LevelForPoints(c.points); got != c.level {
			t.Errorf("LevelForPoints(%d) = %d, want %d", c.points, got, c.level)
		}
	}
}

func TestSettleRecomputesLevel(t *testing.T) {
	p := newTestPlayer()
	p.TapPoints = 20000
	p.ReferralPoints = 10000
	p.Settle(t0)

	if p.TotalPoints != 30000 {
		t.Fatalf("expected totalPoints 30000, got %d", p.TotalPoints)
	}
	if p.Level != 1 {
		t.Fatalf("expected level 1, got %d", p.Level)
	}
}

func TestDailyClaimTiers(t *testing.T) {
	cases := []struct {
		streak int
		amount int64
	}{
		{0, 1000}, {6, 1000},
		{7, 5000}, {13, 5000},
		{14, 10000},
		{21, 20000},
		{28, 35000},
		{35, 50000}, {700, 50000},
	}
	p := newTestPlayer()
	for _, c := range cases {
		p.DailyClaimStreak = c.streak
		if got := p.DailyClaimAmount(); got != c.amount {
			t.Errorf("streak %d: amount = %d, want %d", c.streak, got, c.amount)
		}
	}
}

func TestDailyClaimSameDay(t *testing.T) {
	p := newTestPlayer()
	if _, err := p.ProcessDailyClaim(t0); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if _, err := p.ProcessDailyClaim(t0.Add(2 * time.Hour)); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed same day, got %v", err)
	}
}

func TestDailyClaimUnder24h(t *testing.T) {
	p := newTestPlayer()
	// claim late in the evening; next calendar day but <24h elapsed
	evening := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	if _, err := p.ProcessDailyClaim(evening); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	nextMorning := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	if _, err := p.ProcessDailyClaim(nextMorning); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive under 24h, got %v", err)
	}
}

func TestDailyClaimStreakContinuesAndResets(t *testing.T) {
	p := newTestPlayer()
	res, err := p.ProcessDailyClaim(t0)
	if err != nil {
		t.Fatalf("claim 1 failed: %v", err)
	}
	if res.NewStreak != 1 || res.ClaimedAmount != 1000 {
		t.Fatalf("claim 1: streak=%d amount=%d", res.NewStreak, res.ClaimedAmount)
	}

	res, err = p.ProcessDailyClaim(t0.Add(25 * time.Hour))
	if err != nil {
		t.Fatalf("claim 2 failed: %v", err)
	}
	if res.NewStreak != 2 {
		t.Fatalf("expected streak 2, got %d", res.NewStreak)
	}

	// a 49 hour gap resets the streak to 0 before incrementing
	res, err = p.ProcessDailyClaim(t0.Add(25*time.Hour + 49*time.Hour))
	if err != nil {
		t.Fatalf("claim 3 failed: %v", err)
	}
	if res.NewStreak != 1 {
		t.Fatalf("expected streak reset to 1 after 49h gap, got %d", res.NewStreak)
	}
}

func TestAutoMineAccrualAndEnd(t *testing.T) {
	p := newTestPlayer()
	p.StartAutoMine(0, t0)
	if !p.IsAutoMining {
		t.Fatal("expected session active")
	}
	if p.AutoMineDuration != DefaultAutoMineTime {
		t.Fatalf("expected default duration, got %v", p.AutoMineDuration)
	}

	// one full hour accrued mid-session
	if got := p.ProcessAutoMine(t0.Add(90 * time.Minute)); got != AutoMinePointsPerHr {
		t.Fatalf("expected %d pending, got %d", AutoMinePointsPerHr, got)
	}

	// past the end the session closes; the earlier accrual stays claimable
	if got := p.ProcessAutoMine(t0.Add(3 * time.Hour)); got != 0 {
		t.Fatalf("ended session returned %d", got)
	}
	if p.IsAutoMining {
		t.Fatal("expected session ended")
	}
	if p.PendingAutoMinePoints != AutoMinePointsPerHr {
		t.Fatalf("expected %d pending, got %d", AutoMinePointsPerHr, p.PendingAutoMinePoints)
	}

	// ended session accrues nothing further
	if got := p.ProcessAutoMine(t0.Add(10 * time.Hour)); got != 0 {
		t.Fatalf("ended session returned %d", got)
	}

	claimed, err := p.ClaimAutoMineRewards(t0.Add(3 * time.Hour))
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if claimed != AutoMinePointsPerHr {
		t.Fatalf("expected claim %d, got %d", AutoMinePointsPerHr, claimed)
	}
	if p.TapPoints != AutoMinePointsPerHr {
		t.Fatalf("expected tapPoints credited, got %d", p.TapPoints)
	}
	if len(p.AutoClaimHistory) != 2 {
		t.Fatalf("expected accrual and claim entries, got %d", len(p.AutoClaimHistory))
	}
	if _, err := p.ClaimAutoMineRewards(t0.Add(4 * time.Hour)); !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("expected ErrNothingToClaim, got %v", err)
	}
}

func TestStarterBonusOnce(t *testing.T) {
	p := newTestPlayer()
	bonus, err := p.ClaimStarterBonus()
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if bonus != StarterBonusAmount || p.TapPoints != StarterBonusAmount {
		t.Fatalf("expected %d credited, got bonus=%d points=%d", StarterBonusAmount, bonus, p.TapPoints)
	}
	if _, err := p.ClaimStarterBonus(); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestReferralClaimAtMostOnce(t *testing.T) {
	p := newTestPlayer()
	p.AttachDirectReferral("friend", "u-2", true, t0)

	reward, err := p.ClaimReferralReward("u-2", true)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if reward != ReferralRewardVerified {
		t.Fatalf("expected %d, got %d", ReferralRewardVerified, reward)
	}
	if _, err := p.ClaimReferralReward("u-2", true); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestReferralClaimUnverifiedTier(t *testing.T) {
	p := newTestPlayer()
	p.AttachDirectReferral("friend", "u-3", false, t0)

	reward, err := p.ClaimReferralReward("u-3", false)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if reward != ReferralRewardUnverified {
		t.Fatalf("expected %d, got %d", ReferralRewardUnverified, reward)
	}
}

func TestReferralClaimUnknownID(t *testing.T) {
	p := newTestPlayer()
	if _, err := p.ClaimReferralReward("nobody", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReferralRankReward(t *testing.T) {
	cases := []struct {
		rank   int
		reward int64
	}{
		{1, ReferralRankTop10Reward}, {10, ReferralRankTop10Reward},
		{11, ReferralRankTop30Reward}, {30, ReferralRankTop30Reward},
		{31, 0}, {100, 0},
	}
	for _, c := range cases {
		if got := ReferralRankReward(c.rank); got != c.reward {
			t.Errorf("rank %d: reward = %d, want %d", c.rank, got, c.reward)
		}
	}
}

func TestReferralRankRewardCooldown(t *testing.T) {
	p := newTestPlayer()
	if _, err := p.ClaimReferralRankReward(5, t0); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if p.TapPoints != ReferralRankTop10Reward {
		t.Fatalf("expected %d points credited, got %d", ReferralRankTop10Reward, p.TapPoints)
	}
	if _, err := p.ClaimReferralRankReward(5, t0.Add(3*24*time.Hour)); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}
	if _, err := p.ClaimReferralRankReward(5, t0.Add(8*24*time.Hour)); err != nil {
		t.Fatalf("claim after cooldown failed: %v", err)
	}
	if _, err := p.ClaimReferralRankReward(40, t0.Add(16*24*time.Hour)); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible outside top 30, got %v", err)
	}
}
