package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"warthug/internal/domain"
)

func newReferralAt(players *fakePlayers, cards CardCatalog, at time.Time) *Referral {
	s := NewReferral(players, cards, nil)
	s.now = fixedClock(at)
	return s
}

func TestRegisterNewPlayer(t *testing.T) {
	players := newFakePlayers()
	s := newReferralAt(players, nil, t0)

	p, err := s.Register(context.Background(), "  warthog  ", "u-1", true, "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if p.Username != "warthog" {
		t.Fatalf("username not trimmed: %q", p.Username)
	}
	if p.TapPoints != 0 || p.ReferralPoints != 0 {
		t.Fatal("registration must credit nothing")
	}
	if _, err := players.Load(context.Background(), "u-1"); err != nil {
		t.Fatalf("player not persisted: %v", err)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	players := newFakePlayers(domain.NewPlayer("warthog", "u-1", true, t0))
	s := newReferralAt(players, nil, t0)

	if _, err := s.Register(context.Background(), "warthog", "u-2", true, ""); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("duplicate username: expected already exists, got %v", err)
	}
	if _, err := s.Register(context.Background(), "tusker", "u-1", true, ""); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("duplicate user id: expected already exists, got %v", err)
	}
	if _, err := s.Register(context.Background(), "", "u-3", true, ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("blank username: expected invalid argument, got %v", err)
	}
}

func TestRegisterUnknownReferrer(t *testing.T) {
	s := newReferralAt(newFakePlayers(), nil, t0)
	if _, err := s.Register(context.Background(), "piglet", "u-2", true, "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRegisterAttributesTwoLevels(t *testing.T) {
	grand := domain.NewPlayer("grand", "u-g", true, t0)
	referrer := domain.NewPlayer("referrer", "u-r", true, t0)
	referrer.Referral = "grand"
	players := newFakePlayers(grand, referrer)
	s := newReferralAt(players, nil, t0)

	p, err := s.Register(context.Background(), "piglet", "u-p", false, "referrer")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if p.Referral != "referrer" {
		t.Fatalf("referral link %q, want referrer", p.Referral)
	}

	r, _ := players.Load(context.Background(), "u-r")
	if len(r.DirectReferrals) != 1 || r.DirectReferrals[0].UserID != "u-p" {
		t.Fatalf("direct attribution missing: %+v", r.DirectReferrals)
	}
	if r.DirectReferrals[0].IsVerified {
		t.Fatal("verification flag must carry over")
	}

	g, _ := players.Load(context.Background(), "u-g")
	if len(g.IndirectReferrals) != 1 || g.IndirectReferrals[0].UserID != "u-p" {
		t.Fatalf("indirect attribution missing: %+v", g.IndirectReferrals)
	}
	if g.IndirectReferrals[0].ReferredBy != "referrer" {
		t.Fatalf("indirect entry must name the middle link, got %q", g.IndirectReferrals[0].ReferredBy)
	}
}

func TestRegisterSeedsCardCollection(t *testing.T) {
	catalog := &fakeCatalog{templates: map[string][]*domain.CardTemplate{
		domain.SectionFinance: {{
			Section:              domain.SectionFinance,
			Key:                  "mud_bank",
			Name:                 "Mud Bank",
			BasePrice:            100,
			PerHourIncrease:      50,
			PriceIncreaseRate:    1.15,
			PerHourIncreaseRate:  1.1,
			BaseCooldown:         10,
			CooldownIncreaseRate: 1.05,
			ImageURL:             "x",
		}},
	}}
	s := newReferralAt(newFakePlayers(), catalog, t0)

	p, err := s.Register(context.Background(), "piglet", "u-p", true, "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	card := p.Cards.Get(domain.SectionFinance, "mud_bank")
	if card == nil {
		t.Fatal("catalog card not seeded")
	}
	if card.IsUnlocked || card.CurrentPerHour != 0 {
		t.Fatal("seeded card must start locked and idle")
	}
}

func TestClaimReferralRewardAtMostOnce(t *testing.T) {
	referrer := domain.NewPlayer("referrer", "u-r", true, t0)
	referrer.AttachDirectReferral("piglet", "u-p", true, t0)
	referred := domain.NewPlayer("piglet", "u-p", true, t0)
	players := newFakePlayers(referrer, referred)
	s := newReferralAt(players, nil, t0)

	res, err := s.ClaimReferralReward(context.Background(), "u-r", "u-p")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if res.Reward != domain.ReferralRewardVerified {
		t.Fatalf("reward %d, want verified tier %d", res.Reward, domain.ReferralRewardVerified)
	}
	if res.TapPoints != domain.ReferralRewardVerified {
		t.Fatalf("tapPoints %d, want %d", res.TapPoints, domain.ReferralRewardVerified)
	}

	if _, err := s.ClaimReferralReward(context.Background(), "u-r", "u-p"); !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Fatalf("expected already claimed, got %v", err)
	}
}

func TestClaimReferralRewardUnverifiedTier(t *testing.T) {
	referrer := domain.NewPlayer("referrer", "u-r", true, t0)
	referrer.AttachDirectReferral("piglet", "u-p", false, t0)
	referred := domain.NewPlayer("piglet", "u-p", false, t0)
	players := newFakePlayers(referrer, referred)
	s := newReferralAt(players, nil, t0)

	res, err := s.ClaimReferralReward(context.Background(), "u-r", "u-p")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if res.Reward != domain.ReferralRewardUnverified {
		t.Fatalf("reward %d, want unverified tier %d", res.Reward, domain.ReferralRewardUnverified)
	}
}

func TestClaimReferralRankReward(t *testing.T) {
	p := domain.NewPlayer("warthog", "u-1", true, t0)
	players := newFakePlayers(p)
	players.ranks["u-1"] = 3
	s := newReferralAt(players, nil, t0)

	res, err := s.ClaimReferralRankReward(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if res.Rank != 3 || res.Reward != domain.ReferralRankTop10Reward {
		t.Fatalf("got rank %d reward %d", res.Rank, res.Reward)
	}

	// weekly cooldown blocks the immediate re-claim
	if _, err := s.ClaimReferralRankReward(context.Background(), "u-1"); !errors.Is(err, domain.ErrCooldownActive) {
		t.Fatalf("expected cooldown, got %v", err)
	}
}

func TestRewardsSummary(t *testing.T) {
	p := domain.NewPlayer("warthog", "u-1", true, t0)
	p.AttachDirectReferral("piglet", "u-p", true, t0)
	p.PendingAutoMinePoints = 500
	players := newFakePlayers(p)
	players.ranks["u-1"] = 15
	s := newReferralAt(players, nil, t0)

	sum, err := s.GetRewardsSummary(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if sum.UnclaimedDirect != 1 {
		t.Fatalf("unclaimed %d, want 1", sum.UnclaimedDirect)
	}
	if !sum.StarterAvailable || !sum.DailyAvailable {
		t.Fatal("fresh player has starter and daily claims open")
	}
	if sum.AutoMinePending != 500 {
		t.Fatalf("pending %d, want 500", sum.AutoMinePending)
	}
	if sum.RankRewardOnCool {
		t.Fatal("never-claimed rank reward is not on cooldown")
	}
	if sum.CurrentRankReward != domain.ReferralRankTop30Reward {
		t.Fatalf("rank reward %d, want top-30 tier", sum.CurrentRankReward)
	}
}
