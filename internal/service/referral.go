package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"warthug/internal/domain"
	"warthug/internal/logger"
)

// Referral handles registration with referral attribution and the referral
// reward claims.
type Referral struct {
	players PlayerStore
	cards   CardCatalog
	ledger  Ledger
	now     clock
}

func NewReferral(players PlayerStore, cards CardCatalog, ledger Ledger) *Referral {
	return &Referral{players: players, cards: cards, ledger: ledger, now: time.Now}
}

func (s *Referral) record(ctx context.Context, userID, txType string, amount int64, meta map[string]any) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Record(ctx, userID, txType, amount, meta); err != nil {
		logger.Warn("ledger record failed", "user_id", userID, "type", txType, "error", err)
	}
}

// Register creates a new player, optionally attributed to a referrer by
// username. Registration credits nothing; the referrer claims rewards later.
func (s *Referral) Register(ctx context.Context, username, userID string, verified bool, referredBy string) (*domain.Player, error) {
	username = strings.TrimSpace(username)
	if username == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}

	if existing, err := s.players.LoadByUsername(ctx, username); err == nil && existing != nil {
		return nil, domain.ErrAlreadyExists
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if _, err := s.players.Load(ctx, userID); err == nil {
		return nil, domain.ErrAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	var referrer *domain.Player
	referredBy = strings.TrimSpace(referredBy)
	if referredBy != "" {
		var err error
		referrer, err = s.players.LoadByUsername(ctx, referredBy)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	p := domain.NewPlayer(username, userID, verified, now)
	if referrer != nil {
		p.Referral = referrer.Username
	}
	if s.cards != nil {
		templates, err := s.cards.Templates(ctx)
		if err != nil {
			return nil, err
		}
		for section, tpls := range templates {
			for _, tpl := range tpls {
				p.Cards.Put(section, tpl.Key, domain.NewCardFromTemplate(tpl))
			}
		}
	}
	if err := s.players.Create(ctx, p); err != nil {
		return nil, err
	}

	if referrer != nil {
		if err := s.attribute(ctx, referrer, p, verified); err != nil {
			// The account exists; attribution failure must not undo it.
			logger.Error("referral attribution failed",
				"user_id", userID, "referrer", referrer.Username, "error", err)
		}
	}

	logger.Info("player registered", "user_id", userID, "username", username, "referred_by", referredBy)
	return p, nil
}

// attribute records the new player on the referrer's direct list and, one
// level further up, on the grand-referrer's indirect list.
func (s *Referral) attribute(ctx context.Context, referrer, newPlayer *domain.Player, verified bool) error {
	_, err := mutatePlayer(ctx, s.players, s.now, referrer.UserID, func(r *domain.Player, now time.Time) error {
		r.AttachDirectReferral(newPlayer.Username, newPlayer.UserID, verified, now)
		return nil
	})
	if err != nil {
		return err
	}

	if referrer.Referral == "" {
		return nil
	}
	grand, err := s.players.LoadByUsername(ctx, referrer.Referral)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	_, err = mutatePlayer(ctx, s.players, s.now, grand.UserID, func(g *domain.Player, now time.Time) error {
		g.AttachIndirectReferral(newPlayer.Username, newPlayer.UserID, referrer.Username, verified, now)
		return nil
	})
	return err
}

// ReferralDetails is the read model for the referral screen.
type ReferralDetails struct {
	DirectReferrals    []domain.ReferralEntry `json:"directReferrals"`
	IndirectReferrals  []domain.ReferralEntry `json:"indirectReferrals"`
	TotalReferrals     int                    `json:"totalReferrals"`
	ReferralPoints     int64                  `json:"referralPoints"`
	ClaimedReferrals   []string               `json:"claimedReferrals"`
	UnclaimedDirect    int                    `json:"unclaimedDirect"`
	LastRankRewardTime time.Time              `json:"lastRankRewardTime,omitzero"`
}

// GetReferralDetails returns the player's referral tree and claim state.
func (s *Referral) GetReferralDetails(ctx context.Context, userID string) (*ReferralDetails, error) {
	p, err := s.players.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	unclaimed := 0
	for _, e := range p.DirectReferrals {
		if !p.HasClaimedReferral(e.UserID) {
			unclaimed++
		}
	}
	return &ReferralDetails{
		DirectReferrals:    p.DirectReferrals,
		IndirectReferrals:  p.IndirectReferrals,
		TotalReferrals:     p.TotalReferrals(),
		ReferralPoints:     p.ReferralPoints,
		ClaimedReferrals:   p.ClaimedReferrals,
		UnclaimedDirect:    unclaimed,
		LastRankRewardTime: p.LastReferralRewardClaim,
	}, nil
}

// ReferralClaimResult reports an individual referral claim.
type ReferralClaimResult struct {
	Reward    int64 `json:"reward"`
	Verified  bool  `json:"verified"`
	TapPoints int64 `json:"tapPoints"`
}

// ClaimReferralReward claims the one-time reward for a single direct
// referral. The referred account's current verification decides the tier.
func (s *Referral) ClaimReferralReward(ctx context.Context, userID, referralUserID string) (*ReferralClaimResult, error) {
	referred, err := s.players.Load(ctx, referralUserID)
	if err != nil {
		return nil, err
	}

	var reward int64
	p, err := mutatePlayer(ctx, s.players, s.now, userID, func(p *domain.Player, now time.Time) error {
		var err error
		reward, err = p.ClaimReferralReward(referralUserID, referred.IsVerified)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, userID, "referral_claim", reward, map[string]any{"referral": referralUserID})
	return &ReferralClaimResult{
		Reward:    reward,
		Verified:  referred.IsVerified,
		TapPoints: p.TapPoints,
	}, nil
}

// RankRewardResult reports a weekly referral-rank payout.
type RankRewardResult struct {
	Rank      int   `json:"rank"`
	Reward    int64 `json:"reward"`
	TapPoints int64 `json:"tapPoints"`
}

// ClaimReferralRankReward pays the weekly leaderboard bonus for players
// ranked in the top thirty by total referrals.
func (s *Referral) ClaimReferralRankReward(ctx context.Context, userID string) (*RankRewardResult, error) {
	rank, err := s.players.ReferralRank(ctx, userID)
	if err != nil {
		return nil, err
	}

	var reward int64
	p, err := mutatePlayer(ctx, s.players, s.now, userID, func(p *domain.Player, now time.Time) error {
		var err error
		reward, err = p.ClaimReferralRankReward(rank, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, userID, "referral_rank_reward", reward, map[string]any{"rank": rank})
	return &RankRewardResult{Rank: rank, Reward: reward, TapPoints: p.TapPoints}, nil
}

// RewardsSummary aggregates every claimable balance in one response.
type RewardsSummary struct {
	UnclaimedDirect   int   `json:"unclaimedReferrals"`
	StarterAvailable  bool  `json:"starterBonusAvailable"`
	DailyAvailable    bool  `json:"dailyClaimAvailable"`
	AutoMinePending   int64 `json:"autoMinePending"`
	RankRewardOnCool  bool  `json:"rankRewardOnCooldown"`
	ReferralPoints    int64 `json:"referralPoints"`
	CurrentRankReward int64 `json:"currentRankReward"`
}

// GetRewardsSummary surveys all claims without mutating anything.
func (s *Referral) GetRewardsSummary(ctx context.Context, userID string) (*RewardsSummary, error) {
	p, err := s.players.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	unclaimed := 0
	for _, e := range p.DirectReferrals {
		if !p.HasClaimedReferral(e.UserID) {
			unclaimed++
		}
	}

	sum := &RewardsSummary{
		UnclaimedDirect:  unclaimed,
		StarterAvailable: !p.HasClaimedStarterBonus,
		DailyAvailable:   p.CanClaimDaily(now),
		AutoMinePending:  p.PendingAutoMinePoints,
		RankRewardOnCool: !p.LastReferralRewardClaim.IsZero() && now.Sub(p.LastReferralRewardClaim) < 7*24*time.Hour,
		ReferralPoints:   p.ReferralPoints,
	}
	if rank, err := s.players.ReferralRank(ctx, userID); err == nil {
		sum.CurrentRankReward = domain.ReferralRankReward(rank)
	}
	return sum, nil
}
