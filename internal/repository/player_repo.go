package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"warthug/internal/domain"
	"warthug/internal/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PlayerRepository persists the player aggregate: scalar columns for the hot
// numeric fields, JSONB documents for cards and referral lists, and a version
// column driving compare-and-swap saves.
type PlayerRepository struct {
	db *pgxpool.Pool
}

func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

const playerColumns = `id, user_id, username,
	energy, max_energy, per_tap, last_tap_time, last_energy_refill, total_energy_refills,
	tap_points, referral_points, total_points, level,
	hug_points::text, points_converted, last_conversion_time,
	per_hour, last_hourly_award,
	upgrade_cost_per_tap, upgrade_cost_max_energy,
	cards,
	daily_claim_streak, last_daily_claim, next_daily_claim_amount,
	is_auto_mining, auto_mine_start_time, auto_mine_duration_ms, pending_auto_mine_points,
	last_auto_mine_end, auto_claim_history,
	COALESCE(referral, ''), direct_referrals, indirect_referrals, claimed_referrals,
	last_referral_reward_claim,
	has_claimed_starter_bonus, is_verified, is_active, last_active, created_at,
	version`

func scanPlayer(row pgx.Row) (*domain.Player, error) {
	var (
		p          domain.Player
		hugPoints  string
		durationMS int64
		cards      []byte
		history    []byte
		direct     []byte
		indirect   []byte
		claimed    []byte
	)
	if err := row.Scan(
		&p.ID, &p.UserID, &p.Username,
		&p.Energy, &p.MaxEnergy, &p.PerTap, &p.LastTapTime, &p.LastEnergyRefill, &p.TotalEnergyRefills,
		&p.TapPoints, &p.ReferralPoints, &p.TotalPoints, &p.Level,
		&hugPoints, &p.PointsConverted, &p.LastConversionTime,
		&p.PerHour, &p.LastHourlyAward,
		&p.UpgradeCosts.PerTap, &p.UpgradeCosts.MaxEnergy,
		&cards,
		&p.DailyClaimStreak, &p.LastDailyClaim, &p.NextDailyClaimAmount,
		&p.IsAutoMining, &p.AutoMineStartTime, &durationMS, &p.PendingAutoMinePoints,
		&p.LastAutoMineEnd, &history,
		&p.Referral, &direct, &indirect, &claimed,
		&p.LastReferralRewardClaim,
		&p.HasClaimedStarterBonus, &p.IsVerified, &p.IsActive, &p.LastActive, &p.CreatedAt,
		&p.Version,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var err error
	p.HugPoints, err = decimal.NewFromString(hugPoints)
	if err != nil {
		return nil, fmt.Errorf("players: bad hug_points %q: %w", hugPoints, err)
	}
	p.AutoMineDuration = time.Duration(durationMS) * time.Millisecond

	p.Cards = domain.NewCollections()
	if err := json.Unmarshal(cards, &p.Cards); err != nil {
		return nil, fmt.Errorf("players: bad cards document: %w", err)
	}
	p.AutoClaimHistory = []domain.AutoMineClaim{}
	if err := json.Unmarshal(history, &p.AutoClaimHistory); err != nil {
		return nil, fmt.Errorf("players: bad auto_claim_history: %w", err)
	}
	p.DirectReferrals = []domain.ReferralEntry{}
	if err := json.Unmarshal(direct, &p.DirectReferrals); err != nil {
		return nil, fmt.Errorf("players: bad direct_referrals: %w", err)
	}
	p.IndirectReferrals = []domain.ReferralEntry{}
	if err := json.Unmarshal(indirect, &p.IndirectReferrals); err != nil {
		return nil, fmt.Errorf("players: bad indirect_referrals: %w", err)
	}
	p.ClaimedReferrals = []string{}
	if err := json.Unmarshal(claimed, &p.ClaimedReferrals); err != nil {
		return nil, fmt.Errorf("players: bad claimed_referrals: %w", err)
	}
	return &p, nil
}

func (r *PlayerRepository) Load(ctx context.Context, userID string) (*domain.Player, error) {
	return scanPlayer(r.db.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE user_id = $1`, userID))
}

func (r *PlayerRepository) LoadByUsername(ctx context.Context, username string) (*domain.Player, error) {
	return scanPlayer(r.db.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE username = $1`, username))
}

func marshalDocs(p *domain.Player) (cards, history, direct, indirect, claimed []byte, err error) {
	if cards, err = json.Marshal(p.Cards); err != nil {
		return
	}
	if history, err = json.Marshal(p.AutoClaimHistory); err != nil {
		return
	}
	if direct, err = json.Marshal(p.DirectReferrals); err != nil {
		return
	}
	if indirect, err = json.Marshal(p.IndirectReferrals); err != nil {
		return
	}
	claimed, err = json.Marshal(p.ClaimedReferrals)
	return
}

func (r *PlayerRepository) Create(ctx context.Context, p *domain.Player) error {
	cards, history, direct, indirect, claimed, err := marshalDocs(p)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx,
		`INSERT INTO players (
			user_id, username,
			energy, max_energy, per_tap, last_tap_time, last_energy_refill, total_energy_refills,
			tap_points, referral_points, total_points, level,
			hug_points, points_converted, last_conversion_time,
			per_hour, last_hourly_award,
			upgrade_cost_per_tap, upgrade_cost_max_energy,
			cards,
			daily_claim_streak, last_daily_claim, next_daily_claim_amount,
			is_auto_mining, auto_mine_start_time, auto_mine_duration_ms, pending_auto_mine_points,
			last_auto_mine_end, auto_claim_history,
			referral, direct_referrals, indirect_referrals, claimed_referrals,
			last_referral_reward_claim,
			has_claimed_starter_bonus, is_verified, is_active, last_active, created_at,
			version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13::numeric, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, NULLIF($30, ''),
			$31, $32, $33, $34, $35, $36, $37, $38, $39, 1
		) RETURNING id`,
		p.UserID, p.Username,
		p.Energy, p.MaxEnergy, p.PerTap, p.LastTapTime, p.LastEnergyRefill, p.TotalEnergyRefills,
		p.TapPoints, p.ReferralPoints, p.TotalPoints, p.Level,
		p.HugPoints.String(), p.PointsConverted, p.LastConversionTime,
		p.PerHour, p.LastHourlyAward,
		p.UpgradeCosts.PerTap, p.UpgradeCosts.MaxEnergy,
		cards,
		p.DailyClaimStreak, p.LastDailyClaim, p.NextDailyClaimAmount,
		p.IsAutoMining, p.AutoMineStartTime, p.AutoMineDuration.Milliseconds(), p.PendingAutoMinePoints,
		p.LastAutoMineEnd, history,
		p.Referral, direct, indirect, claimed,
		p.LastReferralRewardClaim,
		p.HasClaimedStarterBonus, p.IsVerified, p.IsActive, p.LastActive, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	p.Version = 1
	return nil
}

// Save writes the aggregate back iff its version still matches, bumping the
// version. A concurrent writer surfaces as domain.ErrVersionConflict.
func (r *PlayerRepository) Save(ctx context.Context, p *domain.Player) error {
	cards, history, direct, indirect, claimed, err := marshalDocs(p)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE players SET
			username = $2,
			energy = $3, max_energy = $4, per_tap = $5,
			last_tap_time = $6, last_energy_refill = $7, total_energy_refills = $8,
			tap_points = $9, referral_points = $10, total_points = $11, level = $12,
			hug_points = $13::numeric, points_converted = $14, last_conversion_time = $15,
			per_hour = $16, last_hourly_award = $17,
			upgrade_cost_per_tap = $18, upgrade_cost_max_energy = $19,
			cards = $20,
			daily_claim_streak = $21, last_daily_claim = $22, next_daily_claim_amount = $23,
			is_auto_mining = $24, auto_mine_start_time = $25, auto_mine_duration_ms = $26,
			pending_auto_mine_points = $27, last_auto_mine_end = $28, auto_claim_history = $29,
			referral = NULLIF($30, ''), direct_referrals = $31, indirect_referrals = $32,
			claimed_referrals = $33, last_referral_reward_claim = $34,
			has_claimed_starter_bonus = $35, is_verified = $36, is_active = $37,
			last_active = $38,
			version = version + 1
		WHERE user_id = $1 AND version = $39`,
		p.UserID, p.Username,
		p.Energy, p.MaxEnergy, p.PerTap,
		p.LastTapTime, p.LastEnergyRefill, p.TotalEnergyRefills,
		p.TapPoints, p.ReferralPoints, p.TotalPoints, p.Level,
		p.HugPoints.String(), p.PointsConverted, p.LastConversionTime,
		p.PerHour, p.LastHourlyAward,
		p.UpgradeCosts.PerTap, p.UpgradeCosts.MaxEnergy,
		cards,
		p.DailyClaimStreak, p.LastDailyClaim, p.NextDailyClaimAmount,
		p.IsAutoMining, p.AutoMineStartTime, p.AutoMineDuration.Milliseconds(),
		p.PendingAutoMinePoints, p.LastAutoMineEnd, history,
		p.Referral, direct, indirect,
		claimed, p.LastReferralRewardClaim,
		p.HasClaimedStarterBonus, p.IsVerified, p.IsActive,
		p.LastActive,
		p.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM players WHERE user_id = $1)`, p.UserID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrVersionConflict
	}
	p.Version++
	return nil
}

const referralCountExpr = `jsonb_array_length(direct_referrals) + jsonb_array_length(indirect_referrals)`

// ReferralRank returns the player's 1-based rank by total referrals.
func (r *PlayerRepository) ReferralRank(ctx context.Context, userID string) (int, error) {
	var rank int
	err := r.db.QueryRow(ctx,
		`SELECT rank FROM (
			SELECT user_id,
			       RANK() OVER (ORDER BY `+referralCountExpr+` DESC, created_at ASC) AS rank
			FROM players
			WHERE is_active
		) ranked
		WHERE user_id = $1`,
		userID,
	).Scan(&rank)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	return rank, err
}

// boardOrder maps a leaderboard kind to its value expression. The expression
// is interpolated into the query, so kinds must stay a closed set.
func boardOrder(kind string) (string, error) {
	switch kind {
	case service.BoardPoints:
		return `(tap_points + referral_points)::text`, nil
	case service.BoardHugPoints:
		return `hug_points::text`, nil
	case service.BoardReferrals:
		return `(` + referralCountExpr + `)::text`, nil
	case service.BoardHourly:
		return `per_hour::text`, nil
	case service.BoardStreak:
		return `daily_claim_streak::text`, nil
	}
	return "", domain.ErrInvalidArgument
}

// Top returns the first rows of one leaderboard.
func (r *PlayerRepository) Top(ctx context.Context, kind string, limit int) ([]*service.BoardEntry, error) {
	expr, err := boardOrder(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx,
		`SELECT username, user_id, `+expr+` AS value, level,
		        RANK() OVER (ORDER BY `+expr+`::numeric DESC, created_at ASC) AS rank
		 FROM players
		 WHERE is_active
		 ORDER BY rank
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*service.BoardEntry
	for rows.Next() {
		var e service.BoardEntry
		if err := rows.Scan(&e.Username, &e.UserID, &e.Value, &e.Level, &e.Rank); err != nil {
			return nil, err
		}
		res = append(res, &e)
	}
	return res, rows.Err()
}

// Position returns one player's row on one leaderboard.
func (r *PlayerRepository) Position(ctx context.Context, kind, userID string) (*service.BoardEntry, error) {
	expr, err := boardOrder(kind)
	if err != nil {
		return nil, err
	}
	var e service.BoardEntry
	err = r.db.QueryRow(ctx,
		`SELECT username, user_id, value, level, rank FROM (
			SELECT username, user_id, `+expr+` AS value, level,
			       RANK() OVER (ORDER BY `+expr+`::numeric DESC, created_at ASC) AS rank
			FROM players
			WHERE is_active
		) ranked
		WHERE user_id = $1`,
		userID,
	).Scan(&e.Username, &e.UserID, &e.Value, &e.Level, &e.Rank)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
