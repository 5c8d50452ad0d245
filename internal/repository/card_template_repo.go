package repository

import (
	"context"
	"encoding/json"
	"errors"

	"warthug/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CardTemplateRepository persists the card catalog. Fan-out to the player
// documents happens with a single JSONB batch update.
type CardTemplateRepository struct {
	db *pgxpool.Pool
}

func NewCardTemplateRepository(db *pgxpool.Pool) *CardTemplateRepository {
	return &CardTemplateRepository{db: db}
}

const cardTemplateColumns = `id, section, key, name, base_price, per_hour_increase,
	required_level, price_increase_rate, per_hour_increase_rate,
	base_cooldown, cooldown_increase_rate, image_url`

func scanCardTemplate(row pgx.Row) (*domain.CardTemplate, error) {
	var t domain.CardTemplate
	if err := row.Scan(
		&t.ID, &t.Section, &t.Key, &t.Name, &t.BasePrice, &t.PerHourIncrease,
		&t.RequiredLevel, &t.PriceIncreaseRate, &t.PerHourIncreaseRate,
		&t.BaseCooldown, &t.CooldownIncreaseRate, &t.ImageURL,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Templates returns the catalog grouped by section.
func (r *CardTemplateRepository) Templates(ctx context.Context) (map[string][]*domain.CardTemplate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+cardTemplateColumns+` FROM card_templates ORDER BY section, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[string][]*domain.CardTemplate)
	for rows.Next() {
		t, err := scanCardTemplate(rows)
		if err != nil {
			return nil, err
		}
		res[t.Section] = append(res[t.Section], t)
	}
	return res, rows.Err()
}

// CreateEverywhere inserts the template and grafts the new card into every
// player's cards document that does not hold it yet. Returns the number of
// players updated.
func (r *CardTemplateRepository) CreateEverywhere(ctx context.Context, tpl *domain.CardTemplate) (int64, error) {
	card, err := json.Marshal(domain.NewCardFromTemplate(tpl))
	if err != nil {
		return 0, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx,
		`INSERT INTO card_templates (
			section, key, name, base_price, per_hour_increase,
			required_level, price_increase_rate, per_hour_increase_rate,
			base_cooldown, cooldown_increase_rate, image_url
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id`,
		tpl.Section, tpl.Key, tpl.Name, tpl.BasePrice, tpl.PerHourIncrease,
		tpl.RequiredLevel, tpl.PriceIncreaseRate, tpl.PerHourIncreaseRate,
		tpl.BaseCooldown, tpl.CooldownIncreaseRate, tpl.ImageURL,
	).Scan(&tpl.ID); err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrAlreadyExists
		}
		return 0, err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE players
		 SET cards = jsonb_set(
		         jsonb_set(cards, ARRAY[$1],
		             COALESCE(cards -> $1, '{}'::jsonb), true),
		         ARRAY[$1, $2], $3::jsonb, true),
		     version = version + 1
		 WHERE NOT COALESCE(cards -> $1 ? $2, false)`,
		tpl.Section, tpl.Key, card,
	)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
