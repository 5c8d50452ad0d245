package service

import (
	"context"
	"time"

	"warthug/internal/domain"
	"warthug/internal/logger"
)

// Cards is the card catalog admin surface. Player-facing card reads and
// upgrades live on Economy; this service owns the templates.
type Cards struct {
	catalog CardCatalog
	now     clock
}

func NewCards(catalog CardCatalog) *Cards {
	return &Cards{catalog: catalog, now: time.Now}
}

// Templates returns the full catalog grouped by section.
func (s *Cards) Templates(ctx context.Context) (map[string][]*domain.CardTemplate, error) {
	return s.catalog.Templates(ctx)
}

// CreateCard validates a template, stores it and fans the new card out to
// every existing player. Returns the number of players updated.
func (s *Cards) CreateCard(ctx context.Context, tpl *domain.CardTemplate) (int64, error) {
	if !domain.ValidSection(tpl.Section) {
		return 0, domain.ErrInvalidArgument
	}
	tpl.Key = domain.NormalizeCardKey(tpl.Name)
	if err := tpl.Validate(); err != nil {
		return 0, err
	}
	updated, err := s.catalog.CreateEverywhere(ctx, tpl)
	if err != nil {
		return 0, err
	}
	logger.Info("card created", "section", tpl.Section, "key", tpl.Key, "players_updated", updated)
	return updated, nil
}
