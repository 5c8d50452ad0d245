package service

import (
	"context"
	"errors"
	"testing"

	"warthug/internal/domain"
)

func TestCreateCardNormalizesKey(t *testing.T) {
	catalog := &fakeCatalog{templates: make(map[string][]*domain.CardTemplate)}
	s := NewCards(catalog)

	tpl := &domain.CardTemplate{
		Section:              domain.SectionPredators,
		Name:                 "Lone Wolf",
		BasePrice:            200,
		PerHourIncrease:      80,
		PriceIncreaseRate:    1.15,
		PerHourIncreaseRate:  1.1,
		BaseCooldown:         15,
		CooldownIncreaseRate: 1.05,
		ImageURL:             "https://cdn.example/wolf.png",
	}
	if _, err := s.CreateCard(context.Background(), tpl); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if tpl.Key != "lone_wolf" {
		t.Fatalf("key %q, want lone_wolf", tpl.Key)
	}
	if len(catalog.templates[domain.SectionPredators]) != 1 {
		t.Fatal("template not stored")
	}
}

func TestCreateCardRejectsBadInput(t *testing.T) {
	s := NewCards(&fakeCatalog{templates: make(map[string][]*domain.CardTemplate)})

	bad := &domain.CardTemplate{Section: "livestock", Name: "Goat"}
	if _, err := s.CreateCard(context.Background(), bad); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("unknown section: expected invalid argument, got %v", err)
	}

	noImage := &domain.CardTemplate{
		Section:              domain.SectionFinance,
		Name:                 "Mud Bank",
		BasePrice:            100,
		PerHourIncrease:      50,
		PriceIncreaseRate:    1.15,
		PerHourIncreaseRate:  1.1,
		BaseCooldown:         10,
		CooldownIncreaseRate: 1.05,
	}
	if _, err := s.CreateCard(context.Background(), noImage); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("missing image: expected invalid argument, got %v", err)
	}
}
