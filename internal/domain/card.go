package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Card sections. Every player carries the same three named collections.
const (
	SectionFinance   = "finance"
	SectionPredators = "predators"
	SectionHogPower  = "hogPower"
)

// SectionNames lists the valid card sections in display order.
var SectionNames = []string{SectionFinance, SectionPredators, SectionHogPower}

// ValidSection reports whether s names a card section.
func ValidSection(s string) bool {
	for _, name := range SectionNames {
		if name == s {
			return true
		}
	}
	return false
}

// NormalizeCardKey derives the storage key from a card name: lowercased with
// runs of whitespace collapsed to single underscores. Applied at creation and
// at lookup so the two can never disagree.
func NormalizeCardKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// GeometricValue is the shared cost-curve primitive: floor(base * rate^n).
// Price, output and cooldown curves all use it.
func GeometricValue(base, rate float64, n int) int64 {
	return int64(math.Floor(base * math.Pow(rate, float64(n))))
}

// CardTemplate is the catalog definition a player card is cloned from.
type CardTemplate struct {
	ID                   int64   `json:"id"`
	Section              string  `json:"section"`
	Key                  string  `json:"key"`
	Name                 string  `json:"name"`
	BasePrice            int64   `json:"basePrice"`
	PerHourIncrease      int64   `json:"perHourIncrease"`
	RequiredLevel        int     `json:"requiredLevel"`
	PriceIncreaseRate    float64 `json:"priceIncreaseRate"`
	PerHourIncreaseRate  float64 `json:"perHourIncreaseRate"`
	BaseCooldown         int64   `json:"baseCooldown"` // minutes
	CooldownIncreaseRate float64 `json:"cooldownIncreaseRate"`
	ImageURL             string  `json:"imageUrl"`
}

// Validate checks the template invariants before it is fanned out to players.
func (t *CardTemplate) Validate() error {
	if t.Name == "" || t.ImageURL == "" {
		return fmt.Errorf("card template: name and imageUrl required: %w", ErrInvalidArgument)
	}
	if !ValidSection(t.Section) {
		return fmt.Errorf("card template: unknown section %q: %w", t.Section, ErrInvalidArgument)
	}
	if t.BasePrice <= 0 || t.PerHourIncrease <= 0 || t.BaseCooldown <= 0 {
		return fmt.Errorf("card template: base values must be positive: %w", ErrInvalidArgument)
	}
	if t.PriceIncreaseRate < 1 || t.PerHourIncreaseRate < 1 || t.CooldownIncreaseRate < 1 {
		return fmt.Errorf("card template: increase rates must be >= 1: %w", ErrInvalidArgument)
	}
	if t.RequiredLevel < 0 {
		return fmt.Errorf("card template: negative required level: %w", ErrInvalidArgument)
	}
	return nil
}

// Card is one upgradeable production card inside a player's collection.
// currentPrice, currentPerHour and currentCooldown are pure functions of
// upgradeCount and the rate constants; Recompute is the only writer.
type Card struct {
	Name                 string    `json:"name"`
	BasePrice            int64     `json:"basePrice"`
	CurrentPrice         int64     `json:"currentPrice"`
	PerHourIncrease      int64     `json:"perHourIncrease"`
	CurrentPerHour       int64     `json:"currentPerHour"`
	RequiredLevel        int       `json:"requiredLevel"`
	UpgradeCount         int       `json:"upgradeCount"`
	LastUpgradeTime      time.Time `json:"lastUpgradeTime"`
	ImageURL             string    `json:"imageUrl"`
	IsUnlocked           bool      `json:"isUnlocked"`
	PriceIncreaseRate    float64   `json:"priceIncreaseRate"`
	PerHourIncreaseRate  float64   `json:"perHourIncreaseRate"`
	BaseCooldown         int64     `json:"baseCooldown"` // minutes
	CooldownIncreaseRate float64   `json:"cooldownIncreaseRate"`
	CurrentCooldown      int64     `json:"currentCooldown"` // minutes
}

// NewCardFromTemplate clones a catalog template into its locked initial state.
func NewCardFromTemplate(t *CardTemplate) *Card {
	return &Card{
		Name:                 t.Name,
		BasePrice:            t.BasePrice,
		CurrentPrice:         t.BasePrice,
		PerHourIncrease:      t.PerHourIncrease,
		CurrentPerHour:       0,
		RequiredLevel:        t.RequiredLevel,
		ImageURL:             t.ImageURL,
		PriceIncreaseRate:    t.PriceIncreaseRate,
		PerHourIncreaseRate:  t.PerHourIncreaseRate,
		BaseCooldown:         t.BaseCooldown,
		CooldownIncreaseRate: t.CooldownIncreaseRate,
		CurrentCooldown:      t.BaseCooldown,
	}
}

// PriceAt returns the upgrade price at a given upgrade count.
func (c *Card) PriceAt(n int) int64 {
	return GeometricValue(float64(c.BasePrice), c.PriceIncreaseRate, n)
}

// PerHourAt returns the production at a given upgrade count. A never-upgraded
// card produces nothing.
func (c *Card) PerHourAt(n int) int64 {
	if n == 0 {
		return 0
	}
	return GeometricValue(float64(c.PerHourIncrease), c.PerHourIncreaseRate, n)
}

// CooldownAt returns the cooldown in minutes at a given upgrade count.
func (c *Card) CooldownAt(n int) int64 {
	return GeometricValue(float64(c.BaseCooldown), c.CooldownIncreaseRate, n)
}

// Recompute rebuilds all derived values from upgradeCount.
func (c *Card) Recompute() {
	c.CurrentPrice = c.PriceAt(c.UpgradeCount)
	c.CurrentPerHour = c.PerHourAt(c.UpgradeCount)
	c.CurrentCooldown = c.CooldownAt(c.UpgradeCount)
}

// CooldownRemaining returns how long until the next upgrade window opens.
func (c *Card) CooldownRemaining(now time.Time) time.Duration {
	if c.LastUpgradeTime.IsZero() {
		return 0
	}
	cooldown := time.Duration(c.CurrentCooldown) * time.Minute
	if rem := cooldown - now.Sub(c.LastUpgradeTime); rem > 0 {
		return rem
	}
	return 0
}

// CardInfo is the read model for one card: the stored state plus the next
// curve step and the caller's eligibility.
type CardInfo struct {
	Card
	NextPrice         int64     `json:"nextPrice"`
	NextPerHour       int64     `json:"nextPerHour"`
	NextCooldown      int64     `json:"nextCooldown"`
	CooldownRemaining int64     `json:"cooldownRemaining"` // ms
	CooldownEnds      time.Time `json:"cooldownEnds,omitzero"`
	CanUpgrade        bool      `json:"canUpgrade"`
}

// Collections holds the per-section card sets, keyed by normalized card key.
type Collections map[string]map[string]*Card

// NewCollections returns the three empty named sections.
func NewCollections() Collections {
	c := make(Collections, len(SectionNames))
	for _, s := range SectionNames {
		c[s] = make(map[string]*Card)
	}
	return c
}

// Get looks up a card by section and normalized key.
func (c Collections) Get(section, key string) *Card {
	set, ok := c[section]
	if !ok {
		return nil
	}
	return set[key]
}

// Put installs a card under its section, creating the section if the
// aggregate predates it.
func (c Collections) Put(section, key string, card *Card) {
	set, ok := c[section]
	if !ok {
		set = make(map[string]*Card)
		c[section] = set
	}
	set[key] = card
}

// GetCardInfo computes the read model for one card, or NotFound.
func (p *Player) GetCardInfo(section, key string, now time.Time) (*CardInfo, error) {
	card := p.Cards.Get(section, key)
	if card == nil {
		return nil, fmt.Errorf("card %s/%s: %w", section, key, ErrNotFound)
	}

	next := card.UpgradeCount + 1
	remaining := card.CooldownRemaining(now)
	info := &CardInfo{
		Card:              *card,
		NextPrice:         card.PriceAt(next),
		NextPerHour:       card.PerHourAt(next),
		NextCooldown:      card.CooldownAt(next),
		CooldownRemaining: remaining.Milliseconds(),
		CanUpgrade: remaining == 0 &&
			p.Level >= card.RequiredLevel &&
			p.TapPoints >= card.CurrentPrice,
	}
	if !card.LastUpgradeTime.IsZero() {
		info.CooldownEnds = card.LastUpgradeTime.Add(time.Duration(card.CurrentCooldown) * time.Minute)
	}
	return info, nil
}

// UpgradeCard buys the next step on a card's curves and refreshes the
// aggregate production rate.
func (p *Player) UpgradeCard(section, key string, now time.Time) (*Card, error) {
	card := p.Cards.Get(section, key)
	if card == nil {
		return nil, fmt.Errorf("card %s/%s: %w", section, key, ErrNotFound)
	}
	if p.Level < card.RequiredLevel {
		return nil, fmt.Errorf("card %s/%s needs level %d: %w", section, key, card.RequiredLevel, ErrLevelTooLow)
	}
	if p.TapPoints < card.CurrentPrice {
		return nil, fmt.Errorf("card %s/%s: %w", section, key, ErrInsufficientFunds)
	}
	if card.CooldownRemaining(now) > 0 {
		return nil, fmt.Errorf("card %s/%s: %w", section, key, ErrCooldownActive)
	}

	p.TapPoints -= card.CurrentPrice
	card.UpgradeCount++
	card.Recompute()
	card.LastUpgradeTime = now
	card.IsUnlocked = true
	p.PerHour = p.TotalPerHour()
	return card, nil
}

// TotalPerHour sums production across every card in every section.
func (p *Player) TotalPerHour() int64 {
	var total int64
	for _, section := range p.Cards {
		for _, card := range section {
			total += card.CurrentPerHour
		}
	}
	return total
}
