package fishing

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

type Rarity int

const (
	Common Rarity = iota + 1
	Uncommon
	Rare
	Epic
	Legendary
)

var rarityNames = map[Rarity]string{
	Common:    "common",
	Uncommon:  "uncommon",
	Rare:      "rare",
	Epic:      "epic",
	Legendary: "legendary",
}

func (r Rarity) String() string {
	if name, ok := rarityNames[r]; ok {
		return name
	}
	return fmt.Sprintf("rarity(%d)", int(r))
}

func ParseRarity(name string) (Rarity, error) {
	for rarity, rarityName := range rarityNames {
		if rarityName == name {
			return rarity, nil
		}
	}
	return 0, fmt.Errorf("unknown rarity %q", name)
}

func (r *Rarity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	rarity, err := ParseRarity(name)
	if err != nil {
		return err
	}
	*r = rarity
	return nil
}

type RarityInfo struct {
	Rarity      Rarity  `json:"name"`
	Weight      int     `json:"weight"`
	CatchChance float64 `json:"catch_chance"`
	XP          int     `json:"xp"` // Experience for each catch
}

type Fish struct {
	Name    string  `json:"name"`
	Rarity  Rarity  `json:"rarity"`
	HPWorth float64 `json:"hp_worth"`
	Value   int     `json:"value"`
}

type Rod struct {
	Name        string        `json:"name"`
	Tier        Rarity        `json:"tier"` // Best rarity this rod is made for
	Casts       int           `json:"casts"`
	CastDelayMs int           `json:"cast_delay_ms"`
	Bonus       float64       `json:"bonus"`
	Price       int           `json:"price"`
	CastDelay   time.Duration `json:"-"`
}

type Bait struct {
	Name  string  `json:"name"`
	Bonus float64 `json:"bonus"`
	Price int     `json:"price"`
}

// Catalog of everything that can be fished or fished with
type Catalog struct {
	rarities     map[Rarity]RarityInfo
	fish         map[string]Fish
	fishByRarity map[Rarity][]Fish
	rods         map[string]Rod
	baits        map[string]Bait
	defaultRod   Rod
}

//go:embed catalog.json
var defaultCatalog []byte

func DefaultCatalog() *Catalog {
	catalog, err := LoadCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded fish catalog is broken: %v", err))
	}
	return catalog
}

func LoadCatalog(data []byte) (*Catalog, error) {
	var raw struct {
		Rarities   []RarityInfo `json:"rarities"`
		Fish       []Fish       `json:"fish"`
		Rods       []Rod        `json:"rods"`
		Baits      []Bait       `json:"baits"`
		DefaultRod string       `json:"default_rod"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("fish catalog: %w", err)
	}

	catalog := &Catalog{
		rarities:     make(map[Rarity]RarityInfo),
		fish:         make(map[string]Fish),
		fishByRarity: make(map[Rarity][]Fish),
		rods:         make(map[string]Rod),
		baits:        make(map[string]Bait),
	}
	for _, info := range raw.Rarities {
		catalog.rarities[info.Rarity] = info
	}
	for _, fish := range raw.Fish {
		if _, ok := catalog.rarities[fish.Rarity]; !ok {
			return nil, fmt.Errorf("fish %s has rarity %s without weight", fish.Name, fish.Rarity)
		}
		catalog.fish[key(fish.Name)] = fish
		catalog.fishByRarity[fish.Rarity] = append(catalog.fishByRarity[fish.Rarity], fish)
	}
	for _, rod := range raw.Rods {
		rod.CastDelay = time.Duration(rod.CastDelayMs) * time.Millisecond
		catalog.rods[key(rod.Name)] = rod
	}
	for _, bait := range raw.Baits {
		catalog.baits[key(bait.Name)] = bait
	}
	defaultRod, ok := catalog.rods[key(raw.DefaultRod)]
	if !ok {
		return nil, fmt.Errorf("default rod %q is not in the catalog", raw.DefaultRod)
	}
	catalog.defaultRod = defaultRod
	return catalog, nil
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (c *Catalog) Fish(name string) (Fish, bool) {
	fish, ok := c.fish[key(name)]
	return fish, ok
}

func (c *Catalog) Rod(name string) (Rod, bool) {
	rod, ok := c.rods[key(name)]
	return rod, ok
}

// The rod with that name, or the default one if there is none
func (c *Catalog) RodOrDefault(name string) Rod {
	if rod, ok := c.Rod(name); ok {
		return rod
	}
	return c.defaultRod
}

func (c *Catalog) DefaultRod() Rod {
	return c.defaultRod
}

func (c *Catalog) Bait(name string) (Bait, bool) {
	bait, ok := c.baits[key(name)]
	return bait, ok
}

// Kind of item a name refers to: "fish", "rod", "bait" or "" when unknown
func (c *Catalog) ItemKind(name string) string {
	if _, ok := c.Fish(name); ok {
		return "fish"
	}
	if _, ok := c.Rod(name); ok {
		return "rod"
	}
	if _, ok := c.Bait(name); ok {
		return "bait"
	}
	return ""
}

// Experience earned by catching the fish
func (c *Catalog) XP(fish Fish) int {
	return c.rarities[fish.Rarity].XP
}

// Price of a rod or bait, false for anything the shop does not sell
func (c *Catalog) Price(name string) (string, int, bool) {
	if rod, ok := c.Rod(name); ok {
		return rod.Name, rod.Price, true
	}
	if bait, ok := c.Bait(name); ok {
		return bait.Name, bait.Price, true
	}
	return "", 0, false
}

func (c *Catalog) Baits() []Bait {
	baits := make([]Bait, 0, len(c.baits))
	for _, bait := range c.baits {
		baits = append(baits, bait)
	}
	sort.Slice(baits, func(i, j int) bool { return baits[i].Price < baits[j].Price })
	return baits
}

func (c *Catalog) Rods() []Rod {
	rods := make([]Rod, 0, len(c.rods))
	for _, rod := range c.rods {
		rods = append(rods, rod)
	}
	sort.Slice(rods, func(i, j int) bool { return rods[i].Tier < rods[j].Tier })
	return rods
}

// Probability of landing the fish with that rod and bait.
// Fish above the tier of the rod are much harder to land
func (c *Catalog) CatchProbability(fish Fish, rod Rod, bait *Bait) float64 {
	p := c.rarities[fish.Rarity].CatchChance + rod.Bonus
	if bait != nil {
		p += bait.Bonus
	}
	if fish.Rarity > rod.Tier {
		p *= 0.25
	}
	if p > 0.95 {
		p = 0.95
	}
	if p < 0 {
		p = 0
	}
	return p
}
