package fishing

import (
	"sort"
	"time"

	"reelbot/internal/common"
)

// Fish above the tier of the best rod around still show up, just rarely
const aboveTierWeight = 0.1

type Stock struct {
	Fish     Fish
	Quantity int
}

func (p *population) live(now time.Time) bool {
	return p.expiresAt.IsZero() || now.Before(p.expiresAt)
}

// Generate a population of count fish, biased toward what the rod can catch
func (c *Catalog) Generate(count int, rod Rod, rnd common.Random) map[string]Stock {
	population := make(map[string]Stock)
	if count <= 0 {
		return population
	}

	rarities := make([]Rarity, 0, len(c.rarities))
	weights := make([]float64, 0, len(c.rarities))
	total := 0.0
	for rarity, info := range c.rarities {
		if len(c.fishByRarity[rarity]) == 0 {
			continue
		}
		weight := float64(info.Weight)
		if rarity > rod.Tier {
			weight *= aboveTierWeight
		}
		rarities = append(rarities, rarity)
		weights = append(weights, weight)
		total += weight
	}
	if total == 0 {
		return population
	}
	// Map iteration order is random, rolls must not depend on it
	sort.Sort(byRarity{rarities, weights})

	for i := 0; i < count; i++ {
		roll := rnd.Float64() * total
		chosen := rarities[len(rarities)-1]
		for j, weight := range weights {
			if roll < weight {
				chosen = rarities[j]
				break
			}
			roll -= weight
		}
		candidates := c.fishByRarity[chosen]
		fish := candidates[rnd.IntN(len(candidates))]
		stock := population[fish.Name]
		stock.Fish = fish
		stock.Quantity++
		population[fish.Name] = stock
	}
	return population
}

type byRarity struct {
	rarities []Rarity
	weights  []float64
}

func (b byRarity) Len() int           { return len(b.rarities) }
func (b byRarity) Less(i, j int) bool { return b.rarities[i] < b.rarities[j] }
func (b byRarity) Swap(i, j int) {
	b.rarities[i], b.rarities[j] = b.rarities[j], b.rarities[i]
	b.weights[i], b.weights[j] = b.weights[j], b.weights[i]
}

// Pick one fish, each individual fish equally likely
func draw(population map[string]Stock, rnd common.Random) (Fish, bool) {
	names := make([]string, 0, len(population))
	total := 0
	for name, stock := range population {
		if stock.Quantity > 0 {
			names = append(names, name)
			total += stock.Quantity
		}
	}
	if total == 0 {
		return Fish{}, false
	}
	sort.Strings(names)
	roll := rnd.IntN(total)
	for _, name := range names {
		stock := population[name]
		if roll < stock.Quantity {
			return stock.Fish, true
		}
		roll -= stock.Quantity
	}
	return Fish{}, false
}

func count(population map[string]Stock) int {
	total := 0
	for _, stock := range population {
		total += stock.Quantity
	}
	return total
}
