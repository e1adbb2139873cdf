// Sample region generation using layered simplex noise.
// Produces a rectangular block of cells with smoothly varying prosperity,
// population density, development and resource richness.
package world

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds sample generation parameters.
type GenConfig struct {
	Width  int   // Cells per row
	Height int   // Rows
	Seed   int64 // Random seed (0 = random)

	BaseWealth     int     // Wealth at noise 0.5
	BasePopulation int     // Population at noise 0.5
	MaxInfra       float64 // Infrastructure level at noise 1.0
}

// DefaultGenConfig returns a small playable block of regions.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:          6,
		Height:         4,
		Seed:           0,
		BaseWealth:     500,
		BasePopulation: 1000,
		MaxInfra:       5,
	}
}

// GenerateRegions creates Width×Height regions named after their cell.
// The same seed always yields the same regions.
func GenerateRegions(cfg GenConfig, resourceTypes []string) []*Region {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil
	}

	// Independent layers for each property.
	wealthNoise := opensimplex.NewNormalized(seed)
	popNoise := opensimplex.NewNormalized(seed + 1)
	infraNoise := opensimplex.NewNormalized(seed + 2)
	resNoise := make([]opensimplex.Noise, len(resourceTypes))
	for i := range resourceTypes {
		resNoise[i] = opensimplex.NewNormalized(seed + 10 + int64(i))
	}

	regions := make([]*Region, 0, cfg.Width*cfg.Height)
	for r := 0; r < cfg.Height; r++ {
		for q := 0; q < cfg.Width; q++ {
			// Offset rows so neighbouring cells sample like a hex layout.
			x := float64(q) + float64(r)*0.5
			y := float64(r) * math.Sqrt(3.0) / 2.0

			prosperity := octaveNoise(wealthNoise, x, y, 3, 0.15, 0.5)
			density := octaveNoise(popNoise, x, y, 3, 0.12, 0.5)
			development := octaveNoise(infraNoise, x, y, 2, 0.10, 0.5)

			rates := make(map[string]float64, len(resourceTypes))
			for i, rt := range resourceTypes {
				rates[rt] = math.Round(octaveNoise(resNoise[i], x, y, 2, 0.2, 0.5)*20*10) / 10
			}

			id := fmt.Sprintf("r-%d-%d", q, r)
			regions = append(regions, NewRegion(RegionSpec{
				ID:             id,
				Name:           regionName(q, r),
				Position:       Coord{Q: q, R: r},
				Wealth:         int(float64(cfg.BaseWealth) * (0.5 + prosperity)),
				Population:     int(float64(cfg.BasePopulation) * (0.5 + density)),
				Infrastructure: math.Round(development*cfg.MaxInfra*100) / 100,
				Quality:        0.3 + development*0.5,
				ResourceRates:  rates,
			}, resourceTypes))
		}
	}
	return regions
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

var namePrefixes = []string{
	"North", "South", "East", "West", "High", "Low", "Old", "New",
	"Iron", "Green", "Stone", "River", "Red", "White", "Gold", "Ash",
}

var nameSuffixes = []string{
	"march", "vale", "field", "reach", "moor", "ford", "haven", "crest",
	"wold", "dale", "mere", "holt",
}

func regionName(q, r int) string {
	p := namePrefixes[(q*7+r*3)%len(namePrefixes)]
	s := nameSuffixes[(q*5+r*11)%len(nameSuffixes)]
	return p + s
}
