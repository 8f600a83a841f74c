package main

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"

	"github.com/aristath/colony/internal/config"
	"github.com/aristath/colony/internal/coord"
	"github.com/aristath/colony/internal/entity"
	"github.com/aristath/colony/internal/faction"
	"github.com/aristath/colony/internal/job"
	"github.com/aristath/colony/internal/presets"
	"github.com/aristath/colony/internal/sim"
)

var (
	colonistNames = []string{"Ada", "Bo", "Cy", "Dee", "Eli", "Fen", "Gus", "Hal", "Ivy", "Jo", "Kit", "Lu"}
	grazerNames   = []string{"Deer", "Hare", "Boar", "Elk"}
	predatorNames = []string{"Wolf", "Bear", "Lynx"}
)

// territoryRadius is how far from camp the colony claims land.
const territoryRadius = 12

// seedScenario builds the starting colony: a pond, marked trees, supplies
// and a wood stockpile at camp, colonists, wildlife, a guard squad and any
// configured job presets anchored on the camp.
func seedScenario(g *sim.Game, sc config.ScenarioConfig, sets map[string]*presets.Preset, rng *rand.Rand) error {
	m := g.Map()
	reg := g.Registry()
	center := g.Camp().Center()
	w, h := m.Width(), m.Height()

	for y := center.Y - territoryRadius; y <= center.Y+territoryRadius; y++ {
		for x := center.X - territoryRadius; x <= center.X+territoryRadius; x++ {
			if c := coord.Pt(x, y); m.IsInside(c) {
				m.SetTerritory(c, true)
			}
		}
	}

	// Pond
	pond := coord.Pt(center.X+8, center.Y-6).Clamp(coord.Pt(2, 2), coord.Pt(w-4, h-4))
	for dy := 0; dy < 3; dy++ {
		for dx := 0; dx < 3; dx++ {
			m.SetWater(pond.Add(coord.Pt(dx, dy)), 6)
		}
	}

	// Supplies
	cat := reg.MustCategory
	supplies := []*entity.Item{
		{Name: "Axe", Bulk: 1, Categories: []entity.Category{cat(entity.CatAxe)}},
		{Name: "Spear", Bulk: 2, Damage: 4, Categories: []entity.Category{cat(entity.CatWeapon)}},
		{Name: "Spear", Bulk: 2, Damage: 4, Categories: []entity.Category{cat(entity.CatWeapon)}},
		{Name: "Hide armor", Bulk: 2, Condition: 3, Categories: []entity.Category{cat(entity.CatArmor)}},
		{Name: "Bucket", Bulk: 2, Categories: []entity.Category{cat(entity.CatBucket), cat(entity.CatContainer)}},
	}
	for range max(sc.Colonists, 1) * 2 {
		supplies = append(supplies, &entity.Item{Name: "Berries", Bulk: 1, Nutrition: 3000,
			Categories: []entity.Category{cat(entity.CatFood)}})
	}
	for _, it := range supplies {
		it.Pos = g.Camp().RandomSpot(rng)
		reg.AddItem(it)
	}

	var spots []coord.Coordinate
	for dx := -2; dx <= 2; dx++ {
		if c := coord.Pt(center.X+dx, center.Y+3); m.IsInside(c) {
			spots = append(spots, c)
		}
	}
	reg.AddStockpile("Wood pile", spots, cat(entity.CatWood))

	// Trees marked for felling
	var jobs []*job.Job
	for i := range 4 {
		pos := coord.Pt(center.X-6-i, center.Y+4-2*i).Clamp(coord.Zero, coord.Pt(w-1, h-1))
		tree := &entity.NatureObject{Name: "Oak", Pos: pos, Tree: true, Marked: true,
			Condition: 20, Components: []string{"Log", "Log"}}
		reg.AddNature(tree)
		jobs = append(jobs, job.NewFellJob(reg, tree, job.Med))
	}

	for i := range sc.Colonists {
		expert := i < sc.Experts
		g.AddColonist(colonistNames[i%len(colonistNames)], g.Camp().RandomSpot(rng), expert)
	}
	for i := range sc.Wildlife {
		g.AddAnimal(grazerNames[i%len(grazerNames)], wildSpot(g, rng), false)
	}
	for i := range sc.Predators {
		g.AddAnimal(predatorNames[i%len(predatorNames)], wildSpot(g, rng), true)
	}

	if sc.Experts > 0 {
		if _, err := g.CreateSquad("Watch", sc.Experts, job.High); err != nil {
			return err
		}
		if err := g.EquipSquad("Watch", entity.CatWeapon, entity.CatArmor); err != nil {
			return err
		}
		if err := g.OrderSquad("Watch", faction.Command{Order: faction.Guard, Target: center, Entity: -1}); err != nil {
			return err
		}
	}

	for _, j := range jobs {
		g.AddJob(j)
	}
	for _, name := range slices.Sorted(maps.Keys(sets)) {
		pj, err := sets[name].Jobs(center, reg)
		if err != nil {
			return fmt.Errorf("preset %s: %w", name, err)
		}
		if err := g.AddJobs(pj...); err != nil {
			return fmt.Errorf("preset %s: %w", name, err)
		}
	}
	return nil
}

// wildSpot picks a walkable tile outside the colony's territory.
func wildSpot(g *sim.Game, rng *rand.Rand) coord.Coordinate {
	m := g.Map()
	for range 50 {
		c := coord.Pt(rng.IntN(m.Width()), rng.IntN(m.Height()))
		if m.IsWalkable(c) && !m.IsTerritory(c) {
			return c
		}
	}
	return m.ClosestEdge(g.Camp().Center())
}
