package pricing

import "strconv"

// PickupInput describes one pickup location's floor/elevator facts, the only
// pieces the pricing engine needs from the full address record.
type PickupInput struct {
	FloorNum    int
	HasElevator bool
}

// EstimateInput bundles everything the base estimate + complexity guards need.
type EstimateInput struct {
	Items           []Item
	VolumeCategory  string // "", small, medium, large, xl
	Route           RouteClassification
	Pickups         []PickupInput
	Destination     PickupInput
	Extras          []string // subset of {movers, assembly, packing}
	CargoRawLen     int
}

// BreakdownLine is one line item in the estimate's operator-facing breakdown.
type BreakdownLine struct {
	Label  string
	Amount int
}

// Estimate is the pricing engine's output.
type Estimate struct {
	Min        int
	Max        int
	Currency   string
	Breakdown  []BreakdownLine
	Suppressed bool
}

// Estimate computes the (min, max) range and breakdown per the base-estimate
// formula plus complexity guards.
func (c *Catalog) Estimate(in EstimateInput) Estimate {
	var breakdown []BreakdownLine
	minTotal, maxTotal := 0, 0

	if base, ok := c.Volume.Base[in.VolumeCategory]; ok {
		minTotal += base
		maxTotal += base
		breakdown = append(breakdown, BreakdownLine{Label: "volume_base:" + in.VolumeCategory, Amount: base})
	}

	for _, it := range in.Items {
		itemMin := it.PriceMin * it.Qty
		itemMax := it.PriceMax * it.Qty
		minTotal += itemMin
		maxTotal += itemMax
		mid := (itemMin + itemMax) / 2
		breakdown = append(breakdown, BreakdownLine{Label: "item:" + it.Key, Amount: mid})
	}

	floorRate := c.Route.PerFloorRate
	for i, p := range in.Pickups {
		if surcharge := floorSurcharge(p, floorRate); surcharge > 0 {
			minTotal += surcharge
			maxTotal += surcharge
			breakdown = append(breakdown, BreakdownLine{Label: pickupFloorLabel(i), Amount: surcharge})
		}
	}
	if surcharge := floorSurcharge(in.Destination, floorRate); surcharge > 0 {
		minTotal += surcharge
		maxTotal += surcharge
		breakdown = append(breakdown, BreakdownLine{Label: "floor_surcharge:destination", Amount: surcharge})
	}

	if fee, ok := c.Route.Fees[in.Route.Band]; ok && fee > 0 {
		minTotal += fee
		maxTotal += fee
		breakdown = append(breakdown, BreakdownLine{Label: "route_fee:" + in.Route.Band, Amount: fee})
	}

	for _, extra := range in.Extras {
		if fee, ok := c.Guards.ExtrasFee[extra]; ok && fee > 0 {
			minTotal += fee
			maxTotal += fee
			breakdown = append(breakdown, BreakdownLine{Label: "extra:" + extra, Amount: fee})
		}
	}

	if minimum, ok := c.Route.Minimums[in.Route.Band]; ok && minTotal < minimum {
		diff := minimum - minTotal
		minTotal = minimum
		maxTotal += diff
		breakdown = append(breakdown, BreakdownLine{Label: "route_minimum_topup:" + in.Route.Band, Amount: diff})
	}

	score := c.complexityScore(in)
	if in.VolumeCategory == "large" || in.VolumeCategory == "xl" {
		if score >= 2 {
			minTotal = applyMultiplier(minTotal, c.Guards.ComplexMultiplier*c.Guards.RiskBuffer)
			maxTotal = applyMultiplier(maxTotal, c.Guards.ComplexMultiplier*c.Guards.RiskBuffer)
			breakdown = append(breakdown, BreakdownLine{Label: "complexity_multiplier", Amount: 0})
		}
		if score >= 3 && minTotal < c.Guards.ComplexMinFloor {
			diff := c.Guards.ComplexMinFloor - minTotal
			minTotal = c.Guards.ComplexMinFloor
			maxTotal += diff
			breakdown = append(breakdown, BreakdownLine{Label: "complex_min_floor", Amount: diff})
		}
	}

	suppressed := len(in.Items) == 0 && in.VolumeCategory == "" && in.CargoRawLen > 30

	return Estimate{
		Min:        minTotal,
		Max:        maxTotal,
		Currency:   c.Currency,
		Breakdown:  breakdown,
		Suppressed: suppressed,
	}
}

func floorSurcharge(p PickupInput, perFloorRate int) int {
	if p.HasElevator || p.FloorNum <= 1 {
		return 0
	}
	return p.FloorNum * perFloorRate
}

func pickupFloorLabel(i int) string {
	if i == 0 {
		return "floor_surcharge:pickup"
	}
	return "floor_surcharge:pickup_" + strconv.Itoa(i+1)
}

func applyMultiplier(amount int, factor float64) int {
	return int(float64(amount)*factor + 0.5)
}

// complexityScore counts the pricing-risk triggers defined in the spec:
// large/xl volume, assembly extra, >=2 pickups, an inter-region or
// cross-country route band, or any floor >= 5 without an elevator.
func (c *Catalog) complexityScore(in EstimateInput) int {
	score := 0
	if in.VolumeCategory == "large" || in.VolumeCategory == "xl" {
		score++
	}
	if containsString(in.Extras, "assembly") {
		score++
	}
	if len(in.Pickups) >= 2 {
		score++
	}
	switch in.Route.Band {
	case BandInterRegionShort, BandInterRegionLong, BandCrossCountry:
		score++
	}
	highFloorNoElevator := !in.Destination.HasElevator && in.Destination.FloorNum >= 5
	for _, p := range in.Pickups {
		if !p.HasElevator && p.FloorNum >= 5 {
			highFloorNoElevator = true
		}
	}
	if highFloorNoElevator {
		score++
	}
	return score
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
