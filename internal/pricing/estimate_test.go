package pricing

import "testing"

func TestEstimate_ComplexityMultiplierAppliesAtScoreTwoForLargeVolume(t *testing.T) {
	c := testCatalog(t)
	in := EstimateInput{
		VolumeCategory: "large",
		Route:          RouteClassification{Band: BandInterRegionShort},
		Pickups:        []PickupInput{{FloorNum: 1, HasElevator: true}},
		Destination:    PickupInput{FloorNum: 1, HasElevator: true},
	}
	// score: large volume (+1), inter_region_short band (+1) = 2, below the
	// score>=3 hard floor, so only the multiplier line can appear.
	est := c.Estimate(in)
	found := false
	for _, line := range est.Breakdown {
		if line.Label == "complexity_multiplier" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected complexity_multiplier line for large volume at score>=2, got %+v", est.Breakdown)
	}
}

func TestEstimate_ComplexityMultiplierSkippedForSmallVolumeEvenAtHighScore(t *testing.T) {
	c := testCatalog(t)
	in := EstimateInput{
		VolumeCategory: "small",
		Route:          RouteClassification{Band: BandInterRegionShort},
		Pickups:        []PickupInput{{FloorNum: 1, HasElevator: true}, {FloorNum: 1, HasElevator: true}},
		Destination:    PickupInput{FloorNum: 1, HasElevator: true},
		Extras:         []string{"assembly"},
	}
	est := c.Estimate(in)
	for _, line := range est.Breakdown {
		if line.Label == "complexity_multiplier" || line.Label == "complex_min_floor" {
			t.Fatalf("guard must not apply outside {large, xl} volume, got %+v", est.Breakdown)
		}
	}
}

func TestEstimate_HardFloorAppliesAtScoreThree(t *testing.T) {
	c := testCatalog(t)
	in := EstimateInput{
		VolumeCategory: "xl",
		Route:          RouteClassification{Band: BandCrossCountry},
		Pickups:        []PickupInput{{FloorNum: 6, HasElevator: false}, {FloorNum: 1, HasElevator: true}},
		Destination:    PickupInput{FloorNum: 1, HasElevator: true},
		Extras:         []string{"assembly"},
	}
	est := c.Estimate(in)
	if est.Min < c.Guards.ComplexMinFloor {
		t.Fatalf("expected min to be raised to the complexity floor %d, got %d", c.Guards.ComplexMinFloor, est.Min)
	}
}

func TestEstimate_SuppressedWhenNoItemsAndLongCargoText(t *testing.T) {
	c := testCatalog(t)
	in := EstimateInput{
		Items:          nil,
		VolumeCategory: "",
		CargoRawLen:    45,
	}
	est := c.Estimate(in)
	if !est.Suppressed {
		t.Fatalf("expected suppression when 0 items extracted from long free text")
	}
	if est.Breakdown == nil {
		// breakdown may legitimately be empty since no items/volume/fees apply;
		// suppression is a separate signal from breakdown contents.
	}
}

func TestEstimate_NotSuppressedWhenVolumeKnownEvenWithZeroItems(t *testing.T) {
	c := testCatalog(t)
	in := EstimateInput{
		Items:          nil,
		VolumeCategory: "medium",
		CargoRawLen:    45,
	}
	est := c.Estimate(in)
	if est.Suppressed {
		t.Fatalf("estimate should not be suppressed once a volume category is known")
	}
}

func TestEstimate_FloorSurchargeSkippedWithElevator(t *testing.T) {
	c := testCatalog(t)
	in := EstimateInput{
		VolumeCategory: "small",
		Pickups:        []PickupInput{{FloorNum: 8, HasElevator: true}},
		Destination:    PickupInput{FloorNum: 1},
	}
	est := c.Estimate(in)
	for _, line := range est.Breakdown {
		if line.Label == "floor_surcharge:pickup" {
			t.Fatalf("no floor surcharge expected when the pickup has an elevator")
		}
	}
}

func TestEstimate_RouteMinimumToppedUp(t *testing.T) {
	c := testCatalog(t)
	in := EstimateInput{
		VolumeCategory: "", // no base contribution
		Route:          RouteClassification{Band: BandSameMetro},
	}
	est := c.Estimate(in)
	if est.Min < c.Route.Minimums[BandSameMetro] {
		t.Fatalf("expected min topped up to the same_metro minimum, got %d", est.Min)
	}
}
