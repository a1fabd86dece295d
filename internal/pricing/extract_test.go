package pricing

import "testing"

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	rc := rawCatalog{
		Items: []ItemDef{
			{Key: "fridge", PriceMin: 200, PriceMax: 400, Heavy: true, Value: 3, Labels: map[string]string{"ru": "Холодильник"}},
			{Key: "sofa", PriceMin: 150, PriceMax: 300, Value: 2, Labels: map[string]string{"ru": "Диван"}},
			{Key: "wardrobe", PriceMin: 180, PriceMax: 350, Value: 2.5, Labels: map[string]string{"ru": "Шкаф"}},
		},
		Aliases: []aliasEntry{
			{Alias: "холодильник", Key: "fridge"},
			{Alias: "диван", Key: "sofa"},
			{Alias: "шкаф", Key: "wardrobe"},
			{Alias: "дверный шкаф", Key: "wardrobe"},
		},
		RoomDescriptors: map[string]string{
			"однокомнатная": "small",
			"трёхкомнатная": "large",
		},
		Volume: VolumeConfig{
			Base:                   map[string]int{"small": 500, "medium": 1000, "large": 1800, "xl": 2600},
			Thresholds:             map[string]float64{"small": 0, "medium": 4, "large": 8, "xl": 14},
			HeavyItemOverrideCount: 3,
		},
		Route: RouteConfig{
			Fees:         map[string]int{"same_city": 0, "same_metro": 200, "inter_region_short": 500},
			Minimums:     map[string]int{"same_city": 600, "same_metro": 900},
			PerFloorRate: 80,
			Localities: map[string]Locality{
				"haifa":   {CanonicalName: "Хайфа", Lat: 32.7940, Lng: 34.9896, Aliases: []string{"хайфа"}},
				"telaviv": {CanonicalName: "Тель-Авив", Lat: 32.0853, Lng: 34.7818, Aliases: []string{"тель-авив", "тель авив"}},
			},
			SameMetroKM:   30,
			ShortRegionKM: 120,
			LongRegionKM:  300,
		},
		Guards: GuardConfig{
			ComplexMultiplier: 1.18,
			RiskBuffer:        1.08,
			ComplexMinFloor:   7800,
			ExtrasFee:         map[string]int{"assembly": 300, "packing": 400, "movers": 600},
		},
		Currency: "ILS",
	}
	c, err := buildCatalog(rc)
	if err != nil {
		t.Fatalf("buildCatalog: %v", err)
	}
	return c
}

func TestExtractItems_LongestAliasWins(t *testing.T) {
	c := testCatalog(t)
	items := c.ExtractItems("дверный шкаф")
	if len(items) != 1 || items[0].Key != "wardrobe" {
		t.Fatalf("expected single wardrobe match, got %+v", items)
	}
}

func TestExtractItems_AttributeSuffixSuppressesQuantity(t *testing.T) {
	c := testCatalog(t)
	items := c.ExtractItems("Холодильник 200кг, 5 дверный шкаф")
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}
	fridge, wardrobe := items[0], items[1]
	if fridge.Key != "fridge" || fridge.Qty != 1 {
		t.Fatalf("expected fridge x1, got %+v", fridge)
	}
	if wardrobe.Key != "wardrobe" || wardrobe.Qty != 1 {
		t.Fatalf("expected wardrobe x1 (5 is an attribute suffix, not a count), got %+v", wardrobe)
	}
}

func TestExtractItems_ExplicitQuantityMarkerHonored(t *testing.T) {
	c := testCatalog(t)
	items := c.ExtractItems("диван x3")
	if len(items) != 1 || items[0].Qty != 3 {
		t.Fatalf("expected sofa x3, got %+v", items)
	}
}

func TestExtractItems_BareNumberUnderCapUsedAsQuantity(t *testing.T) {
	c := testCatalog(t)
	items := c.ExtractItems("шкаф 2")
	if len(items) != 1 || items[0].Qty != 2 {
		t.Fatalf("expected wardrobe x2, got %+v", items)
	}
}

func TestExtractItems_DimensionExpressionStrippedBeforeSplit(t *testing.T) {
	c := testCatalog(t)
	items := c.ExtractItems("шкаф 100x200см, диван")
	if len(items) != 2 {
		t.Fatalf("expected 2 items after stripping dimension expr, got %+v", items)
	}
}

func TestClassifyRoute_ShortDistanceBand(t *testing.T) {
	c := testCatalog(t)
	rc := c.ClassifyRoute("Хайфа", "Тель-Авив")
	if rc.Band != BandInterRegionShort && rc.Band != BandSameMetro {
		t.Fatalf("expected a short-distance band for Haifa->Tel Aviv, got %s (%.1fkm)", rc.Band, rc.DistanceKM)
	}
}

func TestClassifyRoute_UnknownLocalityDefaultsSameCity(t *testing.T) {
	c := testCatalog(t)
	rc := c.ClassifyRoute("Неизвестный город", "Ещё неизвестнее")
	if rc.Band != BandSameCity {
		t.Fatalf("expected same_city fallback for unresolvable localities, got %s", rc.Band)
	}
}

func TestLocalityKey_ResolvesFromWithinFullAddress(t *testing.T) {
	c := testCatalog(t)
	key, ok := c.LocalityKey("Хайфа, ул. Герцль 10, этаж 3, без лифта")
	if !ok || key != "haifa" {
		t.Fatalf("expected the embedded locality to resolve to haifa, got key=%q ok=%v", key, ok)
	}
}

func TestClassifyRoute_ResolvesLocalityEmbeddedInFullAddress(t *testing.T) {
	c := testCatalog(t)
	rc := c.ClassifyRoute("Хайфа, ул. Герцль 10, этаж 3", "Тель-Авив, Дизенгоф 50")
	if rc.Band == BandSameCity {
		t.Fatalf("expected a real distance band once localities resolve from full addresses, got same_city fallback")
	}
	if len(rc.FromNames) != 1 || rc.FromNames[0] != "Хайфа" {
		t.Fatalf("expected the canonical locality name, not the raw address, got %+v", rc.FromNames)
	}
}

func TestInferVolume_FromItemsAndHeavyOverride(t *testing.T) {
	c := testCatalog(t)
	items := []Item{{Key: "fridge", Qty: 3, Heavy: true}}
	cat := c.InferVolume("", items)
	if cat != "xl" {
		t.Fatalf("expected heavy-item override to force xl, got %q", cat)
	}
}

func TestInferVolume_FromRoomDescriptorFallback(t *testing.T) {
	c := testCatalog(t)
	cat := c.InferVolume("Трёхкомнатная квартира, переезд", nil)
	if cat != "large" {
		t.Fatalf("expected large from room descriptor, got %q", cat)
	}
}
