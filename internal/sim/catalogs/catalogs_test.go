package catalogs

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoad_ReferenceTables(t *testing.T) {
	c, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Materials.ByID) == 0 || len(c.Recipes.Order) == 0 || len(c.Generators.ByType) == 0 {
		t.Fatalf("empty catalogs: %d/%d/%d", len(c.Materials.ByID), len(c.Recipes.Order), len(c.Generators.ByType))
	}
	if d, ok := c.Material("wood"); !ok || d.Weight != 1 {
		t.Fatalf("wood=%+v ok=%v", d, ok)
	}
	if c.Recipes.Order[0].ID != "planks" {
		t.Fatalf("recipe order lost: first=%s", c.Recipes.Order[0].ID)
	}
	if len(c.Digest()) != 64 {
		t.Fatalf("digest=%q", c.Digest())
	}
}

func testFS(mats, recipes, gens string) fstest.MapFS {
	return fstest.MapFS{
		"materials.json":  {Data: []byte(mats)},
		"recipes.json":    {Data: []byte(recipes)},
		"generators.json": {Data: []byte(gens)},
	}
}

const (
	okMats    = `[{"id":"wood","weight":1,"base_price":1},{"id":"planks","weight":1,"base_price":3}]`
	okRecipes = `[{"id":"planks","tier":0,"inputs":[{"item":"wood","count":2}],"outputs":[{"item":"planks","count":1}]}]`
	okGens    = `[{"type":"crank","output":4,"floor_space":1,"cost":20}]`
)

func TestLoadFS_Valid(t *testing.T) {
	c, err := LoadFS(testFS(okMats, okRecipes, okGens))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	a, _ := LoadFS(testFS(okMats, okRecipes, okGens))
	if c.Digest() != a.Digest() {
		t.Fatalf("digest not stable")
	}
}

func TestLoadFS_Rejects(t *testing.T) {
	cases := []struct {
		name            string
		mats, rec, gens string
		want            string
	}{
		{"schema weight", `[{"id":"wood","weight":"x","base_price":1}]`, `[]`, `[]`, "materials.json"},
		{"zero weight", `[{"id":"wood","weight":0,"base_price":1}]`, `[]`, `[]`, "materials.json"},
		{"fractional weight", `[{"id":"wood","weight":1.5,"base_price":1}]`, `[]`, `[]`, "materials.json"},
		{"malformed json", `[{"id":"wood",`, `[]`, `[]`, "materials.json"},
		{"dup material", `[{"id":"wood","weight":1,"base_price":1},{"id":"wood","weight":1,"base_price":1}]`, `[]`, `[]`, "duplicate"},
		{"unknown input", okMats, `[{"id":"x","tier":0,"inputs":[{"item":"gold","count":1}],"outputs":[{"item":"wood","count":1}]}]`, okGens, "unknown material"},
		{"non-square generator", okMats, okRecipes, `[{"type":"big","output":4,"floor_space":3,"cost":20}]`, "perfect square"},
	}
	for _, tc := range cases {
		_, err := LoadFS(testFS(tc.mats, tc.rec, tc.gens))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: err=%v want containing %q", tc.name, err, tc.want)
		}
	}
}
