package catalogs

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"factorycraft.ai/internal/sim/factory/placement"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBase = "https://factorycraft.ai/schemas/"

type Catalogs struct {
	Materials  MaterialCatalog
	Recipes    RecipeCatalog
	Generators GeneratorCatalog
}

type MaterialCatalog struct {
	Order  []string
	ByID   map[string]MaterialDef
	Digest string
}

type MaterialDef struct {
	ID        string  `json:"id"`
	Name      string  `json:"name,omitempty"`
	Weight    int     `json:"weight"`
	BasePrice float64 `json:"base_price"`
	Category  string  `json:"category,omitempty"` // "RAW","REFINED","COMPONENT","PRODUCT"
}

// RecipeCatalog keeps the file order in Order; research walks recipes in
// that order when resolving a weighted draw.
type RecipeCatalog struct {
	Order  []RecipeDef
	ByID   map[string]RecipeDef
	Digest string
}

type RecipeDef struct {
	ID      string      `json:"id"`
	Name    string      `json:"name,omitempty"`
	Tier    int         `json:"tier"`
	Inputs  []ItemCount `json:"inputs"`
	Outputs []ItemCount `json:"outputs"`
}

type ItemCount struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type GeneratorCatalog struct {
	Order  []string
	ByType map[string]GeneratorDef
	Digest string
}

type GeneratorDef struct {
	Type       string `json:"type"`
	Name       string `json:"name,omitempty"`
	Output     int    `json:"output"`
	FloorSpace int    `json:"floor_space"`
	Cost       int    `json:"cost"`
}

func Load(configDir string) (*Catalogs, error) {
	return LoadFS(os.DirFS(configDir))
}

// LoadFS reads materials.json, recipes.json and generators.json from fsys.
func LoadFS(fsys fs.FS) (*Catalogs, error) {
	var (
		mats    []MaterialDef
		recipes []RecipeDef
		gens    []GeneratorDef
		digests [3]string
		err     error
	)
	if digests[0], err = decodeTable(fsys, "materials.json", "materials", &mats); err != nil {
		return nil, err
	}
	if digests[1], err = decodeTable(fsys, "recipes.json", "recipes", &recipes); err != nil {
		return nil, err
	}
	if digests[2], err = decodeTable(fsys, "generators.json", "generators", &gens); err != nil {
		return nil, err
	}
	c, err := New(mats, recipes, gens)
	if err != nil {
		return nil, err
	}
	c.Materials.Digest = digests[0]
	c.Recipes.Digest = digests[1]
	c.Generators.Digest = digests[2]
	return c, nil
}

// New indexes already-decoded tables. Digests are computed over the JSON
// encoding of each table so catalogs built in code still fingerprint stably.
func New(mats []MaterialDef, recipes []RecipeDef, gens []GeneratorDef) (*Catalogs, error) {
	var c Catalogs
	if err := indexMaterials(mats, &c.Materials); err != nil {
		return nil, err
	}
	if err := indexRecipes(recipes, &c.Recipes, &c.Materials); err != nil {
		return nil, err
	}
	if err := indexGenerators(gens, &c.Generators); err != nil {
		return nil, err
	}
	return &c, nil
}

// Material returns the definition for id, or false when the table has no entry.
func (c *Catalogs) Material(id string) (MaterialDef, bool) {
	if c == nil {
		return MaterialDef{}, false
	}
	d, ok := c.Materials.ByID[id]
	return d, ok
}

func (c *Catalogs) Recipe(id string) (RecipeDef, bool) {
	if c == nil {
		return RecipeDef{}, false
	}
	d, ok := c.Recipes.ByID[id]
	return d, ok
}

func (c *Catalogs) Generator(typ string) (GeneratorDef, bool) {
	if c == nil {
		return GeneratorDef{}, false
	}
	d, ok := c.Generators.ByType[typ]
	return d, ok
}

// Digest combines the per-table digests into one fingerprint for the rule set.
func (c *Catalogs) Digest() string {
	return sha256Hex([]byte(c.Materials.Digest + ":" + c.Recipes.Digest + ":" + c.Generators.Digest))
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compiledSchema(name string) (*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		c := jsonschema.NewCompiler()
		names := []string{"materials", "recipes", "generators"}
		for _, n := range names {
			b, err := schemaFS.ReadFile("schemas/" + n + ".schema.json")
			if err != nil {
				schemasErr = err
				return
			}
			if err := c.AddResource(schemaBase+n+".json", bytes.NewReader(b)); err != nil {
				schemasErr = fmt.Errorf("schema %s: %w", n, err)
				return
			}
		}
		schemas = map[string]*jsonschema.Schema{}
		for _, n := range names {
			s, err := c.Compile(schemaBase + n + ".json")
			if err != nil {
				schemasErr = fmt.Errorf("compile schema %s: %w", n, err)
				return
			}
			schemas[n] = s
		}
	})
	if schemasErr != nil {
		return nil, schemasErr
	}
	return schemas[name], nil
}

// readValidated reads file from fsys and checks it against the named schema
// before it is decoded into typed definitions.
func readValidated(fsys fs.FS, file, schema string) ([]byte, error) {
	raw, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, err
	}
	s, err := compiledSchema(schema)
	if err != nil {
		return nil, err
	}
	doc, err := decodeDocument(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if err := s.Validate(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return raw, nil
}

func decodeTable(fsys fs.FS, file, schema string, out any) (string, error) {
	raw, err := readValidated(fsys, file, schema)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return "", fmt.Errorf("%s: %w", file, err)
	}
	return sha256Hex(raw), nil
}

func jsonDigest(v any) string {
	b, _ := json.Marshal(v)
	return sha256Hex(b)
}

func indexMaterials(defs []MaterialDef, out *MaterialCatalog) error {
	out.Digest = jsonDigest(defs)
	out.ByID = make(map[string]MaterialDef, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("materials: empty id")
		}
		if d.Weight <= 0 {
			return fmt.Errorf("materials: %s: weight must be > 0", d.ID)
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("materials: duplicate id %q", d.ID)
		}
		out.ByID[d.ID] = d
		out.Order = append(out.Order, d.ID)
	}
	return nil
}

func indexRecipes(defs []RecipeDef, out *RecipeCatalog, mats *MaterialCatalog) error {
	out.Digest = jsonDigest(defs)
	out.ByID = make(map[string]RecipeDef, len(defs))
	for _, r := range defs {
		if r.ID == "" {
			return fmt.Errorf("recipes: empty id")
		}
		if _, dup := out.ByID[r.ID]; dup {
			return fmt.Errorf("recipes: duplicate id %q", r.ID)
		}
		if len(r.Inputs) == 0 || len(r.Outputs) == 0 {
			return fmt.Errorf("recipes: %s: needs inputs and outputs", r.ID)
		}
		for _, list := range [][]ItemCount{r.Inputs, r.Outputs} {
			seen := map[string]bool{}
			for _, ic := range list {
				if _, ok := mats.ByID[ic.Item]; !ok {
					return fmt.Errorf("recipes: %s references unknown material %q", r.ID, ic.Item)
				}
				if ic.Count <= 0 {
					return fmt.Errorf("recipes: %s: %s count must be > 0", r.ID, ic.Item)
				}
				if seen[ic.Item] {
					return fmt.Errorf("recipes: %s lists %s twice", r.ID, ic.Item)
				}
				seen[ic.Item] = true
			}
		}
		out.ByID[r.ID] = r
		out.Order = append(out.Order, r)
	}
	return nil
}

func indexGenerators(defs []GeneratorDef, out *GeneratorCatalog) error {
	out.Digest = jsonDigest(defs)
	out.ByType = make(map[string]GeneratorDef, len(defs))
	for _, g := range defs {
		if g.Type == "" {
			return fmt.Errorf("generators: empty type")
		}
		if _, dup := out.ByType[g.Type]; dup {
			return fmt.Errorf("generators: duplicate type %q", g.Type)
		}
		if _, err := placement.SideLength(g.FloorSpace); err != nil {
			return fmt.Errorf("generators: %s: %w", g.Type, err)
		}
		out.ByType[g.Type] = g
		out.Order = append(out.Order, g.Type)
	}
	sort.Strings(out.Order)
	return nil
}

// decodeDocument decodes raw into the generic form Schema.Validate expects.
// Numbers stay json.Number so large integers are checked exactly.
func decodeDocument(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after the top-level value")
	}
	return doc, nil
}
