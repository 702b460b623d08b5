// Package catalog holds the directory's categories and merchants as typed
// values, the dataset bundled with the binary, and conversions into the raw
// record form used by the search normalizer.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/panchamjain/suvidha/pkg/log"
	"github.com/panchamjain/suvidha/pkg/search"
)

//go:embed data/catalog.json
var bundled []byte

// ID accepts both JSON strings and numbers. The API is not consistent about
// which one it sends.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numeric ids as numbers so records round-trip with the
// same shape the API uses.
func (id ID) MarshalJSON() ([]byte, error) {
	if id != "" && (id[0] == '-' || (id[0] >= '0' && id[0] <= '9')) && json.Valid([]byte(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

type Category struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type OperatingHours struct {
	Weekdays string `json:"weekdays,omitempty"`
	Weekends string `json:"weekends,omitempty"`
}

type Branch struct {
	ID             ID             `json:"id"`
	Name           string         `json:"name"`
	Address        string         `json:"address,omitempty"`
	Contact        string         `json:"contact,omitempty"`
	Coordinates    *Coordinates   `json:"coordinates,omitempty"`
	OperatingHours OperatingHours `json:"operatingHours"`
	IsMainBranch   bool           `json:"isMainBranch"`
	Amenities      []string       `json:"amenities,omitempty"`
}

type Merchant struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	// Category references a category by id, slug or name.
	Category        ID       `json:"category,omitempty"`
	CategorySlug    string   `json:"category_slug,omitempty"`
	Address         string   `json:"address,omitempty"`
	Contact         string   `json:"contact,omitempty"`
	Discount        string   `json:"discount,omitempty"`
	Description     string   `json:"description,omitempty"`
	Rating          float64  `json:"rating,omitempty"`
	Branches        []Branch `json:"branches,omitempty"`
	TotalBranches   int      `json:"totalBranches,omitempty"`
	EstablishedYear int      `json:"establishedYear,omitempty"`
	Website         string   `json:"website,omitempty"`
	Image           string   `json:"image,omitempty"`
}

// Catalog is an immutable snapshot of the directory.
type Catalog struct {
	Categories []Category `json:"categories"`
	Merchants  []Merchant `json:"merchants"`
}

// Default returns the bundled catalog.
func Default() (*Catalog, error) {
	c, err := Decode(bytes.NewReader(bundled))
	if err != nil {
		return nil, fmt.Errorf("decoding bundled catalog: %w", err)
	}
	return c, nil
}

// Load reads the catalog at path, or the bundled one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.ForService("catalog").Warnf("closing %s: %v", path, err)
		}
	}()

	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding catalog %s: %w", path, err)
	}
	return c, nil
}

func Decode(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the minimum every entry needs to be searchable.
func (c *Catalog) Validate() error {
	for i, cat := range c.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("category %d has no name", i)
		}
	}
	for i, m := range c.Merchants {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("merchant %d has no name", i)
		}
		if m.ID == "" {
			return fmt.Errorf("merchant %q has no id", m.Name)
		}
	}
	return nil
}

// LookupCategory finds a category by id, slug or case-insensitive name.
func (c *Catalog) LookupCategory(ref ID) (Category, bool) {
	key := strings.TrimSpace(string(ref))
	if key == "" {
		return Category{}, false
	}
	for _, cat := range c.Categories {
		if string(cat.ID) == key || cat.Slug == key || strings.EqualFold(cat.Name, key) {
			return cat, true
		}
	}
	return Category{}, false
}

// CategoryOf returns the category of m, preferring the explicit slug.
func (c *Catalog) CategoryOf(m Merchant) (Category, bool) {
	if m.CategorySlug != "" {
		if cat, ok := c.LookupCategory(ID(m.CategorySlug)); ok {
			return cat, true
		}
	}
	return c.LookupCategory(m.Category)
}

// Record converts v into the raw record form the normalizer consumes.
func Record(v any) (search.Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec search.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}
