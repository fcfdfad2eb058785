// Package landcover holds the land cover class catalogue, per-year sample
// tables and the two computations run over them: per-year area coverage and
// first/last year change analysis.
package landcover

import (
	"fmt"
	"sort"
)

// ClassID is an IGBP land cover class identifier.
type ClassID int

// Class is one entry of the land cover enumeration.
type Class struct {
	ID   ClassID `json:"class_id"`
	Name string  `json:"name"`
}

// UrbanClass is the single class counted by the urban composite.
const UrbanClass ClassID = 13

// forestClasses are the classes counted by the forest composite.
var forestClasses = []ClassID{1, 2, 3, 4, 5}

// ForestClasses returns the class ids aggregated into the forest composite.
func ForestClasses() []ClassID {
	out := make([]ClassID, len(forestClasses))
	copy(out, forestClasses)
	return out
}

// Catalog is an immutable id<->name lookup table. Build it once and share the
// pointer; every component resolves names through the same instance.
type Catalog struct {
	byID   map[ClassID]string
	byName map[string]ClassID
	order  []ClassID
}

// NewCatalog builds a catalog from classes. Ids must be positive and both ids
// and names must be unique.
func NewCatalog(classes []Class) (*Catalog, error) {
	c := &Catalog{
		byID:   make(map[ClassID]string, len(classes)),
		byName: make(map[string]ClassID, len(classes)),
		order:  make([]ClassID, 0, len(classes)),
	}
	for _, cl := range classes {
		if cl.ID <= 0 {
			return nil, fmt.Errorf("class id must be positive, got %d", cl.ID)
		}
		if cl.Name == "" {
			return nil, fmt.Errorf("class %d has an empty name", cl.ID)
		}
		if _, dup := c.byID[cl.ID]; dup {
			return nil, fmt.Errorf("duplicate class id %d", cl.ID)
		}
		if _, dup := c.byName[cl.Name]; dup {
			return nil, fmt.Errorf("duplicate class name %q", cl.Name)
		}
		c.byID[cl.ID] = cl.Name
		c.byName[cl.Name] = cl.ID
		c.order = append(c.order, cl.ID)
	}
	sort.Slice(c.order, func(i, j int) bool { return c.order[i] < c.order[j] })
	return c, nil
}

// Name returns the display name for id.
func (c *Catalog) Name(id ClassID) (string, bool) {
	name, ok := c.byID[id]
	return name, ok
}

// ID returns the identifier for a display name.
func (c *Catalog) ID(name string) (ClassID, bool) {
	id, ok := c.byName[name]
	return id, ok
}

// Contains reports whether id is part of the enumeration.
func (c *Catalog) Contains(id ClassID) bool {
	_, ok := c.byID[id]
	return ok
}

// Len returns the number of classes.
func (c *Catalog) Len() int { return len(c.order) }

// Classes returns every class in ascending id order.
func (c *Catalog) Classes() []Class {
	out := make([]Class, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, Class{ID: id, Name: c.byID[id]})
	}
	return out
}

// Class resolves id to a Class, failing with ErrUnknownClass.
func (c *Catalog) Class(id ClassID) (Class, error) {
	name, ok := c.byID[id]
	if !ok {
		return Class{}, fmt.Errorf("%w: %d", ErrUnknownClass, id)
	}
	return Class{ID: id, Name: name}, nil
}

// IGBP 17-class MODIS MCD12Q1 scheme.
var igbpClasses = []Class{
	{1, "Evergreen Needleleaf Forest"},
	{2, "Evergreen Broadleaf Forest"},
	{3, "Deciduous Needleleaf Forest"},
	{4, "Deciduous Broadleaf Forest"},
	{5, "Mixed Forests"},
	{6, "Closed Shrublands"},
	{7, "Open Shrublands"},
	{8, "Woody Savannas"},
	{9, "Savannas"},
	{10, "Grasslands"},
	{11, "Permanent Wetlands"},
	{12, "Croplands"},
	{13, "Urban and Built-up"},
	{14, "Cropland/Natural Vegetation Mosaic"},
	{15, "Snow and Ice"},
	{16, "Barren"},
	{17, "Water Bodies"},
}

var igbp = mustCatalog(igbpClasses)

func mustCatalog(classes []Class) *Catalog {
	c, err := NewCatalog(classes)
	if err != nil {
		panic(err)
	}
	return c
}

// IGBP returns the shared IGBP catalog.
func IGBP() *Catalog { return igbp }
