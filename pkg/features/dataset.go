package features

import (
	"fmt"
	"sort"
	"strings"

	"github.com/velomap/conflate/pkg/constants"
	"github.com/velomap/conflate/pkg/errors"
)

// Dataset is an ordered collection of features from a single origin.
// Iteration order is deterministic: features are kept sorted by ID.
type Dataset struct {
	origin   Origin
	features []*Feature
	byID     map[string]*Feature
}

// NewDataset creates an empty dataset for the given origin.
func NewDataset(origin Origin) *Dataset {
	return &Dataset{
		origin: origin,
		byID:   make(map[string]*Feature),
	}
}

// Origin returns the origin all features in the dataset share.
func (d *Dataset) Origin() Origin {
	return d.origin
}

// Add inserts a feature into the dataset. The feature's origin is forced
// to the dataset's origin. Adding a duplicate ID is an error.
func (d *Dataset) Add(f *Feature) error {
	if f == nil {
		return fmt.Errorf("%w: nil feature", errors.ErrInvalidInput)
	}
	if f.ID == "" {
		return fmt.Errorf("%w: feature without ID", errors.ErrInvalidInput)
	}
	if _, ok := d.byID[f.ID]; ok {
		return fmt.Errorf("%w: feature %q", errors.ErrAlreadyExists, f.ID)
	}

	f.Origin = d.origin
	d.byID[f.ID] = f

	// Keep the slice sorted so iteration stays deterministic.
	i := sort.Search(len(d.features), func(i int) bool {
		return d.features[i].ID >= f.ID
	})
	d.features = append(d.features, nil)
	copy(d.features[i+1:], d.features[i:])
	d.features[i] = f

	return nil
}

// Get returns the feature with the given ID.
func (d *Dataset) Get(id string) (*Feature, error) {
	f, ok := d.byID[id]
	if !ok {
		return nil, errors.NewNotFoundError("feature", id)
	}
	return f, nil
}

// Has reports whether a feature with the given ID exists.
func (d *Dataset) Has(id string) bool {
	_, ok := d.byID[id]
	return ok
}

// Len returns the number of features in the dataset.
func (d *Dataset) Len() int {
	return len(d.features)
}

// Features returns the features sorted by ID. The returned slice must not
// be modified.
func (d *Dataset) Features() []*Feature {
	return d.features
}

// Classes returns the distinct classes present in the dataset, sorted.
func (d *Dataset) Classes() []Class {
	seen := make(map[Class]bool)
	for _, f := range d.features {
		seen[f.Class] = true
	}

	classes := make([]Class, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	return classes
}

// ByClass returns the features of the given class, sorted by ID.
func (d *Dataset) ByClass(class Class) []*Feature {
	var out []*Feature
	for _, f := range d.features {
		if f.Class == class {
			out = append(out, f)
		}
	}
	return out
}

// TotalLength returns the summed geometry length of all features.
func (d *Dataset) TotalLength() float64 {
	var total float64
	for _, f := range d.features {
		total += f.Length()
	}
	return total
}

// TotalInfraLength returns the summed infrastructure length of all
// features, counting two-way geometries double.
func (d *Dataset) TotalInfraLength() float64 {
	var total float64
	for _, f := range d.features {
		total += f.InfraLength()
	}
	return total
}

// DuplicateGeometries returns groups of features sharing byte-identical
// geometry, sorted by ID within and across groups. A feature classified
// into more than one infrastructure class appears once per class in the
// input and shows up here.
func (d *Dataset) DuplicateGeometries() [][]string {
	byGeom := make(map[string][]string)
	for _, f := range d.features {
		key := geometryKey(f)
		byGeom[key] = append(byGeom[key], f.ID)
	}

	var groups [][]string
	for _, ids := range byGeom {
		if len(ids) > 1 {
			sort.Strings(ids)
			groups = append(groups, ids)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}

// geometryKey renders a geometry as a comparable string.
func geometryKey(f *Feature) string {
	var b strings.Builder
	for _, p := range f.Geometry {
		fmt.Fprintf(&b, "%v,%v;", p[0], p[1])
	}
	return b.String()
}

// DropDegenerate removes features that cannot be matched: fewer than two
// points, or a geometry length of effectively zero. It returns the IDs of
// the dropped features, sorted.
func (d *Dataset) DropDegenerate() []string {
	var dropped []string
	kept := d.features[:0]
	for _, f := range d.features {
		if len(f.Geometry) < constants.MinSamplePoints || f.Length() <= constants.LengthEpsilon {
			dropped = append(dropped, f.ID)
			delete(d.byID, f.ID)
			continue
		}
		kept = append(kept, f)
	}
	d.features = kept
	sort.Strings(dropped)
	return dropped
}
