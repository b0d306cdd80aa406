package features

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/velomap/conflate/pkg/errors"
)

// Property keys recognized when reading GeoJSON features.
const (
	propClass     = "class"
	propVersion   = "version"
	propTimestamp = "timestamp"
)

// LoadReport describes what was skipped or dropped while loading a
// dataset.
type LoadReport struct {
	// Skipped lists feature IDs with a non-line geometry.
	Skipped []string

	// Degenerate lists feature IDs dropped for having fewer than two
	// points or zero length.
	Degenerate []string
}

// LoadDataset reads a GeoJSON FeatureCollection from path into a dataset
// with the given origin. Non-line geometries are skipped and degenerate
// lines dropped; both are reported rather than treated as errors.
func LoadDataset(path string, origin Origin) (*Dataset, *LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()

	ds, report, err := ReadDataset(f, origin)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return ds, report, nil
}

// ReadDataset reads a GeoJSON FeatureCollection from r into a dataset with
// the given origin.
func ReadDataset(r io.Reader, origin Origin) (*Dataset, *LoadReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, errors.WrapIO("read", "geojson", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, nil, errors.NewParseError("geojson", "", "invalid feature collection", err)
	}

	ds := NewDataset(origin)
	report := &LoadReport{}

	for i, gf := range fc.Features {
		id := featureID(gf, i)

		line, ok := gf.Geometry.(orb.LineString)
		if !ok {
			report.Skipped = append(report.Skipped, id)
			continue
		}

		feat := &Feature{
			ID:         id,
			Geometry:   line,
			Origin:     origin,
			Class:      ParseClass(gf.Properties.MustString(propClass, "")),
			Attributes: attributesFrom(gf.Properties),
		}

		if v, ok := intProperty(gf.Properties, propVersion); ok {
			feat.Version = &v
		}
		if ts, ok := timeProperty(gf.Properties, propTimestamp); ok {
			feat.Timestamp = &ts
		}

		if err := ds.Add(feat); err != nil {
			return nil, nil, err
		}
	}

	report.Degenerate = ds.DropDegenerate()
	return ds, report, nil
}

// WriteDataset writes a dataset to w as a GeoJSON FeatureCollection.
// Features are written in ID order.
func WriteDataset(w io.Writer, ds *Dataset) error {
	fc := geojson.NewFeatureCollection()
	for _, f := range ds.Features() {
		fc.Append(toGeoJSON(f))
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return errors.NewParseError("geojson", "", "marshaling feature collection", err)
	}
	if _, err := w.Write(data); err != nil {
		return errors.WrapIO("write", "geojson", err)
	}
	return nil
}

// toGeoJSON converts a feature back to its GeoJSON form.
func toGeoJSON(f *Feature) *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	gf.ID = f.ID
	gf.Properties = geojson.Properties{}
	for k, v := range f.Attributes {
		gf.Properties[k] = v
	}
	gf.Properties[propClass] = f.Class.String()
	if f.Version != nil {
		gf.Properties[propVersion] = *f.Version
	}
	if f.Timestamp != nil {
		gf.Properties[propTimestamp] = f.Timestamp.Format(time.RFC3339)
	}
	return gf
}

// featureID resolves a feature's identifier from its GeoJSON id member, an
// "id" property, or finally its position in the collection.
func featureID(gf *geojson.Feature, index int) string {
	switch id := gf.ID.(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	if id := gf.Properties.MustString("id", ""); id != "" {
		return id
	}
	return strconv.Itoa(index)
}

// attributesFrom flattens GeoJSON properties into string attributes,
// excluding the keys the loader interprets itself.
func attributesFrom(props geojson.Properties) map[string]string {
	attrs := make(map[string]string, len(props))
	for k, v := range props {
		switch k {
		case "id", propClass, propVersion, propTimestamp:
			continue
		}
		switch val := v.(type) {
		case string:
			attrs[k] = val
		case float64:
			attrs[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			attrs[k] = strconv.FormatBool(val)
		case nil:
			// Absent value.
		default:
			attrs[k] = fmt.Sprint(val)
		}
	}
	return attrs
}

// intProperty reads an integer property, accepting both JSON numbers and
// numeric strings.
func intProperty(props geojson.Properties, key string) (int, bool) {
	switch v := props[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}

// timeProperty reads an RFC 3339 timestamp property.
func timeProperty(props geojson.Properties, key string) (time.Time, bool) {
	s, ok := props[key].(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
