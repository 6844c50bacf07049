package geo

// Groups is an insertion-ordered multimap from a tag to its points. Looking
// up an absent tag yields an empty slice.
type Groups[K ~string] struct {
	keys []K
	m    map[K][]GeoPoint
}

func newGroups[K ~string]() *Groups[K] {
	return &Groups[K]{m: make(map[K][]GeoPoint)}
}

func (g *Groups[K]) add(k K, p GeoPoint) {
	if _, ok := g.m[k]; !ok {
		g.keys = append(g.keys, k)
	}
	g.m[k] = append(g.m[k], p)
}

// Get returns a copy of the points tagged k in insertion order.
func (g *Groups[K]) Get(k K) []GeoPoint {
	if g == nil {
		return []GeoPoint{}
	}
	pts := g.m[k]
	out := make([]GeoPoint, len(pts))
	copy(out, pts)
	return out
}

// First returns the earliest point tagged k.
func (g *Groups[K]) First(k K) (GeoPoint, bool) {
	if g == nil || len(g.m[k]) == 0 {
		return GeoPoint{}, false
	}
	return g.m[k][0], true
}

// Keys returns the tags present, in first-seen order.
func (g *Groups[K]) Keys() []K {
	if g == nil {
		return nil
	}
	out := make([]K, len(g.keys))
	copy(out, g.keys)
	return out
}

// Len returns the total number of points across all groups.
func (g *Groups[K]) Len() int {
	if g == nil {
		return 0
	}
	n := 0
	for _, pts := range g.m {
		n += len(pts)
	}
	return n
}

// Flatten returns every point, group by group in key order.
func (g *Groups[K]) Flatten() []GeoPoint {
	out := make([]GeoPoint, 0, g.Len())
	for _, k := range g.Keys() {
		out = append(out, g.m[k]...)
	}
	return out
}

// GroupByCoordinateType buckets boundary records by their CoordinateType.
func GroupByCoordinateType(records []CoordinateRecord) *Groups[CoordinateType] {
	g := newGroups[CoordinateType]()
	for _, r := range records {
		g.add(r.Type, r.Point)
	}
	return g
}

// GroupByReferenceType buckets reference marks by their role.
func GroupByReferenceType(records []ReferencePointRecord) *Groups[ReferencePointType] {
	g := newGroups[ReferencePointType]()
	for _, r := range records {
		g.add(r.Type, r.Point)
	}
	return g
}
