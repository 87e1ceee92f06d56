// Package pointlist holds the stage point list shared by every generator,
// together with the NIS-Elements multipoint document codec.
package pointlist

// Point is a single stage position visited during acquisition.
// Coordinates are stage micrometers.
type Point struct {
	Name      string  `json:"name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	PFSOffset float64 `json:"pfs_offset"`
	Checked   bool    `json:"checked"`
}

// PointList is an ordered list of points. Order is the visiting order.
type PointList []Point

// Names returns the point names in list order.
func (l PointList) Names() []string {
	names := make([]string, len(l))
	for i, p := range l {
		names[i] = p.Name
	}
	return names
}

// Concat returns the lists joined in argument order.
func Concat(lists ...PointList) PointList {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make(PointList, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
