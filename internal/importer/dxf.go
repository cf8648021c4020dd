package importer

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"

	"github.com/piwi3910/cutplan/internal/model"
)

// dxfPrecision is the number of decimals kept for shape sizes.
const dxfPrecision = 2

// chainTolerance is the largest gap between segment ends that still
// connects them.
const chainTolerance = 0.01

type point struct{ X, Y float64 }

type outline []point

// bounds returns the size of the bounding box.
func (o outline) bounds() (w, h float64) {
	if len(o) == 0 {
		return 0, 0
	}
	minX, minY := o[0].X, o[0].Y
	maxX, maxY := minX, minY
	for _, p := range o[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return maxX - minX, maxY - minY
}

type segment struct {
	start point
	end   point
}

// ImportDXF reads closed shapes (LWPOLYLINE, CIRCLE or chains of LINE and
// ARC entities) and returns one rectangular entry per distinct bounding box,
// with Count set to the number of shapes sharing it.
func ImportDXF(path string) Result {
	drawing, err := dxf.Open(path)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("Cannot open DXF file: %v", err)}}
	}

	entities := drawing.Entities()
	if len(entities) == 0 {
		return Result{Errors: []string{"DXF file contains no entities"}}
	}

	var result Result
	var shapes []outline
	var segments []segment

	for _, ent := range entities {
		switch e := ent.(type) {
		case *entity.LwPolyline:
			o := lwPolylineToOutline(e)
			if len(o) >= 3 {
				shapes = append(shapes, o)
			} else {
				result.Warnings = append(result.Warnings, "Skipped LWPOLYLINE with fewer than 3 vertices")
			}
		case *entity.Circle:
			shapes = append(shapes, circleToOutline(e, 64))
		case *entity.Arc:
			if pts := arcToPoints(e, 32); len(pts) >= 2 {
				segments = append(segments, pointsToSegments(pts)...)
			}
		case *entity.Line:
			segments = append(segments, segment{
				start: point{e.Start[0], e.Start[1]},
				end:   point{e.End[0], e.End[1]},
			})
		}
	}
	shapes = append(shapes, chainSegments(segments, chainTolerance)...)

	if len(shapes) == 0 {
		result.Errors = append(result.Errors, "No closed shapes found in DXF file")
		return result
	}

	byKey := make(map[string]int)
	for _, o := range shapes {
		w, h := o.bounds()
		if w < chainTolerance || h < chainTolerance {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Skipped degenerate shape (%.2f x %.2f)", w, h))
			continue
		}
		width := decimal.NewFromFloat(w).Round(dxfPrecision).String()
		height := decimal.NewFromFloat(h).Round(dxfPrecision).String()
		key := width + "x" + height
		if i, ok := byKey[key]; ok {
			result.Panels[i].Count++
			continue
		}
		byKey[key] = len(result.Panels)
		result.Panels = append(result.Panels, model.PanelInput{
			ID:     len(result.Panels) + 1,
			Width:  width,
			Height: height,
			Count:  1,
			Label:  fmt.Sprintf("DXF %s", key),
		})
	}
	return result
}

// lwPolylineToOutline flattens a polyline; bulged vertices become arcs.
func lwPolylineToOutline(lw *entity.LwPolyline) outline {
	var o outline
	for i, v := range lw.Vertices {
		current := point{v[0], v[1]}

		bulge := 0.0
		if i < len(lw.Bulges) {
			bulge = lw.Bulges[i]
		}
		if math.Abs(bulge) <= 1e-9 {
			o = append(o, current)
			continue
		}
		nv := lw.Vertices[(i+1)%len(lw.Vertices)]
		arc := bulgeArcPoints(current, point{nv[0], nv[1]}, bulge, 32)
		o = append(o, arc[:len(arc)-1]...)
	}
	return o
}

// bulgeArcPoints samples the arc between p1 and p2. The bulge is the
// tangent of a quarter of the included angle, negative for clockwise.
func bulgeArcPoints(p1, p2 point, bulge float64, numSegments int) outline {
	dx, dy := p2.X-p1.X, p2.Y-p1.Y
	chord := math.Hypot(dx, dy)
	if chord < 1e-9 {
		return outline{p1, p2}
	}

	sagitta := math.Abs(bulge) * chord / 2
	radius := (chord*chord/(4*sagitta) + sagitta) / 2

	perpX, perpY := -dy/chord, dx/chord
	if bulge > 0 {
		perpX, perpY = -perpX, -perpY
	}
	dist := radius - sagitta
	cx := (p1.X+p2.X)/2 + perpX*dist
	cy := (p1.Y+p2.Y)/2 + perpY*dist

	start := math.Atan2(p1.Y-cy, p1.X-cx)
	end := math.Atan2(p2.Y-cy, p2.X-cx)
	if bulge < 0 && end > start {
		end -= 2 * math.Pi
	} else if bulge > 0 && end < start {
		end += 2 * math.Pi
	}

	pts := make(outline, 0, numSegments+1)
	for i := 0; i <= numSegments; i++ {
		a := start + float64(i)/float64(numSegments)*(end-start)
		pts = append(pts, point{cx + radius*math.Cos(a), cy + radius*math.Sin(a)})
	}
	return pts
}

func circleToOutline(c *entity.Circle, numSegments int) outline {
	o := make(outline, numSegments)
	for i := range o {
		a := 2 * math.Pi * float64(i) / float64(numSegments)
		o[i] = point{c.Center[0] + c.Radius*math.Cos(a), c.Center[1] + c.Radius*math.Sin(a)}
	}
	return o
}

func arcToPoints(a *entity.Arc, numSegments int) []point {
	start := a.Angle[0] * math.Pi / 180
	end := a.Angle[1] * math.Pi / 180
	if end <= start {
		end += 2 * math.Pi
	}

	cx, cy, r := a.Circle.Center[0], a.Circle.Center[1], a.Circle.Radius
	pts := make([]point, numSegments+1)
	for i := range pts {
		angle := start + float64(i)/float64(numSegments)*(end-start)
		pts[i] = point{cx + r*math.Cos(angle), cy + r*math.Sin(angle)}
	}
	return pts
}

func pointsToSegments(pts []point) []segment {
	segs := make([]segment, 0, len(pts)-1)
	for i := 0; i < len(pts)-1; i++ {
		segs = append(segs, segment{pts[i], pts[i+1]})
	}
	return segs
}

// chainSegments joins segments end to end and returns the chains with at
// least three points, largest area first.
func chainSegments(segs []segment, tolerance float64) []outline {
	used := make([]bool, len(segs))
	var shapes []outline

	for startIdx := range segs {
		if used[startIdx] {
			continue
		}
		chain := outline{segs[startIdx].start, segs[startIdx].end}
		used[startIdx] = true

		for extended := true; extended; {
			extended = false
			tail := chain[len(chain)-1]
			for i, seg := range segs {
				if used[i] {
					continue
				}
				switch {
				case pointsClose(tail, seg.start, tolerance):
					chain = append(chain, seg.end)
				case pointsClose(tail, seg.end, tolerance):
					chain = append(chain, seg.start)
				default:
					continue
				}
				used[i] = true
				extended = true
				break
			}
		}

		if len(chain) >= 3 && pointsClose(chain[0], chain[len(chain)-1], tolerance) {
			chain = chain[:len(chain)-1]
		}
		if len(chain) >= 3 {
			shapes = append(shapes, chain)
		}
	}

	sort.Slice(shapes, func(i, j int) bool {
		return outlineArea(shapes[i]) > outlineArea(shapes[j])
	})
	return shapes
}

func pointsClose(a, b point, tolerance float64) bool {
	return math.Hypot(a.X-b.X, a.Y-b.Y) <= tolerance
}

// outlineArea is the shoelace area of a polygon.
func outlineArea(o outline) float64 {
	if len(o) < 3 {
		return 0
	}
	var area float64
	for i := range o {
		j := (i + 1) % len(o)
		area += o[i].X*o[j].Y - o[j].X*o[i].Y
	}
	return math.Abs(area) / 2
}
