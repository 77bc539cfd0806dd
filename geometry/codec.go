package geometry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// EncodePrecision is the number of decimal digits written per coordinate.
// 7 digits is roughly 1cm at the equator, enough for farm boundaries.
const EncodePrecision = 7

// Decode parses the MULTIPOLYGON(((...)), ((...))) wire form into polygons.
// The single POLYGON((...)) form is accepted too. Coordinates are "lon lat"
// pairs. Rings missing the closing vertex are closed here.
func Decode(wire string) ([]orb.Polygon, error) {
	s := strings.TrimSpace(wire)
	if s == "" {
		return nil, fmt.Errorf("%w: blank input", ErrEmpty)
	}
	upper := strings.ToUpper(s)

	var groups []string
	var err error
	switch {
	case strings.HasPrefix(upper, "MULTIPOLYGON"):
		body := strings.TrimSpace(s[len("MULTIPOLYGON"):])
		if strings.EqualFold(body, "EMPTY") {
			return nil, fmt.Errorf("%w: MULTIPOLYGON EMPTY", ErrEmpty)
		}
		inner, err2 := stripParens(body)
		if err2 != nil {
			return nil, err2
		}
		groups, err = splitGroups(inner)
		if err != nil {
			return nil, err
		}
	case strings.HasPrefix(upper, "POLYGON"):
		body := strings.TrimSpace(s[len("POLYGON"):])
		if strings.EqualFold(body, "EMPTY") {
			return nil, fmt.Errorf("%w: POLYGON EMPTY", ErrEmpty)
		}
		groups = []string{body}
	default:
		return nil, fmt.Errorf("%w: unsupported prefix in %q", ErrMalformed, head(s))
	}

	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: no polygons", ErrEmpty)
	}

	polys := make([]orb.Polygon, 0, len(groups))
	for _, g := range groups {
		poly, err := parsePolygon(g)
		if err != nil {
			return nil, err
		}
		polys = append(polys, poly)
	}
	return polys, nil
}

// DecodeOne parses the wire form into a single MultiPolygon.
func DecodeOne(wire string) (orb.MultiPolygon, error) {
	polys, err := Decode(wire)
	if err != nil {
		return nil, err
	}
	return orb.MultiPolygon(polys), nil
}

// Encode writes the MULTIPOLYGON wire form with fixed precision. Single
// polygons are promoted to a one-part MultiPolygon before encoding.
func Encode(g orb.Geometry) string {
	var mp orb.MultiPolygon
	switch v := g.(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{v}
	case orb.MultiPolygon:
		mp = v
	case orb.Ring:
		mp = orb.MultiPolygon{orb.Polygon{v}}
	default:
		return "MULTIPOLYGON EMPTY"
	}
	if len(mp) == 0 {
		return "MULTIPOLYGON EMPTY"
	}

	var b strings.Builder
	b.WriteString("MULTIPOLYGON(")
	for i, poly := range mp {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(")
		for j, ring := range poly {
			if j > 0 {
				b.WriteString(",")
			}
			b.WriteString("(")
			for k, pt := range ring {
				if k > 0 {
					b.WriteString(",")
				}
				b.WriteString(formatCoord(pt[0]))
				b.WriteString(" ")
				b.WriteString(formatCoord(pt[1]))
			}
			b.WriteString(")")
		}
		b.WriteString(")")
	}
	b.WriteString(")")
	return b.String()
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', EncodePrecision, 64)
}

// parsePolygon parses "((ring),(ring))" into a polygon with >=1 ring.
func parsePolygon(s string) (orb.Polygon, error) {
	inner, err := stripParens(s)
	if err != nil {
		return nil, err
	}
	ringGroups, err := splitGroups(inner)
	if err != nil {
		return nil, err
	}
	if len(ringGroups) == 0 {
		return nil, fmt.Errorf("%w: polygon with zero rings", ErrEmpty)
	}
	poly := make(orb.Polygon, 0, len(ringGroups))
	for _, rg := range ringGroups {
		ring, err := parseRing(rg)
		if err != nil {
			return nil, err
		}
		poly = append(poly, ring)
	}
	return poly, nil
}

// parseRing parses "(x y, x y, ...)" and closes the ring if needed.
func parseRing(s string) (orb.Ring, error) {
	inner, err := stripParens(s)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(inner, ",")
	ring := make(orb.Ring, 0, len(parts)+1)
	for _, p := range parts {
		fields := strings.Fields(p)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: coordinate %q is not a lon lat pair", ErrMalformed, strings.TrimSpace(p))
		}
		lon, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad numeric token %q", ErrMalformed, fields[0])
		}
		lat, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad numeric token %q", ErrMalformed, fields[1])
		}
		ring = append(ring, orb.Point{lon, lat})
	}
	if len(ring) < 3 {
		return nil, fmt.Errorf("%w: ring with %d points", ErrMalformed, len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring, nil
}

// stripParens returns the content inside one outer balanced paren pair.
func stripParens(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") {
		return "", fmt.Errorf("%w: expected '(' at %q", ErrMalformed, head(s))
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				if strings.TrimSpace(s[i+1:]) != "" {
					return "", fmt.Errorf("%w: trailing content %q", ErrMalformed, head(s[i+1:]))
				}
				return s[1:i], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unbalanced parentheses", ErrMalformed)
}

// splitGroups splits "(a),(b),(c)" into its top-level paren groups.
func splitGroups(s string) ([]string, error) {
	var groups []string
	depth := 0
	start := -1
	for i, r := range s {
		switch r {
		case '(':
			if depth == 0 {
				start = i
			}
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: unbalanced parentheses", ErrMalformed)
			}
			if depth == 0 {
				groups = append(groups, s[start:i+1])
				start = -1
			}
		case ',', ' ', '\t', '\n', '\r':
			// separators between groups
		default:
			if depth == 0 {
				return nil, fmt.Errorf("%w: unexpected token at %q", ErrMalformed, head(s[i:]))
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced parentheses", ErrMalformed)
	}
	return groups, nil
}

func head(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 24 {
		return s[:24] + "..."
	}
	return s
}
