package client

import (
	"slices"
	"strings"
)

// Path is an ordered list of non-empty URL path segments.
type Path struct {
	segments []string
}

// NewPath splits raw on "/" and drops empty segments.
func NewPath(raw string) Path {
	var segs []string
	for seg := range strings.SplitSeq(raw, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}

	return Path{segments: segs}
}

// Segments returns a copy of the path segments.
func (p Path) Segments() []string { return slices.Clone(p.segments) }

// Absolute renders the path as "/" followed by the segments joined by "/".
func (p Path) Absolute() string {
	return "/" + strings.Join(p.segments, "/")
}

func (p Path) String() string { return p.Absolute() }

// Append concatenates other's segments onto p.
func (p *Path) Append(other Path) {
	p.segments = slices.Concat(p.segments, other.segments)
}

// Appending returns a new Path of p followed by other. p is unchanged.
func (p Path) Appending(other Path) Path {
	return Path{segments: slices.Concat(p.segments, other.segments)}
}
