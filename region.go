package ngsio

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/brentp/irelate/interfaces"
)

var _ interfaces.IPosition = Region{}

// Region is a 0-based, half-open interval [start, end) on one reference.
type Region struct {
	chrom string
	start int
	end   int
}

func NewRegion(chrom string, start, end int) Region {
	return Region{chrom: chrom, start: start, end: end}
}

func (r Region) Chrom() string {
	return r.chrom
}

// Start and End report the interval in the uint32 coordinates irelate
// uses. Negative coordinates read as 0 and coordinates past 4Gb read as
// math.MaxUint32; Bounds has the values as given.
func (r Region) Start() uint32 {
	return clampUint32(r.start)
}

func (r Region) End() uint32 {
	return clampUint32(r.end)
}

func clampUint32(v int) uint32 {
	if v < 0 {
		return 0
	} else if int64(v) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// Bounds returns the interval as ints, which is what the readers validate
// against headers.
func (r Region) Bounds() (start, end int) {
	return r.start, r.end
}

// Overlaps reports whether other shares at least one base with r.
func (r Region) Overlaps(other interfaces.IPosition) bool {
	return r.chrom == other.Chrom() && other.Start() < r.End() && r.Start() < other.End()
}

func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.chrom, r.start, r.end)
}

// ParseRegion reads samtools-style region strings: "chr1" (whole reference,
// returned with end 0), "chr1:100" (from base 100 on) or "chr1:100-200".
// Coordinates in the string are 1-based and inclusive; the result is 0-based
// and half-open. Thousands separators are tolerated.
func ParseRegion(s string) (Region, error) {
	colon := strings.LastIndex(s, ":")
	if colon < 0 {
		if s == "" {
			return Region{}, Errorf(InvalidArgument, "empty region")
		}
		return Region{chrom: s}, nil
	}

	chrom := s[:colon]
	span := strings.ReplaceAll(s[colon+1:], ",", "")
	if chrom == "" || span == "" {
		return Region{}, Errorf(InvalidArgument, "malformed region %q", s)
	}

	parts := strings.SplitN(span, "-", 2)
	start, err := strconv.Atoi(parts[0])
	if err != nil || start < 1 {
		return Region{}, Errorf(InvalidArgument, "malformed start in region %q", s)
	}

	end := 0
	if len(parts) == 2 {
		end, err = strconv.Atoi(parts[1])
		if err != nil || end < start {
			return Region{}, Errorf(InvalidArgument, "malformed end in region %q", s)
		}
	}

	return Region{chrom: chrom, start: start - 1, end: end}, nil
}
