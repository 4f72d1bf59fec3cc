package bed

import (
	"github.com/carbocation/ngsio"
)

// Map columns in the BED file to their positions
const (
	ColReferenceName int = iota
	ColStart
	ColEnd
	ColName
	ColScore
	ColStrand
	ColThickStart
	ColThickEnd
	ColItemRGB
	ColBlockCount
	ColBlockSizes
	ColBlockStarts
)

// ValidNumFields reports whether a BED line may have n tab-separated fields.
func ValidNumFields(n int) bool {
	switch n {
	case 3, 4, 5, 6, 8, 9, 12:
		return true
	}

	return false
}

type Strand byte

const (
	StrandUnspecified Strand = iota
	StrandForward
	StrandReverse
)

func (s Strand) String() string {
	switch s {
	case StrandForward:
		return "+"
	case StrandReverse:
		return "-"
	}

	return "."
}

// Record is one decoded BED line. Fields past the decoded field count keep
// their zero values.
type Record struct {
	ReferenceName string
	Start         int64 // 0-based
	End           int64 // exclusive
	Name          string
	Score         float64
	Strand        Strand
	ThickStart    int64
	ThickEnd      int64
	ItemRGB       string
	BlockCount    int32
	BlockSizes    string // comma-separated, kept verbatim
	BlockStarts   string // comma-separated, kept verbatim
}

// Locus returns the record's interval.
func (r Record) Locus() ngsio.Region {
	return ngsio.NewRegion(r.ReferenceName, int(r.Start), int(r.End))
}

// Header holds what is learned about a BED file when it is opened.
type Header struct {
	// NumFields is the field count of the first non-comment line. Every
	// record in the file must have exactly this many fields. Zero means the
	// file holds no records.
	NumFields int
}
