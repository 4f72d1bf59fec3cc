package reads

import (
	"fmt"

	"github.com/biogo/hts/sam"
	"github.com/carbocation/ngsio"
)

// missingQuality marks a record stored without base qualities.
const missingQuality = 0xff

// Position is a 0-based coordinate on a named reference.
type Position struct {
	ReferenceName string
	Position      int
	ReverseStrand bool
}

// LinearAlignment places a read on the reference.
type LinearAlignment struct {
	Position       Position
	MappingQuality int
	Cigar          string
	// End is the 0-based exclusive end of the reference bases the CIGAR
	// covers.
	End int
}

// Read is one decoded alignment record.
type Read struct {
	FragmentName string
	// ReadNumber is 0 for the first read of a fragment and 1 for the second.
	ReadNumber  int
	NumberReads int

	ProperPlacement           bool
	DuplicateFragment         bool
	FailedVendorQualityChecks bool
	SecondaryAlignment        bool
	SupplementaryAlignment    bool

	FragmentLength int

	// Alignment is nil for unmapped reads.
	Alignment *LinearAlignment
	// NextMatePosition is nil when the read has no placed mate.
	NextMatePosition *Position

	AlignedSequence string
	// AlignedQuality holds phred scores; it is empty when the record has no
	// qualities.
	AlignedQuality []int

	// Info holds the optional tags, keyed by two-letter tag, when aux fields
	// are parsed.
	Info map[string]string
}

// Aligned reports whether the read is mapped to the reference.
func (r Read) Aligned() bool {
	return r.Alignment != nil
}

// Locus returns the reference span of an aligned read, or the zero Region
// for an unmapped one.
func (r Read) Locus() ngsio.Region {
	if r.Alignment == nil {
		return ngsio.Region{}
	}

	return ngsio.NewRegion(r.Alignment.Position.ReferenceName, r.Alignment.Position.Position, r.Alignment.End)
}

// NewRead converts a decoded SAM/BAM record. The result shares no memory
// with rec.
func NewRead(rec *sam.Record, aux AuxFieldHandling) Read {
	read := Read{
		FragmentName:              rec.Name,
		NumberReads:               1,
		ProperPlacement:           rec.Flags&sam.ProperPair != 0,
		DuplicateFragment:         rec.Flags&sam.Duplicate != 0,
		FailedVendorQualityChecks: rec.Flags&sam.QCFail != 0,
		SecondaryAlignment:        rec.Flags&sam.Secondary != 0,
		SupplementaryAlignment:    rec.Flags&sam.Supplementary != 0,
		FragmentLength:            rec.TempLen,
		AlignedSequence:           string(rec.Seq.Expand()),
	}

	if rec.Flags&sam.Paired != 0 {
		read.NumberReads = 2
		if rec.Flags&sam.Read2 != 0 {
			read.ReadNumber = 1
		}

		if rec.MateRef != nil && rec.MatePos >= 0 {
			read.NextMatePosition = &Position{
				ReferenceName: rec.MateRef.Name(),
				Position:      rec.MatePos,
				ReverseStrand: rec.Flags&sam.MateReverse != 0,
			}
		}
	}

	if rec.Flags&sam.Unmapped == 0 && rec.Ref != nil && rec.Pos >= 0 {
		read.Alignment = &LinearAlignment{
			Position: Position{
				ReferenceName: rec.Ref.Name(),
				Position:      rec.Pos,
				ReverseStrand: rec.Flags&sam.Reverse != 0,
			},
			MappingQuality: int(rec.MapQ),
			End:            rec.End(),
		}
		if len(rec.Cigar) > 0 {
			read.Alignment.Cigar = rec.Cigar.String()
		}
	}

	if len(rec.Qual) > 0 && rec.Qual[0] != missingQuality {
		read.AlignedQuality = make([]int, len(rec.Qual))
		for i, q := range rec.Qual {
			read.AlignedQuality[i] = int(q)
		}
	}

	if aux == ParseAuxFields && len(rec.AuxFields) > 0 {
		read.Info = make(map[string]string, len(rec.AuxFields))
		for _, field := range rec.AuxFields {
			read.Info[field.Tag().String()] = fmt.Sprint(field.Value())
		}
	}

	return read
}

// overlaps reports whether rec covers any base of [start, end) on ref.
// Records that consume no reference bases are treated as covering one.
func overlaps(rec *sam.Record, ref *sam.Reference, start, end int) bool {
	if rec.Ref == nil || rec.Ref.ID() != ref.ID() {
		return false
	}

	recEnd := rec.End()
	if recEnd <= rec.Start() {
		recEnd = rec.Start() + 1
	}

	return rec.Start() < end && recEnd > start
}
