package reads

import (
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/ngsio"
)

// IndexMode controls whether Open loads a BAI index.
type IndexMode byte

const (
	// IndexNone never loads an index; QueryRegion is unavailable.
	IndexNone IndexMode = iota
	// IndexIfPresent loads the index when one exists next to the BAM.
	IndexIfPresent
	// IndexRequired fails Open when no index can be loaded.
	IndexRequired
)

func (m IndexMode) String() string {
	switch m {
	case IndexNone:
		return "none"
	case IndexIfPresent:
		return "if-present"
	case IndexRequired:
		return "required"
	}

	return "invalid"
}

func (m *IndexMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "none":
		*m = IndexNone
	case "if-present", "optional":
		*m = IndexIfPresent
	case "required":
		*m = IndexRequired
	default:
		return ngsio.Errorf(ngsio.InvalidArgument, "unrecognized index mode %q; valid values are none, if-present, required", text)
	}

	return nil
}

func (m IndexMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// AuxFieldHandling controls whether optional SAM tags are decoded into
// Read.Info.
type AuxFieldHandling byte

const (
	SkipAuxFields AuxFieldHandling = iota
	ParseAuxFields
)

func (a *AuxFieldHandling) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "skip":
		*a = SkipAuxFields
	case "parse":
		*a = ParseAuxFields
	default:
		return ngsio.Errorf(ngsio.InvalidArgument, "unrecognized aux field handling %q; valid values are skip, parse", text)
	}

	return nil
}

func (a AuxFieldHandling) MarshalText() ([]byte, error) {
	if a == ParseAuxFields {
		return []byte("parse"), nil
	}

	return []byte("skip"), nil
}

// Options for an aligned read reader. The zero value reads every record of
// an unindexed file.
type Options struct {
	IndexMode IndexMode `json:"index_mode"`

	// Structural exclusions applied by KeepRead.
	ExcludeUnmapped      bool `json:"exclude_unmapped"`
	ExcludeDuplicates    bool `json:"exclude_duplicates"`
	ExcludeFailedQC      bool `json:"exclude_failed_qc"`
	ExcludeSecondary     bool `json:"exclude_secondary"`
	ExcludeSupplementary bool `json:"exclude_supplementary"`
	// MinMappingQuality drops aligned reads below this mapping quality.
	MinMappingQuality int `json:"min_mapping_quality"`

	// DownsampleFraction keeps about this fraction of reads. Zero disables
	// downsampling.
	DownsampleFraction float64 `json:"downsample_fraction"`
	RandomSeed         uint64  `json:"random_seed"`

	AuxFields AuxFieldHandling `json:"aux_fields"`

	// Storage, if set, is used to read gs:// paths.
	Storage *storage.Client `json:"-"`
}

// satisfiedBy applies the structural exclusions.
func (o Options) satisfiedBy(read Read) bool {
	switch {
	case o.ExcludeUnmapped && !read.Aligned():
		return false
	case o.ExcludeDuplicates && read.DuplicateFragment:
		return false
	case o.ExcludeFailedQC && read.FailedVendorQualityChecks:
		return false
	case o.ExcludeSecondary && read.SecondaryAlignment:
		return false
	case o.ExcludeSupplementary && read.SupplementaryAlignment:
		return false
	case read.Aligned() && read.Alignment.MappingQuality < o.MinMappingQuality:
		return false
	}

	return true
}
