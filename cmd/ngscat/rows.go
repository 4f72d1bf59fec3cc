package main

import (
	"sort"
	"strconv"
	"strings"

	"github.com/carbocation/ngsio/bed"
	"github.com/carbocation/ngsio/fastq"
	"github.com/carbocation/ngsio/reads"
)

// Output rows. Coordinates are printed 0-based, half-open, as stored.

type readRow struct {
	Name      string `csv:"name"`
	Reference string `csv:"reference"`
	Start     string `csv:"start"`
	End       string `csv:"end"`
	Strand    string `csv:"strand"`
	MapQ      string `csv:"mapq"`
	Cigar     string `csv:"cigar"`
	Flags     string `csv:"flags"`
	Sequence  string `csv:"sequence"`
	Info      string `csv:"info"`
}

func newReadRow(read reads.Read) readRow {
	row := readRow{
		Name:     read.FragmentName,
		Sequence: read.AlignedSequence,
	}

	if read.Aligned() {
		a := read.Alignment
		row.Reference = a.Position.ReferenceName
		row.Start = strconv.Itoa(a.Position.Position)
		row.End = strconv.Itoa(a.End)
		row.MapQ = strconv.Itoa(a.MappingQuality)
		row.Cigar = a.Cigar
		row.Strand = "+"
		if a.Position.ReverseStrand {
			row.Strand = "-"
		}
	}

	var flags []string
	for _, flag := range []struct {
		set  bool
		name string
	}{
		{!read.Aligned(), "unmapped"},
		{read.DuplicateFragment, "duplicate"},
		{read.FailedVendorQualityChecks, "qcfail"},
		{read.SecondaryAlignment, "secondary"},
		{read.SupplementaryAlignment, "supplementary"},
	} {
		if flag.set {
			flags = append(flags, flag.name)
		}
	}
	row.Flags = strings.Join(flags, ",")

	var info []string
	for tag, value := range read.Info {
		info = append(info, tag+"="+value)
	}
	sort.Strings(info)
	row.Info = strings.Join(info, ";")

	return row
}

type bedRow struct {
	Reference string  `csv:"reference"`
	Start     int64   `csv:"start"`
	End       int64   `csv:"end"`
	Name      string  `csv:"name"`
	Score     float64 `csv:"score"`
	Strand    string  `csv:"strand"`
}

func newBEDRow(rec bed.Record) bedRow {
	return bedRow{
		Reference: rec.ReferenceName,
		Start:     rec.Start,
		End:       rec.End,
		Name:      rec.Name,
		Score:     rec.Score,
		Strand:    rec.Strand.String(),
	}
}

type fastqRow struct {
	ID          string `csv:"id"`
	Description string `csv:"description"`
	Sequence    string `csv:"sequence"`
	Quality     string `csv:"quality"`
}

func newFASTQRow(rec fastq.Record) fastqRow {
	return fastqRow(rec)
}
