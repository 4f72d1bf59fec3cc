package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/carbocation/ngsio"
	"github.com/carbocation/ngsio/bed"
	"github.com/carbocation/ngsio/reads"
)

func TestFormatFromExtension(t *testing.T) {
	for name, expected := range map[string]string{
		"sample.bam":        "bam",
		"gs://b/sample.SAM": "sam",
		"peaks.bed.gz":      "bed",
		"reads.fq.gz":       "fastq",
		"reads.fastq.bz2":   "fastq",
		"variants.vcf.gz":   "",
		"no_extension":      "",
	} {
		if got := formatFromExtension(name); got != expected {
			t.Errorf("%s: got %q, expected %q", name, got, expected)
		}
	}
}

func TestReadRow(t *testing.T) {
	row := newReadRow(reads.Read{
		FragmentName: "r1",
		Alignment: &reads.LinearAlignment{
			Position:       reads.Position{ReferenceName: "chr1", Position: 99, ReverseStrand: true},
			MappingQuality: 60,
			Cigar:          "4M",
			End:            103,
		},
		DuplicateFragment: true,
		AlignedSequence:   "ACGT",
		Info:              map[string]string{"NM": "0", "AS": "4"},
	})

	expected := readRow{
		Name:      "r1",
		Reference: "chr1",
		Start:     "99",
		End:       "103",
		Strand:    "-",
		MapQ:      "60",
		Cigar:     "4M",
		Flags:     "duplicate",
		Sequence:  "ACGT",
		Info:      "AS=4;NM=0",
	}
	if row != expected {
		t.Errorf("got %+v, expected %+v", row, expected)
	}

	if unmapped := newReadRow(reads.Read{FragmentName: "u"}); unmapped.Flags != "unmapped" || unmapped.Reference != "" {
		t.Errorf("unexpected unmapped row %+v", unmapped)
	}
}

func TestBEDRow(t *testing.T) {
	row := newBEDRow(bed.Record{ReferenceName: "chr2", Start: 5, End: 9, Strand: bed.StrandReverse})
	if row.Reference != "chr2" || row.Start != 5 || row.End != 9 || row.Strand != "-" {
		t.Errorf("unexpected row %+v", row)
	}
}

type countRow struct {
	N int `csv:"n"`
}

// countUpTo yields 0..n-1 and counts how many records were pulled.
func countUpTo(t *testing.T, n int) (*ngsio.Iterable[int], *int) {
	t.Helper()
	pulled := 0
	it, err := ngsio.NewIterable(ngsio.NewLifecycle("counter"), func() (int, error) {
		if pulled == n {
			return 0, ngsio.Exhausted()
		}
		pulled++
		return pulled - 1, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return it, &pulled
}

func toCountRow(n int) countRow {
	return countRow{N: n}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriteTSV(t *testing.T) {
	var out bytes.Buffer
	it, _ := countUpTo(t, 3)
	if err := writeTSV(&out, it, toCountRow, 0); err != nil {
		t.Fatal(err)
	}
	if out.String() != "n\n0\n1\n2\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestWriteTSVEmpty(t *testing.T) {
	var out bytes.Buffer
	it, _ := countUpTo(t, 0)
	if err := writeTSV(&out, it, toCountRow, 0); err != nil {
		t.Errorf("empty input: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestWriteTSVLimit(t *testing.T) {
	var out bytes.Buffer
	it, pulled := countUpTo(t, 100)
	if err := writeTSV(&out, it, toCountRow, 2); err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(out.String()), "\n"); len(lines) != 3 {
		t.Errorf("got %d lines, expected a header and 2 rows", len(lines))
	}
	if *pulled != 2 {
		t.Errorf("pulled %d records for a limit of 2", *pulled)
	}
}

func TestWriteTSVStopsReadingWhenOutputFails(t *testing.T) {
	const total = 1000000
	it, pulled := countUpTo(t, total)
	if err := writeTSV(failingWriter{}, it, toCountRow, 0); err == nil {
		t.Error("expected the write failure to be returned")
	}
	if *pulled >= total/10 {
		t.Errorf("pulled %d of %d records after the output failed", *pulled, total)
	}
}
