package bed

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/carbocation/ngsio"
	"github.com/klauspost/compress/gzip"
)

func writeBED(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readAll(t *testing.T, path string, options Options) []Record {
	t.Helper()
	r, err := Open(path, options)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	it, err := r.IterateAll()
	if err != nil {
		t.Fatal(err)
	}
	records, err := ngsio.Collect(it)
	if err != nil {
		t.Fatal(err)
	}
	return records
}

const sixColumnBED = "# a comment\n" +
	"chr1\t10\t20\tfirst\t0.5\t+\n" +
	"#another comment\n" +
	"chr2\t100\t250\tsecond\t1000\t-\n" +
	"chrX\t0\t5\tthird\t3\t.\n"

func TestReadsAllRecordsSkippingComments(t *testing.T) {
	records := readAll(t, writeBED(t, "six.bed", sixColumnBED), Options{})

	expected := []Record{
		{ReferenceName: "chr1", Start: 10, End: 20, Name: "first", Score: 0.5, Strand: StrandForward},
		{ReferenceName: "chr2", Start: 100, End: 250, Name: "second", Score: 1000, Strand: StrandReverse},
		{ReferenceName: "chrX", Start: 0, End: 5, Name: "third", Score: 3, Strand: StrandUnspecified},
	}
	if len(records) != len(expected) {
		t.Fatalf("got %d records, expected %d", len(records), len(expected))
	}
	for i := range expected {
		if records[i] != expected[i] {
			t.Errorf("record %d:\ngot      %+v\nexpected %+v", i, records[i], expected[i])
		}
	}
}

func TestHeaderHoldsInferredFieldCount(t *testing.T) {
	r, err := Open(writeBED(t, "six.bed", sixColumnBED), Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if n := r.Header().NumFields; n != 6 {
		t.Errorf("NumFields = %d, expected 6", n)
	}
}

func TestRequestedFieldsLimitDecoding(t *testing.T) {
	records := readAll(t, writeBED(t, "six.bed", sixColumnBED), Options{NumFields: 4})

	if len(records) != 3 {
		t.Fatalf("got %d records", len(records))
	}
	if rec := records[0]; rec.Name != "first" || rec.Score != 0 || rec.Strand != StrandUnspecified {
		t.Errorf("fields past the 4th were decoded: %+v", rec)
	}
}

func TestInvalidRequestedFields(t *testing.T) {
	path := writeBED(t, "six.bed", sixColumnBED)

	for _, n := range []int{7, 8, 12, 2, -1} {
		if _, err := Open(path, Options{NumFields: n}); !ngsio.IsKind(err, ngsio.InvalidArgument) {
			t.Errorf("NumFields %d: expected invalid argument, got %v", n, err)
		}
	}
}

func TestMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.bed"), Options{})
	if !ngsio.IsKind(err, ngsio.NotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestVaryingFieldCountFails(t *testing.T) {
	r, err := Open(writeBED(t, "mixed.bed", "chr1\t10\t20\nchr1\t30\t40\t.\t0\t+\n"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if n := r.Header().NumFields; n != 3 {
		t.Fatalf("NumFields = %d, expected 3", n)
	}

	it, err := r.IterateAll()
	if err != nil {
		t.Fatal(err)
	}

	rec, ok, err := it.Next()
	if err != nil || !ok || rec.End != 20 {
		t.Fatalf("first record: %+v %v %v", rec, ok, err)
	}

	if _, _, err := it.Next(); !ngsio.IsKind(err, ngsio.DataLoss) {
		t.Errorf("expected data loss on the 6 field line, got %v", err)
	}

	if _, ok, err := it.Next(); ok || err != nil {
		t.Errorf("expected clean exhaustion after the failed pull, got %v %v", ok, err)
	}
}

func TestStrandTokens(t *testing.T) {
	for token, expected := range map[string]Strand{"+": StrandForward, "-": StrandReverse, ".": StrandUnspecified} {
		rec, _, err := Decode("chr1\t1\t2\tn\t0\t"+token, 0)
		if err != nil {
			t.Errorf("%q: %v", token, err)
			continue
		}
		if rec.Strand != expected {
			t.Errorf("%q decoded as %v", token, rec.Strand)
		}
		if rec.Strand.String() != token {
			t.Errorf("%q printed as %q", token, rec.Strand.String())
		}
	}

	if _, _, err := Decode("chr1\t1\t2\tn\t0\t*", 0); !ngsio.IsDecodeError(err) {
		t.Errorf("expected a decode error for strand *, got %v", err)
	}
}

func TestIllegalFieldCount(t *testing.T) {
	for _, line := range []string{"", "chr1\t1", "chr1\t1\t2\tn\t0\t+\t5", strings.Repeat("x\t", 12) + "x"} {
		if _, _, err := Decode(line, 0); !ngsio.IsKind(err, ngsio.Unknown) || !ngsio.IsDecodeError(err) {
			t.Errorf("%q: expected a shape error, got %v", line, err)
		}
	}
}

func TestTwelveColumns(t *testing.T) {
	rec, n, err := Decode("chr7\t127471196\t127472363\tPos1\t0\t+\t127471196\t127472363\t255,0,0\t2\t10,20\t0,50", 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 12 {
		t.Errorf("n = %d", n)
	}
	expected := Record{
		ReferenceName: "chr7",
		Start:         127471196,
		End:           127472363,
		Name:          "Pos1",
		Strand:        StrandForward,
		ThickStart:    127471196,
		ThickEnd:      127472363,
		ItemRGB:       "255,0,0",
		BlockCount:    2,
		BlockSizes:    "10,20",
		BlockStarts:   "0,50",
	}
	if rec != expected {
		t.Errorf("got %+v", rec)
	}
}

func TestUnparsableNumbersBecomeZero(t *testing.T) {
	rec, _, err := Decode("chr1\tten\t20\tn\thigh\t+", 0)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Start != 0 || rec.End != 20 || rec.Score != 0 {
		t.Errorf("got %+v", rec)
	}
}

func TestRoundTripsCoordinatesAndStrand(t *testing.T) {
	path := writeBED(t, "six.bed", sixColumnBED)
	records := readAll(t, path, Options{})

	raw := make([]string, 0)
	for _, line := range strings.Split(sixColumnBED, "\n") {
		if line != "" && !strings.HasPrefix(line, CommentPrefix) {
			raw = append(raw, line)
		}
	}

	for i, rec := range records {
		tokens := strings.Split(raw[i], Delimiter)
		if tokens[ColReferenceName] != rec.ReferenceName ||
			tokens[ColStart] != strconv.FormatInt(rec.Start, 10) ||
			tokens[ColEnd] != strconv.FormatInt(rec.End, 10) ||
			tokens[ColStrand] != rec.Strand.String() {
			t.Errorf("record %d did not round trip: %q vs %+v", i, raw[i], rec)
		}
		if int64(rec.Locus().End()) != rec.End {
			t.Errorf("record %d locus end %d, expected %d", i, rec.Locus().End(), rec.End)
		}
	}
}

func TestIterateAllRestartsFromTheTop(t *testing.T) {
	r, err := Open(writeBED(t, "six.bed", sixColumnBED), Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	first, err := r.IterateAll()
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := first.Next(); err != nil {
		t.Fatal(err)
	}

	second, err := r.IterateAll()
	if err != nil {
		t.Fatal(err)
	}
	records, err := ngsio.Collect(second)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Errorf("second pass saw %d records, expected 3", len(records))
	}

	if _, _, err := first.Next(); !ngsio.IsKind(err, ngsio.FailedPrecondition) {
		t.Errorf("superseded sequence should fail, got %v", err)
	}
}

func TestSequenceFailsAfterClose(t *testing.T) {
	r, err := Open(writeBED(t, "six.bed", sixColumnBED), Options{})
	if err != nil {
		t.Fatal(err)
	}
	it, err := r.IterateAll()
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := it.Next(); ok || !ngsio.IsKind(err, ngsio.FailedPrecondition) {
		t.Errorf("expected failed precondition, got %v %v", ok, err)
	}
	if err := r.Close(); !ngsio.IsKind(err, ngsio.FailedPrecondition) {
		t.Errorf("second close: expected failed precondition, got %v", err)
	}
	if _, err := r.IterateAll(); !ngsio.IsKind(err, ngsio.FailedPrecondition) {
		t.Errorf("iterate after close: expected failed precondition, got %v", err)
	}
}

func TestEmptyFile(t *testing.T) {
	path := writeBED(t, "empty.bed", "# only a comment\n")

	if records := readAll(t, path, Options{}); len(records) != 0 {
		t.Errorf("got %d records from an empty file", len(records))
	}
	if _, err := Open(path, Options{NumFields: 3}); !ngsio.IsKind(err, ngsio.InvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestGzippedWithAutoDetection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "six.bed.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(sixColumnBED)); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if records := readAll(t, path, Options{Compression: ngsio.CompressionAuto}); len(records) != 3 {
		t.Errorf("got %d records", len(records))
	}
}

func TestRewindLogsCloseFailure(t *testing.T) {
	r, err := Open(writeBED(t, "six.bed", sixColumnBED), Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if _, err := r.IterateAll(); err != nil {
		t.Fatal(err)
	}
	// Closing the stream early makes the close during rewind fail.
	if err := r.lines.Close(); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	it, err := r.IterateAll()
	if err != nil {
		t.Fatal(err)
	}
	records, err := ngsio.Collect(it)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Errorf("got %d records after rewinding, expected 3", len(records))
	}
	if !strings.Contains(buf.String(), "Closing the previous stream") {
		t.Errorf("close failure was not logged: %q", buf.String())
	}
}
