// Package bed reads BED interval files.
package bed

import (
	"io"
	"log"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/ngsio"
	"github.com/carbocation/pfx"
)

const (
	Delimiter     = "\t"
	CommentPrefix = "#"
)

var _ ngsio.Reader[Record] = (*Reader)(nil)

type Options struct {
	// NumFields is how many leading fields to decode. Zero decodes every
	// field present. Must be a legal BED field count no larger than the
	// file's own.
	NumFields int `json:"num_fields"`

	Compression ngsio.Compression `json:"compression"`

	// Storage, if set, is used to read gs:// paths.
	Storage *storage.Client `json:"-"`
}

type Reader struct {
	path    string
	options Options
	header  Header
	lines   *ngsio.LineReader
	life    *ngsio.Lifecycle
	started bool
}

// Open infers the field count from the first non-comment line of path,
// validates options against it, and returns a reader positioned at the start
// of the file.
func Open(path string, options Options) (*Reader, error) {
	numFields, err := inferNumFields(path, options)
	if err != nil {
		return nil, err
	}

	if options.NumFields != 0 && (options.NumFields > numFields || !ValidNumFields(options.NumFields)) {
		return nil, ngsio.Errorf(ngsio.InvalidArgument,
			"invalid requested number of fields to parse: %d (file has %d)", options.NumFields, numFields)
	}

	lines, err := ngsio.OpenLines(path, options.Storage, options.Compression)
	if err != nil {
		return nil, err
	}

	return &Reader{
		path:    path,
		options: options,
		header:  Header{NumFields: numFields},
		lines:   lines,
		life:    ngsio.NewLifecycle("BedReader"),
	}, nil
}

// inferNumFields peeks at the first record with its own handle, so the
// reader's stream starts untouched. An empty file has zero fields.
func inferNumFields(path string, options Options) (int, error) {
	lines, err := ngsio.OpenLines(path, options.Storage, options.Compression)
	if err != nil {
		return 0, err
	}
	defer lines.Close()

	line, err := nextNonCommentLine(lines)
	if err == io.EOF {
		return 0, nil
	} else if err != nil {
		return 0, err
	}

	numFields := len(strings.Split(line, Delimiter))
	if !ValidNumFields(numFields) {
		// Every record will fail to decode; point at the usual culprit.
		if d := likelyDelimiter(line); d != 0 && string(d) != Delimiter {
			log.Printf("%s: first record has %d tab-delimited fields; the file looks %q-delimited\n", path, numFields, d)
		}
	}

	return numFields, nil
}

func nextNonCommentLine(lines *ngsio.LineReader) (string, error) {
	for {
		line, err := lines.ReadLine()
		if err != nil {
			return "", err
		}
		if !strings.HasPrefix(line, CommentPrefix) {
			return line, nil
		}
	}
}

func (r *Reader) Header() Header {
	return r.header
}

func (r *Reader) Options() Options {
	return r.options
}

// IterateAll returns a sequence over every record in the file, starting from
// its first line. Any earlier sequence from this reader stops working.
func (r *Reader) IterateAll() (*ngsio.Iterable[Record], error) {
	if r.started && !r.life.Closed() {
		if err := r.rewind(); err != nil {
			return nil, err
		}
	}

	it, err := ngsio.NewIterable(r.life, r.next)
	if err != nil {
		return nil, err
	}
	r.started = true

	return it, nil
}

// rewind reopens the stream, since compressed and remote streams cannot seek.
func (r *Reader) rewind() error {
	lines, err := ngsio.OpenLines(r.path, r.options.Storage, r.options.Compression)
	if err != nil {
		return err
	}
	if err := r.lines.Close(); err != nil {
		log.Printf("Closing the previous stream of %s: %v\n", r.path, pfx.Err(err))
	}
	r.lines = lines

	return nil
}

func (r *Reader) next() (Record, error) {
	line, err := nextNonCommentLine(r.lines)
	if err == io.EOF {
		return Record{}, ngsio.Exhausted()
	} else if err != nil {
		return Record{}, err
	}

	rec, numTokens, err := Decode(line, r.options.NumFields)
	if err != nil {
		return Record{}, err
	}

	if numTokens != r.header.NumFields {
		return Record{}, ngsio.Errorf(ngsio.DataLoss,
			"invalid BED with varying number of fields in file: saw %d, expected %d", numTokens, r.header.NumFields)
	}

	return rec, nil
}

// Close releases the file. A second Close fails; a failure to close the
// file is reported but the reader is closed regardless.
func (r *Reader) Close() error {
	if err := r.life.MarkClosed(); err != nil {
		return err
	}

	if err := r.lines.Close(); err != nil {
		return ngsio.Errorf(ngsio.Internal, "closing %s: %w", r.path, pfx.Err(err))
	}

	return nil
}

// Decode parses one BED line, decoding at most desiredFields fields (zero
// means all). It also returns the number of fields on the line. Numeric
// fields that do not parse are decoded as zero.
func Decode(line string, desiredFields int) (Record, int, error) {
	tokens := strings.Split(line, Delimiter)
	numTokens := len(tokens)
	if !ValidNumFields(numTokens) {
		return Record{}, numTokens, ngsio.Errorf(ngsio.Unknown, "BED record has invalid number of fields: %d", numTokens)
	}

	numFields := numTokens
	if desiredFields != 0 && desiredFields < numTokens {
		numFields = desiredFields
	}

	rec := Record{
		ReferenceName: tokens[ColReferenceName],
		Start:         parseInt(tokens[ColStart], 64),
		End:           parseInt(tokens[ColEnd], 64),
	}
	if numFields > ColName {
		rec.Name = tokens[ColName]
	}
	if numFields > ColScore {
		rec.Score, _ = strconv.ParseFloat(tokens[ColScore], 64)
	}
	if numFields > ColStrand {
		switch tokens[ColStrand] {
		case "+":
			rec.Strand = StrandForward
		case "-":
			rec.Strand = StrandReverse
		case ".":
			rec.Strand = StrandUnspecified
		default:
			return Record{}, numTokens, ngsio.Errorf(ngsio.DataLoss, "invalid BED record with unknown strand %q", tokens[ColStrand])
		}
	}
	if numFields > ColThickEnd {
		rec.ThickStart = parseInt(tokens[ColThickStart], 64)
		rec.ThickEnd = parseInt(tokens[ColThickEnd], 64)
	}
	if numFields > ColItemRGB {
		rec.ItemRGB = tokens[ColItemRGB]
	}
	if numFields > ColBlockStarts {
		rec.BlockCount = int32(parseInt(tokens[ColBlockCount], 32))
		rec.BlockSizes = tokens[ColBlockSizes]
		rec.BlockStarts = tokens[ColBlockStarts]
	}

	return rec, numTokens, nil
}

// parseInt is deliberately lenient: anything that is not an integer of the
// given size is zero.
func parseInt(s string, bitSize int) int64 {
	v, err := strconv.ParseInt(s, 10, bitSize)
	if err != nil {
		return 0
	}

	return v
}
