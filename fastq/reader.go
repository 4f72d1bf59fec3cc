// Package fastq reads FASTQ files of unaligned reads.
package fastq

import (
	"io"
	"log"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/ngsio"
	"github.com/carbocation/pfx"
)

// For validation of the FASTQ format.
const (
	HeaderSymbol    = "@"
	SeparatorSymbol = "+"
)

var _ ngsio.Reader[Record] = (*Reader)(nil)

// Record is one four-line FASTQ entry.
type Record struct {
	ID          string
	Description string // empty when the header has no space
	Sequence    string
	Quality     string
}

type Options struct {
	Compression ngsio.Compression `json:"compression"`

	// Storage, if set, is used to read gs:// paths.
	Storage *storage.Client `json:"-"`
}

type Reader struct {
	path    string
	options Options
	lines   *ngsio.LineReader
	life    *ngsio.Lifecycle
	started bool
}

func Open(path string, options Options) (*Reader, error) {
	lines, err := ngsio.OpenLines(path, options.Storage, options.Compression)
	if err != nil {
		return nil, err
	}

	return &Reader{
		path:    path,
		options: options,
		lines:   lines,
		life:    ngsio.NewLifecycle("FastqReader"),
	}, nil
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
	// Read the four lines, returning early if we are at the end of the stream
	// or the record is truncated.
	header, err := r.lines.ReadLine()
	if err == io.EOF {
		return Record{}, ngsio.Exhausted()
	} else if err != nil {
		return Record{}, err
	}

	var group [3]string
	for i := range group {
		group[i], err = r.lines.ReadLine()
		if err == io.EOF {
			return Record{}, ngsio.Errorf(ngsio.DataLoss, "truncated FASTQ record %q", header)
		} else if err != nil {
			return Record{}, err
		}
	}

	return Decode(header, group[0], group[1], group[2])
}

// Decode validates the four lines of one record and splits the header into
// ID and description at its first space.
func Decode(header, sequence, separator, quality string) (Record, error) {
	if !strings.HasPrefix(header, HeaderSymbol) ||
		!strings.HasPrefix(separator, SeparatorSymbol) ||
		sequence == "" ||
		len(sequence) != len(quality) {
		return Record{}, ngsio.Errorf(ngsio.DataLoss, "invalid FASTQ record %q", header)
	}

	rec := Record{
		ID:       strings.TrimPrefix(header, HeaderSymbol),
		Sequence: sequence,
		Quality:  quality,
	}
	if space := strings.IndexByte(rec.ID, ' '); space >= 0 {
		rec.ID, rec.Description = rec.ID[:space], rec.ID[space+1:]
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
