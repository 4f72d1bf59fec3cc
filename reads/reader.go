// Package reads reads aligned sequencing reads from SAM and BAM files, with
// indexed region queries over BAM files that have a BAI index.
package reads

import (
	"bufio"
	"io"
	"log"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/carbocation/ngsio"
	"github.com/carbocation/ngsio/sampler"
	"github.com/carbocation/pfx"
)

var _ ngsio.Reader[Read] = (*Reader)(nil)

// Reader reads one SAM or BAM file. It is not safe for concurrent use.
type Reader struct {
	path    string
	options Options

	src ngsio.ReadSeekCloser
	// Exactly one of bam and sam is set, depending on the container.
	bam *bam.Reader
	sam *sam.Reader

	header Header
	refs   map[string]*sam.Reference
	index  *bam.Index

	// sampler is nil when downsampling is disabled. It advances once per
	// KeepRead call.
	sampler *sampler.FractionalSampler

	life    *ngsio.Lifecycle
	started bool
}

// Open opens a SAM or BAM file at a local or gs:// path. BAM is recognized
// by its BGZF magic; anything uncompressed is parsed as SAM text.
func Open(path string, options Options) (*Reader, error) {
	src, _, err := ngsio.OpenSeeker(path, options.Storage)
	if err != nil {
		return nil, err
	}

	return newReader(path, src, options)
}

// newReader takes ownership of src, which is closed if the reader cannot be
// built. The index is still looked up next to path.
func newReader(path string, src ngsio.ReadSeekCloser, options Options) (*Reader, error) {
	r := &Reader{
		path:    path,
		options: options,
		src:     src,
		life:    ngsio.NewLifecycle("AlignedReadReader"),
	}

	if options.DownsampleFraction != 0 {
		smp, err := sampler.New(options.DownsampleFraction, options.RandomSeed)
		if err != nil {
			src.Close()
			return nil, err
		}
		r.sampler = smp
	}

	if err := r.open(); err != nil {
		r.release()
		return nil, err
	}

	return r, nil
}

func (r *Reader) open() error {
	dt, err := ngsio.DetectDataType(bufio.NewReader(io.LimitReader(r.src, 16)))
	if err != nil {
		return ngsio.Errorf(ngsio.DataLoss, "%s: %w", r.path, pfx.Err(err))
	}
	if _, err := r.src.Seek(0, io.SeekStart); err != nil {
		return ngsio.Errorf(ngsio.Internal, "%s: %w", r.path, pfx.Err(err))
	}

	var h *sam.Header
	switch dt {
	case ngsio.DataTypeGzip:
		if r.bam, err = bam.NewReader(r.src, 1); err != nil {
			return ngsio.Errorf(ngsio.DataLoss, "reading BAM header of %s: %w", r.path, pfx.Err(err))
		}
		h = r.bam.Header()
	case ngsio.DataTypeNoCompression:
		if r.sam, err = sam.NewReader(r.src); err != nil {
			return ngsio.Errorf(ngsio.DataLoss, "reading SAM header of %s: %w", r.path, pfx.Err(err))
		}
		h = r.sam.Header()
	default:
		return ngsio.Errorf(ngsio.InvalidArgument, "%s is %s compressed, which is neither SAM nor BAM", r.path, dt)
	}

	r.header = newHeader(h)
	r.refs = make(map[string]*sam.Reference, len(h.Refs()))
	for _, ref := range h.Refs() {
		r.refs[ref.Name()] = ref
	}

	return r.loadIndex()
}

func (r *Reader) loadIndex() error {
	if r.options.IndexMode == IndexNone {
		return nil
	}

	if r.bam == nil {
		if r.options.IndexMode == IndexRequired {
			return ngsio.Errorf(ngsio.InvalidArgument, "%s is SAM text, which cannot be indexed", r.path)
		}
		log.Printf("%s is SAM text; region queries are unavailable\n", r.path)
		return nil
	}

	candidates := []string{r.path + ".bai"}
	if strings.HasSuffix(r.path, ".bam") {
		candidates = append(candidates, strings.TrimSuffix(r.path, ".bam")+".bai")
	}

	for _, indexPath := range candidates {
		f, _, err := ngsio.OpenSeeker(indexPath, r.options.Storage)
		if ngsio.IsKind(err, ngsio.NotFound) {
			continue
		} else if err != nil {
			return err
		}

		idx, err := bam.ReadIndex(f)
		f.Close()
		if err != nil {
			return ngsio.Errorf(ngsio.DataLoss, "reading index %s: %w", indexPath, pfx.Err(err))
		}
		r.index = idx

		return nil
	}

	if r.options.IndexMode == IndexRequired {
		return ngsio.Errorf(ngsio.NotFound, "no index found for %s (tried %s)", r.path, strings.Join(candidates, ", "))
	}
	log.Printf("No index found for %s; region queries are unavailable\n", r.path)

	return nil
}

func (r *Reader) Options() Options {
	return r.options
}

// Header returns a copy of the header parsed at open time.
func (r *Reader) Header() Header {
	return r.header.clone()
}

func (r *Reader) HasIndex() bool {
	return r.index != nil
}

// KeepRead reports whether read passes the reader's filters. When
// downsampling is enabled the sampler is always consulted first, so its
// state advances exactly once per call whatever the structural outcome.
func (r *Reader) KeepRead(read *Read) bool {
	keep := true
	if r.sampler != nil {
		keep = r.sampler.Keep()
	}

	return r.options.satisfiedBy(*read) && keep
}

// IterateAll returns a sequence over every record that passes KeepRead, in
// file order, starting from the first record. Any earlier sequence from this
// reader stops working.
func (r *Reader) IterateAll() (*ngsio.Iterable[Read], error) {
	if r.started && !r.life.Closed() {
		if err := r.rewind(); err != nil {
			return nil, err
		}
	}

	it, err := ngsio.NewIterable(r.life, r.scan)
	if err != nil {
		return nil, err
	}
	r.started = true

	return it, nil
}

// rewind positions the container at its first record.
func (r *Reader) rewind() error {
	if _, err := r.src.Seek(0, io.SeekStart); err != nil {
		return ngsio.Errorf(ngsio.Internal, "rewinding %s: %w", r.path, pfx.Err(err))
	}

	if r.bam != nil {
		br, err := bam.NewReader(r.src, 1)
		if err != nil {
			return ngsio.Errorf(ngsio.DataLoss, "re-reading BAM header of %s: %w", r.path, pfx.Err(err))
		}
		if err := r.bam.Close(); err != nil {
			log.Printf("Closing the previous BAM reader of %s: %v\n", r.path, pfx.Err(err))
		}
		r.bam = br

		return nil
	}

	sr, err := sam.NewReader(r.src)
	if err != nil {
		return ngsio.Errorf(ngsio.DataLoss, "re-reading SAM header of %s: %w", r.path, pfx.Err(err))
	}
	r.sam = sr

	return nil
}

func (r *Reader) scan() (Read, error) {
	for {
		var rec *sam.Record
		var err error
		if r.bam != nil {
			rec, err = r.bam.Read()
		} else {
			rec, err = r.sam.Read()
		}
		if err == io.EOF {
			return Read{}, ngsio.Exhausted()
		} else if err != nil {
			return Read{}, ngsio.Errorf(ngsio.DataLoss, "decoding record from %s: %w", r.path, pfx.Err(err))
		}

		read := NewRead(rec, r.options.AuxFields)
		if r.KeepRead(&read) {
			return read, nil
		}
	}
}

// QueryRegion returns a sequence over the records that overlap the 0-based,
// half-open interval [start, end) on refName and pass KeepRead, in file
// order. Only the index chunks that can hold such records are decoded. Any
// earlier sequence from this reader stops working.
func (r *Reader) QueryRegion(refName string, start, end int) (*ngsio.Iterable[Read], error) {
	if r.life.Closed() {
		return nil, ngsio.Errorf(ngsio.FailedPrecondition, "cannot query a closed AlignedReadReader")
	}
	if r.index == nil {
		return nil, ngsio.Errorf(ngsio.FailedPrecondition, "cannot query %s without an index", r.path)
	}

	ref, exists := r.refs[refName]
	switch {
	case !exists:
		return nil, ngsio.Errorf(ngsio.InvalidArgument, "unknown reference %q", refName)
	case start < 0:
		return nil, ngsio.Errorf(ngsio.InvalidArgument, "region start %d is negative", start)
	case start > end:
		return nil, ngsio.Errorf(ngsio.InvalidArgument, "region start %d is after its end %d", start, end)
	case end > ref.Len():
		return nil, ngsio.Errorf(ngsio.InvalidArgument, "region end %d is past the end of %s (%d)", end, refName, ref.Len())
	}

	if start == end {
		return ngsio.NewIterable(r.life, func() (Read, error) { return Read{}, ngsio.Exhausted() })
	}

	// Validation already ruled out a bad reference or interval, so an error
	// here means the index holds nothing for this reference.
	chunks, err := r.index.Chunks(ref, start, end)
	if err != nil || len(chunks) == 0 {
		return ngsio.NewIterable(r.life, func() (Read, error) { return Read{}, ngsio.Exhausted() })
	}

	iter, err := bam.NewIterator(r.bam, chunks)
	if err != nil {
		return nil, ngsio.Errorf(ngsio.Internal, "seeking %s: %w", r.path, pfx.Err(err))
	}

	it, err := ngsio.NewIterable(r.life, func() (Read, error) {
		for iter.Next() {
			rec := iter.Record()

			// The file is coordinate sorted: once a record starts past the
			// region, nothing later can overlap it.
			if rec.Ref == nil || rec.Ref.ID() > ref.ID() || (rec.Ref.ID() == ref.ID() && rec.Start() >= end) {
				return Read{}, ngsio.Exhausted()
			}
			if !overlaps(rec, ref, start, end) {
				continue
			}

			read := NewRead(rec, r.options.AuxFields)
			if r.KeepRead(&read) {
				return read, nil
			}
		}
		if err := iter.Error(); err != nil {
			return Read{}, ngsio.Errorf(ngsio.DataLoss, "decoding record from %s: %w", r.path, pfx.Err(err))
		}

		return Read{}, ngsio.Exhausted()
	})
	if err != nil {
		return nil, err
	}

	// A later IterateAll must rewind past wherever the query left the
	// stream.
	r.started = true

	return it, nil
}

// Close releases the file. A second Close fails; a failure to close the
// file is reported but the reader is closed regardless.
func (r *Reader) Close() error {
	if err := r.life.MarkClosed(); err != nil {
		return err
	}

	if err := r.release(); err != nil {
		return ngsio.Errorf(ngsio.Internal, "closing %s: %w", r.path, pfx.Err(err))
	}

	return nil
}

func (r *Reader) release() error {
	var err error
	if r.bam != nil {
		err = r.bam.Close()
	}
	if r.src != nil {
		if srcErr := r.src.Close(); err == nil {
			err = srcErr
		}
	}

	return err
}
