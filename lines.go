package ngsio

import (
	"bufio"
	"io"
	"log"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// BufferSize is the read buffer placed in front of every stream.
var BufferSize = 256 * 1024

// Compression selects how a text stream is decoded.
type Compression byte

const (
	CompressionNone Compression = iota
	CompressionGzip
	// CompressionAuto sniffs the leading bytes and picks a decompressor.
	CompressionAuto
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionAuto:
		return "auto"
	}

	return "invalid"
}

// UnmarshalText lets Compression be set from JSON configs and flags.
func (c *Compression) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "none":
		*c = CompressionNone
	case "gzip", "gz":
		*c = CompressionGzip
	case "auto":
		*c = CompressionAuto
	default:
		return Errorf(InvalidArgument, "unrecognized compression %q; valid values are none, gzip, auto", text)
	}

	return nil
}

func (c Compression) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// LineReader yields the lines of a local or gs:// text file, optionally
// decompressing it.
type LineReader struct {
	src      io.Closer
	dec      io.ReadCloser
	r        *bufio.Reader
	DataType DataType
}

// OpenLines opens path and positions the reader at its first line.
func OpenLines(path string, client *storage.Client, compression Compression) (*LineReader, error) {
	src, _, err := OpenSeeker(path, client)
	if err != nil {
		return nil, err
	}

	raw := bufio.NewReaderSize(src, BufferSize)

	dt := DataTypeNoCompression
	switch compression {
	case CompressionNone:
	case CompressionGzip:
		dt = DataTypeGzip
	case CompressionAuto:
		if dt, err = DetectDataType(raw); err != nil {
			src.Close()
			return nil, Wrap(DataLoss, pfx.Err(err))
		}
		if dt != DataTypeNoCompression {
			log.Printf("Reading %s as %s\n", path, dt)
		}
	default:
		src.Close()
		return nil, Errorf(InvalidArgument, "unrecognized compression %d", compression)
	}

	dec, err := Decompress(raw, dt)
	if err != nil {
		src.Close()
		return nil, Errorf(DataLoss, "could not decompress %s as %s: %w", path, dt, err)
	}

	lr := &LineReader{
		src:      src,
		dec:      dec,
		r:        raw,
		DataType: dt,
	}
	if dt != DataTypeNoCompression {
		lr.r = bufio.NewReaderSize(dec, BufferSize)
	}

	return lr, nil
}

// ReadLine returns the next line without its line terminator. A final line
// without a trailing newline is still returned; io.EOF is returned only once
// no bytes remain. Any other failure is DataLoss.
func (lr *LineReader) ReadLine() (string, error) {
	line, err := lr.r.ReadString('\n')
	if err == io.EOF {
		if line == "" {
			return "", io.EOF
		}
	} else if err != nil {
		return "", Wrap(DataLoss, pfx.Err(err))
	}

	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	return line, nil
}

// Close releases the decompressor and the underlying file. The file is closed
// even if the decompressor fails to close.
func (lr *LineReader) Close() error {
	decErr := lr.dec.Close()
	srcErr := lr.src.Close()
	if srcErr != nil {
		return srcErr
	}

	return decErr
}
