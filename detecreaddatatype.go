package ngsio

import (
	"bufio"
	"compress/bzip2"
	"compress/zlib"
	"io"

	"github.com/carbocation/pfx"
	"github.com/klauspost/compress/gzip"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZ
	DataTypeBZip2
)

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZ:     {0x1f, 0x9d},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

func (dt DataType) String() string {
	switch dt {
	case DataTypeNoCompression:
		return "uncompressed"
	case DataTypeGzip:
		return "gzip"
	case DataTypeZip:
		return "zip"
	case DataTypeXZ:
		return "xz"
	case DataTypeZ:
		return "zlib"
	case DataTypeBZip2:
		return "bzip2"
	}

	return "invalid"
}

// DetectDataType attempts to detect the data type of a stream by checking
// against a set of known data types. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
//
// The bytes are peeked, not consumed, so r can be handed to a decompressor
// afterwards. An empty stream is reported as uncompressed.
func DetectDataType(r *bufio.Reader) (DataType, error) {
	buff, err := r.Peek(6)
	if err != nil && err != io.EOF {
		return DataTypeInvalid, err
	}

	// Match known signatures
Outer:
	for dt, sig := range byteCodeSigs {
		if len(buff) < len(sig) {
			continue
		}
		for position := range sig {
			if buff[position] != sig[position] {
				continue Outer
			}
		}
		return dt, nil
	}

	return DataTypeNoCompression, nil
}

// Decompress wraps r according to dt. Closing the result never closes r's
// underlying source; the caller owns that.
func Decompress(r *bufio.Reader, dt DataType) (io.ReadCloser, error) {
	switch dt {
	case DataTypeGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, pfx.Err(err)
		}
		return gz, nil
	case DataTypeZip:
		// Only the first member of an archive is read
		zr := zipstream.NewReader(r)
		if _, err := zr.Next(); err != nil {
			return nil, pfx.Err(err)
		}
		return &readCloserFaker{zr}, nil
	case DataTypeBZip2:
		return &readCloserFaker{bzip2.NewReader(r)}, nil
	case DataTypeXZ:
		reader, err := xz.NewReader(r, 0)
		if err != nil {
			return nil, pfx.Err(err)
		}
		return &readCloserFaker{reader}, nil
	case DataTypeZ:
		z, err := zlib.NewReader(r)
		if err != nil {
			return nil, pfx.Err(err)
		}
		return z, nil
	}

	return &readCloserFaker{r}, nil
}

// readCloserFaker "upgrades" readers that don't need to be closed
type readCloserFaker struct {
	io.Reader
}

func (c *readCloserFaker) Close() error {
	return nil
}
