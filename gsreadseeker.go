package ngsio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

type ReadSeekCloser interface {
	io.Reader
	io.Seeker
	io.Closer
}

// Decorates a Google Storage object handle with io.Reader, io.Seeker and
// io.Closer. Derived from
// https://github.com/googleapis/google-cloud-go/issues/1124#issuecomment-419070541
type GSReadSeekCloser struct {
	*storage.ObjectHandle
	Context context.Context
	r       *storage.Reader
	pos     int64 // offset of the next byte Read returns
	size    int64
}

func (s *GSReadSeekCloser) Read(buf []byte) (int, error) {
	var err error
	if s.r == nil {
		s.r, err = s.NewRangeReader(s.Context, s.pos, -1)
		if err != nil {
			return 0, err
		}
	}
	n, err := s.r.Read(buf)
	s.pos += int64(n)

	return n, err
}

// Seeking is not actually possible. As a proxy, we drop the current range
// reader and open a new one at the target offset on the next Read.
func (s *GSReadSeekCloser) Seek(offset int64, whence int) (int64, error) {
	var newOffset int64

	switch whence {
	case io.SeekStart:
		newOffset = offset
	case io.SeekCurrent:
		newOffset = s.pos + offset
	case io.SeekEnd:
		newOffset = s.size + offset
	default:
		return 0, fmt.Errorf("io.Seeker 'whence' value %d is not implemented", whence)
	}
	if newOffset < 0 {
		return 0, fmt.Errorf("seek to negative offset %d", newOffset)
	}

	if newOffset != s.pos && s.r != nil {
		s.r.Close()
		s.r = nil
	}
	s.pos = newOffset

	return s.pos, nil
}

func (s *GSReadSeekCloser) Close() error {
	if s.r == nil {
		return nil
	}
	err := s.r.Close()
	s.r = nil

	return err
}

// splitGSPath splits gs://bucket/path/to/object into its bucket and object.
func splitGSPath(path string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] == "" {
		return "", "", fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return pathParts[0], pathParts[1], nil
}

// OpenSeeker opens path for reading. Paths starting with gs:// are read from
// Google Storage when client is non-nil; everything else is a local file. The
// returned size is the length of the object in bytes. A missing file or
// object is a NotFound error.
func OpenSeeker(path string, client *storage.Client) (ReadSeekCloser, int64, error) {
	if client != nil && strings.HasPrefix(path, "gs://") {
		bucketName, pathName, err := splitGSPath(path)
		if err != nil {
			return nil, 0, Wrap(InvalidArgument, pfx.Err(err))
		}

		wrappedHandle := &GSReadSeekCloser{
			ObjectHandle: client.Bucket(bucketName).Object(pathName),
			Context:      context.Background(),
		}

		// Make a hard call to get the filesize
		attrs, err := wrappedHandle.ObjectHandle.Attrs(wrappedHandle.Context)
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, 0, Errorf(NotFound, "could not open %s: %w", path, err)
		} else if err != nil {
			return nil, 0, Wrap(Internal, pfx.Err(fmt.Errorf("%s: %s", path, err)))
		}
		wrappedHandle.size = attrs.Size

		return wrappedHandle, attrs.Size, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, Errorf(NotFound, "could not open %s: %w", path, err)
	} else if err != nil {
		return nil, 0, Wrap(Internal, pfx.Err(err))
	}
	fstat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, Wrap(Internal, pfx.Err(err))
	}
	if fstat.IsDir() {
		f.Close()
		return nil, 0, Errorf(InvalidArgument, "%s is a directory", path)
	}

	return f, fstat.Size(), nil
}
