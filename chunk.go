package ngsio

// ChunkRegions splits each of contigs into consecutive regions of at most
// chunkSize bases, e.g. to fan region queries out over workers. If chrom is
// set, only that contig is split, and nonzero start and end limit the chunks
// to that span of it.
func ChunkRegions(contigs []Region, chunkSize int, chrom string, start, end int) ([]Region, error) {
	if chunkSize < 1 {
		return nil, Errorf(InvalidArgument, "chunk size %d must be positive", chunkSize)
	}
	if chrom == "" && (start != 0 || end != 0) {
		return nil, Errorf(InvalidArgument, "a start or end requires a chromosome")
	}

	output := make([]Region, 0)
	found := false

	for _, contig := range contigs {
		if chrom != "" && contig.Chrom() != chrom {
			continue
		}
		found = true

		from, chrEnd := contig.Bounds()
		to := chrEnd
		if chrom != "" {
			if start > from {
				from = start
			}
			if end != 0 && end < to {
				to = end
			}
		}

		for location := from; location < to; location += chunkSize {
			endPoint := location + chunkSize
			if endPoint > to {
				endPoint = to
			}

			output = append(output, NewRegion(contig.Chrom(), location, endPoint))
		}
	}

	if chrom != "" && !found {
		return nil, Errorf(InvalidArgument, "unknown reference %q", chrom)
	}

	return output, nil
}
