// ngscat prints the records of a SAM, BAM, BED or FASTQ file as a TSV, or
// the parsed header of an alignment file as a table.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/ngsio"
	"github.com/carbocation/ngsio/bed"
	"github.com/carbocation/ngsio/config"
	"github.com/carbocation/ngsio/fastq"
	"github.com/carbocation/ngsio/reads"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"

	_ "github.com/carbocation/ngsio/compileinfoprint"
)

const (
	// Delim is the character used to delimit the output
	Delim = '\t'
)

var (
	STDOUT = bufio.NewWriterSize(os.Stdout, 4096*8)
)

func main() {
	defer STDOUT.Flush()

	var (
		filename   string
		format     string
		regionText string
		configPath string
		header     bool
		limit      int
		chunkSize  int
	)

	conf := config.JSONConfig{}
	conf.Reads.IndexMode = reads.IndexIfPresent
	conf.BED.Compression = ngsio.CompressionAuto
	conf.FASTQ.Compression = ngsio.CompressionAuto

	flag.StringVar(&filename, "file", "", "Path (local or gs://) to a SAM, BAM, BED or FASTQ file. Defaults to the first input of -config.")
	flag.StringVar(&format, "format", "", "One of sam, bam, bed, fastq. If empty, determined from the file extension.")
	flag.StringVar(&regionText, "region", "", "Optional. For indexed BAM files, only print reads overlapping this region, e.g. chr1:10,000-20,000 (1-based, inclusive).")
	flag.StringVar(&configPath, "config", "", "Optional. JSON file with reader options. Flags that are set override it.")
	flag.BoolVar(&header, "header", false, "Print the parsed header instead of the records.")
	flag.IntVar(&limit, "limit", 0, "Optional. Stop after this many records.")
	flag.IntVar(&chunkSize, "chunks", 0, "Optional. For SAM/BAM, print -region values that split the contigs (or -region) into chunks of this many bases, instead of the records.")
	flag.Func("index-mode", "Alignment index: none, if-present (default), or required.", func(s string) error {
		return conf.Reads.IndexMode.UnmarshalText([]byte(s))
	})
	flag.Func("compression", "BED/FASTQ compression: none, gzip, or auto (default).", func(s string) error {
		if err := conf.BED.Compression.UnmarshalText([]byte(s)); err != nil {
			return err
		}
		conf.FASTQ.Compression = conf.BED.Compression
		return nil
	})
	flag.IntVar(&conf.BED.NumFields, "num-fields", 0, "BED fields to decode. 0 decodes every field.")
	flag.Float64Var(&conf.Reads.DownsampleFraction, "downsample", 0, "Keep about this fraction of reads. 0 keeps all.")
	flag.Uint64Var(&conf.Reads.RandomSeed, "seed", 0, "Seed for -downsample.")
	flag.IntVar(&conf.Reads.MinMappingQuality, "min-mapq", 0, "Skip aligned reads below this mapping quality.")
	flag.BoolVar(&conf.Reads.ExcludeUnmapped, "exclude-unmapped", false, "Skip unmapped reads.")
	flag.BoolVar(&conf.Reads.ExcludeDuplicates, "exclude-duplicates", false, "Skip reads flagged as duplicates.")
	flag.Parse()

	if configPath != "" {
		fileConf, err := config.ParseJSONConfigFromPath(configPath)
		if err != nil {
			log.Fatalln(err)
		}
		conf = overrideWithFlags(fileConf, conf)
		if filename == "" && len(conf.Inputs) > 0 {
			filename = conf.Inputs[0]
		}
	}

	if filename == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	if format == "" {
		format = formatFromExtension(filename)
	}

	// Initialize the Google Storage client only if we're pointing to Google
	// Storage paths.
	if strings.HasPrefix(filename, "gs://") {
		client, err := storage.NewClient(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
		conf.Reads.Storage = client
		conf.BED.Storage = client
		conf.FASTQ.Storage = client
	}

	var err error
	switch format {
	case "sam", "bam":
		if chunkSize > 0 {
			err = printChunks(filename, conf.Reads, regionText, chunkSize)
		} else {
			err = catReads(filename, conf.Reads, regionText, header, limit)
		}
	case "bed":
		err = catBED(filename, conf.BED, header, limit)
	case "fastq":
		err = catFASTQ(filename, conf.FASTQ, limit)
	default:
		err = fmt.Errorf("could not determine the format of %s; pass -format", filename)
	}
	if err != nil {
		STDOUT.Flush()
		log.Fatalln(err)
	}
}

// overrideWithFlags copies the flags the user actually set from flagConf
// onto the options loaded from the config file.
func overrideWithFlags(fileConf, flagConf config.JSONConfig) config.JSONConfig {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "index-mode":
			fileConf.Reads.IndexMode = flagConf.Reads.IndexMode
		case "compression":
			fileConf.BED.Compression = flagConf.BED.Compression
			fileConf.FASTQ.Compression = flagConf.FASTQ.Compression
		case "num-fields":
			fileConf.BED.NumFields = flagConf.BED.NumFields
		case "downsample":
			fileConf.Reads.DownsampleFraction = flagConf.Reads.DownsampleFraction
		case "seed":
			fileConf.Reads.RandomSeed = flagConf.Reads.RandomSeed
		case "min-mapq":
			fileConf.Reads.MinMappingQuality = flagConf.Reads.MinMappingQuality
		case "exclude-unmapped":
			fileConf.Reads.ExcludeUnmapped = flagConf.Reads.ExcludeUnmapped
		case "exclude-duplicates":
			fileConf.Reads.ExcludeDuplicates = flagConf.Reads.ExcludeDuplicates
		}
	})

	return fileConf
}

func formatFromExtension(filename string) string {
	name := strings.ToLower(filename)
	for _, suffix := range []string{".gz", ".bgz", ".bz2", ".xz", ".zip"} {
		name = strings.TrimSuffix(name, suffix)
	}

	switch filepath.Ext(name) {
	case ".bam":
		return "bam"
	case ".sam":
		return "sam"
	case ".bed":
		return "bed"
	case ".fastq", ".fq":
		return "fastq"
	}

	return ""
}

func catReads(filename string, options reads.Options, regionText string, header bool, limit int) error {
	if regionText != "" && options.IndexMode == reads.IndexNone {
		return fmt.Errorf("-region requires an index; -index-mode is none")
	}

	r, err := reads.Open(filename, options)
	if err != nil {
		return err
	}
	defer r.Close()

	if header {
		return printReadsHeader(r.Header())
	}

	var it *ngsio.Iterable[reads.Read]
	if regionText == "" {
		it, err = r.IterateAll()
	} else {
		it, err = queryRegion(r, regionText)
	}
	if err != nil {
		return err
	}

	return writeTSV(STDOUT, it, newReadRow, limit)
}

// queryRegion parses a samtools-style region; a region without an end runs to
// the end of its contig.
func queryRegion(r *reads.Reader, regionText string) (*ngsio.Iterable[reads.Read], error) {
	region, err := ngsio.ParseRegion(regionText)
	if err != nil {
		return nil, err
	}

	start, end := region.Bounds()
	if end == 0 {
		contig, exists := r.Header().Contig(region.Chrom())
		if !exists {
			return nil, ngsio.Errorf(ngsio.InvalidArgument, "unknown reference %q", region.Chrom())
		}
		end = contig.Length
	}
	log.Printf("Querying %s\n", ngsio.NewRegion(region.Chrom(), start, end))

	return r.QueryRegion(region.Chrom(), start, end)
}

// printChunks prints samtools-style regions, one per line, that can be passed
// back to -region by parallel workers.
func printChunks(filename string, options reads.Options, regionText string, chunkSize int) error {
	options.IndexMode = reads.IndexNone
	r, err := reads.Open(filename, options)
	if err != nil {
		return err
	}
	defer r.Close()

	chrom, start, end := "", 0, 0
	if regionText != "" {
		region, err := ngsio.ParseRegion(regionText)
		if err != nil {
			return err
		}
		chrom = region.Chrom()
		start, end = region.Bounds()
	}

	chunks, err := ngsio.ChunkRegions(r.Header().Regions(), chunkSize, chrom, start, end)
	if err != nil {
		return err
	}
	log.Printf("Split %s into %d chunks\n", filename, len(chunks))

	for _, chunk := range chunks {
		start, end := chunk.Bounds()
		fmt.Fprintf(STDOUT, "%s:%d-%d\n", chunk.Chrom(), start+1, end)
	}

	return nil
}

func catBED(filename string, options bed.Options, header bool, limit int) error {
	r, err := bed.Open(filename, options)
	if err != nil {
		return err
	}
	defer r.Close()

	if header {
		table := tablewriter.NewWriter(STDOUT)
		table.SetHeader([]string{"File", "Fields"})
		table.Append([]string{filename, strconv.Itoa(r.Header().NumFields)})
		table.Render()
		return nil
	}

	it, err := r.IterateAll()
	if err != nil {
		return err
	}

	return writeTSV(STDOUT, it, newBEDRow, limit)
}

func catFASTQ(filename string, options fastq.Options, limit int) error {
	r, err := fastq.Open(filename, options)
	if err != nil {
		return err
	}
	defer r.Close()

	it, err := r.IterateAll()
	if err != nil {
		return err
	}

	return writeTSV(STDOUT, it, newFASTQRow, limit)
}

func printReadsHeader(h reads.Header) error {
	log.Printf("SAM version %q, sort order %s, group order %s\n", h.Version, h.SortOrder, h.GroupOrder)

	table := tablewriter.NewWriter(STDOUT)
	table.SetHeader([]string{"Index", "Contig", "Length"})
	for _, contig := range h.Contigs {
		table.Append([]string{strconv.Itoa(contig.Index), contig.Name, strconv.Itoa(contig.Length)})
	}
	table.Render()

	if len(h.ReadGroups) > 0 {
		table = tablewriter.NewWriter(STDOUT)
		table.SetHeader([]string{"Read group", "Sample", "Library", "Platform"})
		for _, rg := range h.ReadGroups {
			table.Append([]string{rg.Name, rg.Sample, rg.Library, rg.Platform})
		}
		table.Render()
	}

	if len(h.Programs) > 0 {
		table = tablewriter.NewWriter(STDOUT)
		table.SetHeader([]string{"Program", "Name", "Version", "Command line"})
		for _, pg := range h.Programs {
			table.Append([]string{pg.ID, pg.Name, pg.Version, pg.CommandLine})
		}
		table.Render()
	}

	for _, comment := range h.Comments {
		fmt.Fprintln(STDOUT, "#", comment)
	}

	return nil
}

// writeTSV streams the records of it, converted by toRow, through gocsv. The
// column names come from the row type's csv tags. Nothing is written for an
// empty sequence.
func writeTSV[T any, Row any](out io.Writer, it *ngsio.Iterable[T], toRow func(T) Row, limit int) error {
	// gocsv refuses a channel that closes before yielding a row, so the first
	// record is pulled before it starts.
	first, ok, err := it.Next()
	if err != nil {
		return err
	} else if !ok {
		return nil
	}

	w := csv.NewWriter(out)
	w.Comma = Delim

	rows := make(chan interface{})
	done := make(chan struct{})
	finished := make(chan struct{})
	var iterErr error
	go func() {
		defer close(finished)
		defer close(rows)

		rec := first
		for sent := 1; ; sent++ {
			select {
			case rows <- toRow(rec):
			case <-done:
				// gocsv stopped early
				return
			}

			if limit > 0 && sent >= limit {
				return
			}

			var ok bool
			rec, ok, iterErr = it.Next()
			if iterErr != nil || !ok {
				return
			}
		}
	}()

	err = gocsv.MarshalChan(rows, gocsv.NewSafeCSVWriter(w))
	close(done)
	<-finished
	w.Flush()

	if err != nil {
		return pfx.Err(err)
	} else if iterErr != nil {
		return iterErr
	}

	if err := w.Error(); err != nil {
		return pfx.Err(err)
	}

	return nil
}
