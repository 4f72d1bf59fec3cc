package reads

import (
	"github.com/biogo/hts/sam"
	"github.com/carbocation/ngsio"
)

type ContigInfo struct {
	Name   string
	Length int
	// Index is the contig's position in the sequence dictionary.
	Index int
}

type ReadGroup struct {
	Name     string
	Sample   string
	Library  string
	Platform string
}

type Program struct {
	ID          string
	Name        string
	CommandLine string
	Version     string
}

// Header is the structured SAM header, decoded once when the file is opened.
type Header struct {
	Version    string
	SortOrder  string
	GroupOrder string
	Contigs    []ContigInfo
	ReadGroups []ReadGroup
	Programs   []Program
	Comments   []string
}

var (
	tagSample   = sam.NewTag("SM")
	tagLibrary  = sam.NewTag("LB")
	tagPlatform = sam.NewTag("PL")
)

func newHeader(h *sam.Header) Header {
	out := Header{
		Version:    h.Version,
		SortOrder:  h.SortOrder.String(),
		GroupOrder: h.GroupOrder.String(),
		Comments:   append([]string(nil), h.Comments...),
	}

	for i, ref := range h.Refs() {
		out.Contigs = append(out.Contigs, ContigInfo{
			Name:   ref.Name(),
			Length: ref.Len(),
			Index:  i,
		})
	}

	for _, rg := range h.RGs() {
		out.ReadGroups = append(out.ReadGroups, ReadGroup{
			Name:     rg.Name(),
			Sample:   rg.Get(tagSample),
			Library:  rg.Get(tagLibrary),
			Platform: rg.Get(tagPlatform),
		})
	}

	for _, pg := range h.Progs() {
		out.Programs = append(out.Programs, Program{
			ID:          pg.UID(),
			Name:        pg.Name(),
			CommandLine: pg.Command(),
			Version:     pg.Version(),
		})
	}

	return out
}

// clone copies every slice so callers cannot modify the reader's header.
func (h Header) clone() Header {
	out := h
	out.Contigs = append([]ContigInfo(nil), h.Contigs...)
	out.ReadGroups = append([]ReadGroup(nil), h.ReadGroups...)
	out.Programs = append([]Program(nil), h.Programs...)
	out.Comments = append([]string(nil), h.Comments...)

	return out
}

// Contig looks up a contig by name.
func (h Header) Contig(name string) (ContigInfo, bool) {
	for _, c := range h.Contigs {
		if c.Name == name {
			return c, true
		}
	}

	return ContigInfo{}, false
}

// Regions returns each contig as a whole-contig region, in dictionary order.
func (h Header) Regions() []ngsio.Region {
	out := make([]ngsio.Region, 0, len(h.Contigs))
	for _, c := range h.Contigs {
		out = append(out, ngsio.NewRegion(c.Name, 0, c.Length))
	}

	return out
}
