package bed

import (
	"strings"

	"github.com/csimplestring/go-csv/detector"
)

// likelyDelimiter returns the single most likely rune delimiting the values
// of line, assuming a CSV-like file. It returns 0 if nothing stands out.
func likelyDelimiter(line string) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(strings.NewReader(line+"\n"), '"')

	if len(delimiters) > 0 && delimiters[0] != "" {
		return rune(delimiters[0][0])
	}

	return 0
}
