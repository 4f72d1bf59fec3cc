// Package config loads reader options from a JSON file.
package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/carbocation/ngsio"
	"github.com/carbocation/ngsio/bed"
	"github.com/carbocation/ngsio/fastq"
	"github.com/carbocation/ngsio/reads"
	"github.com/carbocation/pfx"
)

// JSONConfig holds one options section per format. Sections that are absent
// from the file keep their zero value.
type JSONConfig struct {
	ConfigPath string `json:"-"`

	// Inputs are default paths for tools that accept a config in place of
	// file flags.
	Inputs []string `json:"inputs"`

	Reads reads.Options `json:"reads"`
	BED   bed.Options   `json:"bed"`
	FASTQ fastq.Options `json:"fastq"`
}

func ParseJSONConfigFromPath(path string) (JSONConfig, error) {
	out := JSONConfig{ConfigPath: expandHomeDir(path)}

	f, err := os.Open(out.ConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		return out, ngsio.Errorf(ngsio.NotFound, "config %s: %w", path, err)
	} else if err != nil {
		return out, pfx.Err(err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			log.Printf("syntax error at byte offset %d", syntaxErr.Offset)
		}

		return out, ngsio.Wrap(ngsio.InvalidArgument, pfx.Err(err))
	}

	// Interpret ~ if present
	for i, input := range out.Inputs {
		out.Inputs[i] = expandHomeDir(input)
	}

	return out, nil
}

// Via https://stackoverflow.com/a/17617721/199475
func expandHomeDir(path string) string {
	usr, err := user.Current()
	if err != nil {
		return path
	}

	if path == "~" {
		return usr.HomeDir
	} else if strings.HasPrefix(path, "~/") {
		// Don't match paths like "/something/~/something/"
		return filepath.Join(usr.HomeDir, path[2:])
	}

	return path
}
