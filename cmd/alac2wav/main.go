// alac2wav is a tool which converts ALAC (.m4a) files to WAV files.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-audio/wav"
	"github.com/mewkiz/pkg/osutil"
	"github.com/mewkiz/pkg/pathutil"
	"github.com/pkg/errors"

	"github.com/go-alac/alac"
)

// flagForce specifies if file overwriting should be forced, when a WAV file
// of the same name already exists.
var flagForce bool

func init() {
	flag.BoolVar(&flagForce, "f", false, "force overwrite")
}

func main() {
	flag.Parse()
	for _, path := range flag.Args() {
		if err := alac2wav(path); err != nil {
			log.Fatalf("%+v", err)
		}
	}
}

// alac2wav converts the ALAC file at path to a WAV file alongside it.
func alac2wav(path string) error {
	dec, err := alac.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %q", path)
	}
	defer dec.Close()

	wavPath := pathutil.TrimExt(path) + ".wav"
	if !flagForce && osutil.Exists(wavPath) {
		return errors.Errorf("the file %q exists already; use -f to force overwrite", wavPath)
	}

	fw, err := os.Create(wavPath)
	if err != nil {
		return errors.Wrapf(err, "creating %q", wavPath)
	}
	defer fw.Close()

	enc := wav.NewEncoder(
		fw,
		int(dec.SampleRate()),
		int(dec.BitsPerSample()),
		int(dec.Channels()),
		1, // WAVE_FORMAT_PCM
	)
	defer enc.Close()

	for {
		buf, err := dec.ReadFrame()
		if err != nil {
			if err == io.EOF {
				break
			}
			return errors.Wrapf(err, "decoding %q", path)
		}
		if err := enc.Write(buf); err != nil {
			return errors.Wrapf(err, "writing %q", wavPath)
		}
	}

	fmt.Printf("wrote %q\n", wavPath)
	return nil
}
