// hallucinate reads a batch of parsed references as JSON from a file (or
// stdin) and writes validation results as JSON to stdout.
//
// $ hallucinate -refs refs.json -admin localhost:8910 > results.json
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/segmentio/encoding/json"

	"github.com/weinshel/hallucinator"
	"github.com/weinshel/hallucinator/config"
	"github.com/weinshel/hallucinator/internal/adminserver"
)

var (
	refsPath  = flag.String("refs", "-", "path to a JSON array of references, or - for stdin")
	adminAddr = flag.String("admin", "", "address to serve the admin HTTP surface on, overriding ADMIN_ADDR")
	quiet     = flag.Bool("quiet", false, "suppress per-reference progress lines on stderr")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if *adminAddr != "" {
		cfg.AdminAddr = *adminAddr
	}

	refs, err := readReferences(*refsPath)
	if err != nil {
		log.Fatal(err)
	}

	v, err := hallucinator.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer v.Close()

	if cfg.AdminAddr != "" {
		srv := adminserver.New(cfg.AdminAddr, v)
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				log.Printf("admin server: %v", err)
			}
		}()
	}

	progress := hallucinator.ProgressFunc(func(ev hallucinator.ProgressEvent) {
		if *quiet {
			return
		}
		logProgress(ev)
	})

	cancel := hallucinator.NewCancelSignal()
	results := v.CheckReferences(refs, progress, cancel)

	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(results); err != nil {
		log.Fatal(err)
	}
}

func readReferences(path string) ([]hallucinator.Reference, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var refs []hallucinator.Reference
	if err := json.NewDecoder(r).Decode(&refs); err != nil {
		return nil, fmt.Errorf("decode references: %w", err)
	}
	for i := range refs {
		refs[i].Index = i
	}
	return refs, nil
}

func logProgress(ev hallucinator.ProgressEvent) {
	switch e := ev.(type) {
	case hallucinator.Checking:
		log.Printf("[%d/%d] checking %q", e.Index+1, e.Total, e.Title)
	case hallucinator.Warning:
		log.Printf("[%d] warning: %s (%v)", e.Index+1, e.Message, e.FailedDbs)
	case hallucinator.Result:
		log.Printf("[%d/%d] %s -> %s", e.Index+1, e.Total, e.Value.Status, e.Value.Source)
	case hallucinator.RetryPass:
		log.Printf("retry pass: %d references resubmitted", e.Count)
	}
}
