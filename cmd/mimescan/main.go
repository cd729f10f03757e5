// Command mimescan drives the MIME processor over standard input and
// prints the classified output, one record per line: header lines are
// tagged with their section, body lines with BODY. The final anomaly
// verdict goes to standard error. Useful for debugging message structure
// by eye.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/welldanyogia/mime-sentry/internal/mime"
	"github.com/welldanyogia/mime-sentry/internal/record"
)

type printer struct {
	out io.Writer
}

func (p *printer) HeaderOutput(class mime.HeaderClass, info *mime.HeaderInfo, line []byte) {
	tag := "ERROR"
	switch class {
	case mime.HeaderPrimary:
		tag = "MAIN"
	case mime.HeaderMultipart:
		tag = "MULT"
	case mime.HeaderNested:
		tag = "NEST"
	}
	fmt.Fprintf(p.out, "%s\t%s\n", tag, line)
}

func (p *printer) HeaderEnd() {
	fmt.Fprintln(p.out, "HEADER END")
}

func (p *printer) BodyOutput(kind mime.RecordKind, line []byte) {
	fmt.Fprintf(p.out, "BODY\t%s", line)
	if kind == mime.TextComplete {
		fmt.Fprintln(p.out)
	}
}

func (p *printer) BodyEnd() {
	fmt.Fprintln(p.out, "BODY END")
}

func main() {
	var (
		downgrade   = flag.Bool("downgrade", false, "convert 8-bit leaf bodies to quoted-printable")
		disableMime = flag.Bool("disable-mime", false, "do not interpret Content-* headers")
		recurseAll  = flag.Bool("recurse-all-message", false, "recurse into any message/* entity")
		headerLimit = flag.Int("header-limit", mime.DefaultLimits().HeaderLimit, "logical header byte limit")
		maxDepth    = flag.Int("max-depth", mime.DefaultLimits().MaxDepth, "multipart nesting limit")
		boundaryLen = flag.Int("max-boundary-len", mime.DefaultLimits().MaxBoundaryLen, "stored boundary length limit")
		lineLength  = flag.Int("line-length", record.DefaultLineLength, "physical record length")
	)
	flag.Parse()

	opts := mime.OptReportTruncHeader | mime.OptReport8BitInHeader |
		mime.OptReport8BitIn7BitBody | mime.OptReportEncodingDomain
	if *downgrade {
		opts |= mime.OptDowngrade
	}
	if *disableMime {
		opts |= mime.OptDisableMime
	}
	if *recurseAll {
		opts |= mime.OptRecurseAllMessage
	}
	limits := mime.Limits{
		HeaderLimit:    *headerLimit,
		MaxDepth:       *maxDepth,
		MaxBoundaryLen: *boundaryLen,
	}

	state := mime.New(opts, limits, &printer{out: os.Stdout})
	reader := record.NewReader(os.Stdin, *lineLength)

	var flags mime.ErrorFlags
	for {
		kind, line, err := reader.Next()
		if err != nil {
			log.Fatalf("read: %v", err)
		}
		flags = state.Update(kind, line)
		if kind == mime.NonText {
			break
		}
	}

	if flags != 0 {
		fmt.Fprintln(os.Stderr, mime.ErrorText(flags))
		os.Exit(1)
	}
}
