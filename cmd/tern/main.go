package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/seekerror/logw"

	"github.com/ternchess/tern/pkg/engine"
	"github.com/ternchess/tern/pkg/engine/uci"
)

var (
	hash  = flag.Int("hash", 16, "Transposition table size in MB")
	depth = flag.Int("depth", 0, "Default search depth limit (zero for none)")
)

func init() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `usage: tern [options]

tern is a UCI chess engine.
Options:
`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	ctx := context.Background()

	e := engine.New(ctx, "tern", "ternchess", engine.WithOptions(engine.Options{
		Hash:  *hash,
		Depth: *depth,
	}))

	in := engine.ReadStdinLines(ctx)
	switch <-in {
	case uci.ProtocolName:
		driver, out := uci.NewDriver(ctx, e, in)
		go engine.WriteStdoutLines(ctx, out)

		<-driver.Closed()

	default:
		flag.Usage()
		logw.Exitf(ctx, "Protocol not supported")
	}
}
