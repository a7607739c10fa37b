// Command ovltool lists, extracts, and inspects the ARM9 overlays of a
// Nintendo DS ROM image.
//
// Usage:
//
//	ovltool [-codec blz|zstd] [-v] <command> [flags] <rom>
//
// Commands:
//
//	list                          print the overlay table
//	extract -id N -o FILE         write one overlay's decoded contents
//	extract-all [-o DIR] [...]    extract every overlay and report throughput
//	inspect -id N                 print integrity and decode details
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/pprof"
	"text/tabwriter"
	"time"

	"github.com/meigma/ovl/codec"
	"github.com/meigma/ovl/codec/zstd"
	"github.com/meigma/ovl/rom"
)

const (
	codecBLZ  = "blz"
	codecZstd = "zstd"
)

type config struct {
	codec   string
	verbose bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var cfg config
	fs := flag.NewFlagSet("ovltool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.codec, "codec", codecBLZ, "overlay codec: blz or zstd")
	fs.BoolVar(&cfg.verbose, "v", false, "log debug output to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: ovltool [flags] <list|extract|extract-all|inspect> [command flags] <rom>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}

	var err error
	switch cmd, rest := fs.Arg(0), fs.Args()[1:]; cmd {
	case "list":
		err = runList(cfg, rest, stdout, stderr)
	case "extract":
		err = runExtract(cfg, rest, stdout, stderr)
	case "extract-all":
		err = runExtractAll(cfg, rest, stdout, stderr)
	case "inspect":
		err = runInspect(cfg, rest, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "ovltool: unknown command %q\n", cmd)
		fs.Usage()
		return 2
	}

	var usage usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &usage):
		fmt.Fprintf(stderr, "ovltool: %v\n", err)
		return 2
	default:
		fmt.Fprintf(stderr, "ovltool: %v\n", err)
		return 1
	}
}

// usageError marks command-line mistakes.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

// open opens the ROM named by the single positional argument.
func open(cfg config, fs *flag.FlagSet, stderr io.Writer, opts ...rom.Option) (*rom.Session, error) {
	if fs.NArg() != 1 {
		return nil, usageError{fmt.Sprintf("%s: expected one ROM path, got %d arguments", fs.Name(), fs.NArg())}
	}
	c, err := newCodec(cfg.codec)
	if err != nil {
		return nil, err
	}
	opts = append(opts, rom.WithCodec(c), rom.WithLogger(newLogger(cfg, stderr)))
	return rom.Open(fs.Arg(0), opts...)
}

func newCodec(name string) (codec.Codec, error) {
	switch name {
	case codecBLZ:
		return codec.BLZ{}, nil
	case codecZstd:
		return zstd.New(), nil
	default:
		return nil, usageError{fmt.Sprintf("unknown codec %q", name)}
	}
}

func newLogger(cfg config, stderr io.Writer) *slog.Logger {
	if !cfg.verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func runList(cfg config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	s, err := open(cfg, fs, stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	h := s.Header()
	fmt.Fprintf(stdout, "title=%s code=%s overlays=%d\n", h.Title, h.GameCode, len(s.Entries()))

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILE\tOFFSET\tSTORED\tRAM ADDR\tRAM SIZE\tFLAG\tCOMPRESSED")
	for _, e := range s.Entries() {
		g := e.Geometry()
		fmt.Fprintf(w, "%d\t%d\t%#08x\t%d\t%#08x\t%d\t%s\t%d\n",
			g.OverlayID, g.FileID, g.Offset, g.OriginalSize, g.RAMAddress, g.RAMSize, g.CompressFlag, g.CompressedSize)
	}
	return w.Flush()
}

func runExtract(cfg config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	id := fs.Uint("id", 0, "overlay id")
	out := fs.String("o", "", "output file (required)")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	if *out == "" {
		return usageError{"extract: -o is required"}
	}
	s, err := open(cfg, fs, stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	e, ok := s.Entry(uint32(*id)) //nolint:gosec // overlay ids are 32-bit
	if !ok {
		return fmt.Errorf("%w: %d", rom.ErrUnknownOverlay, *id)
	}
	data, err := e.Contents()
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil { //nolint:gosec // extracted overlays are not secret
		return err
	}
	fmt.Fprintf(stdout, "overlay=%d bytes=%d decompressed=%t -> %s\n", e.OverlayID(), len(data), e.WasDecompressed(), *out)
	return nil
}

func runExtractAll(cfg config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("extract-all", flag.ContinueOnError)
	fs.SetOutput(stderr)
	outDir := fs.String("o", "", "write each overlay to this directory")
	workers := fs.Int("workers", 4, "parallel extractions")
	writeMode := fs.Bool("write-mode", false, "stage overlays to files instead of memory")
	stageDir := fs.String("stage-dir", "", "staging directory (write mode only)")
	cpuProfile := fs.String("cpuprofile", "", "write CPU profile to file")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	opts := []rom.Option{rom.WithExtractConcurrency(*workers), rom.WithWriteMode(*writeMode)}
	if *stageDir != "" {
		opts = append(opts, rom.WithStagingDir(*stageDir))
	}
	s, err := open(cfg, fs, stderr, opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	start := time.Now()
	if err := s.ExtractAll(context.Background()); err != nil {
		return err
	}
	elapsed := time.Since(start)

	var total int64
	decoded := 0
	for _, e := range s.Entries() {
		total += int64(e.Size())
		if e.WasDecompressed() {
			decoded++
		}
	}
	fmt.Fprintf(stdout, "overlays=%d decompressed=%d bytes=%d elapsed=%s throughput=%.2f MB/s\n",
		len(s.Entries()), decoded, total, elapsed, float64(total)/(1024*1024)/elapsed.Seconds())

	if *outDir == "" {
		return nil
	}
	if err := os.MkdirAll(*outDir, 0o750); err != nil {
		return err
	}
	for _, e := range s.Entries() {
		data, err := e.Contents()
		if err != nil {
			return err
		}
		name := filepath.Join(*outDir, fmt.Sprintf("overlay_%04d.bin", e.OverlayID()))
		if err := os.WriteFile(name, data, 0o644); err != nil { //nolint:gosec // extracted overlays are not secret
			return err
		}
	}
	return nil
}

func runInspect(cfg config, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	id := fs.Uint("id", 0, "overlay id")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	s, err := open(cfg, fs, stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	e, ok := s.Entry(uint32(*id)) //nolint:gosec // overlay ids are 32-bit
	if !ok {
		return fmt.Errorf("%w: %d", rom.ErrUnknownOverlay, *id)
	}
	dgst, err := e.ContentDigest()
	if err != nil {
		return err
	}

	g := e.Geometry()
	w := tabwriter.NewWriter(stdout, 0, 0, 1, ' ', 0)
	fmt.Fprintf(w, "overlay:\t%d\n", g.OverlayID)
	fmt.Fprintf(w, "file:\t%d\n", g.FileID)
	fmt.Fprintf(w, "flag:\t%s (%s)\n", g.CompressFlag, codec.InterpretFlag(g.CompressFlag))
	fmt.Fprintf(w, "stored:\t%d bytes at %#x\n", g.OriginalSize, g.Offset)
	fmt.Fprintf(w, "size:\t%d\n", e.Size())
	fmt.Fprintf(w, "ram:\t%#08x + %d (bss %d)\n", g.RAMAddress, g.RAMSize, g.BSSSize)
	fmt.Fprintf(w, "decompressed:\t%t\n", e.WasDecompressed())
	fmt.Fprintf(w, "crc32:\t%08x\n", e.OriginalCRC32())
	fmt.Fprintf(w, "stored digest:\t%s\n", e.OriginalDigest())
	fmt.Fprintf(w, "content digest:\t%s\n", dgst)
	return w.Flush()
}
