// avro - schema-driven avro codec CLI tool
//
// Usage:
//
//	avro schema [--pretty] [--canonical] [file]     Parse a schema and print it
//	avro fingerprint [file]                         Print a schema's fingerprint
//	avro to-json --schema S [file]                  Binary units to JSON, one per line
//	avro from-json --schema S [file]                JSON texts to binary units
//	avro stream pack --schema S [file]              JSON texts to an AVS1 container
//	avro stream dump [--header] [file]              AVS1 container to JSON, one per line
//	avro version                                    Print version info
//
// If no file is given, reads from stdin. Every command accepts --config and
// --verbose; see internal/config for the configuration file.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/Neumenon/avro/avro"
	"github.com/Neumenon/avro/internal/config"
	"github.com/Neumenon/avro/stream"
)

const libVersion = "0.1.0"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env carries the process streams so commands can run under test.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	e := &env{stdin: stdin, stdout: stdout, stderr: stderr}
	if len(args) == 0 {
		printUsage(stderr)
		return errors.New("missing command")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "schema":
		return cmdSchema(e, rest)
	case "fingerprint":
		return cmdFingerprint(e, rest)
	case "to-json":
		return cmdToJSON(e, rest)
	case "from-json":
		return cmdFromJSON(e, rest)
	case "stream":
		if len(rest) == 0 {
			return errors.New("avro stream: missing subcommand (pack, dump)")
		}
		switch rest[0] {
		case "pack":
			return cmdStreamPack(e, rest[1:])
		case "dump":
			return cmdStreamDump(e, rest[1:])
		default:
			return fmt.Errorf("avro stream: unknown subcommand: %s", rest[0])
		}
	case "version", "-v", "--version":
		fmt.Fprintf(stdout, "avro %s (container %s v%d)\n", libVersion, stream.Magic, stream.Version)
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `avro - schema-driven avro codec CLI tool

Usage:
  avro schema [--pretty] [--canonical] [file]   Parse a schema and print it
  avro fingerprint [file]                       Print a schema's fingerprint
  avro to-json --schema S [file]                Binary units to JSON, one per line
  avro from-json --schema S [file]              JSON texts to binary units
  avro stream pack --schema S [file]            JSON texts to an AVS1 container
  avro stream dump [--header] [file]            AVS1 container to JSON, one per line
  avro version                                  Print version info

Common options:
  --config PATH    Configuration file (default: $AVRO_CONFIG)
  --verbose        Log at debug level

If no file is given, reads from stdin.

Examples:
  avro schema --pretty user.avsc
  echo '{"name":"Thiago","favoriteNumber":31,"favoriteColor":"Blue"}' |
    avro from-json --schema user.avsc > user.bin
  avro to-json --schema user.avsc user.bin
  avro stream pack --schema user.avsc --meta origin=import users.json > users.avs
  avro stream dump --header users.avs
`)
}

// ============================================================
// Shared Flags
// ============================================================

type commonFlags struct {
	configPath string
	verbose    bool
	schemaPath string
}

func newFlagSet(name string, e *env, c *commonFlags, withSchema bool) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.StringVar(&c.configPath, "config", "", "configuration file (default: $"+config.EnvVar+")")
	fs.BoolVar(&c.verbose, "verbose", false, "log at debug level")
	if withSchema {
		fs.StringVar(&c.schemaPath, "schema", "", "schema file (default: schema from the configuration)")
	}
	return fs
}

// parse parses flags and loads configuration. A nil config with a nil
// error means help was printed.
func (c *commonFlags) parse(fs *pflag.FlagSet, args []string, e *env) (*config.Config, *slog.Logger, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	cfg, err := config.Resolve(c.configPath)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.SlogLevel()
	if c.verbose {
		level = slog.LevelDebug
	}
	return cfg, cfg.NewLogger(e.stderr, level), nil
}

func (c *commonFlags) loadSchema(cfg *config.Config, logger *slog.Logger) (*avro.Schema, error) {
	path := c.schemaPath
	if path == "" {
		path = cfg.Schema
	}
	if path == "" {
		return nil, errors.New("no schema: pass --schema or set schema in the configuration")
	}
	s, err := avro.ParseSchemaFile(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded schema", "path", path, "name", s.FullName(), "fingerprint", s.FingerprintHex())
	return s, nil
}

// readInput reads the single optional file argument, or stdin.
func readInput(e *env, args []string) ([]byte, error) {
	switch {
	case len(args) > 1:
		return nil, fmt.Errorf("unexpected argument: %s", args[1])
	case len(args) == 1 && args[0] != "-":
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(e.stdin)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// ============================================================
// Commands
// ============================================================

// cmdSchema: schema text -> normalized schema text
func cmdSchema(e *env, args []string) error {
	var c commonFlags
	var pretty, canonical bool
	fs := newFlagSet("avro schema", e, &c, false)
	fs.BoolVar(&pretty, "pretty", false, "indented output (default: pretty from the configuration)")
	fs.BoolVar(&canonical, "canonical", false, "compact output without documentation")
	cfg, _, err := c.parse(fs, args, e)
	if err != nil || cfg == nil {
		return err
	}
	if !fs.Changed("pretty") {
		pretty = cfg.Pretty
	}

	data, err := readInput(e, fs.Args())
	if err != nil {
		return err
	}
	s, err := avro.ParseSchema(string(data))
	if err != nil {
		return err
	}

	switch {
	case canonical:
		fmt.Fprintln(e.stdout, s.Canonical())
	case pretty:
		fmt.Fprintln(e.stdout, s.Pretty())
	default:
		fmt.Fprintln(e.stdout, s.String())
	}
	return nil
}

// cmdFingerprint: schema text -> 64-bit fingerprint in hex
func cmdFingerprint(e *env, args []string) error {
	var c commonFlags
	fs := newFlagSet("avro fingerprint", e, &c, false)
	cfg, _, err := c.parse(fs, args, e)
	if err != nil || cfg == nil {
		return err
	}
	data, err := readInput(e, fs.Args())
	if err != nil {
		return err
	}
	s, err := avro.ParseSchema(string(data))
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, s.FingerprintHex())
	return nil
}

// cmdToJSON: binary units -> JSON lines
func cmdToJSON(e *env, args []string) error {
	var c commonFlags
	fs := newFlagSet("avro to-json", e, &c, true)
	cfg, logger, err := c.parse(fs, args, e)
	if err != nil || cfg == nil {
		return err
	}
	s, err := c.loadSchema(cfg, logger)
	if err != nil {
		return err
	}
	data, err := readInput(e, fs.Args())
	if err != nil {
		return err
	}

	// Buffer everything so a corrupt unit produces no partial output.
	var out []byte
	dec := avro.NewDecoder(data, s)
	units := 0
	for dec.More() {
		start := dec.Offset()
		v, err := dec.Next()
		if err != nil {
			return fmt.Errorf("unit %d: %w", units, err)
		}
		if dec.Offset() == start {
			return fmt.Errorf("%w at offset %d", avro.ErrTrailingData, start)
		}
		if out, err = avro.AppendText(out, v, s); err != nil {
			return fmt.Errorf("unit %d: %w", units, err)
		}
		out = append(out, '\n')
		units++
	}
	logger.Debug("converted binary to JSON", "units", units, "bytes", len(data))

	_, err = e.stdout.Write(out)
	return err
}

// cmdFromJSON: JSON texts -> binary units
func cmdFromJSON(e *env, args []string) error {
	var c commonFlags
	fs := newFlagSet("avro from-json", e, &c, true)
	cfg, logger, err := c.parse(fs, args, e)
	if err != nil || cfg == nil {
		return err
	}
	s, err := c.loadSchema(cfg, logger)
	if err != nil {
		return err
	}
	data, err := readInput(e, fs.Args())
	if err != nil {
		return err
	}

	out, err := avro.TextToBinary(string(data), s)
	if err != nil {
		return err
	}
	logger.Debug("converted JSON to binary", "bytes", len(out))

	_, err = e.stdout.Write(out)
	return err
}

// cmdStreamPack: JSON texts -> AVS1 container
func cmdStreamPack(e *env, args []string) error {
	var c commonFlags
	var blockSize int
	var meta []string
	fs := newFlagSet("avro stream pack", e, &c, true)
	fs.IntVar(&blockSize, "block-size", 0, "block payload size in bytes (default: stream.block_size from the configuration)")
	fs.StringArrayVar(&meta, "meta", nil, "header metadata entry key=value (repeatable)")
	cfg, logger, err := c.parse(fs, args, e)
	if err != nil || cfg == nil {
		return err
	}
	s, err := c.loadSchema(cfg, logger)
	if err != nil {
		return err
	}
	if blockSize <= 0 {
		blockSize = cfg.Stream.BlockSize
	}

	opts := []stream.WriterOption{stream.WithBlockSize(blockSize)}
	for _, entry := range meta {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid --meta %q: want key=value", entry)
		}
		opts = append(opts, stream.WithMeta(key, value))
	}

	data, err := readInput(e, fs.Args())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := stream.NewWriter(&buf, s, opts...)
	dec := avro.NewTextDecoder(bytes.NewReader(data), s)
	for {
		v, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("unit %d: %w", w.Count(), err)
		}
		if err := w.Append(v); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	logger.Debug("packed container",
		"units", w.Count(),
		"bytes", buf.Len(),
		"fingerprint", s.FingerprintHex(),
		"sync", stream.FormatSync(w.Sync()),
	)

	_, err = e.stdout.Write(buf.Bytes())
	return err
}

// cmdStreamDump: AVS1 container -> JSON lines
func cmdStreamDump(e *env, args []string) error {
	var c commonFlags
	var header, verifyCRC bool
	fs := newFlagSet("avro stream dump", e, &c, false)
	fs.BoolVar(&header, "header", false, "print the schema and metadata instead of the units")
	fs.BoolVar(&verifyCRC, "verify-crc", true, "verify block checksums (default: stream.verify_crc from the configuration)")
	cfg, logger, err := c.parse(fs, args, e)
	if err != nil || cfg == nil {
		return err
	}
	if !fs.Changed("verify-crc") {
		verifyCRC = cfg.Stream.VerifyCRC
	}

	data, err := readInput(e, fs.Args())
	if err != nil {
		return err
	}
	r, err := stream.NewReader(bytes.NewReader(data), stream.WithCRCVerification(verifyCRC))
	if err != nil {
		return err
	}
	s := r.Schema()

	if header {
		fmt.Fprintln(e.stdout, s.Pretty())
		keys := make([]string, 0, len(r.Meta()))
		for k := range r.Meta() {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(e.stdout, "%s=%s\n", k, r.Meta()[k])
		}
		return nil
	}

	var out []byte
	units := 0
	for {
		v, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if out, err = avro.AppendText(out, v, s); err != nil {
			return err
		}
		out = append(out, '\n')
		units++
	}
	logger.Debug("dumped container", "units", units, "blocks", r.Blocks(), "fingerprint", s.FingerprintHex())

	_, err = e.stdout.Write(out)
	return err
}
