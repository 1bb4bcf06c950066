// Command geostream re-encodes GeoJSON documents and renders vector tiles.
//
// Usage:
//
//	geostream geojson [flags]   re-encode a GeoJSON document
//	geostream tile -tile z/x/y  encode one vector tile
//	geostream tiles -zoom 0-12  encode every tile covering the input into MBTiles
//
// All commands read GeoJSON from -in (default stdin) and accept a YAML
// profile with -profile; flags override profile values.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	orbjson "github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"

	"github.com/arloliu/geostream/config"
)

var errUsage = errors.New("usage")

func init() {
	orbjson.CustomJSONMarshaler = jsoniter.ConfigCompatibleWithStandardLibrary
	orbjson.CustomJSONUnmarshaler = jsoniter.ConfigCompatibleWithStandardLibrary
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "geostream:", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return errUsage
	}

	switch args[0] {
	case "geojson":
		return runGeoJSON(args[1:], stdin, stdout, stderr)
	case "tile":
		return runTile(args[1:], stdin, stdout, stderr)
	case "tiles":
		return runTiles(args[1:], stdin, stderr)
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return nil
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: geostream <command> [flags]

commands:
  geojson   re-encode a GeoJSON document
  tile      encode one vector tile
  tiles     encode every tile covering the input into an MBTiles file

run "geostream <command> -h" for the flags of a command
`)
}

// common holds the flags shared by all commands.
type common struct {
	profile    string
	in         string
	collection string
	logLevel   string
	logFormat  string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.profile, "profile", "", "YAML profile file")
	fs.StringVar(&c.in, "in", "-", "GeoJSON input file, - for stdin")
	fs.StringVar(&c.collection, "collection", "", "collection id used in log entries")
	fs.StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&c.logFormat, "log-format", "", "log format (text, json)")
}

// load reads the profile, applies the flag overrides and builds the logger.
func (c *common) load(stderr io.Writer) (*config.Profile, *logrus.Logger, error) {
	p := &config.Profile{}
	if c.profile != "" {
		var err error
		if p, err = config.Load(c.profile); err != nil {
			return nil, nil, err
		}
	}

	if c.collection != "" {
		p.Collection = c.collection
	}
	if c.logLevel != "" {
		p.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		p.Log.Format = c.logFormat
	}

	logger, err := p.Log.NewLogger(stderr)
	if err != nil {
		return nil, nil, err
	}

	return p, logger, nil
}

func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(stdin), nil
	}

	return os.Open(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func openOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{stdout}, nil
	}

	return os.Create(path)
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	return fs
}
