// mxprobe exercises an order-matching engine over its wire protocol:
// an interactive prompt, scripted conformance and load scenarios, a
// frame decoder, a multicast market-data watcher and a loopback stub
// engine for offline work.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mxprobe/mxprobe/internal/config"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "repl":
		runRepl(args)

	case "scenario":
		runScenario(args)

	case "decode":
		runDecode(args)

	case "feed":
		runFeed(args)

	case "mock":
		runMock(args)

	case "version", "-v", "--version":
		fmt.Printf("mxprobe %s\n", version)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("mxprobe %s - matching engine protocol exerciser\n\n", version)
	fmt.Println(`Usage: mxprobe <command> [flags]

Commands:
  repl                      Interactive order-entry prompt
  scenario <name>           Run a conformance or load scenario
  decode                    Decode captured protocol bytes
  feed                      Watch the multicast market-data feed
  mock                      Run a loopback stub engine
  version                   Show version information
  help                      Show this help message

Examples:
  mxprobe repl -host 127.0.0.1 -port 9999
  mxprobe scenario full-match
  mxprobe scenario -list
  mxprobe decode -hex "a5 10 49424d00 00000000 00000001 00000007"
  mxprobe feed -group 239.255.0.1 -fport 9998
  mxprobe mock -port 9999 -encoding text

Environment Variables:
  MXPROBE_HOST        Engine host (default: 127.0.0.1)
  MXPROBE_PORT        Engine port (default: 9999)
  MXPROBE_TRANSPORT   auto, tcp or udp (default: auto)
  MXPROBE_ENCODING    auto, binary or text (default: auto)
  MXPROBE_USER_ID     User id stamped on requests (default: 1)
  MXPROBE_VERBOSE     Set to 1 for debug logging

Flags are stronger than the environment, which is stronger than
mxprobe.toml. Run any command with -h for its flags.`)
}

// connFlags are the connection settings shared by the client commands.
type connFlags struct {
	configPath string
	envPath    string
	host       string
	port       int
	transport  string
	encoding   string
	user       uint
	verbose    bool
}

func registerConnFlags(fs *flag.FlagSet) *connFlags {
	cf := &connFlags{}
	fs.StringVar(&cf.configPath, "config", "", "TOML config file (default: mxprobe.toml when present)")
	fs.StringVar(&cf.envPath, "env", "", ".env file (default: ./.env when present)")
	fs.StringVar(&cf.host, "host", "", "engine host")
	fs.IntVar(&cf.port, "port", 0, "engine port")
	fs.StringVar(&cf.transport, "transport", "", "transport: auto, tcp or udp")
	fs.StringVar(&cf.encoding, "encoding", "", "encoding: auto, binary or text")
	fs.UintVar(&cf.user, "user", 0, "user id stamped on requests")
	fs.BoolVar(&cf.verbose, "v", false, "verbose logging")
	return cf
}

// resolve layers the parsed flags over the file and environment config.
// Only flags the user actually set override the lower layers.
func (cf *connFlags) resolve(fs *flag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(cf.configPath, cf.envPath)
	if err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = cf.host
		case "port":
			cfg.Port = cf.port
		case "transport":
			cfg.Transport = cf.transport
		case "encoding":
			cfg.Encoding = cf.encoding
		case "user":
			cfg.UserID = uint32(cf.user)
		case "v":
			cfg.Verbose = cf.verbose
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fatal(err error) {
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}
