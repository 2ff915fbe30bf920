package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mxprobe/mxprobe/internal/logging"
	"github.com/mxprobe/mxprobe/internal/protocol"
	"github.com/mxprobe/mxprobe/internal/scenario"
	"github.com/mxprobe/mxprobe/internal/session"
)

func runRepl(args []string) {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	cf := registerConnFlags(fs)
	fs.Parse(args)

	cfg, err := cf.resolve(fs)
	if err != nil {
		fatal(err)
	}

	log, err := logging.New(cfg.Verbose)
	if err != nil {
		fatal(err)
	}
	defer log.Sync()

	opts, err := cfg.SessionOptions()
	if err != nil {
		fatal(err)
	}
	opts.Logger = log

	sess := session.New(opts)
	sess.OnResponse(func(resp protocol.Response) {
		fmt.Printf("< %s\n", resp)
	})
	if err := sess.Connect(); err != nil {
		fatal(err)
	}
	defer sess.Disconnect()

	fmt.Printf("Connected to %s:%d over %s speaking %s. Type help for commands.\n",
		cfg.Host, cfg.Port, sess.TransportMode(), sess.Encoding())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("mxprobe> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if replCommand(sess, cfg.DrainTimeout(), fields) {
			return
		}
	}
}

// replCommand executes one prompt line and reports whether to quit.
func replCommand(sess *session.Session, drain time.Duration, fields []string) bool {
	switch fields[0] {
	case "quit", "exit", "q":
		return true

	case "help":
		printReplHelp()

	case "order":
		if len(fields) < 5 || len(fields) > 6 {
			fmt.Println("Usage: order <side> <symbol> <price> <qty> [id]")
			break
		}
		side, err := scenario.ParseSide(fields[1])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			break
		}
		price, perr := parseU32(fields[3])
		qty, qerr := parseU32(fields[4])
		var id uint32
		var ierr error
		if len(fields) == 6 {
			id, ierr = parseU32(fields[5])
		}
		if perr != nil || qerr != nil || ierr != nil {
			fmt.Println("Error: price, qty and id must be unsigned integers")
			break
		}
		sent, err := sess.SendOrder(fields[2], price, qty, side, id)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			break
		}
		fmt.Printf("> sent order %d\n", sent)

	case "cancel":
		if len(fields) != 2 {
			fmt.Println("Usage: cancel <id>")
			break
		}
		id, err := parseU32(fields[1])
		if err != nil {
			fmt.Println("Error: id must be an unsigned integer")
			break
		}
		if err := sess.SendCancel(id); err != nil {
			fmt.Printf("Error: %v\n", err)
			break
		}
		fmt.Printf("> sent cancel %d\n", id)

	case "flush":
		if err := sess.SendFlush(); err != nil {
			fmt.Printf("Error: %v\n", err)
			break
		}
		fmt.Println("> sent flush")

	case "poll":
		fmt.Printf("%d response(s)\n", sess.Poll())

	case "recv":
		d := drain
		if len(fields) > 1 {
			ms, err := parseU32(fields[1])
			if err != nil {
				fmt.Println("Usage: recv [ms]")
				break
			}
			d = time.Duration(ms) * time.Millisecond
		}
		resp, err := sess.Recv(d)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
		} else if resp == nil {
			fmt.Println("no response")
		}

	case "drain":
		fmt.Printf("%d response(s)\n", sess.RecvAll(drain))

	case "stats":
		st := sess.Stats()
		fmt.Printf("sent %d  received %d  decode errors %d\n", st.Sent, st.Received, st.DecodeErrors)
		if st.Latency.Count > 0 {
			fmt.Printf("latency min %v  avg %v  max %v  over %d samples\n",
				st.Latency.Min.Round(time.Microsecond),
				st.Latency.Avg().Round(time.Microsecond),
				st.Latency.Max.Round(time.Microsecond),
				st.Latency.Count)
		}

	case "encoding":
		fmt.Println(sess.Encoding())

	case "connect":
		if err := sess.Connect(); err != nil {
			fmt.Printf("Error: %v\n", err)
			break
		}
		fmt.Printf("reconnected over %s speaking %s\n", sess.TransportMode(), sess.Encoding())

	default:
		fmt.Printf("Unknown command: %s (try help)\n", fields[0])
	}
	return false
}

func printReplHelp() {
	fmt.Println(`Commands:
  order <side> <symbol> <price> <qty> [id]   Submit a limit order (id 0 auto-assigns)
  cancel <id>                                Cancel one of your orders
  flush                                      Ask the engine to clear all books
  poll                                       Drain buffered responses without waiting
  recv [ms]                                  Wait for one response
  drain                                      Wait repeatedly until the line goes quiet
  stats                                      Show session counters
  encoding                                   Show the latched wire encoding
  connect                                    Reconnect (redetects the encoding)
  quit                                       Leave`)
}

func parseU32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}
