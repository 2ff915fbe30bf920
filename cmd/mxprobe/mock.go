package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mxprobe/mxprobe/internal/enginetest"
	"github.com/mxprobe/mxprobe/internal/logging"
	"github.com/mxprobe/mxprobe/internal/protocol"
)

func runMock(args []string) {
	fs := flag.NewFlagSet("mock", flag.ExitOnError)
	port := fs.Int("port", 9999, "port to listen on, TCP and UDP (0 picks one)")
	encoding := fs.String("encoding", "binary", "response encoding: binary or text")
	tob := fs.Bool("tob", false, "emit top-of-book updates after book changes")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Parse(args)

	enc, err := protocol.ParseEncoding(*encoding)
	if err != nil {
		fatal(err)
	}
	if enc == protocol.EncodingUndetermined {
		enc = protocol.EncodingBinary
	}

	log, err := logging.New(*verbose)
	if err != nil {
		fatal(err)
	}
	defer log.Sync()

	e, err := enginetest.Start(&enginetest.Options{
		Port:          *port,
		Encoding:      enc,
		EmitTopOfBook: *tob,
		Logger:        log,
	})
	if err != nil {
		fatal(err)
	}

	fmt.Printf("stub engine on %s:%d (tcp and udp), responding in %s; Ctrl-C to stop\n",
		e.Host(), e.Port(), enc)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	e.Close()
	fmt.Println("stopped")
}
