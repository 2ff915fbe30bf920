package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mxprobe/mxprobe/internal/config"
	"github.com/mxprobe/mxprobe/internal/feed"
	"github.com/mxprobe/mxprobe/internal/logging"
	"github.com/mxprobe/mxprobe/internal/protocol"
)

func runFeed(args []string) {
	fs := flag.NewFlagSet("feed", flag.ExitOnError)
	configPath := fs.String("config", "", "TOML config file (default: mxprobe.toml when present)")
	envPath := fs.String("env", "", ".env file (default: ./.env when present)")
	group := fs.String("group", "", "multicast group address")
	fport := fs.Int("fport", 0, "feed port")
	iface := fs.String("iface", "", "interface to join on")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Parse(args)

	cfg, err := config.Load(*configPath, *envPath)
	if err != nil {
		fatal(err)
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "group":
			cfg.Feed.Group = *group
		case "fport":
			cfg.Feed.Port = *fport
		case "iface":
			cfg.Feed.Interface = *iface
		case "v":
			cfg.Verbose = *verbose
		}
	})

	log, err := logging.New(cfg.Verbose)
	if err != nil {
		fatal(err)
	}
	defer log.Sync()

	l, err := feed.Listen(&feed.Options{
		Group:     cfg.Feed.Group,
		Port:      cfg.Feed.Port,
		Interface: cfg.Feed.Interface,
		Logger:    log,
	})
	if err != nil {
		fatal(err)
	}

	l.OnTick(func(resp protocol.Response) {
		fmt.Println(resp)
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		l.Close()
	}()

	ifname := cfg.Feed.Interface
	if ifname == "" {
		ifname = "any"
	}
	fmt.Printf("watching %s:%d on interface %s, Ctrl-C to stop\n", cfg.Feed.Group, cfg.Feed.Port, ifname)

	if err := l.Run(); err != nil {
		fatal(err)
	}

	st := l.Stats()
	fmt.Printf("%d packets: %d ticks, %d ignored, %d undecodable\n",
		st.Packets, st.Ticks, st.Ignored, st.Errors)
}
