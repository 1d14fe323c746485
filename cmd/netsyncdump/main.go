// Command netsyncdump is a demo tool exercising both the master and
// slave netsync flows over a real UDP/RTP-MIDI session: it can advertise
// itself via Bonjour, print every netsync event it receives, and
// optionally send one itself on a timer. It generalizes the teacher's
// examples/dump-received tool, which was receive-only.
package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/Aser-Osama/rtp-midi-netsync/event"
	"github.com/Aser-Osama/rtp-midi-netsync/session"
)

func main() {
	var (
		name      = pflag.StringP("name", "n", "netsyncdump", "Bonjour service name for this session.")
		port      = pflag.Uint16P("port", "p", 7005, "UDP port to listen on.")
		advertise = pflag.Bool("advertise", true, "Register an _apple-midi._udp Bonjour service.")
		send      = pflag.String("send", "", "Periodically send one event: mtc-quarter|mtc-full|mmc-stop|mmc-play|mmc-locate.")
		interval  = pflag.Duration("interval", time.Second, "Interval between --send events.")
		help      = pflag.BoolP("help", "h", false, "Display help text.")
	)
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{Prefix: "netsyncdump"})

	if *advertise {
		server, err := session.Advertise(*name, int(*port))
		if err != nil {
			logger.Fatal("advertise failed", "err", err)
		}
		defer server.Shutdown()
	}

	s, err := session.Start(*name, *port)
	if err != nil {
		logger.Fatal("session start failed", "err", err)
	}
	defer s.End()

	s.Handle(func(ev event.Event, from net.Addr, _ *session.Session) {
		logger.Info("received", "kind", ev.Kind, "from", from.String())
	})

	if ev, ok := parseSendEvent(*send); ok {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		go func() {
			for range ticker.C {
				if err := s.SendEvent(ev); err != nil {
					logger.Warn("send failed", "err", err)
				}
			}
		}()
	} else if *send != "" {
		logger.Fatal("unrecognized --send value", "value", *send)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
}

func parseSendEvent(kind string) (event.Event, bool) {
	switch kind {
	case "mtc-quarter":
		return event.MTCQuarter(0, 0), true
	case "mtc-full":
		return event.MTCFull(0, 0, 0, 0), true
	case "mmc-stop":
		return event.MMCStop(), true
	case "mmc-play":
		return event.MMCPlay(), true
	case "mmc-locate":
		return event.MMCLocate(0, 0, 0, 0), true
	default:
		return event.Event{}, false
	}
}
