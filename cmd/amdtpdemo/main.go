// Command amdtpdemo drives a minimal loopback AMDTP session: a transmit
// stream fed from the operator's microphone and a receive stream played
// back out their speakers, bridged by an in-process loopback transport
// instead of a real FireWire bus. It exists to exercise the engine's
// domain dependencies end to end (portaudio, the stream core, the rate
// engine, the CIP codec), not as a product — spec §1 scopes device
// enumeration and control surfaces out entirely.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/pflag"

	"github.com/amdtp/engine/config"
	"github.com/amdtp/engine/internal/cip"
	"github.com/amdtp/engine/internal/enginelog"
	"github.com/amdtp/engine/internal/packetbuf"
	"github.com/amdtp/engine/internal/sfc"
	"github.com/amdtp/engine/internal/stream"
)

var log = enginelog.Base.With("component", "amdtpdemo")

func main() {
	cfgPath := pflag.StringP("config", "f", "", "Path to a YAML config file.")
	rateFlag := pflag.Uint32P("rate", "r", 48000, "Sample rate (one of the fixed supported rates).")
	durationFlag := pflag.DurationP("duration", "d", 10*time.Second, "How long to run before stopping.")
	help := pflag.BoolP("help", "h", false, "Display help text.")
	pflag.Usage = func() {
		os.Stderr.WriteString("Usage: amdtpdemo [flags]\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		return
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	cfg.BindFlags(pflag.CommandLine)

	code, ok := sfc.FromRate(*rateFlag)
	if !ok {
		log.Fatalf("unsupported rate %d", *rateFlag)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := portaudio.Initialize(); err != nil {
		log.Fatalf("portaudio init: %v", err)
	}
	defer portaudio.Terminate()

	txRing := newFrameRing(cfg.PCMChannels)
	rxRing := newFrameRing(cfg.PCMChannels)

	pair := &loopbackPair{ch: make(chan loopMsg, packetbuf.QueueLength)}
	txTransport := &loopTxTransport{pair: pair}
	rxTransport := &loopRxTransport{pair: pair}

	tx := stream.New()
	rx := stream.New()

	layoutCfg := stream.Config{
		Direction:     stream.Transmit,
		Mode:          stream.NonBlocking,
		SFC:           code,
		PCMChannels:   cfg.PCMChannels,
		MIDIPorts:     0,
		PCMPositions:  stream.IdentityPCMPositions(cfg.PCMChannels),
		MIDIPosition:  -1,
		Format:        cip.FormatS32,
		BlocksForMIDI: 0,
	}
	rxCfg := layoutCfg
	rxCfg.Direction = stream.Receive

	if err := tx.SetParameters(layoutCfg); err != nil {
		log.Fatalf("tx set_parameters: %v", err)
	}
	if err := rx.SetParameters(rxCfg); err != nil {
		log.Fatalf("rx set_parameters: %v", err)
	}

	if err := tx.Start(txTransport, 0); err != nil {
		log.Fatalf("tx start: %v", err)
	}
	if err := rx.Start(rxTransport, 0); err != nil {
		log.Fatalf("rx start: %v", err)
	}
	defer tx.Stop()
	defer rx.Stop()

	mic := &micSource{ring: txRing}
	speaker := &speakerSink{ring: rxRing}
	tx.PCMTrigger(mic)
	rx.PCMTrigger(speaker)

	go pumpLoopback(ctx, pair, rx)
	go pumpTransmit(ctx, tx, code)

	paStream, err := openAudio(cfg.PCMChannels, float64(code.Rate()), txRing, rxRing)
	if err != nil {
		log.Fatalf("open audio: %v", err)
	}
	if err := paStream.Start(); err != nil {
		log.Fatalf("start audio: %v", err)
	}
	defer paStream.Stop()
	defer paStream.Close()

	log.Infof("running at %v for %s (ctrl-C to stop early)", code, *durationFlag)

	select {
	case <-ctx.Done():
	case <-time.After(*durationFlag):
	}
	log.Infof("stopping")
}

func openAudio(channels int, rate float64, in, out *frameRing) (*portaudio.Stream, error) {
	callback := func(inBuf, outBuf []float32) {
		frame := make([]int32, channels)
		for i := 0; i < len(inBuf); i += channels {
			for c := 0; c < channels && i+c < len(inBuf); c++ {
				frame[c] = int32(inBuf[i+c] * (1 << 31))
			}
			in.push(frame)
		}
		for i := 0; i < len(outBuf); i += channels {
			if !out.pop(frame) {
				for c := range frame {
					frame[c] = 0
				}
			}
			for c := 0; c < channels && i+c < len(outBuf); c++ {
				outBuf[i+c] = float32(frame[c]) / (1 << 31)
			}
		}
	}
	return portaudio.OpenDefaultStream(channels, channels, rate, 0, callback)
}

// pumpTransmit stands in for the isochronous controller's transmit
// callback, which in a real deployment fires on bus interrupts; spec §1
// treats that dispatch as an external collaborator.
func pumpTransmit(ctx context.Context, tx *stream.Stream, code sfc.Code) {
	cycle := uint32(0)
	ticker := time.NewTicker(time.Second / time.Duration(code.Rate()/uint32(code.SytInterval())))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tx.TransmitCycle(cycle, 1)
			cycle++
		}
	}
}

func pumpLoopback(ctx context.Context, pair *loopbackPair, rx *stream.Stream) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-pair.ch:
			if pair.txBuf == nil || pair.rxBuf == nil {
				continue
			}
			srcSlot := pair.txBuf.Slot(msg.idx)
			dstSlot := pair.rxBuf.Slot(msg.idx)
			n := msg.payloadLen
			if n > len(dstSlot.Buffer) {
				n = len(dstSlot.Buffer)
			}
			copy(dstSlot.Buffer[:n], srcSlot.Buffer[:n])
			rx.ReceiveCycle([]stream.RxSlotHeader{{SlotIndex: msg.idx, PayloadLen: n}})
		}
	}
}
