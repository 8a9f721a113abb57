// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"visualizer/internal/color"
	"visualizer/internal/config"
	"visualizer/internal/control"
	"visualizer/internal/dsp"
	"visualizer/internal/frame"
	applog "visualizer/internal/log"
	"visualizer/internal/preset"
	"visualizer/internal/settings"
	"visualizer/internal/transport"
	"visualizer/internal/transport/udp"
	"visualizer/internal/tui"

	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 2 * time.Second
	controlPath     = "/control"
	framesPath      = "/frames"
)

// errStopped ends the pipeline without reporting a failure.
var errStopped = errors.New("pipeline stopped")

// pipeline owns everything between the sample source and the LEDs.
type pipeline struct {
	settings  *settings.Settings
	extractor *dsp.Extractor
	order     color.Order
	out       transport.Transport
	scheduler *frame.Scheduler

	muxes   map[string]*http.ServeMux
	servers []*http.Server
	closers []io.Closer
}

func newPipeline(cfg *config.Config, sampleRate float64) (p *pipeline, err error) {
	params, err := cfg.Params()
	if err != nil {
		return nil, fmt.Errorf("visual settings: %w", err)
	}
	s, err := settings.New(params)
	if err != nil {
		return nil, err
	}
	window, err := dsp.ParseWindowFunc(cfg.Audio.FFTWindow)
	if err != nil {
		return nil, err
	}
	extractor, err := dsp.NewExtractor(s, sampleRate, dsp.FFTFactory(window))
	if err != nil {
		return nil, err
	}
	order, err := cfg.ColorOrder()
	if err != nil {
		return nil, err
	}

	p = &pipeline{
		settings:  s,
		extractor: extractor,
		order:     order,
		muxes:     make(map[string]*http.ServeMux),
	}
	defer func() {
		if err != nil {
			p.close()
		}
	}()

	out, err := openTransport(&cfg.Transport, order)
	if err != nil {
		return nil, err
	}
	p.out = out

	if cfg.Transport.MirrorWebSocket {
		ws := transport.NewWebSocketTransport()
		p.handle(cfg.Transport.WebSocketAddress, framesPath, ws)
		p.out = transport.Fanout{out, ws}
	}

	if cfg.Control.Enabled {
		store, err := preset.NewFileStore(cfg.Presets.Dir)
		if err != nil {
			return nil, err
		}
		svc, err := control.NewService(s, store)
		if err != nil {
			return nil, err
		}
		h := control.NewHandler(svc)
		p.closers = append(p.closers, h)
		p.handle(cfg.Control.Address, controlPath, h)
	}

	p.scheduler, err = frame.NewScheduler(s, extractor, p.out, frame.NewEncoder(order))
	if err != nil {
		return nil, err
	}
	return p, nil
}

func openTransport(cfg *config.TransportConfig, order color.Order) (transport.Transport, error) {
	switch cfg.Kind {
	case config.TransportSerial:
		t, err := transport.OpenSerial(cfg.SerialPort, cfg.BaudRate)
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.TransportUDP:
		t, err := udp.Dial(cfg.UDPTargetAddress, cfg.UDPRaw)
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.TransportOPC:
		t, err := transport.DialOPC(cfg.OPCAddress, cfg.OPCChannel, order)
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.TransportLog:
		return transport.NewLoggingTransport(), nil
	}
	return nil, fmt.Errorf("unknown transport kind '%s'", cfg.Kind)
}

// handle mounts h on the server for addr, sharing one listener per address.
func (p *pipeline) handle(addr, path string, h http.Handler) {
	mux, ok := p.muxes[addr]
	if !ok {
		mux = http.NewServeMux()
		p.muxes[addr] = mux
		p.servers = append(p.servers, &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}
	mux.Handle(path, h)
	applog.Infof("Server: Serving %s on %s", path, addr)
}

// run drives the pipeline until ctx is done, the source returns, the
// preview is closed or any part fails. Resources are released on return.
func (p *pipeline) run(ctx context.Context, source func(context.Context) error, preview bool) error {
	defer p.close()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return p.scheduler.Run(ctx) })
	g.Go(func() error { return source(ctx) })

	for _, srv := range p.servers {
		g.Go(func() error {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range p.servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				applog.Warnf("Server: Shutdown of %s: %v", srv.Addr, err)
			}
		}
		return nil
	})

	if preview {
		g.Go(func() error {
			if err := tui.RunPreview(ctx, p.settings, p.order); err != nil {
				return err
			}
			return errStopped
		})
	}

	err := g.Wait()
	if errors.Is(err, errStopped) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *pipeline) close() {
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			applog.Warnf("Pipeline: Close error: %v", err)
		}
	}
	p.closers = nil
	if p.out != nil {
		if err := p.out.Close(); err != nil {
			applog.Warnf("Pipeline: Transport close error: %v", err)
		}
		p.out = nil
	}
}
