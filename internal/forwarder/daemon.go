// Daemon forwarding lines from files and stdin to a fluent collector
package forwarder

import (
	"context"
	"fluentsend/internal/global"
	"fluentsend/internal/ingest"
	"fluentsend/internal/logctx"
	"fluentsend/pkg/fluent"
	"fmt"
	"os"
	"time"
)

// Create new forwarding daemon instance
func NewDaemon(cfg Config) (daemon *Daemon) {
	ctx, cancel := context.WithCancel(context.Background())
	daemon = &Daemon{
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
		Input:      os.Stdin,
		inputsDone: make(chan struct{}),
	}
	return
}

// Starts sender, sources and metric gatherer in background. Shuts down again on startup errors.
func (daemon *Daemon) Start(globalCtx context.Context) (err error) {
	// New context for the daemon
	daemon.ctx, daemon.cancel = context.WithCancel(context.Background())
	daemon.ctx = logctx.WithLogger(daemon.ctx, logctx.GetLogger(globalCtx))
	daemon.ctx = logctx.AppendCtxTag(daemon.ctx, global.NSFwd)

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Starting...\n")

	daemon.cfg.setDefaults()
	err = daemon.cfg.validate()
	if err != nil {
		err = fmt.Errorf("invalid configuration: %w", err)
		return
	}

	// Stage 2 - process-wide sender (sources emit through it)
	daemon.Sender = fluent.SetupWithContext(daemon.ctx, daemon.cfg.Tag, daemon.cfg.Sender)

	// Stage 1 - sources
	daemon.inputCtx, daemon.inputCancel = context.WithCancel(daemon.ctx)
	var collectors []Collector

	for _, input := range daemon.cfg.FileSources {
		var source *ingest.FileSource
		source, err = ingest.NewFile([]string{global.NSFwd, global.NSmIngest}, input.Path, daemon.cfg.StateFilePath, input.Label, daemon.Sender)
		if err != nil {
			err = fmt.Errorf("failed adding file input '%s': %w", input.Path, err)
			daemon.Shutdown()
			return
		}
		daemon.fileSources = append(daemon.fileSources, source)
		collectors = append(collectors, source)
	}
	if daemon.cfg.StdinEnabled {
		daemon.stream = ingest.NewStream([]string{global.NSFwd, global.NSmIngest}, daemon.Input, daemon.cfg.StdinLabel, daemon.Sender)
		collectors = append(collectors, daemon.stream)
	}

	// Metrics
	daemon.gatherer = NewGatherer(daemon.Sender, collectors,
		daemon.cfg.MetricCollectionInterval,
		daemon.cfg.MetricMaxAge,
		daemon.cfg.MetricTextfilePath)
	workerCtx := daemon.ctx
	daemon.wg.Add(1)
	go func() {
		defer daemon.wg.Done()
		daemon.gatherer.Run(workerCtx)
	}()

	// Start reading last so nothing is lost to a half built pipeline
	inputCtx := daemon.inputCtx
	for _, source := range daemon.fileSources {
		daemon.inputWG.Add(1)
		go func(source *ingest.FileSource) {
			defer daemon.inputWG.Done()
			source.Run(inputCtx)
		}(source)
	}
	if daemon.stream != nil {
		daemon.inputWG.Add(1)
		go func() {
			defer daemon.inputWG.Done()
			daemon.stream.Run(inputCtx)
		}()
	}
	go func() {
		daemon.inputWG.Wait()
		close(daemon.inputsDone)
	}()

	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "Startup complete.\n")
	return
}

// Blocks until shutdown starts or every input has finished (stdin closed, no files)
func (daemon *Daemon) Run() {
	select {
	case <-daemon.ctx.Done():
	case <-daemon.inputsDone:
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog, "All inputs finished\n")
	}
}

// Metrics registry of the running daemon, nil before Start
func (daemon *Daemon) Gatherer() (gatherer *Gatherer) {
	gatherer = daemon.gatherer
	return
}

// Gracefully stops sources, flushes the sender and stops the metric gatherer. Safe to call more than once.
func (daemon *Daemon) Shutdown() {
	daemon.stopOnce.Do(daemon.shutdown)
}

func (daemon *Daemon) shutdown() {
	logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
		"Daemon shutdown started...\n")

	// Stop sources first so they save their positions
	if daemon.inputCancel != nil {
		daemon.inputCancel()

		done := make(chan struct{})
		go func() {
			daemon.inputWG.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(global.ForwardShutdownTimeout):
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"inputs did not stop within %v\n", global.ForwardShutdownTimeout)
		}
	}
	for _, source := range daemon.fileSources {
		err := source.Shutdown()
		if err != nil {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"file input shutdown failed: %v\n", err)
		}
	}

	// Last metrics snapshot before the sender goes away
	if daemon.gatherer != nil {
		daemon.gatherer.Collect(daemon.ctx, time.Now())
	}

	// Final flush of anything still pending
	if daemon.Sender != nil {
		err := fluent.Shutdown()
		if err != nil {
			logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
				"sender shutdown: %v\n", err)
		}
	}

	// Stop the run loop and background workers
	daemon.cancel()

	done := make(chan struct{})
	go func() {
		daemon.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.InfoLog,
			"Daemon shutdown completed successfully\n")
	case <-time.After(global.ForwardShutdownTimeout):
		logctx.LogEvent(daemon.ctx, global.VerbosityStandard, global.WarnLog,
			"Timeout: forward daemon did not shutdown within %v seconds\n",
			global.ForwardShutdownTimeout.Seconds())
	}
}
