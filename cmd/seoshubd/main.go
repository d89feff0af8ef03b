// Command seoshubd boots a sensor-hub event kernel over a simulated
// flash region and runs its dispatch loop until interrupted.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/contexthub/seoshub"
	"github.com/contexthub/seoshub/internal/flash"
	"github.com/contexthub/seoshub/internal/logging"
)

func main() {
	var (
		regionSize = flag.Int("region-size", 1<<20, "size in bytes of the simulated flash region")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	region := flash.NewSimRegion(*regionSize)

	cfg := seoshub.DefaultParams()
	cfg.FlashRegion = region.Region()
	cfg.Writer = region

	k, err := seoshub.Boot(cfg, &seoshub.Options{Logger: logger})
	if err != nil {
		logger.Error("failed to boot kernel", "error", err)
		os.Exit(1)
	}

	logger.Info("kernel booted", "region_size", *regionSize)

	go k.Run()

	stackDumpCh := make(chan os.Signal, 1)
	signal.Notify(stackDumpCh, syscall.SIGUSR1)
	go func() {
		for range stackDumpCh {
			buf := make([]byte, 1<<20)
			n := runtime.Stack(buf, true)
			fmt.Fprintf(os.Stderr, "\n=== GOROUTINE STACK DUMP ===\n%s\n", buf[:n])
			if f, err := os.Create(fmt.Sprintf("seoshubd-stacks-%d.txt", time.Now().Unix())); err == nil {
				fmt.Fprintf(f, "stack dump at %s\n\n", time.Now().Format(time.RFC3339))
				f.Write(buf[:n])
				fmt.Fprintf(f, "\n\n=== GOROUTINE PROFILE ===\n")
				pprof.Lookup("goroutine").WriteTo(f, 2)
				f.Close()
			}
		}
	}()

	fmt.Printf("seoshubd running, press Ctrl+C to stop\n")
	fmt.Printf("send SIGUSR1 (kill -USR1 %d) to dump goroutine stacks\n", os.Getpid())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("stopping kernel")
	k.Shutdown()

	snap := k.MetricsSnapshot()
	fmt.Printf("events dispatched: %d, dropped: %d, calibrations emitted: %d\n",
		snap.EventsDispatched, snap.EventsDropped, snap.CalibrationsEmitted)
}
