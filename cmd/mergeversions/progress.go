package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"mergeversions/internal/logging"
	"mergeversions/internal/versions"
)

// newProgressSink renders batch progress as a bar on terminals and as sampled
// log lines elsewhere. The returned finish func must be called once the batch
// returns.
func newProgressSink(w io.Writer, logger *slog.Logger, label string) (versions.ProgressFunc, func()) {
	if isTerminal(w) {
		bar := progressbar.NewOptions(100,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(label),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowElapsedTimeOnFinish(),
		)
		sink := func(percent float64) { _ = bar.Set(int(percent)) }
		return sink, func() {
			_ = bar.Finish()
			fmt.Fprintln(w)
		}
	}

	sampler := logging.NewProgressSampler(10)
	sink := func(percent float64) {
		if !sampler.ShouldLog(percent) {
			return
		}
		logger.Info("batch progress",
			logging.String("batch", label),
			logging.Float64("percent", math.Round(percent*10)/10),
		)
	}
	return sink, func() {}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
