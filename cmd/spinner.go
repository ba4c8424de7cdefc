package cmd

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
)

// progress shows a spinner on stderr while fn runs, only when stderr is a terminal
func progress(enabled bool, message string, fn func()) {
	fd := os.Stderr.Fd()
	if !enabled || (!isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)) {
		fn()
		return
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	s.Start()
	defer s.Stop()

	fn()
}
