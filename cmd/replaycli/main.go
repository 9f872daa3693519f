package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golf-lite/replay"
)

// replaycli turns a scripted round spec into a replay tape. Reads the spec
// from a file (or stdin with "-") and writes the tape JSON to stdout, so it
// chains naturally into jq or a fixture directory.
func main() {
	specPath := flag.String("spec", "-", "round spec JSON file, - for stdin")
	pretty := flag.Bool("pretty", false, "indent the tape output")
	flag.Parse()

	raw, err := readSpec(*specPath)
	if err != nil {
		fatal(err)
	}

	var spec replay.RoundSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		fatal(fmt.Errorf("parse spec: %w", err))
	}

	tape, err := replay.GenerateReplayTape(spec)
	if err != nil {
		var re *replay.ReplayError
		if errors.As(err, &re) {
			// Machine-readable rejection on stderr, non-zero exit.
			out, _ := json.MarshalIndent(re, "", "  ")
			fmt.Fprintln(os.Stderr, string(out))
			os.Exit(2)
		}
		fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(tape); err != nil {
		fatal(err)
	}
}

func readSpec(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "replaycli:", err)
	os.Exit(1)
}
