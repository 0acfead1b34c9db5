// Command mlengine is the safety model process. It reads one JSON request
// from stdin, writes one JSON response to stdout and exits non-zero on
// failure. Samples and weights live in ML_DATA_DIR (default: the working
// directory).
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/saferoute/saferoute/internal/ml/engine"
)

func main() {
	dir := os.Getenv("ML_DATA_DIR")
	if dir == "" {
		dir = "."
	}
	os.Exit(run(os.Stdin, os.Stdout, dir))
}

func run(stdin io.Reader, stdout io.Writer, dir string) int {
	input, err := io.ReadAll(stdin)
	if err != nil {
		return fail(stdout, fmt.Errorf("reading stdin: %w", err))
	}
	if len(input) == 0 {
		return 0
	}

	var req engine.Request
	if err := json.Unmarshal(input, &req); err != nil {
		return fail(stdout, fmt.Errorf("decoding request: %w", err))
	}

	resp, err := engine.New(dir).Handle(req)
	if err != nil {
		return fail(stdout, err)
	}

	if err := json.NewEncoder(stdout).Encode(resp); err != nil {
		return 1
	}
	return 0
}

func fail(stdout io.Writer, err error) int {
	_ = json.NewEncoder(stdout).Encode(engine.Response{Error: err.Error()})
	return 1
}
