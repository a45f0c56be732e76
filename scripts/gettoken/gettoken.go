// Command gettoken is a setup hook: it reads the suite input on stdin and
// emits a bearer token as the TOKEN variable.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"mini-apivore/internal/hooks"
)

func main() {
	var in hooks.Input
	if err := json.NewDecoder(os.Stdin).Decode(&in); err != nil {
		fmt.Fprintf(os.Stderr, "decode: %v\n", err)
		os.Exit(1)
	}
	out := hooks.Output{Vars: map[string]string{}}
	if in.Vars["TOKEN"] == "" {
		out.Vars["TOKEN"] = fmt.Sprintf("token-%d", time.Now().Unix()) // fake
	}
	_ = json.NewEncoder(os.Stdout).Encode(out)
}
