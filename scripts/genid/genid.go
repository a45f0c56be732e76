// Command genid is a setup hook that emits a random USER_NAME.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"mini-apivore/internal/hooks"
)

func main() {
	_, _ = io.Copy(io.Discard, os.Stdin)
	id := 100000 + rand.IntN(900000) // 6-digit
	_ = json.NewEncoder(os.Stdout).Encode(hooks.Output{
		Vars: map[string]string{"USER_NAME": fmt.Sprintf("qa-%d", id)},
	})
}
