// Command gptbench benchmarks small local language models on instruction
// following, tool calling and planned multi-step tool use.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
