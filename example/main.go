// This example resolves every specifier given on the command line from the
// current directory and prints each result along with any warnings.
//
//	go run ./example lodash-es ./src/index ./missing
package main

import (
	"fmt"
	"os"

	"github.com/modresolve/modresolve/pkg/api"
)

func main() {
	resolver, err := api.NewResolver(api.ResolveOptions{
		LogLevel:       api.LogLevelSilent,
		ConditionNames: []string{"import", "node"},
		Extensions:     []string{".ts", ".tsx", ".js", ".json"},
		Tsconfig:       os.Getenv("TSCONFIG"),
	})
	if err != nil {
		fmt.Println("[ERROR]", err.Error())
		os.Exit(1)
	}
	defer resolver.Close()

	for _, specifier := range os.Args[1:] {
		result := resolver.Resolve(".", specifier)
		if result.Failed() {
			fmt.Printf("[%s] %s\n", result.ErrorCode, result.ErrorText)
			for _, note := range result.Notes {
				fmt.Println("  ", note)
			}
			continue
		}
		fmt.Printf("%s => %s%s%s\n", specifier, result.Path, result.Query, result.Fragment)
	}

	for _, warn := range resolver.Messages() {
		fmt.Println("[WARN]", warn.Text)
	}
}
