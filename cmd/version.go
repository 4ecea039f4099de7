package cmd

import (
	"fmt"

	"grimm.is/palisade/internal/brand"
)

// RunVersion prints build information.
func RunVersion() {
	fmt.Printf("%s version %s\n", brand.Name, brand.Version)
	fmt.Printf("Build: %s\n", brand.BuildTime)
	fmt.Printf("Commit: %s\n", brand.GitCommit)
}
