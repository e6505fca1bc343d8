package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newVersionCmd(jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]string{
				"version":  Version,
				"commit":   Commit,
				"date":     Date,
				"platform": runtime.GOOS + "/" + runtime.GOARCH,
			}
			if *jsonOutput {
				return print(true, info, "")
			}
			fmt.Printf("dapboot %s\ncommit: %s\nbuilt at: %s\n", Version, Commit, Date)
			return nil
		},
	}
}
