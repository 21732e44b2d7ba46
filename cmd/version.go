package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via
// -ldflags "-X github.com/sirhCC/Smart-Dependency-Analyzer-sub000/cmd.Version=...".
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the sda version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	}
}
