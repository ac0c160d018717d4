package main

import (
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "gramlens"}

	root.AddCommand(serveCMD(), askCMD(), indexCMD(), migrateCMD(), tokenCMD())
	_ = root.Execute()
}
