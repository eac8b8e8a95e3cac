package cmd

import (
	"github.com/spf13/cobra"

	"EchoFM/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the EchoFM HTTP server",
	Long:  `Start the EchoFM HTTP server, serving the API, audio delivery and the player websocket.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
