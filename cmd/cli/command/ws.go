package command

import (
	"imis/cmd/cli/command/client"

	"github.com/spf13/cobra"
)

var wsCmd = &cobra.Command{
	Use:   "ws",
	Short: "Websocket tools",
}

var wsListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Connect as a user and print every event received",
	Long: `Connect to /ws as the given principal, join the page room of each
--project, and print events until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		projects, _ := cmd.Flags().GetStringSlice("project")
		return client.Listen(apiURL, id, projects)
	},
}

func init() {
	rootCmd.AddCommand(wsCmd)
	wsCmd.AddCommand(wsListenCmd)

	wsListenCmd.Flags().String("id", "", "principal id (GUID) to connect as")
	wsListenCmd.Flags().StringSlice("project", nil, "project id whose page room to join (repeatable)")
	wsListenCmd.MarkFlagRequired("id")
}
