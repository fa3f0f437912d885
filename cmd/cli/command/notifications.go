package command

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"inbox"},
	Short:   "Manage the caller's notification inbox",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored notifications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		resp, err := c.ListNotifications()
		if err != nil {
			return err
		}

		if resp.Total == 0 {
			fmt.Println("No notifications.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Date", "Title", "Details", "Project", "Task"})
		table.SetAutoWrapText(true)
		table.SetColWidth(48)
		for _, n := range resp.Data {
			table.Append([]string{
				strconv.FormatInt(n.ID, 10),
				n.Date.Local().Format("2006-01-02 15:04"),
				n.Title,
				n.Details,
				n.ProjectID,
				n.TaskID,
			})
		}
		table.Render()
		fmt.Printf("%d notification(s)\n", resp.Total)
		return nil
	},
}

var notificationsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove yourself from one notification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid notification id %q", args[0])
		}
		c, err := apiClient()
		if err != nil {
			return err
		}
		if err := c.RemoveNotification(id); err != nil {
			return err
		}
		fmt.Printf("✓ Notification %d removed\n", id)
		return nil
	},
}

var notificationsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove yourself from every notification",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		removed, err := c.ClearNotifications()
		if err != nil {
			return err
		}
		fmt.Printf("✓ Cleared %d notification(s)\n", removed)
		return nil
	},
}

var presenceCmd = &cobra.Command{
	Use:   "presence",
	Short: "Show how many users are online and how many rooms are open",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		p, err := c.Presence()
		if err != nil {
			return err
		}
		fmt.Printf("Online users: %d\nOpen rooms:   %d\n", p.Online, p.Rooms)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(presenceCmd)
	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsRemoveCmd)
	notificationsCmd.AddCommand(notificationsClearCmd)
}
