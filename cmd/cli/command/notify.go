package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"imis/internal/config"
	"imis/internal/microservices/notify"
	"imis/internal/server"

	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Raise notification intents",
	Long: `Raise a notification intent the way other imis services do.

  publish  pushes the intent onto the Redis channel the server subscribes to
  send     posts it to POST /internal/notify (token needs scope notify:publish)`,
}

var notifyPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish an intent on the Redis notify channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		wire, err := intentFromFlags(cmd)
		if err != nil {
			return err
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		rdb, err := server.NewRedisClient(cfg)
		if err != nil {
			return err
		}
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		if err := notify.NewIntentPublisher(rdb, cfg.NotifyChannel).Publish(ctx, *wire); err != nil {
			return err
		}
		fmt.Printf("✓ Published %s to %s for %d recipient(s)\n", wire.Action, cfg.NotifyChannel, len(wire.Recipients))
		return nil
	},
}

var notifySendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send an intent through the internal HTTP trigger",
	RunE: func(cmd *cobra.Command, args []string) error {
		wire, err := intentFromFlags(cmd)
		if err != nil {
			return err
		}

		c, err := apiClient()
		if err != nil {
			return err
		}
		if err := c.SendIntent(wire); err != nil {
			return err
		}
		fmt.Printf("✓ Queued %s for %d recipient(s)\n", wire.Action, len(wire.Recipients))
		return nil
	},
}

// intentFromFlags builds and validates the wire intent described by the shared flags
func intentFromFlags(cmd *cobra.Command) (*notify.WireIntent, error) {
	f := cmd.Flags()
	action, _ := f.GetString("action")
	to, _ := f.GetStringSlice("to")
	if len(to) == 0 {
		return nil, errors.New("at least one --to recipient is required")
	}

	w := &notify.WireIntent{Action: action}
	for _, id := range to {
		w.Recipients = append(w.Recipients, notify.WireRecipient{ID: id})
	}

	w.Item.ID, _ = f.GetString("item")
	w.Item.ProjectID, _ = f.GetString("project")
	w.Item.TaskID, _ = f.GetString("task")
	w.Item.RoomID, _ = f.GetString("room")
	w.Item.Title, _ = f.GetString("title")
	w.Item.ProjectName, _ = f.GetString("project-name")
	w.Extra.Type, _ = f.GetString("type")
	w.Extra.Role, _ = f.GetString("role")
	w.Extra.Permission, _ = f.GetString("permission")
	w.Extra.Priority, _ = f.GetString("priority")
	w.Extra.Status, _ = f.GetString("status")
	w.Extra.Comment, _ = f.GetString("comment")
	w.Extra.ActorID, _ = f.GetString("actor")
	w.Extra.ActorName, _ = f.GetString("actor-name")

	if start, _ := f.GetString("start"); start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return nil, fmt.Errorf("invalid --start, expected RFC3339: %w", err)
		}
		w.Item.Start = t
	}

	// Validate locally so typos fail before reaching the server
	if _, err := w.Intent(); err != nil {
		return nil, err
	}
	return w, nil
}

func addIntentFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("action", "", "grant, revoke, changeUserAccess, priorityChange, statusChange, ownershipChange, managerChange, assignTask, unassignTask, comment, newMeeting")
	f.StringSlice("to", nil, "recipient principal id (repeatable)")
	f.String("item", "", "subject item id")
	f.String("project", "", "project id")
	f.String("task", "", "task id")
	f.String("room", "", "chat room id")
	f.String("title", "", "item title")
	f.String("project-name", "", "project name")
	f.String("type", "", "item type: projects or tasks")
	f.String("role", "", "role for access changes")
	f.String("permission", "", "permission for access changes")
	f.String("priority", "", "new priority")
	f.String("status", "", "new status")
	f.String("comment", "", "comment body")
	f.String("actor", "", "principal id of the user who acted")
	f.String("actor-name", "", "display name of the user who acted")
	f.String("start", "", "meeting start (RFC3339)")
	cmd.MarkFlagRequired("action")
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyPublishCmd)
	notifyCmd.AddCommand(notifySendCmd)

	addIntentFlags(notifyPublishCmd)
	addIntentFlags(notifySendCmd)
}
