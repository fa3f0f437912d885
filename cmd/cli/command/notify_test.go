package command

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	cliU1 = "6f1c2a9e-0b7d-4c1e-9a53-2d8f4e7b1a01"
	cliU2 = "6f1c2a9e-0b7d-4c1e-9a53-2d8f4e7b1a02"
	cliP1 = "0d4b7e21-5c3a-4f8e-b1d2-7a9c6e5f4301"
	cliT1 = "9a2e5c71-3f4b-4d6a-8e1c-5b7d2f9a6c01"
)

func intentCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addIntentFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestIntentFromFlags(t *testing.T) {
	cmd := intentCmd(t,
		"--action", "statusChange",
		"--to", cliU1, "--to", cliU2,
		"--item", cliT1, "--project", cliP1,
		"--title", "Pour footing", "--type", "tasks", "--status", "Completed",
	)

	w, err := intentFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, "statusChange", w.Action)
	require.Len(t, w.Recipients, 2)
	assert.Equal(t, cliU2, w.Recipients[1].ID)
	assert.Equal(t, cliP1, w.Item.ProjectID)
	assert.Equal(t, "Completed", w.Extra.Status)
}

func TestIntentFromFlags_SingularItemType(t *testing.T) {
	cmd := intentCmd(t, "--action", "statusChange", "--to", cliU1, "--item", cliT1, "--type", "Task")

	w, err := intentFromFlags(cmd)
	require.NoError(t, err)
	in, err := w.Intent()
	require.NoError(t, err)
	assert.Equal(t, cliT1, in.Subject.TaskID)
}

func TestIntentFromFlags_Rejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no recipients", []string{"--action", "grant"}},
		{"bad item type", []string{"--action", "grant", "--to", cliU1, "--type", "meetings"}},
		{"recipient not uuid", []string{"--action", "grant", "--to", "u1"}},
		{"bad start", []string{"--action", "newMeeting", "--to", cliU1, "--start", "tomorrow"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := intentFromFlags(intentCmd(t, tt.args...))
			assert.Error(t, err)
		})
	}
}
