package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/klabast/wb-services/habit-tracker/internal/tui"
)

func tuiCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer sess.Close()
			return tui.Run(sess.store)
		},
	}
}
