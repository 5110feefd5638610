package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/klabast/wb-services/habit-tracker/internal/habit"
	"github.com/klabast/wb-services/habit-tracker/internal/render"
)

func addCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name...>",
		Short: "Add a habit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer sess.Close()

			h, err := sess.store.Add(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if h == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Ignored empty habit name")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added habit #%d: %s\n", h.ID, h.Name)
			return nil
		},
	}
}

func removeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a habit",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			sess, err := openSession(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer sess.Close()

			removed, err := sess.store.Remove(id)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "No habit #%d\n", id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted habit #%d\n", id)
			return nil
		},
	}
}

func doneCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a habit's completion for today (or --date)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			sess, err := openSession(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer sess.Close()

			date, err := dateFlag(cmd, sess.store)
			if err != nil {
				return err
			}

			h, found, err := sess.store.Toggle(id, date)
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(cmd.OutOrStdout(), "No habit #%d\n", id)
				return nil
			}

			state := "Unmarked"
			if h.IsCompletedOn(date) {
				state = "Marked"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s on %s (streak %d)\n",
				state, h.Name, habit.DateKey(date), h.CurrentStreak(sess.store.Today()))
			return nil
		},
	}
	cmd.Flags().String("date", "", "date to toggle (YYYY-MM-DD, default today)")
	return cmd
}

func listCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List habits with today's status and streaks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer sess.Close()

			today := sess.store.Today()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, render.Stats(sess.store.AggregateStats(today)))

			habits := sess.store.Habits()
			if len(habits) == 0 {
				fmt.Fprintln(out, "No habits yet. Add your first habit with `habit-tracker add <name>`.")
				return nil
			}
			for _, h := range habits {
				fmt.Fprintln(out, render.HabitLine(h, today))
			}
			return nil
		},
	}
}

func showCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a habit's heatmap for the last 365 days",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			sess, err := openSession(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer sess.Close()

			date, err := dateFlag(cmd, sess.store)
			if err != nil {
				return err
			}

			h, ok := sess.store.Get(id)
			if !ok {
				return fmt.Errorf("no habit #%d", id)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.HabitCard(h, date))
			return nil
		},
	}
	cmd.Flags().String("date", "", "last day of the heatmap (YYYY-MM-DD, default today)")
	return cmd
}

func statsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show total habits, completions and best current streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer sess.Close()

			date, err := dateFlag(cmd, sess.store)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Stats(sess.store.AggregateStats(date)))
			return nil
		},
	}
	cmd.Flags().String("date", "", "reference date (YYYY-MM-DD, default today)")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid habit id %q", s)
	}
	return id, nil
}

// dateFlag reads --date, defaulting to the store's current date.
func dateFlag(cmd *cobra.Command, store *habit.Store) (time.Time, error) {
	value, _ := cmd.Flags().GetString("date")
	if value == "" {
		return store.Today(), nil
	}
	return habit.ParseDate(value)
}
