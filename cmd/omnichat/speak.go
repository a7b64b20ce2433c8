package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSpeakCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "speak <text>",
		Short: "Read text aloud with the provider voice or the local engine",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.build(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer st.Close()
			outcome := st.Speaker.Speak(cmd.Context(), strings.Join(args, " "))
			fmt.Fprintf(cmd.ErrOrStderr(), "speech: %s\n", outcome)
			return nil
		},
	}
}
