package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func newListenCmd(a *app) *cobra.Command {
	var reply, speak bool
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Record until silence or Ctrl-C and print the transcript",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := a.build(ctx, nil)
			if err != nil {
				return err
			}
			defer st.Close()

			sess, err := st.Orchestrator.StartVoiceRecording(ctx, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "recording, stop talking or press Ctrl-C to finish")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sig)
			select {
			case <-sess.Done():
			case <-sig:
				st.Orchestrator.StopVoiceRecording()
				<-sess.Done()
			}

			text := sess.Transcript()
			out := cmd.OutOrStdout()
			if strings.TrimSpace(text) == "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "no speech recognized (%s)\n", sess.Reason())
				return nil
			}
			fmt.Fprintf(out, "you: %s\n", text)
			if !reply {
				return nil
			}
			msg := st.Orchestrator.Reply(ctx, text, nil)
			fmt.Fprintf(out, "%s: %s\n", msg.Provider, msg.Content)
			if speak && msg.Error == nil {
				st.Orchestrator.TextToSpeech(msg.Content)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reply, "reply", true, "send the transcript to the text provider")
	cmd.Flags().BoolVar(&speak, "speak", false, "read the reply aloud")
	return cmd
}
