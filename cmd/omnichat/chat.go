package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	omnichat "github.com/Protocol-Lattice/omnichat"
	"github.com/Protocol-Lattice/omnichat/src/models"
)

func newChatCmd(a *app) *cobra.Command {
	var attach []string
	var outDir string
	var speak bool
	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Send one prompt, or start an interactive session when no prompt is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.build(ctx, nil)
			if err != nil {
				return err
			}
			defer st.Close()

			c := &chatSession{
				orch:   st.Orchestrator,
				out:    cmd.OutOrStdout(),
				outDir: outDir,
				speak:  speak,
			}
			for _, p := range attach {
				if err := c.attach(p); err != nil {
					return err
				}
			}
			if len(args) > 0 {
				c.send(ctx, strings.Join(args, " "))
				return nil
			}
			return c.repl(ctx, cmd.InOrStdin())
		},
	}
	cmd.Flags().StringSliceVarP(&attach, "attach", "a", nil, "files to attach to the first prompt")
	cmd.Flags().StringVarP(&outDir, "out", "o", "images", "directory for generated images")
	cmd.Flags().BoolVar(&speak, "speak", false, "read text replies aloud")
	return cmd
}

type chatSession struct {
	orch    *omnichat.Orchestrator
	out     io.Writer
	outDir  string
	speak   bool
	pending []models.File
}

func (c *chatSession) attach(path string) error {
	f, err := readAttachment(path)
	if err != nil {
		return fmt.Errorf("attach %s: %w", path, err)
	}
	c.pending = append(c.pending, f)
	return nil
}

func (c *chatSession) repl(ctx context.Context, in io.Reader) error {
	fmt.Fprintf(c.out, "provider: %s. Commands: /provider <id>, /image-provider [id], /attach <path>, /quit\n", c.orch.Provider())
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			c.send(ctx, line)
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "/quit", "/exit":
			return nil
		case "/provider":
			if err := c.orch.ChangeProvider(models.ProviderID(arg)); err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(c.out, "provider: %s\n", c.orch.Provider())
		case "/image-provider":
			if arg == "" {
				fmt.Fprintf(c.out, "image provider: %s (available: %s)\n", c.orch.ImageProvider(), strings.Join(c.orch.ImageProviders(), ", "))
				continue
			}
			if err := c.orch.ChangeImageProvider(arg); err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(c.out, "image provider: %s\n", c.orch.ImageProvider())
		case "/attach":
			if err := c.attach(arg); err != nil {
				fmt.Fprintf(c.out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(c.out, "attached %s (%d pending)\n", arg, len(c.pending))
		default:
			fmt.Fprintf(c.out, "unknown command %s\n", cmd)
		}
	}
}

// send consumes pending attachments and prints the reply.
func (c *chatSession) send(ctx context.Context, prompt string) {
	files := c.pending
	c.pending = nil
	msg := c.orch.Reply(ctx, prompt, files)

	switch {
	case msg.Kind == omnichat.KindImage:
		path, err := saveImage(c.outDir, time.Now().Format("20060102-150405"), msg.Content)
		if err != nil {
			fmt.Fprintf(c.out, "error: save image: %v\n", err)
			return
		}
		fmt.Fprintf(c.out, "[%s] image saved to %s\n", msg.Provider, path)
	default:
		fmt.Fprintln(c.out, msg.Content)
		if c.speak && msg.Error == nil {
			c.orch.TextToSpeech(msg.Content)
		}
	}
}
