package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	omnichat "github.com/Protocol-Lattice/omnichat"
	"github.com/Protocol-Lattice/omnichat/src/apierr"
	"github.com/Protocol-Lattice/omnichat/src/imaging"
)

func newImageCmd(a *app) *cobra.Command {
	var (
		edit     string
		style    string
		aspect   string
		provider string
		outDir   string
	)
	cmd := &cobra.Command{
		Use:   "image <prompt>",
		Short: "Generate an image, or edit one with --edit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.build(ctx, nil)
			if err != nil {
				return err
			}
			defer st.Close()
			if st.Studio == nil {
				return omnichat.ErrImagesDisabled
			}
			if provider != "" {
				if err := st.Studio.Select(provider); err != nil {
					return err
				}
			}

			prompt := strings.Join(args, " ")
			var img imaging.Image
			if edit != "" {
				src, rerr := readAttachment(edit)
				if rerr != nil {
					return rerr
				}
				img, err = st.Studio.Edit(ctx, src, prompt)
			} else {
				img, err = st.Studio.Generate(ctx, prompt, imaging.Options{
					Style:       imaging.Style(style),
					AspectRatio: imaging.AspectRatio(aspect),
				})
			}
			if err != nil {
				return apierr.Normalize(err, img.Provider)
			}
			path, err := saveImage(outDir, time.Now().Format("20060102-150405"), img.URI)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", img.Provider, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&edit, "edit", "", "image file to edit")
	cmd.Flags().StringVar(&style, "style", "realistic", "realistic, artistic, minimal or anime")
	cmd.Flags().StringVar(&aspect, "aspect", "1:1", "1:1, 16:9, 9:16 or 4:3")
	cmd.Flags().StringVar(&provider, "image-provider", "", "gemini or openai (default defaults.image)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "images", "output directory")
	return cmd
}
