package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sotaro/manga2epub/internal/archive"
	"github.com/sotaro/manga2epub/internal/cli"
	"github.com/sotaro/manga2epub/internal/converter"
	"github.com/sotaro/manga2epub/internal/device"
	"github.com/sotaro/manga2epub/internal/metadata"
)

var rootCmd = &cobra.Command{
	Use:   "manga2epub",
	Short: "Convert CBZ/CBR comic archives to Kindle-ready fixed-layout EPUB",
	Long: `manga2epub converts comic book archives (CBZ/CBR) into Kindle
compatible fixed-layout EPUB books.

Run it in a folder full of cbz/cbr files. It extracts each archive,
flattens chapter folders into an ordered page list, splits double-page
spreads for right-to-left reading, normalizes every page for the target
device, and writes one EPUB per volume.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		srcDir, _ := cmd.Flags().GetString("dir")
		workDir, _ := cmd.Flags().GetString("workdir")
		outDir, _ := cmd.Flags().GetString("output")
		return run(srcDir, workDir, outDir, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.Flags().StringP("dir", "d", ".", "Directory containing the comic archives")
	rootCmd.Flags().StringP("output", "o", "./epub", "Output directory for generated EPUB files")
	rootCmd.Flags().String("workdir", "./extracted", "Working directory for archive extraction")
}

func run(srcDir, workDir, outDir string, in io.Reader, out io.Writer) error {
	cli.Infof(out, "Welcome to manga2epub")
	fmt.Fprintln(out, "Make sure you run me in a folder full of cbz/cbr files.")

	files, err := archive.List(srcDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		cli.Warnf(out, "No supported archive files found in %s.", srcDir)
		return nil
	}
	cli.Infof(out, "Found %d valid file(s).", len(files))

	p := cli.New(in, out)
	selected, err := p.MultiSelect("Select files to process", files)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		cli.Warnf(out, "Nothing selected.")
		return nil
	}

	meta, err := collectMetadata(p, out, srcDir)
	if err != nil {
		return err
	}
	startIndex, err := p.Int("Start index for series (volume numbering starts from)", 0)
	if err != nil {
		return err
	}

	profile, err := device.Resolve(meta.Device)
	if err != nil {
		// Cache may predate the current device table.
		name, selErr := p.Select("Select your kindle", deviceNames(), device.DefaultProfile)
		if selErr != nil {
			return selErr
		}
		meta.Device = name
		if profile, err = device.Resolve(name); err != nil {
			return err
		}
	}

	pipeline := converter.New(converter.Options{
		SourceDir:  srcDir,
		WorkDir:    workDir,
		OutputDir:  outDir,
		Metadata:   *meta,
		Screen:     profile.Screen(),
		StartIndex: startIndex,
	})

	failed := 0
	for i, file := range selected {
		if err := convertOne(pipeline, file, i, out); err != nil {
			cli.Warnf(out, "%s failed: %v", file, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d volumes failed", failed, len(selected))
	}
	cli.Successf(out, "All %d volume(s) converted.", len(selected))
	return nil
}

func convertOne(pipeline *converter.Pipeline, file string, pos int, out io.Writer) error {
	spinner := cli.NewSpinner(out, "Extracting "+file)
	err := pipeline.Extract(file)
	spinner.Finish()
	if err != nil {
		return err
	}

	spinner = cli.NewSpinner(out, "Processing pages")
	ordered, err := pipeline.PreparePages(file)
	spinner.Finish()
	if err != nil {
		return err
	}

	spinner = cli.NewSpinner(out, "Converting to epub")
	outPath, err := pipeline.Assemble(file, pos, ordered)
	spinner.Finish()
	if err != nil {
		return err
	}
	cli.Successf(out, "%s converted to %s", file, outPath)
	return nil
}

// collectMetadata loads the cached metadata when present and confirmed, or
// walks the question flow and optionally persists the answers.
func collectMetadata(p *cli.Prompter, out io.Writer, dir string) (*metadata.Book, error) {
	cachePath := filepath.Join(dir, metadata.CacheFile)
	if cached, err := metadata.Load(cachePath); err == nil {
		cli.RenderMetadata(out, cached)
		reuse, err := p.Confirm("Would you like to use this metadata?", true)
		if err != nil {
			return nil, err
		}
		if reuse {
			return cached, nil
		}
	}

	book := &metadata.Book{}
	var err error
	if book.Series, err = p.String("Enter series name", metadata.DefaultSeries); err != nil {
		return nil, err
	}
	if book.Author, err = p.String("Enter author name", metadata.DefaultAuthor); err != nil {
		return nil, err
	}
	if book.Genres, err = p.MultiSelect("Select genre(s)", metadata.Genres); err != nil {
		return nil, err
	}
	if book.Publisher, err = p.String("Enter publisher name", metadata.DefaultPublisher); err != nil {
		return nil, err
	}
	if book.Device, err = p.Select("Select your kindle", deviceNames(), device.DefaultProfile); err != nil {
		return nil, err
	}
	book.Normalize()

	save, err := p.Confirm("Would you like to save this metadata for future use?", false)
	if err != nil {
		return nil, err
	}
	if save {
		if err := metadata.Save(cachePath, book); err != nil {
			return nil, err
		}
	}
	return book, nil
}

func deviceNames() []string {
	names := make([]string, len(device.Profiles))
	for i, p := range device.Profiles {
		names[i] = p.Name
	}
	return names
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
