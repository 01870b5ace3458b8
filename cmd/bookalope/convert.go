package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	bookalope "github.com/bookalope/bookalope-go"
)

func newConvertCmd(opts *cliOptions) *cobra.Command {
	co := &convertOptions{
		opts: opts,
	}

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Upload a manuscript, convert it, and download the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := co.complete(); err != nil {
				if logErr := logFailure(co.opts.failLogPath, co.file, err); logErr != nil {
					return fmt.Errorf("%w; also failed to write fail log: %v", err, logErr)
				}
				return err
			}
			return co.run(cmd)
		},
	}

	co.addFlags(cmd)

	return cmd
}

type convertOptions struct {
	file          string
	name          string
	title         string
	author        string
	copyright     string
	isbn          string
	language      string
	pubdate       string
	publisher     string
	format        string
	style         string
	final         bool
	credit        string
	filetype      string
	skipStructure bool
	output        string
	stagingDir    string
	allStyles     bool
	concurrency   int
	opts          *cliOptions

	version    bookalope.Version
	creditType bookalope.CreditType
}

func (o *convertOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.file, "file", "", "Path to the manuscript to upload")
	cmd.Flags().StringVar(&o.name, "name", "", "Name for the new book")
	cmd.Flags().StringVar(&o.title, "title", "", "Book title")
	cmd.Flags().StringVar(&o.author, "author", "", "Book author")
	cmd.Flags().StringVar(&o.copyright, "copyright", "", "Copyright notice")
	cmd.Flags().StringVar(&o.isbn, "isbn", "", "ISBN")
	cmd.Flags().StringVar(&o.language, "language", "", "Book language")
	cmd.Flags().StringVar(&o.pubdate, "pubdate", "", "Publication date")
	cmd.Flags().StringVar(&o.publisher, "publisher", "", "Publisher")
	cmd.Flags().StringVar(&o.format, "format", "icml", "Target format: icml|epub|mobi|pdf|docx|idml")
	cmd.Flags().StringVar(&o.style, "style", "default", "Design style for the target format")
	cmd.Flags().BoolVar(&o.final, "final", false, "Produce a final conversion instead of a watermarked test one")
	cmd.Flags().StringVar(&o.credit, "credit", "", "Apply a plan credit before upload: basic|pro")
	cmd.Flags().StringVar(&o.filetype, "filetype", "", "Override the uploaded file type (defaults to doc)")
	cmd.Flags().BoolVar(&o.skipStructure, "skip-structure", false, "Skip structure detection during analysis")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Path for the converted file")
	cmd.Flags().StringVar(&o.stagingDir, "staging-dir", "", "Directory for staging downloaded files (defaults to the system temp dir)")
	cmd.Flags().BoolVar(&o.allStyles, "all-styles", false, "Also download the conversion in every other style of the format")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", 2, "Concurrent conversions when --all-styles is set")
}

func (o *convertOptions) complete() error {
	o.version = bookalope.VersionTest
	if o.final {
		o.version = bookalope.VersionFinal
	}

	switch o.credit {
	case "":
		o.creditType = ""
	case string(bookalope.CreditBasic):
		o.creditType = bookalope.CreditBasic
	case string(bookalope.CreditPro):
		o.creditType = bookalope.CreditPro
	default:
		return fmt.Errorf("unsupported credit type: %s", o.credit)
	}

	if o.concurrency <= 0 {
		o.concurrency = 1
	}

	if o.output == "" && o.file != "" {
		base := filepath.Base(o.file)
		o.output = strings.TrimSuffix(base, filepath.Ext(base)) + "." + o.format
	}

	return nil
}

func (o *convertOptions) run(cmd *cobra.Command) error {
	token, err := resolveToken(o.opts)
	if err != nil {
		if logErr := logFailure(o.opts.failLogPath, o.file, err); logErr != nil {
			return fmt.Errorf("%w; also failed to write fail log: %v", err, logErr)
		}
		return err
	}

	ctx := cmd.Context()
	cli := buildClient(token, o.opts)
	host := &bookalope.DirHost{
		Dir:     o.stagingDir,
		OutPath: o.output,
		Out:     cmd.OutOrStdout(),
	}

	workflow := bookalope.NewWorkflow(cli, host,
		bookalope.WithLogger(newLogger(cmd.OutOrStdout(), slog.LevelInfo)),
		bookalope.WithPollConfig(pollConfig(o.opts)),
	)

	result, err := workflow.Run(ctx, bookalope.Request{
		FilePath: o.file,
		Name:     o.name,
		Metadata: bookalope.Metadata{
			Title:     o.title,
			Author:    o.author,
			Copyright: o.copyright,
			ISBN:      o.isbn,
			Language:  o.language,
			Pubdate:   o.pubdate,
			Publisher: o.publisher,
		},
		Format:  o.format,
		Style:   o.style,
		Version: o.version,
		Credit:  o.creditType,
		DocOptions: &bookalope.DocumentOptions{
			Filetype:      o.filetype,
			SkipStructure: o.skipStructure,
		},
	})
	if err != nil {
		if logErr := logFailure(o.opts.failLogPath, o.file, err); logErr != nil {
			return fmt.Errorf("%w; also failed to write fail log: %v", err, logErr)
		}
		return err
	}

	if err := printOut(cmd, "Converted %s to %s, saved as %s", o.file, o.format, o.output); err != nil {
		return err
	}
	if err := printOut(cmd, "Bookflow: %s", result.Bookflow.WebURL()); err != nil {
		return err
	}

	if o.allStyles {
		if err := o.downloadRemainingStyles(ctx, cli, result.Bookflow); err != nil {
			if logErr := logFailure(o.opts.failLogPath, result.Bookflow.ID, err); logErr != nil {
				return fmt.Errorf("%w; also failed to write fail log: %v", err, logErr)
			}
			return err
		}
	}

	return nil
}

// downloadRemainingStyles converts the already analyzed bookflow into every
// other style of the target format, a bounded number at a time.
func (o *convertOptions) downloadRemainingStyles(ctx context.Context, cli *bookalope.Client, bookflow *bookalope.Bookflow) error {
	styles, err := cli.Styles(ctx, o.format)
	if err != nil {
		return err
	}

	outDir := filepath.Dir(o.output)
	poll := pollConfig(o.opts)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for _, style := range styles {
		if style.ShortName == o.style {
			continue
		}
		style := style
		g.Go(func() error {
			if err := bookflow.Convert(gctx, o.format, style.ShortName, o.version); err != nil {
				return err
			}
			if err := bookflow.WaitForConversion(gctx, o.format, style.ShortName, o.version, poll); err != nil {
				return err
			}
			data, err := bookflow.ConvertDownload(gctx, o.format, style.ShortName, o.version)
			if err != nil {
				return err
			}
			target := filepath.Join(outDir, bookflow.ID+"-"+style.ShortName+"."+o.format)
			return saveToFile(target, data)
		})
	}

	if err := g.Wait(); err != nil {
		return errors.Join(errors.New("not all styles could be downloaded"), err)
	}
	return nil
}
