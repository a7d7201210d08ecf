package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/logsage"
	"github.com/poiesic/logsage/config"
	"github.com/poiesic/logsage/core"
	"github.com/poiesic/logsage/embedding"
	"github.com/poiesic/logsage/ingestion"
	"github.com/poiesic/logsage/parser"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

// fileOutcome is one file's ingest result as printed by the ingest command.
type fileOutcome struct {
	Path   string                  `json:"path" yaml:"path"`
	Result *ingestion.IngestResult `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string                  `json:"error,omitempty" yaml:"error,omitempty"`
}

func ingestCommand(c *cli.Context) error {
	files := c.Args().Slice()
	if len(files) == 0 {
		return errors.New("at least one FILE is required")
	}
	parallel := c.Int("parallel")
	if parallel <= 0 {
		return fmt.Errorf("parallel must be greater than 0")
	}
	format, err := parseOutput(c.String("output"))
	if err != nil {
		return err
	}

	var opts []ingestion.IngestOption
	if f := c.String("format"); f != "" {
		opts = append(opts, ingestion.WithFormat(parser.Format(strings.ToLower(f))))
	}
	// Carriage-return progress lines from concurrent files would overwrite each other.
	showProgress := !c.Bool("quiet") && (len(files) == 1 || parallel == 1)

	return withService(c, func(ctx context.Context, svc *logsage.Service) error {
		outcomes := make([]fileOutcome, len(files))

		var g errgroup.Group
		g.SetLimit(parallel)
		for i, path := range files {
			g.Go(func() error {
				fileOpts := opts
				var tracker *embedding.ProgressTracker
				if showProgress {
					fileOpts = append(fileOpts[:len(fileOpts):len(fileOpts)],
						ingestion.WithProgress(func(total int) embedding.Progress {
							tracker = embedding.NewProgressTracker(c.App.ErrWriter, filepath.Base(path), total, progressInterval(total))
							tracker.Start()
							return tracker
						}))
				}

				outcomes[i].Path = path
				result, err := svc.IngestFile(ctx, path, fileOpts...)
				if tracker != nil {
					tracker.Finish()
				}
				if err != nil {
					outcomes[i].Error = err.Error()
					return nil
				}
				outcomes[i].Result = result
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if format == outputText {
			for _, o := range outcomes {
				printIngestOutcome(c.App.Writer, o)
			}
		} else if err := writeStructured(c.App.Writer, format, outcomes); err != nil {
			return err
		}

		failed := 0
		for _, o := range outcomes {
			if o.Error != "" {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("ingest failed for %d of %d files", failed, len(files))
		}
		return nil
	})
}

// progressInterval reports roughly every 5% of total.
func progressInterval(total int) int {
	return max(total/20, 1)
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errors.New("a QUESTION is required")
	}
	format, err := parseOutput(c.String("output"))
	if err != nil {
		return err
	}

	return withService(c, func(ctx context.Context, svc *logsage.Service) error {
		result, err := svc.Analyze(ctx, question, c.Int("top-k"), c.String("conversation"))
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}
		if format != outputText {
			return writeStructured(c.App.Writer, format, result)
		}
		printAnswer(c.App.Writer, result)
		fmt.Fprintf(c.App.ErrWriter, "conversation: %s\n", result.ConversationID)
		return nil
	})
}

func chatCommand(c *cli.Context) error {
	return withService(c, func(ctx context.Context, svc *logsage.Service) error {
		for _, path := range c.StringSlice("ingest") {
			result, err := svc.IngestFile(ctx, path)
			if err != nil {
				return fmt.Errorf("ingest of %s failed: %w", path, err)
			}
			printIngestOutcome(c.App.ErrWriter, fileOutcome{Path: path, Result: result})
		}
		session := &chatSession{
			analyzer:       svc,
			topK:           c.Int("top-k"),
			conversationID: c.String("conversation"),
			out:            c.App.Writer,
		}
		return session.run(ctx, c.App.Reader)
	})
}

// analyzer is the part of the Service a chat session drives.
type analyzer interface {
	Analyze(ctx context.Context, question string, topK int, conversationID string) (*core.AnalysisResult, error)
	ResetConversation(ctx context.Context, conversationID string) bool
}

type chatSession struct {
	analyzer       analyzer
	topK           int
	conversationID string
	out            io.Writer
}

const chatHelp = `Type a question and press enter.
  /reset  forget the conversation so far
  /quit   leave`

func (s *chatSession) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.out, chatHelp)
	scanner := bufio.NewScanner(in)
	for {
		heading.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(s.out, chatHelp)
			continue
		case "/reset":
			if s.conversationID != "" {
				s.analyzer.ResetConversation(ctx, s.conversationID)
			}
			s.conversationID = ""
			fmt.Fprintln(s.out, "Conversation reset.")
			continue
		}

		result, err := s.analyzer.Analyze(ctx, line, s.topK, s.conversationID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			red.Fprintf(s.out, "error: %v\n", err)
			continue
		}
		s.conversationID = result.ConversationID
		printAnswer(s.out, result)
		fmt.Fprintln(s.out)
	}
}

func statsCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one FILE is required")
	}
	path := c.Args().First()
	format, err := parseOutput(c.String("output"))
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := core.CheckSize(info.Size(), cfg.MaxFileSizeBytes()); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ps := parser.New()
	var doc *parser.Document
	if f := c.String("format"); f != "" {
		doc, err = ps.ParseAs(data, parser.Format(strings.ToLower(f)))
	} else {
		doc, err = ps.Parse(data)
	}
	if err != nil {
		return fmt.Errorf("parsing %s failed: %w", path, err)
	}
	stats := parser.ComputeStats(doc.Format, doc.Collect())

	if format != outputText {
		return writeStructured(c.App.Writer, format, stats)
	}
	printStats(c.App.Writer, filepath.Base(path), stats)
	return nil
}

func configShowCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	data, err := cfg.Redacted().YAML()
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(data)
	return err
}

func configInitCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("no PATH given and no user config directory: %w", err)
		}
		path = filepath.Join(dir, "logsage", "config.yaml")
	}
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Default().Save(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
	return nil
}
