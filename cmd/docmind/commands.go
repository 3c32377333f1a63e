package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayush/docmind/backend/internal/analysis"
	"github.com/ayush/docmind/backend/internal/document"
	"github.com/ayush/docmind/backend/internal/models"
	"github.com/ayush/docmind/backend/internal/prompt"
)

// failed turns a tool left in the error state into a command error.
func failed(r analysis.Runner) error {
	if r.State() == analysis.StateError {
		return errors.New(r.Failure())
	}
	return nil
}

func openCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <file>",
		Short: "Make a PDF, Word or PowerPoint file the current document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			doc, err := document.FromFile(args[0], a.limits())
			if err != nil {
				return err
			}
			if err := a.holder.SetCurrent(cmd.Context(), owner, doc); err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), doc.Info())
			}
			printDocument(cmd.OutOrStdout(), doc.Info())
			return nil
		},
	}
}

func currentCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the current document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			doc, err := a.holder.Current(cmd.Context(), owner)
			if err != nil {
				return err
			}
			if doc == nil {
				return analysis.ErrNoDocument
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), doc.Info())
			}
			printDocument(cmd.OutOrStdout(), doc.Info())
			return nil
		},
	}
}

func clearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the current document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.holder.Clear(cmd.Context(), owner)
		},
	}
}

func summaryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Summarize the current document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			ws, err := a.loaded(ctx, func(ws *analysis.Workspace) analysis.Runner { return ws.Summary })
			if err != nil {
				return err
			}
			if err := ws.Summary.Run(ctx, prompt.Options{}); err != nil {
				return err
			}
			if err := failed(ws.Summary); err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), ws.Summary.View())
			}
			printSummary(cmd.OutOrStdout(), *ws.Summary.Snapshot().Result)
			return nil
		},
	}
}

func quizCmd(opts *rootOptions) *cobra.Command {
	var (
		count       int
		kind        string
		showAnswers bool
	)
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Generate a quiz from the current document and take it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			ws, err := a.loaded(ctx, func(ws *analysis.Workspace) analysis.Runner { return ws.Quiz })
			if err != nil {
				return err
			}
			q := ws.Quiz
			settings := analysis.QuizSettings{NumberOfQuestions: count, QuestionType: models.QuestionType(kind)}
			if err := q.Generate(ctx, settings); err != nil {
				return err
			}
			if err := failed(q); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			v := q.QuizView()
			if opts.jsonOut {
				return printJSON(out, v)
			}
			if showAnswers || settings.QuestionType == models.ShortAnswer {
				printAnswerKey(out, v.Questions)
				return nil
			}
			if err := takeQuiz(q, cmd.InOrStdin(), out); err != nil {
				return err
			}
			printResults(out, q.QuizView())
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "questions", "n", analysis.DefaultQuizSettings.NumberOfQuestions, "number of questions")
	cmd.Flags().StringVarP(&kind, "type", "t", string(models.MultipleChoice), "question type: multiple-choice|true-false|short-answer")
	cmd.Flags().BoolVar(&showAnswers, "show-answers", false, "print the answer key instead of asking")
	return cmd
}

// takeQuiz asks every question on in and records the answers until the
// quiz reaches its results.
func takeQuiz(q *analysis.Quiz, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		v := q.QuizView()
		if v.Phase != analysis.PhaseQuiz {
			return nil
		}
		question := v.Questions[v.CurrentIndex]
		printQuestion(out, v.CurrentIndex, len(v.Questions), question)

		for {
			fmt.Fprintf(out, "answer [1-%d]: ", len(question.Options))
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return err
				}
				return errors.New("quiz abandoned")
			}
			n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
			if err == nil && q.Answer(question.ID, n-1) == nil {
				break
			}
			bad.Fprintln(out, "Pick one of the listed options.")
		}
		fmt.Fprintln(out)
		if err := q.Next(); err != nil {
			return err
		}
	}
}

func chatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [question]",
		Short: "Ask questions about the current document",
		Long:  "With a question, answers it and exits. Without one, starts a conversation; type /retry to resend a failed question and /exit to leave.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			ws, err := a.loaded(ctx, func(ws *analysis.Workspace) analysis.Runner { return ws.Chat })
			if err != nil {
				return err
			}
			c := ws.Chat
			out := cmd.OutOrStdout()

			if len(args) > 0 {
				if err := c.Send(ctx, strings.Join(args, " ")); err != nil {
					return err
				}
				if err := failed(c); err != nil {
					return err
				}
				if opts.jsonOut {
					return printJSON(out, c.View())
				}
				msgs := c.Messages()
				fmt.Fprintln(out, msgs[len(msgs)-1].Content)
				return nil
			}

			heading.Fprintln(out, analysis.Greeting)
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "/exit", "/quit":
					return nil
				case "/retry":
					err = c.Retry(ctx)
				default:
					err = c.Send(ctx, line)
				}
				if errors.Is(err, analysis.ErrNothingToRetry) {
					faint.Fprintln(out, "Nothing to retry.")
					continue
				}
				if err != nil {
					return err
				}
				if c.State() == analysis.StateError {
					bad.Fprintln(out, c.Failure())
					continue
				}
				if line == "" {
					continue
				}
				msgs := c.Messages()
				fmt.Fprintln(out, msgs[len(msgs)-1].Content)
			}
		},
	}
}

func searchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find the passages of the current document that match a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			ws, err := a.loaded(ctx, func(ws *analysis.Workspace) analysis.Runner { return ws.Search })
			if err != nil {
				return err
			}
			s := ws.Search
			query := strings.Join(args, " ")
			if err := s.Query(ctx, query); err != nil {
				return err
			}
			if err := failed(s); err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), s.View())
			}
			snap := s.Snapshot()
			if snap.Result == nil {
				return nil
			}
			printSearch(cmd.OutOrStdout(), query, *snap.Result)
			return nil
		},
	}
}

func conceptsCmd(opts *rootOptions) *cobra.Command {
	var tab string
	cmd := &cobra.Command{
		Use:   "concepts",
		Short: "List the key concepts, terms and relationships of the current document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tab != "" && !slices.Contains(analysis.ConceptTabs, tab) {
				return fmt.Errorf("unknown tab %q, want one of %s", tab, strings.Join(analysis.ConceptTabs, ", "))
			}
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			// Loading runs the analysis.
			ws, err := a.loaded(cmd.Context(), func(ws *analysis.Workspace) analysis.Runner { return ws.Concepts })
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), ws.Concepts.View())
			}
			snap := ws.Concepts.Snapshot()
			if snap.Result == nil {
				return nil
			}
			printConcepts(cmd.OutOrStdout(), *snap.Result, tab)
			return nil
		},
	}
	cmd.Flags().StringVar(&tab, "tab", "", "only show one tab: concepts|terms|relationships")
	return cmd
}
