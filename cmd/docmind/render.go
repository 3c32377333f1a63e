package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ayush/docmind/backend/internal/analysis"
	"github.com/ayush/docmind/backend/internal/models"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	faint   = color.New(color.Faint)
	good    = color.New(color.FgGreen)
	bad     = color.New(color.FgRed)
)

func errorText(err error) string {
	if errors.Is(err, analysis.ErrNoDocument) {
		return color.RedString("No document open.") + " Run `docmind open <file>` first."
	}
	return color.RedString("Error: %v", err)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(b))
	return nil
}

func printDocument(w io.Writer, info models.DocumentInfo) {
	heading.Fprintln(w, info.Name)
	faint.Fprintf(w, "%s  %s  modified %s\n", info.SizeMB, info.MimeType, info.LastModified.Format("2006-01-02 15:04"))
}

func printSummary(w io.Writer, s models.SummaryResult) {
	heading.Fprintln(w, "Summary")
	fmt.Fprintln(w, s.Summary)
	fmt.Fprintln(w)
	heading.Fprintln(w, "Key Points")
	for _, p := range s.KeyPoints {
		fmt.Fprintf(w, "  • %s\n", p)
	}
}

func printQuestion(w io.Writer, index, total int, q models.QuizQuestion) {
	heading.Fprintf(w, "Question %d of %d\n", index+1, total)
	fmt.Fprintln(w, q.Question)
	for i, opt := range q.Options {
		fmt.Fprintf(w, "  %d) %s\n", i+1, opt)
	}
}

// printAnswerKey lists every question with its correct answer.
func printAnswerKey(w io.Writer, qs []models.QuizQuestion) {
	for i, q := range qs {
		heading.Fprintf(w, "%d. %s\n", i+1, q.Question)
		if q.CorrectAnswer != nil && *q.CorrectAnswer < len(q.Options) {
			good.Fprintf(w, "   %s\n", q.Options[*q.CorrectAnswer])
		}
		if q.Explanation != "" {
			faint.Fprintf(w, "   %s\n", q.Explanation)
		}
	}
}

func printResults(w io.Writer, v analysis.QuizView) {
	if v.Score == nil {
		return
	}
	c := bad
	if *v.Score >= 70 {
		c = good
	}
	heading.Fprint(w, "Score: ")
	c.Fprintf(w, "%.0f%%\n", *v.Score)
	for i, r := range v.Review {
		q := v.Questions[i]
		mark := bad.Sprint("✗")
		if r.Correct {
			mark = good.Sprint("✓")
		}
		fmt.Fprintf(w, "%s %s\n", mark, q.Question)
		if !r.Correct && q.CorrectAnswer != nil {
			faint.Fprintf(w, "  answer: %s\n", q.Options[*q.CorrectAnswer])
		}
		if q.Explanation != "" {
			faint.Fprintf(w, "  %s\n", q.Explanation)
		}
	}
}

func bandColor(band string) *color.Color {
	switch band {
	case "high":
		return color.New(color.FgGreen)
	case "medium":
		return color.New(color.FgYellow)
	}
	return color.New(color.FgRed)
}

func printSearch(w io.Writer, query string, res models.SearchResults) {
	heading.Fprintf(w, "Results for %q\n", query)
	if len(res.Results) == 0 {
		faint.Fprintln(w, "No matching excerpts.")
		return
	}
	for _, r := range res.Results {
		bandColor(r.Band()).Fprintf(w, "[%3.0f%% %s] ", r.Confidence*100, r.Band())
		fmt.Fprintf(w, "%q\n", r.Excerpt)
		if r.Explanation != "" {
			faint.Fprintf(w, "    %s\n", r.Explanation)
		}
	}
}

func printConcepts(w io.Writer, g models.ConceptGraph, tab string) {
	show := func(t string) bool { return tab == "" || tab == t }
	if show(analysis.TabConcepts) {
		heading.Fprintln(w, "Main Concepts")
		for _, c := range g.MainConcepts {
			fmt.Fprintf(w, "  %s", c.Concept)
			if c.Importance != "" {
				faint.Fprintf(w, " (%s)", strings.ToLower(c.Importance))
			}
			fmt.Fprintf(w, "\n    %s\n", c.Description)
		}
	}
	if show(analysis.TabTerms) {
		heading.Fprintln(w, "Terms")
		for _, t := range g.Terms {
			fmt.Fprintf(w, "  %s: %s\n", t.Term, t.Definition)
			if t.Context != "" {
				faint.Fprintf(w, "    %s\n", t.Context)
			}
		}
	}
	if show(analysis.TabRelationships) {
		heading.Fprintln(w, "Relationships")
		for _, r := range g.Relationships {
			fmt.Fprintf(w, "  %s → %s: %s\n", r.Concept1, r.Concept2, r.Relationship)
		}
	}
}
