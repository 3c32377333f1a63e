package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var opts rootOptions

	root := &cobra.Command{
		Use:           "docmind",
		Short:         "Summarize, quiz, chat with and search a document from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML file overriding the pipeline settings")
	root.PersistentFlags().StringVar(&opts.storePath, "store", "", "bbolt file holding the current document (default from DOCMIND_STORE)")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print results as JSON")
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "only log warnings and errors")

	root.AddCommand(
		openCmd(&opts),
		currentCmd(&opts),
		clearCmd(&opts),
		summaryCmd(&opts),
		quizCmd(&opts),
		chatCmd(&opts),
		searchCmd(&opts),
		conceptsCmd(&opts),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorText(err))
		os.Exit(1)
	}
}
