// Command hqlc is the command-line front end to the compiler: a single
// `compile` subcommand reads one .hql file, runs it through the full
// pipeline, and writes JS to a file or stdout. Grounded on esbuild's
// cmd/esbuild/main.go shape (build options in, diagnostics to stderr,
// output to stdout or a file, non-zero exit on failure) but rebuilt on
// cobra/pflag rather than esbuild's own hand-rolled flag parser.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hqllang/hql/internal/diag"
	"github.com/hqllang/hql/internal/fs"
	"github.com/hqllang/hql/pkg/hql"
)

var (
	outPath string
	verbose bool
	bundle  bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hqlc",
		Short:         "hqlc compiles HQL source to JavaScript",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCompileCmd())
	return root
}

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <input.hql>",
		Short: "Compile one HQL file to JavaScript",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompile,
	}
	cmd.Flags().StringVarP(&outPath, "outfile", "o", "", "write output to this file instead of stdout")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "print the path and mode of each compile step to stderr")
	cmd.Flags().BoolVar(&bundle, "bundle", false, "inline every locally-imported .hql module into the output")
	return cmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	real := fs.Real{}
	stderr := cmd.ErrOrStderr()

	if verbose {
		fmt.Fprintf(stderr, "hqlc: reading %s\n", inputPath)
	}

	source, err := real.ReadText(inputPath)
	if err != nil {
		fmt.Fprint(stderr, renderError(err))
		return err
	}

	if verbose {
		mode := "single-file"
		if bundle {
			mode = "bundle"
		}
		fmt.Fprintf(stderr, "hqlc: compiling %s (%s)\n", inputPath, mode)
	}

	result, err := hql.Compile(source, hql.Options{Path: inputPath, Bundle: bundle, FS: real})
	for _, w := range result.Warnings {
		fmt.Fprint(stderr, w.String())
	}
	if err != nil {
		fmt.Fprint(stderr, renderError(err))
		return err
	}

	if outPath == "" {
		fmt.Fprint(cmd.OutOrStdout(), result.JS)
		return nil
	}

	if verbose {
		fmt.Fprintf(stderr, "hqlc: writing %s\n", outPath)
	}
	if err := os.WriteFile(outPath, []byte(result.JS), 0o644); err != nil {
		fmt.Fprint(stderr, renderError(err))
		return err
	}
	return nil
}

// renderError formats err for stderr: a diag.Diagnostic renders through
// logger.Msg's clang-style "file:line:col: kind: text" report, everything
// else falls back to a plain "hqlc: <message>" line.
func renderError(err error) string {
	if d, ok := err.(diag.Diagnostic); ok {
		return d.Msg().String()
	}
	return fmt.Sprintf("hqlc: %s\n", err)
}
