package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pageforge/pageforge/pkg/engine"
	"github.com/pageforge/pageforge/pkg/manifest"
	"github.com/pageforge/pageforge/pkg/netcache"
	starlarkeval "github.com/pageforge/pageforge/pkg/starlark"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	verbose     bool
	loopTimeout time.Duration

	outputPath string
	dataArg    string
	outDir     string
)

var rootCmd = cobra.Command{
	Use:   "pageforge",
	Short: "Render text templates with embedded Starlark expressions",
	Long: `pageforge renders text templates containing {{ expression }},
{% block %}, and {# comment #} tags. Expressions and code blocks are
evaluated with an embedded Starlark interpreter.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	},
}

var renderCmd = cobra.Command{
	Use:   "render [source]",
	Short: "Render a single template to stdout or a file",
	Long: `Render a single template. The source is a local file path, an
http(s) URL fetched through the template cache, or - for stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := readSource(cmd, args[0])
		if err != nil {
			return err
		}

		doc, err := engine.Parse(source)
		if err != nil {
			return err
		}

		env := engine.Environment{}
		if dataArg != "" {
			seed, err := loadData(dataArg)
			if err != nil {
				return fmt.Errorf("loading data payload: %w", err)
			}
			env = engine.NewEnvironmentFromAny(seed)
		}

		out, err := newExecutor().Execute(doc, env)
		if err != nil {
			return err
		}
		return writeOutput(outputPath, out)
	},
}

var treeCmd = cobra.Command{
	Use:   "tree [source]",
	Short: "Print the parse tree of a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := readSource(cmd, args[0])
		if err != nil {
			return err
		}
		doc, err := engine.Parse(source)
		if err != nil {
			return err
		}
		fmt.Print(engine.Pretty(doc))
		return nil
	},
}

var buildCmd = cobra.Command{
	Use:   "build [manifest]",
	Short: "Render every page of a manifest into the output directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.Load(args[0])
		if err != nil {
			return err
		}

		pages, err := m.Build(newEvaluator)
		if err != nil {
			return err
		}

		for _, p := range pages {
			dst := filepath.Join(outDir, p.Output)
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(dst, []byte(p.Text), 0o644); err != nil {
				return fmt.Errorf("writing page %q: %w", p.Name, err)
			}
			slog.Debug("page written", "page", p.Name, "path", dst)
		}
		fmt.Printf("built %d pages\n", len(pages))
		return nil
	},
}

var checkCmd = cobra.Command{
	Use:   "check [manifest]",
	Short: "Run the checks declared in a manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.Load(args[0])
		if err != nil {
			return err
		}

		failures := m.RunChecks(newEvaluator)
		for _, f := range failures {
			if f.Err != nil {
				fmt.Printf("FAIL %s: %v\n", f.Check, f.Err)
				continue
			}
			fmt.Printf("FAIL %s: got %q, want %q\n", f.Check, f.Got, f.Want)
		}
		if len(failures) > 0 {
			return fmt.Errorf("%d of %d checks failed", len(failures), len(m.Checks))
		}
		fmt.Printf("all %d checks passed\n", len(m.Checks))
		return nil
	},
}

func newEvaluator() engine.Evaluator {
	return starlarkeval.NewEvaluator()
}

func newExecutor() *engine.Executor {
	ex := engine.NewExecutor(newEvaluator())
	ex.LoopTimeout = loopTimeout
	return ex
}

// readSource loads template source from stdin, a remote URL, or a local
// file. Remote sources go through a persistent cache with revalidation.
func readSource(cmd *cobra.Command, path string) (string, error) {
	switch {
	case path == "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(b), nil
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		cache := netcache.New(cacheDir())
		body, fromCache, err := cache.GetString(cmd.Context(), path)
		if err != nil {
			return "", fmt.Errorf("fetching template: %w", err)
		}
		slog.Debug("remote template fetched", "url", path, "cached", fromCache)
		return body, nil
	default:
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading source file: %w", err)
		}
		return string(b), nil
	}
}

func cacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "pageforge")
	}
	return filepath.Join(os.TempDir(), "pageforge-cache")
}

// loadData decodes the seed environment payload. The argument is either an
// inline YAML/JSON document, or @path to read the document from a file.
func loadData(arg string) (map[string]any, error) {
	doc := []byte(arg)
	if strings.HasPrefix(arg, "@") {
		b, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, err
		}
		doc = b
	}
	var seed map[string]any
	if err := yaml.Unmarshal(doc, &seed); err != nil {
		return nil, err
	}
	return seed, nil
}

func writeOutput(path, out string) error {
	if path == "" {
		_, err := os.Stdout.WriteString(out)
		return err
	}
	return os.WriteFile(path, []byte(out), 0o644)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().DurationVar(&loopTimeout, "loop-timeout", engine.DefaultLoopTimeout, "Time budget for while loops not marked slow")

	renderCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file name (default: stdout)")
	renderCmd.Flags().StringVarP(&dataArg, "data", "d", "", "Seed data as inline YAML/JSON, or @file")
	rootCmd.AddCommand(&renderCmd)

	rootCmd.AddCommand(&treeCmd)

	buildCmd.Flags().StringVarP(&outDir, "out-dir", "C", ".", "Directory rendered pages are written to")
	rootCmd.AddCommand(&buildCmd)

	rootCmd.AddCommand(&checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
