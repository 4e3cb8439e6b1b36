// Command celes is the driver binary from SPEC_FULL.md §6.3: it parses a
// celes TOML project file and either prints its [Build] name or
// validates the [Build] table against a small JSON Schema.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/opal-lang/celes/diag"
	"github.com/opal-lang/celes/toml"
	"github.com/opal-lang/celes/toml/cache"
)

func main() {
	exitCode := 0

	var watch bool
	var suggest string
	var useCache bool

	buildCmd := &cobra.Command{
		Use:   "build [path]",
		Short: "Parse Project.toml and print [Build].Name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := projectPath(args)
			run := func() int { return runBuild(cmd.OutOrStdout(), path, suggest, useCache) }
			if watch {
				return watchLoop(cmd, path, run)
			}
			exitCode = run()
			return nil
		},
	}
	buildCmd.Flags().BoolVar(&watch, "watch", false, "re-run whenever the file changes")
	buildCmd.Flags().StringVar(&suggest, "suggest", "", "suggest the closest [Build] key if this key is missing")
	buildCmd.Flags().BoolVar(&useCache, "cache", false, "use the on-disk build cache")

	checkWatch := false
	checkCache := false
	checkCmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Validate Project.toml's [Build] table against its schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := projectPath(args)
			run := func() int { return runCheck(cmd.OutOrStdout(), path, checkCache) }
			if checkWatch {
				return watchLoop(cmd, path, run)
			}
			exitCode = run()
			return nil
		},
	}
	checkCmd.Flags().BoolVar(&checkWatch, "watch", false, "re-run whenever the file changes")
	checkCmd.Flags().BoolVar(&checkCache, "cache", false, "use the on-disk build cache")

	rootCmd := &cobra.Command{
		Use:           "celes",
		Short:         "Parse and validate celes project files",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.AddCommand(buildCmd, checkCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitCode = 1
	}
	os.Exit(exitCode)
}

func projectPath(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return "Project.toml"
}

// runBuild implements `celes build`, returning the process exit code per
// spec.md §6: 0 success, 1 file not found, 2 parse error.
func runBuild(out io.Writer, path, suggestKey string, useCache bool) int {
	root, err := loadProject(path, useCache)
	if err != nil {
		return reportLoadError(err)
	}

	build := root.GetTable("Build")
	if build == nil {
		fmt.Fprintf(os.Stderr, "Project.toml has no [Build] table\n")
		return 2
	}

	name := build.GetString("Name")
	if suggestKey != "" {
		if _, ok := build.Get(suggestKey); !ok {
			if hint := suggestClosestKey(build, suggestKey); hint != "" {
				fmt.Fprintf(os.Stderr, "key %q not found; did you mean %q?\n", suggestKey, hint)
			}
		}
	}

	fmt.Fprintln(out, name)
	return 0
}

// runCheck implements `celes check`: [Build].Name must be a non-empty
// string; [Build].Version, if present, must be a valid semver string.
func runCheck(out io.Writer, path string, useCache bool) int {
	root, err := loadProject(path, useCache)
	if err != nil {
		return reportLoadError(err)
	}

	build := root.GetTable("Build")
	doc := map[string]interface{}{}
	if build != nil {
		doc["Name"] = build.GetString("Name")
		if v := build.GetString("Version"); v != "" {
			doc["Version"] = v
		}
	}

	if err := validateBuild(doc); err != nil {
		fmt.Fprintf(os.Stderr, "schema validation failed: %v\n", err)
		return 2
	}

	fmt.Fprintln(out, "ok")
	return 0
}

func loadProject(path string, useCache bool) (*toml.Table, error) {
	if !useCache {
		return toml.Open(path)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, diag.Wrap(diag.ErrFileNotFound, "file not found: "+path, err)
		}
		return nil, diag.Wrap(diag.ErrFileRead, "could not read "+path, err)
	}

	hash := cache.ContentHash(src)
	if root, ok := cache.Load(path, hash); ok {
		return root, nil
	}

	root, err := toml.ParseBytes(path, src)
	if err != nil {
		return nil, err
	}
	if err := cache.Store(path, hash, root); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not write build cache: %v\n", err)
	}
	return root, nil
}

func reportLoadError(err error) int {
	de, ok := err.(*diag.Error)
	if !ok {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	fmt.Fprintln(os.Stderr, de.Message)
	switch de.Kind {
	case diag.ErrFileNotFound:
		return 1
	default:
		return 2
	}
}

// suggestClosestKey uses fuzzy ranking over build's sibling keys to find
// the best match for a missing key, per SPEC_FULL.md §6.3.
func suggestClosestKey(build *toml.Table, missing string) string {
	var candidates []string
	for i := 0; i < build.PairCount(); i++ {
		if key, _, ok := build.Pair(i); ok {
			candidates = append(candidates, key)
		}
	}
	ranks := fuzzy.RankFindFold(missing, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

// buildSchema is compiled once at startup, grounded on the teacher's
// compileSchema (core/types/validation.go): a Compiler with an in-memory
// resource, rather than loading a schema file from disk.
var buildSchema = compileBuildSchema()

func compileBuildSchema() *jsonschema.Schema {
	const schemaJSON = `{
		"type": "object",
		"required": ["Name"],
		"properties": {
			"Name": {"type": "string", "minLength": 1},
			"Version": {"type": "string"}
		}
	}`

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema://build.json", strings.NewReader(schemaJSON)); err != nil {
		panic(err)
	}
	schema, err := compiler.Compile("schema://build.json")
	if err != nil {
		panic(err)
	}
	return schema
}

func validateBuild(doc map[string]interface{}) error {
	if err := buildSchema.Validate(doc); err != nil {
		return err
	}
	if v, ok := doc["Version"].(string); ok {
		if !semver.IsValid("v" + v) {
			return fmt.Errorf("Version %q is not a valid semver string", v)
		}
	}
	return nil
}

// watchLoop re-runs run every time path changes, until interrupted, per
// SPEC_FULL.md §6.3's --watch flag.
func watchLoop(cmd *cobra.Command, path string, run func() int) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not start watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("could not watch %s: %w", path, err)
	}

	run()
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Debounce: editors commonly emit a burst of events per save.
			time.Sleep(50 * time.Millisecond)
			run()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
		}
	}
}
