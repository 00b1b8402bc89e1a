package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/thatguystone/cog/cfs"
	"github.com/thatguystone/imgcdn"
	"github.com/thatguystone/imgcdn/build"
	"github.com/thatguystone/imgcdn/internal/config"
	"github.com/thatguystone/imgcdn/provider"
	"github.com/thatguystone/imgcdn/watch"
)

type flags struct {
	configs  []string
	output   string
	base     string
	minify   bool
	fragment bool
	jobs     int
	watch    bool
	verbose  bool
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	var fl flags

	cmd := &cobra.Command{
		Use:   "imgcdn [flags] <path>...",
		Short: "Rewrite HTML images to be served through an image CDN",
		Long: "imgcdn rewrites the src, srcset, sizes, and style of every <img> in\n" +
			"the given HTML files and directories so that images are served through\n" +
			"an image transformation CDN.\n\n" +
			"Providers: " + strings.Join(provider.Names(), ", "),
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := log.InfoLevel
			if fl.verbose {
				level = log.DebugLevel
			}

			r := &runner{
				cmd:    cmd,
				flags:  fl,
				paths:  args,
				logger: newLogger(logOut, level),
			}

			return r.run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&fl.configs, "config", "c", nil, "config file to load; may be repeated")
	f.StringVarP(&fl.output, "output", "o", "", "directory to write to (default: rewrite in place)")
	f.StringVar(&fl.base, "base", "", "URL of the site root")
	f.BoolVar(&fl.minify, "minify", false, "minify output")
	f.BoolVar(&fl.fragment, "fragment", false, "treat files as <body> fragments")
	f.IntVarP(&fl.jobs, "jobs", "j", 0, "files to rewrite at once (default: one per CPU)")
	f.BoolVarP(&fl.watch, "watch", "w", false, "rebuild on change")
	f.BoolVarP(&fl.verbose, "verbose", "v", false, "enable verbose logging")

	return cmd
}

type runner struct {
	cmd    *cobra.Command
	flags  flags
	paths  []string
	logger *log.Logger

	cfg *config.C
	b   *build.Builder
}

func (r *runner) run(ctx context.Context) error {
	err := r.load()
	if err != nil {
		return err
	}

	if r.flags.watch && r.cfg.Output == "" {
		return errors.New("--watch needs an output directory; " +
			"rewriting in place would rewrite already-rewritten images")
	}

	err = r.buildAll(ctx)
	if !r.flags.watch {
		return err
	}

	if err != nil {
		r.logger.Error(err)
	}

	return r.watch(ctx)
}

// load (re)loads config and creates a new Builder from it
func (r *runner) load() error {
	cfg := config.New()

	err := cfg.Load(r.flags.configs...)
	if err != nil {
		return err
	}

	if len(r.flags.configs) > 0 {
		last := r.flags.configs[len(r.flags.configs)-1]
		cfg = cfg.InDir(filepath.Dir(last))
	}

	fs := r.cmd.Flags()
	if fs.Changed("output") {
		cfg.Output = r.flags.output
	}

	if fs.Changed("base") {
		cfg.Base = r.flags.base
	}

	if fs.Changed("minify") {
		cfg.Minify = r.flags.minify
	}

	if fs.Changed("fragment") {
		cfg.Fragment = r.flags.fragment
	}

	if fs.Changed("jobs") {
		cfg.Jobs = r.flags.jobs
	}

	lf := logf(r.logger)

	rw, err := cfg.Rewriter(imgcdn.LogTo(lf))
	if err != nil {
		return err
	}

	base, err := cfg.BaseURL()
	if err != nil {
		return err
	}

	r.cfg = cfg
	r.b = build.New(rw,
		build.Base(base),
		build.Output(cfg.Output),
		build.Exts(cfg.Exts...),
		build.Fragment(cfg.Fragment),
		build.Minify(cfg.Minify),
		build.Jobs(cfg.Jobs),
		build.LogTo(lf))

	return nil
}

func (r *runner) buildAll(ctx context.Context) error {
	st, err := r.b.Build(ctx, r.paths...)
	r.logger.Infof("rewrote %d images in %d files", st.Images, st.Files)
	return err
}

func (r *runner) watch(ctx context.Context) error {
	watched := append([]string{}, r.paths...)
	watched = append(watched, r.flags.configs...)

	w, err := watch.New(watched...)
	if err != nil {
		return err
	}

	defer w.Stop()

	err = w.Ignore(r.cfg.Output)
	if err != nil {
		return err
	}

	changes := make(chan watch.Events, 1)
	w.Notify(watch.WatcherFunc(func(evs watch.Events) {
		changes <- evs
	}))

	r.logger.Infof("watching %s", strings.Join(watched, ", "))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case evs := <-changes:
			err := r.changed(ctx, evs)
			if err != nil {
				r.logger.Error(err)
			}
		}
	}
}

func (r *runner) changed(ctx context.Context, evs watch.Events) error {
	if evs.HasExt(".yml", ".yaml") {
		r.logger.Info("config changed, rebuilding everything")

		err := r.load()
		if err != nil {
			return err
		}

		return r.buildAll(ctx)
	}

	changed := evs.Paths(r.cfg.Exts...)
	if len(changed) == 0 {
		return nil
	}

	for _, path := range r.paths {
		root := resolve(path)

		info, err := os.Stat(root)
		if err != nil {
			return errors.Wrapf(err, "failed to stat %q", path)
		}

		var files []string
		if info.IsDir() {
			files = under(root, changed)
		} else if contains(changed, root) {
			files = []string{root}
			root = filepath.Dir(root)
		}

		if len(files) == 0 {
			continue
		}

		st, err := r.b.BuildIn(ctx, root, files...)
		r.logger.Infof("rewrote %d images in %d changed files", st.Images, st.Files)
		if err != nil {
			return err
		}
	}

	return nil
}

// resolve makes path comparable with watch event paths
func resolve(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs
	}

	return real
}

// under gets the paths under root that still exist
func under(root string, paths []string) (in []string) {
	for _, path := range paths {
		if !strings.HasPrefix(path, root+string(filepath.Separator)) {
			continue
		}

		if exists, _ := cfs.FileExists(path); exists {
			in = append(in, path)
		}
	}

	return
}

func contains(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
	}

	return false
}
