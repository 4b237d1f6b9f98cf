package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ZinoKader/reqcheck/model"
	"github.com/ZinoKader/reqcheck/pkg/artifacts"
	"github.com/ZinoKader/reqcheck/pkg/check"
	"github.com/ZinoKader/reqcheck/pkg/data"
)

type options struct {
	configPath string
	format     string
	outDir     string
	logLevel   string
	history    string
	strict     bool
}

var errFindings = errors.New("manifest check failed")

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "reqcheck",
		Short:         "Check Python requirements manifests",
		Long:          `Parses requirements files, reports lines that are not valid requirement specifiers, flags branch pins and optionally checks every requirement against the package index.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&opts.format, "format", "text", "report format: text, json or yaml")
	flags.StringVar(&opts.outDir, "out", "", "write the report into this directory instead of stdout")
	flags.StringVar(&opts.logLevel, "log-level", "warning", "log level")
	flags.StringVar(&opts.history, "history", "", "append a one-line summary of each run to this file")
	flags.BoolVar(&opts.strict, "strict", false, "fail on warnings too")

	root.AddCommand(
		&cobra.Command{
			Use:   "lint FILE...",
			Short: "Check manifest syntax, duplicates and branch pins offline",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, opts, args, false)
			},
		},
		&cobra.Command{
			Use:   "resolve FILE...",
			Short: "Lint, then check requirements against the package index and GitHub",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, opts, args, true)
			},
		},
		&cobra.Command{
			Use:   "normalize NAME...",
			Short: "Print the normalized form of project names",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				for _, name := range args {
					fmt.Fprintln(cmd.OutOrStdout(), model.NormalizeName(name))
				}
				return nil
			},
		},
	)
	return root
}

func run(cmd *cobra.Command, opts *options, files []string, online bool) error {
	cfg, err := data.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}

	var manifests []model.Manifest
	for _, file := range files {
		tree, err := data.ReadManifestTree(file)
		if err != nil {
			return err
		}
		manifests = append(manifests, tree...)
	}

	checker, err := check.NewFromConfig(*cfg, os.Getenv("GITHUB_TOKEN"))
	if err != nil {
		return err
	}

	var report check.Report
	if online {
		report, err = checker.Resolve(cmd.Context(), manifests)
		if err != nil {
			return err
		}
	} else {
		report = checker.Lint(manifests)
	}
	log.WithFields(log.Fields{"manifests": report.Manifests, "findings": len(report.Findings)}).Info("checked manifests")

	content, err := report.Render(opts.format)
	if err != nil {
		return err
	}
	if _, err := emit(cmd.OutOrStdout(), opts.outDir, opts.format, content); err != nil {
		return err
	}

	if opts.history != "" {
		line := fmt.Sprintf("%s %s", time.Now().UTC().Format(time.RFC3339), report.Summary())
		if err := data.AppendToFile(opts.history, line); err != nil {
			log.WithError(err).Warning("could not append to history")
		}
	}

	if !report.OK() || (opts.strict && len(report.Warnings()) > 0) {
		return errFindings
	}
	return nil
}

// emit writes the rendered report to a file below outDir, or to stdout
// when outDir is empty. An existing report in outDir is kept and the new
// one gets a numbered name. It returns the files written.
func emit(stdout io.Writer, outDir, format string, content []byte) ([]string, error) {
	name := "reqcheck-report" + check.Extension(format)

	if outDir == "" {
		memory := artifacts.NewMemoryBuffersManager()
		defer memory.Close()
		if err := writeReport(memory, name, content); err != nil {
			return nil, err
		}
		_, err := io.Copy(stdout, memory.Buffers()[name])
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}
	files, err := artifacts.NewMultiFileManager(outDir)
	if err != nil {
		return nil, err
	}
	defer files.Close()

	postfix := filepath.Base(data.FreeName(filepath.Join(outDir, name)))
	if err := writeReport(files, postfix, content); err != nil {
		return nil, err
	}
	written := files.Artifacts()["report"]
	log.WithField("paths", written).Info("wrote report")
	return written, nil
}

func writeReport(manager artifacts.Manager, postfix string, content []byte) error {
	f, err := manager.Open("report", postfix, "xt")
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func init() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	log.SetOutput(os.Stderr)
}
