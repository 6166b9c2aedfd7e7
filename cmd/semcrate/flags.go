package main

import (
	"github.com/spf13/cobra"

	"github.com/c360studio/semcrate/config"
)

// runFlags are the flags shared by consolidate, merge and watch.
type runFlags struct {
	output          string
	pretty          bool
	format          string
	noSubcrateType  bool
	noExtendContext bool
	conformsTo      string
	loadConcurrency int
	publish         string
}

func (f *runFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.output, "output", "o", "", "Output file (default: stdout)")
	fs.BoolVar(&f.pretty, "pretty", false, "Pretty-print JSON output")
	fs.StringVar(&f.format, "format", "jsonld", "Output format (jsonld, ntriples, turtle)")
	fs.BoolVar(&f.noSubcrateType, "no-subcrate-type", false, "Don't add Subcrate type to converted folders")
	fs.BoolVar(&f.noExtendContext, "no-extend-context", false, "Don't extend @context with consolidation vocabulary")
	fs.StringVar(&f.conformsTo, "conforms-to-policy", "strip", "How folders drop RO-Crate conformsTo (strip, filter)")
	fs.IntVar(&f.loadConcurrency, "load-concurrency", 1, "Sibling subcrates loaded at once")
	fs.StringVar(&f.publish, "publish", "", "NATS URL to publish the consolidated crate to")
}

// apply overrides cfg with the flags the user actually set.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("pretty") {
		cfg.Output.Pretty = f.pretty
	}
	if changed("format") {
		cfg.Output.Format = f.format
	}
	if changed("no-subcrate-type") {
		cfg.Consolidate.AddSubcrateType = !f.noSubcrateType
	}
	if changed("no-extend-context") {
		cfg.Consolidate.ExtendContext = !f.noExtendContext
	}
	if changed("conforms-to-policy") {
		cfg.Consolidate.ConformsToPolicy = f.conformsTo
	}
	if changed("load-concurrency") {
		cfg.Consolidate.LoadConcurrency = f.loadConcurrency
	}
	if changed("publish") {
		cfg.NATS.URL = f.publish
	}
}
