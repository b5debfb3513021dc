package loader

import (
	"github.com/spf13/pflag"

	"github.com/searchlab/termindex/pkg/config"
)

// Flags are the corpus options shared by every command. Only flags given on
// the command line override the loaded configuration.
type Flags struct {
	fs            *pflag.FlagSet
	ConfigPath    string
	Source        string
	CorpusPath    string
	StopwordsPath string
	IncludeTitle  bool
}

func (f *Flags) AddFlags(fs *pflag.FlagSet) {
	f.fs = fs
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "path to YAML config file")
	fs.StringVar(&f.Source, "source", config.SourceTREC, "corpus source: trec or postgres")
	fs.StringVar(&f.CorpusPath, "corpus", "", "path to the TREC XML corpus")
	fs.StringVar(&f.StopwordsPath, "stopwords", "", "path to the whitespace separated stopword list")
	fs.BoolVar(&f.IncludeTitle, "include-title", false, "index HEADLINE together with the article text")
}

// Config loads the config file and applies the flags that were set.
func (f *Flags) Config() (*config.Config, error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, err
	}
	if f.fs.Changed("source") {
		cfg.Corpus.Source = f.Source
	}
	if f.fs.Changed("corpus") {
		cfg.Corpus.Path = f.CorpusPath
	}
	if f.fs.Changed("stopwords") {
		cfg.Corpus.StopwordsPath = f.StopwordsPath
	}
	if f.fs.Changed("include-title") {
		cfg.Corpus.IncludeTitle = f.IncludeTitle
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
