package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/chriscorrea/halluscan/internal/app"
	"github.com/chriscorrea/halluscan/internal/classify"
	"github.com/chriscorrea/halluscan/internal/counter"
	"github.com/chriscorrea/halluscan/internal/detect"
	"github.com/chriscorrea/halluscan/internal/embed"
	"github.com/chriscorrea/halluscan/internal/fetch"
	"github.com/chriscorrea/halluscan/internal/filter"
	"github.com/chriscorrea/halluscan/internal/nlp"
	"github.com/chriscorrea/halluscan/internal/similarity"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// buildConfig constructs an app.Config from flags, viper settings and arguments
func buildConfig(cmd *cobra.Command, args []string) (app.Config, error) {
	selector, _ := cmd.Flags().GetString("selector")
	includeAll, _ := cmd.Flags().GetBool("include-all")
	quiet, _ := cmd.Flags().GetBool("quiet")
	debug, _ := cmd.Flags().GetBool("debug")

	format, err := app.ParseOutputFormat(viper.GetString("format"))
	if err != nil {
		return app.Config{}, err
	}

	if lang := viper.GetString("language"); lang != "en" {
		return app.Config{}, fmt.Errorf("unsupported language %q (only \"en\" is supported)", lang)
	}

	candidate, err := readCandidate(cmd, args[0])
	if err != nil {
		return app.Config{}, err
	}

	return app.Config{
		Document:     args[0],
		Candidate:    candidate,
		Selector:     selector,
		IncludeAll:   includeAll,
		OutputFormat: format,
		Quiet:        quiet,
		Debug:        debug,
	}, nil
}

// readCandidate takes the candidate text from --candidate, --candidate-file, or an
// interactive prompt on stdin, in that order
func readCandidate(cmd *cobra.Command, document string) (string, error) {
	if cmd.Flags().Changed("candidate") {
		text, _ := cmd.Flags().GetString("candidate")
		return text, nil
	}

	if path, _ := cmd.Flags().GetString("candidate-file"); path != "" {
		if path == "-" && document == "-" {
			return "", fmt.Errorf("document and candidate cannot both be read from stdin")
		}
		data, err := fetch.ReadAll(cmd.Context(), path)
		if err != nil {
			return "", fmt.Errorf("failed to read candidate: %w", err)
		}
		return string(data), nil
	}

	if document == "-" {
		return "", fmt.Errorf("--candidate or --candidate-file is required when the document is read from stdin")
	}

	fmt.Fprint(os.Stderr, "Enter the candidate text: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read candidate: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// embeddingCache reports how many texts a run embedded
type embeddingCache interface {
	Len() int
}

// buildSemantic picks the semantic scorer: contextual token embeddings from a
// text-embeddings-inference server, or pooled sentence embeddings from an OpenAI-compatible
// endpoint
func buildSemantic(timeout time.Duration) (similarity.Scorer, embeddingCache, error) {
	batchSize := viper.GetInt("embedding.batch_size")

	switch name := strings.ToLower(viper.GetString("semantic.scorer")); name {
	case "bertscore":
		embedder, err := embed.NewTEIEmbedder(embed.TEIConfig{
			URL:       viper.GetString("semantic.url"),
			BatchSize: batchSize,
			Timeout:   timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		cached := embed.NewCachedTokenEmbedder(embedder, viper.GetString("semantic.url"))
		return similarity.NewSemanticScorer(cached), cached, nil

	case "embedding":
		embedder, err := embed.NewOpenAIEmbedder(embed.OpenAIConfig{
			BaseURL:   viper.GetString("embedding.base_url"),
			APIKey:    viper.GetString("embedding.api_key"),
			Model:     viper.GetString("embedding.model"),
			BatchSize: batchSize,
			Timeout:   timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		cached := embed.NewCachedEmbedder(embedder, embedder.Model())
		return similarity.NewSentenceScorer(cached), cached, nil

	default:
		return nil, nil, fmt.Errorf("unknown semantic scorer %q (want bertscore or embedding)", name)
	}
}

// buildDeps wires the linguistic pipeline, both scorers, and the entailment classifier
func buildDeps() (app.Deps, embeddingCache, error) {
	pipeline := nlp.NewProsePipeline()
	important := filter.New(pipeline, viper.GetBool("lexical.stem"))

	var lexical similarity.Scorer
	switch name := strings.ToLower(viper.GetString("lexical.scorer")); name {
	case "tfidf":
		lexical = similarity.NewTFIDFScorer(important)
	case "bm25":
		lexical = similarity.NewBM25Scorer(important)
	default:
		return app.Deps{}, nil, fmt.Errorf("unknown lexical scorer %q (want tfidf or bm25)", name)
	}

	timeout := viper.GetDuration("http.timeout")

	semantic, cache, err := buildSemantic(timeout)
	if err != nil {
		return app.Deps{}, nil, err
	}

	tokens, err := counter.NewTokenCounter()
	if err != nil {
		return app.Deps{}, nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}
	classifier, err := classify.NewHTTPClassifier(classify.HTTPConfig{
		URL:            viper.GetString("entailment.url"),
		Labels:         viper.GetStringSlice("entailment.labels"),
		MaxInputTokens: viper.GetInt("entailment.max_input_tokens"),
		Truncator:      tokens,
		Timeout:        timeout,
	})
	if err != nil {
		return app.Deps{}, nil, err
	}

	detector, err := detect.New(detect.Deps{
		Lexical:    lexical,
		Semantic:   semantic,
		Classifier: classifier,
	}, detect.Thresholds{
		Lexical:  viper.GetFloat64("lexical.threshold"),
		Semantic: viper.GetFloat64("semantic.threshold"),
	})
	if err != nil {
		return app.Deps{}, nil, err
	}

	return app.Deps{Splitter: pipeline, Detector: detector, Stderr: os.Stderr}, cache, nil
}

// setupLogger configures the default slog logger based on debug mode
func setupLogger(debug bool) {
	var level slog.Level
	if debug {
		level = slog.LevelDebug
	} else {
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler).With("run", uuid.NewString()))
}

var rootCmd = &cobra.Command{
	Use:   "halluscan <document>",
	Short: "Check generated text for hallucinations against a reference document",
	Long: `Halluscan aligns every sentence of a candidate text with its most similar sentences in a
reference document (PDF, HTML or plain text), then asks an entailment model whether the
reference supports it. Lexical and semantic similarity each yield their own verdict.

Examples:
  halluscan prospectus.pdf -c "The university was founded in 1942."
  halluscan https://example.com/about --candidate-file answer.txt --format json
  halluscan handbook.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		setupLogger(debug)
		if used := viper.ConfigFileUsed(); used != "" {
			slog.Debug("Using config file", "path", used)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		cmd.SetContext(ctx)

		config, err := buildConfig(cmd, args)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		deps, cache, err := buildDeps()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		result, err := app.Run(ctx, config, deps)
		if err != nil {
			return fmt.Errorf("halluscan failed: %w", err)
		}
		slog.Debug("Embedding cache", "scorer", viper.GetString("semantic.scorer"), "sentences", cache.Len())

		return app.Render(os.Stdout, result, config.OutputFormat)
	},
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./halluscan.yaml or ~/.config/halluscan/config.yaml)")

	// candidate input
	rootCmd.Flags().StringP("candidate", "c", "", "Candidate text to check")
	rootCmd.Flags().String("candidate-file", "", "Read the candidate text from a file, URL, or - for stdin")
	rootCmd.MarkFlagsMutuallyExclusive("candidate", "candidate-file")

	// document extraction
	rootCmd.Flags().StringP("selector", "s", "", "CSS selector for HTML documents")
	rootCmd.Flags().BoolP("include-all", "i", false, "Include all HTML content without readability filtering")

	// scoring
	rootCmd.Flags().Float64("lexical-threshold", detect.DefaultLexicalThreshold, "Mean lexical score below which the text is hallucinated")
	rootCmd.Flags().Float64("semantic-threshold", detect.DefaultSemanticThreshold, "Mean semantic score below which the text is hallucinated")
	rootCmd.Flags().String("lexical-scorer", "tfidf", "Lexical scorer: tfidf or bm25")
	rootCmd.Flags().String("semantic-scorer", "bertscore", "Semantic scorer: bertscore or embedding")
	rootCmd.Flags().Bool("stem", false, "Stem important words before lexical scoring")
	rootCmd.Flags().String("language", "en", "Document language")

	// model services
	rootCmd.Flags().String("bertscore-url", "http://localhost:8082", "Text-embeddings-inference server for contextual token embeddings")
	rootCmd.Flags().String("embedding-url", "http://localhost:8080/v1", "OpenAI-compatible embeddings endpoint")
	rootCmd.Flags().String("embedding-model", "bert-base-uncased", "Embedding model identifier")
	rootCmd.Flags().Int("batch-size", embed.DefaultBatchSize, "Texts per embeddings request")
	rootCmd.Flags().String("entailment-url", "http://localhost:8081", "Entailment classifier server")
	rootCmd.Flags().Int("max-input-tokens", classify.DefaultMaxInputTokens, "Token budget of a premise/hypothesis pair")
	rootCmd.Flags().Duration("timeout", 60*time.Second, "Timeout per model service request")

	// output
	rootCmd.Flags().String("format", "text", "Output format: text, json or yaml")
	rootCmd.Flags().BoolP("quiet", "q", false, "Suppress warnings and progress")
	rootCmd.Flags().BoolP("debug", "D", false, "Enable debug logging")
	_ = rootCmd.Flags().MarkHidden("debug")

	bindings := map[string]string{
		"lexical.threshold":           "lexical-threshold",
		"semantic.threshold":          "semantic-threshold",
		"lexical.scorer":              "lexical-scorer",
		"semantic.scorer":             "semantic-scorer",
		"semantic.url":                "bertscore-url",
		"lexical.stem":                "stem",
		"language":                    "language",
		"embedding.base_url":          "embedding-url",
		"embedding.model":             "embedding-model",
		"embedding.batch_size":        "batch-size",
		"entailment.url":              "entailment-url",
		"entailment.max_input_tokens": "max-input-tokens",
		"http.timeout":                "timeout",
		"format":                      "format",
	}
	for key, flag := range bindings {
		_ = viper.BindPFlag(key, rootCmd.Flags().Lookup(flag))
	}
	viper.SetDefault("entailment.labels", classify.DefaultLabels)
	viper.SetDefault("embedding.api_key", "")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("halluscan")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "halluscan"))
		}
	}

	viper.SetEnvPrefix("HALLUSCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: failed to read config: %v\n", err)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
