package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/docuchat/docuchat/plugin/llm"
	"github.com/docuchat/docuchat/plugin/storage/s3"
	"github.com/docuchat/docuchat/plugin/textsplitter"
	"github.com/docuchat/docuchat/plugin/vectorstore"
	"github.com/docuchat/docuchat/server"
	"github.com/docuchat/docuchat/server/chatbot"
	"github.com/docuchat/docuchat/server/profile"
	"github.com/docuchat/docuchat/store"
)

var rootCmd = &cobra.Command{
	Use:   "docuchat",
	Short: "Document-grounded chat server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		p := profile.FromViper(viper.GetViper())
		if err := p.Validate(); err != nil {
			return err
		}

		completer, err := llm.NewClient(p)
		if err != nil {
			return err
		}
		embedFn, err := llm.NewEmbeddingFunc(p)
		if err != nil {
			return err
		}

		vectors, err := vectorstore.NewPersistent(p.Data, embedFn)
		if err != nil {
			return fmt.Errorf("open vector store: %w", err)
		}

		var objectStore *s3.Client
		if p.ObjectStorageConfigured() {
			objectStore, err = s3.NewClient(ctx, s3.Config{
				AccessKey: p.S3AccessKey,
				SecretKey: p.S3SecretKey,
				Endpoint:  p.S3Endpoint,
				Region:    p.S3Region,
				Bucket:    p.S3Bucket,
			})
			if err != nil {
				return fmt.Errorf("connect object storage: %w", err)
			}
			slog.Info("object storage enabled", "bucket", p.S3Bucket)
		}

		sessions := store.NewRegistry()
		splitter := textsplitter.New(p.ChunkSize, p.ChunkOverlap, "\n")
		bot := chatbot.New(sessions, vectors, completer, splitter)

		s := server.New(p, sessions, bot, vectors, objectStore)

		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Start()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			slog.Info("shutting down", "signal", sig.String())
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("addr", "", "bind address, empty for all interfaces")
	flags.Int("port", 8000, "HTTP listen port")
	flags.String("data", "data", "directory for persistent state")
	flags.String("llm-provider", "ollama", "completion backend: ollama or openai")
	flags.String("llm-model", "llama3.1", "completion model name")
	flags.String("embedding-provider", "ollama", "embedding backend: ollama or openai")
	flags.String("embedding-model", "nomic-embed-text", "embedding model name")
	flags.String("openai-api-key", "", "API key for the OpenAI-compatible endpoint")
	flags.String("openai-base-url", "", "override for the OpenAI-compatible endpoint")
	flags.String("ollama-url", "http://localhost:11434", "Ollama server URL")
	flags.Int("chunk-size", 1000, "maximum chunk length in characters")
	flags.Int("chunk-overlap", 200, "characters carried over between chunks")
	flags.Int("default-k", 3, "retrieval depth when a request omits k")
	flags.String("s3-bucket", "", "S3 bucket for raw uploads, empty disables cloud backup")
	flags.String("s3-region", "", "S3 region")
	flags.String("s3-endpoint", "", "S3 endpoint override for MinIO and friends")
	flags.String("s3-access-key", "", "S3 access key")
	flags.String("s3-secret-key", "", "S3 secret key")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("docuchat")
	// DOCUCHAT_LLM_PROVIDER binds to --llm-provider.
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func main() {
	// Missing .env is fine; env vars and flags still apply.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
