package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appI18n "github.com/examnetshield/examshield/internal/i18n"
	"github.com/examnetshield/examshield/internal/model"
	"github.com/examnetshield/examshield/internal/store"
	"github.com/examnetshield/examshield/internal/upload"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "examshield",
		Short:        "Exam proctoring administration: exams, students, question allocation and submissions",
		SilenceUsage: true,
	}

	f := root.PersistentFlags()
	f.String("db", "exams.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Message language (en, ru)")
	f.String("upload-dir", "uploads", "Directory for submitted files")
	f.Int64("max-upload-bytes", upload.DefaultMaxBytes, "Maximum size of one submitted file")
	f.String("llm-url", "", "OpenAI-compatible API base URL for question drafting (empty disables it)")
	f.String("llm-key", "", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	root.AddCommand(examCmd(), questionCmd(), studentCmd(), submissionCmd())
	return root
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMSHIELD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examshield")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examshield")
	v.AddConfigPath("/etc/examshield")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// env is what every subcommand works with.
type env struct {
	ctx   context.Context
	cfg   model.AppConfig
	store *store.Store
}

// openEnv reads configuration, sets up logging and messages, and opens the
// database. The caller must call close.
func openEnv(cmd *cobra.Command) (*env, func(), error) {
	v := viperForCmd(cmd)
	setupLogging(v)

	cfg := model.AppConfig{
		DBPath:         v.GetString("db"),
		UploadDir:      v.GetString("upload-dir"),
		MaxUploadBytes: v.GetInt64("max-upload-bytes"),
		Lang:           v.GetString("lang"),
		LLMURL:         v.GetString("llm-url"),
		LLMKey:         v.GetString("llm-key"),
		LLMModel:       v.GetString("llm-model"),
	}

	if err := appI18n.Init(cfg.Lang); err != nil {
		return nil, nil, fmt.Errorf("init i18n: %w", err)
	}

	db, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	e := &env{
		ctx:   appI18n.WithLang(cmd.Context(), cfg.Lang),
		cfg:   cfg,
		store: db,
	}
	return e, func() { _ = db.Close() }, nil
}

// message prints a localized line to the command's output.
func (e *env) message(cmd *cobra.Command, text string) {
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), text)
}

// userError turns known store and upload errors into localized messages.
func (e *env) userError(err error, data map[string]any) error {
	var id string
	switch {
	case errors.Is(err, store.ErrNoQuestions):
		id = "NoQuestions"
	case errors.Is(err, store.ErrDuplicateQuestionNumber):
		id = "DuplicateQuestionNumber"
	case errors.Is(err, store.ErrStudentNotFound):
		id = "InvalidRegistration"
	case errors.Is(err, store.ErrIPMismatch):
		id = "RegisteredPCMismatch"
	case errors.Is(err, store.ErrExamEnded):
		id = "ExamAlreadyEnded"
	case errors.Is(err, store.ErrExamNotRunning):
		id = "ExamNotRunning"
	case errors.Is(err, upload.ErrFileType):
		id = "FileTypeNotAllowed"
	case errors.Is(err, upload.ErrFileTooLarge):
		id = "FileTooLarge"
	default:
		return err
	}
	return fmt.Errorf("%s: %w", appI18n.Td(e.ctx, id, data), err)
}

func parseExamID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid exam ID %q", arg)
	}
	return id, nil
}
