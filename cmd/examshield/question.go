package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	appI18n "github.com/examnetshield/examshield/internal/i18n"
	"github.com/examnetshield/examshield/internal/llm"
	"github.com/examnetshield/examshield/internal/model"
	"github.com/examnetshield/examshield/internal/sheet"
	"github.com/examnetshield/examshield/internal/store"
)

func questionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "question",
		Short: "Manage the question pool of an exam",
	}
	cmd.AddCommand(questionAddCmd(), questionListCmd(), questionImportCmd(), questionDraftCmd())
	return cmd
}

func questionAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <exam-id>",
		Short: "Add one question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, err := parseExamID(args[0])
			if err != nil {
				return err
			}
			e, closeEnv, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer closeEnv()

			if _, err := e.store.GetExam(examID); err != nil {
				return fmt.Errorf("get exam %d: %w", examID, err)
			}

			number, _ := cmd.Flags().GetInt("number")
			text, _ := cmd.Flags().GetString("text")
			if number == 0 {
				if number, err = e.store.NextQuestionNumber(examID); err != nil {
					return err
				}
			}

			q := model.Question{ExamID: examID, Number: number, Text: strings.TrimSpace(text)}
			if err := addQuestion(e, q); err != nil {
				return err
			}
			e.message(cmd, appI18n.Td(e.ctx, "QuestionAdded", map[string]any{"Number": number}))
			return nil
		},
	}
	cmd.Flags().IntP("number", "n", 0, "Question number (default: next free number)")
	cmd.Flags().StringP("text", "t", "", "Question text")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func addQuestion(e *env, q model.Question) error {
	if err := model.Validate(q); err != nil {
		return err
	}
	if _, err := e.store.AddQuestion(q); err != nil {
		return e.userError(err, map[string]any{"Number": q.Number})
	}
	return nil
}

func questionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <exam-id>",
		Short: "List the questions of an exam",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, err := parseExamID(args[0])
			if err != nil {
				return err
			}
			e, closeEnv, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer closeEnv()

			questions, err := e.store.ListQuestions(examID)
			if err != nil {
				return fmt.Errorf("list questions: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NUMBER\tTEXT")
			for _, q := range questions {
				fmt.Fprintf(tw, "%d\t%s\n", q.Number, q.Text)
			}
			return tw.Flush()
		},
	}
}

func questionImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <exam-id> <file.xlsx|file.json>...",
		Short: "Import questions from Excel or JSON files",
		Long: `Import questions from Excel workbooks (header row with "number" and "text")
or JSON arrays of {"number", "text"} objects. A file that was already
imported into the exam is skipped.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, err := parseExamID(args[0])
			if err != nil {
				return err
			}
			e, closeEnv, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer closeEnv()

			if _, err := e.store.GetExam(examID); err != nil {
				return fmt.Errorf("get exam %d: %w", examID, err)
			}
			for _, path := range args[1:] {
				if err := importQuestions(cmd, e, examID, path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func importQuestions(cmd *cobra.Command, e *env, examID int64, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	key := importKey(examID, path)
	hash := sha256sum(data)
	storedHash, err := e.store.GetImportedFileHash(key)
	if err != nil {
		return fmt.Errorf("check import status for %s: %w", path, err)
	}
	if storedHash == hash {
		slog.Info("questions file unchanged, skipping", "path", path)
		e.message(cmd, appI18n.T(e.ctx, "ImportUnchanged"))
		return nil
	}
	if storedHash != "" {
		slog.Warn("questions file changed since last import, importing new numbers only", "path", path)
	}

	var items []model.QuestionImport
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		var report *sheet.ImportReport
		items, report, err = sheet.ReadQuestions(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		for _, re := range report.Errors {
			slog.Warn("skipped question row", "path", path, "row", re.Row, "error", re.Error)
		}
	case ".json":
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported question file %s (want .xlsx or .json)", path)
	}

	imported := 0
	for _, qi := range items {
		q := model.Question{ExamID: examID, Number: qi.Number, Text: strings.TrimSpace(qi.Text)}
		if err := addQuestion(e, q); err != nil {
			if errors.Is(err, store.ErrDuplicateQuestionNumber) {
				slog.Warn("skipped duplicate question", "path", path, "number", qi.Number)
				continue
			}
			return fmt.Errorf("insert question %d from %s: %w", qi.Number, path, err)
		}
		imported++
	}

	if err := e.store.SetImportedFileHash(key, hash); err != nil {
		return fmt.Errorf("record import for %s: %w", path, err)
	}
	slog.Info("imported questions", "path", path, "count", imported)
	e.message(cmd, appI18n.Tp(e.ctx, "QuestionsImported", imported))
	return nil
}

func importKey(examID int64, path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return fmt.Sprintf("%d:%s", examID, path)
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func questionDraftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft <exam-id>",
		Short: "Draft questions with an LLM and add them to the exam",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, err := parseExamID(args[0])
			if err != nil {
				return err
			}
			e, closeEnv, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer closeEnv()

			if e.cfg.LLMURL == "" {
				return errors.New(appI18n.T(e.ctx, "DraftingDisabled"))
			}
			topic, _ := cmd.Flags().GetString("topic")
			count, _ := cmd.Flags().GetInt("count")

			if _, err := e.store.GetExam(examID); err != nil {
				return fmt.Errorf("get exam %d: %w", examID, err)
			}
			existing, err := e.store.QuestionTexts(examID)
			if err != nil {
				return err
			}

			client, err := llm.New(e.cfg.LLMURL, e.cfg.LLMKey, e.cfg.LLMModel)
			if err != nil {
				return fmt.Errorf("create LLM client: %w", err)
			}
			if err := client.Ping(e.ctx); err != nil {
				return fmt.Errorf("LLM health check: %w", err)
			}
			slog.Info("LLM endpoint OK", "url", e.cfg.LLMURL, "model", e.cfg.LLMModel)

			texts, err := client.DraftQuestions(e.ctx, topic, count, existing)
			if err != nil {
				return fmt.Errorf("draft questions: %w", err)
			}

			added := 0
			for _, text := range texts {
				number, err := e.store.NextQuestionNumber(examID)
				if err != nil {
					return err
				}
				if err := addQuestion(e, model.Question{ExamID: examID, Number: number, Text: text}); err != nil {
					return err
				}
				added++
			}
			slog.Info("drafted questions", "exam_id", examID, "requested", count, "added", added)
			e.message(cmd, appI18n.Tp(e.ctx, "QuestionsDrafted", added))
			return nil
		},
	}
	cmd.Flags().String("topic", "", "Topic of the questions")
	cmd.Flags().IntP("count", "c", 5, fmt.Sprintf("Number of questions (max %d)", llm.MaxDraft))
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}
