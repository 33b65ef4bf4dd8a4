package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/examnetshield/examshield/internal/distribute"
	appI18n "github.com/examnetshield/examshield/internal/i18n"
	"github.com/examnetshield/examshield/internal/model"
	"github.com/examnetshield/examshield/internal/roster"
	"github.com/examnetshield/examshield/internal/sheet"
)

func examCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exam",
		Short: "Create, list, start and end exams",
	}
	cmd.AddCommand(examCreateCmd(), examListCmd(), examStartCmd(), examEndCmd(), examRosterCmd())
	return cmd
}

func examCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an exam and its registration slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, closeEnv, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer closeEnv()

			name, _ := cmd.Flags().GetString("name")
			duration, _ := cmd.Flags().GetFloat64("duration")
			prefix, _ := cmd.Flags().GetString("prefix")
			regRange, _ := cmd.Flags().GetString("range")

			exam := model.Exam{Name: name, Duration: duration, RegPrefix: prefix, RegRange: regRange}
			if err := model.Validate(exam); err != nil {
				return err
			}
			start, end, err := roster.ParseRange(regRange)
			if err != nil {
				return err
			}

			id, err := e.store.CreateExam(exam, start, end)
			if err != nil {
				return fmt.Errorf("create exam: %w", err)
			}
			count := end - start + 1
			slog.Info("exam created", "exam_id", id, "students", count)
			e.message(cmd, appI18n.Tpd(e.ctx, "ExamCreated", count, map[string]any{"Name": name, "Count": count}))
			return nil
		},
	}
	cmd.Flags().String("name", "", "Exam name")
	cmd.Flags().Float64("duration", 1, "Duration in hours")
	cmd.Flags().String("prefix", "", "Registration number prefix")
	cmd.Flags().String("range", "", "Registration number range, start-end")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("prefix")
	_ = cmd.MarkFlagRequired("range")
	return cmd
}

func examListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List exams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, closeEnv, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer closeEnv()

			exams, err := e.store.ListExams()
			if err != nil {
				return fmt.Errorf("list exams: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tDURATION\tREGISTRATION\tSTATUS\tSTUDENTS\tQUESTIONS")
			for _, ex := range exams {
				students, err := e.store.StudentCount(ex.ID)
				if err != nil {
					return err
				}
				questions, err := e.store.QuestionCount(ex.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%d\t%s\t%gh\t%s%s\t%s\t%d\t%d\n",
					ex.ID, ex.Name, ex.Duration, ex.RegPrefix, ex.RegRange, ex.Status(), students, questions)
			}
			return tw.Flush()
		},
	}
}

func examStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <exam-id>",
		Short: "Allocate questions to all students and start the exam",
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

			d := distribute.New(nil)
			if cmd.Flags().Changed("seed") {
				seed, _ := cmd.Flags().GetUint64("seed")
				d = distribute.New(newSeededRand(seed))
			}

			res, err := e.store.AllocateQuestions(examID, d)
			if err != nil {
				return e.userError(err, nil)
			}
			e.message(cmd, appI18n.Tp(e.ctx, "QuestionsAllocated", res.Students))
			if res.Degraded > 0 {
				e.message(cmd, appI18n.Tp(e.ctx, "AllocationDegraded", res.Degraded))
			}
			return nil
		},
	}
	cmd.Flags().Uint64("seed", 0, "Seed for a reproducible allocation")
	return cmd
}

func examEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end <exam-id>",
		Short: "Mark an exam as ended",
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

			if err := e.store.SetExamEnded(examID); err != nil {
				return fmt.Errorf("end exam %d: %w", examID, err)
			}
			slog.Info("exam ended", "exam_id", examID)
			e.message(cmd, appI18n.Td(e.ctx, "ExamEnded", map[string]any{"ID": examID}))
			return nil
		},
	}
}

func examRosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster <exam-id>",
		Short: "Show or export the allocation roster of an exam",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, err := parseExamID(args[0])
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			if format == "xlsx" && output == "" {
				return fmt.Errorf("--output is required for xlsx")
			}

			e, closeEnv, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer closeEnv()

			export, err := e.store.ExportExam(examID)
			if err != nil {
				return fmt.Errorf("export exam %d: %w", examID, err)
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			switch format {
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(export)
			case "xlsx":
				exam, err := e.store.GetExam(examID)
				if err != nil {
					return err
				}
				return sheet.WriteRoster(w, exam, export.Students)
			case "table":
				return writeRosterTable(w, export.Students)
			default:
				return fmt.Errorf("unknown format %q (want table, json or xlsx)", format)
			}
		},
	}
	cmd.Flags().StringP("format", "f", "table", "Output format: table, json, xlsx")
	cmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	return cmd
}

func newSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func writeRosterTable(w io.Writer, rows []model.RosterRow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REGISTRATION\tIP\tSUBMISSIONS\tQUESTION")
	for _, r := range rows {
		ip := r.IPAddress
		if ip == "" {
			ip = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.RegistrationNumber, ip, r.Submissions, r.Question)
	}
	return tw.Flush()
}
