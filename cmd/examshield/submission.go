package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	appI18n "github.com/examnetshield/examshield/internal/i18n"
	"github.com/examnetshield/examshield/internal/model"
	"github.com/examnetshield/examshield/internal/store"
	"github.com/examnetshield/examshield/internal/upload"
)

func submissionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submission",
		Short: "Store and list submitted files",
	}
	cmd.AddCommand(submissionAddCmd(), submissionListCmd())
	return cmd
}

func submissionAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <exam-id> <registration-number> <file>",
		Short: "Store a file submitted by a student of a running exam",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, err := parseExamID(args[0])
			if err != nil {
				return err
			}
			regNumber, path := args[1], args[2]

			e, closeEnv, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer closeEnv()

			var st *model.Student
			if ip, _ := cmd.Flags().GetString("ip"); ip != "" {
				st, err = e.store.RegisterStudent(examID, regNumber, ip)
			} else {
				st, err = e.store.GetStudentByRegNumber(examID, regNumber)
				if err == nil && st == nil {
					err = store.ErrStudentNotFound
				}
			}
			if err != nil {
				return e.userError(err, nil)
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()

			files := upload.Store{Dir: e.cfg.UploadDir, MaxBytes: e.cfg.MaxUploadBytes}
			saved, err := files.Save(f, filepath.Base(path))
			if err != nil {
				return e.userError(err, nil)
			}

			_, err = e.store.AddSubmission(model.Submission{
				ExamID:       examID,
				StudentID:    st.ID,
				OriginalName: saved.OriginalName,
				StoredName:   saved.StoredName,
				Size:         saved.Size,
			})
			if err != nil {
				if rmErr := os.Remove(saved.Path); rmErr != nil {
					slog.Warn("remove orphaned upload", "path", saved.Path, "error", rmErr)
				}
				return e.userError(err, nil)
			}
			slog.Info("submission stored", "exam_id", examID, "registration_number", regNumber,
				"file", saved.StoredName, "size", saved.Size)
			e.message(cmd, appI18n.Td(e.ctx, "SubmissionStored", map[string]any{"Name": saved.OriginalName, "Reg": regNumber}))
			return nil
		},
	}
	cmd.Flags().String("ip", "", "Check the submission against the student's registered address")
	return cmd
}

func submissionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <exam-id>",
		Short: "List the submissions of an exam",
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

			students, err := e.store.ListStudents(examID)
			if err != nil {
				return fmt.Errorf("list students: %w", err)
			}
			regByID := make(map[int64]string, len(students))
			for _, st := range students {
				regByID[st.ID] = st.RegistrationNumber
			}

			subs, err := e.store.ListSubmissions(examID)
			if err != nil {
				return fmt.Errorf("list submissions: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REGISTRATION\tFILE\tSIZE\tSUBMITTED\tSTORED AS")
			for _, sub := range subs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					regByID[sub.StudentID], sub.OriginalName, humanize.Bytes(uint64(sub.Size)),
					humanize.Time(sub.SubmittedAt), sub.StoredName)
			}
			return tw.Flush()
		},
	}
}
