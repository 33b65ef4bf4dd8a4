package main

import (
	"fmt"
	"net"
	"text/tabwriter"

	"github.com/spf13/cobra"

	appI18n "github.com/examnetshield/examshield/internal/i18n"
)

func studentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "student",
		Short: "List and register students",
	}
	cmd.AddCommand(studentListCmd(), studentRegisterCmd())
	return cmd
}

func studentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <exam-id>",
		Short: "List the students of an exam in registration order",
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
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REGISTRATION\tIP\tQUESTION")
			for _, st := range students {
				ip := st.IPAddress
				if ip == "" {
					ip = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", st.RegistrationNumber, ip, st.Question())
			}
			return tw.Flush()
		},
	}
}

func studentRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <exam-id> <registration-number>",
		Short: "Bind a registration number to the address of the student's PC",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, err := parseExamID(args[0])
			if err != nil {
				return err
			}
			ip, _ := cmd.Flags().GetString("ip")
			if net.ParseIP(ip) == nil {
				return fmt.Errorf("invalid IP address %q", ip)
			}

			e, closeEnv, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer closeEnv()

			st, err := e.store.RegisterStudent(examID, args[1], ip)
			if err != nil {
				return e.userError(err, nil)
			}
			e.message(cmd, appI18n.T(e.ctx, "RegistrationSuccessful"))
			if q := st.Question(); q != "" {
				e.message(cmd, q)
			}
			return nil
		},
	}
	cmd.Flags().String("ip", "", "Address of the student's PC")
	_ = cmd.MarkFlagRequired("ip")
	return cmd
}
