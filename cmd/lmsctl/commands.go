package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"lms/internal/domain"
	"lms/internal/repository"
	"lms/internal/repository/postgres"
	"lms/internal/service"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			if err := postgres.Migrate(cmd.Context(), e.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire combo enrollments past their expiration date",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			if force {
				n, err := e.services.Sweeper.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "expired %d combo enrollments\n", n)
				return nil
			}

			ran, err := e.services.Sweeper.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			if !ran {
				fmt.Fprintln(cmd.OutOrStdout(), "another instance is sweeping; use --force to run anyway")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sweep complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Sweep without taking the job lock")
	return cmd
}

func refundCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "refund [payment-id]",
		Short: "Mark a completed payment as refunded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			p, err := e.services.Payments.Refund(cmd.Context(), args[0], reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "payment %s (%s) is now %s\n", p.ID, p.TxnRef, p.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded in the payment event log")
	return cmd
}

func paymentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Inspect payments",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show [payment-id | txn-ref]",
		Short: "Show a payment and its event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			p, err := e.services.Payments.GetPayment(ctx, args[0])
			if errors.Is(err, service.ErrPaymentNotFound) {
				p, err = e.services.UnitOfWork.Payments().GetByTxnRef(ctx, args[0])
			}
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return service.ErrPaymentNotFound
				}
				return err
			}

			evts, err := e.services.Payments.Events(ctx, p.TxnRef)
			if err != nil {
				return err
			}
			printPayment(cmd, p, evts)
			return nil
		},
	})
	return cmd
}

func voucherCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voucher",
		Short: "Inspect vouchers",
	}

	var (
		courseID string
		price    int64
	)
	check := &cobra.Command{
		Use:   "check [code]",
		Short: "Quote a voucher against a course and price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			if price == 0 && courseID != "" {
				course, err := e.services.Catalog.GetCourse(ctx, courseID)
				if err != nil {
					return fmt.Errorf("get course %s: %w", courseID, err)
				}
				price = course.Price
			}

			q, err := e.services.Vouchers.Quote(ctx, args[0], courseID, price)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "code=%s valid=%t discount=%d payable=%d\n", q.Code, q.Valid, q.Discount, q.Payable)
			return nil
		},
	}
	check.Flags().StringVar(&courseID, "course", "", "Course the voucher is applied to (empty for bundles)")
	check.Flags().Int64Var(&price, "price", 0, "Price in VND; defaults to the course price")
	cmd.AddCommand(check)
	return cmd
}

func printPayment(cmd *cobra.Command, p *domain.Payment, evts []*domain.PaymentEvent) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", p.ID)
	fmt.Fprintf(w, "Txn ref:\t%s\n", p.TxnRef)
	fmt.Fprintf(w, "User:\t%s\n", p.UserID)
	fmt.Fprintf(w, "Item:\t%s %s\n", p.PurchaseType, p.ItemID)
	fmt.Fprintf(w, "Status:\t%s (%s)\n", p.Status, p.Method)
	fmt.Fprintf(w, "Price:\t%d - %d + tax %d = %d VND\n", p.OriginalPrice, p.DiscountAmount, p.TaxAmount, p.Amount)
	if p.VoucherCode != "" {
		fmt.Fprintf(w, "Voucher:\t%s\n", p.VoucherCode)
	}
	if p.EnrollmentID != "" {
		fmt.Fprintf(w, "Enrollment:\t%s\n", p.EnrollmentID)
	}
	if p.ComboEnrollmentID != "" {
		fmt.Fprintf(w, "Combo enrollment:\t%s\n", p.ComboEnrollmentID)
	}
	fmt.Fprintf(w, "Created:\t%s\n", p.CreatedAt.Format(time.RFC3339))
	_ = w.Flush()

	if len(evts) == 0 {
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), "\nEvents:")
	w = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, ev := range evts {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n",
			ev.CreatedAt.Format(time.RFC3339), ev.EventType, ev.Status, strings.TrimSpace(ev.ErrorMessage))
	}
	_ = w.Flush()
}
