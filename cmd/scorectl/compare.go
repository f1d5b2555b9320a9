package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"bigfive-core/internal/app"
	"bigfive-core/internal/domain"
)

var compareCmd = &cobra.Command{
	Use:   "compare <connection-id> <author-user-id>",
	Short: "Genera un reporte de compatibilidad para una conexion ACTIVE",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app.App, _ *zap.Logger, args []string) error {
		report, err := a.CrossProfile.CompareProfiles(ctx, args[0], args[1])
		var missing *domain.MissingResultError
		if errors.As(err, &missing) {
			fmt.Fprintln(os.Stderr, warnStyle.Render(fmt.Sprintf(
				"user %s %s: %d assignment(s), %d completed, %d with result, %d with responses",
				missing.UserID, missing.UserEmail, missing.AssignmentsFound, missing.Completed, missing.WithResult, missing.WithResponses)))
			for _, cause := range missing.Causes {
				fmt.Fprintln(os.Stderr, warnStyle.Render("  "+cause))
			}
		}
		if err != nil {
			return err
		}
		if viper.GetBool("json") {
			return printJSON(os.Stdout, report)
		}
		fmt.Print(renderReport(report))
		return nil
	}),
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Lista assignments COMPLETED sin resultado; con --repair los reconstruye",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app.App, _ *zap.Logger, _ []string) error {
		tenant, err := requireTenant()
		if err != nil {
			return err
		}
		list, err := a.Audit.MissingResults(ctx, tenant)
		if err != nil {
			return err
		}
		if !auditRepair {
			if viper.GetBool("json") {
				return printJSON(os.Stdout, list)
			}
			fmt.Print(renderMissing(list))
			return nil
		}
		if len(list) == 0 {
			fmt.Print(renderMissing(list))
			return nil
		}
		if !confirm(fmt.Sprintf("Repair %d assignment(s) of tenant %s", len(list), tenant)) {
			return nil
		}
		out, err := a.Audit.RepairAll(ctx, tenant)
		if viper.GetBool("json") {
			if jerr := printJSON(os.Stdout, out); jerr != nil {
				return jerr
			}
		} else {
			fmt.Print(renderOutcomes(out))
		}
		return err
	}),
}

var auditRepair bool

func init() {
	auditCmd.Flags().BoolVar(&auditRepair, "repair", false, "reparar los resultados faltantes")
	rootCmd.AddCommand(compareCmd, auditCmd)
}

// confirm pide confirmacion salvo con --yes.
func confirm(label string) bool {
	if viper.GetBool("yes") {
		return true
	}
	p := promptui.Prompt{Label: label, IsConfirm: true}
	if _, err := p.Run(); err != nil {
		fmt.Println(dimStyle.Render("aborted"))
		return false
	}
	return true
}
