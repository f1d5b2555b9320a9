package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"bigfive-core/internal/app"
)

var scoreCmd = &cobra.Command{
	Use:   "score <assignment-id>",
	Short: "Calcula los scores de un assignment sin persistirlos",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, _ *zap.Logger, args []string) error {
		res, err := a.Scoring.ComputeScores(ctx, args[0])
		if err != nil {
			return err
		}
		if viper.GetBool("json") {
			return printJSON(os.Stdout, res)
		}
		fmt.Printf("%s %s  %s %s\n", dimStyle.Render("config"), res.Config.ID, dimStyle.Render("method"), res.Method)
		fmt.Print(renderScores(res.Scores, facetsFlag))
		return nil
	}),
}

var interpretCmd = &cobra.Command{
	Use:   "interpret <assignment-id>",
	Short: "Arma la interpretacion narrativa de un assignment",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, _ *zap.Logger, args []string) error {
		asg, err := a.Assignments.GetByID(ctx, args[0])
		if err != nil {
			return err
		}
		out, err := a.Scoring.BuildInterpretation(ctx, asg.ID, asg.TenantID, configIDFlag)
		if err != nil {
			return err
		}
		if viper.GetBool("json") {
			return printJSON(os.Stdout, out)
		}
		fmt.Print(renderInterpretation(out))
		return nil
	}),
}

var repairCmd = &cobra.Command{
	Use:   "repair <assignment-id>",
	Short: "Reconstruye y guarda el resultado de un assignment",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, logger *zap.Logger, args []string) error {
		res, found, err := a.Repair.Repair(ctx, args[0])
		if err != nil {
			return err
		}
		if !found {
			fmt.Println(warnStyle.Render("assignment has no responses, nothing to repair"))
			return nil
		}
		logger.Debug("result repaired", zap.String("result_id", res.ID))
		if viper.GetBool("json") {
			return printJSON(os.Stdout, res)
		}
		fmt.Print(renderScores(res.Scores, facetsFlag))
		return nil
	}),
}

var (
	facetsFlag   bool
	configIDFlag string
)

func init() {
	scoreCmd.Flags().BoolVar(&facetsFlag, "facets", false, "incluir facetas")
	repairCmd.Flags().BoolVar(&facetsFlag, "facets", false, "incluir facetas")
	interpretCmd.Flags().StringVar(&configIDFlag, "config-id", "", "configuracion explicita del mismo tenant")

	rootCmd.AddCommand(scoreCmd, interpretCmd, repairCmd)
}
