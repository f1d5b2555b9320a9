package main

import (
	"context"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"bigfive-core/internal/app"
	"bigfive-core/internal/domain"
	"bigfive-core/internal/seed"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Administra las configuraciones de scoring de un tenant",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lista las configuraciones del tenant",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app.App, _ *zap.Logger, _ []string) error {
		tenant, err := requireTenant()
		if err != nil {
			return err
		}
		list, err := a.Config.ListConfigs(ctx, tenant)
		if err != nil {
			return err
		}
		if viper.GetBool("json") {
			return printJSON(os.Stdout, list)
		}
		fmt.Print(renderConfigs(list))
		return nil
	}),
}

var configActivateCmd = &cobra.Command{
	Use:   "activate [config-id]",
	Short: "Activa una configuracion; sin argumento la elige de una lista",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, _ *zap.Logger, args []string) error {
		tenant, err := requireTenant()
		if err != nil {
			return err
		}
		var id string
		if len(args) == 1 {
			id = args[0]
		} else {
			list, err := a.Config.ListConfigs(ctx, tenant)
			if err != nil {
				return err
			}
			if id, err = selectConfig(list); err != nil {
				return err
			}
		}
		if !confirm(fmt.Sprintf("Activate %s for tenant %s", id, tenant)) {
			return nil
		}
		if err := a.Config.Activate(ctx, tenant, id); err != nil {
			return err
		}
		fmt.Println(okStyle.Render("active: " + id))
		return nil
	}),
}

var configDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Crea la configuracion por defecto con las 30 facetas estandar",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app.App, _ *zap.Logger, _ []string) error {
		tenant, err := requireTenant()
		if err != nil {
			return err
		}
		cfg, err := a.Config.CreateDefaultConfig(ctx, tenant)
		if err != nil {
			return err
		}
		fmt.Println(okStyle.Render("created: " + cfg.ID))
		return nil
	}),
}

var configSeedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Importa configuracion, textos y banco de preguntas desde YAML",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, _ *zap.Logger, args []string) error {
		tenant, err := requireTenant()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		doc, err := seed.LoadConfiguration(f, tenant)
		if err != nil {
			return err
		}
		cfg, err := a.Config.ImportConfiguration(ctx, doc)
		if err != nil {
			return err
		}
		fmt.Println(okStyle.Render(fmt.Sprintf("imported %s (%d questions)", cfg.ID, len(doc.Questions))))
		return nil
	}),
}

var configFixFacetsCmd = &cobra.Command{
	Use:   "fix-facets",
	Short: "Agrega las facetas estandar a los rasgos canonicos que no tienen",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app.App, _ *zap.Logger, _ []string) error {
		tenant, err := requireTenant()
		if err != nil {
			return err
		}
		fixes, err := a.Config.FixMissingFacets(ctx, tenant)
		if err != nil {
			return err
		}
		if viper.GetBool("json") {
			return printJSON(os.Stdout, fixes)
		}
		for _, f := range fixes {
			fmt.Printf("%s %s %v\n", f.ConfigID, f.ConfigName, f.TraitsFixed)
		}
		fmt.Printf("%d configuration(s) fixed\n", len(fixes))
		return nil
	}),
}

var configPopulateTextsCmd = &cobra.Command{
	Use:   "populate-texts",
	Short: "Completa los textos interpretativos faltantes de la configuracion activa",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app.App, _ *zap.Logger, _ []string) error {
		tenant, err := requireTenant()
		if err != nil {
			return err
		}
		n, err := a.Config.PopulateTexts(ctx, tenant)
		if err != nil {
			return err
		}
		fmt.Printf("%d text(s) created\n", n)
		return nil
	}),
}

var configLinkCmd = &cobra.Command{
	Use:   "link-assignments",
	Short: "Fija la configuracion activa en los assignments COMPLETED sin snapshot",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app.App, _ *zap.Logger, _ []string) error {
		tenant, err := requireTenant()
		if err != nil {
			return err
		}
		n, err := a.Config.LinkAssignmentsToActive(ctx, tenant)
		if err != nil {
			return err
		}
		fmt.Printf("%d assignment(s) linked\n", n)
		return nil
	}),
}

func init() {
	configCmd.AddCommand(configListCmd, configActivateCmd, configDefaultCmd, configSeedCmd,
		configFixFacetsCmd, configPopulateTextsCmd, configLinkCmd)
	rootCmd.AddCommand(configCmd)
}

func selectConfig(list []domain.ScoringConfiguration) (string, error) {
	if len(list) == 0 {
		return "", fmt.Errorf("tenant has no configurations")
	}
	items := make([]string, len(list))
	for i, c := range list {
		marker := ""
		if c.IsActive {
			marker = " (active)"
		}
		items[i] = fmt.Sprintf("%s  %s%s", c.Name, c.ID, marker)
	}
	p := promptui.Select{Label: "Configuration", Items: items}
	i, _, err := p.Run()
	if err != nil {
		return "", err
	}
	return list[i].ID, nil
}
