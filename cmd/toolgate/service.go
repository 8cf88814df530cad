package main

import (
	"context"
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program adapts App to the service manager lifecycle. Service mode runs
// the gateway and scheduler only: stdio under a service manager carries
// neither an MCP client nor an operator.
type program struct {
	app *App
}

// Start implements service.Interface. It must not block.
func (p *program) Start(service.Service) error {
	return p.app.Start()
}

// Stop implements service.Interface.
func (p *program) Stop(service.Service) error {
	return p.app.Stop(context.Background())
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Run or manage toolgate as a system service",
	}
	cmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file")

	run := &cobra.Command{
		Use:   "run",
		Short: "Run under the service manager (gateway and maintenance only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfigAndLogger(cmd)
			if err != nil {
				return err
			}
			app, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			svc, err := newService(&program{app: app}, cmd)
			if err != nil {
				return err
			}
			return svc.Run()
		},
	}

	control := func(action string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(&program{}, cmd)
			if err != nil {
				return err
			}
			if err := service.Control(svc, action); err != nil {
				return err
			}
			fmt.Printf("service %s: done\n", action)
			return nil
		}
	}

	cmd.AddCommand(run,
		&cobra.Command{Use: "install", Short: "Install the system service", RunE: control("install")},
		&cobra.Command{Use: "uninstall", Short: "Remove the system service", RunE: control("uninstall")},
		&cobra.Command{Use: "start", Short: "Start the installed service", RunE: control("start")},
		&cobra.Command{Use: "stop", Short: "Stop the installed service", RunE: control("stop")},
	)
	return cmd
}

func newService(prg *program, cmd *cobra.Command) (service.Service, error) {
	arguments := []string{"service", "run"}
	if cfgPath, _ := cmd.Flags().GetString("config"); cfgPath != "" {
		arguments = append(arguments, "--config", cfgPath)
	}
	return service.New(prg, &service.Config{
		Name:        "toolgate",
		DisplayName: "toolgate",
		Description: "Tool execution and authorization gateway for agents",
		Arguments:   arguments,
	})
}
