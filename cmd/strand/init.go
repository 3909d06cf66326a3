package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/strand-rt/strand/internal/config"
	"github.com/strand-rt/strand/internal/errors"
)

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [name]",
		Short: "Create a strand.json in the current directory",
		Long: `Create a strand.json with default settings.

Examples:
  strand init
  strand init my-app`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing strand.json")

	return cmd
}

func runInit(args []string, force bool) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	if config.Exists(wd) && !force {
		return errors.New("E160").
			WithDetail("A strand.json already exists in " + wd).
			WithSuggestion("Pass --force to overwrite it")
	}

	cfg := config.New()
	if len(args) > 0 {
		cfg.Name = args[0]
	} else {
		cfg.Name = filepath.Base(wd)
	}

	path := filepath.Join(wd, config.ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		return err
	}

	success("Created %s", config.ConfigFileName)
	info("Run 'strand run' to start the runtime")
	return nil
}
