package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"imgtagger/config"
	"imgtagger/credential"
	"imgtagger/gemini"
)

func newKeyCmd(o *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the stored Gemini API key",
		Long: `Manage the Gemini API key kept in the local credentials file.

GEMINI_API_KEY or GOOGLE_API_KEY in the environment take precedence over the
stored key.`,
	}

	open := func(cmd *cobra.Command) (*credential.Store, error) {
		cfg, err := o.Complete(cmd)
		if err != nil {
			return nil, err
		}
		return credential.New(cfg.CredentialsFile)
	}

	setCmd := &cobra.Command{
		Use:   "set [KEY]",
		Short: "Store an API key (prompts when KEY is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := open(cmd)
			if err != nil {
				return err
			}

			var apiKey string
			if len(args) == 1 {
				apiKey = args[0]
			} else {
				apiKey, err = promptKey()
				if err != nil {
					return err
				}
			}

			if err := creds.Set(apiKey); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ API key saved ")+
				infoStyle.Render(credential.Mask(strings.TrimSpace(apiKey))))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := open(cmd)
			if err != nil {
				return err
			}
			if err := creds.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ API key removed"))
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show which API key would be used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := open(cmd)
			if err != nil {
				return err
			}
			apiKey, source, err := creds.Resolve()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if apiKey == "" {
				fmt.Fprintln(out, warnStyle.Render("No API key configured"))
				fmt.Fprintln(out, infoStyle.Render(gemini.GetAPIKeyHelp()))
				return nil
			}
			fmt.Fprintf(out, "%s %s\n", successStyle.Render("API key "+credential.Mask(apiKey)),
				infoStyle.Render("from "+string(source)))
			if source == credential.SourceFile {
				fmt.Fprintln(out, infoStyle.Render(creds.Path()))
			}
			return nil
		},
	}

	cmd.AddCommand(setCmd, clearCmd, statusCmd)
	return cmd
}

// promptKey asks for the key without echoing it
func promptKey() (string, error) {
	var apiKey string
	input := huh.NewInput().
		Title("Gemini API key").
		Description("Get one at https://aistudio.google.com/apikey").
		EchoMode(huh.EchoModePassword).
		Value(&apiKey).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("API key is required")
			}
			return nil
		})

	err := huh.NewForm(huh.NewGroup(input)).
		WithTheme(huh.ThemeCatppuccin()).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", errors.New("cancelled")
		}
		return "", err
	}
	return apiKey, nil
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the captioning models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, m := range gemini.Models {
				line := fmt.Sprintf("  %-24s %-18s %s", m.ID, m.Name, infoStyle.Render(m.Description))
				if m.ID == gemini.DefaultModel {
					line += subtitleStyle.Render(" (default)")
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List the environment variables imgtagger reads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Usage(cmd.OutOrStdout())
		},
	}
}
