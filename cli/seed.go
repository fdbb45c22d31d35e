package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	apperrors "conference-webapp/errors"
	"conference-webapp/model"
	"conference-webapp/service"
)

// SeedFile is the YAML document the seed command reads.
type SeedFile struct {
	Users []SeedUser `yaml:"users"`
}

type SeedUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	FullName string `yaml:"full_name"`
	Role     string `yaml:"role"`
}

// LoadSeedFile parses path. A missing role means USER.
func LoadSeedFile(path string) (SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, fmt.Errorf("read seed file: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return SeedFile{}, fmt.Errorf("parse seed file: %w", err)
	}
	for i, user := range seed.Users {
		if user.Role == "" {
			seed.Users[i].Role = string(model.RoleUser)
		}
		if _, err := model.ParseRole(seed.Users[i].Role); err != nil {
			return SeedFile{}, fmt.Errorf("seed user %d (%s): %w", i, user.Username, err)
		}
	}
	return seed, nil
}

func NewSeedCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create users from a YAML file, skipping existing ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := LoadSeedFile(path)
			if err != nil {
				return err
			}
			cfg, logger, err := environment(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			users := service.New(store, nil, logger).Users
			created, skipped := 0, 0
			for _, entry := range seed.Users {
				role, _ := model.ParseRole(entry.Role)
				_, err := users.Provision(cmd.Context(), model.RegisterRequest{
					Username: entry.Username,
					Email:    entry.Email,
					Password: entry.Password,
					FullName: entry.FullName,
				}, role)
				if apperrors.KindOf(err) == apperrors.KindConflict {
					skipped++
					fmt.Fprintf(cmd.ErrOrStderr(), "skip %s: %v\n", entry.Username, err)
					continue
				}
				if err != nil {
					return fmt.Errorf("seed %s: %w", entry.Username, err)
				}
				created++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d user(s), skipped %d\n", created, skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "YAML file with a users list")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
